// Package gateway connects the bridge to the messaging gateway service: a
// websocket event stream for inbound traffic and HTTP endpoints for
// replies, typing signals, and contact lookups.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gonzalo-munillag/RPI-Chatbot/internal/bus"
)

const (
	defaultQueueSize      = 64
	defaultRequestTimeout = 30 * time.Second
	reconnectDelay        = 2 * time.Second
)

type Options struct {
	// Endpoint is the gateway base URL, e.g. "http://whatsapp:3000".
	Endpoint string
	Token    string
	Channel  bus.Channel
	Logger   *slog.Logger
	// QueueSize bounds the inbound event buffer.
	QueueSize int
	HTTP      *http.Client
	Now       func() time.Time
}

type Client struct {
	endpoint string
	token    string
	channel  bus.Channel
	logger   *slog.Logger
	http     *http.Client
	now      func() time.Time
	events   chan bus.InboundMessage
}

func New(opts Options) (*Client, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(opts.Endpoint), "/")
	if endpoint == "" {
		return nil, fmt.Errorf("gateway: endpoint is required")
	}
	channel := opts.Channel
	if channel == "" {
		channel = bus.ChannelWhatsApp
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	httpClient := opts.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Client{
		endpoint: endpoint,
		token:    strings.TrimSpace(opts.Token),
		channel:  channel,
		logger:   logger,
		http:     httpClient,
		now:      now,
		events:   make(chan bus.InboundMessage, queueSize),
	}, nil
}

func (c *Client) Events() <-chan bus.InboundMessage { return c.events }

// Run consumes the gateway's websocket stream until ctx is done,
// reconnecting with a fixed delay after any connection failure. The events
// channel is closed on return.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.events)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("gateway_connect_failed", "error", err.Error())
			if err := sleepWithContext(ctx, reconnectDelay); err != nil {
				return err
			}
			continue
		}
		c.logger.Info("gateway_connected", "endpoint", c.endpoint)
		readErr := c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if readErr != nil {
			c.logger.Warn("gateway_read_failed", "error", readErr.Error())
		}
		if err := sleepWithContext(ctx, reconnectDelay); err != nil {
			return err
		}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	url := websocketURL(c.endpoint) + "/ws"
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	dialer := *websocket.DefaultDialer
	conn, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (c *Client) consume(ctx context.Context, conn *websocket.Conn) error {
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var ev event
		if err := json.Unmarshal(raw, &ev); err != nil {
			c.logger.Debug("gateway_event_undecodable", "error", err.Error())
			continue
		}
		msg, ok, err := inboundFromEvent(c.channel, ev, c.now)
		if err != nil {
			c.logger.Debug("gateway_event_invalid", "error", err.Error())
			continue
		}
		if !ok {
			continue
		}
		select {
		case c.events <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Reply sends text into the conversation behind conversationKey.
func (c *Client) Reply(ctx context.Context, conversationKey, text string) error {
	chatID, err := c.chatID(conversationKey)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("gateway: text is required")
	}
	return c.postJSON(ctx, "/send-message", map[string]string{
		"chat_id": chatID,
		"message": text,
	})
}

// Typing signals the gateway to show a typing indicator.
func (c *Client) Typing(ctx context.Context, conversationKey string) error {
	chatID, err := c.chatID(conversationKey)
	if err != nil {
		return err
	}
	return c.postJSON(ctx, "/typing", map[string]string{"chat_id": chatID})
}

// Lookup asks the gateway for a contact's display name. It satisfies the
// contacts resolver's lookup hook.
func (c *Client) Lookup(ctx context.Context, senderKey string) (string, error) {
	id, err := c.chatID(senderKey)
	if err != nil {
		// Bare ids without a channel prefix are passed through as-is.
		id = strings.TrimSpace(senderKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/contacts/"+id, nil)
	if err != nil {
		return "", err
	}
	c.authorize(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("gateway contact lookup http %d", resp.StatusCode)
	}
	var out struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Name, nil
}

func (c *Client) chatID(conversationKey string) (string, error) {
	channel, id, err := bus.SplitKey(conversationKey)
	if err != nil {
		return "", err
	}
	if channel != c.channel {
		return "", fmt.Errorf("gateway: key %q belongs to channel %q", conversationKey, channel)
	}
	return id, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		detail := strings.TrimSpace(string(body))
		if detail == "" {
			return fmt.Errorf("gateway %s http %d", path, resp.StatusCode)
		}
		return fmt.Errorf("gateway %s http %d: %s", path, resp.StatusCode, detail)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func websocketURL(endpoint string) string {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return "wss://" + strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		return "ws://" + strings.TrimPrefix(endpoint, "http://")
	default:
		return endpoint
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
