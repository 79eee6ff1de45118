// Package ollama talks to the model backend: a small HTTP wrapper in front
// of an Ollama instance exposing /chat, /models and /health.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gonzalo-munillag/RPI-Chatbot/llm"
)

const DefaultRequestTimeout = 120 * time.Second

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "http://ollama:8000"
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Message     string  `json:"message"`
	Stream      bool    `json:"stream"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Response string `json:"response"`
	Model    string `json:"model"`
	Done     bool   `json:"done"`
	Detail   string `json:"detail,omitempty"`
}

func (c *Client) Chat(ctx context.Context, req llm.Request) (llm.Result, error) {
	start := time.Now()

	body := chatRequest{
		Message:     req.Message,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	b, err := json.Marshal(body)
	if err != nil {
		return llm.Result{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat", bytes.NewReader(b))
	if err != nil {
		return llm.Result{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return llm.Result{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return llm.Result{}, err
	}

	var out chatResponse
	if unmarshalErr := json.Unmarshal(raw, &out); unmarshalErr != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return llm.Result{}, fmt.Errorf("ollama: invalid response json: %w", unmarshalErr)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := strings.TrimSpace(out.Detail)
		if detail == "" {
			detail = strings.TrimSpace(string(raw))
		}
		return llm.Result{}, &llm.StatusError{StatusCode: resp.StatusCode, Detail: detail}
	}

	if strings.TrimSpace(out.Response) == "" {
		return llm.Result{}, fmt.Errorf("ollama: empty response")
	}
	return llm.Result{
		Text:     out.Response,
		Model:    out.Model,
		Duration: time.Since(start),
	}, nil
}

type modelsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Models lists the models installed on the backend.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	raw, status, err := c.get(ctx, "/models")
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &llm.StatusError{StatusCode: status, Detail: strings.TrimSpace(string(raw))}
	}
	var out modelsResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("ollama: invalid models json: %w", err)
	}
	names := make([]string, 0, len(out.Models))
	for _, m := range out.Models {
		if name := strings.TrimSpace(m.Name); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// Health probes the backend health endpoint.
func (c *Client) Health(ctx context.Context) error {
	raw, status, err := c.get(ctx, "/health")
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return &llm.StatusError{StatusCode: status, Detail: strings.TrimSpace(string(raw))}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, int, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return raw, resp.StatusCode, nil
}
