// Package speech forwards replies to the text-to-speech backend. Failures
// here are always recoverable: the text reply has already been delivered by
// the time a speak call happens.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultRequestTimeout = 60 * time.Second

type Client struct {
	BaseURL   string
	PlayAudio bool
	HTTP      *http.Client
}

func New(baseURL string, timeout time.Duration, playAudio bool) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "http://piper-tts:5000"
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Client{
		BaseURL:   baseURL,
		PlayAudio: playAudio,
		HTTP:      &http.Client{Timeout: timeout},
	}
}

type speakRequest struct {
	Text      string `json:"text"`
	PlayAudio bool   `json:"play_audio"`
}

type speakResponse struct {
	Success    bool    `json:"success"`
	Message    string  `json:"message,omitempty"`
	DurationMS float64 `json:"duration_ms,omitempty"`
}

// Speak sanitizes text and asks the voice backend to synthesize (and
// usually play) it. It returns the reported synthesis duration.
func (c *Client) Speak(ctx context.Context, text string) (time.Duration, error) {
	clean := Speakable(text)
	if clean == "" {
		return 0, fmt.Errorf("speech: nothing speakable in text")
	}

	b, err := json.Marshal(speakRequest{Text: clean, PlayAudio: c.PlayAudio})
	if err != nil {
		return 0, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/speak", bytes.NewReader(b))
	if err != nil {
		return 0, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("speech: backend returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out speakResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return 0, fmt.Errorf("speech: invalid response json: %w", err)
	}
	if !out.Success {
		return 0, fmt.Errorf("speech: backend reported failure: %s", out.Message)
	}
	return time.Duration(out.DurationMS * float64(time.Millisecond)), nil
}
