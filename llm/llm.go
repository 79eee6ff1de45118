package llm

import (
	"context"
	"time"
)

type Request struct {
	Message     string
	Temperature float64
	MaxTokens   int
}

type Result struct {
	Text     string
	Model    string
	Duration time.Duration
}

type Client interface {
	Chat(ctx context.Context, req Request) (Result, error)
}
