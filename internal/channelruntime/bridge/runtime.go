// Package bridge runs the relay loop: adapter events in, admission and
// context handling, model calls, replies and optional speech out.
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gonzalo-munillag/RPI-Chatbot/contacts"
	"github.com/gonzalo-munillag/RPI-Chatbot/guard"
	"github.com/gonzalo-munillag/RPI-Chatbot/history"
	"github.com/gonzalo-munillag/RPI-Chatbot/internal/bus"
	"github.com/gonzalo-munillag/RPI-Chatbot/internal/channelruntime/worker"
	"github.com/gonzalo-munillag/RPI-Chatbot/llm"
)

// Adapter is the platform side of the bridge: it produces normalized
// inbound messages and accepts replies and typing signals for a
// conversation.
type Adapter interface {
	Events() <-chan bus.InboundMessage
	Reply(ctx context.Context, conversationKey, text string) error
	Typing(ctx context.Context, conversationKey string) error
}

// Speaker voices a reply. Failures are logged and swallowed; the text
// reply has already been delivered.
type Speaker interface {
	Speak(ctx context.Context, text string) (time.Duration, error)
}

type Dependencies struct {
	Logger   *slog.Logger
	Adapter  Adapter
	LLM      llm.Client
	Speech   Speaker
	Resolver *contacts.Resolver
	History  *history.Store
	Rate     *guard.RateGate
}

type Runtime struct {
	logger   *slog.Logger
	adapter  Adapter
	llm      llm.Client
	speech   Speaker
	resolver *contacts.Resolver
	history  *history.Store
	rate     *guard.RateGate
	opts     Options
}

func NewRuntime(deps Dependencies, opts Options) (*Runtime, error) {
	if deps.Adapter == nil {
		return nil, fmt.Errorf("bridge: adapter is required")
	}
	if deps.LLM == nil {
		return nil, fmt.Errorf("bridge: llm client is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	opts = normalizeOptions(opts)
	if deps.History == nil {
		deps.History = history.NewStore(history.Options{Logger: logger})
	}
	if deps.Rate == nil {
		deps.Rate = guard.NewRateGate(guard.Config{})
	}
	if deps.Resolver == nil {
		deps.Resolver = contacts.NewResolver(contacts.ResolverOptions{Logger: logger})
	}
	return &Runtime{
		logger:   logger,
		adapter:  deps.Adapter,
		llm:      deps.LLM,
		speech:   deps.Speech,
		resolver: deps.Resolver,
		history:  deps.History,
		rate:     deps.Rate,
		opts:     opts,
	}, nil
}

// Run consumes adapter events until ctx is done. Messages are keyed by
// conversation so each conversation is handled in order while distinct
// conversations proceed concurrently.
func (r *Runtime) Run(ctx context.Context) error {
	pool := worker.NewPool(worker.PoolOptions[bus.InboundMessage]{
		Ctx:            ctx,
		MaxConcurrency: r.opts.MaxConcurrency,
		QueueSize:      r.opts.QueueSize,
		Handle: func(ctx context.Context, _ string, msg bus.InboundMessage) {
			r.process(ctx, msg)
		},
	})

	events := r.adapter.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-events:
			if !ok {
				return nil
			}
			if err := pool.Dispatch(ctx, msg.ConversationKey, msg); err != nil {
				return err
			}
		}
	}
}

// startTypingTicker keeps the typing indicator alive while a model call is
// in flight. The returned stop function is safe to call once.
func (r *Runtime) startTypingTicker(ctx context.Context, conversationKey string) func() {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(4 * time.Second)
		defer ticker.Stop()
		r.sendTyping(ctx, conversationKey)
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sendTyping(ctx, conversationKey)
			}
		}
	}()
	return func() { close(stop) }
}

func (r *Runtime) sendTyping(ctx context.Context, conversationKey string) {
	if err := r.adapter.Typing(ctx, conversationKey); err != nil {
		r.logger.Debug("bridge_typing_failed",
			"conversation_key", conversationKey,
			"error", err.Error(),
		)
	}
}
