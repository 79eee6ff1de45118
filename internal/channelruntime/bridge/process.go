package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/gonzalo-munillag/RPI-Chatbot/agent"
	"github.com/gonzalo-munillag/RPI-Chatbot/history"
	"github.com/gonzalo-munillag/RPI-Chatbot/internal/bus"
	"github.com/gonzalo-munillag/RPI-Chatbot/llm"
)

const (
	replyRateLimited = "You're sending messages too fast. Please wait %d seconds."
	replyTimeout     = "I'm taking too long to think. Please try again."
	replyTransport   = "I'm having trouble connecting to my brain. Please try again later."
	replyStatus      = "The model backend reported an error: %s"
	replyCleared     = "Conversation history cleared."
)

func (r *Runtime) process(ctx context.Context, msg bus.InboundMessage) {
	if err := msg.Validate(); err != nil {
		r.logger.Debug("bridge_message_invalid", "error", err.Error())
		return
	}

	ident := r.resolver.Resolve(ctx, msg)

	// Context capture happens before any admission gate: group traffic and
	// operator direct messages are recorded even when no reply follows.
	if msg.Kind == bus.KindText && !msg.SelfSent && (msg.Group || ident.Operator) {
		r.history.Append(msg.ConversationKey, history.NewEntry(
			ident.DisplayName, msg.Text, msg.SentAt, ident.Operator,
		))
	}

	res := agent.ParseInbound(agent.Inbound{
		Text:         msg.Text,
		Group:        msg.Group,
		FromOperator: ident.Operator,
		SelfSent:     msg.SelfSent,
		PlainText:    msg.Kind == bus.KindText,
	}, agent.ParseOptions{
		TriggerWord: r.opts.TriggerWord,
		SpeakWord:   r.opts.SpeakWord,
	})

	switch res.Outcome {
	case agent.OutcomeIgnore:
		r.logger.Debug("bridge_message_ignored",
			"conversation_key", msg.ConversationKey,
			"reason", res.Reason,
		)
	case agent.OutcomeDebugDump:
		dump := agent.FormatContextDump(msg.ConversationKey, r.history.Get(msg.ConversationKey))
		r.reply(ctx, msg.ConversationKey, dump)
	case agent.OutcomeClearContext:
		r.history.Clear(msg.ConversationKey)
		r.logger.Info("bridge_context_cleared",
			"conversation_key", msg.ConversationKey,
			"sender_key", ident.SenderKey,
		)
		r.reply(ctx, msg.ConversationKey, replyCleared)
	case agent.OutcomeAsk:
		r.ask(ctx, msg, ident.SenderKey, res)
	}
}

func (r *Runtime) ask(ctx context.Context, msg bus.InboundMessage, senderKey string, res agent.ParseResult) {
	decision := r.rate.Check(senderKey)
	if !decision.Allowed {
		wait := int(decision.RetryAfter / time.Second)
		r.logger.Info("bridge_rate_limited",
			"sender_key", senderKey,
			"retry_after_seconds", wait,
		)
		r.reply(ctx, msg.ConversationKey, fmt.Sprintf(replyRateLimited, wait))
		return
	}

	prompt := agent.BuildPrompt(res.UserText, r.history.Get(msg.ConversationKey), msg.Group, agent.PromptOptions{
		TriggerWord: r.opts.TriggerWord,
		Window:      r.opts.ContextWindow,
	})

	stopTyping := r.startTypingTicker(ctx, msg.ConversationKey)
	callCtx, cancel := context.WithTimeout(ctx, r.opts.RequestTimeout)
	started := r.opts.Now()
	result, err := r.llm.Chat(callCtx, llm.Request{
		Message:     prompt,
		Temperature: r.opts.Temperature,
		MaxTokens:   r.opts.MaxTokens,
	})
	cancel()
	stopTyping()

	if err != nil {
		r.logger.Error("bridge_llm_call_failed",
			"conversation_key", msg.ConversationKey,
			"elapsed", r.opts.Now().Sub(started).String(),
			"error", err.Error(),
		)
		r.reply(ctx, msg.ConversationKey, errorReply(err))
		return
	}

	r.logger.Info("bridge_llm_call_completed",
		"conversation_key", msg.ConversationKey,
		"model", result.Model,
		"elapsed", r.opts.Now().Sub(started).String(),
		"speak", res.Speak,
	)

	r.reply(ctx, msg.ConversationKey, result.Text)
	r.history.RecordReply(msg.ConversationKey, r.opts.BotName, result.Text, r.opts.Now())

	if res.Speak && r.speech != nil {
		r.speak(ctx, msg.ConversationKey, result.Text)
	}
}

func (r *Runtime) speak(ctx context.Context, conversationKey, text string) {
	speakCtx, cancel := context.WithTimeout(ctx, r.opts.SpeechTimeout)
	defer cancel()
	d, err := r.speech.Speak(speakCtx, text)
	if err != nil {
		r.logger.Warn("bridge_speech_failed",
			"conversation_key", conversationKey,
			"error", err.Error(),
		)
		return
	}
	r.logger.Info("bridge_speech_played",
		"conversation_key", conversationKey,
		"duration", d.String(),
	)
}

func (r *Runtime) reply(ctx context.Context, conversationKey, text string) {
	if err := r.adapter.Reply(ctx, conversationKey, text); err != nil {
		r.logger.Error("bridge_reply_failed",
			"conversation_key", conversationKey,
			"error", err.Error(),
		)
	}
}

// errorReply maps a model call failure to the user-facing apology. Timeout
// and transport failures get distinct phrasings; a completed call with an
// error status surfaces the backend's own detail.
func errorReply(err error) string {
	if llm.IsTimeout(err) {
		return replyTimeout
	}
	if se, ok := llm.AsStatusError(err); ok {
		detail := se.Detail
		if detail == "" {
			detail = fmt.Sprintf("status %d", se.StatusCode)
		}
		return fmt.Sprintf(replyStatus, detail)
	}
	return replyTransport
}
