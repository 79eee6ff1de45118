// Package agent decides whether an inbound message should reach the model
// and turns stored context plus the normalized question into the final
// prompt.
package agent

import (
	"strings"
	"unicode"
)

// DefaultGreeting is the instruction sent to the model when a trigger or
// speak keyword arrives with nothing after it.
const DefaultGreeting = "Greet the user briefly and ask how you can help."

type Outcome string

const (
	// OutcomeIgnore means the message gets no reply at all.
	OutcomeIgnore Outcome = "ignore"
	// OutcomeAsk means the message proceeds to the model call.
	OutcomeAsk Outcome = "ask"
	// OutcomeDebugDump short-circuits with a dump of the stored context.
	OutcomeDebugDump Outcome = "debug_dump"
	// OutcomeClearContext short-circuits by resetting the stored context.
	OutcomeClearContext Outcome = "clear_context"
)

// Inbound is the parser's view of a message, already resolved by the
// identity layer.
type Inbound struct {
	Text         string
	Group        bool
	FromOperator bool
	SelfSent     bool
	PlainText    bool
}

type ParseOptions struct {
	TriggerWord string
	SpeakWord   string
}

type ParseResult struct {
	Outcome  Outcome
	UserText string
	Speak    bool
	// Reason explains an ignore outcome for logging.
	Reason string
}

const (
	ReasonSelfSent     = "self_sent"
	ReasonNotText      = "not_text"
	ReasonUnauthorized = "unauthorized"
	ReasonNoTrigger    = "no_trigger"
)

const (
	debugCommand = "debug context"
	clearCommand = "clear context"
)

// ParseInbound runs the admission gates for a message that has already been
// considered for context storage. Storage happens before this gate; an
// ignored message may still have been recorded.
func ParseInbound(in Inbound, opts ParseOptions) ParseResult {
	if in.SelfSent {
		return ParseResult{Outcome: OutcomeIgnore, Reason: ReasonSelfSent}
	}
	if !in.PlainText {
		return ParseResult{Outcome: OutcomeIgnore, Reason: ReasonNotText}
	}
	if !in.FromOperator {
		return ParseResult{Outcome: OutcomeIgnore, Reason: ReasonUnauthorized}
	}

	text := in.Text
	if in.Group {
		// Group messages must address the assistant by the trigger word.
		// The prefix match is case-sensitive; everything after it is the
		// actual request.
		rest, ok := cutTokenPrefix(text, opts.TriggerWord, false)
		if !ok {
			return ParseResult{Outcome: OutcomeIgnore, Reason: ReasonNoTrigger}
		}
		text = rest
	}
	text = strings.TrimSpace(text)

	switch {
	case strings.EqualFold(text, debugCommand):
		return ParseResult{Outcome: OutcomeDebugDump}
	case strings.EqualFold(text, clearCommand):
		return ParseResult{Outcome: OutcomeClearContext}
	}

	speak := false
	if rest, ok := cutTokenPrefix(text, opts.SpeakWord, true); ok {
		speak = true
		text = strings.TrimSpace(rest)
	}
	if text == "" {
		text = DefaultGreeting
	}
	return ParseResult{Outcome: OutcomeAsk, UserText: text, Speak: speak}
}

// cutTokenPrefix strips word from the start of text when it stands alone as
// a leading token (followed by whitespace or nothing). It reports whether
// the prefix matched.
func cutTokenPrefix(text, word string, fold bool) (string, bool) {
	word = strings.TrimSpace(word)
	if word == "" || len(text) < len(word) {
		return text, false
	}
	head := text[:len(word)]
	if fold {
		if !strings.EqualFold(head, word) {
			return text, false
		}
	} else if head != word {
		return text, false
	}
	rest := text[len(word):]
	if rest != "" && !unicode.IsSpace([]rune(rest)[0]) {
		return text, false
	}
	return strings.TrimSpace(rest), true
}
