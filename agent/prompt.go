package agent

import (
	"fmt"
	"strings"

	"github.com/gonzalo-munillag/RPI-Chatbot/history"
)

const DefaultContextWindow = 10

type PromptOptions struct {
	// TriggerWord is needed to filter the operator's own invocation
	// messages out of group context.
	TriggerWord string
	// Window caps how many filtered entries are rendered (most recent
	// kept).
	Window int
}

// BuildPrompt assembles the final prompt from the stored context and the
// normalized question. With no usable context the question passes through
// unchanged.
func BuildPrompt(userText string, entries []history.Entry, group bool, opts PromptOptions) string {
	window := opts.Window
	if window <= 0 {
		window = DefaultContextWindow
	}
	kept := FilterContext(entries, group, opts.TriggerWord)
	if len(kept) > window {
		kept = kept[len(kept)-window:]
	}
	if len(kept) == 0 {
		return userText
	}

	lines := make([]string, 0, len(kept))
	for _, e := range kept {
		lines = append(lines, fmt.Sprintf("%s: %s", e.Sender, e.Text))
	}
	return fmt.Sprintf(contextPromptTemplate, strings.Join(lines, "\n"), userText)
}

// FilterContext keeps the entries worth showing the model. Generated
// replies are always kept. In group conversations the operator's own
// trigger-prefixed messages are dropped so the model never sees its
// invocation wrapper; messages from other participants are kept even when
// they start with the same word.
func FilterContext(entries []history.Entry, group bool, triggerWord string) []history.Entry {
	triggerWord = strings.TrimSpace(triggerWord)
	kept := make([]history.Entry, 0, len(entries))
	for _, e := range entries {
		if !e.Generated && group && e.FromOperator && triggerWord != "" && strings.HasPrefix(e.Text, triggerWord) {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}
