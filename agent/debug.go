package agent

import (
	"fmt"
	"strings"

	"github.com/gonzalo-munillag/RPI-Chatbot/history"
)

// FormatContextDump renders the stored context of one conversation for the
// debug command reply. No model call is involved.
func FormatContextDump(conversationKey string, entries []history.Entry) string {
	if len(entries) == 0 {
		return fmt.Sprintf("No stored context for %s.", conversationKey)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Context for %s (%d entries):\n", conversationKey, len(entries))
	for i, e := range entries {
		fmt.Fprintf(&b, "%2d. [%s] %s%s: %s\n",
			i+1,
			e.CreatedAt.UTC().Format("15:04:05"),
			e.Sender,
			entryTags(e),
			e.Text,
		)
	}
	return strings.TrimRight(b.String(), "\n")
}

func entryTags(e history.Entry) string {
	switch {
	case e.Generated:
		return " (bot)"
	case e.FromOperator:
		return " (operator)"
	default:
		return ""
	}
}
