package history

import (
	"strings"
	"time"
)

// TruncationMarker is appended to entry text that was cut at the store's
// rune limit.
const TruncationMarker = "…[truncated]"

// Entry is one recorded exchange fragment: a human message or a generated
// reply retained for later prompt assembly.
type Entry struct {
	Sender       string
	Text         string
	CreatedAt    time.Time
	FromOperator bool
	Generated    bool
}

func NewEntry(sender, text string, createdAt time.Time, fromOperator bool) Entry {
	return Entry{
		Sender:       strings.TrimSpace(sender),
		Text:         text,
		CreatedAt:    createdAt,
		FromOperator: fromOperator,
	}
}

func NewGeneratedEntry(sender, text string, createdAt time.Time) Entry {
	return Entry{
		Sender:    strings.TrimSpace(sender),
		Text:      text,
		CreatedAt: createdAt,
		Generated: true,
	}
}

// Truncate cuts text to at most maxRunes runes and appends the truncation
// marker when anything was removed.
func Truncate(text string, maxRunes int) string {
	if maxRunes <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes]) + TruncationMarker
}
