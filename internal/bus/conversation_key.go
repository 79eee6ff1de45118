package bus

import (
	"fmt"
	"strings"
)

// BuildConversationKey produces the stable key this process uses for a
// conversation: "<prefix>:<platform id>".
func BuildConversationKey(channel Channel, id string) (string, error) {
	if !isValidChannel(channel) {
		return "", fmt.Errorf("channel is invalid")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("conversation id is required")
	}
	if strings.Contains(id, " ") {
		return "", fmt.Errorf("conversation id must not contain spaces")
	}
	return fmt.Sprintf("%s:%s", keyPrefix(channel), id), nil
}

// BuildParticipantKey produces the stable key for the sender of a message.
// In group conversations this distinguishes participants; for direct
// conversations callers pass the conversation id itself.
func BuildParticipantKey(channel Channel, senderID string) (string, error) {
	senderID = strings.TrimSpace(senderID)
	if senderID == "" {
		return "", fmt.Errorf("sender id is required")
	}
	return BuildConversationKey(channel, senderID)
}

// SplitKey reverses BuildConversationKey.
func SplitKey(key string) (Channel, string, error) {
	prefix, id, ok := strings.Cut(key, ":")
	if !ok || strings.TrimSpace(id) == "" {
		return "", "", fmt.Errorf("key is invalid: %q", key)
	}
	channel, ok := channelForPrefix(prefix)
	if !ok {
		return "", "", fmt.Errorf("key has unknown channel prefix: %q", key)
	}
	return channel, id, nil
}

func isValidChannel(channel Channel) bool {
	switch channel {
	case ChannelWhatsApp, ChannelTelegram:
		return true
	default:
		return false
	}
}

func keyPrefix(channel Channel) string {
	switch channel {
	case ChannelWhatsApp:
		return "wa"
	case ChannelTelegram:
		return "tg"
	default:
		return ""
	}
}

func channelForPrefix(prefix string) (Channel, bool) {
	switch prefix {
	case "wa":
		return ChannelWhatsApp, true
	case "tg":
		return ChannelTelegram, true
	default:
		return "", false
	}
}
