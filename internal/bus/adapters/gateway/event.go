package gateway

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gonzalo-munillag/RPI-Chatbot/internal/bus"
)

// event is one frame from the gateway's websocket stream.
type event struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	ChatID     string `json:"chat_id"`
	SenderID   string `json:"sender_id"`
	ChatName   string `json:"chat_name,omitempty"`
	SenderName string `json:"sender_name,omitempty"`
	Group      bool   `json:"group"`
	Kind       string `json:"kind"`
	Text       string `json:"text,omitempty"`
	FromMe     bool   `json:"from_me"`
	Timestamp  int64  `json:"timestamp"`
}

const eventTypeMessage = "message"

// inboundFromEvent converts a gateway message frame into the bus shape the
// rest of the pipeline consumes. Frames of other types return ok=false.
func inboundFromEvent(channel bus.Channel, ev event, now func() time.Time) (bus.InboundMessage, bool, error) {
	if ev.Type != eventTypeMessage {
		return bus.InboundMessage{}, false, nil
	}
	chatID := strings.TrimSpace(ev.ChatID)
	if chatID == "" {
		return bus.InboundMessage{}, false, fmt.Errorf("chat_id is required")
	}
	conversationKey, err := bus.BuildConversationKey(channel, chatID)
	if err != nil {
		return bus.InboundMessage{}, false, err
	}
	senderID := strings.TrimSpace(ev.SenderID)
	if senderID == "" {
		senderID = chatID
	}
	participantKey, err := bus.BuildParticipantKey(channel, senderID)
	if err != nil {
		return bus.InboundMessage{}, false, err
	}

	kind := bus.Kind(strings.TrimSpace(ev.Kind))
	if kind == "" {
		kind = bus.KindText
	}
	id := strings.TrimSpace(ev.ID)
	if id == "" {
		id = "gw_" + uuid.NewString()
	}
	sentAt := now().UTC()
	if ev.Timestamp > 0 {
		sentAt = time.Unix(ev.Timestamp, 0).UTC()
	}

	return bus.InboundMessage{
		ID:              id,
		Channel:         channel,
		ConversationKey: conversationKey,
		ParticipantKey:  participantKey,
		Group:           ev.Group,
		GroupName:       strings.TrimSpace(ev.ChatName),
		SenderName:      strings.TrimSpace(ev.SenderName),
		Kind:            kind,
		Text:            ev.Text,
		SelfSent:        ev.FromMe,
		SentAt:          sentAt,
	}, true, nil
}
