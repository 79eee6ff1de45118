package bus

import (
	"fmt"
	"strings"
	"time"
)

type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelTelegram Channel = "telegram"
)

type Kind string

const (
	KindText   Kind = "text"
	KindMedia  Kind = "media"
	KindSystem Kind = "system"
)

// InboundMessage is one message event as delivered by a platform adapter,
// normalized away from any one platform's update shape.
type InboundMessage struct {
	ID              string
	Channel         Channel
	ConversationKey string
	ParticipantKey  string
	Group           bool
	GroupName       string
	SenderName      string
	Kind            Kind
	Text            string
	SelfSent        bool
	SentAt          time.Time
}

func (m InboundMessage) Validate() error {
	if err := requireCanonical("id", m.ID); err != nil {
		return err
	}
	if !isValidChannel(m.Channel) {
		return fmt.Errorf("channel is invalid")
	}
	if err := requireCanonical("conversation_key", m.ConversationKey); err != nil {
		return err
	}
	if err := requireCanonical("participant_key", m.ParticipantKey); err != nil {
		return err
	}
	switch m.Kind {
	case KindText, KindMedia, KindSystem:
	default:
		return fmt.Errorf("kind must be text|media|system")
	}
	if m.Kind == KindText && strings.TrimSpace(m.Text) == "" {
		return fmt.Errorf("text is required for text messages")
	}
	if m.SentAt.IsZero() {
		return fmt.Errorf("sent_at is required")
	}
	return nil
}

func requireCanonical(field, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", field)
	}
	if strings.TrimSpace(value) != value {
		return fmt.Errorf("%s must not contain leading/trailing spaces", field)
	}
	return nil
}
