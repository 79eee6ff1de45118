// Package contacts maps raw inbound messages to stable sender identities
// and the authorization flag the rest of the pipeline keys on.
package contacts

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gonzalo-munillag/RPI-Chatbot/internal/bus"
)

// Identity is the resolved view of a message sender.
type Identity struct {
	SenderKey   string
	Operator    bool
	DisplayName string
}

type ResolverOptions struct {
	// Operators lists the allow-listed sender identifiers. Equivalent forms
	// of the same account (bare id, full platform JID, prefixed key) all
	// match after canonicalization.
	Operators []string
	// Roster maps canonical sender ids to configured nicknames.
	Roster map[string]string
	// Lookup asks the platform for a display name. It may fail; failures
	// are absorbed by the fallback chain.
	Lookup func(ctx context.Context, senderKey string) (string, error)
	Logger *slog.Logger
}

type Resolver struct {
	operators map[string]bool
	roster    map[string]string
	lookup    func(ctx context.Context, senderKey string) (string, error)
	logger    *slog.Logger
}

func NewResolver(opts ResolverOptions) *Resolver {
	operators := make(map[string]bool, len(opts.Operators))
	for _, id := range opts.Operators {
		if canon := CanonicalID(id); canon != "" {
			operators[canon] = true
		}
	}
	roster := make(map[string]string, len(opts.Roster))
	for id, nickname := range opts.Roster {
		canon := CanonicalID(id)
		nickname = strings.TrimSpace(nickname)
		if canon != "" && nickname != "" {
			roster[canon] = nickname
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		operators: operators,
		roster:    roster,
		lookup:    opts.Lookup,
		logger:    logger,
	}
}

// Resolve produces the sender identity for a message. In group
// conversations the sender is the participant; in direct conversations the
// conversation itself identifies the sender. Display-name resolution never
// fails: a broken lookup falls back to the group display name, then to the
// sender key.
func (r *Resolver) Resolve(ctx context.Context, msg bus.InboundMessage) Identity {
	senderKey := msg.ConversationKey
	if msg.Group {
		senderKey = msg.ParticipantKey
	}
	ident := Identity{
		SenderKey: senderKey,
		Operator:  r.isOperator(senderKey),
	}
	ident.DisplayName = r.displayName(ctx, msg, senderKey)
	return ident
}

// IsOperator reports whether id (in any equivalent form) is allow-listed.
func (r *Resolver) IsOperator(id string) bool {
	return r.isOperator(id)
}

func (r *Resolver) isOperator(id string) bool {
	if r == nil || len(r.operators) == 0 {
		return false
	}
	return r.operators[CanonicalID(id)]
}

func (r *Resolver) displayName(ctx context.Context, msg bus.InboundMessage, senderKey string) string {
	if r != nil {
		if nickname, ok := r.roster[CanonicalID(senderKey)]; ok {
			return nickname
		}
	}
	if name := strings.TrimSpace(msg.SenderName); name != "" {
		return name
	}
	if r != nil && r.lookup != nil {
		name, err := r.lookup(ctx, senderKey)
		if err != nil {
			r.logger.Debug("contacts_lookup_failed", "sender_key", senderKey, "error", err.Error())
		} else if name = strings.TrimSpace(name); name != "" {
			return name
		}
	}
	if name := strings.TrimSpace(msg.GroupName); name != "" {
		return name
	}
	return senderKey
}

// CanonicalID reduces the equivalent forms of a sender identifier to one
// comparable token: the channel key prefix ("wa:") and the platform JID
// suffix ("@s.whatsapp.net", "@lid") are both dropped.
func CanonicalID(id string) string {
	id = strings.TrimSpace(id)
	if _, rest, err := splitKnownPrefix(id); err == nil {
		id = rest
	}
	if i := strings.IndexByte(id, '@'); i >= 0 {
		id = id[:i]
	}
	return id
}

func splitKnownPrefix(id string) (bus.Channel, string, error) {
	return bus.SplitKey(id)
}
