package history

import (
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultMaxEntries       = 20
	DefaultMaxConversations = 50
	DefaultMaxTextRunes     = 500
)

type Options struct {
	MaxEntries       int
	MaxConversations int
	MaxTextRunes     int
	Logger           *slog.Logger
}

// Store keeps a bounded rolling context per conversation. Entries are held
// in arrival order; the oldest entry is evicted once a conversation exceeds
// MaxEntries. The store itself admits at most MaxConversations conversation
// keys: appends for unseen keys beyond that are dropped, existing
// conversations are unaffected.
//
// All state is process-lifetime and in-memory.
type Store struct {
	mu            sync.Mutex
	maxEntries    int
	maxConvos     int
	maxTextRunes  int
	logger        *slog.Logger
	conversations map[string][]Entry
}

func NewStore(opts Options) *Store {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.MaxConversations <= 0 {
		opts.MaxConversations = DefaultMaxConversations
	}
	if opts.MaxTextRunes <= 0 {
		opts.MaxTextRunes = DefaultMaxTextRunes
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		maxEntries:    opts.MaxEntries,
		maxConvos:     opts.MaxConversations,
		maxTextRunes:  opts.MaxTextRunes,
		logger:        logger,
		conversations: make(map[string][]Entry),
	}
}

// Append records an entry for the conversation. It returns false when the
// conversation is unknown and the store is already at its admission cap; the
// entry is dropped and existing conversations stay untouched.
func (s *Store) Append(conversationKey string, e Entry) bool {
	if s == nil || conversationKey == "" {
		return false
	}
	e.Text = Truncate(e.Text, s.maxTextRunes)

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, known := s.conversations[conversationKey]
	if !known && len(s.conversations) >= s.maxConvos {
		s.logger.Warn("history_conversation_dropped",
			"conversation_key", conversationKey,
			"tracked", len(s.conversations),
			"max_conversations", s.maxConvos,
		)
		return false
	}

	cur = append(cur, e)
	if over := len(cur) - s.maxEntries; over > 0 {
		cur = append([]Entry(nil), cur[over:]...)
	}
	s.conversations[conversationKey] = cur
	return true
}

// Get returns a copy of the conversation's entries in arrival order, or nil
// when the conversation is untracked. It never mutates the store.
func (s *Store) Get(conversationKey string) []Entry {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.conversations[conversationKey]
	if !ok || len(cur) == 0 {
		return nil
	}
	return append([]Entry(nil), cur...)
}

// Clear forgets a conversation's entries. The conversation key stays
// admitted so a cleared conversation cannot be displaced by the store cap.
func (s *Store) Clear(conversationKey string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[conversationKey]; ok {
		s.conversations[conversationKey] = nil
	}
}

// Conversations returns the number of tracked conversation keys.
func (s *Store) Conversations() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversations)
}

// RecordReply appends a generated entry for a model reply. Generated entries
// never carry the operator flag and are subject to the same bounds as human
// entries.
func (s *Store) RecordReply(conversationKey, botName, text string, now time.Time) bool {
	return s.Append(conversationKey, NewGeneratedEntry(botName, text, now))
}
