// Package conversation holds the ordered chat transcript and keeps it
// persisted under a single storage key.
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/varsilias/webhook-chat/internal/storage"
	"github.com/varsilias/webhook-chat/pkg/types"
	"log/slog"
	"sync"
)

const DefaultKey = "healthapp_chat_history"

type Store struct {
	mu          sync.Mutex
	log         *slog.Logger
	slot        storage.Slot
	key         string
	maxMessages int
	msgs        []types.Message
}

type Option func(*Store)

// WithMaxMessages caps the transcript; the oldest entries are dropped
// first. Zero leaves it unbounded.
func WithMaxMessages(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxMessages = n
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// Open loads the transcript stored under key. Missing or unreadable data
// yields an empty conversation; the failure is logged, never returned.
func Open(ctx context.Context, slot storage.Slot, key string, opts ...Option) *Store {
	if key == "" {
		key = DefaultKey
	}
	s := &Store{log: slog.Default(), slot: slot, key: key}
	for _, o := range opts {
		o(s)
	}
	s.msgs = s.load(ctx)
	s.trimLocked()
	return s
}

func (s *Store) load(ctx context.Context) []types.Message {
	b, err := s.slot.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn("conversation load failed; starting empty", "key", s.key, "err", err)
		}
		return nil
	}
	var msgs []types.Message
	if err := json.Unmarshal(b, &msgs); err != nil {
		s.log.Warn("conversation slot is corrupt; starting empty", "key", s.key, "err", err)
		return nil
	}
	return msgs
}

// Append validates and stores m, then rewrites the whole slot. An
// unknown sender or text outside 1..1000 characters (after trimming) is
// dropped and false is returned.
func (s *Store) Append(m types.Message) bool {
	if !m.Sender.Valid() {
		s.log.Debug("conversation append rejected", "sender", m.Sender, "err", "unknown sender")
		return false
	}
	text, err := types.ValidateText(m.Text)
	if err != nil {
		s.log.Debug("conversation append rejected", "sender", m.Sender, "err", err)
		return false
	}
	m.Text = text
	m.Timestamp = types.NormalizeTime(m.Timestamp)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, m)
	s.trimLocked()
	s.persistLocked()
	return true
}

// All returns a snapshot in insertion order.
func (s *Store) All() []types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Message, len(s.msgs))
	copy(out, s.msgs)
	return out
}

// Recent returns the last n messages, oldest first.
func (s *Store) Recent(n int) []types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 {
		return []types.Message{}
	}
	if n > len(s.msgs) {
		n = len(s.msgs)
	}
	out := make([]types.Message, n)
	copy(out, s.msgs[len(s.msgs)-n:])
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

// Clear empties the transcript and persists the empty state.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = nil
	s.persistLocked()
}

// Purge empties the transcript and removes its key from the slot
// altogether.
func (s *Store) Purge(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = nil
	if err := s.slot.Delete(ctx, s.key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("purge %s: %w", s.key, err)
	}
	return nil
}

func (s *Store) trimLocked() {
	if s.maxMessages <= 0 || len(s.msgs) <= s.maxMessages {
		return
	}
	s.msgs = append([]types.Message(nil), s.msgs[len(s.msgs)-s.maxMessages:]...)
}

func (s *Store) persistLocked() {
	msgs := s.msgs
	if msgs == nil {
		msgs = []types.Message{}
	}
	b, err := json.Marshal(msgs)
	if err != nil {
		s.log.Error("conversation encode failed", "key", s.key, "err", err)
		return
	}
	if err := s.slot.Set(context.Background(), s.key, b); err != nil {
		s.log.Error("conversation save failed", "key", s.key, "err", err)
	}
}
