// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides conversation persistence for sirsi.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/jeranaias/sirsi/internal/model"
)

// DefaultKey is the KV key the conversation is persisted under.
const DefaultKey = "chatHistory"

// Listener receives the conversation after every change.
type Listener func(model.Conversation)

// =============================================================================
// CONVERSATION STORE
// =============================================================================

// ConversationStore owns the current conversation and its persisted copy.
//
// Update is the only way to change the conversation. Every change is saved
// and then delivered to subscribers, in order. Listeners run outside the
// state lock but must not call Update themselves.
type ConversationStore struct {
	kv     KV
	key    string
	logger *zap.Logger

	// writeMu serializes Update/Clear so saves and notifications stay ordered.
	writeMu sync.Mutex

	mu        sync.RWMutex
	current   model.Conversation
	listeners map[int]Listener
	nextID    int
}

// NewConversationStore creates a store over kv. The current conversation
// starts as the greeting until Load is called.
func NewConversationStore(kv KV, key string, logger *zap.Logger) *ConversationStore {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversationStore{
		kv:        kv,
		key:       key,
		logger:    logger.With(zap.String("component", "storage")),
		current:   model.NewConversation(),
		listeners: make(map[int]Listener),
	}
}

// Key returns the KV key used for persistence.
func (s *ConversationStore) Key() string {
	return s.key
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads the persisted conversation and makes it current.
// A missing, empty or corrupt entry yields the greeting; the failure is
// logged and never returned.
func (s *ConversationStore) Load(ctx context.Context) model.Conversation {
	conv, err := s.read(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Debug("no persisted conversation")
		} else {
			s.logger.Warn("failed to load conversation, starting fresh", zap.Error(err))
		}
		conv = model.NewConversation()
	}

	s.mu.Lock()
	s.current = conv
	s.mu.Unlock()

	s.logger.Debug("conversation loaded", zap.Int("messages", len(conv)))
	return conv
}

// read fetches and decodes the persisted entry.
func (s *ConversationStore) read(ctx context.Context) (model.Conversation, error) {
	data, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return nil, &PersistenceError{Op: "load", Key: s.key, Err: err}
	}
	conv, err := Decode(data)
	if err != nil {
		return nil, &PersistenceError{Op: "load", Key: s.key, Err: err}
	}
	return conv, nil
}

// Save persists conv unless it is exactly the untouched greeting.
// Callers on the UI path ignore the error; Update logs it.
func (s *ConversationStore) Save(ctx context.Context, conv model.Conversation) error {
	if conv.IsDefault() {
		return nil
	}
	data, err := json.Marshal(conv)
	if err != nil {
		return &PersistenceError{Op: "save", Key: s.key, Err: err}
	}
	if err := s.kv.Set(ctx, s.key, data); err != nil {
		return &PersistenceError{Op: "save", Key: s.key, Err: err}
	}
	return nil
}

// Decode parses a persisted JSON array into a conversation.
// An empty array or null decodes to the greeting; anything that breaks the
// conversation invariants is reported as ErrCorrupt.
func Decode(data []byte) (model.Conversation, error) {
	var conv model.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, errors.Join(ErrCorrupt, err)
	}
	if len(conv) == 0 {
		return model.NewConversation(), nil
	}
	if err := conv.Validate(); err != nil {
		return nil, errors.Join(ErrCorrupt, err)
	}
	return conv, nil
}

// =============================================================================
// STATE
// =============================================================================

// Current returns the current conversation. The value is never mutated
// afterwards, so callers may keep it.
func (s *ConversationStore) Current() model.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update applies fn to the current conversation, persists the result and
// notifies subscribers. Returns the new conversation. When fn returns an
// equal conversation nothing is saved or delivered.
func (s *ConversationStore) Update(ctx context.Context, fn func(model.Conversation) model.Conversation) model.Conversation {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	prev := s.current
	next := fn(prev)
	if next.Equal(prev) {
		s.mu.Unlock()
		return prev
	}
	s.current = next
	s.mu.Unlock()

	if err := s.Save(ctx, next); err != nil {
		s.logger.Warn("failed to save conversation", zap.Error(err))
	}
	s.notify(next)
	return next
}

// Clear deletes the persisted entry and resets to the greeting.
func (s *ConversationStore) Clear(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := s.kv.Delete(ctx, s.key)
	if err != nil {
		err = &PersistenceError{Op: "clear", Key: s.key, Err: err}
	}

	conv := model.NewConversation()
	s.mu.Lock()
	s.current = conv
	s.mu.Unlock()

	s.logger.Info("conversation cleared")
	s.notify(conv)
	return err
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (s *ConversationStore) Subscribe(fn Listener) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// notify delivers conv to every listener. Caller holds writeMu.
func (s *ConversationStore) notify(conv model.Conversation) {
	s.mu.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(conv)
	}
}
