// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package conversation

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/parleyhq/parley/lib/clock"
)

// ErrNotFound is returned for operations against a thread key with no
// live conversation. Callers are expected to create-before-append, so
// this surfaces contract violations (or eviction races the caller
// chose to ignore).
var ErrNotFound = errors.New("conversation: thread not found")

// Conversation is a point-in-time snapshot of a stored conversation.
// Mutating a snapshot does not affect the store.
type Conversation struct {
	ThreadKey      string
	ChannelID      string
	UserID         string
	CreatedAt      time.Time
	LastActivityAt time.Time
	Messages       []Message
}

// StoreConfig configures a Store.
type StoreConfig struct {
	// MaxConversations bounds the number of live conversations.
	// Creating one past the bound evicts the conversation with the
	// oldest activity. Required, must be positive.
	MaxConversations int

	// Instructions is the system message seeded into every new
	// conversation.
	Instructions string

	// AssistantFilter is applied to assistant message text before it
	// is stored (Parley wires the mrkdwn emphasis conversion here).
	// The filter must be idempotent. Nil means no filtering.
	AssistantFilter func(string) string

	// Clock supplies timestamps. Nil means clock.Real().
	Clock clock.Clock

	// Logger receives eviction and lifecycle events. Nil means
	// slog.Default().
	Logger *slog.Logger
}

// Store is the bounded, in-memory conversation store. All methods are
// safe for concurrent use; mutations of a single conversation are
// serialized relative to each other.
type Store struct {
	mu            sync.Mutex
	conversations map[string]*threadState

	maxConversations int
	instructions     string
	assistantFilter  func(string) string
	clock            clock.Clock
	logger           *slog.Logger
}

// threadState is the live record behind one thread key.
type threadState struct {
	threadKey      string
	channelID      string
	userID         string
	createdAt      time.Time
	lastActivityAt time.Time
	messages       []Message
}

// NewStore creates a Store.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.MaxConversations < 1 {
		return nil, fmt.Errorf("conversation: MaxConversations must be positive, got %d", cfg.MaxConversations)
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Store{
		conversations:    make(map[string]*threadState),
		maxConversations: cfg.MaxConversations,
		instructions:     cfg.Instructions,
		assistantFilter:  cfg.AssistantFilter,
		clock:            cfg.Clock,
		logger:           cfg.Logger,
	}, nil
}

// Create returns the conversation for threadKey, creating it if
// needed. Creation seeds the configured system message. Creating past
// the capacity bound evicts the conversation with the oldest
// lastActivityAt first. Calling Create for an existing thread key
// returns it unchanged; it is not an activity update.
func (store *Store) Create(threadKey, channelID, userID string) Conversation {
	store.mu.Lock()
	defer store.mu.Unlock()

	if state, ok := store.conversations[threadKey]; ok {
		return snapshot(state)
	}

	if len(store.conversations) >= store.maxConversations {
		store.evictOldestLocked()
	}

	now := store.clock.Now()
	state := &threadState{
		threadKey:      threadKey,
		channelID:      channelID,
		userID:         userID,
		createdAt:      now,
		lastActivityAt: now,
		messages: []Message{{
			Role:      RoleSystem,
			Parts:     []Part{{Type: PartText, Text: store.instructions}},
			Timestamp: now,
		}},
	}
	store.conversations[threadKey] = state

	store.logger.Debug("conversation created",
		"thread_key", threadKey,
		"channel_id", channelID,
		"live", len(store.conversations))

	return snapshot(state)
}

// AppendUserMessage appends a user message with the current timestamp.
func (store *Store) AppendUserMessage(threadKey, text string) error {
	return store.append(threadKey, Message{
		Role:  RoleUser,
		Parts: []Part{{Type: PartText, Text: text}},
	})
}

// AppendNamedUserMessage appends a user message attributed to an
// author, for multi-user threads.
func (store *Store) AppendNamedUserMessage(threadKey, name, text string) error {
	return store.append(threadKey, Message{
		Role:  RoleUser,
		Name:  name,
		Parts: []Part{{Type: PartText, Text: text}},
	})
}

// AppendAssistantMessage appends an assistant message, applying the
// configured assistant filter to the text first.
func (store *Store) AppendAssistantMessage(threadKey, text string) error {
	if store.assistantFilter != nil {
		text = store.assistantFilter(text)
	}
	return store.append(threadKey, Message{
		Role:  RoleAssistant,
		Parts: []Part{{Type: PartText, Text: text}},
	})
}

// History returns the full ordered message history. No truncation
// happens at this layer; windowing is the formatter's job.
func (store *Store) History(threadKey string) ([]Message, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	state, ok := store.conversations[threadKey]
	if !ok {
		return nil, fmt.Errorf("conversation: history for %q: %w", threadKey, ErrNotFound)
	}

	history := make([]Message, len(state.messages))
	copy(history, state.messages)
	return history, nil
}

// UpdateSystemMessage replaces the system message content in place,
// without reordering. If the conversation somehow has no system
// message, one is inserted at the front.
func (store *Store) UpdateSystemMessage(threadKey, instructions string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	state, ok := store.conversations[threadKey]
	if !ok {
		return fmt.Errorf("conversation: update system message for %q: %w", threadKey, ErrNotFound)
	}

	for i := range state.messages {
		if state.messages[i].Role == RoleSystem {
			state.messages[i].Parts = []Part{{Type: PartText, Text: instructions}}
			state.lastActivityAt = store.clock.Now()
			return nil
		}
	}

	state.messages = append([]Message{{
		Role:      RoleSystem,
		Parts:     []Part{{Type: PartText, Text: instructions}},
		Timestamp: store.clock.Now(),
	}}, state.messages...)
	state.lastActivityAt = store.clock.Now()
	return nil
}

// Len returns the number of live conversations.
func (store *Store) Len() int {
	store.mu.Lock()
	defer store.mu.Unlock()
	return len(store.conversations)
}

// EvictIdle removes every conversation whose last activity is before
// cutoff and returns the evicted thread keys. Used by [Sweeper].
func (store *Store) EvictIdle(cutoff time.Time) []string {
	store.mu.Lock()
	defer store.mu.Unlock()

	var evicted []string
	for threadKey, state := range store.conversations {
		if state.lastActivityAt.Before(cutoff) {
			delete(store.conversations, threadKey)
			evicted = append(evicted, threadKey)
		}
	}

	if len(evicted) > 0 {
		store.logger.Info("evicted idle conversations",
			"count", len(evicted),
			"live", len(store.conversations))
	}
	return evicted
}

// append adds a message to a conversation. The timestamp is clamped to
// the previous message's timestamp so timestamps within a conversation
// never decrease, even if the wall clock steps backwards.
func (store *Store) append(threadKey string, message Message) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	state, ok := store.conversations[threadKey]
	if !ok {
		return fmt.Errorf("conversation: append to %q: %w", threadKey, ErrNotFound)
	}

	now := store.clock.Now()
	if last := len(state.messages) - 1; last >= 0 && now.Before(state.messages[last].Timestamp) {
		now = state.messages[last].Timestamp
	}

	message.Timestamp = now
	state.messages = append(state.messages, message)
	state.lastActivityAt = store.clock.Now()
	return nil
}

// evictOldestLocked removes the single conversation with the oldest
// lastActivityAt. Ties break on the lexicographically smallest thread
// key so eviction is deterministic. Must be called with store.mu held.
func (store *Store) evictOldestLocked() {
	var victim *threadState
	for _, state := range store.conversations {
		if victim == nil {
			victim = state
			continue
		}
		if state.lastActivityAt.Before(victim.lastActivityAt) ||
			(state.lastActivityAt.Equal(victim.lastActivityAt) && state.threadKey < victim.threadKey) {
			victim = state
		}
	}
	if victim == nil {
		return
	}

	delete(store.conversations, victim.threadKey)
	store.logger.Info("evicted conversation at capacity",
		"thread_key", victim.threadKey,
		"last_activity", victim.lastActivityAt,
		"messages", len(victim.messages))
}

func snapshot(state *threadState) Conversation {
	messages := make([]Message, len(state.messages))
	copy(messages, state.messages)
	return Conversation{
		ThreadKey:      state.threadKey,
		ChannelID:      state.channelID,
		UserID:         state.userID,
		CreatedAt:      state.createdAt,
		LastActivityAt: state.lastActivityAt,
		Messages:       messages,
	}
}
