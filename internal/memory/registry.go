package memory

import (
	"fmt"
	"sync"
)

// Conversation serializes access to one conversation's store. Store
// itself is not safe for concurrent use, so every caller goes through
// Do and holds the conversation for the whole exchange.
type Conversation struct {
	mu    sync.Mutex
	store *Store
}

// Do runs fn while holding the conversation lock. A chat turn reads
// context, runs the agents, and records the exchange inside one Do so
// interleaved requests never observe a half-updated buffer.
func (c *Conversation) Do(fn func(store *Store) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn(c.store)
}

// Registry hands out per-conversation stores, creating them on first
// use.
type Registry struct {
	mu            sync.Mutex
	conversations map[string]*Conversation
	newStore      func() (*Store, error)
}

func NewRegistry(newStore func() (*Store, error)) (*Registry, error) {
	if newStore == nil {
		return nil, fmt.Errorf("store factory is required")
	}
	return &Registry{
		conversations: map[string]*Conversation{},
		newStore:      newStore,
	}, nil
}

func (r *Registry) Get(conversationID string) (*Conversation, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("conversation id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if conversation, ok := r.conversations[conversationID]; ok {
		return conversation, nil
	}
	store, err := r.newStore()
	if err != nil {
		return nil, fmt.Errorf("create conversation store: %w", err)
	}
	conversation := &Conversation{store: store}
	r.conversations[conversationID] = conversation
	return conversation, nil
}

// Lookup returns the conversation if it already exists.
func (r *Registry) Lookup(conversationID string) (*Conversation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conversation, ok := r.conversations[conversationID]
	return conversation, ok
}
