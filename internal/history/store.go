// Package history keeps the most recent normalized results in memory.
package history

import (
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"vulnagent/internal/domain/remediation"
	"vulnagent/internal/handoff"
	"vulnagent/internal/presentation"
)

const defaultStoreSize = 64

// Entry is one normalized response.
type Entry struct {
	// Key is the conversation id, or a local sequence key for responses that
	// carried none.
	Key            string
	ConversationID string
	Prompt         string
	SwarmMode      bool
	Decision       string
	State          handoff.State
	Overridden     bool
	Envelope       remediation.ResultEnvelope
	View           presentation.View
	RecordedAt     time.Time
}

// Store is a bounded LRU of entries keyed by conversation id. A later response
// for the same conversation replaces the earlier one.
type Store struct {
	cache *lru.Cache[string, Entry]
	seq   atomic.Uint64
	now   func() time.Time
}

// NewStore creates a store holding at most size entries.
func NewStore(size int) *Store {
	if size <= 0 {
		size = defaultStoreSize
	}
	cache, err := lru.New[string, Entry](size)
	if err != nil {
		// lru.New only errors on non-positive size which we guard above.
		panic(err)
	}
	return &Store{cache: cache, now: time.Now}
}

// Record stores entry and returns it with Key and RecordedAt filled in.
func (s *Store) Record(entry Entry) Entry {
	if entry.ConversationID != "" {
		entry.Key = entry.ConversationID
	} else {
		entry.Key = fmt.Sprintf("local-%d", s.seq.Add(1))
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = s.now()
	}
	s.cache.Add(entry.Key, entry)
	return entry
}

// Get returns the entry stored under key.
func (s *Store) Get(key string) (Entry, bool) {
	return s.cache.Get(key)
}

// Recent returns up to limit entries, newest first. limit <= 0 returns all.
func (s *Store) Recent(limit int) []Entry {
	keys := s.cache.Keys()
	if limit <= 0 || limit > len(keys) {
		limit = len(keys)
	}
	entries := make([]Entry, 0, limit)
	for i := len(keys) - 1; i >= 0 && len(entries) < limit; i-- {
		if entry, ok := s.cache.Peek(keys[i]); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	return s.cache.Len()
}
