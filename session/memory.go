package session

import (
	"context"
	"sync"

	"github.com/tailored-agentic-units/flora/core/protocol"
)

type memoryStore struct {
	sessions map[string][]protocol.Message
	mu       sync.RWMutex
}

// NewMemoryStore creates a Store backed by an in-process map. Transcripts
// live as long as the process.
func NewMemoryStore() Store {
	return &memoryStore{sessions: make(map[string][]protocol.Message)}
}

func (s *memoryStore) Messages(_ context.Context, id string) ([]protocol.Message, error) {
	if id == "" {
		return nil, ErrEmptyID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.sessions[id]), nil
}

func (s *memoryStore) Append(_ context.Context, id string, msgs ...protocol.Message) error {
	if id == "" {
		return ErrEmptyID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = append(s.sessions[id], cloneAll(msgs)...)
	return nil
}
