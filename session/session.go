// Package session persists per-session conversation transcripts. A
// transcript is append-only: Messages returns exactly the turns appended
// for an id, in append order.
package session

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/tailored-agentic-units/flora/core/protocol"
)

// Sentinel errors for session stores.
var (
	ErrEmptyID        = errors.New("session id is empty")
	ErrUnknownBackend = errors.New("unknown session backend")
	ErrStoreFailed    = errors.New("session store failed")
)

// Store holds ordered transcripts keyed by session id. Implementations
// must be safe for concurrent use across sessions and must return copies
// that callers may modify freely.
type Store interface {
	// Messages returns the transcript for id. An unseen id yields an empty
	// slice and no error.
	Messages(ctx context.Context, id string) ([]protocol.Message, error)
	// Append adds msgs to the end of the transcript for id, creating the
	// session on first use. The batch is appended atomically.
	Append(ctx context.Context, id string, msgs ...protocol.Message) error
}

// NewID returns a fresh UUIDv7 session identifier.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func cloneAll(msgs []protocol.Message) []protocol.Message {
	copied := make([]protocol.Message, len(msgs))
	for i, msg := range msgs {
		copied[i] = msg.Clone()
	}
	return copied
}
