// Package memory keeps facts bound to a conversation session, such as the
// delivery address extracted from a user's message. Facts live in a
// hierarchical key-value namespace backed by a pluggable Store and are read
// through a per-run Facts view.
package memory

import "context"

// Entry is a key-value pair in the memory namespace. Keys are /-separated
// hierarchical paths and values are raw bytes.
type Entry struct {
	Key   string
	Value []byte
}

// Store translates between external storage and the key-value namespace.
// Implementations perform I/O on each call without caching.
type Store interface {
	// List returns the keys that start with prefix, sorted. An empty prefix
	// lists every key.
	List(ctx context.Context, prefix string) ([]string, error)
	// Load retrieves entries for the specified keys.
	Load(ctx context.Context, keys ...string) ([]Entry, error)
	// Save persists entries to storage, creating or overwriting as needed.
	Save(ctx context.Context, entries ...Entry) error
	// Delete removes entries from storage. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}
