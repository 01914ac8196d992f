package memory

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Fact names recorded by the tool catalogue.
const (
	FactAddress = "address"
)

// Fact is a named value remembered for a session.
type Fact struct {
	Name  string
	Value string
}

// SessionPrefix returns the namespace prefix holding facts for sessionID.
// The id is hex-encoded so caller-supplied ids map to safe path segments.
func SessionPrefix(sessionID string) string {
	return "sessions/" + hex.EncodeToString([]byte(sessionID)) + "/"
}

// Facts is the per-run view of one session's facts. It loads the session's
// entries up front, serves reads from memory, and writes back only what
// changed on Flush. All methods are safe for concurrent use.
type Facts struct {
	store  Store
	prefix string
	values map[string]string
	dirty  map[string]bool
	mu     sync.RWMutex
}

// LoadFacts reads every fact stored for sessionID.
func LoadFacts(ctx context.Context, store Store, sessionID string) (*Facts, error) {
	f := &Facts{
		store:  store,
		prefix: SessionPrefix(sessionID),
		values: make(map[string]string),
		dirty:  make(map[string]bool),
	}

	keys, err := store.List(ctx, f.prefix)
	if err != nil {
		return nil, fmt.Errorf("list facts: %w", err)
	}
	if len(keys) == 0 {
		return f, nil
	}

	entries, err := store.Load(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("load facts: %w", err)
	}
	for _, e := range entries {
		f.values[strings.TrimPrefix(e.Key, f.prefix)] = string(e.Value)
	}
	return f, nil
}

// Get returns the named fact.
func (f *Facts) Get(name string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.values[name]
	return v, ok
}

// Set records a fact; it is persisted on the next Flush.
func (f *Facts) Set(name, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[name] = value
	f.dirty[name] = true
}

// All returns every fact sorted by name.
func (f *Facts) All() []Fact {
	f.mu.RLock()
	defer f.mu.RUnlock()

	facts := make([]Fact, 0, len(f.values))
	for name, value := range f.values {
		facts = append(facts, Fact{Name: name, Value: value})
	}
	sort.Slice(facts, func(i, j int) bool { return facts[i].Name < facts[j].Name })
	return facts
}

// Flush persists facts changed since the last Flush.
func (f *Facts) Flush(ctx context.Context) error {
	f.mu.RLock()
	toSave := make([]Entry, 0, len(f.dirty))
	for name := range f.dirty {
		toSave = append(toSave, Entry{Key: f.prefix + name, Value: []byte(f.values[name])})
	}
	f.mu.RUnlock()

	if len(toSave) == 0 {
		return nil
	}
	if err := f.store.Save(ctx, toSave...); err != nil {
		return fmt.Errorf("flush facts: %w", err)
	}

	f.mu.Lock()
	f.dirty = make(map[string]bool)
	f.mu.Unlock()
	return nil
}

type factsKey struct{}

// WithFacts returns a context carrying f, so tool handlers can bind facts
// to the session being served.
func WithFacts(ctx context.Context, f *Facts) context.Context {
	return context.WithValue(ctx, factsKey{}, f)
}

// FactsFrom returns the Facts carried by ctx, if any.
func FactsFrom(ctx context.Context) (*Facts, bool) {
	f, ok := ctx.Value(factsKey{}).(*Facts)
	return f, ok && f != nil
}
