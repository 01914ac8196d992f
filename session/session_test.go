package session_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/tailored-agentic-units/flora/core/protocol"
	"github.com/tailored-agentic-units/flora/session"
)

type storeFactory func(t *testing.T) session.Store

func localStores() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T) session.Store {
			return session.NewMemoryStore()
		},
		"file": func(t *testing.T) session.Store {
			return session.NewFileStore(t.TempDir())
		},
		"sqlite": func(t *testing.T) session.Store {
			s, err := session.OpenSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
			if err != nil {
				t.Fatalf("OpenSQLiteStore failed: %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func sampleTurns() []protocol.Message {
	call := protocol.ToolCall{ID: "call_1", Name: "find_best_florist", Arguments: `{"address":"Kadıköy","flower_type":"roses","quantity":5}`}
	return []protocol.Message{
		protocol.NewMessage(protocol.RoleUser, "5 roses to Kadıköy"),
		{Role: protocol.RoleAssistant, ToolCalls: []protocol.ToolCall{call}},
		protocol.NewToolResult(call, `{"florist_id":"FLR_123","status":"success"}`),
		protocol.NewMessage(protocol.RoleAssistant, "Kadıköy Flowers can deliver."),
	}
}

// runStoreSuite exercises the Store contract against any backend.
func runStoreSuite(t *testing.T, newStore storeFactory) {
	ctx := context.Background()

	t.Run("unseen id is empty", func(t *testing.T) {
		s := newStore(t)
		msgs, err := s.Messages(ctx, "never-seen")
		if err != nil {
			t.Fatalf("Messages failed: %v", err)
		}
		if len(msgs) != 0 {
			t.Errorf("got %d messages, want 0", len(msgs))
		}
	})

	t.Run("empty id rejected", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.Messages(ctx, ""); !errors.Is(err, session.ErrEmptyID) {
			t.Errorf("Messages(\"\") error = %v, want ErrEmptyID", err)
		}
		if err := s.Append(ctx, "", protocol.NewMessage(protocol.RoleUser, "x")); !errors.Is(err, session.ErrEmptyID) {
			t.Errorf("Append(\"\") error = %v, want ErrEmptyID", err)
		}
	})

	t.Run("append preserves order and fields", func(t *testing.T) {
		s := newStore(t)
		turns := sampleTurns()

		if err := s.Append(ctx, "sess-1", turns[:2]...); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		if err := s.Append(ctx, "sess-1", turns[2:]...); err != nil {
			t.Fatalf("Append failed: %v", err)
		}

		got, err := s.Messages(ctx, "sess-1")
		if err != nil {
			t.Fatalf("Messages failed: %v", err)
		}
		if len(got) != len(turns) {
			t.Fatalf("got %d turns, want %d", len(got), len(turns))
		}
		for i := range turns {
			if got[i].Role != turns[i].Role || got[i].Content != turns[i].Content {
				t.Errorf("turn %d = %+v, want %+v", i, got[i], turns[i])
			}
			if got[i].Kind() != turns[i].Kind() {
				t.Errorf("turn %d kind = %s, want %s", i, got[i].Kind(), turns[i].Kind())
			}
		}
		if got[1].ToolCalls[0] != turns[1].ToolCalls[0] {
			t.Errorf("tool call = %+v, want %+v", got[1].ToolCalls[0], turns[1].ToolCalls[0])
		}
		if got[2].ToolCallID != "call_1" || got[2].Name != "find_best_florist" {
			t.Errorf("tool result correlation lost: %+v", got[2])
		}
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		s := newStore(t)
		if err := s.Append(ctx, "a", protocol.NewMessage(protocol.RoleUser, "for a")); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		msgs, err := s.Messages(ctx, "b")
		if err != nil {
			t.Fatalf("Messages failed: %v", err)
		}
		if len(msgs) != 0 {
			t.Errorf("session b sees %d turns of session a", len(msgs))
		}
	})

	t.Run("returned slices are copies", func(t *testing.T) {
		s := newStore(t)
		if err := s.Append(ctx, "c", sampleTurns()...); err != nil {
			t.Fatalf("Append failed: %v", err)
		}

		msgs, _ := s.Messages(ctx, "c")
		msgs[0].Content = "tampered"
		msgs[1].ToolCalls[0].Name = "tampered"

		again, _ := s.Messages(ctx, "c")
		if again[0].Content == "tampered" || again[1].ToolCalls[0].Name == "tampered" {
			t.Error("stored turns were mutated through a returned slice")
		}
	})

	t.Run("concurrent sessions", func(t *testing.T) {
		s := newStore(t)
		var wg sync.WaitGroup
		for i := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				id := fmt.Sprintf("concurrent-%d", i)
				for j := range 10 {
					if err := s.Append(ctx, id, protocol.NewMessage(protocol.RoleUser, fmt.Sprint(j))); err != nil {
						t.Errorf("Append failed: %v", err)
					}
				}
			}()
		}
		wg.Wait()

		for i := range 8 {
			msgs, err := s.Messages(ctx, fmt.Sprintf("concurrent-%d", i))
			if err != nil {
				t.Fatalf("Messages failed: %v", err)
			}
			if len(msgs) != 10 {
				t.Fatalf("session %d has %d turns, want 10", i, len(msgs))
			}
			for j, msg := range msgs {
				if msg.Content != fmt.Sprint(j) {
					t.Errorf("session %d turn %d = %q, want %q", i, j, msg.Content, fmt.Sprint(j))
				}
			}
		}
	})
}

func TestStores(t *testing.T) {
	for name, factory := range localStores() {
		t.Run(name, func(t *testing.T) {
			runStoreSuite(t, factory)
		})
	}
}

func TestFileStore_HostileID(t *testing.T) {
	root := t.TempDir()
	s := session.NewFileStore(root)

	id := "../../etc/passwd"
	if err := s.Append(context.Background(), id, protocol.NewMessage(protocol.RoleUser, "x")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	matches, _ := filepath.Glob(filepath.Join(root, "*.jsonl"))
	if len(matches) != 1 {
		t.Errorf("expected one transcript file inside root, got %v", matches)
	}
}

func TestNewID(t *testing.T) {
	a, b := session.NewID(), session.NewID()
	if a == "" || a == b {
		t.Errorf("NewID() returned %q and %q", a, b)
	}
}
