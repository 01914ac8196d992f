package memory_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tailored-agentic-units/flora/memory"
)

func writeTestFile(t *testing.T, root, key, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
}

func TestFileStore_List(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "sessions/aa/address", "Moda Caddesi 12")
	writeTestFile(t, root, "sessions/bb/address", "Akasya Sokak 123")
	writeTestFile(t, root, ".hidden", "secret")
	writeTestFile(t, root, ".tmpdir/file", "partial")
	writeTestFile(t, root, "sessions/aa/.address-123.partial", "half")

	store := memory.NewFileStore(root)

	tests := []struct {
		name   string
		prefix string
		want   []string
	}{
		{"all keys", "", []string{"sessions/aa/address", "sessions/bb/address"}},
		{"session prefix", "sessions/aa/", []string{"sessions/aa/address"}},
		{"no match", "sessions/cc/", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keys, err := store.List(context.Background(), tt.prefix)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(keys) != len(tt.want) {
				t.Fatalf("List() = %v, want %v", keys, tt.want)
			}
			for i := range keys {
				if keys[i] != tt.want[i] {
					t.Errorf("List()[%d] = %q, want %q", i, keys[i], tt.want[i])
				}
			}
		})
	}
}

func TestFileStore_List_MissingRoot(t *testing.T) {
	store := memory.NewFileStore(filepath.Join(t.TempDir(), "nonexistent"))

	keys, err := store.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("List() returned %d keys, want 0", len(keys))
	}
}

func TestFileStore_SaveLoadOverwrite(t *testing.T) {
	store := memory.NewFileStore(t.TempDir())
	ctx := context.Background()

	if err := store.Save(ctx, memory.Entry{Key: "sessions/aa/address", Value: []byte("v1")}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Save(ctx, memory.Entry{Key: "sessions/aa/address", Value: []byte("v2")}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	entries, err := store.Load(ctx, "sessions/aa/address")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(entries[0].Value) != "v2" {
		t.Errorf("value = %q, want v2", entries[0].Value)
	}
}

func TestFileStore_Load_KeyNotFound(t *testing.T) {
	store := memory.NewFileStore(t.TempDir())

	_, err := store.Load(context.Background(), "sessions/zz/address")
	if !errors.Is(err, memory.ErrFactNotFound) {
		t.Errorf("Load() error = %v, want %v", err, memory.ErrFactNotFound)
	}
}

func TestFileStore_RejectsInvalidKeys(t *testing.T) {
	store := memory.NewFileStore(t.TempDir())
	ctx := context.Background()

	for _, key := range []string{"", "../outside", "../../etc/passwd", "/etc/passwd", "sessions/../../x", "sessions/aa/"} {
		t.Run(key, func(t *testing.T) {
			if err := store.Save(ctx, memory.Entry{Key: key, Value: []byte("x")}); !errors.Is(err, memory.ErrInvalidKey) {
				t.Errorf("Save() error = %v, want %v", err, memory.ErrInvalidKey)
			}
			if _, err := store.Load(ctx, key); !errors.Is(err, memory.ErrInvalidKey) {
				t.Errorf("Load() error = %v, want %v", err, memory.ErrInvalidKey)
			}
		})
	}
}

func TestFileStore_SaveLeavesNoPartialFiles(t *testing.T) {
	root := t.TempDir()
	store := memory.NewFileStore(root)

	if err := store.Save(context.Background(), memory.Entry{Key: "sessions/aa/address", Value: []byte("Moda")}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	names, err := os.ReadDir(filepath.Join(root, "sessions", "aa"))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(names) != 1 || names[0].Name() != "address" {
		t.Errorf("directory holds %v, want only address", names)
	}
}

func TestFileStore_Delete(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "sessions/aa/address", "a")
	writeTestFile(t, root, "sessions/bb/address", "b")

	store := memory.NewFileStore(root)

	if err := store.Delete(context.Background(), "sessions/aa/address", "sessions/missing"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "sessions", "aa")); !os.IsNotExist(err) {
		t.Error("empty session directory should be removed after Delete")
	}
	if _, err := os.Stat(filepath.Join(root, "sessions", "bb", "address")); err != nil {
		t.Error("sibling session should be preserved")
	}
}
