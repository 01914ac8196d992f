package session_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tailored-agentic-units/flora/session"
)

func TestDefaultConfig(t *testing.T) {
	cfg := session.DefaultConfig()
	if cfg.Backend != session.BackendMemory {
		t.Errorf("backend = %q, want memory", cfg.Backend)
	}
}

func TestConfig_Merge(t *testing.T) {
	cfg := session.DefaultConfig()
	cfg.Merge(&session.Config{Backend: session.BackendRedis, URL: "localhost:6379", TTL: time.Hour})

	if cfg.Backend != session.BackendRedis || cfg.URL != "localhost:6379" || cfg.TTL != time.Hour {
		t.Errorf("merged config = %+v", cfg)
	}

	cfg.Merge(&session.Config{})
	if cfg.Backend != session.BackendRedis {
		t.Error("empty source should not reset backend")
	}
}

func TestNew_FromConfig(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		cfg     session.Config
		wantErr error
	}{
		{name: "memory", cfg: session.Config{Backend: session.BackendMemory}},
		{name: "empty backend", cfg: session.Config{}},
		{name: "file", cfg: session.Config{Backend: session.BackendFile, Path: dir}},
		{name: "file without path", cfg: session.Config{Backend: session.BackendFile}, wantErr: session.ErrStoreFailed},
		{name: "sqlite", cfg: session.Config{Backend: session.BackendSQLite, Path: filepath.Join(dir, "s.db")}},
		{name: "redis client is lazy", cfg: session.Config{Backend: session.BackendRedis, URL: "localhost:0"}},
		{name: "unknown", cfg: session.Config{Backend: "etcd"}, wantErr: session.ErrUnknownBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := session.New(&tt.cfg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("New() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("New() failed: %v", err)
			}
			if s == nil {
				t.Fatal("New() returned nil store")
			}
			if c, ok := s.(interface{ Close() error }); ok {
				c.Close()
			}
		})
	}
}
