package session

import (
	"bufio"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tailored-agentic-units/flora/core/protocol"
)

type fileStore struct {
	root string
	mu   sync.Mutex
}

// NewFileStore creates a Store that keeps one JSON Lines file per session
// under root. Session ids are hex-encoded into file names so arbitrary
// caller-supplied ids cannot escape root.
func NewFileStore(root string) Store {
	return &fileStore{root: root}
}

func (s *fileStore) path(id string) string {
	return filepath.Join(s.root, hex.EncodeToString([]byte(id))+".jsonl")
}

func (s *fileStore) Messages(_ context.Context, id string) ([]protocol.Message, error) {
	if id == "" {
		return nil, ErrEmptyID
	}

	f, err := os.Open(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return []protocol.Message{}, nil
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrStoreFailed, id, err)
	}
	defer f.Close()

	msgs := []protocol.Message{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var msg protocol.Message
		if err := json.Unmarshal(line, &msg); err != nil {
			return nil, fmt.Errorf("%w: %s: decode turn %d: %v", ErrStoreFailed, id, len(msgs), err)
		}
		msgs = append(msgs, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStoreFailed, id, err)
	}

	return msgs, nil
}

func (s *fileStore) Append(_ context.Context, id string, msgs ...protocol.Message) error {
	if id == "" {
		return ErrEmptyID
	}
	if len(msgs) == 0 {
		return nil
	}

	var buf []byte
	for _, msg := range msgs {
		line, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("%w: %s: encode turn: %v", ErrStoreFailed, id, err)
		}
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrStoreFailed, id, err)
	}

	f, err := os.OpenFile(s.path(id), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrStoreFailed, id, err)
	}

	// A single write keeps the batch contiguous in the file.
	if _, err := f.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("%w: %s: %v", ErrStoreFailed, id, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("%w: %s: %v", ErrStoreFailed, id, err)
	}
	return f.Close()
}
