package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/flora/kernel"
)

type echoRunner struct {
	sessions []string
	err      error
}

func (r *echoRunner) Run(_ context.Context, sessionID, message string) (*kernel.Result, error) {
	r.sessions = append(r.sessions, sessionID)
	if r.err != nil {
		return nil, r.err
	}
	return &kernel.Result{Response: "echo: " + message}, nil
}

func TestChat(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		err      error
		contains []string
		calls    int
	}{
		{
			name:     "quit ends the conversation",
			input:    "hello\n\nquit\nignored\n",
			contains: []string{"🌸 Welcome to FloraAgent! 🌸", "AI: echo: hello", "Goodbye! 👋"},
			calls:    1,
		},
		{
			name:     "exit is case insensitive",
			input:    "EXIT\n",
			contains: []string{"Goodbye! 👋"},
		},
		{
			name:     "end of input",
			input:    "one\ntwo\n",
			contains: []string{"AI: echo: one", "AI: echo: two", "Goodbye! 👋"},
			calls:    2,
		},
		{
			name:     "errors keep the loop alive",
			input:    "hi\nquit\n",
			err:      errors.New("boom"),
			contains: []string{"AI: Error: boom", "Goodbye! 👋"},
			calls:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &echoRunner{err: tt.err}
			var out bytes.Buffer

			err := chat(context.Background(), r, "s-1", strings.NewReader(tt.input), &out)
			require.NoError(t, err)

			for _, want := range tt.contains {
				assert.Contains(t, out.String(), want)
			}
			assert.Len(t, r.sessions, tt.calls)
			for _, id := range r.sessions {
				assert.Equal(t, "s-1", id)
			}
		})
	}
}

func TestChatCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := chat(ctx, &echoRunner{}, "s-1", strings.NewReader(""), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Goodbye! 👋")
}
