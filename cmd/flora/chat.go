package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/flora/kernel"
	"github.com/tailored-agentic-units/flora/session"
)

var chatSession string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the agent in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		k, err := newKernel(ctx)
		if err != nil {
			return err
		}
		defer k.Close()

		id := chatSession
		if id == "" {
			id = session.NewID()
		}
		return chat(ctx, k, id, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatSession, "session", "", "session id to resume; empty starts a new one")
}

// runner answers one user message within a session.
type runner interface {
	Run(ctx context.Context, sessionID, message string) (*kernel.Result, error)
}

func chat(ctx context.Context, r runner, sessionID string, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "🌸 Welcome to FloraAgent! 🌸")
	fmt.Fprintln(out, "I can help you order flowers or answer questions about our products.")
	fmt.Fprintln(out, "Type 'quit' or 'exit' to end the conversation.")
	fmt.Fprintln(out, strings.Repeat("-", 50))

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(out, "\nYou: ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\n\nGoodbye! 👋")
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out, "\nGoodbye! 👋")
				return nil
			}
			line = strings.TrimSpace(l)
		}

		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit":
			fmt.Fprintln(out, "Goodbye! 👋")
			return nil
		}

		result, err := r.Run(ctx, sessionID, line)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				fmt.Fprintln(out, "\n\nGoodbye! 👋")
				return nil
			}
			fmt.Fprintf(out, "AI: Error: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "AI: %s\n", result.Response)
	}
}
