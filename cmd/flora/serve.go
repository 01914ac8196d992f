package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/flora/server"
)

var serveFlags = server.DefaultConfig()

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		k, err := newKernel(ctx)
		if err != nil {
			return err
		}
		defer k.Close()

		cfg := server.DefaultConfig()
		cfg.Merge(&serveFlags)
		return server.New(k, cfg, server.WithObserver(k.Observer())).ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.Addr, "addr", serveFlags.Addr, "listen address")
	serveCmd.Flags().Float64Var(&serveFlags.RequestsPerSecond, "rps", 0, "requests per second; 0 disables limiting")
	serveCmd.Flags().IntVar(&serveFlags.Burst, "burst", 0, "rate limiter burst size")
}
