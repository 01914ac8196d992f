// Command flora runs the flower-ordering agent as a terminal chat, an HTTP
// service or an MCP tool server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tailored-agentic-units/flora/kernel"
	"github.com/tailored-agentic-units/flora/observability"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "flora",
	Short: "Flower-ordering assistant",
	Long: `FloraAgent helps customers find a florist, place flower orders and get
flower recommendations.

Examples:
  # Chat in the terminal
  flora chat

  # Serve the HTTP API on :5000
  flora serve --config flora.yaml

  # Expose the tools over MCP stdio
  flora mcp`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
	},
}

var (
	configFile string
	verbose    bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (JSON or YAML)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "log every kernel event to stderr")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(chatCmd, serveCmd, mcpCmd, indexCmd)
}

// newKernel loads configuration and creates the kernel. Verbose mode
// replaces the configured observer with a debug-level stderr logger.
func newKernel(ctx context.Context) (*kernel.Kernel, error) {
	cfg, err := kernel.LoadConfig(viper.GetString("config"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	var opts []kernel.Option
	if viper.GetBool("verbose") {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		opts = append(opts, kernel.WithObserver(observability.NewSlogObserver(logger)))
	}

	k, err := kernel.New(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("create kernel: %w", err)
	}
	return k, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
