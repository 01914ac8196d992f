package main

import (
	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/flora/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose the agent tools over MCP stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		k, err := newKernel(cmd.Context())
		if err != nil {
			return err
		}
		defer k.Close()

		s, err := mcpserver.New(k.Tools(), version)
		if err != nil {
			return err
		}
		return mcpserver.ServeStdio(s)
	},
}
