package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the converter over the Model Context Protocol",
	Long: `Serve the converter over the Model Context Protocol on stdio.

stdout carries the protocol, so all logging goes to stderr. Point an
MCP client at this command to drive conversions interactively.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// stdout is the protocol channel
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		slog.SetDefault(logger)

		services, _, closeStore, err := buildServices(logger)
		if err != nil {
			return err
		}
		defer closeStore()

		srv := mcpserver.New(services.Sessions, services.Pipeline, services.Prompts, logger)
		return srv.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
