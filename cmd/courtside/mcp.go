package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/courtside/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the MCP tools over stdio",
	Long: `Serve the ask_basketball and list_basketball_knowledge tools over the
Model Context Protocol on stdin/stdout. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer a.close(context.Background())

		cfg := mcp.DefaultConfig()
		cfg.Version = version
		cfg.Logger = a.logger.Underlying()
		srv, err := mcp.NewServer(cfg, a.pipeline)
		if err != nil {
			return err
		}
		return srv.Run(ctx)
	},
}
