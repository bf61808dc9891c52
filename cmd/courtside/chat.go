package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/courtside/internal/chat"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive basketball Q&A in the terminal",
	Long: `Start an interactive session. Type a question and press enter.
Type quit, exit or q (or press Esc or Ctrl+C) to leave.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer a.close(context.Background())

		return chat.Run(ctx, a.pipeline)
	},
}
