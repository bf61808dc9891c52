package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/courtside/internal/rag"
)

var askShowContext bool

var askCmd = &cobra.Command{
	Use:   "ask <question...>",
	Short: "Answer one basketball question",
	Long: `Answer one basketball question and print the answer.

Examples:
  courtside ask "How many points is a three-pointer worth?"

  # Include the retrieved knowledge items
  courtside ask --show-context What does a point guard do?`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askShowContext, "show-context", false, "print the retrieved knowledge items")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return errors.New("question is empty")
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	printAnswer(cmd.OutOrStdout(), a.pipeline.AnswerDetailed(ctx, question), askShowContext)
	return nil
}

var (
	answerLabel  = color.New(color.FgHiYellow, color.Bold).SprintFunc()
	contextLabel = color.New(color.FgCyan).SprintFunc()
	warnLabel    = color.New(color.FgYellow).SprintFunc()
)

func printAnswer(w io.Writer, answer rag.Answer, showContext bool) {
	text := answer.Text
	if text == "" {
		text = rag.EmptyAnswerMessage
	}
	fmt.Fprintf(w, "%s %s\n", answerLabel("Answer:"), text)

	if answer.Degraded() {
		fmt.Fprintln(w, warnLabel("(knowledge base unavailable, answered without context)"))
	}
	if !showContext {
		return
	}
	fmt.Fprintln(w)
	for i, item := range answer.Context {
		fmt.Fprintf(w, "%s %s (%.3f)\n", contextLabel(fmt.Sprintf("[%d]", i+1)), item.Title, item.Score)
		fmt.Fprintf(w, "    %s\n", item.Content)
	}
}
