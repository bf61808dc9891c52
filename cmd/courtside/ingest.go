package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/courtside/internal/operations"
	"github.com/fyrsmithlabs/courtside/internal/rag"
)

var (
	ingestRefresh bool
	ingestClear   bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Embed the knowledge corpus into the vector index",
	Long: `Embed the knowledge corpus into the vector index.

Without flags every item is upserted with a fresh id, so running ingest twice
stores the corpus twice. --refresh deletes the existing corpus records first.
--clear only deletes them.

Examples:
  # First-time setup
  courtside ingest

  # Replace the indexed corpus
  courtside ingest --refresh`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestRefresh, "refresh", false, "delete existing corpus records before upserting")
	ingestCmd.Flags().BoolVar(&ingestClear, "clear", false, "delete corpus records without upserting")
	ingestCmd.MarkFlagsMutuallyExclusive("refresh", "clear")
}

func runIngest(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	kind, run := ingestRun(a.pipeline)
	id, result, err := a.operations.Track(ctx, kind, run)
	if err != nil {
		return fmt.Errorf("%s failed (operation %s): %w", kind, id, err)
	}

	out := cmd.OutOrStdout()
	label := color.New(color.FgGreen, color.Bold).SprintFunc()
	switch r := result.(type) {
	case rag.IngestReport:
		fmt.Fprintf(out, "%s %s into %q\n", label("✓"), kind, a.index.Name())
		fmt.Fprintf(out, "  items:    %d\n", r.Items)
		fmt.Fprintf(out, "  records:  %d\n", r.Records)
		fmt.Fprintf(out, "  deleted:  %d\n", r.Deleted)
		fmt.Fprintf(out, "  duration: %s\n", r.Duration)
	case int:
		fmt.Fprintf(out, "%s cleared %d records from %q\n", label("✓"), r, a.index.Name())
	}
	return nil
}

// ingestRun picks the ingestion operation selected by the flags.
func ingestRun(p *rag.Pipeline) (operations.Kind, func(context.Context) (any, error)) {
	switch {
	case ingestClear:
		return operations.KindClear, func(ctx context.Context) (any, error) {
			return p.ClearKnowledgeBase(ctx)
		}
	case ingestRefresh:
		return operations.KindRefresh, func(ctx context.Context) (any, error) {
			return p.RefreshKnowledgeBase(ctx)
		}
	default:
		return operations.KindSetup, func(ctx context.Context) (any, error) {
			return p.SetupKnowledgeBase(ctx)
		}
	}
}
