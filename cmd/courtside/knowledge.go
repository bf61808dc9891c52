package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/courtside/internal/knowledge"
)

var (
	knowledgeIndexed bool
	exportFormat     string
)

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Inspect the basketball knowledge corpus",
}

var knowledgeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List corpus items, or the records stored in the vector index",
	Args:  cobra.NoArgs,
	RunE:  runKnowledgeList,
}

var knowledgeExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the corpus as JSON or TOML",
	Long: `Write the corpus grouped by category to a file, or stdout when no file
is given.

Examples:
  courtside knowledge export
  courtside knowledge export --format toml knowledge.toml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runKnowledgeExport,
}

func init() {
	knowledgeListCmd.Flags().BoolVar(&knowledgeIndexed, "indexed", false, "list records stored in the vector index")
	knowledgeExportCmd.Flags().StringVar(&exportFormat, "format", knowledge.FormatJSON, "output format: json or toml")

	knowledgeCmd.AddCommand(knowledgeListCmd)
	knowledgeCmd.AddCommand(knowledgeExportCmd)
}

func runKnowledgeList(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	if !knowledgeIndexed {
		printCorpus(out, knowledge.All())
		return nil
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	records := a.pipeline.ListKnowledge(ctx)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\n", r.ID, r.Title)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d records in %q\n", len(records), a.index.Name())
	return nil
}

func printCorpus(w io.Writer, items []knowledge.Item) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tTITLE")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\n", it.Category, it.Title)
	}
	_ = tw.Flush()
}

func runKnowledgeExport(cmd *cobra.Command, args []string) error {
	if len(args) == 0 || args[0] == "-" {
		return knowledge.Export(cmd.OutOrStdout(), knowledge.All(), exportFormat)
	}

	f, err := os.Create(args[0])
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", args[0], err)
	}
	if err := knowledge.Export(f, knowledge.All(), exportFormat); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
