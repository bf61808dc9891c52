// Package main implements the courtside CLI: a basketball question answering
// service backed by a small knowledge corpus, a vector index and a text
// generation model.
//
// Usage:
//
//	# Index the corpus, then ask a question
//	courtside ingest --refresh
//	courtside ask "How many points is a three-pointer worth?"
//
//	# Serve the HTTP API
//	SERVER_HTTP_PORT=9090 courtside serve --ingest
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var (
	// configPath is an optional YAML config file.
	configPath string
	// envFiles are loaded into the environment before configuration.
	envFiles []string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "courtside",
	Short: "Basketball question answering over a retrieval pipeline",
	Long: `courtside answers basketball questions. Each question is embedded, the
closest knowledge items are retrieved from a vector index, and a text
generation model writes the answer from that context.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: loadEnvFiles,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default .env when present)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(knowledgeCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadEnvFiles loads dotenv files without overriding variables already set.
func loadEnvFiles(cmd *cobra.Command, _ []string) error {
	if len(envFiles) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		return godotenv.Load()
	}
	if err := godotenv.Load(envFiles...); err != nil {
		return fmt.Errorf("loading env files: %w", err)
	}
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, _ []string) {
		printVersion(cmd)
	},
}

// printVersion prints version information.
func printVersion(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "courtside %s\n", version)
	fmt.Fprintf(out, "  Git commit: %s\n", gitCommit)
	fmt.Fprintf(out, "  Build date: %s\n", buildDate)
}
