package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:          "veritas",
		Short:        "Veritas fact-checks claims by weighing web evidence for and against them.",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP and WebSocket API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	checkCmd := &cobra.Command{
		Use:   "check <claim>",
		Short: "Fact-check a single claim and print the verdict as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCheck,
	}

	transcriptCmd := &cobra.Command{
		Use:   "transcript [file]",
		Short: "Fact-check a transcript, one segment per line (stdin when no file is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTranscript,
	}

	for _, envFile := range []string{
		".env",
		"../../.env",
		"../../../.env",
	} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	rootCmd.AddCommand(serveCmd, checkCmd, transcriptCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
