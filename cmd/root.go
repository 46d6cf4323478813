package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "askpdf",
	Short: "Question answering over your PDF documents",
	Long: `askpdf ingests PDF documents into a local vector index and answers
natural language questions about them using retrieval-augmented
generation. It ships a web UI, a JSON API and an MCP server for
AI agent integration.`,
}

func Execute() error {
	// API keys may live in a .env file; absence is fine.
	_ = godotenv.Load()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".askpdf.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
