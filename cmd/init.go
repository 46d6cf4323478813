package cmd

import (
	"github.com/spf13/cobra"

	"github.com/askpdf/askpdf/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize askpdf configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to pick the embedding backend and chat model, and generates a .askpdf.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
