package cmd

import (
	"context"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all documents, the index and the query history",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if !resetYes {
			prompt := promptui.Prompt{
				Label:     "Delete all documents, the index and the query history",
				IsConfirm: true,
			}
			if _, err := prompt.Run(); err != nil {
				fmt.Println("Aborted.")
				return nil
			}
		}

		svc, closeDB, err := buildService(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeDB()

		if err := svc.Reset(ctx); err != nil {
			return fmt.Errorf("reset failed: %w", err)
		}

		fmt.Println("All documents, the index and the history have been removed.")
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}
