package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index and document counts",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().Bool("json", false, "output status as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	svc, closeDB, err := buildService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	status, err := svc.Status(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	models := make([]string, 0, len(status.Models))
	for _, m := range status.Models {
		if m == status.DefaultModel {
			m += " (default)"
		}
		models = append(models, m)
	}

	fmt.Printf("Data dir:  %s\n", cfg.DataDir)
	fmt.Printf("Documents: %d\n", status.DocCount)
	fmt.Printf("Chunks:    %d\n", status.ChunkCount)
	fmt.Printf("Index:     %s\n", status.State)
	fmt.Printf("Models:    %s\n", strings.Join(models, ", "))
	return nil
}
