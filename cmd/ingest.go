package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/askpdf/askpdf/internal/progress"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [paths or globs...]",
	Short: "Ingest PDF files into the index",
	Long: `Extracts, chunks and embeds the given PDF files so they become
available for questions. Arguments may be files, directories or
globs with ** support, e.g. "docs/**/*.pdf".`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	files, err := expandPDFArgs(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No PDF files match the given paths.")
		return nil
	}

	svc, closeDB, err := buildService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	reporter := progress.NewReporter()
	reporter.Start(len(files))

	// One file per call so the bar advances and one bad file cannot fail
	// the whole run.
	var processed, chunks int
	type failure struct {
		path string
		err  error
	}
	var failures []failure

	for i, path := range files {
		reporter.Update(i, filepath.Base(path))
		result, err := svc.IngestPaths(ctx, []string{path})
		if err != nil {
			failures = append(failures, failure{path: path, err: err})
			continue
		}
		processed += result.FilesProcessed
		chunks += result.ChunksCreated
	}
	reporter.Update(len(files), "done")
	reporter.Finish()

	status, err := svc.Status(ctx)
	if err != nil {
		return fmt.Errorf("reading status: %w", err)
	}

	duration := time.Since(start)
	fmt.Println()
	fmt.Println("Ingest complete!")
	fmt.Printf("  Files processed: %d\n", processed)
	fmt.Printf("  Files failed:    %d\n", len(failures))
	fmt.Printf("  Chunks created:  %d\n", chunks)
	fmt.Printf("  Documents total: %d\n", status.DocCount)
	fmt.Printf("  Duration:        %s\n", duration.Round(time.Millisecond))

	if len(failures) > 0 {
		fmt.Fprintf(os.Stderr, "\nFailures (%d):\n", len(failures))
		for _, f := range failures {
			fmt.Fprintf(os.Stderr, "  - %s: %v\n", f.path, f.err)
		}
	}

	return nil
}

// expandPDFArgs resolves each argument into PDF file paths. A directory is
// searched recursively; anything else is treated as a glob with ** support.
func expandPDFArgs(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	add := func(path string) {
		if !strings.EqualFold(filepath.Ext(path), ".pdf") {
			return
		}
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			return
		}
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, arg := range args {
		if info, err := os.Stat(arg); err == nil && info.IsDir() {
			matches, err := doublestar.FilepathGlob(filepath.Join(arg, "**", "*.pdf"))
			if err != nil {
				return nil, fmt.Errorf("searching %s: %w", arg, err)
			}
			for _, m := range matches {
				add(m)
			}
			continue
		}

		matches, err := doublestar.FilepathGlob(arg)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		for _, m := range matches {
			add(m)
		}
	}

	sort.Strings(files)
	return files, nil
}
