package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/askpdf/askpdf/internal/server"
	"github.com/askpdf/askpdf/internal/watch"
)

var (
	servePort int
	watchDir  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the askpdf web server",
	Long:  `Starts the HTTP server with the web UI, JSON API and WebSocket chat endpoint.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc, closeDB, err := buildService(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeDB()

		srv := server.New(cfg, svc)

		if watchDir != "" {
			w := watch.New(watchDir, svc, 0)
			go func() {
				if err := w.Run(ctx); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: inbox watcher stopped: %v\n", err)
				}
			}()
			fmt.Fprintf(os.Stderr, "Watching %s for new PDFs\n", watchDir)
		}

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			srv.Shutdown(context.Background())
		}()

		status, err := svc.Status(ctx)
		if err != nil {
			return fmt.Errorf("reading status: %w", err)
		}
		fmt.Fprintf(os.Stderr, "askpdf v%s starting on http://%s:%d\n", Version, cfg.Server.Host, cfg.Server.Port)
		fmt.Fprintf(os.Stderr, "  Data dir:  %s\n", cfg.DataDir)
		fmt.Fprintf(os.Stderr, "  Documents: %d (%d chunks)\n", status.DocCount, status.ChunkCount)

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	serveCmd.Flags().StringVar(&watchDir, "watch", "", "Directory to watch for dropped PDFs")
	rootCmd.AddCommand(serveCmd)
}
