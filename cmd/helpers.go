package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/askpdf/askpdf/internal/chunk"
	"github.com/askpdf/askpdf/internal/config"
	"github.com/askpdf/askpdf/internal/db"
	"github.com/askpdf/askpdf/internal/docstore"
	"github.com/askpdf/askpdf/internal/embeddings"
	"github.com/askpdf/askpdf/internal/extract"
	"github.com/askpdf/askpdf/internal/rag"
	"github.com/askpdf/askpdf/internal/vectordb"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `askpdf init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// buildService wires the embedder, vector index, document registry and
// service from config and opens them. The returned closer releases the
// database handle.
func buildService(ctx context.Context, cfg *config.Config) (*rag.Service, func() error, error) {
	embedder, err := embeddings.New(cfg.Embedding)
	if err != nil {
		return nil, nil, fmt.Errorf("creating embedder: %w", err)
	}

	store, err := vectordb.NewChromemStore(embedder)
	if err != nil {
		return nil, nil, fmt.Errorf("creating vector store: %w", err)
	}
	manager := vectordb.NewManager(store, filepath.Join(cfg.DataDir, "index"), vectordb.Manifest{
		Provider:   string(cfg.Embedding.Provider),
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
	})

	database, err := db.Open(filepath.Join(cfg.DataDir, "askpdf.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	splitter := chunk.NewSplitter(cfg.Chunking.Size, cfg.Chunking.Overlap)
	svc := rag.New(cfg, extract.PDF{}, splitter, embedder, manager, docstore.NewStore(database))
	if err := svc.Open(ctx); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("opening service: %w", err)
	}

	return svc, database.Close, nil
}
