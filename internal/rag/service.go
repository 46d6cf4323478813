package rag

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/askpdf/askpdf/internal/chunk"
	"github.com/askpdf/askpdf/internal/config"
	"github.com/askpdf/askpdf/internal/docstore"
	"github.com/askpdf/askpdf/internal/embeddings"
	"github.com/askpdf/askpdf/internal/extract"
	"github.com/askpdf/askpdf/internal/llm"
	"github.com/askpdf/askpdf/internal/vectordb"
)

// Question length bounds, counted in runes after trimming.
const (
	MinQuestionLen = 3
	MaxQuestionLen = 1000
)

// Extractor turns a source file into plain text.
type Extractor interface {
	Extract(path string) (*extract.Result, error)
}

// Service ties extraction, chunking, embedding, retrieval and generation
// together behind one API used by the HTTP server, the MCP server and the
// CLI.
//
// Ingest and Reset serialize on an internal mutex so a reset can never
// interleave with a half-finished ingestion batch. Questions take no
// service-level lock; the index handles its own read concurrency.
type Service struct {
	cfg       *config.Config
	extractor Extractor
	splitter  *chunk.Splitter
	embedder  embeddings.Embedder
	index     *vectordb.Manager
	docs      *docstore.Store

	mu sync.Mutex

	// Providers are cached per profile key so rate limiter state survives
	// across requests. A failed construction (missing API key) is not
	// cached; the next request retries.
	providerFactory func(config.ModelProfile) (llm.Provider, error)
	pmu             sync.Mutex
	providers       map[string]llm.Provider

	tokens tokenCounter
}

// New assembles a Service from its parts.
func New(cfg *config.Config, extractor Extractor, splitter *chunk.Splitter, embedder embeddings.Embedder, index *vectordb.Manager, docs *docstore.Store) *Service {
	return &Service{
		cfg:             cfg,
		extractor:       extractor,
		splitter:        splitter,
		embedder:        embedder,
		index:           index,
		docs:            docs,
		providerFactory: llm.NewProvider,
		providers:       make(map[string]llm.Provider),
	}
}

// UploadsDir is where uploaded files are stored until a reset removes them.
func (s *Service) UploadsDir() string {
	return filepath.Join(s.cfg.DataDir, "uploads")
}

// Open prepares the data directory, loads any persisted index and
// reconciles the document registry against it. Registry rows whose vectors
// are gone (discarded snapshot, changed embedding model) would list
// documents that can never be retrieved, so they are dropped.
func (s *Service) Open(ctx context.Context) error {
	if err := os.MkdirAll(s.UploadsDir(), 0o755); err != nil {
		return fmt.Errorf("%w: creating uploads dir: %v", ErrIndex, err)
	}
	if err := s.index.Open(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrIndex, err)
	}
	if s.index.Count() == 0 {
		count, err := s.docs.CountDocuments(ctx)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrIndex, err)
		}
		if count > 0 {
			log.Printf("rag: index is empty but registry lists %d documents, clearing registry", count)
			if err := s.docs.ClearDocuments(ctx); err != nil {
				return fmt.Errorf("%w: %v", ErrIndex, err)
			}
		}
	}
	return nil
}

// IngestFile is one file handed to Ingest: where it lives on disk and the
// name shown to users.
type IngestFile struct {
	Path     string
	Filename string
}

// SkippedFile records a file that could not be ingested and why.
type SkippedFile struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// IngestResult reports one ingestion batch.
type IngestResult struct {
	FilesProcessed int           `json:"files_processed"`
	ChunksCreated  int           `json:"chunks_created"`
	DocCount       int           `json:"doc_count"`
	Skipped        []SkippedFile `json:"skipped,omitempty"`
}

// Ingest extracts, chunks, embeds and indexes a batch of files. Files that
// fail extraction are skipped and reported by name; if every file fails the
// whole call fails. All surviving chunks are committed to the index as one
// batch, so a concurrent reset sees either none of them or all of them.
func (s *Service) Ingest(ctx context.Context, files []IngestFile) (*IngestResult, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files provided", ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := &IngestResult{}
	var (
		batch []vectordb.Chunk
		docs  []docstore.Document
	)
	for _, f := range files {
		extracted, err := s.extractor.Extract(f.Path)
		if err != nil {
			log.Printf("rag: skipping %s: %v", f.Filename, err)
			result.Skipped = append(result.Skipped, SkippedFile{Filename: f.Filename, Reason: err.Error()})
			continue
		}

		spans := s.splitter.SplitSpans(extracted.Text)
		if len(spans) == 0 {
			result.Skipped = append(result.Skipped, SkippedFile{Filename: f.Filename, Reason: "no text chunks produced"})
			continue
		}

		texts := make([]string, len(spans))
		for i, sp := range spans {
			texts[i] = sp.Text
		}
		vectors, err := s.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("%w: got %d embeddings for %d chunks", ErrEmbedding, len(vectors), len(texts))
		}

		docID := uuid.New().String()
		for i, sp := range spans {
			batch = append(batch, vectordb.Chunk{
				ID:        fmt.Sprintf("%s:%d", docID, i),
				Content:   sp.Text,
				Embedding: vectors[i],
				Metadata: vectordb.ChunkMetadata{
					DocumentID: docID,
					Filename:   f.Filename,
					Seq:        i,
					Start:      sp.Start,
					End:        sp.End,
				},
			})
		}
		docs = append(docs, docstore.Document{
			ID:         docID,
			Filename:   f.Filename,
			StoredPath: f.Path,
			Pages:      extracted.Pages,
			Chunks:     len(spans),
		})
		result.FilesProcessed++
		result.ChunksCreated += len(spans)
	}

	if result.FilesProcessed == 0 {
		return nil, fmt.Errorf("%w: no files could be processed", ErrExtraction)
	}

	if err := s.index.AddBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndex, err)
	}
	for i, doc := range docs {
		if _, err := s.docs.AddDocument(ctx, doc); err != nil {
			// Keep registry and index consistent: pull the chunks of every
			// document whose row was not written back out of the index.
			for _, undo := range docs[i:] {
				if derr := s.index.RemoveDocument(ctx, undo.ID); derr != nil {
					log.Printf("rag: unwinding %s after registry failure: %v", undo.Filename, derr)
				}
			}
			return nil, fmt.Errorf("%w: recording document: %v", ErrIndex, err)
		}
	}

	count, err := s.docs.CountDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndex, err)
	}
	result.DocCount = count
	log.Printf("rag: ingested %d file(s), %d chunk(s), %d skipped", result.FilesProcessed, result.ChunksCreated, len(result.Skipped))
	return result, nil
}

// IngestPaths ingests files addressed by path, using each basename as the
// display name. Used by the CLI and the watch loop, where files stay where
// the user put them.
func (s *Service) IngestPaths(ctx context.Context, paths []string) (*IngestResult, error) {
	files := make([]IngestFile, len(paths))
	for i, p := range paths {
		files[i] = IngestFile{Path: p, Filename: filepath.Base(p)}
	}
	return s.Ingest(ctx, files)
}

// Answer is the generated response to one question.
type Answer struct {
	Answer  string   `json:"answer"`
	Model   string   `json:"model"`
	Sources []string `json:"sources,omitempty"`
}

// Ask answers a question from the indexed documents. The modelKey selects a
// configured chat profile; empty means the default. Readiness is checked
// before the question is embedded so an empty index costs nothing.
func (s *Service) Ask(ctx context.Context, question, modelKey string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if n := utf8.RuneCountInString(question); n < MinQuestionLen || n > MaxQuestionLen {
		return nil, fmt.Errorf("%w: question must be between %d and %d characters", ErrValidation, MinQuestionLen, MaxQuestionLen)
	}
	profile, key, err := s.cfg.Profile(modelKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if !s.index.Ready() {
		return nil, fmt.Errorf("%w: upload documents first", ErrNotReady)
	}
	provider, err := s.provider(key, profile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	scored, err := s.retrieve(ctx, question, s.cfg.Retrieval.K)
	if err != nil {
		return nil, err
	}
	chunks := make([]vectordb.Chunk, len(scored))
	for i, sc := range scored {
		chunks[i] = sc.Chunk
	}
	chunks = s.fitBudget(chunks)

	resp, err := provider.Complete(ctx, llm.CompletionRequest{
		Messages:    buildPrompt(question, chunks),
		MaxTokens:   answerMaxTokens,
		Temperature: answerTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return nil, fmt.Errorf("%w: model returned an empty answer", ErrGeneration)
	}

	answer := &Answer{Answer: text, Model: key, Sources: uniqueSources(chunks)}
	if err := s.docs.AppendHistory(ctx, docstore.HistoryEntry{
		Question: question,
		Answer:   text,
		Model:    key,
		Sources:  answer.Sources,
	}, s.cfg.HistoryLimit); err != nil {
		// History is display-only; losing an entry must not fail the answer.
		log.Printf("rag: recording history: %v", err)
	}
	return answer, nil
}

// SearchScored retrieves the chunks a question would be answered from,
// without calling the chat model. k <= 0 uses the configured default.
func (s *Service) SearchScored(ctx context.Context, query string, k int) ([]vectordb.Scored, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query must not be empty", ErrValidation)
	}
	if k <= 0 {
		k = s.cfg.Retrieval.K
	}
	if !s.index.Ready() {
		return nil, fmt.Errorf("%w: upload documents first", ErrNotReady)
	}
	return s.retrieve(ctx, query, k)
}

func (s *Service) retrieve(ctx context.Context, query string, k int) ([]vectordb.Scored, error) {
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: got %d embeddings for one query", ErrEmbedding, len(vectors))
	}
	fetchK := s.cfg.Retrieval.FetchK
	if fetchK < k {
		fetchK = k
	}
	scored, err := s.index.SearchScored(ctx, vectors[0], k, fetchK, s.cfg.Retrieval.Lambda)
	if err != nil {
		if errors.Is(err, vectordb.ErrNotReady) {
			return nil, fmt.Errorf("%w: upload documents first", ErrNotReady)
		}
		return nil, fmt.Errorf("%w: %v", ErrIndex, err)
	}
	return scored, nil
}

// fitBudget drops trailing chunks once the assembled context would exceed
// the token budget. The first chunk always survives so the model sees some
// context.
func (s *Service) fitBudget(chunks []vectordb.Chunk) []vectordb.Chunk {
	budget := s.cfg.Retrieval.ContextTokenBudget
	if budget <= 0 {
		return chunks
	}
	total := 0
	for i, c := range chunks {
		total += s.tokens.Count(c.Content)
		if total > budget && i > 0 {
			return chunks[:i]
		}
	}
	return chunks
}

func (s *Service) provider(key string, profile config.ModelProfile) (llm.Provider, error) {
	s.pmu.Lock()
	defer s.pmu.Unlock()
	if p, ok := s.providers[key]; ok {
		return p, nil
	}
	p, err := s.providerFactory(profile)
	if err != nil {
		return nil, err
	}
	s.providers[key] = p
	return p, nil
}

// Status reports the service state for dashboards and the status endpoint.
type Status struct {
	DocCount     int        `json:"doc_count"`
	ChunkCount   int        `json:"chunk_count"`
	Ready        bool       `json:"index_ready"`
	State        string     `json:"index_state"`
	Models       []string   `json:"models"`
	DefaultModel string     `json:"default_model"`
	LastUpload   *time.Time `json:"last_upload,omitempty"`
}

func (s *Service) Status(ctx context.Context) (*Status, error) {
	count, err := s.docs.CountDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndex, err)
	}
	models := make([]string, 0, len(s.cfg.Models))
	for key := range s.cfg.Models {
		models = append(models, key)
	}
	sort.Strings(models)

	st := &Status{
		DocCount:     count,
		ChunkCount:   s.index.Count(),
		Ready:        s.index.Ready(),
		State:        string(s.index.State()),
		Models:       models,
		DefaultModel: s.cfg.DefaultModel,
	}
	if last, err := s.docs.LastUpload(ctx); err == nil && !last.IsZero() {
		st.LastUpload = &last
	}
	return st, nil
}

// Documents lists the registered documents in upload order.
func (s *Service) Documents(ctx context.Context) ([]docstore.Document, error) {
	docs, err := s.docs.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndex, err)
	}
	return docs, nil
}

// History returns the most recent question/answer pairs, newest first.
func (s *Service) History(ctx context.Context) ([]docstore.HistoryEntry, error) {
	entries, err := s.docs.RecentHistory(ctx, s.cfg.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndex, err)
	}
	return entries, nil
}

// Reset destroys the index, the document registry, the query history and
// every stored upload. The service is usable immediately afterwards; the
// next ingest starts from scratch.
func (s *Service) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Reset(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrIndex, err)
	}
	if err := s.docs.ClearDocuments(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrIndex, err)
	}
	if err := s.docs.ClearHistory(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrIndex, err)
	}
	if err := os.RemoveAll(s.UploadsDir()); err != nil {
		return fmt.Errorf("%w: removing uploads: %v", ErrIndex, err)
	}
	if err := os.MkdirAll(s.UploadsDir(), 0o755); err != nil {
		return fmt.Errorf("%w: recreating uploads dir: %v", ErrIndex, err)
	}
	log.Printf("rag: reset complete, all documents removed")
	return nil
}

// Health reports per-component condition for the health endpoint.
type Health struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

func (s *Service) Health(ctx context.Context) *Health {
	components := make(map[string]string)

	switch s.index.State() {
	case vectordb.StateReady:
		components["index"] = "ok"
	case vectordb.StateEmpty:
		components["index"] = "not_loaded"
	default:
		components["index"] = "error"
	}

	if _, err := s.docs.CountDocuments(ctx); err != nil {
		components["registry"] = "error"
	} else {
		components["registry"] = "ok"
	}

	if _, err := s.cfg.Embedding.APIKey(); err != nil {
		components["embedding"] = "not_loaded"
	} else {
		components["embedding"] = "ok"
	}

	profile, _, err := s.cfg.Profile("")
	if err == nil {
		_, err = profile.APIKey()
	}
	if err != nil {
		components["generation"] = "not_loaded"
	} else {
		components["generation"] = "ok"
	}

	status := "ok"
	for _, state := range components {
		if state == "error" {
			status = "degraded"
			break
		}
	}
	return &Health{Status: status, Components: components}
}
