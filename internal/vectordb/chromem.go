package vectordb

import (
	"context"
	"fmt"
	"strconv"

	chromem "github.com/philippgille/chromem-go"

	"github.com/askpdf/askpdf/internal/embeddings"
)

const collectionName = "chunks"

// ChromemStore implements Store using chromem-go.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedFunc  chromem.EmbeddingFunc
}

// NewChromemStore creates a new in-memory ChromemStore. The embedder is only
// consulted if chromem ever needs to embed on its own; the normal read and
// write paths supply vectors explicitly.
func NewChromemStore(embedder embeddings.Embedder) (*ChromemStore, error) {
	db := chromem.NewDB()
	ef := embeddings.ToChromemFunc(embedder)

	col, err := db.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &ChromemStore{
		db:         db,
		collection: col,
		embedFunc:  ef,
	}, nil
}

func (s *ChromemStore) AddChunks(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	ids := make([]string, len(chunks))
	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		if c.ID == "" {
			return fmt.Errorf("chunk %d has no ID", i)
		}
		if len(c.Embedding) == 0 {
			return fmt.Errorf("chunk %s has no embedding", c.ID)
		}
		ids[i] = c.ID
		docs[i] = chromem.Document{
			ID:        c.ID,
			Content:   c.Content,
			Embedding: c.Embedding,
			Metadata:  metadataToMap(c.Metadata),
		}
	}

	if err := s.collection.AddDocuments(ctx, docs, 1); err != nil {
		// Take back whatever part of the batch landed so the collection
		// never holds a partial ingest.
		_ = s.collection.Delete(ctx, nil, nil, ids...)
		return fmt.Errorf("add chunks: %w", err)
	}
	return nil
}

func (s *ChromemStore) QueryEmbedding(ctx context.Context, query []float32, n int) ([]Scored, error) {
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}

	// chromem-go requires nResults <= collection size.
	if n > count {
		n = count
	}
	if n <= 0 {
		return nil, nil
	}

	results, err := s.collection.QueryEmbedding(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	scored := make([]Scored, len(results))
	for i, r := range results {
		scored[i] = Scored{
			Chunk: Chunk{
				ID:        r.ID,
				Content:   r.Content,
				Embedding: r.Embedding,
				Metadata:  mapToMetadata(r.Metadata),
			},
			Similarity: r.Similarity,
		}
	}
	return scored, nil
}

func (s *ChromemStore) DeleteByDocument(ctx context.Context, documentID string) error {
	if s.collection.Count() == 0 {
		return nil
	}
	where := map[string]string{"document_id": documentID}
	return s.collection.Delete(ctx, where, nil)
}

func (s *ChromemStore) Count() int {
	return s.collection.Count()
}

func (s *ChromemStore) Export(path string) error {
	return s.db.ExportToFile(path, true, "")
}

func (s *ChromemStore) Import(path string) error {
	if err := s.db.ImportFromFile(path, ""); err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}

	// Re-acquire the collection reference after import.
	col := s.db.GetCollection(collectionName, s.embedFunc)
	if col == nil {
		return fmt.Errorf("collection %q not found in snapshot", collectionName)
	}
	s.collection = col
	return nil
}

func (s *ChromemStore) Drop() error {
	if err := s.db.DeleteCollection(collectionName); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	col, err := s.db.GetOrCreateCollection(collectionName, nil, s.embedFunc)
	if err != nil {
		return fmt.Errorf("recreate collection: %w", err)
	}
	s.collection = col
	return nil
}

// metadataToMap converts ChunkMetadata to a flat map[string]string for chromem.
func metadataToMap(m ChunkMetadata) map[string]string {
	return map[string]string{
		"document_id": m.DocumentID,
		"filename":    m.Filename,
		"seq":         strconv.Itoa(m.Seq),
		"start":       strconv.Itoa(m.Start),
		"end":         strconv.Itoa(m.End),
	}
}

// mapToMetadata converts a flat map[string]string back to ChunkMetadata.
func mapToMetadata(m map[string]string) ChunkMetadata {
	seq, _ := strconv.Atoi(m["seq"])
	start, _ := strconv.Atoi(m["start"])
	end, _ := strconv.Atoi(m["end"])

	return ChunkMetadata{
		DocumentID: m["document_id"],
		Filename:   m["filename"],
		Seq:        seq,
		Start:      start,
		End:        end,
	}
}
