package vectordb

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"testing"
)

// mockEmbedder returns deterministic embeddings based on text content.
// It produces a simple hash-based vector for reproducible tests.
type mockEmbedder struct {
	dims int
}

func newMockEmbedder(dims int) *mockEmbedder {
	return &mockEmbedder{dims: dims}
}

func (m *mockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		results[i] = m.deterministicVector(text)
	}
	return results, nil
}

func (m *mockEmbedder) Dimensions() int { return m.dims }
func (m *mockEmbedder) Name() string    { return "mock" }

// deterministicVector produces a normalized vector from text. Similar texts
// produce similar vectors because shared characters contribute to the same
// positions.
func (m *mockEmbedder) deterministicVector(text string) []float32 {
	vec := make([]float32, m.dims)
	for i, ch := range text {
		idx := (int(ch) + i) % m.dims
		vec[idx] += 1.0
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

// testChunks embeds the given texts and wraps them as chunks of a single
// document.
func testChunks(t *testing.T, embedder *mockEmbedder, documentID string, texts ...string) []Chunk {
	t.Helper()
	vecs, err := embedder.Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("embedding test chunks: %v", err)
	}
	chunks := make([]Chunk, len(texts))
	offset := 0
	for i, text := range texts {
		chunks[i] = Chunk{
			ID:        fmt.Sprintf("%s:%d", documentID, i),
			Content:   text,
			Embedding: vecs[i],
			Metadata: ChunkMetadata{
				DocumentID: documentID,
				Filename:   documentID + ".pdf",
				Seq:        i,
				Start:      offset,
				End:        offset + len(text),
			},
		}
		offset += len(text)
	}
	return chunks
}

func TestChromemStore_AddAndQuery(t *testing.T) {
	ctx := context.Background()
	embedder := newMockEmbedder(64)

	store, err := NewChromemStore(embedder)
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}

	chunks := testChunks(t, embedder, "doc1",
		"The billing section explains invoice due dates and late fees",
		"Database connection pool configuration and initialization",
		"Shipping times depend on the destination country",
	)
	if err := store.AddChunks(ctx, chunks); err != nil {
		t.Fatalf("AddChunks: %v", err)
	}

	if count := store.Count(); count != 3 {
		t.Errorf("Count: got %d, want 3", count)
	}

	query, err := embedder.Embed(ctx, []string{"invoice late fees billing"})
	if err != nil {
		t.Fatalf("embedding query: %v", err)
	}

	results, err := store.QueryEmbedding(ctx, query[0], 2)
	if err != nil {
		t.Fatalf("QueryEmbedding: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("QueryEmbedding returned %d results, want 2", len(results))
	}

	for i, r := range results {
		if r.Similarity == 0 {
			t.Errorf("result %d has zero similarity", i)
		}
		if len(r.Chunk.Embedding) != 64 {
			t.Errorf("result %d lost its embedding", i)
		}
		if r.Chunk.Metadata.DocumentID != "doc1" {
			t.Errorf("result %d lost its document ID: %+v", i, r.Chunk.Metadata)
		}
	}
	if results[0].Similarity < results[1].Similarity {
		t.Error("results not ordered best-first")
	}
}

func TestChromemStore_RejectsIncompleteBatch(t *testing.T) {
	ctx := context.Background()
	embedder := newMockEmbedder(64)

	store, err := NewChromemStore(embedder)
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}

	good := testChunks(t, embedder, "doc1", "complete chunk with a vector")
	bad := Chunk{ID: "doc1:broken", Content: "no embedding attached"}

	if err := store.AddChunks(ctx, append(good, bad)); err == nil {
		t.Fatal("expected error for chunk without embedding")
	}
	if count := store.Count(); count != 0 {
		t.Errorf("failed batch left %d chunks behind, want 0", count)
	}
}

func TestChromemStore_DeleteByDocument(t *testing.T) {
	ctx := context.Background()
	embedder := newMockEmbedder(64)

	store, err := NewChromemStore(embedder)
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}

	first := testChunks(t, embedder, "doc1", "first document body", "more of the first document")
	second := testChunks(t, embedder, "doc2", "second document body")
	if err := store.AddChunks(ctx, append(first, second...)); err != nil {
		t.Fatalf("AddChunks: %v", err)
	}

	if count := store.Count(); count != 3 {
		t.Fatalf("Count before delete: got %d, want 3", count)
	}

	if err := store.DeleteByDocument(ctx, "doc1"); err != nil {
		t.Fatalf("DeleteByDocument: %v", err)
	}

	if count := store.Count(); count != 1 {
		t.Errorf("Count after delete: got %d, want 1", count)
	}
}

func TestChromemStore_ExportImport(t *testing.T) {
	ctx := context.Background()
	embedder := newMockEmbedder(64)

	store, err := NewChromemStore(embedder)
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}

	chunks := testChunks(t, embedder, "doc1",
		"persistent chunk about authentication",
		"persistent chunk about database queries",
	)
	if err := store.AddChunks(ctx, chunks); err != nil {
		t.Fatalf("AddChunks: %v", err)
	}

	path := filepath.Join(t.TempDir(), "index.gob.gz")
	if err := store.Export(path); err != nil {
		t.Fatalf("Export: %v", err)
	}

	store2, err := NewChromemStore(embedder)
	if err != nil {
		t.Fatalf("NewChromemStore for import: %v", err)
	}
	if err := store2.Import(path); err != nil {
		t.Fatalf("Import: %v", err)
	}

	if count := store2.Count(); count != 2 {
		t.Errorf("Count after import: got %d, want 2", count)
	}

	query, err := embedder.Embed(ctx, []string{"authentication"})
	if err != nil {
		t.Fatalf("embedding query: %v", err)
	}
	results, err := store2.QueryEmbedding(ctx, query[0], 2)
	if err != nil {
		t.Fatalf("QueryEmbedding after import: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("QueryEmbedding after import returned %d results, want 2", len(results))
	}

	found := false
	for _, r := range results {
		if r.Chunk.Metadata.Seq == 0 && r.Chunk.Metadata.Filename == "doc1.pdf" {
			found = true
			if r.Chunk.Metadata.Start != 0 || r.Chunk.Metadata.End != len(chunks[0].Content) {
				t.Errorf("chunk offsets not preserved: %+v", r.Chunk.Metadata)
			}
		}
	}
	if !found {
		t.Error("first chunk not found after import")
	}
}

func TestChromemStore_Drop(t *testing.T) {
	ctx := context.Background()
	embedder := newMockEmbedder(64)

	store, err := NewChromemStore(embedder)
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}

	chunks := testChunks(t, embedder, "doc1", "chunk that will be dropped")
	if err := store.AddChunks(ctx, chunks); err != nil {
		t.Fatalf("AddChunks: %v", err)
	}

	if err := store.Drop(); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if count := store.Count(); count != 0 {
		t.Errorf("Count after drop: got %d, want 0", count)
	}

	// The store must stay usable after a drop.
	if err := store.AddChunks(ctx, testChunks(t, embedder, "doc2", "fresh chunk")); err != nil {
		t.Fatalf("AddChunks after drop: %v", err)
	}
	if count := store.Count(); count != 1 {
		t.Errorf("Count after re-add: got %d, want 1", count)
	}
}

func TestFormatResults(t *testing.T) {
	results := []Scored{
		{
			Chunk: Chunk{
				ID:      "doc1:0",
				Content: "Invoices are due within thirty days.",
				Metadata: ChunkMetadata{
					DocumentID: "doc1",
					Filename:   "billing.pdf",
					Seq:        0,
					Start:      0,
					End:        36,
				},
			},
			Similarity: 0.9512,
		},
	}

	output := FormatResults(results)
	if output == "" {
		t.Fatal("FormatResults returned empty string")
	}
	if !contains(output, "billing.pdf") {
		t.Errorf("expected source filename in output, got: %s", output)
	}
	if !contains(output, "0.9512") {
		t.Errorf("expected similarity score in output, got: %s", output)
	}
}

func TestFormatResults_Empty(t *testing.T) {
	output := FormatResults(nil)
	if output != "No results found." {
		t.Errorf("expected 'No results found.', got: %s", output)
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && searchString(s, substr)
}

func searchString(s, sub string) bool {
	for i := 0; i <= len(s)-len(sub); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
