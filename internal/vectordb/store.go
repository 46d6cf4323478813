package vectordb

import "context"

// Store defines the interface for holding chunk vectors and searching them
// by similarity. All chunks passed in carry precomputed embeddings; a Store
// never calls the embedding backend on the write path.
type Store interface {
	// AddChunks appends a batch of chunks. The batch lands completely or
	// not at all.
	AddChunks(ctx context.Context, chunks []Chunk) error

	// QueryEmbedding returns up to n chunks most similar to the query
	// vector, best first.
	QueryEmbedding(ctx context.Context, query []float32, n int) ([]Scored, error)

	// DeleteByDocument removes every chunk belonging to the given document.
	DeleteByDocument(ctx context.Context, documentID string) error

	// Count returns the total number of indexed chunks.
	Count() int

	// Export writes the full store contents to a snapshot file.
	Export(path string) error

	// Import replaces the store contents with a previously exported snapshot.
	Import(path string) error

	// Drop discards all chunks, leaving an empty store.
	Drop() error
}
