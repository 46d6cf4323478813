package vectordb

// Chunk is one indexed text segment of an ingested document, the atomic
// unit of retrieval.
type Chunk struct {
	ID        string
	Content   string
	Embedding []float32
	Metadata  ChunkMetadata
}

// ChunkMetadata locates a chunk within its source document.
type ChunkMetadata struct {
	DocumentID string
	Filename   string
	Seq        int // position within the document, starting at 0
	Start      int // byte offset of the chunk in the extracted text
	End        int
}

// Scored pairs a chunk with its cosine similarity to a query.
type Scored struct {
	Chunk      Chunk
	Similarity float32
}
