package rag

import "errors"

// Error categories for the pipeline. Callers classify with errors.Is and
// map onto transport-level status codes; the wrapped detail stays internal.
var (
	// ErrValidation marks bad, missing or oversized input the caller can fix.
	ErrValidation = errors.New("validation error")
	// ErrNotReady marks a query issued before any document was ingested.
	ErrNotReady = errors.New("no documents loaded")
	// ErrExtraction marks an unreadable or text-free source file.
	ErrExtraction = errors.New("extraction error")
	// ErrEmbedding marks an embedding backend failure.
	ErrEmbedding = errors.New("embedding error")
	// ErrGeneration marks a chat model failure.
	ErrGeneration = errors.New("generation error")
	// ErrIndex marks an index read, write or delete failure.
	ErrIndex = errors.New("index error")
)
