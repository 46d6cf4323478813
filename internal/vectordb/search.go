package vectordb

import (
	"fmt"
	"strings"
)

// FormatResults renders scored retrieval hits as human-readable text.
func FormatResults(results []Scored) string {
	if len(results) == 0 {
		return "No results found."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d result(s):\n\n", len(results)))

	for i, r := range results {
		sb.WriteString(fmt.Sprintf("--- Result %d (similarity: %.4f) ---\n", i+1, r.Similarity))

		if r.Chunk.Metadata.Filename != "" {
			sb.WriteString(fmt.Sprintf("Source: %s (chunk %d, bytes %d-%d)\n",
				r.Chunk.Metadata.Filename, r.Chunk.Metadata.Seq+1,
				r.Chunk.Metadata.Start, r.Chunk.Metadata.End))
		}

		sb.WriteString("\n")
		sb.WriteString(r.Chunk.Content)
		sb.WriteString("\n\n")
	}

	return sb.String()
}
