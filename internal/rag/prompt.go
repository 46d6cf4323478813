package rag

import (
	"fmt"
	"strings"

	"github.com/askpdf/askpdf/internal/llm"
	"github.com/askpdf/askpdf/internal/vectordb"
)

// systemPrompt is fixed answering policy, not a tuning surface.
const systemPrompt = `You are a helpful assistant that answers questions about uploaded documents.
Use ONLY the provided context to answer. If the answer is not in the context, say "I don't know based on the provided documents."
Be concise: answer in at most three sentences.
Cite the filenames of the documents your answer is based on.`

const (
	answerTemperature = 0.2
	answerMaxTokens   = 500
)

// buildPrompt renders retrieved chunks and the question into chat messages.
// Chunk order is preserved and every block names its source file so the
// model can refer back to it.
func buildPrompt(question string, chunks []vectordb.Chunk) []llm.Message {
	var sb strings.Builder
	sb.WriteString("Context:\n")
	for i, c := range chunks {
		name := c.Metadata.Filename
		if name == "" {
			name = c.Metadata.DocumentID
		}
		fmt.Fprintf(&sb, "Document %d (%s):\n%s\n\n", i+1, name, c.Content)
	}
	fmt.Fprintf(&sb, "Question: %s", question)

	return []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: sb.String()},
	}
}

// uniqueSources lists the distinct filenames behind a set of chunks, in
// retrieval order.
func uniqueSources(chunks []vectordb.Chunk) []string {
	seen := make(map[string]bool, len(chunks))
	var sources []string
	for _, c := range chunks {
		name := c.Metadata.Filename
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		sources = append(sources, name)
	}
	return sources
}
