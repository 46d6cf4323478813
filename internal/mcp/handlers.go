package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/askpdf/askpdf/internal/rag"
	"github.com/askpdf/askpdf/internal/vectordb"
)

const notReadyHint = "No documents are loaded. Upload PDFs through the web UI or run `askpdf ingest` first."

// handleAskDocuments answers a question using retrieval-augmented generation
// over the uploaded documents.
func (s *Server) handleAskDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}
	model := request.GetString("model", "")

	answer, err := s.service.Ask(ctx, question, model)
	if err != nil {
		if errors.Is(err, rag.ErrNotReady) {
			return mcp.NewToolResultError(notReadyHint), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("ask failed: %v", err)), nil
	}

	text := answer.Answer
	if len(answer.Sources) > 0 {
		text += "\n\nSources: " + strings.Join(answer.Sources, ", ")
	}
	return mcp.NewToolResultText(text), nil
}

// handleSearchDocuments performs semantic search over the uploaded documents
// and returns the matching passages without generating an answer.
func (s *Server) handleSearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}
	limit := request.GetInt("limit", 0)

	results, err := s.service.SearchScored(ctx, query, limit)
	if err != nil {
		if errors.Is(err, rag.ErrNotReady) {
			return mcp.NewToolResultError(notReadyHint), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	return mcp.NewToolResultText(vectordb.FormatResults(results)), nil
}
