// Package mcp exposes the document question-answering service over the Model
// Context Protocol, so coding agents and LLM clients can query uploaded PDFs.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/askpdf/askpdf/internal/rag"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Server wraps the MCP protocol server around the question-answering service.
type Server struct {
	service *rag.Service
	mcp     *server.MCPServer
}

// NewServer creates an MCP server backed by the given service.
func NewServer(service *rag.Service) *Server {
	s := &Server{
		service: service,
		mcp: server.NewMCPServer(
			"askpdf",
			Version,
			server.WithToolCapabilities(false),
		),
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(askDocumentsTool, s.handleAskDocuments)
	s.mcp.AddTool(searchDocumentsTool, s.handleSearchDocuments)
}

// Serve runs the MCP server on stdio. It blocks until the client disconnects.
// Stdout carries the protocol stream, so all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
