package mcp

import "github.com/mark3labs/mcp-go/mcp"

// askDocumentsTool defines the ask_documents MCP tool.
var askDocumentsTool = mcp.NewTool("ask_documents",
	mcp.WithDescription("Ask a question about the uploaded PDF documents. Retrieves the most relevant passages and generates an answer grounded in them, with source filenames."),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("Natural language question to answer from the documents"),
	),
	mcp.WithString("model",
		mcp.Description("Model profile to answer with (defaults to the configured default)"),
	),
)

// searchDocumentsTool defines the search_documents MCP tool.
var searchDocumentsTool = mcp.NewTool("search_documents",
	mcp.WithDescription("Search the uploaded PDF documents for relevant passages. Returns the raw passages with source filenames and similarity scores, without generating an answer."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of passages to return (default 5)"),
	),
)
