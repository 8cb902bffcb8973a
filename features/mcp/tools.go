package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/IvanBalandraCamacho/Caso01-sub000/features/document"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/retrieval"
)

type SearchInput struct {
	NamespaceID string `json:"namespace_id" jsonschema:"the namespace (tenant or workspace) to search in"`
	Query       string `json:"query" jsonschema:"natural language query"`
	TopK        *int   `json:"top_k,omitempty" jsonschema:"maximum number of chunks to return"`
}

type SearchOutput struct {
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

type SearchResult struct {
	DocumentID string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	Score      float32 `json:"score"`
}

type DocumentStatusInput struct {
	NamespaceID string `json:"namespace_id" jsonschema:"namespace the document belongs to"`
	DocumentID  string `json:"document_id" jsonschema:"document id returned at upload"`
}

type DocumentStatusOutput struct {
	DocumentID  string          `json:"document_id"`
	DisplayName string          `json:"display_name"`
	Status      document.Status `json:"status"`
	ChunkCount  int             `json:"chunk_count"`
	Error       string          `json:"error,omitempty"`
}

type ListDocumentsInput struct {
	NamespaceID string `json:"namespace_id" jsonschema:"namespace to list"`
}

type ListDocumentsOutput struct {
	Documents []DocumentStatusOutput `json:"documents"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_documents",
		Description: "Semantic search over the documents indexed in one namespace. Returns the most relevant chunks, best first.",
	}, s.handleSearch)

	if s.docs == nil {
		return
	}
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_document_status",
		Description: "Ingestion status of one document: PENDING, PROCESSING, COMPLETED or FAILED.",
	}, s.handleDocumentStatus)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the documents of a namespace with their ingestion status.",
	}, s.handleListDocuments)
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	if input.NamespaceID == "" || input.Query == "" {
		return nil, SearchOutput{}, errors.New("namespace_id and query are required")
	}

	matches, err := s.searcher.Search(ctx, input.NamespaceID, input.Query, &retrieval.SearchOptions{TopK: input.TopK})
	if err != nil {
		slog.ErrorContext(ctx, "mcp search failed", "error", err, "namespace_id", input.NamespaceID)
		return nil, SearchOutput{}, err
	}

	out := SearchOutput{Results: make([]SearchResult, len(matches)), Count: len(matches)}
	for i, m := range matches {
		out.Results[i] = SearchResult{
			DocumentID: m.DocumentID,
			ChunkIndex: m.ChunkIndex,
			Text:       m.ChunkText,
			Score:      m.Score,
		}
	}
	return nil, out, nil
}

func (s *Server) handleDocumentStatus(ctx context.Context, _ *mcp.CallToolRequest, input DocumentStatusInput) (*mcp.CallToolResult, DocumentStatusOutput, error) {
	doc, err := s.docs.Status(ctx, input.DocumentID)
	if err != nil {
		return nil, DocumentStatusOutput{}, err
	}
	// Documents of other namespaces are invisible.
	if doc.NamespaceID != input.NamespaceID {
		return nil, DocumentStatusOutput{}, fmt.Errorf("%w: %s", document.ErrNotFound, input.DocumentID)
	}
	return nil, statusOutput(*doc), nil
}

func (s *Server) handleListDocuments(ctx context.Context, _ *mcp.CallToolRequest, input ListDocumentsInput) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	docs, err := s.docs.List(ctx, input.NamespaceID)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}
	out := ListDocumentsOutput{Documents: make([]DocumentStatusOutput, len(docs))}
	for i, d := range docs {
		out.Documents[i] = statusOutput(d)
	}
	return nil, out, nil
}

func statusOutput(d document.Document) DocumentStatusOutput {
	return DocumentStatusOutput{
		DocumentID:  d.ID,
		DisplayName: d.DisplayName,
		Status:      d.Status,
		ChunkCount:  d.ChunkCount,
		Error:       d.Error,
	}
}
