// Package mcp exposes the retrieval path as Model Context Protocol tools so
// any MCP-capable LLM client can ground its answers in indexed documents.
package mcp

import (
	"context"
	"errors"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/IvanBalandraCamacho/Caso01-sub000/features/document"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/retrieval"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/vector"
)

const (
	ServerName = "caso-retrieval"
	Version    = "0.1.0"
)

var ErrMissingSearcher = errors.New("search service is required")

type Searcher interface {
	Search(ctx context.Context, namespace, query string, opts *retrieval.SearchOptions) ([]vector.Match, error)
}

type DocumentReader interface {
	Status(ctx context.Context, id string) (*document.Document, error)
	List(ctx context.Context, namespaceID string) ([]document.Document, error)
}

type Server struct {
	searcher Searcher
	docs     DocumentReader
	server   *mcp.Server
}

// NewServer registers the search tool, plus the document tools when docs is
// not nil.
func NewServer(searcher Searcher, docs DocumentReader) (*Server, error) {
	if searcher == nil {
		return nil, ErrMissingSearcher
	}

	s := &Server{
		searcher: searcher,
		docs:     docs,
		server:   mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: Version}, nil),
	}
	s.registerTools()
	return s, nil
}

// Handler serves the tools over streamable HTTP.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}

func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
