package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/IvanBalandraCamacho/Caso01-sub000/features/document"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/retrieval"
	"github.com/IvanBalandraCamacho/Caso01-sub000/internal/vector"
)

type MockSearcher struct{ mock.Mock }

func (m *MockSearcher) Search(ctx context.Context, namespace, query string, opts *retrieval.SearchOptions) ([]vector.Match, error) {
	args := m.Called(ctx, namespace, query, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]vector.Match), args.Error(1)
}

type MockDocuments struct{ mock.Mock }

func (m *MockDocuments) Status(ctx context.Context, id string) (*document.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*document.Document), args.Error(1)
}

func (m *MockDocuments) List(ctx context.Context, ns string) ([]document.Document, error) {
	args := m.Called(ctx, ns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]document.Document), args.Error(1)
}

func TestNewServer_RequiresSearcher(t *testing.T) {
	s, err := NewServer(nil, nil)
	assert.ErrorIs(t, err, ErrMissingSearcher)
	assert.Nil(t, s)
}

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("maps matches", func(t *testing.T) {
		searcher := new(MockSearcher)
		topK := 2
		searcher.On("Search", mock.Anything, "acme", "vacation policy", mock.MatchedBy(func(o *retrieval.SearchOptions) bool {
			return o.TopK != nil && *o.TopK == 2
		})).Return([]vector.Match{
			{DocumentID: "d1", ChunkText: "20 days per year", ChunkIndex: 3, Score: 0.9},
		}, nil)

		s, err := NewServer(searcher, nil)
		require.NoError(t, err)

		_, out, err := s.handleSearch(ctx, nil, SearchInput{NamespaceID: "acme", Query: "vacation policy", TopK: &topK})
		require.NoError(t, err)
		assert.Equal(t, 1, out.Count)
		assert.Equal(t, SearchResult{DocumentID: "d1", ChunkIndex: 3, Text: "20 days per year", Score: 0.9}, out.Results[0])
	})

	t.Run("empty results are an empty list", func(t *testing.T) {
		searcher := new(MockSearcher)
		searcher.On("Search", mock.Anything, "acme", "q", mock.Anything).Return([]vector.Match{}, nil)
		s, _ := NewServer(searcher, nil)

		_, out, err := s.handleSearch(ctx, nil, SearchInput{NamespaceID: "acme", Query: "q"})
		require.NoError(t, err)
		assert.NotNil(t, out.Results)
		assert.Zero(t, out.Count)
	})

	t.Run("validates input", func(t *testing.T) {
		searcher := new(MockSearcher)
		s, _ := NewServer(searcher, nil)

		_, _, err := s.handleSearch(ctx, nil, SearchInput{Query: "q"})
		assert.Error(t, err)
		searcher.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("propagates errors", func(t *testing.T) {
		searcher := new(MockSearcher)
		searcher.On("Search", mock.Anything, "acme", "q", mock.Anything).Return(nil, errors.New("provider not configured"))
		s, _ := NewServer(searcher, nil)

		_, _, err := s.handleSearch(ctx, nil, SearchInput{NamespaceID: "acme", Query: "q"})
		assert.ErrorContains(t, err, "provider not configured")
	})
}

func TestServer_handleDocumentStatus(t *testing.T) {
	ctx := context.Background()
	docs := new(MockDocuments)
	docs.On("Status", mock.Anything, "d1").Return(&document.Document{
		ID: "d1", NamespaceID: "acme", DisplayName: "handbook.txt", Status: document.StatusCompleted, ChunkCount: 12,
	}, nil)

	s, err := NewServer(new(MockSearcher), docs)
	require.NoError(t, err)

	_, out, err := s.handleDocumentStatus(ctx, nil, DocumentStatusInput{NamespaceID: "acme", DocumentID: "d1"})
	require.NoError(t, err)
	assert.Equal(t, document.StatusCompleted, out.Status)
	assert.Equal(t, 12, out.ChunkCount)

	_, _, err = s.handleDocumentStatus(ctx, nil, DocumentStatusInput{NamespaceID: "other", DocumentID: "d1"})
	assert.ErrorIs(t, err, document.ErrNotFound)
}

func TestServer_handleListDocuments(t *testing.T) {
	docs := new(MockDocuments)
	docs.On("List", mock.Anything, "acme").Return([]document.Document{
		{ID: "d1", Status: document.StatusPending},
		{ID: "d2", Status: document.StatusFailed, Error: "bad encoding"},
	}, nil)

	s, _ := NewServer(new(MockSearcher), docs)
	_, out, err := s.handleListDocuments(context.Background(), nil, ListDocumentsInput{NamespaceID: "acme"})

	require.NoError(t, err)
	require.Len(t, out.Documents, 2)
	assert.Equal(t, "bad encoding", out.Documents[1].Error)
}

func TestServer_ClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	searcher := new(MockSearcher)
	searcher.On("Search", mock.Anything, "acme", "onboarding", mock.Anything).Return([]vector.Match{
		{DocumentID: "d9", ChunkText: "badge pickup at reception", Score: 0.8},
	}, nil)

	s, err := NewServer(searcher, new(MockDocuments))
	require.NoError(t, err)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := s.server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"search_documents", "get_document_status", "list_documents"}, names)

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "search_documents",
		Arguments: map[string]any{"namespace_id": "acme", "query": "onboarding"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	searcher.AssertExpectations(t)
}
