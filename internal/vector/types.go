package vector

import "context"

// Chunk is one fragment of a document in source order. Index is the running
// position of the chunk inside its document.
type Chunk struct {
	Text  string
	Index int
}

// Point is a chunk materialized in the vector store.
type Point struct {
	ID          string
	DocumentID  string
	NamespaceID string
	Text        string
	ChunkIndex  int
	Vector      []float32
}

type Match struct {
	DocumentID string  `json:"document_id"`
	ChunkText  string  `json:"chunk_text"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float32 `json:"score"`
}

// Backend performs data-plane operations against one class (collection).
// NearVector returns matches ordered by descending score.
type Backend interface {
	WritePoints(ctx context.Context, class string, points []Point) error
	DeleteByDocument(ctx context.Context, class, documentID string) error
	NearVector(ctx context.Context, class string, vector []float32, limit int) ([]Match, error)
	Count(ctx context.Context, class, documentID string) (int, error)
}

// ResultCache is the search result cache consulted by Store.Search.
type ResultCache interface {
	Get(ctx context.Context, namespace, query string, topK int) ([]Match, bool)
	Put(ctx context.Context, namespace, query string, topK int, matches []Match)
	Invalidate(ctx context.Context, namespace string)
}

type nopResultCache struct{}

func (nopResultCache) Get(context.Context, string, string, int) ([]Match, bool) { return nil, false }
func (nopResultCache) Put(context.Context, string, string, int, []Match)        {}
func (nopResultCache) Invalidate(context.Context, string)                       {}
