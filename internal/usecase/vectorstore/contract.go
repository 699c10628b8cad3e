// Package vectorstore implements the Vector Store (C2): an append-only
// embedding index over fetched content, searched by cosine similarity with
// optional metadata filters. It is the Learning Engine's indexing target
// (internal/usecase/learning.VectorIndexer) and the programmatic façade's
// (C11) backing store for semantic recall.
package vectorstore

import (
	"context"
	"time"

	"github.com/kailas-cloud/fetchcascade/internal/domain"
	"github.com/kailas-cloud/fetchcascade/internal/domain/record"
	"github.com/kailas-cloud/fetchcascade/internal/domain/search/filter"
	"github.com/kailas-cloud/fetchcascade/internal/domain/search/result"
)

// Repo is the consumer interface onto the backing record store (ISP).
type Repo interface {
	EnsureIndex(ctx context.Context) error
	Put(ctx context.Context, rec record.EmbeddingRecord, entityType, domainGroup, tenantID, model string, version int) error
	PutBatch(ctx context.Context, recs []record.EmbeddingRecord, entityType, domainGroup, tenantID, model string, version int) error
	Get(ctx context.Context, id string) (record.EmbeddingRecord, bool, error)
	Delete(ctx context.Context, id string) error
	IDsByFilter(ctx context.Context, expr filter.Expression, limit int) ([]string, error)
	Stats(ctx context.Context) (int, error)
}

// Searcher is the consumer interface onto the KNN search backend.
type Searcher interface {
	SearchKNN(ctx context.Context, collectionName string, vector []float32, filters filter.Expression, topK int, includeVectors bool, rawScores bool) ([]result.Result, error)
}

// Embedder is the consumer interface onto a text embedding provider.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// AddInput is the input to Add/AddBatch.
type AddInput struct {
	SourceURL   string
	Content     string
	ContentHash string
	Title       string
	Tags        map[string]string
	Tier        string
	EntityType  string // pattern | skill | content | domain
	DomainGroup string
	TenantID    string
	FetchedAt   time.Time
}

// SearchOptions tunes a Search/SearchFiltered call.
type SearchOptions struct {
	Limit         int
	MinScore      float64
	IncludeVector bool
}

// Stats summarizes the vector store's current size.
type Stats struct {
	RecordCount int
}
