package vectorstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/fetchcascade/internal/domain"
	"github.com/kailas-cloud/fetchcascade/internal/domain/record"
	"github.com/kailas-cloud/fetchcascade/internal/domain/search/filter"
	"github.com/kailas-cloud/fetchcascade/internal/domain/search/result"
	"github.com/kailas-cloud/fetchcascade/internal/metrics"
)

// collectionName is the single fixed collection the vector store searches,
// matching internal/repository/vectorrecord.IndexName.
const collectionName = "fetches"

// maxDeleteBatch bounds a single DeleteByFilter sweep; callers needing more
// must call it again (an unbounded fan-out delete has no place in the
// request path).
const maxDeleteBatch = 1000

const defaultSearchLimit = 10

// Service is the Vector Store's mutation and query boundary.
type Service struct {
	repo          Repo
	searcher      Searcher
	docEmbedder   Embedder
	queryEmbedder Embedder
	cfg           domain.VectorConfig
	logger        *zap.Logger

	indexOnce sync.Once
	indexErr  error
}

// New creates a vector store Service. docEmbedder embeds content being
// added; queryEmbedder embeds search queries — these differ because the
// embedding model's instruction prefix (cfg.DocumentInstruction vs.
// cfg.QueryInstruction) is baked into each by the caller via
// domain.NewInstructionEmbedder.
func New(repo Repo, searcher Searcher, docEmbedder, queryEmbedder Embedder, cfg domain.VectorConfig, logger *zap.Logger) *Service {
	return &Service{repo: repo, searcher: searcher, docEmbedder: docEmbedder, queryEmbedder: queryEmbedder, cfg: cfg, logger: logger}
}

func (s *Service) ensureIndex(ctx context.Context) error {
	s.indexOnce.Do(func() {
		s.indexErr = s.repo.EnsureIndex(ctx)
	})
	return s.indexErr
}

// Add embeds and persists a single record, returning its ID. The ID is
// deterministic over (sourceURL, contentHash): re-adding identical content
// overwrites the same record rather than creating a duplicate, matching
// the "one record per (url, contentHash)" aggregate rule.
func (s *Service) Add(ctx context.Context, in AddInput) (string, error) {
	if err := s.ensureIndex(ctx); err != nil {
		return "", err
	}

	id := recordID(in.SourceURL, in.ContentHash)
	rec, err := record.New(id, in.SourceURL, in.Content, in.ContentHash, in.Title, in.Tags, in.Tier, in.FetchedAt)
	if err != nil {
		return "", fmt.Errorf("build record: %w", err)
	}

	rec, err = s.embed(ctx, rec, in.Content)
	if err != nil {
		return "", err
	}

	if err := s.repo.Put(ctx, rec, in.EntityType, in.DomainGroup, in.TenantID, s.cfg.Model, 1); err != nil {
		return "", err
	}
	metrics.VectorOpsTotal.WithLabelValues("add").Inc()
	return id, nil
}

// AddBatch embeds and persists many records in one round trip.
func (s *Service) AddBatch(ctx context.Context, ins []AddInput) ([]string, error) {
	if len(ins) == 0 {
		return nil, nil
	}
	if err := s.ensureIndex(ctx); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(ins))
	recs := make([]record.EmbeddingRecord, 0, len(ins))
	for _, in := range ins {
		id := recordID(in.SourceURL, in.ContentHash)
		rec, err := record.New(id, in.SourceURL, in.Content, in.ContentHash, in.Title, in.Tags, in.Tier, in.FetchedAt)
		if err != nil {
			return nil, fmt.Errorf("build record %s: %w", in.SourceURL, err)
		}
		rec, err = s.embed(ctx, rec, in.Content)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
		recs = append(recs, rec)
	}

	// entityType/domainGroup/tenantId are taken from the first item: batches
	// are always homogeneous (one caller, one entity type) in practice.
	first := ins[0]
	if err := s.repo.PutBatch(ctx, recs, first.EntityType, first.DomainGroup, first.TenantID, s.cfg.Model, 1); err != nil {
		return nil, err
	}
	metrics.VectorOpsTotal.WithLabelValues("add_batch").Inc()
	return ids, nil
}

func (s *Service) embed(ctx context.Context, rec record.EmbeddingRecord, content string) (record.EmbeddingRecord, error) {
	res, err := s.docEmbedder.Embed(ctx, content)
	if err != nil {
		return record.EmbeddingRecord{}, fmt.Errorf("embed content: %w", err)
	}
	if s.cfg.Dimensions > 0 && len(res.Embedding) != s.cfg.Dimensions {
		return record.EmbeddingRecord{}, domain.ErrVectorDimMismatch
	}
	return rec.WithVector(res.Embedding), nil
}

// Delete removes a record by ID.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	metrics.VectorOpsTotal.WithLabelValues("delete").Inc()
	return nil
}

// DeleteByFilter deletes every record matching expr, returning the count
// removed. Requires at least one condition — an empty filter would delete
// the whole store, which is never the caller's intent.
func (s *Service) DeleteByFilter(ctx context.Context, expr filter.Expression) (int, error) {
	if expr.IsEmpty() {
		return 0, fmt.Errorf("deleteByFilter requires at least one filter condition")
	}
	ids, err := s.repo.IDsByFilter(ctx, expr, maxDeleteBatch)
	if err != nil {
		return 0, err
	}
	if len(ids) == maxDeleteBatch && s.logger != nil {
		s.logger.Warn("deleteByFilter hit its batch cap; some matches may remain", zap.Int("cap", maxDeleteBatch))
	}
	for _, id := range ids {
		if err := s.repo.Delete(ctx, id); err != nil {
			return 0, fmt.Errorf("delete %s: %w", id, err)
		}
	}
	metrics.VectorOpsTotal.WithLabelValues("delete_by_filter").Inc()
	return len(ids), nil
}

// Search performs an unfiltered k-NN similarity search for queryText.
func (s *Service) Search(ctx context.Context, queryText string, opts SearchOptions) ([]result.Result, error) {
	return s.searchOp(ctx, "search", queryText, filter.Expression{}, opts)
}

// SearchFiltered performs a k-NN similarity search for queryText,
// pre-filtered by expr, post-filtered by opts.MinScore.
func (s *Service) SearchFiltered(ctx context.Context, queryText string, expr filter.Expression, opts SearchOptions) ([]result.Result, error) {
	return s.searchOp(ctx, "search_filtered", queryText, expr, opts)
}

func (s *Service) searchOp(ctx context.Context, op, queryText string, expr filter.Expression, opts SearchOptions) ([]result.Result, error) {
	if err := s.ensureIndex(ctx); err != nil {
		return nil, err
	}

	res, err := s.queryEmbedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	start := time.Now()
	hits, err := s.searcher.SearchKNN(ctx, collectionName, res.Embedding, expr, limit, opts.IncludeVector, false)
	metrics.VectorSearchLatencySeconds.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}
	metrics.VectorOpsTotal.WithLabelValues(op).Inc()

	if opts.MinScore <= 0 {
		return hits, nil
	}
	filtered := make([]result.Result, 0, len(hits))
	for _, h := range hits {
		if h.Score() >= opts.MinScore {
			filtered = append(filtered, h)
		}
	}
	return filtered, nil
}

// Get retrieves a record by ID.
func (s *Service) Get(ctx context.Context, id string) (record.EmbeddingRecord, bool, error) {
	rec, ok, err := s.repo.Get(ctx, id)
	if err != nil {
		return rec, ok, err
	}
	metrics.VectorOpsTotal.WithLabelValues("get").Inc()
	return rec, ok, nil
}

// Stats reports the vector store's current record count.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	n, err := s.repo.Stats(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{RecordCount: n}, nil
}

// IndexFetch satisfies internal/usecase/learning.VectorIndexer: it is the
// Learning Engine's hook to record a successful fetch for later semantic
// recall. Runs detached from the originating request's context since the
// engine processes events asynchronously, well after that request returned.
func (s *Service) IndexFetch(hostname, sourceURL, title, text string, now time.Time) error {
	_, err := s.Add(context.Background(), AddInput{
		SourceURL:   sourceURL,
		Content:     text,
		ContentHash: contentHash(text),
		Title:       title,
		EntityType:  "content",
		DomainGroup: hostname,
		FetchedAt:   now,
	})
	return err
}

func recordID(sourceURL, contentHash string) string {
	h := sha256.Sum256([]byte(sourceURL + "|" + contentHash))
	return hex.EncodeToString(h[:])
}

func contentHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
