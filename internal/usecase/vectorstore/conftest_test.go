package vectorstore

import (
	"context"
	"errors"

	"github.com/kailas-cloud/fetchcascade/internal/domain"
	"github.com/kailas-cloud/fetchcascade/internal/domain/record"
	"github.com/kailas-cloud/fetchcascade/internal/domain/search/filter"
	"github.com/kailas-cloud/fetchcascade/internal/domain/search/result"
)

type fakeRepo struct {
	records       map[string]record.EmbeddingRecord
	ensureCalls   int
	ensureErr     error
	putBatchCalls int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[string]record.EmbeddingRecord)}
}

func (r *fakeRepo) EnsureIndex(ctx context.Context) error {
	r.ensureCalls++
	return r.ensureErr
}

func (r *fakeRepo) Put(ctx context.Context, rec record.EmbeddingRecord, entityType, domainGroup, tenantID, model string, version int) error {
	r.records[rec.ID()] = rec
	return nil
}

func (r *fakeRepo) PutBatch(ctx context.Context, recs []record.EmbeddingRecord, entityType, domainGroup, tenantID, model string, version int) error {
	r.putBatchCalls++
	for _, rec := range recs {
		r.records[rec.ID()] = rec
	}
	return nil
}

func (r *fakeRepo) Get(ctx context.Context, id string) (record.EmbeddingRecord, bool, error) {
	rec, ok := r.records[id]
	return rec, ok, nil
}

func (r *fakeRepo) Delete(ctx context.Context, id string) error {
	delete(r.records, id)
	return nil
}

func (r *fakeRepo) IDsByFilter(ctx context.Context, expr filter.Expression, limit int) ([]string, error) {
	var ids []string
	for id, rec := range r.records {
		match := true
		for _, cond := range expr.Must() {
			if cond.Key() == "domain_group" && rec.Hostname() != cond.Match() {
				match = false
			}
		}
		if match {
			ids = append(ids, id)
		}
		if limit > 0 && len(ids) >= limit {
			break
		}
	}
	return ids, nil
}

func (r *fakeRepo) Stats(ctx context.Context) (int, error) {
	return len(r.records), nil
}

type fakeSearcher struct {
	lastVector []float32
	lastFilter filter.Expression
	results    []result.Result
	err        error
}

func (s *fakeSearcher) SearchKNN(ctx context.Context, collectionName string, vector []float32, filters filter.Expression, topK int, includeVectors bool, rawScores bool) ([]result.Result, error) {
	s.lastVector = vector
	s.lastFilter = filters
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

type fakeEmbedder struct {
	dim       int
	embedErr  error
	embedText []string
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	e.embedText = append(e.embedText, text)
	if e.embedErr != nil {
		return domain.EmbeddingResult{}, e.embedErr
	}
	vec := make([]float32, e.dim)
	for i := range vec {
		vec[i] = float32(i) * 0.01
	}
	return domain.EmbeddingResult{Embedding: vec, TotalTokens: len(text)}, nil
}

var errEmbed = errors.New("embed failed")
