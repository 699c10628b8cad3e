// Package vectorrecord persists EmbeddingRecord rows as Redis/Valkey
// hashes behind a single fixed FT index, mirroring the teacher's
// collection/document repositories but collapsed to one schema since the
// vector store (spec C2) has exactly one record shape rather than a
// caller-defined one.
package vectorrecord

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/fetchcascade/internal/db"
	"github.com/kailas-cloud/fetchcascade/internal/domain"
	"github.com/kailas-cloud/fetchcascade/internal/domain/record"
	"github.com/kailas-cloud/fetchcascade/internal/domain/search/filter"
)

// IndexName is the single FT index backing the vector store.
const IndexName = domain.KeyPrefix + "fetches:idx"

const keyPrefix = domain.KeyPrefix + "fetches:"

// store is the consumer interface for the vector record repository (ISP).
//
//nolint:interfacebloat // needs hash + index + search operations, same as the teacher's collection repo
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchList(ctx context.Context, index, query string, offset, limit int, fields []string) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Repo implements vectorstore.Repo.
type Repo struct {
	store     store
	vectorDim int
	hnswM     int
	hnswEF    int
}

// New creates a vector record repository. vectorDim must match the
// configured embedding model's output size; mismatched vectors are
// rejected by the domain layer before they ever reach here.
func New(s store, vectorDim int) *Repo {
	return &Repo{store: s, vectorDim: vectorDim, hnswM: 32, hnswEF: 400}
}

// WithHNSW overrides the default HNSW build parameters.
func (r *Repo) WithHNSW(m, efConstruct int) *Repo {
	if m > 0 {
		r.hnswM = m
	}
	if efConstruct > 0 {
		r.hnswEF = efConstruct
	}
	return r
}

// EnsureIndex creates the backing FT index if it does not already exist.
// Idempotent: safe to call on every startup.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, IndexName)
	if err != nil {
		return fmt.Errorf("check index exists: %w", err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:        IndexName,
		StorageType: db.StorageHash,
		Prefixes:    []string{keyPrefix},
		Fields: []db.IndexField{
			{Name: "hostname", Type: db.IndexFieldTag},
			{Name: "entity_type", Type: db.IndexFieldTag},
			{Name: "domain_group", Type: db.IndexFieldTag},
			{Name: "tenant_id", Type: db.IndexFieldTag},
			{Name: "model", Type: db.IndexFieldTag},
			{Name: "version", Type: db.IndexFieldNumeric},
			{Name: "created_at", Type: db.IndexFieldNumeric},
			{
				Name: "__vector", Alias: "vector", Type: db.IndexFieldVector,
				VectorAlgo: db.VectorHNSW, VectorDim: r.vectorDim, VectorDistance: db.DistanceCosine,
				VectorM: r.hnswM, VectorEFConstruct: r.hnswEF,
			},
		},
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		return fmt.Errorf("create fetches index: %w", err)
	}
	return nil
}

// Put upserts a record, keyed by ID.
func (r *Repo) Put(ctx context.Context, rec record.EmbeddingRecord, entityType, domainGroup, tenantID, model string, version int) error {
	fields := toHash(rec, entityType, domainGroup, tenantID, model, version)
	if err := r.store.HSet(ctx, key(rec.ID()), fields); err != nil {
		return fmt.Errorf("hset record %s: %w", rec.ID(), err)
	}
	return nil
}

// PutBatch upserts many records in one round trip.
func (r *Repo) PutBatch(ctx context.Context, recs []record.EmbeddingRecord, entityType, domainGroup, tenantID, model string, version int) error {
	items := make([]db.HashSetItem, 0, len(recs))
	for _, rec := range recs {
		items = append(items, db.HashSetItem{Key: key(rec.ID()), Fields: toHash(rec, entityType, domainGroup, tenantID, model, version)})
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("hset multi records: %w", err)
	}
	return nil
}

// Get retrieves a record by ID.
func (r *Repo) Get(ctx context.Context, id string) (record.EmbeddingRecord, bool, error) {
	m, err := r.store.HGetAll(ctx, key(id))
	if err != nil {
		return record.EmbeddingRecord{}, false, fmt.Errorf("hgetall record %s: %w", id, err)
	}
	if len(m) == 0 {
		return record.EmbeddingRecord{}, false, nil
	}
	rec, err := fromHash(id, m)
	if err != nil {
		return record.EmbeddingRecord{}, false, err
	}
	return rec, true, nil
}

// Delete removes a record by ID. Deleting an absent ID is not an error.
func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, key(id)); err != nil {
		return fmt.Errorf("del record %s: %w", id, err)
	}
	return nil
}

// IDsByFilter returns the IDs of every record matching expr, up to limit.
// Used by DeleteByFilter; a pure tag/numeric match, no vector involved.
func (r *Repo) IDsByFilter(ctx context.Context, expr filter.Expression, limit int) ([]string, error) {
	q := buildTagQuery(expr)
	sr, err := r.store.SearchList(ctx, IndexName, q, 0, limit, nil)
	if err != nil {
		return nil, fmt.Errorf("search list by filter: %w", err)
	}
	if sr == nil || sr.Total == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		ids = append(ids, strings.TrimPrefix(e.Key, keyPrefix))
	}
	return ids, nil
}

// Stats returns the total number of records currently indexed.
func (r *Repo) Stats(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, IndexName, "*")
	if err != nil {
		return 0, fmt.Errorf("search count: %w", err)
	}
	return n, nil
}

func key(id string) string { return keyPrefix + id }

func toHash(rec record.EmbeddingRecord, entityType, domainGroup, tenantID, model string, version int) map[string]string {
	fields := map[string]string{
		"source_url":   rec.SourceURL(),
		"hostname":     rec.Hostname(),
		"__content":    rec.Content(),
		"content_hash": rec.ContentHash(),
		"title":        rec.Title(),
		"tier":         rec.Tier(),
		"revision":     strconv.Itoa(rec.Revision()),
		"entity_type":  entityType,
		"domain_group": domainGroup,
		"tenant_id":    tenantID,
		"model":        model,
		"version":      strconv.Itoa(version),
		"created_at":   strconv.FormatInt(rec.FetchedAt().Unix(), 10),
		"__vector":     vectorToBytes(rec.Vector()),
	}
	for k, v := range rec.Tags() {
		fields["tag_"+k] = v
	}
	return fields
}

func fromHash(id string, m map[string]string) (record.EmbeddingRecord, error) {
	revision, _ := strconv.Atoi(m["revision"])
	createdAtUnix, _ := strconv.ParseInt(m["created_at"], 10, 64)
	tags := make(map[string]string)
	for k, v := range m {
		if strings.HasPrefix(k, "tag_") {
			tags[strings.TrimPrefix(k, "tag_")] = v
		}
	}
	vec := bytesToVector(m["__vector"])

	rec := record.Reconstruct(
		id, m["source_url"], m["hostname"], m["__content"], m["content_hash"], m["title"],
		tags, vec, m["tier"], time.Unix(createdAtUnix, 0).UTC(), revision,
	)
	return rec, nil
}

// buildTagQuery translates a tag/numeric filter into an FT.SEARCH query
// string. Only equality (must) conditions are supported: deleteByFilter
// only ever needs to select by entityType/domain/hostname/tenantId, never
// ranked relevance, so should/mustNot groups are intentionally omitted.
func buildTagQuery(expr filter.Expression) string {
	if expr.IsEmpty() {
		return "*"
	}
	parts := make([]string, 0, len(expr.Must()))
	for _, cond := range expr.Must() {
		if cond.IsMatch() {
			parts = append(parts, fmt.Sprintf("@%s:{%s}", cond.Key(), escapeTag(cond.Match())))
		}
	}
	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, " ")
}

var tagEscaper = strings.NewReplacer(
	",", "\\,", ".", "\\.", "<", "\\<", ">", "\\>", "{", "\\{", "}", "\\}",
	"\"", "\\\"", "'", "\\'", ":", "\\:", ";", "\\;", "@", "\\@", "-", "\\-",
)

func escapeTag(s string) string { return tagEscaper.Replace(s) }

func vectorToBytes(v []float32) string {
	if len(v) == 0 {
		return ""
	}
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
