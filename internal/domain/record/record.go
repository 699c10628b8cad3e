// Package record holds the EmbeddingRecord aggregate: an immutable value
// object pairing a URL's extracted content with its embedding vector and
// retrieval metadata, the unit the vector store indexes and searches over.
package record

import (
	"fmt"
	"net/url"
	"time"
)

// MaxContentSize is the maximum content size embedded per record, matched to
// the embedding provider's context window budget rather than storage limits.
const MaxContentSize = 262144 // 256KB

// EmbeddingRecord is the vector store's aggregate root (immutable value
// object). One record per (url, contentHash): a re-fetch that produces
// identical content does not create a duplicate.
type EmbeddingRecord struct {
	id          string
	sourceURL   string
	hostname    string
	content     string
	contentHash string
	title       string
	tags        map[string]string
	vector      []float32
	fetchedAt   time.Time
	tier        string
	revision    int
}

// New validates and creates an EmbeddingRecord. sourceURL must parse and
// carry a host; content must be non-empty and within MaxContentSize.
func New(
	id, sourceURL, content, contentHash, title string, tags map[string]string,
	tier string, fetchedAt time.Time,
) (EmbeddingRecord, error) {
	if id == "" {
		return EmbeddingRecord{}, fmt.Errorf("record ID is required")
	}
	if content == "" {
		return EmbeddingRecord{}, fmt.Errorf("content is required")
	}
	if len(content) > MaxContentSize {
		return EmbeddingRecord{}, fmt.Errorf("content too large (max %d bytes)", MaxContentSize)
	}
	u, err := url.Parse(sourceURL)
	if err != nil {
		return EmbeddingRecord{}, fmt.Errorf("invalid source URL: %w", err)
	}
	if u.Hostname() == "" {
		return EmbeddingRecord{}, fmt.Errorf("source URL must have a host")
	}
	if contentHash == "" {
		return EmbeddingRecord{}, fmt.Errorf("content hash is required")
	}

	return EmbeddingRecord{
		id:          id,
		sourceURL:   sourceURL,
		hostname:    u.Hostname(),
		content:     content,
		contentHash: contentHash,
		title:       title,
		tags:        cloneStringMap(tags),
		fetchedAt:   fetchedAt,
		tier:        tier,
		revision:    1,
	}, nil
}

// Reconstruct creates an EmbeddingRecord without validation (storage
// hydration).
func Reconstruct(
	id, sourceURL, hostname, content, contentHash, title string, tags map[string]string,
	vector []float32, tier string, fetchedAt time.Time, revision int,
) EmbeddingRecord {
	return EmbeddingRecord{
		id: id, sourceURL: sourceURL, hostname: hostname, content: content,
		contentHash: contentHash, title: title, tags: tags, vector: vector,
		tier: tier, fetchedAt: fetchedAt, revision: revision,
	}
}

// ID returns the record identifier.
func (r *EmbeddingRecord) ID() string { return r.id }

// SourceURL returns the fetched URL.
func (r *EmbeddingRecord) SourceURL() string { return r.sourceURL }

// Hostname returns the fetched URL's host, used as the vector store's
// partitioning key for per-domain filtered search.
func (r *EmbeddingRecord) Hostname() string { return r.hostname }

// Content returns the extracted text content that was embedded.
func (r *EmbeddingRecord) Content() string { return r.content }

// ContentHash returns the content's dedup hash.
func (r *EmbeddingRecord) ContentHash() string { return r.contentHash }

// Title returns the extracted page title.
func (r *EmbeddingRecord) Title() string { return r.title }

// Tags returns arbitrary retrieval metadata (e.g. extractor template used).
func (r *EmbeddingRecord) Tags() map[string]string { return r.tags }

// Vector returns the embedding vector, nil until WithVector is applied.
func (r *EmbeddingRecord) Vector() []float32 { return r.vector }

// Tier returns which cascade tier produced the content this record embeds.
func (r *EmbeddingRecord) Tier() string { return r.tier }

// FetchedAt returns when the content was fetched.
func (r *EmbeddingRecord) FetchedAt() time.Time { return r.fetchedAt }

// Revision returns the record revision number.
func (r *EmbeddingRecord) Revision() int { return r.revision }

// WithVector returns a copy with the given embedding vector set.
func (r *EmbeddingRecord) WithVector(v []float32) EmbeddingRecord {
	c := *r
	c.vector = v
	return c
}

// Superseded returns a copy representing a re-fetch: same identity and URL,
// new content/hash/vector, incremented revision.
func (r *EmbeddingRecord) Superseded(content, contentHash, title string, fetchedAt time.Time, tier string) EmbeddingRecord {
	c := *r
	c.content = content
	c.contentHash = contentHash
	c.title = title
	c.fetchedAt = fetchedAt
	c.tier = tier
	c.vector = nil
	c.revision++
	return c
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
