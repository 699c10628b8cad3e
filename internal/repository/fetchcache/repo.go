// Package fetchcache backs the intelligence tier's "serve from cache when
// not due to change" path (spec §4.1): a small JSON-blob key-value cache of
// the last successful fetch per URL, keyed independently of the vector
// store's content-addressed EmbeddingRecord IDs since a cache lookup must
// work before the new content's hash is known. Modeled directly on
// internal/repository/embcache's decorator-over-a-KV-store shape.
package fetchcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/fetchcascade/internal/db"
	"github.com/kailas-cloud/fetchcascade/internal/domain"
)

var keyPrefix = domain.KeyPrefix + "fetch_cache:"

// store is the consumer interface for the fetch cache (ISP): same shape as
// embcache's, so both decorators can share a single backing KV driver.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Entry is the cached shape of a prior successful fetch.
type Entry struct {
	Title       string            `json:"title"`
	Text        string            `json:"text"`
	Markdown    string            `json:"markdown"`
	HTML        string            `json:"html,omitempty"`
	ContentHash string            `json:"content_hash"`
	Structured  map[string]string `json:"structured,omitempty"`
}

// Repo is the fetch cache's persistence layer.
type Repo struct {
	store store
}

// New creates a Repo over a backing KV store.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Get returns the cached entry for rawURL, if any.
func (r *Repo) Get(ctx context.Context, rawURL string) (Entry, bool, error) {
	raw, err := r.store.Get(ctx, cacheKey(rawURL))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("get fetch cache %s: %w", rawURL, err)
	}
	if len(raw) == 0 {
		return Entry{}, false, nil
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, fmt.Errorf("decode fetch cache entry: %w", err)
	}
	return e, true, nil
}

// Put stores entry for rawURL, overwriting any prior value.
func (r *Repo) Put(ctx context.Context, rawURL string, entry Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode fetch cache entry: %w", err)
	}
	if err := r.store.Set(ctx, cacheKey(rawURL), raw); err != nil {
		return fmt.Errorf("set fetch cache %s: %w", rawURL, err)
	}
	return nil
}

func cacheKey(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return keyPrefix + hex.EncodeToString(sum[:])
}
