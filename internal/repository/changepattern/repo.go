// Package changepattern persists the Content-Change Predictor's aggregates
// to change-predictions.json, keyed by "{domain}:{urlPattern}", via the
// same debounced atomic-write discipline as the pattern registry.
package changepattern

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	domainchangepattern "github.com/kailas-cloud/fetchcascade/internal/domain/changepattern"
	"github.com/kailas-cloud/fetchcascade/internal/store"
)

func key(domain, urlPattern string) string {
	return fmt.Sprintf("%s:%s", domain, urlPattern)
}

// Repo is an in-memory, persisted map of ContentChangePattern keyed by
// (domain, url-pattern): distinct keys are updated without contention, per
// §5's per-key independence rule.
type Repo struct {
	mu       sync.RWMutex
	byKey    map[string]*domainchangepattern.ContentChangePattern
	persist  *store.Store
	path     string
}

// New creates a Repo persisting to path, debounced by debounceMs.
func New(path string, debounceMs int, logger *zap.Logger) *Repo {
	r := &Repo{
		byKey: make(map[string]*domainchangepattern.ContentChangePattern),
		path:  path,
	}
	debounce := time.Duration(debounceMs) * time.Millisecond
	if debounce <= 0 {
		debounce = 5 * time.Second
	}
	r.persist = store.New(path, debounce, r.snapshot, logger)
	return r
}

// Load hydrates the repo from the persisted JSON file, if present.
func (r *Repo) Load() error {
	var m map[string]*domainchangepattern.ContentChangePattern
	ok, err := store.LoadJSON(r.path, &m)
	if err != nil {
		return fmt.Errorf("load change patterns: %w", err)
	}
	if !ok {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range m {
		r.byKey[k] = v
	}
	return nil
}

// GetOrCreate returns the existing pattern for (domain, urlPattern), or
// creates and registers a fresh one.
func (r *Repo) GetOrCreate(domain, urlPattern string, now time.Time) *domainchangepattern.ContentChangePattern {
	k := key(domain, urlPattern)

	r.mu.RLock()
	existing, ok := r.byKey[k]
	r.mu.RUnlock()
	if ok {
		return existing
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byKey[k]; ok {
		return existing
	}
	p := domainchangepattern.NewContentChangePattern(k, domain, urlPattern, now)
	r.byKey[k] = p
	return p
}

// Save arms a debounced persisted write after a mutation.
func (r *Repo) Save() {
	r.persist.Save()
}

// All returns every tracked pattern, used by the predictor's periodic
// urgency sweep.
func (r *Repo) All() []*domainchangepattern.ContentChangePattern {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domainchangepattern.ContentChangePattern, 0, len(r.byKey))
	for _, p := range r.byKey {
		out = append(out, p)
	}
	return out
}

// Flush forces an immediate persisted write.
func (r *Repo) Flush() error {
	return r.persist.Flush()
}

// Close flushes and releases the debounce timer.
func (r *Repo) Close() error {
	return r.persist.Close()
}

func (r *Repo) snapshot() (any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*domainchangepattern.ContentChangePattern, len(r.byKey))
	for k, v := range r.byKey {
		out[k] = v
	}
	return out, nil
}
