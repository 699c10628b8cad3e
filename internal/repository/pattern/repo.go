// Package pattern implements the API Pattern Registry's persistence layer:
// an in-memory index over LearnedApiPattern keyed by hostname (per the
// match algorithm's "host index first, cross-domain scan only when empty"
// rule), backed by a debounced atomic JSON file via internal/store.
package pattern

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	domainpattern "github.com/kailas-cloud/fetchcascade/internal/domain/pattern"
	"github.com/kailas-cloud/fetchcascade/internal/store"
)

// record is the JSON-serializable shape persisted to learned-patterns.json.
// LearnedApiPattern itself isn't (de)serializable directly since URLRegex is
// a *regexp.Regexp and Extractors carry compiled regexes too.
type record struct {
	ID               string                       `json:"id"`
	Hostname         string                       `json:"hostname"`
	URLRegex         string                       `json:"url_regex"`
	TemplateType     domainpattern.Template       `json:"template_type"`
	EndpointTemplate string                       `json:"endpoint_template"`
	Method           string                       `json:"method"`
	Headers          map[string]string            `json:"headers"`
	Extractors       []extractorRecord            `json:"extractors"`
	Mapping          domainpattern.ContentMapping `json:"mapping"`
	Validation       domainpattern.ValidationSpec `json:"validation"`
	SuccessCount     int                          `json:"success_count"`
	FailureCount     int                          `json:"failure_count"`
	AvgResponseTimeMs float64                     `json:"avg_response_time_ms"`
	LastFailureReason string                      `json:"last_failure_reason"`
	Coverage         []string                     `json:"coverage"`
	CreatedAt        time.Time                    `json:"created_at"`
	LastSuccess      time.Time                    `json:"last_success"`
	Source           domainpattern.Source         `json:"source"`
}

type extractorRecord struct {
	Name      string                      `json:"name"`
	Source    domainpattern.ExtractSource `json:"source"`
	Pattern   string                      `json:"pattern"`
	Group     int                         `json:"group"`
	Transform domainpattern.Transform     `json:"transform"`
}

// Repo is the registry's in-memory, persisted pattern index.
type Repo struct {
	mu         sync.RWMutex
	byID       map[string]*domainpattern.LearnedApiPattern
	byHostname map[string][]*domainpattern.LearnedApiPattern

	persist *store.Store
	logger  *zap.Logger
	path    string
}

// New creates a Repo persisting to path, debounced by debounceMs.
func New(path string, debounceMs int, logger *zap.Logger) *Repo {
	r := &Repo{
		byID:       make(map[string]*domainpattern.LearnedApiPattern),
		byHostname: make(map[string][]*domainpattern.LearnedApiPattern),
		logger:     logger,
		path:       path,
	}
	debounce := time.Duration(debounceMs) * time.Millisecond
	if debounce <= 0 {
		debounce = 5 * time.Second
	}
	r.persist = store.New(path, debounce, r.snapshot, logger)
	return r
}

// Load hydrates the registry from the persisted JSON file, if present.
func (r *Repo) Load() error {
	var recs []record
	ok, err := store.LoadJSON(r.path, &recs)
	if err != nil {
		return fmt.Errorf("load patterns: %w", err)
	}
	if !ok {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range recs {
		p, err := fromRecord(rec)
		if err != nil {
			if r.logger != nil {
				r.logger.Warn("dropping unparseable persisted pattern", zap.String("id", rec.ID), zap.Error(err))
			}
			continue
		}
		r.insertLocked(p)
	}
	return nil
}

// Put inserts or replaces a pattern and arms a debounced save.
func (r *Repo) Put(p *domainpattern.LearnedApiPattern) {
	r.mu.Lock()
	r.insertLocked(p)
	r.mu.Unlock()
	r.persist.Save()
}

func (r *Repo) insertLocked(p *domainpattern.LearnedApiPattern) {
	if existing, ok := r.byID[p.ID]; ok {
		r.removeFromHostIndexLocked(existing)
	}
	r.byID[p.ID] = p
	r.byHostname[p.Hostname] = append(r.byHostname[p.Hostname], p)
}

// Delete removes a pattern by id and arms a debounced save.
func (r *Repo) Delete(id string) {
	r.mu.Lock()
	if p, ok := r.byID[id]; ok {
		r.removeFromHostIndexLocked(p)
		delete(r.byID, id)
	}
	r.mu.Unlock()
	r.persist.Save()
}

func (r *Repo) removeFromHostIndexLocked(p *domainpattern.LearnedApiPattern) {
	list := r.byHostname[p.Hostname]
	for i, other := range list {
		if other.ID == p.ID {
			r.byHostname[p.Hostname] = append(list[:i], list[i+1:]...)
			break
		}
	}
}

// Get returns a pattern by id.
func (r *Repo) Get(id string) (*domainpattern.LearnedApiPattern, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	return p, ok
}

// ForHostname returns every pattern indexed under hostname (may be empty).
func (r *Repo) ForHostname(hostname string) []*domainpattern.LearnedApiPattern {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.byHostname[hostname]
	out := make([]*domainpattern.LearnedApiPattern, len(list))
	copy(out, list)
	return out
}

// All returns every pattern in the registry, used for the cross-domain scan
// fallback when a host's own index is empty.
func (r *Repo) All() []*domainpattern.LearnedApiPattern {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domainpattern.LearnedApiPattern, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p)
	}
	return out
}

// Count returns the number of patterns currently held.
func (r *Repo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// IsEmpty reports whether the registry holds no patterns at all, used to
// gate the one-time bootstrap seeding.
func (r *Repo) IsEmpty() bool {
	return r.Count() == 0
}

// Flush forces an immediate persisted write, bypassing the debounce timer.
func (r *Repo) Flush() error {
	return r.persist.Flush()
}

// Close flushes and releases the underlying debounce timer.
func (r *Repo) Close() error {
	return r.persist.Close()
}

func (r *Repo) snapshot() (any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	recs := make([]record, 0, len(r.byID))
	for _, p := range r.byID {
		recs = append(recs, toRecord(p))
	}
	return recs, nil
}

func toRecord(p *domainpattern.LearnedApiPattern) record {
	coverage := make([]string, 0, len(p.Coverage))
	for d := range p.Coverage {
		coverage = append(coverage, d)
	}
	extractors := make([]extractorRecord, 0, len(p.Extractors))
	for _, e := range p.Extractors {
		extractors = append(extractors, extractorRecord{
			Name: e.Name(), Source: e.Source(), Pattern: e.Pattern(),
			Group: e.Group(), Transform: e.TransformKind(),
		})
	}
	return record{
		ID: p.ID, Hostname: p.Hostname, URLRegex: p.URLRegex.String(),
		TemplateType: p.TemplateType, EndpointTemplate: p.EndpointTemplate,
		Method: p.Method, Headers: p.Headers, Extractors: extractors,
		Mapping: p.Mapping, Validation: p.Validation,
		SuccessCount: p.SuccessCount, FailureCount: p.FailureCount,
		AvgResponseTimeMs: p.AvgResponseTimeMs, LastFailureReason: p.LastFailureReason,
		Coverage: coverage, CreatedAt: p.CreatedAt, LastSuccess: p.LastSuccess,
		Source: p.Source,
	}
}

func fromRecord(rec record) (*domainpattern.LearnedApiPattern, error) {
	extractors := make([]domainpattern.VariableExtractor, 0, len(rec.Extractors))
	for _, e := range rec.Extractors {
		ve, err := domainpattern.NewVariableExtractor(e.Name, e.Source, e.Pattern, e.Group, e.Transform)
		if err != nil {
			return nil, fmt.Errorf("extractor %q: %w", e.Name, err)
		}
		extractors = append(extractors, ve)
	}

	p, err := domainpattern.New(
		rec.ID, rec.Hostname, rec.URLRegex, rec.TemplateType, rec.EndpointTemplate,
		rec.Method, rec.Headers, extractors, rec.Mapping, rec.Validation, rec.Source, rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.SuccessCount = rec.SuccessCount
	p.FailureCount = rec.FailureCount
	p.AvgResponseTimeMs = rec.AvgResponseTimeMs
	p.LastFailureReason = rec.LastFailureReason
	p.LastSuccess = rec.LastSuccess
	p.Coverage = make(map[string]struct{}, len(rec.Coverage))
	for _, d := range rec.Coverage {
		p.Coverage[d] = struct{}{}
	}
	return p, nil
}
