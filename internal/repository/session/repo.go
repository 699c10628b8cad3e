// Package session persists per-(domain, profile) snapshots to
// sessions/{domain}/{profile}.json. Unlike the pattern registry and the
// change predictor, snapshots are saved rarely (once per captured browser
// context) so each write goes straight to disk rather than through a
// debounce timer.
package session

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	domainsession "github.com/kailas-cloud/fetchcascade/internal/domain/session"
	"github.com/kailas-cloud/fetchcascade/internal/store"
)

type cookieRecord struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Domain   string    `json:"domain"`
	Path     string    `json:"path"`
	Expires  time.Time `json:"expires"`
	Secure   bool      `json:"secure"`
	HTTPOnly bool      `json:"httpOnly"`
	SameSite string    `json:"sameSite"`
}

type record struct {
	Cookies        []cookieRecord    `json:"cookies"`
	LocalStorage   map[string]string `json:"localStorage"`
	SessionStorage map[string]string `json:"sessionStorage"`
	SavedAt        time.Time         `json:"savedAt"`
	TTLHintMs      int64             `json:"ttlHint,omitempty"`
}

// Repo persists SessionSnapshot values under baseDir, one file per
// (domain, profile).
type Repo struct {
	baseDir string
	mu      sync.Mutex // exclusive per-store save/load, per §5's session store rule
}

// New creates a Repo rooted at baseDir (typically "<data-dir>/sessions").
func New(baseDir string) *Repo {
	return &Repo{baseDir: baseDir}
}

func (r *Repo) path(domain, profile string) string {
	return filepath.Join(r.baseDir, domain, profile+".json")
}

// Save writes snap to disk, overwriting any prior snapshot for the same
// (domain, profile).
func (r *Repo) Save(snap domainsession.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cookies := snap.Cookies()
	recs := make([]cookieRecord, len(cookies))
	for i, c := range cookies {
		recs[i] = cookieRecord{
			Name: c.Name, Value: c.Value, Domain: c.Domain, Path: c.Path,
			Expires: c.Expires, Secure: c.Secure, HTTPOnly: c.HTTPOnly, SameSite: c.SameSite,
		}
	}

	rec := record{
		Cookies:        recs,
		LocalStorage:   snap.LocalStorage(),
		SessionStorage: snap.SessionStorage(),
		SavedAt:        snap.SavedAt(),
		TTLHintMs:      snap.TTLHint().Milliseconds(),
	}
	return store.SaveJSON(r.path(snap.Domain(), snap.Profile()), rec)
}

// Load reads the snapshot for (domain, profile). Readers get a freshly
// hydrated clone, never a shared pointer, per §5's "readers clone before
// returning" rule.
func (r *Repo) Load(domain, profile string) (domainsession.Snapshot, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var rec record
	ok, err := store.LoadJSON(r.path(domain, profile), &rec)
	if err != nil {
		return domainsession.Snapshot{}, false, fmt.Errorf("load session %s/%s: %w", domain, profile, err)
	}
	if !ok {
		return domainsession.Snapshot{}, false, nil
	}

	cookies := make([]domainsession.Cookie, len(rec.Cookies))
	for i, c := range rec.Cookies {
		cookies[i] = domainsession.Cookie{
			Name: c.Name, Value: c.Value, Domain: c.Domain, Path: c.Path,
			Expires: c.Expires, Secure: c.Secure, HTTPOnly: c.HTTPOnly, SameSite: c.SameSite,
		}
	}

	snap := domainsession.Reconstruct(
		domain, profile, cookies, rec.LocalStorage, rec.SessionStorage,
		rec.SavedAt, time.Duration(rec.TTLHintMs)*time.Millisecond,
	)
	return snap, true, nil
}
