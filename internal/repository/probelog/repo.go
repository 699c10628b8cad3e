// Package probelog backs the Discovery Orchestrator's idempotence rule
// (spec §4.6: "a probed domain within TTL is skipped"): a TTL-keyed marker
// per hostname, modeled on internal/repository/fetchcache's decorator-over-
// a-KV-store shape.
package probelog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/fetchcascade/internal/db"
	"github.com/kailas-cloud/fetchcascade/internal/domain"
)

var keyPrefix = domain.KeyPrefix + "probed:"

// store is the narrow KV consumer interface this repo needs.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Repo tracks which hostnames have been probed recently.
type Repo struct {
	store store
}

// New creates a Repo over a backing KV store.
func New(s store) *Repo {
	return &Repo{store: s}
}

// SeenRecently reports whether hostname was probed within its TTL window.
func (r *Repo) SeenRecently(ctx context.Context, hostname string) (bool, error) {
	_, err := r.store.Get(ctx, probeKey(hostname))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("probelog get %s: %w", hostname, err)
	}
	return true, nil
}

// MarkProbed records hostname as probed, expiring after ttl.
func (r *Repo) MarkProbed(ctx context.Context, hostname string, ttl time.Duration) error {
	if err := r.store.SetWithTTL(ctx, probeKey(hostname), []byte("1"), ttl); err != nil {
		return fmt.Errorf("probelog mark %s: %w", hostname, err)
	}
	return nil
}

func probeKey(hostname string) string {
	return keyPrefix + hostname
}
