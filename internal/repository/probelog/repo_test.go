package probelog

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/fetchcascade/internal/db"
)

type memStore struct {
	data map[string][]byte
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

func (m *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.data[key] = value
	return nil
}

func TestSeenRecently_UnseenHostnameReturnsFalse(t *testing.T) {
	r := New(newMemStore())
	seen, err := r.SeenRecently(context.Background(), "example.org")
	if err != nil {
		t.Fatalf("SeenRecently: %v", err)
	}
	if seen {
		t.Error("expected an unprobed hostname to report false")
	}
}

func TestMarkProbedThenSeenRecently_ReturnsTrue(t *testing.T) {
	r := New(newMemStore())
	ctx := context.Background()
	if err := r.MarkProbed(ctx, "example.org", time.Hour); err != nil {
		t.Fatalf("MarkProbed: %v", err)
	}
	seen, err := r.SeenRecently(ctx, "example.org")
	if err != nil {
		t.Fatalf("SeenRecently: %v", err)
	}
	if !seen {
		t.Error("expected the marked hostname to report true")
	}
}

func TestMarkProbed_DifferentHostnamesDoNotCollide(t *testing.T) {
	r := New(newMemStore())
	ctx := context.Background()
	if err := r.MarkProbed(ctx, "a.example", time.Hour); err != nil {
		t.Fatal(err)
	}
	seen, _ := r.SeenRecently(ctx, "b.example")
	if seen {
		t.Error("expected b.example to be unaffected by a.example's probe mark")
	}
}
