package lightweight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kailas-cloud/fetchcascade/internal/adapter"
	"github.com/kailas-cloud/fetchcascade/internal/domain/fetch"
)

func TestFetch_ExtractsTitleAndText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Hi</title></head><body><p>Hello world</p></body></html>`))
	}))
	defer srv.Close()

	a := New(http.DefaultClient)
	out, err := a.Fetch(context.Background(), srv.URL, adapter.Options{}, time.Now().Add(5*time.Second))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if out.Title != "Hi" {
		t.Errorf("Title = %q, want Hi", out.Title)
	}
	if out.Text == "" {
		t.Error("expected non-empty extracted text")
	}
}

func TestFetch_RateLimitStatusIsTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	a := New(http.DefaultClient)
	_, err := a.Fetch(context.Background(), srv.URL, adapter.Options{}, time.Now().Add(5*time.Second))
	adapterErr, ok := err.(*adapter.Error)
	if !ok || adapterErr.Reason != fetch.ReasonRateLimit {
		t.Errorf("expected a rate_limit error, got %v", err)
	}
}

func TestFetch_ServerErrorIsRetryableNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := New(http.DefaultClient)
	_, err := a.Fetch(context.Background(), srv.URL, adapter.Options{}, time.Now().Add(5*time.Second))
	adapterErr, ok := err.(*adapter.Error)
	if !ok || adapterErr.Reason != fetch.ReasonNetwork || !adapterErr.Retryable {
		t.Errorf("expected a retryable network error, got %v", err)
	}
}
