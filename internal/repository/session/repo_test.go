package session

import (
	"testing"
	"time"

	domainsession "github.com/kailas-cloud/fetchcascade/internal/domain/session"
)

func TestRepo_SaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	r := New(dir)

	snap, err := domainsession.New(
		"example.org", "default",
		[]domainsession.Cookie{{Name: "sid", Value: "abc", Domain: "example.org"}},
		map[string]string{"k": "v"}, nil, time.Now(), time.Hour,
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := r.Save(snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, ok, err := r.Load("example.org", "default")
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if got.Cookies()[0].Value != "abc" {
		t.Errorf("cookie value = %q, want abc", got.Cookies()[0].Value)
	}
	if got.LocalStorage()["k"] != "v" {
		t.Errorf("localStorage[k] = %q, want v", got.LocalStorage()["k"])
	}
}

func TestRepo_LoadMissingReturnsNotOK(t *testing.T) {
	dir := t.TempDir()
	r := New(dir)
	_, ok, err := r.Load("nowhere.org", "default")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Error("expected ok=false for a snapshot that was never saved")
	}
}
