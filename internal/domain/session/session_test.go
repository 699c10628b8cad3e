package session

import (
	"testing"
	"time"
)

func TestNew_RejectsMissingProfile(t *testing.T) {
	_, err := New("example.org", "", nil, nil, nil, time.Now(), 0)
	if err == nil {
		t.Fatal("expected error for missing profile")
	}
}

func TestHealthAt_HealthyWellWithinTTL(t *testing.T) {
	savedAt := time.Now()
	s, err := New("example.org", "default", nil, nil, nil, savedAt, time.Hour)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := s.HealthAt(savedAt.Add(5 * time.Minute)); got != HealthHealthy {
		t.Errorf("HealthAt() = %v, want healthy", got)
	}
}

func TestHealthAt_ExpiringSoon(t *testing.T) {
	savedAt := time.Now()
	s, _ := New("example.org", "default", nil, nil, nil, savedAt, time.Hour)
	if got := s.HealthAt(savedAt.Add(55 * time.Minute)); got != HealthExpiringSoon {
		t.Errorf("HealthAt() = %v, want expiring_soon", got)
	}
}

func TestHealthAt_ExpiredThenStale(t *testing.T) {
	savedAt := time.Now()
	s, _ := New("example.org", "default", nil, nil, nil, savedAt, time.Hour)

	if got := s.HealthAt(savedAt.Add(2 * time.Hour)); got != HealthExpired {
		t.Errorf("HealthAt() = %v, want expired", got)
	}
	if got := s.HealthAt(savedAt.Add(30 * time.Hour)); got != HealthStale {
		t.Errorf("HealthAt() = %v, want stale", got)
	}
}

func TestCookies_ReturnsIndependentCopy(t *testing.T) {
	s, _ := New("example.org", "default", []Cookie{{Name: "a", Value: "1"}}, nil, nil, time.Now(), 0)
	cookies := s.Cookies()
	cookies[0].Value = "mutated"

	if s.Cookies()[0].Value != "1" {
		t.Error("mutating the returned slice leaked into the snapshot")
	}
}
