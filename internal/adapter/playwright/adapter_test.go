package playwright

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/fetchcascade/internal/adapter"
	domainfetch "github.com/kailas-cloud/fetchcascade/internal/domain/fetch"
	domainsession "github.com/kailas-cloud/fetchcascade/internal/domain/session"
)

type fakeBrowser struct {
	navigateErr  error
	page         RenderedPage
	closed       bool
	injected     *domainsession.Snapshot
	injectCalled bool
}

func (b *fakeBrowser) Navigate(ctx context.Context, url string, opts RenderOptions) (RenderedPage, error) {
	if b.navigateErr != nil {
		return RenderedPage{}, b.navigateErr
	}
	return b.page, nil
}

func (b *fakeBrowser) InjectSession(ctx context.Context, snapshot domainsession.Snapshot) error {
	b.injectCalled = true
	b.injected = &snapshot
	return nil
}

func (b *fakeBrowser) Close(ctx context.Context) error {
	b.closed = true
	return nil
}

type fakeSessionRepo struct {
	snap domainsession.Snapshot
	ok   bool
}

func (r *fakeSessionRepo) Load(domain, profile string) (domainsession.Snapshot, bool, error) {
	return r.snap, r.ok, nil
}

func TestFetch_RendersAndExtractsDOM(t *testing.T) {
	fb := &fakeBrowser{page: RenderedPage{FinalURL: "https://example.org/", HTML: "<html><head><title>T</title></head><body><p>body text</p></body></html>"}}
	a := New(func(ctx context.Context) (Browser, error) { return fb, nil }, nil, 2)

	out, err := a.Fetch(context.Background(), "https://example.org", adapter.Options{}, time.Now().Add(5*time.Second))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if out.Title != "T" {
		t.Errorf("Title = %q, want T", out.Title)
	}
	if !fb.closed {
		t.Error("expected the browser to be closed after the fetch")
	}
}

func TestFetch_InjectsSessionWhenProfileGiven(t *testing.T) {
	fb := &fakeBrowser{page: RenderedPage{HTML: "<html><body>x</body></html>"}}
	snap, err := domainsession.New("example.org", "default", nil, map[string]string{"k": "v"}, nil, time.Now(), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	a := New(func(ctx context.Context) (Browser, error) { return fb, nil }, &fakeSessionRepo{snap: snap, ok: true}, 2)

	_, err = a.Fetch(context.Background(), "https://example.org/page", adapter.Options{SessionProfile: "default"}, time.Now().Add(5*time.Second))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !fb.injectCalled {
		t.Error("expected InjectSession to be called when a session profile is set")
	}
}

func TestFetch_NavigateErrorIsClassified(t *testing.T) {
	fb := &fakeBrowser{navigateErr: adapter.NewError(domainfetch.ReasonSelector, errors.New("no such selector"))}
	a := New(func(ctx context.Context) (Browser, error) { return fb, nil }, nil, 2)

	_, err := a.Fetch(context.Background(), "https://example.org", adapter.Options{}, time.Now().Add(5*time.Second))
	adapterErr, ok := err.(*adapter.Error)
	if !ok || adapterErr.Reason != domainfetch.ReasonSelector {
		t.Errorf("expected a selector error, got %v", err)
	}
}

func TestFetch_PageTicketLimitsConcurrency(t *testing.T) {
	block := make(chan struct{})
	fb := &fakeBrowser{}
	a := New(func(ctx context.Context) (Browser, error) {
		<-block
		return fb, nil
	}, nil, 1)

	done := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		a.Fetch(ctx, "https://example.org/a", adapter.Options{}, time.Now().Add(time.Second))
		close(done)
	}()

	// Give the first Fetch time to claim the single ticket.
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := a.Fetch(ctx, "https://example.org/b", adapter.Options{}, time.Now().Add(100*time.Millisecond))
	if err == nil {
		t.Error("expected the second Fetch to time out waiting for a page ticket")
	}

	close(block)
	<-done
}
