// Package lightweight implements the middle tier (C7, cost=5): a plain
// HTTP GET of the original URL followed by the Content Extractor (C1)'s
// server-side DOM parse. No JavaScript execution.
package lightweight

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/kailas-cloud/fetchcascade/internal/adapter"
	"github.com/kailas-cloud/fetchcascade/internal/domain/fetch"
	"github.com/kailas-cloud/fetchcascade/internal/extract"
)

// HTTPDoer is the narrow consumer interface over *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Adapter is the lightweight-tier render adapter.
type Adapter struct {
	client HTTPDoer
}

// New creates a lightweight Adapter. client defaults to http.DefaultClient.
func New(client HTTPDoer) *Adapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &Adapter{client: client}
}

// Tier reports this adapter's tier.
func (a *Adapter) Tier() fetch.Tier { return fetch.TierLightweight }

// Fetch issues a GET against rawURL and runs C1 over the response body.
func (a *Adapter) Fetch(ctx context.Context, rawURL string, opts adapter.Options, deadline time.Time) (adapter.Output, error) {
	ctx, cancel := adapter.WithDeadline(ctx, deadline)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return adapter.Output{}, adapter.NewError(fetch.ReasonUnknown, err)
	}
	req.Header.Set("User-Agent", "fetchcascade/1.0 (+lightweight-tier)")

	resp, err := a.client.Do(req)
	if err != nil {
		return adapter.Output{}, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return adapter.Output{}, adapter.NewError(fetch.ReasonNetwork, err)
	}

	if err := classifyStatus(resp.StatusCode); err != nil {
		return adapter.Output{}, err
	}

	result, err := extract.Extract(string(body))
	if err != nil {
		return adapter.Output{}, adapter.NewError(fetch.ReasonSelector, err)
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return adapter.Output{
		FinalURL:   finalURL,
		Title:      result.Title,
		HTML:       string(body),
		Text:       result.Text,
		Markdown:   result.Markdown,
		Tables:     result.Tables,
		Structured: result.Structured,
	}, nil
}

func classifyStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return adapter.NewError(fetch.ReasonAuth, errNonNil(status))
	case status == http.StatusTooManyRequests:
		return adapter.NewError(fetch.ReasonRateLimit, errNonNil(status))
	case status >= 500:
		return adapter.NewError(fetch.ReasonNetwork, errNonNil(status))
	case status >= 400:
		return adapter.NewError(fetch.ReasonSelector, errNonNil(status))
	}
	return nil
}

func errNonNil(status int) error {
	return &statusError{status: status}
}

type statusError struct{ status int }

func (e *statusError) Error() string { return http.StatusText(e.status) }

func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return adapter.NewError(fetch.ReasonTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return adapter.NewError(fetch.ReasonTimeout, err)
	}
	return adapter.NewError(fetch.ReasonNetwork, err)
}
