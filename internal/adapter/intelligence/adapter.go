// Package intelligence implements the cheapest tier (C7, cost=1): no
// browser, no raw-HTML GET of the original page at all — a pattern match
// in the API Pattern Registry (C4) followed by a direct HTTP call to the
// pattern's derived API endpoint. There is no fallback inside this
// adapter; a miss or a mapping failure simply fails this tier so the
// Tiered Fetcher escalates.
package intelligence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kailas-cloud/fetchcascade/internal/adapter"
	"github.com/kailas-cloud/fetchcascade/internal/domain/fetch"
	domainpattern "github.com/kailas-cloud/fetchcascade/internal/domain/pattern"
	"github.com/kailas-cloud/fetchcascade/internal/usecase/registry"
)

// Registry is the subset of the pattern registry service this adapter
// depends on to find a pattern for a URL.
type Registry interface {
	Match(u *url.URL) (*domainpattern.LearnedApiPattern, registry.MatchResult)
}

// HTTPDoer is the narrow consumer interface over *http.Client, satisfied
// directly by it; lets tests substitute a stub transport.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Adapter is the intelligence-tier render adapter.
type Adapter struct {
	registry Registry
	client   HTTPDoer
}

// New creates an intelligence Adapter. client defaults to http.DefaultClient.
func New(registry Registry, client HTTPDoer) *Adapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &Adapter{registry: registry, client: client}
}

// Tier reports this adapter's tier.
func (a *Adapter) Tier() fetch.Tier { return fetch.TierIntelligence }

// Fetch consults the registry; on a miss, returns a selector-class error so
// the fetcher escalates without retrying this tier. On a hit, it builds the
// endpoint, issues the request with the pattern's method/headers, parses
// the JSON body, and applies the pattern's ContentMapping.
func (a *Adapter) Fetch(ctx context.Context, rawURL string, opts adapter.Options, deadline time.Time) (adapter.Output, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return adapter.Output{}, adapter.NewError(fetch.ReasonUnknown, err)
	}

	p, _ := a.registry.Match(u)
	if p == nil {
		return adapter.Output{}, adapter.NewError(fetch.ReasonSelector, errors.New("no api pattern for url"))
	}

	endpoint, err := p.BuildEndpoint(u)
	if err != nil {
		return adapter.Output{}, adapter.NewError(fetch.ReasonSelector, err)
	}

	ctx, cancel := adapter.WithDeadline(ctx, deadline)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, p.Method, endpoint, nil)
	if err != nil {
		return adapter.Output{}, adapter.NewError(fetch.ReasonUnknown, err)
	}
	for k, v := range p.Headers {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return adapter.Output{}, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return adapter.Output{}, adapter.NewError(fetch.ReasonNetwork, err)
	}

	if err := classifyStatus(resp.StatusCode, body); err != nil {
		return adapter.Output{}, err
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return adapter.Output{}, adapter.NewError(fetch.ReasonSelector, fmt.Errorf("decode api response: %w", err))
	}

	mapped, err := p.Mapping.Apply(data)
	if err != nil {
		return adapter.Output{}, adapter.NewError(fetch.ReasonSelector, err)
	}

	return adapter.Output{
		FinalURL:   endpoint,
		Title:      mapped.Title,
		Text:       mapped.Body,
		Structured: mapped.Metadata,
	}, nil
}

// classifyStatus maps an HTTP response status to a terminal or retryable
// adapter error per §4.4's reason-detection table. nil means the status
// itself is not an error (body parsing continues).
func classifyStatus(status int, body []byte) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return adapter.NewError(fetch.ReasonAuth, fmt.Errorf("http %d", status))
	case status == http.StatusTooManyRequests:
		return adapter.NewError(fetch.ReasonRateLimit, fmt.Errorf("http %d", status))
	case status >= 500:
		return adapter.NewError(fetch.ReasonNetwork, fmt.Errorf("http %d", status))
	case status >= 400:
		return adapter.NewError(fetch.ReasonSelector, fmt.Errorf("http %d", status))
	}
	if containsBotChallengeMarker(body) {
		return adapter.NewError(fetch.ReasonBotChallenge, errors.New("bot challenge marker in body"))
	}
	return nil
}

var botChallengeMarkers = []string{"cf-challenge", "captcha", "are you a human", "checking your browser"}

func containsBotChallengeMarker(body []byte) bool {
	lower := strings.ToLower(string(bytes.TrimSpace(body)))
	for _, m := range botChallengeMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// classifyTransportError distinguishes timeouts from other network errors
// per §4.4's reason-detection rules.
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
