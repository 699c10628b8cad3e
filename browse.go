package fetchcascade

import "context"

// BrowseRequest is the remote client's request shape, mirroring
// internal/domain/fetch.BrowseRequest without depending on it directly.
type BrowseRequest struct {
	URL             string
	ContentTypeHint string
	SessionProfile  string
	MaxLatencyMs    int64
	MaxCostTier     string
	Freshness       string
}

// BrowseResult is the remote client's response shape.
type BrowseResult struct {
	URL            string
	FinalURL       string
	Title          string
	Markdown       string
	Text           string
	HTML           string
	DiscoveredAPIs []string
	TierUsed       string
	TiersAttempted []string
	LoadTimeMs     int64
	Cached         bool
	Confidence     float64
	ContentChanged bool
}

// wireRequest/wireResult mirror internal/transport/chi's JSON envelope —
// duplicated here (rather than imported) so this package's public surface
// never leaks an internal/... import into callers' dependency graphs.
type wireRequest struct {
	URL             string `json:"url"`
	ContentTypeHint string `json:"content_type_hint,omitempty"`
	SessionProfile  string `json:"session_profile,omitempty"`
	MaxLatencyMs    int64  `json:"max_latency_ms,omitempty"`
	MaxCostTier     string `json:"max_cost_tier,omitempty"`
	Freshness       string `json:"freshness,omitempty"`
}

type wireResult struct {
	URL            string   `json:"url"`
	FinalURL       string   `json:"final_url"`
	Title          string   `json:"title"`
	Markdown       string   `json:"markdown"`
	Text           string   `json:"text"`
	HTML           string   `json:"html,omitempty"`
	DiscoveredAPIs []string `json:"discovered_apis,omitempty"`
	TierUsed       string   `json:"tier_used"`
	TiersAttempted []string `json:"tiers_attempted"`
	LoadTimeMs     int64    `json:"load_time_ms"`
	Cached         bool     `json:"cached"`
	Confidence     float64  `json:"confidence"`
	ContentChanged bool     `json:"content_changed"`
}

func (r BrowseRequest) toWire() wireRequest {
	return wireRequest{
		URL:             r.URL,
		ContentTypeHint: r.ContentTypeHint,
		SessionProfile:  r.SessionProfile,
		MaxLatencyMs:    r.MaxLatencyMs,
		MaxCostTier:     r.MaxCostTier,
		Freshness:       r.Freshness,
	}
}

func fromWire(w wireResult) BrowseResult {
	return BrowseResult{
		URL:            w.URL,
		FinalURL:       w.FinalURL,
		Title:          w.Title,
		Markdown:       w.Markdown,
		Text:           w.Text,
		HTML:           w.HTML,
		DiscoveredAPIs: w.DiscoveredAPIs,
		TierUsed:       w.TierUsed,
		TiersAttempted: w.TiersAttempted,
		LoadTimeMs:     w.LoadTimeMs,
		Cached:         w.Cached,
		Confidence:     w.Confidence,
		ContentChanged: w.ContentChanged,
	}
}

// Browse drives one request through the remote server's cascade.
func (c *Client) Browse(ctx context.Context, req BrowseRequest) (BrowseResult, error) {
	var w wireResult
	if err := c.do(ctx, "POST", "/v1/browse", req.toWire(), &w); err != nil {
		return BrowseResult{}, err
	}
	return fromWire(w), nil
}

// BatchResult pairs one BatchBrowse request with its outcome.
type BatchResult struct {
	URL    string
	Result BrowseResult
	Err    string
}

// BatchBrowse drives every request through the remote server concurrently,
// bounded by the server's own concurrency cap (pkg/browser.BatchBrowse).
func (c *Client) BatchBrowse(ctx context.Context, reqs []BrowseRequest) ([]BatchResult, error) {
	wireReqs := make([]wireRequest, len(reqs))
	for i, r := range reqs {
		wireReqs[i] = r.toWire()
	}

	var resp struct {
		Results []struct {
			URL    string      `json:"url"`
			Result *wireResult `json:"result,omitempty"`
			Error  string      `json:"error,omitempty"`
		} `json:"results"`
	}
	payload := struct {
		Requests []wireRequest `json:"requests"`
	}{Requests: wireReqs}

	if err := c.do(ctx, "POST", "/v1/batch-browse", payload, &resp); err != nil {
		return nil, err
	}

	out := make([]BatchResult, len(resp.Results))
	for i, r := range resp.Results {
		entry := BatchResult{URL: r.URL, Err: r.Error}
		if r.Result != nil {
			entry.Result = fromWire(*r.Result)
		}
		out[i] = entry
	}
	return out, nil
}
