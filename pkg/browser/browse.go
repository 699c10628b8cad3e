package browser

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/fetchcascade/internal/domain/fetch"
)

// defaultBatchConcurrency bounds how many BatchBrowse requests run at
// once when the caller doesn't size their own worker pool.
const defaultBatchConcurrency = 8

// Browse drives req through the tiered cascade (intelligence, lightweight,
// playwright) and returns the winning tier's result. The Discovery
// Orchestrator yields to any Browse call in flight, per §5's backpressure
// rule.
func (c *Client) Browse(ctx context.Context, req fetch.BrowseRequest) (fetch.BrowseResult, error) {
	c.inFlight.inc()
	defer c.inFlight.dec()

	return c.fetchSvc.Browse(ctx, req)
}

// BatchResult pairs one BatchBrowse request with its outcome.
type BatchResult struct {
	Request fetch.BrowseRequest
	Result  fetch.BrowseResult
	Err     error
}

// BatchBrowse runs every request concurrently, bounded by
// defaultBatchConcurrency, and returns one BatchResult per input request in
// the same order. A single request's failure never aborts the others.
func (c *Client) BatchBrowse(ctx context.Context, reqs []fetch.BrowseRequest) []BatchResult {
	out := make([]BatchResult, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultBatchConcurrency)

	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			res, err := c.Browse(gctx, req)
			out[i] = BatchResult{Request: req, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// ProbeDomain runs the Discovery Orchestrator's fuzzing sweep against
// hostname, unless it was already probed within its TTL or a live Browse
// call is currently in flight.
func (c *Client) ProbeDomain(ctx context.Context, scheme, hostname string) error {
	return c.discovery.ProbeDomain(ctx, scheme, hostname, time.Now())
}
