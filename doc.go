// Package fetchcascade is a thin HTTP client for a remote fetchcascade
// server, for callers that don't want to import the engine's in-process
// dependency tree (pkg/browser). It wraps the same browse/batchBrowse
// surface over the façade exposed by internal/transport/chi.
//
//	c, err := fetchcascade.New(fetchcascade.WithBaseURL("http://localhost:8080"))
//	result, err := c.Browse(ctx, fetchcascade.BrowseRequest{URL: "https://example.com"})
package fetchcascade
