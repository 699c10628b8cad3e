package discovery

// probeTarget is one (method, path) pair tried against a candidate domain.
type probeTarget struct {
	method string
	path   string
}

// commonAPIPaths is the bounded, fixed list spec §4.6 calls for — common
// conventions real sites use to expose a machine-readable API alongside
// their HTML, roughly in descending order of how often they turn up.
var commonAPIPaths = []probeTarget{
	{method: "GET", path: "/api"},
	{method: "GET", path: "/api/v1"},
	{method: "GET", path: "/api/v2"},
	{method: "GET", path: "/wp-json"},
	{method: "GET", path: "/.well-known/api-catalog"},
	{method: "GET", path: "/rest/v1"},
	{method: "GET", path: "/graphql"},
	{method: "GET", path: "/sitemap.json"},
	{method: "HEAD", path: "/feed.json"},
}
