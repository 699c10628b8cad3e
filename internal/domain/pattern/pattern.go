package pattern

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// ValidationSpec carries the gate a pattern's extracted content must pass.
type ValidationSpec struct {
	RequiredFields    []string
	MinContentLength  int
}

// LearnedApiPattern is the API Pattern Registry's central mutable aggregate:
// a learned rule mapping a URL family to an API endpoint plus a content
// mapping. It is created once (bootstrap seed or first successful
// extraction) and mutated on every subsequent apply.
//
// Per §5's single-writer discipline, all mutation happens through
// ApplySuccess/ApplyFailure, called only from the Learning Engine's
// serialized consumer — never concurrently for the same pattern.
type LearnedApiPattern struct {
	ID              string
	Hostname        string
	URLRegex        *regexp.Regexp
	TemplateType    Template
	EndpointTemplate string
	Method          string
	Headers         map[string]string
	Extractors      []VariableExtractor
	Mapping         ContentMapping
	Validation      ValidationSpec

	SuccessCount      int
	FailureCount      int
	AvgResponseTimeMs float64
	LastFailureReason string
	Coverage          map[string]struct{} // domains this pattern has succeeded on
	CreatedAt         time.Time
	LastSuccess       time.Time
	Source            Source
}

// endpointPlaceholder matches {name} occurrences in an endpoint template.
var endpointPlaceholder = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// URLSentinel is the literal endpoint template meaning "append-style": use
// the source URL itself as the endpoint template body.
const URLSentinel = "{url}"

// New validates and creates a LearnedApiPattern. Every {var} placeholder in
// endpointTemplate must have a matching extractor, unless the template is
// the literal sentinel {url}.
func New(
	id, hostname, urlRegex string,
	templateType Template,
	endpointTemplate, method string,
	headers map[string]string,
	extractors []VariableExtractor,
	mapping ContentMapping,
	validation ValidationSpec,
	source Source,
	now time.Time,
) (*LearnedApiPattern, error) {
	if id == "" {
		return nil, fmt.Errorf("pattern id is required")
	}
	if hostname == "" {
		return nil, fmt.Errorf("pattern hostname is required")
	}
	if !templateType.IsValid() {
		return nil, fmt.Errorf("invalid template type %q", templateType)
	}
	re, err := regexp.Compile(urlRegex)
	if err != nil {
		return nil, fmt.Errorf("invalid url regex %q: %w", urlRegex, err)
	}
	if endpointTemplate != URLSentinel {
		if err := validatePlaceholders(endpointTemplate, extractors); err != nil {
			return nil, err
		}
	}
	if method == "" {
		method = "GET"
	}

	return &LearnedApiPattern{
		ID:               id,
		Hostname:         hostname,
		URLRegex:         re,
		TemplateType:     templateType,
		EndpointTemplate: endpointTemplate,
		Method:           method,
		Headers:          headers,
		Extractors:       extractors,
		Mapping:          mapping,
		Validation:       validation,
		Coverage:         map[string]struct{}{hostname: {}},
		CreatedAt:        now,
		Source:           source,
	}, nil
}

func validatePlaceholders(endpointTemplate string, extractors []VariableExtractor) error {
	known := make(map[string]bool, len(extractors))
	for _, e := range extractors {
		known[e.Name()] = true
	}
	for _, m := range endpointPlaceholder.FindAllStringSubmatch(endpointTemplate, -1) {
		if !known[m[1]] {
			return fmt.Errorf("%w: %q", errUnmapped(m[1]), endpointTemplate)
		}
	}
	return nil
}

func errUnmapped(name string) error {
	return fmt.Errorf("no extractor for placeholder %q", name)
}

// Confidence reports success/(success+failure), 0 when the pattern has never been applied.
func (p *LearnedApiPattern) Confidence() float64 {
	total := p.SuccessCount + p.FailureCount
	if total == 0 {
		return 0
	}
	return float64(p.SuccessCount) / float64(total)
}

// Matches reports whether u's full string matches the pattern's URL regex.
func (p *LearnedApiPattern) Matches(u *url.URL) bool {
	return p.URLRegex.MatchString(u.String())
}

// BuildEndpoint runs every extractor against u and substitutes the results
// into EndpointTemplate. Requires all extractors to succeed. The sentinel
// {url} template means "append-style": the endpoint IS the source URL.
func (p *LearnedApiPattern) BuildEndpoint(u *url.URL) (string, error) {
	if p.EndpointTemplate == URLSentinel {
		if p.TemplateType == JSONSuffix {
			return u.String() + ".json", nil
		}
		return u.String(), nil
	}

	values := make(map[string]string, len(p.Extractors))
	for _, e := range p.Extractors {
		val, ok := e.Extract(u)
		if !ok {
			return "", fmt.Errorf("extractor %q failed against %s", e.Name(), u)
		}
		values[e.Name()] = val
	}

	endpoint := p.EndpointTemplate
	for name, val := range values {
		endpoint = strings.ReplaceAll(endpoint, "{"+name+"}", val)
	}
	if endpointPlaceholder.MatchString(endpoint) {
		return "", fmt.Errorf("unresolved placeholder remains in %q", endpoint)
	}
	return endpoint, nil
}

// ApplySuccess records a successful apply: increments SuccessCount, updates
// the incremental mean response time, and adds domain to the coverage set.
// Returns the confidence delta, used by callers to decide whether to emit a
// ConfidenceChanged event (|Δ| > 0.01).
func (p *LearnedApiPattern) ApplySuccess(domain string, latencyMs float64, now time.Time) float64 {
	before := p.Confidence()

	p.SuccessCount++
	p.AvgResponseTimeMs += (latencyMs - p.AvgResponseTimeMs) / float64(p.SuccessCount)
	if p.Coverage == nil {
		p.Coverage = make(map[string]struct{})
	}
	p.Coverage[domain] = struct{}{}
	p.LastSuccess = now

	return p.Confidence() - before
}

// ApplyFailure records a failed apply: increments FailureCount and stores the reason.
// Returns the confidence delta.
func (p *LearnedApiPattern) ApplyFailure(reason string) float64 {
	before := p.Confidence()
	p.FailureCount++
	p.LastFailureReason = reason
	return p.Confidence() - before
}

// ShouldArchive reports whether the pattern is idle beyond archiveAfter or
// has fallen below minConfidence.
func (p *LearnedApiPattern) ShouldArchive(now time.Time, archiveAfter time.Duration, minConfidence float64) (bool, string) {
	if p.Confidence() < minConfidence && (p.SuccessCount+p.FailureCount) > 0 {
		return true, "low_confidence"
	}
	if !p.LastSuccess.IsZero() && now.Sub(p.LastSuccess) > archiveAfter {
		return true, "idle"
	}
	return false, ""
}
