package pattern

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ExtractSource is where a VariableExtractor pulls its raw string from.
type ExtractSource string

// Extraction sources.
const (
	SourcePath      ExtractSource = "path"
	SourceQuery     ExtractSource = "query"
	SourceSubdomain ExtractSource = "subdomain"
	SourceHostname  ExtractSource = "hostname"
)

// Transform is an optional post-extraction normalization.
type Transform string

// Transforms.
const (
	TransformNone       Transform = ""
	TransformLowercase  Transform = "lowercase"
	TransformUppercase  Transform = "uppercase"
	TransformURLEncode  Transform = "urlencode"
	TransformURLDecode  Transform = "urldecode"
)

// VariableExtractor is an immutable child of a LearnedApiPattern: a named
// rule that pulls a string out of one part of a URL for substitution into
// an endpoint template.
type VariableExtractor struct {
	name      string
	source    ExtractSource
	regex     *regexp.Regexp
	group     int
	transform Transform
}

// NewVariableExtractor validates and creates a VariableExtractor.
func NewVariableExtractor(name string, source ExtractSource, pattern string, group int, transform Transform) (VariableExtractor, error) {
	if name == "" {
		return VariableExtractor{}, fmt.Errorf("extractor name is required")
	}
	switch source {
	case SourcePath, SourceQuery, SourceSubdomain, SourceHostname:
	default:
		return VariableExtractor{}, fmt.Errorf("invalid extractor source %q", source)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return VariableExtractor{}, fmt.Errorf("invalid extractor regex %q: %w", pattern, err)
	}
	if group < 0 || group > re.NumSubexp() {
		return VariableExtractor{}, fmt.Errorf("extractor group %d out of range for %q", group, pattern)
	}
	return VariableExtractor{name: name, source: source, regex: re, group: group, transform: transform}, nil
}

// Name returns the placeholder name this extractor fills (e.g. "owner").
func (e VariableExtractor) Name() string { return e.name }

// Source returns which part of the URL the extractor reads.
func (e VariableExtractor) Source() ExtractSource { return e.source }

// Pattern returns the extractor's regex source text.
func (e VariableExtractor) Pattern() string { return e.regex.String() }

// Group returns the capture group index used from the regex match.
func (e VariableExtractor) Group() int { return e.group }

// TransformKind returns the post-extraction normalization applied.
func (e VariableExtractor) TransformKind() Transform { return e.transform }

// Extract pulls the named variable out of u, applying the configured transform.
// Returns ok=false if the extractor's source part is absent or the regex doesn't match.
func (e VariableExtractor) Extract(u *url.URL) (string, bool) {
	var raw string
	switch e.source {
	case SourcePath:
		raw = u.Path
	case SourceQuery:
		raw = u.RawQuery
	case SourceHostname:
		raw = u.Hostname()
	case SourceSubdomain:
		host := u.Hostname()
		parts := strings.Split(host, ".")
		if len(parts) <= 2 {
			return "", false
		}
		raw = strings.Join(parts[:len(parts)-2], ".")
	}

	m := e.regex.FindStringSubmatch(raw)
	if m == nil || e.group >= len(m) {
		return "", false
	}
	val := m[e.group]
	if val == "" {
		return "", false
	}
	return applyTransform(val, e.transform), true
}

func applyTransform(val string, t Transform) string {
	switch t {
	case TransformLowercase:
		return strings.ToLower(val)
	case TransformUppercase:
		return strings.ToUpper(val)
	case TransformURLEncode:
		return url.QueryEscape(val)
	case TransformURLDecode:
		if decoded, err := url.QueryUnescape(val); err == nil {
			return decoded
		}
		return val
	default:
		return val
	}
}
