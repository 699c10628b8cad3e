package registry

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	domainpattern "github.com/kailas-cloud/fetchcascade/internal/domain/pattern"
)

// StrategyHint names a known tier strategy the fetcher used to reach the
// API endpoint, used to shortcut template inference for well-known sources.
type StrategyHint string

// knownHintTemplates maps a strategy hint straight to its template, skipping
// structural inference entirely.
var knownHintTemplates = map[StrategyHint]domainpattern.Template{
	"graphql-introspection": domainpattern.QueryAPI,
	"sitemap-api-discovery": domainpattern.RESTResource,
}

// LearnNew infers a new LearnedApiPattern from a successful extraction where
// the host had no existing pattern: sourceURL is the page the Tiered
// Fetcher was asked to browse; apiEndpoint is the API URL that actually
// produced the content, at tier cost (lightweight or playwright).
func (s *Service) LearnNew(sourceURL, apiEndpoint *url.URL, hint StrategyHint, mapping domainpattern.ContentMapping, validation domainpattern.ValidationSpec, now time.Time) (*domainpattern.LearnedApiPattern, error) {
	templateType := inferTemplateType(sourceURL, apiEndpoint, hint)
	extractors, endpointTemplate := inferExtractors(sourceURL, apiEndpoint)
	urlRegex := inferURLRegex(sourceURL)

	id := fmt.Sprintf("learned-%s-%d", sourceURL.Hostname(), now.UnixNano())
	p, err := domainpattern.New(
		id, sourceURL.Hostname(), urlRegex, templateType, endpointTemplate, "GET", nil,
		extractors, mapping, validation, domainpattern.SourceLearned, now,
	)
	if err != nil {
		return nil, fmt.Errorf("learn new pattern: %w", err)
	}
	p.SuccessCount = 1
	p.LastSuccess = now

	s.repo.Put(p)
	s.onEvent(domainpattern.Event{Kind: domainpattern.EventLearned, PatternID: p.ID, Hostname: p.Hostname, Reason: string(domainpattern.SourceLearned)})
	return p, nil
}

// inferTemplateType derives a template kind from a strategy hint, then from
// structural comparison of sourceURL and apiEndpoint.
func inferTemplateType(sourceURL, apiEndpoint *url.URL, hint StrategyHint) domainpattern.Template {
	if t, ok := knownHintTemplates[hint]; ok {
		return t
	}
	if apiEndpoint.Hostname() != sourceURL.Hostname() {
		return domainpattern.RegistryLookup
	}
	if strings.HasSuffix(apiEndpoint.Path, ".json") {
		return domainpattern.JSONSuffix
	}
	if apiEndpoint.RawQuery != "" {
		return domainpattern.QueryAPI
	}
	if strings.HasPrefix(apiEndpoint.Hostname(), "api.") || strings.Contains(apiEndpoint.Path, "/api/") {
		return domainpattern.RESTResource
	}
	return domainpattern.QueryAPI
}

// inferExtractors scans sourceURL's path segments for any segment (length
// >= 3) that also appears in apiEndpoint, turning each into a numbered
// positional path extractor, and returns the endpoint template with those
// occurrences replaced by {varN} placeholders.
func inferExtractors(sourceURL, apiEndpoint *url.URL) ([]domainpattern.VariableExtractor, string) {
	segments := pathSegments(sourceURL.Path)
	endpointTemplate := apiEndpoint.String()

	var extractors []domainpattern.VariableExtractor
	n := 0
	for _, seg := range segments {
		if len(seg) < 3 || !strings.Contains(endpointTemplate, seg) {
			continue
		}
		n++
		name := fmt.Sprintf("var%d", n)
		pattern := regexp.QuoteMeta(seg)
		extractor, err := domainpattern.NewVariableExtractor(
			name, domainpattern.SourcePath, "/("+pattern+")", 1, domainpattern.TransformNone,
		)
		if err != nil {
			continue
		}
		extractors = append(extractors, extractor)
		endpointTemplate = strings.Replace(endpointTemplate, seg, "{"+name+"}", 1)
	}

	if len(extractors) == 0 {
		return nil, apiEndpoint.String()
	}
	return extractors, endpointTemplate
}

// inferURLRegex keeps the hostname and first path segment literal,
// wildcarding deeper segments as [^/]+.
func inferURLRegex(sourceURL *url.URL) string {
	segments := pathSegments(sourceURL.Path)

	var b strings.Builder
	b.WriteString(`^https?://`)
	b.WriteString(regexp.QuoteMeta(sourceURL.Hostname()))

	for i, seg := range segments {
		b.WriteString(`/`)
		if i == 0 {
			b.WriteString(regexp.QuoteMeta(seg))
		} else {
			b.WriteString(`[^/]+`)
		}
	}
	b.WriteString(`(?:[/?].*)?$`)
	return b.String()
}

func pathSegments(path string) []string {
	var out []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}
