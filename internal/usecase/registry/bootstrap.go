package registry

import (
	"time"

	domainpattern "github.com/kailas-cloud/fetchcascade/internal/domain/pattern"
)

// seed describes one built-in pattern template used to pre-populate an
// empty registry on first startup.
type seed struct {
	id               string
	hostname         string
	urlRegex         string
	templateType     domainpattern.Template
	endpointTemplate string
	extractors       []seedExtractor
	mapping          domainpattern.ContentMapping
	validation       domainpattern.ValidationSpec
}

type seedExtractor struct {
	name    string
	source  domainpattern.ExtractSource
	pattern string
	group   int
}

// builtinSeeds covers all five template kinds against well-known public
// APIs, so a fresh registry can serve intelligence-tier fetches before it
// has learned anything of its own.
var builtinSeeds = []seed{
	{
		id:               "bootstrap-github-repo",
		hostname:         "github.com",
		urlRegex:         `^https://github\.com/([^/]+)/([^/]+)(?:/.*)?$`,
		templateType:     domainpattern.RESTResource,
		endpointTemplate: "https://api.github.com/repos/{owner}/{repo}",
		extractors: []seedExtractor{
			{name: "owner", source: domainpattern.SourcePath, pattern: `^/([^/]+)/`, group: 1},
			{name: "repo", source: domainpattern.SourcePath, pattern: `^/[^/]+/([^/]+)`, group: 1},
		},
		mapping: domainpattern.ContentMapping{
			Title: "full_name", Description: "description", Body: "description",
			Metadata: map[string]string{"stars": "stargazers_count", "language": "language"},
		},
		validation: domainpattern.ValidationSpec{RequiredFields: []string{"full_name"}, MinContentLength: 1},
	},
	{
		id:               "bootstrap-pypi-project",
		hostname:         "pypi.org",
		urlRegex:         `^https://pypi\.org/project/([^/]+)/?.*$`,
		templateType:     domainpattern.RegistryLookup,
		endpointTemplate: "https://pypi.org/pypi/{package}/json",
		extractors: []seedExtractor{
			{name: "package", source: domainpattern.SourcePath, pattern: `^/project/([^/]+)`, group: 1},
		},
		mapping: domainpattern.ContentMapping{
			Title: "info.name", Description: "info.summary", Body: "info.description",
			Metadata: map[string]string{"version": "info.version"},
		},
		validation: domainpattern.ValidationSpec{RequiredFields: []string{"info.name"}, MinContentLength: 1},
	},
	{
		id:               "bootstrap-npm-package",
		hostname:         "npmjs.com",
		urlRegex:         `^https://www\.npmjs\.com/package/(.+)$`,
		templateType:     domainpattern.RegistryLookup,
		endpointTemplate: "https://registry.npmjs.org/{package}",
		extractors: []seedExtractor{
			{name: "package", source: domainpattern.SourcePath, pattern: `^/package/(.+)$`, group: 1},
		},
		mapping: domainpattern.ContentMapping{
			Title: "name", Description: "description", Body: "readme",
		},
		validation: domainpattern.ValidationSpec{RequiredFields: []string{"name"}, MinContentLength: 1},
	},
	{
		id:               "bootstrap-reddit-comments",
		hostname:         "reddit.com",
		urlRegex:         `^https://(?:www\.|old\.)?reddit\.com/r/[^/]+/comments/[^/]+/?.*$`,
		templateType:     domainpattern.JSONSuffix,
		endpointTemplate: domainpattern.URLSentinel,
		mapping: domainpattern.ContentMapping{
			Title: "[0].data.children[0].data.title",
			Body:  "[0].data.children[0].data.selftext",
			Metadata: map[string]string{
				"author": "[0].data.children[0].data.author",
				"score":  "[0].data.children[0].data.score",
			},
		},
		validation: domainpattern.ValidationSpec{MinContentLength: 1},
	},
	{
		id:               "bootstrap-hackernews-item",
		hostname:         "news.ycombinator.com",
		urlRegex:         `^https://news\.ycombinator\.com/item\?id=(\d+)$`,
		templateType:     domainpattern.FirebaseREST,
		endpointTemplate: "https://hacker-news.firebaseio.com/v0/item/{id}.json",
		extractors: []seedExtractor{
			{name: "id", source: domainpattern.SourceQuery, pattern: `(?:^|&)id=(\d+)`, group: 1},
		},
		mapping: domainpattern.ContentMapping{
			Title: "title", Body: "text",
			Metadata: map[string]string{"by": "by", "score": "score"},
		},
		validation: domainpattern.ValidationSpec{RequiredFields: []string{"title"}, MinContentLength: 1},
	},
}

// Bootstrap seeds the registry with builtinSeeds when it holds no patterns
// at all. Bootstrap is a normal learning event with source=bootstrap, each
// seed starting at confidence=1.0 (successCount=1000, failureCount=0).
func (s *Service) Bootstrap(now time.Time) error {
	if !s.repo.IsEmpty() {
		return nil
	}

	for _, sd := range builtinSeeds {
		extractors := make([]domainpattern.VariableExtractor, 0, len(sd.extractors))
		for _, se := range sd.extractors {
			ve, err := domainpattern.NewVariableExtractor(se.name, se.source, se.pattern, se.group, domainpattern.TransformNone)
			if err != nil {
				return err
			}
			extractors = append(extractors, ve)
		}

		p, err := domainpattern.New(
			sd.id, sd.hostname, sd.urlRegex, sd.templateType, sd.endpointTemplate, "GET", nil,
			extractors, sd.mapping, sd.validation, domainpattern.SourceBootstrap, now,
		)
		if err != nil {
			return err
		}
		p.SuccessCount = 1000
		p.LastSuccess = now

		s.repo.Put(p)
		s.onEvent(domainpattern.Event{
			Kind: domainpattern.EventLearned, PatternID: p.ID, Hostname: p.Hostname,
			Confidence: p.Confidence(), Reason: string(domainpattern.SourceBootstrap),
		})
	}
	return nil
}
