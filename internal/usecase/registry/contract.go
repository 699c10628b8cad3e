// Package registry implements the API Pattern Registry's service layer
// (C4): the match algorithm, new-pattern inference, metric updates, and
// archival sweep described for learned URL-to-API transformations.
package registry

import (
	domainpattern "github.com/kailas-cloud/fetchcascade/internal/domain/pattern"
)

// Repo is the persistence contract the registry service depends on. The
// concrete implementation is internal/repository/pattern.Repo; this
// consumer interface keeps the service testable without a filesystem.
type Repo interface {
	ForHostname(hostname string) []*domainpattern.LearnedApiPattern
	All() []*domainpattern.LearnedApiPattern
	Put(p *domainpattern.LearnedApiPattern)
	Get(id string) (*domainpattern.LearnedApiPattern, bool)
	Delete(id string)
	IsEmpty() bool
	Count() int
}

// EventSink receives registry lifecycle events. Implementations must not
// block; the service calls it synchronously from within Match/Apply/Learn.
type EventSink func(domainpattern.Event)
