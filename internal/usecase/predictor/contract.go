// Package predictor implements the Content-Change Predictor's service
// layer (C5): recording check observations, triggering re-classification,
// and answering "should I check now" for the scheduler.
package predictor

import (
	"time"

	domainchangepattern "github.com/kailas-cloud/fetchcascade/internal/domain/changepattern"
)

// Repo is the persistence contract the predictor service depends on.
// internal/repository/changepattern.Repo satisfies this.
type Repo interface {
	GetOrCreate(hostname, urlPattern string, now time.Time) *domainchangepattern.ContentChangePattern
	All() []*domainchangepattern.ContentChangePattern
	Save()
}
