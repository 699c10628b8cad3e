package usage

import (
	"github.com/kailas-cloud/fetchcascade/internal/domain/usage/budget"
	"github.com/kailas-cloud/fetchcascade/internal/domain/usage/metrics"
)

// Period is the aggregation granularity.
type Period string

// Aggregation period constants.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
	PeriodTotal Period = "total"
)

// Report is an embedding API usage report for a time period.
type Report struct {
	period      Period
	periodStart int64
	periodEnd   int64
	provider    string
	metrics     metrics.Metrics
	budget      budget.Budget
}

// NewReport creates a usage report. provider names the embedding provider
// the budget counters belong to (e.g. "voyage", "openai"), empty when the
// tracker is unlimited/unset.
func NewReport(period Period, start, end int64, provider string, m metrics.Metrics, b budget.Budget) Report {
	return Report{
		period:      period,
		periodStart: start,
		periodEnd:   end,
		provider:    provider,
		metrics:     m,
		budget:      b,
	}
}

// Period returns the aggregation granularity.
func (r *Report) Period() Period { return r.period }

// PeriodStart returns the period start timestamp (unix millis).
func (r *Report) PeriodStart() int64 { return r.periodStart }

// PeriodEnd returns the period end timestamp (unix millis).
func (r *Report) PeriodEnd() int64 { return r.periodEnd }

// Provider returns the embedding provider the budget counters belong to.
func (r *Report) Provider() string { return r.provider }

// Metrics returns the usage metrics.
func (r *Report) Metrics() metrics.Metrics { return r.metrics }

// Budget returns the budget status.
func (r *Report) Budget() budget.Budget { return r.budget }
