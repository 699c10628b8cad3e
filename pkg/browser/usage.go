package browser

import (
	"context"

	domusage "github.com/kailas-cloud/fetchcascade/internal/domain/usage"
)

// UsagePeriod is the aggregation granularity for a UsageReport.
type UsagePeriod string

// Aggregation periods.
const (
	UsagePeriodDay   UsagePeriod = UsagePeriod(domusage.PeriodDay)
	UsagePeriodMonth UsagePeriod = UsagePeriod(domusage.PeriodMonth)
	UsagePeriodTotal UsagePeriod = UsagePeriod(domusage.PeriodTotal)
)

// UsageReport summarizes embedding token consumption for one period.
type UsageReport struct {
	Period            UsagePeriod
	PeriodStartMs     int64
	PeriodEndMs       int64
	EmbeddingRequests int
	TokensUsed        int
	TokensLimit       int
	TokensRemaining   int
	BudgetExhausted   bool
	ResetsAtMs        int64
	Provider          string
}

// Usage reports embedding token consumption for the given period against
// whatever budget was configured via WithEmbeddingBudget. Without a budget
// configured, limits and remaining counts report as zero (unlimited).
func (c *Client) Usage(ctx context.Context, period UsagePeriod) UsageReport {
	report := c.usageSvc.GetReport(ctx, domusage.Period(period))
	m := report.Metrics()
	b := report.Budget()
	return UsageReport{
		Period:            UsagePeriod(report.Period()),
		PeriodStartMs:     report.PeriodStart(),
		PeriodEndMs:       report.PeriodEnd(),
		EmbeddingRequests: m.EmbeddingRequests(),
		TokensUsed:        m.Tokens(),
		TokensLimit:       b.TokensLimit(),
		TokensRemaining:   b.TokensRemaining(),
		BudgetExhausted:   b.IsExhausted(),
		ResetsAtMs:        b.ResetsAt(),
		Provider:          report.Provider(),
	}
}
