package browser

import "context"

// LearningStatsResult summarizes the learning subsystems' accumulated
// state across every domain, for dashboards and operational visibility.
type LearningStatsResult struct {
	PatternCount      int
	VectorRecordCount int
	InFlightBrowses   int
}

// LearningStats reports aggregate counters across the pattern registry and
// vector store. Read-only: it never triggers a fetch or mutates learned
// state.
func (c *Client) LearningStats(ctx context.Context) (LearningStatsResult, error) {
	vecStats, err := c.vector.Stats(ctx)
	if err != nil {
		return LearningStatsResult{}, err
	}

	return LearningStatsResult{
		PatternCount:      c.registry.Count(),
		VectorRecordCount: vecStats.RecordCount,
		InFlightBrowses:   c.inFlight.InFlight(),
	}, nil
}
