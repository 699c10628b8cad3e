package browser

import (
	"context"

	healthuc "github.com/kailas-cloud/fetchcascade/internal/usecase/health"
)

// HealthStatus mirrors internal/usecase/health.Status for public consumers.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = HealthStatus(healthuc.Healthy)
	HealthStatusDegraded  HealthStatus = HealthStatus(healthuc.Degraded)
	HealthStatusUnhealthy HealthStatus = HealthStatus(healthuc.Unhealthy)
)

// HealthReport aggregates the liveness of every backing dependency: the
// Redis connection and, if one is configured, the embedding provider.
type HealthReport struct {
	Status HealthStatus
	Checks map[string]string
}

// Health runs every configured liveness check and aggregates the result.
// Unlike Ping, it also exercises the embedding provider (when configured)
// via a lightweight ListModels-style call.
func (c *Client) Health(ctx context.Context) HealthReport {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for component, result := range report.Checks {
		checks[component] = string(result)
	}
	return HealthReport{Status: HealthStatus(report.Status), Checks: checks}
}
