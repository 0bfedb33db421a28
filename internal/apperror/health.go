package apperror

// HealthStatus is the coarse service health derived from recent errors.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// DependencyStatus describes one guarded dependency.
type DependencyStatus struct {
	Service     string `json:"service"`
	Status      string `json:"status"`
	LastFailure string `json:"last_failure,omitempty"`
}

// Health is the payload served by the health endpoint.
type Health struct {
	Status       HealthStatus       `json:"status"`
	Dependencies []DependencyStatus `json:"dependencies"`
	Statistics   Stats              `json:"statistics"`
}

// Health grades the service by its recent error volume. An open dependency
// downgrades a healthy service to degraded.
func (t *Tracker) Health(deps []DependencyStatus) Health {
	stats := t.Stats()

	status := HealthHealthy
	switch {
	case stats.RecentErrorCount > 100:
		status = HealthUnhealthy
	case stats.RecentErrorCount > 50:
		status = HealthDegraded
	}

	if status == HealthHealthy {
		for _, d := range deps {
			if d.Status != "closed" && d.Status != "healthy" {
				status = HealthDegraded
				break
			}
		}
	}

	if deps == nil {
		deps = []DependencyStatus{}
	}
	return Health{Status: status, Dependencies: deps, Statistics: stats}
}
