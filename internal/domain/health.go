package domain

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status     string       `json:"status"` // healthy, degraded
	Components []Component  `json:"components"`
	Runs       *RunCapacity `json:"runs,omitempty"`
}

// Component is the health of one dependency.
type Component struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latency_ms"`
	Error       string `json:"error,omitempty"`
	LastChecked string `json:"last_checked"`
}

// RunCapacity reports how many analyses are running against the limit and
// how many sessions still hold state.
type RunCapacity struct {
	InFlight       int `json:"in_flight"`
	Limit          int `json:"limit"`
	ActiveSessions int `json:"active_sessions"`
}

// SuccessResponse wraps a successful mutation.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}
