package services

import (
	"context"
	"time"
)

// HealthStatus represents the status of a service
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details,omitempty"`
}

// Pinger is any dependency that can report its own reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthService checks the optional backing stores
type HealthService struct {
	checks map[string]Pinger
}

// NewHealthService creates a health service; nil dependencies are skipped
func NewHealthService(deps map[string]Pinger) *HealthService {
	checks := make(map[string]Pinger, len(deps))
	for name, p := range deps {
		if p != nil {
			checks[name] = p
		}
	}
	return &HealthService{checks: checks}
}

// CheckOverall pings every configured dependency
func (s *HealthService) CheckOverall(ctx context.Context) map[string]HealthStatus {
	status := make(map[string]HealthStatus, len(s.checks))

	for name, p := range s.checks {
		if err := p.Ping(ctx); err != nil {
			status[name] = HealthStatus{
				Status:    "error",
				Timestamp: time.Now(),
				Details:   err.Error(),
			}
			continue
		}
		status[name] = HealthStatus{
			Status:    "ok",
			Timestamp: time.Now(),
		}
	}

	return status
}

// Healthy reports whether every entry of status is ok
func Healthy(status map[string]HealthStatus) bool {
	for _, s := range status {
		if s.Status != "ok" {
			return false
		}
	}
	return true
}
