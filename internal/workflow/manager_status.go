package workflow

import (
	"context"

	"adgen/internal/job"
	"adgen/internal/stage"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running     bool
	Active      int
	LastError   string
	JobStats    map[job.Status]int
	StageHealth map[string]stage.Health
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	m.mu.RUnlock()

	stats := make(map[job.Status]int)
	for _, snap := range m.registry.List("") {
		stats[snap.Status]++
	}

	var health map[string]stage.Health
	if m.pipeline != nil {
		health = make(map[string]stage.Health)
		for _, stg := range m.pipeline.Stages() {
			if stg.Health == nil {
				continue
			}
			health[stg.Name] = stg.Health(ctx)
		}
	}

	summary := StatusSummary{
		Running:     running,
		Active:      m.Active(),
		JobStats:    stats,
		StageHealth: health,
	}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	return summary
}
