package fleet

import (
	"context"
	"time"

	"github.com/kilianp07/stationrisk/core/monitoring"
)

// AutoTick advances a simulated clock by step every interval, starting
// from start, until ctx is done. Tick failures are logged and reported;
// the loop keeps running.
func (m *Manager) AutoTick(ctx context.Context, start time.Time, step, interval time.Duration) {
	defer monitoring.Recover()
	if step <= 0 || interval <= 0 {
		m.logger.Warnf("auto-tick disabled: step %s, interval %s", step, interval)
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	clock := start
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			clock = clock.Add(step)
			res, err := m.Tick(clock)
			if err != nil {
				m.logger.Errorf("auto-tick at %s: %v", clock.Format(time.RFC3339), err)
				monitoring.Capture("autotick", err)
				continue
			}
			m.logger.Debugw("auto-tick", map[string]any{
				"target": clock, "surged": len(res.Report.Surged), "healed": len(res.Report.Healed),
			})
		}
	}
}
