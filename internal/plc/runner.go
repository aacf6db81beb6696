// internal/plc/runner.go
package plc

import (
	"context"

	"go.uber.org/zap"
)

// Run is the reconnection loop. One goroutine per manager, until ctx is done.
//
// Disconnected: forced connect attempt.
// Connected: health probe.
// After more than 10 consecutive failures the transport is rebuilt.
// Every iteration ends with a Backoff wait, whatever the outcome.
func (m *Manager) Run(ctx context.Context) {
	m.log.Info("plc reconnection loop started")
	defer m.log.Info("plc reconnection loop stopped")

	failures := 0
	for {
		if ctx.Err() != nil {
			return
		}

		if !m.IsConnected() {
			if failures > recreateAfter {
				m.recreate(ctx)
				failures = 0
			}
			if m.Connect(ctx, true) {
				failures = 0
			} else {
				failures++
			}
		} else {
			if m.Probe(ctx) {
				failures = 0
			} else {
				failures++
				m.log.Warn("plc health probe failed", zap.Int("consecutive_failures", failures))
			}
		}
		m.setFailures(failures)

		select {
		case <-ctx.Done():
			return
		case <-m.clock.After(Backoff(m.cfg.ReconnectInterval, failures)):
		}
	}
}
