// internal/status/snapshot.go
package status

import (
	"github.com/tamzrod/line-inspector/internal/broadcast"
	"github.com/tamzrod/line-inspector/internal/detect"
	"github.com/tamzrod/line-inspector/internal/plc"
	"github.com/tamzrod/line-inspector/internal/stats"
)

// Snapshot is everything the status report is built from.
// It contains no logic; collecting it is the caller's job.
type Snapshot struct {
	DetectionEnabled bool

	Detection    detect.Snapshot
	HasDetection bool

	Counters stats.Counters
	Mode     broadcast.Mode
	Reason   string

	PLC    plc.Health
	Pulses plc.PulseStats
}

// HealthCode maps the PLC link state to a numeric health code.
func HealthCode(h plc.Health) uint16 {
	switch h.State {
	case plc.StateConnected:
		return HealthOK
	case plc.StateConnecting:
		return HealthConnecting
	case plc.StateFailed:
		return HealthError
	case plc.StateDisconnected:
		if !h.LastConnected.IsZero() {
			return HealthStale
		}
	}
	return HealthUnknown
}
