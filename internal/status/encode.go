// internal/status/encode.go
package status

import (
	"encoding/json"
	"time"

	"github.com/tamzrod/line-inspector/internal/broadcast"
	"github.com/tamzrod/line-inspector/internal/stats"
)

// Report is the JSON status record served to operators.
// Field names are part of the external contract.
type Report struct {
	DetectionEnabled    bool          `json:"detection_enabled"`
	LastDetection       LastDetection `json:"last_detection"`
	PLCSignals          PLCSignals    `json:"plc_signals"`
	OPCUAConnected      bool          `json:"opcua_connected"`
	ConnectionConnected bool          `json:"connection_connected"`
	SystemStatus        string        `json:"system_status"`
	DegradedReason      string        `json:"degraded_reason,omitempty"`
	PLC                 PLCBlock      `json:"plc"`
	Pulses              PulseBlock    `json:"pulses"`
}

// LastDetection mirrors the latest detection snapshot plus counters.
type LastDetection struct {
	Pizza                bool       `json:"pizza"`
	Blister              bool       `json:"blister"`
	ConfPizza            float64    `json:"conf_pizza"`
	ConfBlister          float64    `json:"conf_blister"`
	OPCUAConnected       bool       `json:"opcua_connected"`
	CounterSinBlister    uint64     `json:"counter_sin_blister"`
	CounterConBlister    uint64     `json:"counter_con_blister"`
	CounterTotal         uint64     `json:"counter_total"`
	PorcentajeSinBlister float64    `json:"porcentaje_sin_blister"`
	PorcentajeConBlister float64    `json:"porcentaje_con_blister"`
	Timestamp            *time.Time `json:"timestamp"`
}

// PLCSignals are the output levels implied by the latest classification.
type PLCSignals struct {
	Bit0PizzaSinBlister bool `json:"bit0_pizza_sin_blister"`
	Bit1PizzaConBlister bool `json:"bit1_pizza_con_blister"`
}

// PLCBlock is the connection manager health.
type PLCBlock struct {
	State               string     `json:"state"`
	HealthCode          uint16     `json:"health_code"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	Reconnects          uint64     `json:"reconnects"`
	Recreations         uint64     `json:"recreations"`
	LastError           string     `json:"last_error,omitempty"`
	LastConnected       *time.Time `json:"last_connected,omitempty"`
}

// PulseBlock is the pulse emitter counters.
type PulseBlock struct {
	Accepted  uint64 `json:"accepted"`
	Dropped   uint64 `json:"dropped"`
	Completed uint64 `json:"completed"`
	Failed    uint64 `json:"failed"`
	InFlight  int    `json:"in_flight"`
}

// Encode converts a Snapshot into a Report.
// No IO. No side effects.
func Encode(s Snapshot) Report {
	connected := s.PLC.Connected

	d := s.Detection
	ld := LastDetection{
		Pizza:                d.PrimaryPresent,
		Blister:              d.SecondaryPresent,
		ConfPizza:            d.PrimaryConfidence,
		ConfBlister:          d.SecondaryConfidence,
		OPCUAConnected:       connected,
		CounterSinBlister:    s.Counters.PrimaryOnly,
		CounterConBlister:    s.Counters.Both,
		CounterTotal:         s.Counters.Total,
		PorcentajeSinBlister: s.Counters.Percent(stats.KindPrimaryOnly),
		PorcentajeConBlister: s.Counters.Percent(stats.KindBoth),
	}
	if s.HasDetection && !d.Timestamp.IsZero() {
		ts := d.Timestamp
		ld.Timestamp = &ts
	}

	r := Report{
		DetectionEnabled: s.DetectionEnabled,
		LastDetection:    ld,
		PLCSignals: PLCSignals{
			Bit0PizzaSinBlister: d.PrimaryPresent && !d.SecondaryPresent,
			Bit1PizzaConBlister: d.PrimaryPresent && d.SecondaryPresent,
		},
		OPCUAConnected:      connected,
		ConnectionConnected: connected,
		SystemStatus:        systemStatus(s.Mode),
		PLC: PLCBlock{
			State:               s.PLC.State.String(),
			HealthCode:          HealthCode(s.PLC),
			ConsecutiveFailures: s.PLC.ConsecutiveFailures,
			Reconnects:          s.PLC.Reconnects,
			Recreations:         s.PLC.Recreations,
			LastError:           s.PLC.LastError,
		},
		Pulses: PulseBlock{
			Accepted:  s.Pulses.Accepted,
			Dropped:   s.Pulses.Dropped,
			Completed: s.Pulses.Completed,
			Failed:    s.Pulses.Failed,
			InFlight:  s.Pulses.InFlight,
		},
	}
	if s.Mode == broadcast.ModeDegraded {
		r.DegradedReason = s.Reason
	}
	if !s.PLC.LastConnected.IsZero() {
		lc := s.PLC.LastConnected
		r.PLC.LastConnected = &lc
	}
	return r
}

// JSON encodes the report.
func (r Report) JSON() ([]byte, error) {
	return json.Marshal(r)
}

func systemStatus(m broadcast.Mode) string {
	switch m {
	case broadcast.ModeActive:
		return SystemActive
	case broadcast.ModeDegraded:
		return SystemDegraded
	}
	return SystemInitializing
}
