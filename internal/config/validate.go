// internal/config/validate.go
package config

import (
	"fmt"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
// Zero values are accepted wherever Normalize supplies a default.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil config")
	}
	in := cfg.Inspector

	// ------------------------------------------------------------
	// DETECTION
	// ------------------------------------------------------------

	if in.Model.Confidence < 0 || in.Model.Confidence > 1 {
		return fmt.Errorf(
			"model: confidence_threshold must be within [0,1], got %v",
			in.Model.Confidence,
		)
	}
	if in.Model.NMSThreshold < 0 || in.Model.NMSThreshold > 1 {
		return fmt.Errorf(
			"model: nms_threshold must be within [0,1], got %v",
			in.Model.NMSThreshold,
		)
	}
	if in.Classes.Primary == in.Classes.Secondary {
		return fmt.Errorf(
			"classes: primary and secondary must differ (both %d)",
			in.Classes.Primary,
		)
	}
	if in.Classes.Primary < 0 || in.Classes.Secondary < 0 {
		return fmt.Errorf("classes: class ids must be >= 0")
	}
	if in.Video.JPEGQuality < 0 || in.Video.JPEGQuality > 100 {
		return fmt.Errorf("video: jpeg_quality must be within [0,100], got %d", in.Video.JPEGQuality)
	}

	// ------------------------------------------------------------
	// GEOMETRY
	// ------------------------------------------------------------

	z := in.Zone
	if z.Left < 0 || z.Top < 0 || z.Right < 0 || z.Bottom < 0 {
		return fmt.Errorf("zone: offsets from center must be >= 0")
	}
	for name, d := range map[string]DotConfig{
		"primary_only": in.Indicators.PrimaryOnly,
		"both":         in.Indicators.Both,
	} {
		if d.Radius < 0 || d.X < 0 || d.Y < 0 {
			return fmt.Errorf("indicators.%s: position and radius must be >= 0", name)
		}
	}

	// ------------------------------------------------------------
	// PLC TRANSPORT
	// ------------------------------------------------------------

	p := in.PLC
	switch p.Kind {
	case KindS7:
		if p.S7.Endpoint == "" {
			return fmt.Errorf("plc.s7: endpoint required")
		}
		if p.S7.DB <= 0 {
			return fmt.Errorf("plc.s7: db must be > 0, got %d", p.S7.DB)
		}
		if p.S7.Byte < 0 {
			return fmt.Errorf("plc.s7: byte must be >= 0, got %d", p.S7.Byte)
		}
		for i, b := range p.S7.Bits {
			if b > 7 {
				return fmt.Errorf("plc.s7: bits[%d]=%d out of range 0..7", i, b)
			}
		}
		if p.S7.Bits[0] == p.S7.Bits[1] {
			return fmt.Errorf("plc.s7: both signals map to bit %d", p.S7.Bits[0])
		}

	case KindOPCUA:
		if p.OPCUA.Endpoint == "" {
			return fmt.Errorf("plc.opcua: endpoint required")
		}
		for i, n := range p.OPCUA.Nodes {
			if n == "" {
				return fmt.Errorf("plc.opcua: nodes[%d] required", i)
			}
		}
		if p.OPCUA.Nodes[0] == p.OPCUA.Nodes[1] {
			return fmt.Errorf("plc.opcua: both signals map to node %q", p.OPCUA.Nodes[0])
		}

	case KindModbus:
		if p.Modbus.Endpoint == "" {
			return fmt.Errorf("plc.modbus: endpoint required")
		}
		if p.Modbus.Coils[0] == p.Modbus.Coils[1] {
			return fmt.Errorf("plc.modbus: both signals map to coil %d", p.Modbus.Coils[0])
		}

	default:
		return fmt.Errorf("plc: unsupported kind %q (want s7, opcua or modbus)", p.Kind)
	}

	if p.ReconnectIntervalMs < 0 || p.TimeoutMs < 0 {
		return fmt.Errorf("plc: reconnect_interval_ms and timeout_ms must be >= 0")
	}

	// ------------------------------------------------------------
	// PULSE / EVENTS
	// ------------------------------------------------------------

	if in.Pulse.WidthMs < 0 || in.Pulse.Workers < 0 || in.Pulse.QueueSize < 0 {
		return fmt.Errorf("pulse: width_ms, workers and queue_size must be >= 0")
	}
	if in.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt: qos must be 0, 1 or 2, got %d", in.MQTT.QoS)
	}

	return nil
}
