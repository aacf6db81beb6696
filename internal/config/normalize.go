// internal/config/normalize.go
package config

import "time"

// Defaults mirror the values the line was commissioned with.
const (
	DefaultVideoSource       = "0"
	DefaultJPEGQuality       = 90
	DefaultLoopSleep         = 50 * time.Millisecond
	DefaultRetryDelay        = time.Second
	DefaultModelInputSize    = 640
	DefaultConfidence        = 0.5
	DefaultNMSThreshold      = 0.45
	DefaultReconnectInterval = 5 * time.Second
	DefaultTransportTimeout  = 5 * time.Second
	DefaultPulseWidth        = 100 * time.Millisecond
	DefaultPulseWorkers      = 10
	DefaultPulseQueueSize    = 16
	DefaultTopicPrefix       = "inspector"
	DefaultHTTPAddr          = ":5000"
	DefaultLogLevel          = "info"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	in := &cfg.Inspector

	if in.Video.Source == "" {
		in.Video.Source = DefaultVideoSource
	}
	if in.Video.JPEGQuality == 0 {
		in.Video.JPEGQuality = DefaultJPEGQuality
	}
	if in.Video.LoopSleepMs == 0 {
		in.Video.LoopSleepMs = int(DefaultLoopSleep / time.Millisecond)
	}
	if in.Video.RetryDelayMs == 0 {
		in.Video.RetryDelayMs = int(DefaultRetryDelay / time.Millisecond)
	}

	if in.Model.InputSize == 0 {
		in.Model.InputSize = DefaultModelInputSize
	}
	if in.Model.Confidence == 0 {
		in.Model.Confidence = DefaultConfidence
	}
	if in.Model.NMSThreshold == 0 {
		in.Model.NMSThreshold = DefaultNMSThreshold
	}

	// zone: an all-zero zone means "not configured"
	if in.Zone == (ZoneConfig{}) {
		in.Zone = ZoneConfig{Left: 260, Top: 165, Right: 160, Bottom: 165}
	}

	normalizeDot(&in.Indicators.PrimaryOnly, [3]uint8{0, 0, 255})
	normalizeDot(&in.Indicators.Both, [3]uint8{0, 255, 0})

	if in.PLC.ReconnectIntervalMs == 0 {
		in.PLC.ReconnectIntervalMs = int(DefaultReconnectInterval / time.Millisecond)
	}
	if in.PLC.TimeoutMs == 0 {
		in.PLC.TimeoutMs = int(DefaultTransportTimeout / time.Millisecond)
	}

	if in.Pulse.WidthMs == 0 {
		in.Pulse.WidthMs = int(DefaultPulseWidth / time.Millisecond)
	}
	if in.Pulse.Workers == 0 {
		in.Pulse.Workers = DefaultPulseWorkers
	}
	if in.Pulse.QueueSize == 0 {
		in.Pulse.QueueSize = DefaultPulseQueueSize
	}

	if in.MQTT.TopicPrefix == "" {
		in.MQTT.TopicPrefix = DefaultTopicPrefix
	}
	if in.HTTP.Addr == "" {
		in.HTTP.Addr = DefaultHTTPAddr
	}
	if in.Log.Level == "" {
		in.Log.Level = DefaultLogLevel
	}
}

func normalizeDot(d *DotConfig, color [3]uint8) {
	if d.X == 0 && d.Y == 0 {
		d.X, d.Y = 50, 50
	}
	if d.Radius == 0 {
		d.Radius = 15
	}
	if d.Color == ([3]uint8{}) {
		d.Color = color
	}
}

// ---- duration helpers ----

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func (p PLCConfig) ReconnectInterval() time.Duration { return ms(p.ReconnectIntervalMs) }
func (p PLCConfig) Timeout() time.Duration           { return ms(p.TimeoutMs) }
func (p PulseConfig) Width() time.Duration           { return ms(p.WidthMs) }
func (v VideoConfig) LoopSleep() time.Duration       { return ms(v.LoopSleepMs) }
func (v VideoConfig) RetryDelay() time.Duration      { return ms(v.RetryDelayMs) }
