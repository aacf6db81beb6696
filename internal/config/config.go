// internal/config/config.go
package config

type Config struct {
	Inspector InspectorConfig `yaml:"inspector"`
}

type InspectorConfig struct {
	Video      VideoConfig     `yaml:"video"`
	Model      ModelConfig     `yaml:"model"`
	Classes    ClassesConfig   `yaml:"classes"`
	Zone       ZoneConfig      `yaml:"zone"`
	Indicators IndicatorConfig `yaml:"indicators"`
	PLC        PLCConfig       `yaml:"plc"`
	Pulse      PulseConfig     `yaml:"pulse"`
	MQTT       MQTTConfig      `yaml:"mqtt"`
	HTTP       HTTPConfig      `yaml:"http"`
	Log        LogConfig       `yaml:"log"`
}

// ---- VIDEO / MODEL ----

type VideoConfig struct {
	// Source is a device index ("0") or a file / stream URL.
	Source       string `yaml:"source"`
	JPEGQuality  int    `yaml:"jpeg_quality"`
	LoopSleepMs  int    `yaml:"loop_sleep_ms"`
	RetryDelayMs int    `yaml:"retry_delay_ms"`
}

type ModelConfig struct {
	Path          string  `yaml:"path"`
	OptimizedPath string  `yaml:"optimized_path"` // preferred when the file exists
	InputSize     int     `yaml:"input_size"`
	Confidence    float64 `yaml:"confidence_threshold"`
	NMSThreshold  float64 `yaml:"nms_threshold"`
}

type ClassesConfig struct {
	Primary   int `yaml:"primary"`
	Secondary int `yaml:"secondary"`
}

// ---- GEOMETRY ----

// ZoneConfig holds pixel offsets from the frame center.
type ZoneConfig struct {
	Left   int `yaml:"left"`
	Top    int `yaml:"top"`
	Right  int `yaml:"right"`
	Bottom int `yaml:"bottom"`
}

type IndicatorConfig struct {
	PrimaryOnly DotConfig `yaml:"primary_only"`
	Both        DotConfig `yaml:"both"`
}

type DotConfig struct {
	X      int      `yaml:"x"`
	Y      int      `yaml:"y"`
	Radius int      `yaml:"radius"`
	Color  [3]uint8 `yaml:"color"` // B, G, R
}

// ---- PLC ----

type PLCConfig struct {
	Kind                string       `yaml:"kind"` // s7 | opcua | modbus
	ReconnectIntervalMs int          `yaml:"reconnect_interval_ms"`
	TimeoutMs           int          `yaml:"timeout_ms"`
	S7                  S7Config     `yaml:"s7"`
	OPCUA               OPCUAConfig  `yaml:"opcua"`
	Modbus              ModbusConfig `yaml:"modbus"`
}

type S7Config struct {
	Endpoint string   `yaml:"endpoint"`
	Rack     int      `yaml:"rack"`
	Slot     int      `yaml:"slot"`
	DB       int      `yaml:"db"`
	Byte     int      `yaml:"byte"`
	Bits     [2]uint8 `yaml:"bits"` // [primary_only, both]
}

type OPCUAConfig struct {
	Endpoint string    `yaml:"endpoint"`
	Nodes    [2]string `yaml:"nodes"` // [primary_only, both]
}

type ModbusConfig struct {
	Endpoint string    `yaml:"endpoint"`
	UnitID   uint8     `yaml:"unit_id"`
	Coils    [2]uint16 `yaml:"coils"` // [primary_only, both]
}

// ---- PULSE ----

type PulseConfig struct {
	WidthMs   int `yaml:"width_ms"`
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

// ---- EVENTS ----

// MQTTConfig is optional; an empty broker disables event publication.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
}

// ---- SURFACE ----

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

const (
	KindS7     = "s7"
	KindOPCUA  = "opcua"
	KindModbus = "modbus"
)
