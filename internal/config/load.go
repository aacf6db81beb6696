// internal/config/load.go
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment overrides. Applied after the YAML file, before Validate.
const (
	EnvPLCEndpoint = "INSPECTOR_PLC_ENDPOINT"
	EnvVideoSource = "INSPECTOR_VIDEO_SOURCE"
	EnvMQTTBroker  = "INSPECTOR_MQTT_BROKER"
	EnvHTTPAddr    = "INSPECTOR_HTTP_ADDR"
)

// Load reads a YAML config file and applies environment overrides.
// A .env file in the working directory is loaded if present.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes YAML bytes and applies environment overrides.
func Parse(raw []byte) (*Config, error) {
	// missing .env is fine
	_ = godotenv.Load()

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}

	applyEnv(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	in := &cfg.Inspector

	if v := os.Getenv(EnvPLCEndpoint); v != "" {
		switch in.PLC.Kind {
		case KindS7:
			in.PLC.S7.Endpoint = v
		case KindOPCUA:
			in.PLC.OPCUA.Endpoint = v
		case KindModbus:
			in.PLC.Modbus.Endpoint = v
		}
	}
	if v := os.Getenv(EnvVideoSource); v != "" {
		in.Video.Source = v
	}
	if v := os.Getenv(EnvMQTTBroker); v != "" {
		in.MQTT.Broker = v
	}
	if v := os.Getenv(EnvHTTPAddr); v != "" {
		in.HTTP.Addr = v
	}
}
