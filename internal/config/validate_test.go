// internal/config/validate_test.go
package config

import (
	"testing"
	"time"
)

// helper to build a minimal valid config quickly
func base(kind string) *Config {
	cfg := &Config{
		Inspector: InspectorConfig{
			Classes: ClassesConfig{Primary: 1, Secondary: 0},
			PLC:     PLCConfig{Kind: kind},
		},
	}
	switch kind {
	case KindS7:
		cfg.Inspector.PLC.S7 = S7Config{Endpoint: "192.168.9.20", Rack: 0, Slot: 1, DB: 15, Byte: 0, Bits: [2]uint8{0, 1}}
	case KindOPCUA:
		cfg.Inspector.PLC.OPCUA = OPCUAConfig{Endpoint: "opc.tcp://192.168.9.20:4840", Nodes: [2]string{"ns=4;i=3", "ns=4;i=4"}}
	case KindModbus:
		cfg.Inspector.PLC.Modbus = ModbusConfig{Endpoint: "192.168.9.20:502", UnitID: 1, Coils: [2]uint16{0, 1}}
	}
	return cfg
}

// ---- tests ----

func TestValidate_AllKindsAccepted(t *testing.T) {
	for _, kind := range []string{KindS7, KindOPCUA, KindModbus} {
		if err := Validate(base(kind)); err != nil {
			t.Fatalf("kind=%s unexpected error: %v", kind, err)
		}
	}
}

func TestValidate_UnknownKind(t *testing.T) {
	cfg := base(KindS7)
	cfg.Inspector.PLC.Kind = "profinet"

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected unsupported kind error, got nil")
	}
}

func TestValidate_S7BitOutOfRange(t *testing.T) {
	cfg := base(KindS7)
	cfg.Inspector.PLC.S7.Bits = [2]uint8{0, 8}

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected bit range error, got nil")
	}
}

func TestValidate_S7SameBitForBothSignals(t *testing.T) {
	cfg := base(KindS7)
	cfg.Inspector.PLC.S7.Bits = [2]uint8{3, 3}

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected bit collision error, got nil")
	}
}

func TestValidate_OPCUAMissingNode(t *testing.T) {
	cfg := base(KindOPCUA)
	cfg.Inspector.PLC.OPCUA.Nodes[1] = ""

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected missing node error, got nil")
	}
}

func TestValidate_SameClassIDs(t *testing.T) {
	cfg := base(KindModbus)
	cfg.Inspector.Classes = ClassesConfig{Primary: 2, Secondary: 2}

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected class collision error, got nil")
	}
}

func TestValidate_ConfidenceOutOfRange(t *testing.T) {
	cfg := base(KindS7)
	cfg.Inspector.Model.Confidence = 1.5

	if err := Validate(cfg); err == nil {
		t.Fatalf("expected confidence error, got nil")
	}
}

func TestValidate_DoesNotMutate(t *testing.T) {
	cfg := base(KindS7)
	before := *cfg

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *cfg != before {
		t.Fatalf("Validate mutated the configuration")
	}
}

func TestNormalize_Defaults(t *testing.T) {
	cfg := base(KindOPCUA)
	Normalize(cfg)

	in := cfg.Inspector
	if got := in.PLC.ReconnectInterval(); got != 5*time.Second {
		t.Fatalf("reconnect interval: got=%v want=5s", got)
	}
	if got := in.Pulse.Width(); got != 100*time.Millisecond {
		t.Fatalf("pulse width: got=%v want=100ms", got)
	}
	if in.Pulse.Workers != 10 {
		t.Fatalf("pulse workers: got=%d want=10", in.Pulse.Workers)
	}
	if in.Zone != (ZoneConfig{Left: 260, Top: 165, Right: 160, Bottom: 165}) {
		t.Fatalf("zone default not applied: %+v", in.Zone)
	}
	if in.Indicators.PrimaryOnly.Color != [3]uint8{0, 0, 255} {
		t.Fatalf("primary_only color default: got=%v", in.Indicators.PrimaryOnly.Color)
	}
	if in.Model.Confidence != 0.5 {
		t.Fatalf("confidence default: got=%v want=0.5", in.Model.Confidence)
	}
}

func TestNormalize_KeepsExplicitValues(t *testing.T) {
	cfg := base(KindS7)
	cfg.Inspector.Pulse.WidthMs = 250
	cfg.Inspector.Zone = ZoneConfig{Left: 10, Top: 10, Right: 10, Bottom: 10}
	Normalize(cfg)

	if cfg.Inspector.Pulse.WidthMs != 250 {
		t.Fatalf("explicit pulse width overwritten: %d", cfg.Inspector.Pulse.WidthMs)
	}
	if cfg.Inspector.Zone.Left != 10 {
		t.Fatalf("explicit zone overwritten: %+v", cfg.Inspector.Zone)
	}
}

func TestParse_EnvOverride(t *testing.T) {
	t.Setenv(EnvPLCEndpoint, "10.0.0.5")
	t.Setenv(EnvHTTPAddr, ":8080")

	raw := []byte(`
inspector:
  classes: {primary: 1, secondary: 0}
  plc:
    kind: s7
    s7: {endpoint: 192.168.9.20, rack: 0, slot: 1, db: 15, byte: 0, bits: [0, 1]}
`)
	cfg, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse err=%v", err)
	}
	if cfg.Inspector.PLC.S7.Endpoint != "10.0.0.5" {
		t.Fatalf("endpoint override: got=%q", cfg.Inspector.PLC.S7.Endpoint)
	}
	if cfg.Inspector.HTTP.Addr != ":8080" {
		t.Fatalf("http addr override: got=%q", cfg.Inspector.HTTP.Addr)
	}
	if cfg.Inspector.PLC.S7.DB != 15 {
		t.Fatalf("db: got=%d want=15", cfg.Inspector.PLC.S7.DB)
	}
}

func TestLoad_ExampleFile(t *testing.T) {
	cfg, err := Load("../../config.example.yaml")
	if err != nil {
		t.Fatalf("Load err=%v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate err=%v", err)
	}
	Normalize(cfg)

	in := cfg.Inspector
	if in.PLC.Kind != KindS7 || in.PLC.S7.Slot != 1 {
		t.Fatalf("plc: got kind=%q slot=%d", in.PLC.Kind, in.PLC.S7.Slot)
	}
	if in.Zone != (ZoneConfig{Left: 260, Top: 165, Right: 160, Bottom: 165}) {
		t.Fatalf("zone: got=%+v", in.Zone)
	}
	if in.Indicators.PrimaryOnly.Color != [3]uint8{0, 0, 255} {
		t.Fatalf("primary_only color: got=%v", in.Indicators.PrimaryOnly.Color)
	}
}
