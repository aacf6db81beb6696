// internal/plc/builder.go
package plc

import (
	"fmt"

	"go.uber.org/zap"

	cfg "github.com/tamzrod/line-inspector/internal/config"
	pmodbus "github.com/tamzrod/line-inspector/internal/plc/modbus"
	popcua "github.com/tamzrod/line-inspector/internal/plc/opcua"
	ps7 "github.com/tamzrod/line-inspector/internal/plc/s7"
)

// BuildFactory returns a transport factory for the configured PLC kind.
// The factory makes ONE unconnected transport per call; the manager owns
// connection lifecycle and rebuilds wedged transports through it.
func BuildFactory(p cfg.PLCConfig) (Factory, error) {
	timeout := p.Timeout()

	switch p.Kind {
	case cfg.KindS7:
		return func() (Transport, error) {
			return ps7.New(ps7.Config{
				Endpoint: p.S7.Endpoint,
				Rack:     p.S7.Rack,
				Slot:     p.S7.Slot,
				DB:       p.S7.DB,
				Byte:     p.S7.Byte,
				Bits:     p.S7.Bits,
				Timeout:  timeout,
			})
		}, nil

	case cfg.KindOPCUA:
		return func() (Transport, error) {
			return popcua.New(popcua.Config{
				Endpoint: p.OPCUA.Endpoint,
				Nodes:    p.OPCUA.Nodes,
				Timeout:  timeout,
			})
		}, nil

	case cfg.KindModbus:
		return func() (Transport, error) {
			return pmodbus.New(pmodbus.Config{
				Endpoint: p.Modbus.Endpoint,
				UnitID:   p.Modbus.UnitID,
				Coils:    p.Modbus.Coils,
				Timeout:  timeout,
			})
		}, nil
	}

	return nil, fmt.Errorf("plc: unsupported kind %q", p.Kind)
}

// Build wires a Manager and a PulseEmitter from configuration.
// A nil factory means the one BuildFactory returns for p.
func Build(p cfg.PLCConfig, pulse cfg.PulseConfig, mc ManagerConfig, factory Factory) (*Manager, *PulseEmitter, error) {
	if factory == nil {
		f, err := BuildFactory(p)
		if err != nil {
			return nil, nil, err
		}
		factory = f
	}

	mc.ReconnectInterval = p.ReconnectInterval()
	mc.Timeout = p.Timeout()
	if mc.Logger == nil {
		mc.Logger = zap.NewNop()
	}

	m, err := NewManager(mc, factory)
	if err != nil {
		return nil, nil, err
	}

	e, err := NewPulseEmitter(PulseConfig{
		Width:     pulse.Width(),
		Workers:   pulse.Workers,
		QueueSize: pulse.QueueSize,
		Clock:     mc.Clock,
		Logger:    mc.Logger.Named("pulse"),
	}, m)
	if err != nil {
		return nil, nil, err
	}

	return m, e, nil
}
