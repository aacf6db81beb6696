// internal/plc/transport.go
package plc

import (
	"context"
	"errors"
	"fmt"
)

// Transport abstracts one PLC session.
// Implementations are geometry-only: they know how to reach the two output
// channels, not what the channels mean.
//
// Channel is 0 for the primary-only output and 1 for the both output.
type Transport interface {
	// Connect opens a session and resolves the output handles.
	// Success means both steps succeeded.
	Connect(ctx context.Context) error
	Close(ctx context.Context) error
	Write(ctx context.Context, channel int, value bool) error
	// Probe is a trivial read used as a health check.
	Probe(ctx context.Context) error
}

// Factory builds a fresh, unconnected Transport.
// ONE object per call; the manager discards wedged instances and asks again.
type Factory func() (Transport, error)

var (
	ErrConnect       = errors.New("plc: connect failed")
	ErrWrite         = errors.New("plc: write failed")
	ErrNotConnected  = errors.New("plc: not connected")
	ErrUnknownSignal = errors.New("plc: unknown signal")
)

// Signal identifies one boolean output towards the PLC.
type Signal uint8

const (
	// SignalPrimaryOnly is raised when the primary object is present without
	// the secondary one (signal 1).
	SignalPrimaryOnly Signal = 1
	// SignalBoth is raised when both objects are present (signal 2).
	SignalBoth Signal = 2
)

// Channel maps a signal to the transport channel index.
func (s Signal) Channel() (int, error) {
	switch s {
	case SignalPrimaryOnly:
		return 0, nil
	case SignalBoth:
		return 1, nil
	}
	return -1, fmt.Errorf("%w: %d", ErrUnknownSignal, uint8(s))
}

func (s Signal) String() string {
	switch s {
	case SignalPrimaryOnly:
		return "primary_only"
	case SignalBoth:
		return "both"
	}
	return fmt.Sprintf("signal(%d)", uint8(s))
}

// State is the connection state owned by Manager.
type State uint8

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}
