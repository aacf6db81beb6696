// internal/plc/manager.go
package plc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ManagerConfig is the minimal runtime config the manager needs.
type ManagerConfig struct {
	// ReconnectInterval rate-limits unforced connect attempts and is the
	// base of the reconnection backoff.
	ReconnectInterval time.Duration
	// Timeout bounds every single transport call.
	Timeout time.Duration

	Clock  clock.Clock
	Logger *zap.Logger
}

// Health is a point-in-time view of the manager for status reporting.
type Health struct {
	State               State
	Connected           bool
	ConsecutiveFailures int
	Reconnects          uint64 // successful connects after the first one
	Recreations         uint64 // transports discarded and rebuilt
	LastError           string
	LastConnected       time.Time
}

// Manager owns one Transport and its connection state.
// Connect, Disconnect, WriteSignal, Probe and transport recreation all
// serialize on one mutex: a partial connect never interleaves with a write.
type Manager struct {
	cfg     ManagerConfig
	factory Factory
	clock   clock.Clock
	log     *zap.Logger
	limiter *rate.Limiter

	mu        sync.Mutex
	transport Transport
	state     State
	health    Health
	connects  uint64
}

// NewManager builds a manager and its first transport (fail fast at startup).
// No connection is attempted here.
func NewManager(cfg ManagerConfig, factory Factory) (*Manager, error) {
	if factory == nil {
		return nil, errors.New("plc: transport factory required")
	}
	if cfg.ReconnectInterval <= 0 {
		return nil, errors.New("plc: reconnect interval must be > 0")
	}
	if cfg.Timeout <= 0 {
		return nil, errors.New("plc: timeout must be > 0")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	tr, err := factory()
	if err != nil {
		return nil, fmt.Errorf("plc: build transport: %w", err)
	}

	return &Manager{
		cfg:       cfg,
		factory:   factory,
		clock:     cfg.Clock,
		log:       cfg.Logger,
		limiter:   rate.NewLimiter(rate.Every(cfg.ReconnectInterval), 1),
		transport: tr,
		state:     StateDisconnected,
	}, nil
}

// Connect establishes the session if it is not already up.
// Unforced attempts are limited to one per ReconnectInterval; a limited call
// returns the current status without touching the transport.
func (m *Manager) Connect(ctx context.Context, force bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectLocked(ctx, force)
}

func (m *Manager) connectLocked(ctx context.Context, force bool) bool {
	if m.state == StateConnected && !force {
		return true
	}

	now := m.clock.Now()
	allowed := m.limiter.AllowN(now, 1)
	if !force && !allowed {
		return m.state == StateConnected
	}
	// a forced attempt drains the token above, so it counts as the last attempt

	m.state = StateConnecting

	// drop any stale session first; errors here are expected
	_ = m.call(ctx, m.transport.Close)

	m.log.Info("connecting to plc")
	if err := m.call(ctx, m.transport.Connect); err != nil {
		_ = m.call(ctx, m.transport.Close)
		m.state = StateFailed
		m.health.LastError = fmt.Errorf("%w: %v", ErrConnect, err).Error()
		m.log.Warn("plc connect failed", zap.Error(err))
		return false
	}

	m.state = StateConnected
	m.connects++
	m.health.LastError = ""
	m.health.LastConnected = now
	m.log.Info("plc connection established")
	return true
}

// Disconnect closes the session if it is open.
func (m *Manager) Disconnect(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateConnected {
		m.state = StateDisconnected
		return
	}
	if err := m.call(ctx, m.transport.Close); err != nil {
		m.log.Warn("plc disconnect failed", zap.Error(err))
	} else {
		m.log.Info("plc connection closed")
	}
	m.state = StateDisconnected
}

// WriteSignal writes one boolean output.
// If not connected, one unforced connect is attempted first.
// Any write failure marks the manager disconnected (fail-fast).
func (m *Manager) WriteSignal(ctx context.Context, sig Signal, value bool) bool {
	channel, err := sig.Channel()
	if err != nil {
		m.log.Error("plc write rejected", zap.Error(err))
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateConnected {
		if !m.connectLocked(ctx, false) {
			m.log.Warn("plc write skipped",
				zap.Stringer("signal", sig),
				zap.Bool("value", value),
				zap.Error(ErrNotConnected))
			return false
		}
	}

	err = m.call(ctx, func(ctx context.Context) error {
		return m.transport.Write(ctx, channel, value)
	})
	if err != nil {
		m.state = StateDisconnected
		m.health.LastError = fmt.Errorf("%w: %v", ErrWrite, err).Error()
		m.log.Error("plc write failed",
			zap.Stringer("signal", sig),
			zap.Bool("value", value),
			zap.Error(err))
		return false
	}
	return true
}

// IsConnected reports whether the last connect succeeded and nothing failed since.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateConnected
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Health returns a copy of the manager health counters.
func (m *Manager) Health() Health {
	m.mu.Lock()
	defer m.mu.Unlock()

	h := m.health
	h.State = m.state
	h.Connected = m.state == StateConnected
	if m.connects > 0 {
		h.Reconnects = m.connects - 1
	}
	return h
}

// Probe performs the lightweight health read.
// A failed probe marks the manager disconnected.
func (m *Manager) Probe(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateConnected {
		return false
	}
	if err := m.call(ctx, m.transport.Probe); err != nil {
		m.state = StateDisconnected
		m.health.LastError = err.Error()
		m.log.Warn("plc connection appears down", zap.Error(err))
		return false
	}
	return true
}

// recreate discards the current transport and builds a new one.
// Guards against wedged native handles.
func (m *Manager) recreate(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.log.Warn("multiple consecutive failures, recreating plc transport")
	_ = m.call(ctx, m.transport.Close)

	tr, err := m.factory()
	if err != nil {
		// keep the old object; the next attempt will try again
		m.log.Error("plc transport rebuild failed", zap.Error(err))
		return
	}
	m.transport = tr
	m.state = StateDisconnected
	m.health.Recreations++
}

func (m *Manager) setFailures(n int) {
	m.mu.Lock()
	m.health.ConsecutiveFailures = n
	m.mu.Unlock()
}

// call runs one transport operation under the per-call timeout.
func (m *Manager) call(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()
	return fn(ctx)
}
