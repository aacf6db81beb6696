// internal/plc/pulse.go
package plc

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// signalWriter is the exact contract the pulse emitter needs from Manager.
type signalWriter interface {
	IsConnected() bool
	Connect(ctx context.Context, force bool) bool
	WriteSignal(ctx context.Context, sig Signal, value bool) bool
}

// PulseConfig configures the worker pool and queue.
type PulseConfig struct {
	Width     time.Duration // hold time between the rising and falling write
	Workers   int
	QueueSize int

	Clock  clock.Clock
	Logger *zap.Logger
}

// PulseStats counts pulse jobs. Attempted pulses count as Completed or
// Failed depending on the rising-edge write outcome.
type PulseStats struct {
	Accepted  uint64
	Dropped   uint64 // evicted from a full queue (oldest first)
	Completed uint64
	Failed    uint64
	InFlight  int
}

// PulseEmitter turns a signal into a true-then-false write sequence without
// blocking the caller. Jobs wait in a bounded queue; when it is full the
// oldest queued job is dropped.
type PulseEmitter struct {
	cfg PulseConfig
	w   signalWriter
	log *zap.Logger

	jobs chan Signal

	mu       sync.Mutex
	stats    PulseStats
	running  bool
	inflight int
}

// NewPulseEmitter builds an emitter around a manager.
func NewPulseEmitter(cfg PulseConfig, w signalWriter) (*PulseEmitter, error) {
	if w == nil {
		return nil, errors.New("plc: pulse emitter needs a signal writer")
	}
	if cfg.Width <= 0 {
		return nil, errors.New("plc: pulse width must be > 0")
	}
	if cfg.Workers <= 0 {
		return nil, errors.New("plc: pulse workers must be > 0")
	}
	if cfg.QueueSize <= 0 {
		return nil, errors.New("plc: pulse queue size must be > 0")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &PulseEmitter{
		cfg:  cfg,
		w:    w,
		log:  cfg.Logger,
		jobs: make(chan Signal, cfg.QueueSize),
	}, nil
}

// Emit queues a pulse and returns immediately. It always reports true:
// the pulse is fire-and-forget and delivery failures stay inside the pool.
func (p *PulseEmitter) Emit(sig Signal) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.Accepted++
	for {
		select {
		case p.jobs <- sig:
			return true
		default:
		}
		// full: evict the oldest job and retry
		select {
		case old := <-p.jobs:
			p.stats.Dropped++
			p.log.Warn("pulse queue full, dropping oldest", zap.Stringer("signal", old))
		default:
		}
	}
}

// Run starts the worker pool and blocks until ctx is done and all
// in-flight pulses have finished.
func (p *PulseEmitter) Run(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()

	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx)
		}()
	}
	wg.Wait()
}

// Stats returns a copy of the pulse counters.
func (p *PulseEmitter) Stats() PulseStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.stats
	s.InFlight = p.inflight
	return s
}

func (p *PulseEmitter) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-p.jobs:
			p.track(1)
			ok := p.pulse(ctx, sig)
			p.finish(ok)
		}
	}
}

// pulse drives one rising-then-falling sequence. Both writes are best effort.
func (p *PulseEmitter) pulse(ctx context.Context, sig Signal) bool {
	if !p.w.IsConnected() {
		p.log.Info("plc not connected, reconnecting before pulse", zap.Stringer("signal", sig))
		p.w.Connect(ctx, true)
	}

	if !p.w.WriteSignal(ctx, sig, true) {
		p.log.Warn("pulse not sent", zap.Stringer("signal", sig))
		return false
	}

	select {
	case <-ctx.Done():
	case <-p.cfg.Clock.After(p.cfg.Width):
	}

	// the falling edge is written even during shutdown so the output is released
	if !p.w.WriteSignal(context.WithoutCancel(ctx), sig, false) {
		p.log.Warn("pulse falling edge not written", zap.Stringer("signal", sig))
	}
	p.log.Info("pulse sent", zap.Stringer("signal", sig))
	return true
}

func (p *PulseEmitter) track(n int) {
	p.mu.Lock()
	p.inflight += n
	p.mu.Unlock()
}

func (p *PulseEmitter) finish(ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inflight--
	if ok {
		p.stats.Completed++
	} else {
		p.stats.Failed++
	}
}
