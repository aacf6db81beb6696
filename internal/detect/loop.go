// internal/detect/loop.go
package detect

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/tamzrod/line-inspector/internal/plc"
	"github.com/tamzrod/line-inspector/internal/stats"
)

// ---- collaborators ----

// Frame is one captured image. The loop closes every frame it reads.
type Frame interface {
	Width() int
	Height() int
	Close() error
}

// Camera yields frames. Read failures are transient.
type Camera interface {
	Read() (Frame, error)
}

// Model runs object detection on one frame.
type Model interface {
	Infer(f Frame, threshold float64) ([]Detection, error)
	Close() error
}

// ModelLoader builds the model. A failure puts the loop in raw mode.
type ModelLoader func() (Model, error)

// Overlay is what the renderer draws on top of a frame.
type Overlay struct {
	Zone      Zone
	Indicator Classification
}

// Renderer encodes frames for viewers.
type Renderer interface {
	Render(f Frame, o Overlay) ([]byte, error)
	Raw(f Frame) ([]byte, error)
}

// Publisher receives every encoded frame.
type Publisher interface {
	Publish(frame []byte, snap Snapshot)
	PublishRaw(frame []byte)
	MarkDegraded(reason error)
}

// Pulser dispatches PLC pulses without blocking.
type Pulser interface {
	Emit(sig plc.Signal) bool
}

// Connection reports PLC link health.
type Connection interface {
	IsConnected() bool
}

// Counter is the statistics registry.
type Counter interface {
	Increment(k stats.Kind) bool
	Snapshot() stats.Counters
}

// EventSink is notified of every rising edge. Must not block.
type EventSink interface {
	Edge(ev Event)
}

// ---- loop ----

// Config is the minimal runtime config the loop needs.
type Config struct {
	Threshold    float64
	Classes      Classes
	Offsets      Offsets
	LoopSleep    time.Duration // pause after a good iteration
	RetryDelay   time.Duration // pause after a failed iteration
	SummaryEvery int           // iterations between summary logs, 0 disables

	Clock  clock.Clock
	Logger *zap.Logger
}

// Deps are the collaborators the loop drives.
type Deps struct {
	Camera    Camera
	LoadModel ModelLoader
	Renderer  Renderer
	Publisher Publisher
	Pulser    Pulser
	Conn      Connection
	Counter   Counter
	Events    EventSink // optional
}

// Loop is the single detection worker. It owns the camera, the model and
// the edge state; nothing else touches them.
type Loop struct {
	cfg  Config
	deps Deps
	log  *zap.Logger

	enabled atomic.Bool
	running atomic.Bool

	edge       EdgeState
	iterations uint64
}

var ErrCapture = errors.New("detect: capture failed")

// New creates a loop with immutable config. Detection starts enabled.
func New(cfg Config, deps Deps) (*Loop, error) {
	if deps.Camera == nil || deps.LoadModel == nil || deps.Renderer == nil {
		return nil, errors.New("detect: camera, model loader and renderer required")
	}
	if deps.Publisher == nil || deps.Pulser == nil || deps.Conn == nil || deps.Counter == nil {
		return nil, errors.New("detect: publisher, pulser, connection and counter required")
	}
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return nil, fmt.Errorf("detect: threshold %v out of [0,1]", cfg.Threshold)
	}
	if cfg.Classes.Primary == cfg.Classes.Secondary {
		return nil, errors.New("detect: primary and secondary class must differ")
	}
	if cfg.LoopSleep < 0 || cfg.RetryDelay <= 0 {
		return nil, errors.New("detect: loop sleep must be >= 0 and retry delay > 0")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	l := &Loop{cfg: cfg, deps: deps, log: cfg.Logger}
	l.enabled.Store(true)
	return l, nil
}

// SetEnabled toggles detection. While disabled the loop only forwards raw
// frames; the edge state restarts from NONE when re-enabled.
func (l *Loop) SetEnabled(on bool) {
	if l.enabled.Swap(on) != on {
		l.log.Info("detection toggled", zap.Bool("enabled", on))
	}
}

// Enabled reports the detection toggle.
func (l *Loop) Enabled() bool { return l.enabled.Load() }

// step performs one Capture → Infer → Classify → Act → Publish iteration.
func (l *Loop) step(model Model) error {
	frame, err := l.deps.Camera.Read()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCapture, err)
	}
	defer frame.Close()

	if !l.Enabled() {
		l.edge.Reset()
		return l.publishRaw(frame)
	}

	dets, err := model.Infer(frame, l.cfg.Threshold)
	if err != nil {
		return fmt.Errorf("detect: infer: %w", err)
	}

	zone := ZoneFor(frame.Width(), frame.Height(), l.cfg.Offsets)
	snap := Classify(dets, zone, l.cfg.Classes)
	class := snap.Classification()

	if l.edge.Step(class) {
		l.act(class)
	}

	snap.Connected = l.deps.Conn.IsConnected()
	snap.Timestamp = l.cfg.Clock.Now()

	jpeg, err := l.deps.Renderer.Render(frame, Overlay{Zone: zone, Indicator: class})
	if err != nil {
		return fmt.Errorf("detect: render: %w", err)
	}
	l.deps.Publisher.Publish(jpeg, snap)

	l.iterations++
	if l.cfg.SummaryEvery > 0 && l.iterations%uint64(l.cfg.SummaryEvery) == 0 {
		c := l.deps.Counter.Snapshot()
		l.log.Info("detection summary",
			zap.Bool("primary", snap.PrimaryPresent),
			zap.Float64("primary_conf", snap.PrimaryConfidence),
			zap.Bool("secondary", snap.SecondaryPresent),
			zap.Float64("secondary_conf", snap.SecondaryConfidence),
			zap.Bool("plc_connected", snap.Connected),
			zap.Uint64("primary_only", c.PrimaryOnly),
			zap.Uint64("both", c.Both))
	}
	return nil
}

// act dispatches the pulse and counts the edge. Both happen here, together,
// whatever the later pulse delivery outcome.
func (l *Loop) act(class Classification) {
	sig, ok := class.Signal()
	if !ok {
		return
	}
	kind, _ := class.Kind()

	l.log.Info("rising edge", zap.Stringer("classification", class), zap.Stringer("signal", sig))
	l.deps.Pulser.Emit(sig)
	l.deps.Counter.Increment(kind)

	if l.deps.Events != nil {
		l.deps.Events.Edge(Event{
			Classification: class,
			Signal:         sig,
			Counters:       l.deps.Counter.Snapshot(),
			Timestamp:      l.cfg.Clock.Now(),
		})
	}
}

func (l *Loop) publishRaw(frame Frame) error {
	jpeg, err := l.deps.Renderer.Raw(frame)
	if err != nil {
		return fmt.Errorf("detect: encode raw: %w", err)
	}
	l.deps.Publisher.PublishRaw(jpeg)
	return nil
}
