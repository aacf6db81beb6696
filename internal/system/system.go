// internal/system/system.go
package system

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/hybridgroup/mjpeg"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tamzrod/line-inspector/internal/broadcast"
	"github.com/tamzrod/line-inspector/internal/config"
	"github.com/tamzrod/line-inspector/internal/detect"
	"github.com/tamzrod/line-inspector/internal/events"
	"github.com/tamzrod/line-inspector/internal/plc"
	"github.com/tamzrod/line-inspector/internal/stats"
	"github.com/tamzrod/line-inspector/internal/status"
	"github.com/tamzrod/line-inspector/internal/vision"
)

// Deps overrides the collaborators built from config. Zero values mean
// "build the real one".
type Deps struct {
	Factory   plc.Factory
	Camera    detect.Camera
	LoadModel detect.ModelLoader
	Renderer  detect.Renderer
	Events    *events.Emitter
	Clock     clock.Clock
}

// System is the one context object shared by every component.
// It is built once at startup; nothing in the process is global.
type System struct {
	cfg config.InspectorConfig
	log *zap.Logger

	Manager     *plc.Manager
	Pulses      *plc.PulseEmitter
	Registry    *stats.Registry
	Broadcaster *broadcast.Broadcaster
	Loop        *detect.Loop

	events *events.Emitter
	camera detect.Camera
	stream *mjpeg.Stream

	mu      sync.Mutex
	ctx     context.Context
	group   *errgroup.Group
	detOnce sync.Once
	closers []func(context.Context) error
}

// New wires every component. No goroutine is started and no I/O happens.
func New(cfg *config.Config, log *zap.Logger, deps Deps) (*System, error) {
	if cfg == nil {
		return nil, errors.New("system: config required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	in := cfg.Inspector

	if deps.Clock == nil {
		deps.Clock = clock.New()
	}

	mgr, pulses, err := plc.Build(in.PLC, in.Pulse, plc.ManagerConfig{
		Clock:  deps.Clock,
		Logger: log.Named("plc"),
	}, deps.Factory)
	if err != nil {
		return nil, err
	}

	camera := deps.Camera
	if camera == nil {
		camera = vision.NewCamera(vision.CameraConfig{Source: in.Video.Source})
	}
	loadModel := deps.LoadModel
	if loadModel == nil {
		mc := vision.ModelConfig{
			Path:          in.Model.Path,
			OptimizedPath: in.Model.OptimizedPath,
			InputSize:     in.Model.InputSize,
			NMSThreshold:  in.Model.NMSThreshold,
		}
		loadModel = func() (detect.Model, error) {
			m, err := vision.LoadModel(mc)
			if err != nil {
				return nil, err
			}
			return m, nil
		}
	}
	renderer := deps.Renderer
	if renderer == nil {
		renderer = vision.NewRenderer(RenderConfig(in))
	}

	s := &System{
		cfg:         in,
		log:         log,
		Manager:     mgr,
		Pulses:      pulses,
		Registry:    stats.NewRegistry(),
		Broadcaster: broadcast.New(),
		events:      deps.Events,
		camera:      camera,
		stream:      broadcast.NewStream(),
	}

	loopDeps := detect.Deps{
		Camera:    camera,
		LoadModel: loadModel,
		Renderer:  renderer,
		Publisher: s.Broadcaster,
		Pulser:    pulses,
		Conn:      mgr,
		Counter:   s.Registry,
	}
	if deps.Events != nil {
		loopDeps.Events = deps.Events
	}

	loop, err := detect.New(detect.Config{
		Threshold: in.Model.Confidence,
		Classes:   detect.Classes{Primary: in.Classes.Primary, Secondary: in.Classes.Secondary},
		Offsets: detect.Offsets{
			Left: in.Zone.Left, Top: in.Zone.Top, Right: in.Zone.Right, Bottom: in.Zone.Bottom,
		},
		LoopSleep:    in.Video.LoopSleep(),
		RetryDelay:   in.Video.RetryDelay(),
		SummaryEvery: 10,
		Clock:        deps.Clock,
		Logger:       log.Named("detect"),
	}, loopDeps)
	if err != nil {
		return nil, err
	}
	s.Loop = loop

	return s, nil
}

// RenderConfig maps inspector config to the renderer settings.
func RenderConfig(in config.InspectorConfig) vision.RenderConfig {
	dot := func(d config.DotConfig) vision.Dot {
		return vision.Dot{X: d.X, Y: d.Y, Radius: d.Radius, Color: d.Color}
	}
	return vision.RenderConfig{
		JPEGQuality: in.Video.JPEGQuality,
		ZoneColor:   [3]uint8{0, 255, 0},
		PrimaryOnly: dot(in.Indicators.PrimaryOnly),
		Both:        dot(in.Indicators.Both),
	}
}

// OnClose registers a cleanup step run by Close, in reverse order.
func (s *System) OnClose(fn func(context.Context) error) {
	s.mu.Lock()
	s.closers = append(s.closers, fn)
	s.mu.Unlock()
}

// Start launches the reconnection loop, the pulse pool, the MJPEG feed and,
// when configured, the event publisher. They stop when ctx is done.
func (s *System) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.group != nil {
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	s.group, s.ctx = g, gctx

	g.Go(func() error {
		s.Manager.Run(gctx)
		return nil
	})
	g.Go(func() error {
		s.Pulses.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return s.Broadcaster.Feed(gctx, s.stream)
	})
	if s.events != nil {
		g.Go(func() error {
			return s.events.Run(gctx)
		})
	}
	s.log.Info("system started", zap.String("plc_kind", s.cfg.PLC.Kind))
}

// EnsureDetection starts the single detection loop on first call.
// Later calls are no-ops. Start must have been called.
func (s *System) EnsureDetection() error {
	s.mu.Lock()
	g, ctx := s.group, s.ctx
	s.mu.Unlock()

	if g == nil {
		return errors.New("system: not started")
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.detOnce.Do(func() {
		s.log.Info("starting shared detection loop")
		g.Go(func() error {
			if err := s.Loop.Run(ctx); err != nil {
				return fmt.Errorf("system: detection loop: %w", err)
			}
			return nil
		})
	})
	return nil
}

// Wait blocks until every started goroutine has returned.
func (s *System) Wait() error {
	s.mu.Lock()
	g := s.group
	s.mu.Unlock()

	if g == nil {
		return nil
	}
	return g.Wait()
}

// Close releases the PLC session, the camera and registered resources.
// Call after Wait. All errors are reported.
func (s *System) Close(ctx context.Context) error {
	var err error

	s.Manager.Disconnect(ctx)

	if c, ok := s.camera.(io.Closer); ok {
		err = multierr.Append(err, c.Close())
	}

	s.mu.Lock()
	closers := s.closers
	s.closers = nil
	s.mu.Unlock()

	for i := len(closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, closers[i](ctx))
	}
	return err
}

// ---- operator surface ----

// SetDetection toggles detection.
func (s *System) SetDetection(on bool) {
	s.Loop.SetEnabled(on)
}

// ResetCounters zeroes the statistics.
func (s *System) ResetCounters() {
	s.Registry.Reset()
	s.log.Info("counters reset")
}

// Stream is the MJPEG handler fed from the broadcaster.
func (s *System) Stream() http.Handler {
	return s.stream
}

// Status collects the current status report.
func (s *System) Status() status.Report {
	snap, has := s.Broadcaster.Snapshot()
	mode, reason := s.Broadcaster.Mode()

	return status.Encode(status.Snapshot{
		DetectionEnabled: s.Loop.Enabled(),
		Detection:        snap,
		HasDetection:     has,
		Counters:         s.Registry.Snapshot(),
		Mode:             mode,
		Reason:           reason,
		PLC:              s.Manager.Health(),
		Pulses:           s.Pulses.Stats(),
	})
}
