// internal/detect/runner.go
package detect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Run loads the model and loops until ctx is done.
// One goroutine per camera. A second concurrent Run returns an error.
//
// Model load failure is the only fatal condition for detection: the loop
// then keeps forwarding raw frames (degraded mode) instead of exiting.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return errors.New("detect: loop already running")
	}
	defer l.running.Store(false)

	model, err := l.deps.LoadModel()
	if err != nil {
		l.log.Error("model unavailable, serving raw frames", zap.Error(err))
		l.deps.Publisher.MarkDegraded(err)
		return l.loop(ctx, func() error { return l.rawStep() })
	}
	defer func() {
		if err := model.Close(); err != nil {
			l.log.Warn("model close failed", zap.Error(err))
		}
	}()

	l.log.Info("detection loop started")
	defer l.log.Info("detection loop stopped")
	return l.loop(ctx, func() error { return l.step(model) })
}

func (l *Loop) loop(ctx context.Context, iterate func() error) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		wait := l.cfg.LoopSleep
		if err := l.safe(iterate); err != nil {
			if errors.Is(err, ErrCapture) {
				l.log.Error("frame capture failed", zap.Error(err))
			} else {
				l.log.Error("detection iteration failed", zap.Error(err))
			}
			wait = l.cfg.RetryDelay
		}

		if !l.sleep(ctx, wait) {
			return nil
		}
	}
}

// safe turns a panic inside one iteration into an error.
func (l *Loop) safe(iterate func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("detect: iteration panic: %v", r)
		}
	}()
	return iterate()
}

func (l *Loop) rawStep() error {
	frame, err := l.deps.Camera.Read()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCapture, err)
	}
	defer frame.Close()
	return l.publishRaw(frame)
}

func (l *Loop) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-l.cfg.Clock.After(d):
		return true
	}
}
