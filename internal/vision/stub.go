//go:build !gocv
// +build !gocv

// internal/vision/stub.go
package vision

import (
	"fmt"

	"github.com/tamzrod/line-inspector/internal/detect"
)

// Camera without OpenCV: every read fails, so the loop keeps retrying.
type Camera struct {
	cfg CameraConfig
}

// NewCamera returns a camera stub.
func NewCamera(cfg CameraConfig) *Camera {
	return &Camera{cfg: cfg}
}

// Read always fails when built without the gocv tag.
func (c *Camera) Read() (detect.Frame, error) {
	return nil, fmt.Errorf("%w: %q: gocv build tag is not enabled", ErrCaptureUnavailable, c.cfg.Source)
}

// Close is a no-op.
func (c *Camera) Close() error { return nil }

// Model placeholder; LoadModel never returns one without OpenCV.
type Model struct{}

// LoadModel fails when built without the gocv tag.
func LoadModel(cfg ModelConfig) (*Model, error) {
	if _, err := ResolveModelPath(cfg); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: gocv build tag is not enabled", ErrModelUnavailable)
}

// Infer fails when built without the gocv tag.
func (m *Model) Infer(f detect.Frame, threshold float64) ([]detect.Detection, error) {
	return nil, ErrModelUnavailable
}

// Close is a no-op.
func (m *Model) Close() error { return nil }

// Renderer without OpenCV.
type Renderer struct {
	cfg RenderConfig
}

// NewRenderer returns a renderer stub.
func NewRenderer(cfg RenderConfig) *Renderer {
	return &Renderer{cfg: cfg}
}

// Render fails when built without the gocv tag.
func (r *Renderer) Render(f detect.Frame, o detect.Overlay) ([]byte, error) {
	return nil, fmt.Errorf("vision: render: gocv build tag is not enabled")
}

// Raw fails when built without the gocv tag.
func (r *Renderer) Raw(f detect.Frame) ([]byte, error) {
	return nil, fmt.Errorf("vision: encode: gocv build tag is not enabled")
}
