// internal/vision/vision.go
package vision

import (
	"errors"
	"fmt"
	"image/color"
	"os"

	"github.com/tamzrod/line-inspector/internal/detect"
)

var (
	// ErrModelUnavailable: the detection model could not be loaded.
	ErrModelUnavailable = errors.New("vision: model unavailable")
	// ErrCaptureUnavailable: the capture device could not be opened or read.
	ErrCaptureUnavailable = errors.New("vision: capture unavailable")
)

// CameraConfig selects the capture source: a device index ("0") or a URL/file.
type CameraConfig struct {
	Source string
}

// ModelConfig locates an ONNX detection model.
type ModelConfig struct {
	Path          string
	OptimizedPath string // preferred when the file exists
	InputSize     int    // square network input, e.g. 640
	NMSThreshold  float64
}

// Dot is one filled indicator circle. Color is BGR.
type Dot struct {
	X, Y, Radius int
	Color        [3]uint8
}

// RenderConfig controls annotation and encoding.
type RenderConfig struct {
	JPEGQuality int
	ZoneColor   [3]uint8 // BGR
	PrimaryOnly Dot
	Both        Dot
}

// DotFor returns the indicator drawn for a classification.
func (r RenderConfig) DotFor(c detect.Classification) (Dot, bool) {
	switch c {
	case detect.ClassPrimaryOnly:
		return r.PrimaryOnly, true
	case detect.ClassBoth:
		return r.Both, true
	}
	return Dot{}, false
}

// ResolveModelPath returns the optimized model when present, else the base
// model. A missing base model is ErrModelUnavailable.
func ResolveModelPath(cfg ModelConfig) (string, error) {
	if cfg.Path == "" {
		return "", fmt.Errorf("%w: no model path configured", ErrModelUnavailable)
	}
	if _, err := os.Stat(cfg.Path); err != nil {
		return "", fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	if cfg.OptimizedPath != "" {
		if _, err := os.Stat(cfg.OptimizedPath); err == nil {
			return cfg.OptimizedPath, nil
		}
	}
	return cfg.Path, nil
}

func bgr(c [3]uint8) color.RGBA {
	return color.RGBA{B: c[0], G: c[1], R: c[2], A: 255}
}
