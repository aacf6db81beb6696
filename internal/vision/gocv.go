//go:build gocv
// +build gocv

// internal/vision/gocv.go
package vision

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/tamzrod/line-inspector/internal/detect"
)

// ---- frame ----

// Frame wraps one captured gocv.Mat.
type Frame struct {
	mat gocv.Mat
}

func (f *Frame) Width() int   { return f.mat.Cols() }
func (f *Frame) Height() int  { return f.mat.Rows() }
func (f *Frame) Close() error { return f.mat.Close() }

func matOf(f detect.Frame) (gocv.Mat, error) {
	fr, ok := f.(*Frame)
	if !ok {
		return gocv.Mat{}, fmt.Errorf("vision: foreign frame type %T", f)
	}
	return fr.mat, nil
}

// ---- camera ----

// Camera opens the capture device lazily and reopens it after a failed read.
type Camera struct {
	cfg CameraConfig

	mu  sync.Mutex
	cap *gocv.VideoCapture
}

// NewCamera returns an unopened camera.
func NewCamera(cfg CameraConfig) *Camera {
	return &Camera{cfg: cfg}
}

// Read grabs one frame.
func (c *Camera) Read() (detect.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cap == nil {
		vc, err := gocv.OpenVideoCapture(c.cfg.Source)
		if err != nil {
			return nil, fmt.Errorf("%w: open %q: %v", ErrCaptureUnavailable, c.cfg.Source, err)
		}
		if !vc.IsOpened() {
			_ = vc.Close()
			return nil, fmt.Errorf("%w: %q not opened", ErrCaptureUnavailable, c.cfg.Source)
		}
		c.cap = vc
	}

	mat := gocv.NewMat()
	if ok := c.cap.Read(&mat); !ok || mat.Empty() {
		_ = mat.Close()
		_ = c.cap.Close()
		c.cap = nil
		return nil, fmt.Errorf("%w: read %q", ErrCaptureUnavailable, c.cfg.Source)
	}
	return &Frame{mat: mat}, nil
}

// Close releases the device.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cap == nil {
		return nil
	}
	err := c.cap.Close()
	c.cap = nil
	return err
}

// ---- model ----

// Model runs a YOLO ONNX network through the OpenCV DNN module.
type Model struct {
	cfg ModelConfig
	net gocv.Net
}

// LoadModel reads the network. Any failure is ErrModelUnavailable.
func LoadModel(cfg ModelConfig) (*Model, error) {
	path, err := ResolveModelPath(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.InputSize <= 0 {
		return nil, fmt.Errorf("%w: input size must be > 0", ErrModelUnavailable)
	}

	net := gocv.ReadNet(path, "")
	if net.Empty() {
		return nil, fmt.Errorf("%w: cannot read %s", ErrModelUnavailable, path)
	}
	return &Model{cfg: cfg, net: net}, nil
}

// Infer returns detections at or above threshold, after NMS.
func (m *Model) Infer(f detect.Frame, threshold float64) ([]detect.Detection, error) {
	mat, err := matOf(f)
	if err != nil {
		return nil, err
	}

	size := m.cfg.InputSize
	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	m.net.SetInput(blob, "")
	out := m.net.Forward("")
	defer out.Close()

	dims := out.Size()
	if len(dims) != 3 {
		return nil, fmt.Errorf("vision: unexpected output dims %v", dims)
	}
	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("vision: output data: %w", err)
	}

	scaleX := float64(mat.Cols()) / float64(size)
	scaleY := float64(mat.Rows()) / float64(size)
	dets, err := decodeYOLO(data, dims[1], dims[2], scaleX, scaleY, threshold)
	if err != nil {
		return nil, err
	}
	return nms(dets, m.cfg.NMSThreshold), nil
}

// Close releases the network.
func (m *Model) Close() error {
	return m.net.Close()
}

// ---- renderer ----

// Renderer draws the zone and indicator and encodes JPEG.
type Renderer struct {
	cfg RenderConfig
}

// NewRenderer returns a renderer.
func NewRenderer(cfg RenderConfig) *Renderer {
	return &Renderer{cfg: cfg}
}

// Render annotates a copy of the frame.
func (r *Renderer) Render(f detect.Frame, o detect.Overlay) ([]byte, error) {
	mat, err := matOf(f)
	if err != nil {
		return nil, err
	}
	out := mat.Clone()
	defer out.Close()

	z := o.Zone
	gocv.Rectangle(&out, image.Rect(z.X1, z.Y1, z.X2, z.Y2), bgr(r.cfg.ZoneColor), 2)

	if dot, ok := r.cfg.DotFor(o.Indicator); ok {
		gocv.Circle(&out, image.Pt(dot.X, dot.Y), dot.Radius, bgr(dot.Color), -1)
	}
	return r.encode(out)
}

// Raw encodes the frame unchanged.
func (r *Renderer) Raw(f detect.Frame) ([]byte, error) {
	mat, err := matOf(f)
	if err != nil {
		return nil, err
	}
	return r.encode(mat)
}

func (r *Renderer) encode(mat gocv.Mat) ([]byte, error) {
	if mat.Empty() {
		return nil, errors.New("vision: empty frame")
	}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{int(gocv.IMWriteJpegQuality), r.cfg.JPEGQuality})
	if err != nil {
		return nil, fmt.Errorf("vision: jpeg encode: %w", err)
	}
	defer buf.Close()

	// the native buffer is freed on Close
	return append([]byte(nil), buf.GetBytes()...), nil
}
