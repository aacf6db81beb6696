// internal/vision/yolo.go
package vision

import (
	"errors"
	"sort"

	"github.com/tamzrod/line-inspector/internal/detect"
)

// decodeYOLO parses a YOLOv8-style output tensor laid out as
// [attrs][boxes], attrs = 4 box values (cx, cy, w, h) + one score per class.
// Coordinates are scaled from network input space to frame space.
func decodeYOLO(data []float32, attrs, boxes int, scaleX, scaleY, threshold float64) ([]detect.Detection, error) {
	if attrs < 5 || boxes <= 0 {
		return nil, errors.New("vision: bad output shape")
	}
	if len(data) < attrs*boxes {
		return nil, errors.New("vision: short output tensor")
	}

	at := func(a, b int) float64 { return float64(data[a*boxes+b]) }

	var out []detect.Detection
	for b := 0; b < boxes; b++ {
		best, cls := 0.0, -1
		for a := 4; a < attrs; a++ {
			if s := at(a, b); s > best {
				best, cls = s, a-4
			}
		}
		if cls < 0 || best < threshold {
			continue
		}

		cx, cy, w, h := at(0, b), at(1, b), at(2, b), at(3, b)
		out = append(out, detect.Detection{
			ClassID:    cls,
			Confidence: best,
			Box: detect.Box{
				X1: (cx - w/2) * scaleX,
				Y1: (cy - h/2) * scaleY,
				X2: (cx + w/2) * scaleX,
				Y2: (cy + h/2) * scaleY,
			},
		})
	}
	return out, nil
}

// nms keeps the highest-confidence box among same-class boxes overlapping
// by more than iouThreshold.
func nms(dets []detect.Detection, iouThreshold float64) []detect.Detection {
	sorted := append([]detect.Detection(nil), dets...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	var kept []detect.Detection
	for _, d := range sorted {
		keep := true
		for _, k := range kept {
			if k.ClassID == d.ClassID && iou(k.Box, d.Box) > iouThreshold {
				keep = false
				break
			}
		}
		if keep {
			kept = append(kept, d)
		}
	}
	return kept
}

func iou(a, b detect.Box) float64 {
	ix1, iy1 := max(a.X1, b.X1), max(a.Y1, b.Y1)
	ix2, iy2 := min(a.X2, b.X2), min(a.Y2, b.Y2)
	if ix2 <= ix1 || iy2 <= iy1 {
		return 0
	}
	inter := (ix2 - ix1) * (iy2 - iy1)
	union := area(a) + area(b) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func area(b detect.Box) float64 {
	return (b.X2 - b.X1) * (b.Y2 - b.Y1)
}
