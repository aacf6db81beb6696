// internal/detect/classify.go
package detect

import "math"

// ---- zone ----

// Offsets place the zone edges relative to the frame center.
type Offsets struct {
	Left, Top, Right, Bottom int
}

// Zone is the axis-aligned region of interest, in pixels.
type Zone struct {
	X1, Y1, X2, Y2 int
}

// ZoneFor computes the zone for a frame of the given size.
// Center uses integer division, so odd sizes round down.
func ZoneFor(width, height int, o Offsets) Zone {
	cx, cy := width/2, height/2
	return Zone{
		X1: cx - o.Left,
		Y1: cy - o.Top,
		X2: cx + o.Right,
		Y2: cy + o.Bottom,
	}
}

// Contains reports whether b lies entirely inside the zone.
// Edges touching the zone boundary count as inside.
func (z Zone) Contains(b Box) bool {
	return b.X1 >= float64(z.X1) &&
		b.Y1 >= float64(z.Y1) &&
		b.X2 <= float64(z.X2) &&
		b.Y2 <= float64(z.Y2)
}

// ---- classify ----

// Classify keeps, per tracked class, the highest-confidence detection fully
// inside the zone. Other classes and out-of-zone boxes are ignored.
func Classify(dets []Detection, zone Zone, classes Classes) Snapshot {
	var (
		s                Snapshot
		bestPri, bestSec = -1.0, -1.0
	)

	for _, d := range dets {
		if !zone.Contains(d.Box) {
			continue
		}
		switch d.ClassID {
		case classes.Primary:
			if d.Confidence > bestPri {
				bestPri = d.Confidence
			}
		case classes.Secondary:
			if d.Confidence > bestSec {
				bestSec = d.Confidence
			}
		}
	}

	if bestPri >= 0 {
		s.PrimaryPresent = true
		s.PrimaryConfidence = Percent(bestPri)
	}
	if bestSec >= 0 {
		s.SecondaryPresent = true
		s.SecondaryConfidence = Percent(bestSec)
	}
	return s
}

// Percent converts a [0,1] confidence to a percentage with one decimal.
func Percent(conf float64) float64 {
	return math.Round(conf*1000) / 10
}

// ---- edge detection ----

// EdgeState remembers the previous iteration's classification.
// The two flags are mutually exclusive.
type EdgeState struct {
	PrevPrimaryOnly bool
	PrevBoth        bool
}

// Step records c and reports whether it is a rising edge into c.
// ClassNone clears both flags and is never an edge.
func (e *EdgeState) Step(c Classification) bool {
	switch c {
	case ClassPrimaryOnly:
		rising := !e.PrevPrimaryOnly
		e.PrevPrimaryOnly, e.PrevBoth = true, false
		return rising
	case ClassBoth:
		rising := !e.PrevBoth
		e.PrevPrimaryOnly, e.PrevBoth = false, true
		return rising
	}
	e.Reset()
	return false
}

// Reset forgets the previous classification.
func (e *EdgeState) Reset() {
	e.PrevPrimaryOnly, e.PrevBoth = false, false
}
