// internal/detect/types.go
package detect

import (
	"fmt"
	"time"

	"github.com/tamzrod/line-inspector/internal/plc"
	"github.com/tamzrod/line-inspector/internal/stats"
)

// ---- model output ----

// Box is a bounding box in pixel coordinates, (X1,Y1) top-left.
type Box struct {
	X1, Y1, X2, Y2 float64
}

// Detection is one object reported by the model.
type Detection struct {
	ClassID    int
	Confidence float64 // [0,1]
	Box        Box
}

// ---- classification ----

// Classification is the per-frame outcome of the zone check.
type Classification uint8

const (
	ClassNone Classification = iota
	ClassPrimaryOnly
	ClassBoth
)

func (c Classification) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassPrimaryOnly:
		return "primary_only"
	case ClassBoth:
		return "both"
	}
	return fmt.Sprintf("classification(%d)", uint8(c))
}

// Signal returns the PLC output driven by a rising edge into c.
func (c Classification) Signal() (plc.Signal, bool) {
	switch c {
	case ClassPrimaryOnly:
		return plc.SignalPrimaryOnly, true
	case ClassBoth:
		return plc.SignalBoth, true
	}
	return 0, false
}

// Kind returns the counter incremented by a rising edge into c.
func (c Classification) Kind() (stats.Kind, bool) {
	switch c {
	case ClassPrimaryOnly:
		return stats.KindPrimaryOnly, true
	case ClassBoth:
		return stats.KindBoth, true
	}
	return 0, false
}

// Classes are the tracked model class ids.
type Classes struct {
	Primary   int
	Secondary int
}

// ---- published state ----

// Snapshot is the result of the latest detection iteration.
// Confidences are percentages rounded to one decimal.
type Snapshot struct {
	PrimaryPresent      bool
	SecondaryPresent    bool
	PrimaryConfidence   float64
	SecondaryConfidence float64
	Connected           bool
	Timestamp           time.Time
}

// Classification derives the frame outcome from the snapshot booleans.
// Secondary presence dominates: primary+secondary is BOTH, never PRIMARY_ONLY.
func (s Snapshot) Classification() Classification {
	switch {
	case s.PrimaryPresent && !s.SecondaryPresent:
		return ClassPrimaryOnly
	case s.PrimaryPresent && s.SecondaryPresent:
		return ClassBoth
	}
	return ClassNone
}

// Event describes one rising edge, after counters were updated.
type Event struct {
	Classification Classification
	Signal         plc.Signal
	Counters       stats.Counters
	Timestamp      time.Time
}
