// internal/detect/classify_test.go
package detect

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var testClasses = Classes{Primary: 1, Secondary: 0}

func TestZoneFor(t *testing.T) {
	z := ZoneFor(1280, 720, Offsets{Left: 260, Top: 165, Right: 160, Bottom: 165})
	require.Equal(t, Zone{X1: 380, Y1: 195, X2: 800, Y2: 525}, z)

	// odd sizes round the center down
	z = ZoneFor(101, 101, Offsets{Left: 10, Top: 10, Right: 10, Bottom: 10})
	require.Equal(t, Zone{X1: 40, Y1: 40, X2: 60, Y2: 60}, z)
}

func TestZoneContains(t *testing.T) {
	z := Zone{X1: 0, Y1: 0, X2: 100, Y2: 100}

	require.True(t, z.Contains(Box{10, 10, 90, 90}))
	require.True(t, z.Contains(Box{0, 0, 100, 100}), "edges on the boundary are inside")
	require.False(t, z.Contains(Box{-1, 10, 90, 90}))
	require.False(t, z.Contains(Box{10, 10, 100.5, 90}))
	require.False(t, z.Contains(Box{10, 10, 90, 101}))
}

func TestClassify_HighestConfidencePerClass(t *testing.T) {
	z := Zone{X1: 0, Y1: 0, X2: 100, Y2: 100}
	dets := []Detection{
		{ClassID: 1, Confidence: 0.61, Box: Box{1, 1, 50, 50}},
		{ClassID: 1, Confidence: 0.874, Box: Box{2, 2, 60, 60}},
		{ClassID: 1, Confidence: 0.99, Box: Box{50, 50, 150, 150}}, // outside
		{ClassID: 0, Confidence: 0.45, Box: Box{5, 5, 20, 20}},
		{ClassID: 7, Confidence: 0.99, Box: Box{5, 5, 20, 20}}, // untracked
	}

	s := Classify(dets, z, testClasses)
	require.True(t, s.PrimaryPresent)
	require.True(t, s.SecondaryPresent)
	require.Equal(t, 87.4, s.PrimaryConfidence)
	require.Equal(t, 45.0, s.SecondaryConfidence)
	require.Equal(t, ClassBoth, s.Classification())
}

func TestClassify_OutsideZoneIgnored(t *testing.T) {
	z := Zone{X1: 0, Y1: 0, X2: 100, Y2: 100}
	s := Classify([]Detection{
		{ClassID: 1, Confidence: 0.9, Box: Box{90, 90, 110, 110}},
	}, z, testClasses)

	require.False(t, s.PrimaryPresent)
	require.Equal(t, 0.0, s.PrimaryConfidence)
	require.Equal(t, ClassNone, s.Classification())
}

func TestSnapshotClassification(t *testing.T) {
	require.Equal(t, ClassNone, Snapshot{}.Classification())
	require.Equal(t, ClassNone, Snapshot{SecondaryPresent: true}.Classification())
	require.Equal(t, ClassPrimaryOnly, Snapshot{PrimaryPresent: true}.Classification())
	require.Equal(t, ClassBoth, Snapshot{PrimaryPresent: true, SecondaryPresent: true}.Classification())
}

func TestEdgeState_RisingEdgesOnly(t *testing.T) {
	var e EdgeState

	stream := []Classification{
		ClassNone, ClassPrimaryOnly, ClassPrimaryOnly, ClassBoth,
		ClassBoth, ClassPrimaryOnly, ClassNone, ClassBoth,
	}
	want := []bool{false, true, false, true, false, true, false, true}

	for i, c := range stream {
		require.Equal(t, want[i], e.Step(c), "iteration %d (%s)", i+1, c)
		require.False(t, e.PrevPrimaryOnly && e.PrevBoth, "flags must be exclusive")
	}
}

func TestEdgeState_FirstBothIsEdge(t *testing.T) {
	var e EdgeState
	require.True(t, e.Step(ClassBoth))
	require.False(t, e.Step(ClassBoth))

	e.Reset()
	require.True(t, e.Step(ClassBoth))
}

func TestPercent(t *testing.T) {
	require.Equal(t, 0.0, Percent(0))
	require.Equal(t, 100.0, Percent(1))
	require.Equal(t, 87.4, Percent(0.8741))
	require.Equal(t, 50.3, Percent(0.503))
}
