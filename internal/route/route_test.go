package route

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsmforge/fsmforge/backend-go/internal/geom"
)

// onBoundary reports whether p lies on r's boundary within tol.
func onBoundary(r geom.Rect, p geom.Point, tol float64) bool {
	onX := p.X >= r.X-tol && p.X <= r.X+r.Width+tol
	onY := p.Y >= r.Y-tol && p.Y <= r.Y+r.Height+tol
	if !onX || !onY {
		return false
	}
	return math.Abs(p.X-r.X) < tol ||
		math.Abs(p.X-(r.X+r.Width)) < tol ||
		math.Abs(p.Y-r.Y) < tol ||
		math.Abs(p.Y-(r.Y+r.Height)) < tol
}

func TestAnchorOnBoundary(t *testing.T) {
	tests := []struct {
		name   string
		source geom.Rect
		target geom.Rect
	}{
		{"horizontal", geom.Rect{X: 0, Y: 0, Width: 120, Height: 60}, geom.Rect{X: 300, Y: 0, Width: 120, Height: 60}},
		{"vertical", geom.Rect{X: 0, Y: 0, Width: 120, Height: 60}, geom.Rect{X: 0, Y: 200, Width: 120, Height: 60}},
		{"diagonal", geom.Rect{X: 0, Y: 0, Width: 120, Height: 60}, geom.Rect{X: 250, Y: 180, Width: 80, Height: 40}},
		{"overlapping centers offset", geom.Rect{X: 0, Y: 0, Width: 100, Height: 100}, geom.Rect{X: 50, Y: 50, Width: 100, Height: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := geom.Segment{A: tt.source.Center(), B: tt.target.Center()}
			a := Anchor(tt.source, line)
			assert.True(t, onBoundary(tt.source, a, 1e-2), "source anchor %+v not on boundary of %+v", a, tt.source)

			back := geom.Segment{A: tt.target.Center(), B: tt.source.Center()}
			b := Anchor(tt.target, back)
			assert.True(t, onBoundary(tt.target, b, 1e-2), "target anchor %+v not on boundary of %+v", b, tt.target)
		})
	}
}

func TestAnchorDegenerateRectFallsBackToCenter(t *testing.T) {
	r := geom.Rect{X: 10, Y: 20, Width: 0, Height: 0}
	line := geom.Segment{A: geom.Point{X: 10, Y: 20}, B: geom.Point{X: 10, Y: 20}}
	a := Anchor(r, line)
	assert.Equal(t, geom.Point{X: 10, Y: 20}, a)
}

func TestComputeStraightSegment(t *testing.T) {
	c := Connector{
		Source: geom.Rect{X: 0, Y: 0, Width: 120, Height: 60},
		Target: geom.Rect{X: 300, Y: 0, Width: 120, Height: 60},
	}
	rt := Compute(c)

	require.Len(t, rt.Path.Segments, 1)
	seg := rt.Path.Segments[0]
	assert.Equal(t, SegmentLine, seg.Kind)

	// Facing edges of the two rects.
	assert.InDelta(t, 120, rt.Path.Start.X, 1e-6)
	assert.InDelta(t, 30, rt.Path.Start.Y, 1e-6)
	assert.InDelta(t, 300, seg.End.X, 1e-6)
	assert.InDelta(t, 30, seg.End.Y, 1e-6)

	assert.InDelta(t, 0, rt.EndAngle, 1e-9, "rightward line tangent")
}

func TestComputeCurvedSegment(t *testing.T) {
	c := Connector{
		Source: geom.Rect{X: 0, Y: 0, Width: 120, Height: 60},
		Target: geom.Rect{X: 300, Y: 0, Width: 120, Height: 60},
		Offset: Offset{Bend: 40},
	}
	rt := Compute(c)

	require.Len(t, rt.Path.Segments, 1)
	seg := rt.Path.Segments[0]
	require.Equal(t, SegmentQuad, seg.Kind)

	// Horizontal anchors, perpendicular is +Y for a rightward direction.
	assert.InDelta(t, 210, seg.C1.X, 1e-6)
	assert.InDelta(t, 70, seg.C1.Y, 1e-6)
}

func TestComputeCurvedTangentialShift(t *testing.T) {
	c := Connector{
		Source: geom.Rect{X: 0, Y: 0, Width: 120, Height: 60},
		Target: geom.Rect{X: 300, Y: 0, Width: 120, Height: 60},
		Offset: Offset{Bend: 10, Shift: 25},
	}
	rt := Compute(c)

	seg := rt.Path.Segments[0]
	assert.InDelta(t, 235, seg.C1.X, 1e-6)
	assert.InDelta(t, 40, seg.C1.Y, 1e-6)
}

func TestSelfLoopAnchorsOnTopEdge(t *testing.T) {
	r := geom.Rect{X: 100, Y: 200, Width: 120, Height: 60}
	rt := Compute(Connector{Source: r, SelfLoop: true})

	require.Len(t, rt.Path.Segments, 1)
	seg := rt.Path.Segments[0]
	require.Equal(t, SegmentCubic, seg.Kind)

	start, end := rt.Path.Start, seg.End
	assert.InDelta(t, r.Y, start.Y, 1e-9, "start on top edge")
	assert.InDelta(t, r.Y, end.Y, 1e-9, "end on top edge")
	assert.NotEqual(t, start.X, end.X, "distinct anchors for nonzero width")

	// Symmetric about the horizontal center.
	cx := r.X + r.Width/2
	assert.InDelta(t, cx+0.2*r.Width, start.X, 1e-9)
	assert.InDelta(t, cx-0.2*r.Width, end.X, 1e-9)

	// Control points sit above the shape.
	assert.Less(t, seg.C1.Y, r.Y)
	assert.Less(t, seg.C2.Y, r.Y)
}

func TestSelfLoopZeroWidthStillFinite(t *testing.T) {
	r := geom.Rect{X: 50, Y: 50, Width: 0, Height: 0}
	rt := Compute(Connector{Source: r, SelfLoop: true})

	require.Len(t, rt.Path.Segments, 1)
	assert.Equal(t, rt.Path.Start, rt.Path.Segments[0].End, "anchors coincide at zero width")
	assert.False(t, math.IsNaN(rt.EndAngle))
}

func TestCoincidentShapesNeverPanic(t *testing.T) {
	r := geom.Rect{X: 0, Y: 0, Width: 100, Height: 50}
	rt := Compute(Connector{Source: r, Target: r, Offset: Offset{Bend: 15}})
	require.Len(t, rt.Path.Segments, 1)
	assert.False(t, math.IsNaN(rt.Path.Segments[0].C1.X))
	assert.False(t, math.IsNaN(rt.Path.Segments[0].C1.Y))
}

func TestBoundsContainPathAndPadding(t *testing.T) {
	c := Connector{
		Source: geom.Rect{X: 0, Y: 0, Width: 120, Height: 60},
		Target: geom.Rect{X: 300, Y: 0, Width: 120, Height: 60},
		Offset: Offset{Bend: 40},
	}
	rt := Compute(c)

	for _, tt := range []float64{0, 0.25, 0.5, 0.75, 1} {
		p := rt.Path.PointAt(tt)
		assert.True(t, rt.Bounds.Contains(p.X, p.Y), "path point at t=%v outside bounds", tt)
	}

	pad := (PenWidth+ArrowSize)/2 + 30
	assert.LessOrEqual(t, rt.Bounds.X, rt.Path.Start.X-pad+1e-9)
}

func TestBoundsWidenForLabel(t *testing.T) {
	base := Connector{
		Source: geom.Rect{X: 0, Y: 0, Width: 120, Height: 60},
		Target: geom.Rect{X: 300, Y: 0, Width: 120, Height: 60},
	}
	plain := Compute(base)

	labeled := base
	labeled.Label = "tick [count > 10] /{reset()}"
	withLabel := Compute(labeled)

	assert.GreaterOrEqual(t, area(withLabel.Bounds), area(plain.Bounds))
	assert.Less(t, withLabel.Bounds.Y, plain.Bounds.Y+1e-9+labelHeight, "label box united above midpoint")
}

func area(r geom.Rect) float64 { return r.Width * r.Height }

func TestEndAngleQuad(t *testing.T) {
	// Control point directly above the end point: tangent points straight
	// down into the target.
	p := Path{
		Start:    geom.Point{X: 0, Y: 0},
		Segments: []Segment{{Kind: SegmentQuad, C1: geom.Point{X: 100, Y: -50}, End: geom.Point{X: 100, Y: 0}}},
	}
	assert.InDelta(t, math.Pi/2, endAngle(p), 1e-9)
}
