// Package route computes connector paths between diagram shapes.
//
// Routing is pure geometry: given the two endpoint rectangles and a control
// offset it produces a renderer-agnostic path, the tangent angle at the
// target anchor (for arrowhead orientation), and a padded bounding region
// for hit testing and damage tracking. It never fails; degenerate input
// degrades to a straight line or a point.
package route

import (
	"math"

	"github.com/fsmforge/fsmforge/backend-go/internal/geom"
)

const (
	// IntersectTol is the parametric slack allowed when clipping the
	// center line against a rectangle edge.
	IntersectTol = 1e-3

	// minDirLength guards direction normalization between coincident
	// anchors.
	minDirLength = 1e-6

	// PenWidth and ArrowSize match the stroke the front-end draws with;
	// they only matter here for bounds padding.
	PenWidth  = 2.2
	ArrowSize = 11

	boundsPad = 30

	// Label footprint estimate. The canvas front-end measures real text;
	// the router only needs a conservative box.
	labelCharWidth = 8
	labelHeight    = 36
	labelPad       = 20

	// Self-loop shape factors, relative to the rect's width and height.
	loopAnchorFactor = 0.2
	loopRiseFactor   = 0.825
)

// Offset is a connector's control offset: a perpendicular bend and a
// tangential shift relative to the straight line between its anchors.
type Offset struct {
	Bend  float64 `json:"bend"`
	Shift float64 `json:"shift"`
}

// IsZero reports whether the offset leaves the connector straight.
func (o Offset) IsZero() bool {
	return o.Bend == 0 && o.Shift == 0
}

// Connector describes one routing request.
type Connector struct {
	Source   geom.Rect
	Target   geom.Rect
	SelfLoop bool // endpoints are the same shape; Target is ignored
	Offset   Offset
	Label    string // optional, widens Bounds when present
}

// SegmentKind discriminates path segments.
type SegmentKind int

const (
	SegmentLine SegmentKind = iota
	SegmentQuad
	SegmentCubic
)

// Segment is one piece of a path. C1 is the control point of a quadratic
// segment; cubics use both C1 and C2. Lines use neither.
type Segment struct {
	Kind   SegmentKind
	C1, C2 geom.Point
	End    geom.Point
}

// Path is a connector path: a start point followed by segments.
type Path struct {
	Start    geom.Point
	Segments []Segment
}

// End returns the final point of the path.
func (p Path) End() geom.Point {
	if len(p.Segments) == 0 {
		return p.Start
	}
	return p.Segments[len(p.Segments)-1].End
}

// PointAt evaluates the path at t in [0,1]. Only single-segment paths are
// produced by this package, so t addresses the sole segment directly.
func (p Path) PointAt(t float64) geom.Point {
	if len(p.Segments) == 0 {
		return p.Start
	}
	t = math.Max(0, math.Min(1, t))
	seg := p.Segments[0]
	switch seg.Kind {
	case SegmentQuad:
		return quadPoint(p.Start, seg.C1, seg.End, t)
	case SegmentCubic:
		return cubicPoint(p.Start, seg.C1, seg.C2, seg.End, t)
	default:
		return geom.Point{
			X: p.Start.X + (seg.End.X-p.Start.X)*t,
			Y: p.Start.Y + (seg.End.Y-p.Start.Y)*t,
		}
	}
}

func quadPoint(p0, c, p1 geom.Point, t float64) geom.Point {
	u := 1 - t
	return geom.Point{
		X: u*u*p0.X + 2*u*t*c.X + t*t*p1.X,
		Y: u*u*p0.Y + 2*u*t*c.Y + t*t*p1.Y,
	}
}

func cubicPoint(p0, c1, c2, p1 geom.Point, t float64) geom.Point {
	u := 1 - t
	return geom.Point{
		X: u*u*u*p0.X + 3*u*u*t*c1.X + 3*u*t*t*c2.X + t*t*t*p1.X,
		Y: u*u*u*p0.Y + 3*u*u*t*c1.Y + 3*u*t*t*c2.Y + t*t*t*p1.Y,
	}
}

// Route is the routing result.
type Route struct {
	Path     Path
	EndAngle float64 // tangent angle at the target anchor, radians
	Bounds   geom.Rect
}

// Compute routes a connector.
func Compute(c Connector) Route {
	if c.SelfLoop {
		return computeSelfLoop(c)
	}

	srcCenter := c.Source.Center()
	tgtCenter := c.Target.Center()

	start := Anchor(c.Source, geom.Segment{A: srcCenter, B: tgtCenter})
	end := Anchor(c.Target, geom.Segment{A: tgtCenter, B: srcCenter})

	var path Path
	if c.Offset.IsZero() {
		path = Path{Start: start, Segments: []Segment{{Kind: SegmentLine, End: end}}}
	} else {
		ctrl := controlPoint(start, end, c.Offset)
		path = Path{Start: start, Segments: []Segment{{Kind: SegmentQuad, C1: ctrl, End: end}}}
	}

	return Route{
		Path:     path,
		EndAngle: endAngle(path),
		Bounds:   bounds(path, c.Label),
	}
}

// Anchor finds the point where the given directed line leaves a shape: the
// bounded intersection with the rect's edges nearest the line's origin.
// A degenerate rect (no qualifying edge intersection) anchors at its
// center.
func Anchor(r geom.Rect, line geom.Segment) geom.Point {
	best := r.Center()
	bestDist := math.Inf(1)
	found := false

	for _, edge := range r.Edges() {
		pt, ok := line.Intersect(edge, IntersectTol)
		if !ok {
			continue
		}
		if d := pt.DistanceSq(line.A); d < bestDist {
			best = pt
			bestDist = d
			found = true
		}
	}

	if !found {
		return r.Center()
	}
	return best
}

// controlPoint places the quadratic control point: the anchor midpoint
// displaced along the perpendicular by the bend and along the direction by
// the shift.
func controlPoint(start, end geom.Point, off Offset) geom.Point {
	mid := geom.Point{X: (start.X + end.X) / 2, Y: (start.Y + end.Y) / 2}

	d := end.Sub(start)
	length := d.Length()
	if length < minDirLength {
		length = minDirLength
	}
	dir := d.Scale(1 / length)
	perp := geom.Point{X: -dir.Y, Y: dir.X}

	return mid.Add(perp.Scale(off.Bend)).Add(dir.Scale(off.Shift))
}

// computeSelfLoop builds the dedicated self-loop cubic: the connector
// departs and returns on the shape's top edge, symmetric about its
// horizontal center, with control points held well above the shape.
func computeSelfLoop(c Connector) Route {
	r := c.Source
	center := r.Center()

	p1 := geom.Point{X: center.X + r.Width*loopAnchorFactor, Y: r.Y}
	p2 := geom.Point{X: center.X - r.Width*loopAnchorFactor, Y: r.Y}

	apex := geom.Point{
		X: p1.X + c.Offset.Bend,
		Y: r.Y - r.Height*loopRiseFactor + c.Offset.Shift,
	}

	c1 := geom.Point{X: apex.X - (apex.X-p1.X)*0.5, Y: apex.Y}
	c2 := geom.Point{X: apex.X + (p2.X-apex.X)*0.5, Y: apex.Y}

	path := Path{Start: p1, Segments: []Segment{{Kind: SegmentCubic, C1: c1, C2: c2, End: p2}}}

	return Route{
		Path:     path,
		EndAngle: endAngle(path),
		Bounds:   bounds(path, c.Label),
	}
}

// endAngle is the tangent direction at the end of the path.
func endAngle(p Path) float64 {
	if len(p.Segments) == 0 {
		return 0
	}
	seg := p.Segments[len(p.Segments)-1]

	var from geom.Point
	switch seg.Kind {
	case SegmentQuad:
		from = seg.C1
	case SegmentCubic:
		from = seg.C2
	default:
		from = p.Start
	}

	d := seg.End.Sub(from)
	if d.Length() < minDirLength {
		return 0
	}
	return math.Atan2(d.Y, d.X)
}

// bounds returns the path's control-polygon bounding box padded for stroke
// width and arrowhead, united with an estimated label footprint at the
// path midpoint. Bezier curves are contained by their control polygon, so
// this never under-reports.
func bounds(p Path, label string) geom.Rect {
	pts := []geom.Point{p.Start}
	for _, seg := range p.Segments {
		switch seg.Kind {
		case SegmentQuad:
			pts = append(pts, seg.C1)
		case SegmentCubic:
			pts = append(pts, seg.C1, seg.C2)
		}
		pts = append(pts, seg.End)
	}

	b := geom.RectFromPoints(pts...).Expand((PenWidth+ArrowSize)/2 + boundsPad)

	if label != "" {
		mid := p.PointAt(0.5)
		w := float64(len(label))*labelCharWidth + labelPad
		h := float64(labelHeight)
		b = b.Union(geom.Rect{X: mid.X - w/2, Y: mid.Y - h, Width: w, Height: h})
	}

	return b
}
