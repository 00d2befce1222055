package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentIntersect(t *testing.T) {
	tests := []struct {
		name string
		s, u Segment
		want Point
		ok   bool
	}{
		{
			name: "crossing",
			s:    Segment{A: Point{X: 0, Y: 0}, B: Point{X: 10, Y: 10}},
			u:    Segment{A: Point{X: 0, Y: 10}, B: Point{X: 10, Y: 0}},
			want: Point{X: 5, Y: 5},
			ok:   true,
		},
		{
			name: "parallel",
			s:    Segment{A: Point{X: 0, Y: 0}, B: Point{X: 10, Y: 0}},
			u:    Segment{A: Point{X: 0, Y: 5}, B: Point{X: 10, Y: 5}},
			ok:   false,
		},
		{
			name: "lines cross outside extents",
			s:    Segment{A: Point{X: 0, Y: 0}, B: Point{X: 1, Y: 1}},
			u:    Segment{A: Point{X: 10, Y: 0}, B: Point{X: 0, Y: 10}},
			ok:   false,
		},
		{
			name: "touching at endpoint",
			s:    Segment{A: Point{X: 0, Y: 0}, B: Point{X: 5, Y: 5}},
			u:    Segment{A: Point{X: 5, Y: 5}, B: Point{X: 10, Y: 0}},
			want: Point{X: 5, Y: 5},
			ok:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.s.Intersect(tt.u, 1e-3)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.InDelta(t, tt.want.X, got.X, 1e-9)
				assert.InDelta(t, tt.want.Y, got.Y, 1e-9)
			}
		})
	}
}

func TestRectUnion(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	b := Rect{X: 20, Y: 5, Width: 10, Height: 10}

	got := a.Union(b)
	assert.Equal(t, Rect{X: 0, Y: 0, Width: 30, Height: 15}, got)

	assert.Equal(t, a, a.Union(Rect{}), "union with empty is identity")
	assert.Equal(t, b, Rect{}.Union(b))
}

func TestRectExpandAndCenter(t *testing.T) {
	r := Rect{X: 10, Y: 10, Width: 20, Height: 10}
	assert.Equal(t, Rect{X: 5, Y: 5, Width: 30, Height: 20}, r.Expand(5))
	assert.Equal(t, Point{X: 20, Y: 15}, r.Center())
}

func TestRectFromPoints(t *testing.T) {
	r := RectFromPoints(Point{X: 3, Y: 7}, Point{X: -1, Y: 2}, Point{X: 5, Y: 4})
	assert.Equal(t, Rect{X: -1, Y: 2, Width: 6, Height: 5}, r)
	assert.Equal(t, Rect{}, RectFromPoints())
}

func TestManhattanLength(t *testing.T) {
	assert.Equal(t, 7.0, Point{X: 3, Y: -4}.ManhattanLength())
}
