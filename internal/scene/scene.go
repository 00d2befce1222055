// Package scene compiles a diagram into renderer-agnostic draw commands.
// The front-end replays them on whatever canvas it has; nothing here picks
// a rendering backend.
package scene

import (
	"encoding/json"
	"math"

	"github.com/fsmforge/fsmforge/backend-go/internal/diagram"
	"github.com/fsmforge/fsmforge/backend-go/internal/editor"
	"github.com/fsmforge/fsmforge/backend-go/internal/geom"
	"github.com/fsmforge/fsmforge/backend-go/internal/route"
)

// PathCommand is a single path segment in Canvas2D order:
// ["M", x, y], ["L", x, y], ["Q", cx, cy, x, y],
// ["C", c1x, c1y, c2x, c2y, x, y], ["Z"].
type PathCommand []interface{}

// DrawCommand is one drawing operation for the front-end to execute.
// Commands are emitted in painter's order (back to front).
type DrawCommand struct {
	Op          string        `json:"op"` // "path" or "text"
	ObjectID    string        `json:"objectId,omitempty"`
	Path        []PathCommand `json:"path,omitempty"`
	Fill        string        `json:"fill,omitempty"`
	Stroke      string        `json:"stroke,omitempty"`
	StrokeWidth float64       `json:"strokeWidth,omitempty"`
	Dashed      bool          `json:"dashed,omitempty"`
	Text        string        `json:"text,omitempty"`
	X           float64       `json:"x,omitempty"`
	Y           float64       `json:"y,omitempty"`
	MaxWidth    float64       `json:"maxWidth,omitempty"`
}

const (
	stateStroke      = "#90CAF9"
	commentStroke    = "#FFF59D"
	previewStroke    = "#0277BD"
	textColor        = "#263238"
	stateStrokeWidth = 1.8
	finalInset       = 5.0
	initialStemLen   = 40.0
)

// Compile renders the controller's diagram to draw commands: transitions
// first (they sit under the shapes), then states, comments, and finally
// the live add-transition preview line when one is armed.
func Compile(c *editor.Controller) []DrawCommand {
	d := c.Diagram()
	var cmds []DrawCommand

	for _, t := range d.Transitions() {
		if !t.Connected() {
			continue
		}
		cmds = append(cmds, compileTransition(t, c.RouteFor(t))...)
	}
	for _, s := range d.States() {
		cmds = append(cmds, compileState(s)...)
	}
	for _, cm := range d.Comments() {
		cmds = append(cmds, compileComment(cm)...)
	}
	if line, ok := c.PreviewLine(); ok {
		cmds = append(cmds, DrawCommand{
			Op:          "path",
			Path:        []PathCommand{{"M", line.A.X, line.A.Y}, {"L", line.B.X, line.B.Y}},
			Stroke:      previewStroke,
			StrokeWidth: stateStrokeWidth,
			Dashed:      true,
		})
	}
	return cmds
}

func compileState(s *diagram.State) []DrawCommand {
	r := s.Rect
	cmds := []DrawCommand{{
		Op:          "path",
		ObjectID:    s.ID,
		Path:        rectPath(r),
		Fill:        s.Color,
		Stroke:      stateStroke,
		StrokeWidth: stateStrokeWidth,
	}}

	if s.IsFinal {
		cmds = append(cmds, DrawCommand{
			Op:          "path",
			ObjectID:    s.ID,
			Path:        rectPath(r.Expand(-finalInset)),
			Stroke:      stateStroke,
			StrokeWidth: stateStrokeWidth,
		})
	}
	if s.IsInitial {
		cy := r.Y + r.Height/2
		tip := geom.Point{X: r.X, Y: cy}
		cmds = append(cmds,
			DrawCommand{
				Op:          "path",
				ObjectID:    s.ID,
				Path:        []PathCommand{{"M", r.X - initialStemLen, cy}, {"L", r.X, cy}},
				Stroke:      textColor,
				StrokeWidth: stateStrokeWidth,
			},
			arrowhead(tip, 0, textColor, s.ID),
		)
	}

	cmds = append(cmds, DrawCommand{
		Op:       "text",
		ObjectID: s.ID,
		Text:     s.Name,
		X:        r.X + r.Width/2,
		Y:        r.Y + r.Height/2,
		MaxWidth: r.Width,
		Fill:     textColor,
	})
	return cmds
}

func compileTransition(t *diagram.Transition, rt route.Route) []DrawCommand {
	cmds := []DrawCommand{
		{
			Op:          "path",
			ObjectID:    t.ID,
			Path:        pathCommands(rt.Path),
			Stroke:      t.Color,
			StrokeWidth: route.PenWidth,
		},
		arrowhead(rt.Path.End(), rt.EndAngle, t.Color, t.ID),
	}

	if label := t.Label(); label != "" {
		mid := rt.Path.PointAt(0.5)
		cmds = append(cmds, DrawCommand{
			Op:       "text",
			ObjectID: t.ID,
			Text:     label,
			X:        mid.X,
			Y:        mid.Y - 10,
			Fill:     textColor,
		})
	}
	return cmds
}

func compileComment(cm *diagram.Comment) []DrawCommand {
	r := geom.Rect{X: cm.X, Y: cm.Y, Width: cm.Width, Height: 40}
	return []DrawCommand{
		{
			Op:          "path",
			ObjectID:    cm.ID,
			Path:        rectPath(r),
			Fill:        diagram.DefaultCommentColor,
			Stroke:      commentStroke,
			StrokeWidth: stateStrokeWidth,
		},
		{
			Op:       "text",
			ObjectID: cm.ID,
			Text:     cm.Text,
			X:        cm.X + 4,
			Y:        cm.Y + 4,
			MaxWidth: cm.Width,
			Fill:     textColor,
		},
	}
}

// arrowhead builds a small filled triangle with its tip at p, pointing
// along angle.
func arrowhead(p geom.Point, angle float64, color, objectID string) DrawCommand {
	size := float64(route.ArrowSize)
	spread := math.Pi / 7
	left := geom.Point{
		X: p.X - size*math.Cos(angle-spread),
		Y: p.Y - size*math.Sin(angle-spread),
	}
	right := geom.Point{
		X: p.X - size*math.Cos(angle+spread),
		Y: p.Y - size*math.Sin(angle+spread),
	}
	return DrawCommand{
		Op:       "path",
		ObjectID: objectID,
		Path: []PathCommand{
			{"M", p.X, p.Y},
			{"L", left.X, left.Y},
			{"L", right.X, right.Y},
			{"Z"},
		},
		Fill: color,
	}
}

func rectPath(r geom.Rect) []PathCommand {
	return []PathCommand{
		{"M", r.X, r.Y},
		{"L", r.X + r.Width, r.Y},
		{"L", r.X + r.Width, r.Y + r.Height},
		{"L", r.X, r.Y + r.Height},
		{"Z"},
	}
}

func pathCommands(p route.Path) []PathCommand {
	cmds := []PathCommand{{"M", p.Start.X, p.Start.Y}}
	for _, seg := range p.Segments {
		switch seg.Kind {
		case route.SegmentQuad:
			cmds = append(cmds, PathCommand{"Q", seg.C1.X, seg.C1.Y, seg.End.X, seg.End.Y})
		case route.SegmentCubic:
			cmds = append(cmds, PathCommand{"C", seg.C1.X, seg.C1.Y, seg.C2.X, seg.C2.Y, seg.End.X, seg.End.Y})
		default:
			cmds = append(cmds, PathCommand{"L", seg.End.X, seg.End.Y})
		}
	}
	return cmds
}

// SelectionBounds returns the combined bounding box of the controller's
// current selection.
func SelectionBounds(c *editor.Controller) geom.Rect {
	var result geom.Rect
	for _, e := range c.Selection() {
		var b geom.Rect
		switch v := e.(type) {
		case *diagram.State:
			b = v.Rect
		case *diagram.Comment:
			b = geom.Rect{X: v.X, Y: v.Y, Width: v.Width, Height: 40}
		case *diagram.Transition:
			b = c.RouteFor(v).Bounds
		}
		result = result.Union(b)
	}
	return result
}

// ToJSON serializes draw commands for transport.
func ToJSON(cmds []DrawCommand) (string, error) {
	data, err := json.Marshal(cmds)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}
