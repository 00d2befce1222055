package scene

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsmforge/fsmforge/backend-go/internal/diagram"
	"github.com/fsmforge/fsmforge/backend-go/internal/editor"
	"github.com/fsmforge/fsmforge/backend-go/internal/geom"
)

func fixture(t *testing.T) *editor.Controller {
	t.Helper()
	c := editor.New(nil)
	c.Import(diagram.Document{
		States: []diagram.StateSnapshot{
			{Name: "Idle", Rect: geom.Rect{X: 0, Y: 0, Width: 120, Height: 60}, IsInitial: true, Color: "#E3F2FD"},
			{Name: "Done", Rect: geom.Rect{X: 300, Y: 0, Width: 120, Height: 60}, IsFinal: true, Color: "#E3F2FD"},
		},
		Transitions: []diagram.TransitionSnapshot{
			{Source: "Idle", Target: "Done", Event: "finish", Color: "#009688"},
		},
		Comments: []diagram.CommentSnapshot{
			{Text: "happy path", X: 20, Y: 200, Width: 150},
		},
	})
	return c
}

func TestCompilePaintersOrder(t *testing.T) {
	c := fixture(t)
	cmds := Compile(c)
	require.NotEmpty(t, cmds)

	tr := c.Diagram().Transitions()[0]
	idle := c.StateByName("Idle")

	firstState, firstTransition := -1, -1
	for i, cmd := range cmds {
		if cmd.ObjectID == idle.ID && firstState == -1 {
			firstState = i
		}
		if cmd.ObjectID == tr.ID && firstTransition == -1 {
			firstTransition = i
		}
	}
	require.NotEqual(t, -1, firstState)
	require.NotEqual(t, -1, firstTransition)
	assert.Less(t, firstTransition, firstState, "transitions paint under states")
}

func TestCompileStateDecorations(t *testing.T) {
	c := fixture(t)
	cmds := Compile(c)

	idle := c.StateByName("Idle")
	done := c.StateByName("Done")

	count := func(id string) int {
		n := 0
		for _, cmd := range cmds {
			if cmd.ObjectID == id && cmd.Op == "path" {
				n++
			}
		}
		return n
	}

	// Initial state: body + entry stem + stem arrowhead.
	assert.Equal(t, 3, count(idle.ID))
	// Final state: body + inner border.
	assert.Equal(t, 2, count(done.ID))
}

func TestCompileTransitionLabelAndArrow(t *testing.T) {
	c := fixture(t)
	cmds := Compile(c)
	tr := c.Diagram().Transitions()[0]

	var label *DrawCommand
	paths := 0
	for i := range cmds {
		if cmds[i].ObjectID != tr.ID {
			continue
		}
		switch cmds[i].Op {
		case "text":
			label = &cmds[i]
		case "path":
			paths++
		}
	}

	require.NotNil(t, label)
	assert.Equal(t, "finish", label.Text)
	assert.Equal(t, 2, paths, "connector path plus arrowhead")
}

func TestCompileSkipsDisconnectedTransitions(t *testing.T) {
	c := fixture(t)
	orphan := diagram.NewTransition(nil, nil, diagram.TransitionSnapshot{Event: "lost"})
	c.Diagram().Add(orphan)

	for _, cmd := range Compile(c) {
		assert.NotEqual(t, orphan.ID, cmd.ObjectID)
	}
}

func TestCompilePreviewLine(t *testing.T) {
	c := fixture(t)

	for _, cmd := range Compile(c) {
		assert.False(t, cmd.Dashed)
	}

	c.SetMode(editor.ModeAddTransition)
	require.NoError(t, c.PointerDown(geom.Point{X: 60, Y: 30}))
	c.PointerMove(geom.Point{X: 180, Y: 90})

	cmds := Compile(c)
	last := cmds[len(cmds)-1]
	assert.True(t, last.Dashed, "preview line paints last, dashed")
	assert.Equal(t, []PathCommand{{"M", 60.0, 30.0}, {"L", 180.0, 90.0}}, last.Path)
}

func TestSelectionBounds(t *testing.T) {
	c := fixture(t)
	assert.True(t, SelectionBounds(c).IsEmpty())

	c.SelectAll()
	b := SelectionBounds(c)
	assert.True(t, b.Contains(0, 0))
	assert.True(t, b.Contains(420, 60))
	assert.True(t, b.Contains(100, 230), "comment box included")
}

func TestToJSONRoundTrips(t *testing.T) {
	c := fixture(t)
	s, err := ToJSON(Compile(c))
	require.NoError(t, err)

	var decoded []DrawCommand
	require.NoError(t, json.Unmarshal([]byte(s), &decoded))
	assert.Len(t, decoded, len(Compile(c)))
}
