package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsmforge/fsmforge/backend-go/internal/geom"
	"github.com/fsmforge/fsmforge/backend-go/internal/route"
)

func TestStateSnapshotRoundTrip(t *testing.T) {
	snap := StateSnapshot{
		Name:        "Idle",
		Rect:        geom.Rect{X: 40, Y: 80, Width: 120, Height: 60},
		IsInitial:   true,
		Color:       DefaultStateColor,
		EntryAction: "reset()",
		Description: "waiting for input",
	}
	s := NewState(snap)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, snap, s.Snapshot())

	assert.False(t, s.Apply(snap), "re-applying the same snapshot is a no-op")

	snap.Name = "Busy"
	assert.True(t, s.Apply(snap))
	assert.Equal(t, "Busy", s.Name)
}

func TestTransitionSnapshotFollowsRename(t *testing.T) {
	a := NewState(StateSnapshot{Name: "A"})
	b := NewState(StateSnapshot{Name: "B"})
	tr := NewTransition(a, b, TransitionSnapshot{Event: "go"})

	require.Equal(t, "A", tr.Snapshot().Source)

	a.Name = "Start"
	assert.Equal(t, "Start", tr.Snapshot().Source, "snapshot reads the live endpoint name")
}

func TestTransitionLabel(t *testing.T) {
	tests := []struct {
		name string
		snap TransitionSnapshot
		want string
	}{
		{"empty", TransitionSnapshot{}, ""},
		{"event only", TransitionSnapshot{Event: "tick"}, "tick"},
		{"event and guard", TransitionSnapshot{Event: "tick", Guard: "n > 0"}, "tick [n > 0]"},
		{
			"all parts",
			TransitionSnapshot{Event: "tick", Guard: "n > 0", Action: "n--"},
			"tick [n > 0] /{n--}",
		},
		{
			"long action truncated",
			TransitionSnapshot{Action: "a_very_long_action_body()"},
			"/{a_very_long_actio...}",
		},
		{
			"multiline action keeps first line",
			TransitionSnapshot{Action: "first()\nsecond()"},
			"/{first()}",
		},
		{"guard only", TransitionSnapshot{Guard: "armed"}, "[armed]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.snap.Label())
		})
	}
}

func TestTransitionApplyReportsChange(t *testing.T) {
	a := NewState(StateSnapshot{Name: "A"})
	tr := NewTransition(a, a, TransitionSnapshot{Event: "tick"})

	assert.True(t, tr.IsSelfLoop())
	assert.False(t, tr.Apply(tr.Snapshot()))
	assert.True(t, tr.Apply(TransitionSnapshot{Event: "tick", ControlOffset: route.Offset{Bend: 30}}))
	assert.Equal(t, 30.0, tr.ControlOffset.Bend)
}

func TestDiagramAddRemoveContains(t *testing.T) {
	d := New()
	s := NewState(StateSnapshot{Name: "A"})

	d.Add(s)
	d.Add(s) // idempotent
	require.Len(t, d.States(), 1)
	assert.True(t, d.Contains(s))

	d.Remove(s)
	assert.False(t, d.Contains(s))
	assert.Empty(t, d.States())

	// The removed entity survives for re-insertion.
	assert.Equal(t, "A", s.Name)
}

func TestDiagramIncident(t *testing.T) {
	d := New()
	a := NewState(StateSnapshot{Name: "A"})
	b := NewState(StateSnapshot{Name: "B"})
	c := NewState(StateSnapshot{Name: "C"})
	d.Add(a)
	d.Add(b)
	d.Add(c)

	ab := NewTransition(a, b, TransitionSnapshot{Event: "x"})
	bc := NewTransition(b, c, TransitionSnapshot{Event: "y"})
	loop := NewTransition(a, a, TransitionSnapshot{Event: "z"})
	d.Add(ab)
	d.Add(bc)
	d.Add(loop)

	assert.ElementsMatch(t, []*Transition{ab, loop}, d.Incident(a))
	assert.ElementsMatch(t, []*Transition{ab, bc}, d.Incident(b))
	assert.Empty(t, d.Incident(NewState(StateSnapshot{Name: "D"})))
}

func TestExportSkipsOrphanedTransitions(t *testing.T) {
	d := New()
	a := NewState(StateSnapshot{Name: "A"})
	b := NewState(StateSnapshot{Name: "B"})
	d.Add(a)
	d.Add(b)

	ok := NewTransition(a, b, TransitionSnapshot{Event: "go"})
	orphan := NewTransition(a, nil, TransitionSnapshot{Event: "lost"})
	d.Add(ok)
	d.Add(orphan)

	doc := d.Export()
	require.Len(t, doc.Transitions, 1)
	assert.Equal(t, "go", doc.Transitions[0].Event)
	assert.Len(t, doc.States, 2)
}

func TestStateByNameAndByID(t *testing.T) {
	d := New()
	a := NewState(StateSnapshot{Name: "A"})
	d.Add(a)
	n := NewComment(CommentSnapshot{Text: "note", Width: DefaultCommentWidth})
	d.Add(n)

	assert.Same(t, a, d.StateByName("A"))
	assert.Nil(t, d.StateByName("missing"))
	assert.Same(t, a, d.ByID(a.ID).(*State))
	assert.Same(t, n, d.ByID(n.ID).(*Comment))
	assert.Nil(t, d.ByID("state_nonexistent"))
}
