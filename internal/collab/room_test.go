package collab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsmforge/fsmforge/backend-go/internal/diagram"
	"github.com/fsmforge/fsmforge/backend-go/internal/editor"
	"github.com/fsmforge/fsmforge/backend-go/internal/geom"
)

func seededRoom(t *testing.T) *Room {
	t.Helper()
	doc := diagram.Document{
		States: []diagram.StateSnapshot{
			{Name: "Idle", Rect: geom.Rect{X: 0, Y: 0, Width: 120, Height: 60}, IsInitial: true},
			{Name: "Running", Rect: geom.Rect{X: 300, Y: 0, Width: 120, Height: 60}},
		},
		Transitions: []diagram.TransitionSnapshot{
			{Source: "Idle", Target: "Running", Event: "start"},
		},
	}
	return NewRoom("diag_test", &doc)
}

func stateID(t *testing.T, r *Room, name string) string {
	t.Helper()
	s := r.ctrl.StateByName(name)
	require.NotNil(t, s)
	return s.ID
}

func TestRoomApplySequencesOperations(t *testing.T) {
	r := seededRoom(t)
	assert.EqualValues(t, 0, r.ServerSeq())

	seq, err := r.Apply(Operation{
		Type:  OpAddState,
		State: &diagram.StateSnapshot{Name: "Done", Rect: geom.Rect{X: 600, Y: 0, Width: 120, Height: 60}},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, seq)

	seq, err = r.Apply(Operation{
		Type:       OpAddTransition,
		Transition: &diagram.TransitionSnapshot{Source: "Running", Target: "Done", Event: "finish"},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, seq)

	doc := r.Document()
	assert.Len(t, doc.States, 3)
	assert.Len(t, doc.Transitions, 2)
}

func TestRoomRejectsDuplicateStateName(t *testing.T) {
	r := seededRoom(t)

	_, err := r.Apply(Operation{
		Type:  OpAddState,
		State: &diagram.StateSnapshot{Name: "Idle"},
	})
	require.ErrorIs(t, err, editor.ErrDuplicateName)

	// Rejection commits nothing.
	assert.EqualValues(t, 0, r.ServerSeq())
	_, dirty := r.TakeDirty()
	assert.False(t, dirty)
}

func TestRoomRejectsTransitionWithUnknownEndpoint(t *testing.T) {
	r := seededRoom(t)

	_, err := r.Apply(Operation{
		Type:       OpAddTransition,
		Transition: &diagram.TransitionSnapshot{Source: "Idle", Target: "Nowhere"},
	})
	assert.ErrorIs(t, err, editor.ErrUnknownState)
}

func TestRoomEditEntity(t *testing.T) {
	r := seededRoom(t)
	id := stateID(t, r, "Running")

	snap := r.ctrl.StateByName("Running").Snapshot()
	snap.Name = "Active"
	snap.Color = "#FFCDD2"

	_, err := r.Apply(Operation{Type: OpEditEntity, EntityID: id, State: &snap})
	require.NoError(t, err)

	doc := r.Document()
	require.Len(t, doc.Transitions, 1)
	assert.Equal(t, "Active", doc.Transitions[0].Target)
}

func TestRoomEditUnknownEntity(t *testing.T) {
	r := seededRoom(t)

	_, err := r.Apply(Operation{
		Type:     OpEditEntity,
		EntityID: "state_missing",
		State:    &diagram.StateSnapshot{Name: "X"},
	})
	assert.ErrorContains(t, err, "not found")
}

func TestRoomMoveEntities(t *testing.T) {
	r := seededRoom(t)
	id := stateID(t, r, "Idle")

	_, err := r.Apply(Operation{
		Type:  OpMoveEntities,
		Moves: []MovePayload{{EntityID: id, X: 40, Y: 80}},
	})
	require.NoError(t, err)

	s := r.ctrl.StateByName("Idle")
	assert.Equal(t, geom.Point{X: 40, Y: 80}, s.Pos())
}

func TestRoomDeleteCascadesAndUndoRestores(t *testing.T) {
	r := seededRoom(t)
	id := stateID(t, r, "Running")

	_, err := r.Apply(Operation{Type: OpDeleteEntities, EntityIDs: []string{id}})
	require.NoError(t, err)

	doc := r.Document()
	assert.Len(t, doc.States, 1)
	assert.Empty(t, doc.Transitions)

	seq, err := r.Apply(Operation{Type: OpUndo})
	require.NoError(t, err)
	assert.EqualValues(t, 2, seq)

	doc = r.Document()
	assert.Len(t, doc.States, 2)
	require.Len(t, doc.Transitions, 1)
	assert.Equal(t, "Running", doc.Transitions[0].Target)
}

func TestRoomUndoRedoEmptyHistory(t *testing.T) {
	r := seededRoom(t)

	_, err := r.Apply(Operation{Type: OpUndo})
	assert.ErrorContains(t, err, "nothing to undo")

	_, err = r.Apply(Operation{Type: OpRedo})
	assert.ErrorContains(t, err, "nothing to redo")

	assert.EqualValues(t, 0, r.ServerSeq())
}

func TestRoomReplaceDocument(t *testing.T) {
	r := seededRoom(t)

	_, err := r.Apply(Operation{
		Type: OpReplaceDoc,
		Document: &diagram.Document{
			States: []diagram.StateSnapshot{{Name: "Solo"}},
		},
	})
	require.NoError(t, err)

	doc := r.Document()
	require.Len(t, doc.States, 1)
	assert.Equal(t, "Solo", doc.States[0].Name)
}

func TestRoomUnknownOperation(t *testing.T) {
	r := seededRoom(t)

	_, err := r.Apply(Operation{Type: "entity.teleport"})
	assert.ErrorContains(t, err, "unknown operation type")
}

func TestRoomTakeDirty(t *testing.T) {
	r := seededRoom(t)

	// A freshly loaded room has no unsaved changes.
	_, dirty := r.TakeDirty()
	assert.False(t, dirty)

	_, err := r.Apply(Operation{
		Type:    OpAddComment,
		Comment: &diagram.CommentSnapshot{Text: "note", X: 10, Y: 10},
	})
	require.NoError(t, err)

	doc, dirty := r.TakeDirty()
	assert.True(t, dirty)
	assert.Len(t, doc.Comments, 1)

	// Taking clears the flag until the next committed operation.
	_, dirty = r.TakeDirty()
	assert.False(t, dirty)
}
