// Package diagram holds the FSM diagram entity model: states, transitions,
// and comments, plus the Diagram collection that owns them and the
// serializable Document form.
//
// Entities are mutable records addressed through full snapshots: every
// persisted field is read via Snapshot() and written via Apply(), which
// reports whether anything actually changed so callers can skip no-op
// history entries. Entities never mutate each other; relational upkeep
// (renames, cascades) belongs to the editor.
package diagram

import (
	"strings"

	"github.com/fsmforge/fsmforge/backend-go/internal/geom"
	"github.com/fsmforge/fsmforge/backend-go/internal/route"
	"github.com/fsmforge/fsmforge/backend-go/internal/typeid"
)

// Defaults applied by interactive creation flows.
const (
	DefaultStateWidth   = 120.0
	DefaultStateHeight  = 60.0
	DefaultCommentWidth = 150.0

	DefaultStateColor      = "#E3F2FD"
	DefaultTransitionColor = "#009688"
	DefaultCommentColor    = "#FFFDE7"
)

// Entity is anything the diagram owns.
type Entity interface {
	EntityID() string
}

// Movable is an entity with a free position (states and comments;
// transitions follow their endpoints).
type Movable interface {
	Entity
	Pos() geom.Point
	SetPos(geom.Point)
}

// StateSnapshot is the full persisted form of a State.
type StateSnapshot struct {
	Name string `json:"name"`
	geom.Rect
	IsInitial    bool   `json:"is_initial"`
	IsFinal      bool   `json:"is_final"`
	Color        string `json:"color"`
	EntryAction  string `json:"entry_action"`
	DuringAction string `json:"during_action"`
	ExitAction   string `json:"exit_action"`
	Description  string `json:"description"`
}

// State is a named FSM state with a rectangle on the canvas.
type State struct {
	ID string
	StateSnapshot
}

// NewState creates a state from a snapshot with a fresh ID.
func NewState(snap StateSnapshot) *State {
	return &State{ID: typeid.NewStateID(), StateSnapshot: snap}
}

func (s *State) EntityID() string { return s.ID }

// Snapshot returns the state's full persisted form.
func (s *State) Snapshot() StateSnapshot { return s.StateSnapshot }

// Apply replaces every persisted field and reports whether any changed.
func (s *State) Apply(snap StateSnapshot) bool {
	if s.StateSnapshot == snap {
		return false
	}
	s.StateSnapshot = snap
	return true
}

func (s *State) Pos() geom.Point { return geom.Point{X: s.X, Y: s.Y} }

func (s *State) SetPos(p geom.Point) {
	s.X = p.X
	s.Y = p.Y
}

// TransitionSnapshot is the full persisted form of a Transition. Source
// and Target carry the endpoint state names; in memory the transition
// references the State entities directly.
type TransitionSnapshot struct {
	Source        string       `json:"source"`
	Target        string       `json:"target"`
	Event         string       `json:"event"`
	Guard         string       `json:"guard"`
	Action        string       `json:"action"`
	Color         string       `json:"color"`
	Description   string       `json:"description"`
	ControlOffset route.Offset `json:"control_offset"`
}

// Label composes the display label: event [guard] /{action}.
func (t TransitionSnapshot) Label() string {
	var parts []string
	if t.Event != "" {
		parts = append(parts, t.Event)
	}
	if t.Guard != "" {
		parts = append(parts, "["+t.Guard+"]")
	}
	if t.Action != "" {
		action, _, _ := strings.Cut(t.Action, "\n")
		if len(action) > 20 {
			action = action[:17] + "..."
		}
		parts = append(parts, "/{"+action+"}")
	}
	return strings.Join(parts, " ")
}

// Transition is a directed edge between two states. Source == Target is a
// self-loop. Either endpoint may be nil after a failed re-link; such a
// transition is disconnected and is excluded from export.
type Transition struct {
	ID     string
	Source *State
	Target *State

	Event         string
	Guard         string
	Action        string
	Color         string
	Description   string
	ControlOffset route.Offset
}

// NewTransition creates a transition between two states with a fresh ID.
func NewTransition(source, target *State, snap TransitionSnapshot) *Transition {
	t := &Transition{ID: typeid.NewTransitionID(), Source: source, Target: target}
	t.Apply(snap)
	return t
}

func (t *Transition) EntityID() string { return t.ID }

// Connected reports whether both endpoints are resolved.
func (t *Transition) Connected() bool { return t.Source != nil && t.Target != nil }

// IsSelfLoop reports whether the transition loops back to its source.
func (t *Transition) IsSelfLoop() bool { return t.Connected() && t.Source == t.Target }

// Incident reports whether s is one of the transition's endpoints.
func (t *Transition) Incident(s *State) bool { return t.Source == s || t.Target == s }

// Snapshot returns the transition's full persisted form. Endpoint names
// are taken from the current State entities, so a rename is reflected
// without touching the transition.
func (t *Transition) Snapshot() TransitionSnapshot {
	snap := TransitionSnapshot{
		Event:         t.Event,
		Guard:         t.Guard,
		Action:        t.Action,
		Color:         t.Color,
		Description:   t.Description,
		ControlOffset: t.ControlOffset,
	}
	if t.Source != nil {
		snap.Source = t.Source.Name
	}
	if t.Target != nil {
		snap.Target = t.Target.Name
	}
	return snap
}

// Apply replaces the transition's presentation fields and reports whether
// any changed. Endpoints are identity references and are not touched here;
// re-linking by name is the caller's job.
func (t *Transition) Apply(snap TransitionSnapshot) bool {
	changed := t.Event != snap.Event ||
		t.Guard != snap.Guard ||
		t.Action != snap.Action ||
		t.Color != snap.Color ||
		t.Description != snap.Description ||
		t.ControlOffset != snap.ControlOffset
	if !changed {
		return false
	}
	t.Event = snap.Event
	t.Guard = snap.Guard
	t.Action = snap.Action
	t.Color = snap.Color
	t.Description = snap.Description
	t.ControlOffset = snap.ControlOffset
	return true
}

// Label composes the transition's display label.
func (t *Transition) Label() string { return t.Snapshot().Label() }

// CommentSnapshot is the full persisted form of a Comment.
type CommentSnapshot struct {
	Text  string  `json:"text"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Width float64 `json:"width"`
}

// Comment is a free text annotation with no relational invariants.
type Comment struct {
	ID string
	CommentSnapshot
}

// NewComment creates a comment from a snapshot with a fresh ID.
func NewComment(snap CommentSnapshot) *Comment {
	return &Comment{ID: typeid.NewCommentID(), CommentSnapshot: snap}
}

func (c *Comment) EntityID() string { return c.ID }

// Snapshot returns the comment's full persisted form.
func (c *Comment) Snapshot() CommentSnapshot { return c.CommentSnapshot }

// Apply replaces every persisted field and reports whether any changed.
func (c *Comment) Apply(snap CommentSnapshot) bool {
	if c.CommentSnapshot == snap {
		return false
	}
	c.CommentSnapshot = snap
	return true
}

func (c *Comment) Pos() geom.Point { return geom.Point{X: c.X, Y: c.Y} }

func (c *Comment) SetPos(p geom.Point) {
	c.X = p.X
	c.Y = p.Y
}
