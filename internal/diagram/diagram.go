package diagram

import (
	"log/slog"
)

// Diagram owns every entity in one FSM diagram. It is a plain collection:
// all mutation policy (commands, validation, cascades) lives in the editor
// that owns it.
type Diagram struct {
	states      []*State
	transitions []*Transition
	comments    []*Comment
}

// New creates an empty diagram.
func New() *Diagram {
	return &Diagram{}
}

// Add inserts an entity into the diagram. Re-adding a present entity is a
// no-op, which keeps command redo idempotent.
func (d *Diagram) Add(e Entity) {
	if d.Contains(e) {
		return
	}
	switch v := e.(type) {
	case *State:
		d.states = append(d.states, v)
	case *Transition:
		d.transitions = append(d.transitions, v)
	case *Comment:
		d.comments = append(d.comments, v)
	}
}

// Remove detaches an entity from the diagram. The entity itself is left
// intact so an undo stack can hold it for re-insertion.
func (d *Diagram) Remove(e Entity) {
	switch v := e.(type) {
	case *State:
		d.states = removeFrom(d.states, v)
	case *Transition:
		d.transitions = removeFrom(d.transitions, v)
	case *Comment:
		d.comments = removeFrom(d.comments, v)
	}
}

func removeFrom[T comparable](list []T, v T) []T {
	for i, e := range list {
		if e == v {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// Contains reports whether the entity is currently in the diagram.
func (d *Diagram) Contains(e Entity) bool {
	switch v := e.(type) {
	case *State:
		for _, s := range d.states {
			if s == v {
				return true
			}
		}
	case *Transition:
		for _, t := range d.transitions {
			if t == v {
				return true
			}
		}
	case *Comment:
		for _, c := range d.comments {
			if c == v {
				return true
			}
		}
	}
	return false
}

// States returns the diagram's states in insertion order.
func (d *Diagram) States() []*State { return d.states }

// Transitions returns the diagram's transitions in insertion order.
func (d *Diagram) Transitions() []*Transition { return d.transitions }

// Comments returns the diagram's comments in insertion order.
func (d *Diagram) Comments() []*Comment { return d.comments }

// StateByName returns the state with the given name, or nil.
func (d *Diagram) StateByName(name string) *State {
	for _, s := range d.states {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// ByID returns the entity with the given ID, or nil.
func (d *Diagram) ByID(id string) Entity {
	for _, s := range d.states {
		if s.ID == id {
			return s
		}
	}
	for _, t := range d.transitions {
		if t.ID == id {
			return t
		}
	}
	for _, c := range d.comments {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Incident returns every transition with s as an endpoint.
func (d *Diagram) Incident(s *State) []*Transition {
	var out []*Transition
	for _, t := range d.transitions {
		if t.Incident(s) {
			out = append(out, t)
		}
	}
	return out
}

// Clear removes every entity.
func (d *Diagram) Clear() {
	d.states = nil
	d.transitions = nil
	d.comments = nil
}

// Document is the serializable form of a whole diagram.
type Document struct {
	States      []StateSnapshot      `json:"states"`
	Transitions []TransitionSnapshot `json:"transitions"`
	Comments    []CommentSnapshot    `json:"comments"`
}

// Export snapshots the whole diagram. Transitions with an unresolved
// endpoint are orphans: they are skipped with a warning, never exported.
func (d *Diagram) Export() Document {
	doc := Document{
		States:      make([]StateSnapshot, 0, len(d.states)),
		Transitions: make([]TransitionSnapshot, 0, len(d.transitions)),
		Comments:    make([]CommentSnapshot, 0, len(d.comments)),
	}
	for _, s := range d.states {
		doc.States = append(doc.States, s.Snapshot())
	}
	for _, t := range d.transitions {
		if !t.Connected() {
			slog.Warn("skipping export of orphaned transition", "label", t.Label())
			continue
		}
		doc.Transitions = append(doc.Transitions, t.Snapshot())
	}
	for _, c := range d.comments {
		doc.Comments = append(doc.Comments, c.Snapshot())
	}
	return doc
}
