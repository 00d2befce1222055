package editor

import (
	"log/slog"

	"github.com/fsmforge/fsmforge/backend-go/internal/diagram"
	"github.com/fsmforge/fsmforge/backend-go/internal/geom"
)

// AddEntity inserts one entity into the diagram. For transitions the
// endpoint references captured at construction are not trusted across an
// undo/redo cycle: Apply re-resolves both endpoints by name against the
// live diagram, the name being the stable key. A failed lookup leaves the
// transition disconnected rather than failing the redo.
type AddEntity struct {
	ctrl   *Controller
	entity diagram.Entity

	// captured transition form for re-linking and re-applying properties
	transSnap diagram.TransitionSnapshot
}

func newAddEntity(ctrl *Controller, e diagram.Entity) *AddEntity {
	cmd := &AddEntity{ctrl: ctrl, entity: e}
	if t, ok := e.(*diagram.Transition); ok {
		cmd.transSnap = t.Snapshot()
	}
	return cmd
}

func (c *AddEntity) Name() string { return "add entity" }

func (c *AddEntity) Apply() {
	d := c.ctrl.diagram
	d.Add(c.entity)

	if t, ok := c.entity.(*diagram.Transition); ok {
		source := d.StateByName(c.transSnap.Source)
		target := d.StateByName(c.transSnap.Target)
		t.Source = source
		t.Target = target
		if source == nil || target == nil {
			slog.Error("could not link transition, leaving disconnected",
				"label", c.transSnap.Label(),
				"source", c.transSnap.Source,
				"target", c.transSnap.Target)
		}
		t.Apply(c.transSnap)
		c.ctrl.invalidateRoute(t)
	}
}

func (c *AddEntity) Revert() {
	c.ctrl.diagram.Remove(c.entity)
	if t, ok := c.entity.(*diagram.Transition); ok {
		c.ctrl.invalidateRoute(t)
	}
}

// RemoveEntities deletes a set of entities closed over referential
// integrity: removing a state always removes every transition incident to
// it. The closure is computed once, at construction.
//
// Revert re-inserts the same instances, preserving entity identity for
// commands deeper in the stack that still reference them. States and
// comments come back first, then transitions with both endpoints
// re-resolved by their captured names; a transition whose endpoint no
// longer resolves is re-inserted disconnected with a warning.
type RemoveEntities struct {
	ctrl      *Controller
	instances []diagram.Entity

	// endpoint names captured at construction, one per transition in
	// instances order
	endpoints []diagram.TransitionSnapshot
}

func newRemoveEntities(ctrl *Controller, selected []diagram.Entity) *RemoveEntities {
	cmd := &RemoveEntities{ctrl: ctrl}

	closure := make(map[diagram.Entity]bool)
	var ordered []diagram.Entity
	add := func(e diagram.Entity) {
		if !closure[e] {
			closure[e] = true
			ordered = append(ordered, e)
		}
	}
	for _, e := range selected {
		add(e)
		if s, ok := e.(*diagram.State); ok {
			for _, t := range ctrl.diagram.Incident(s) {
				add(t)
			}
		}
	}

	cmd.instances = ordered
	for _, e := range ordered {
		if t, ok := e.(*diagram.Transition); ok {
			cmd.endpoints = append(cmd.endpoints, t.Snapshot())
		}
	}
	return cmd
}

func (c *RemoveEntities) Name() string { return "remove entities" }

func (c *RemoveEntities) Apply() {
	for _, e := range c.instances {
		c.ctrl.diagram.Remove(e)
		if t, ok := e.(*diagram.Transition); ok {
			c.ctrl.invalidateRoute(t)
		}
	}
}

func (c *RemoveEntities) Revert() {
	d := c.ctrl.diagram

	for _, e := range c.instances {
		switch e.(type) {
		case *diagram.State, *diagram.Comment:
			d.Add(e)
		}
	}

	next := 0
	for _, e := range c.instances {
		t, ok := e.(*diagram.Transition)
		if !ok {
			continue
		}
		snap := c.endpoints[next]
		next++
		t.Source = d.StateByName(snap.Source)
		t.Target = d.StateByName(snap.Target)
		if !t.Connected() {
			slog.Warn("could not relink transition on undo, leaving disconnected",
				"label", snap.Label(),
				"source", snap.Source,
				"target", snap.Target)
		}
		d.Add(t)
		c.ctrl.invalidateRoute(t)
	}
}

// Move records one entity's position change.
type Move struct {
	Entity diagram.Movable
	Old    geom.Point
	New    geom.Point
}

// MoveEntities repositions a batch of movable entities. One drag gesture
// commits exactly one MoveEntities command no matter how many entities it
// carried. Old positions are captured at construction; transitions
// incident on any moved state get their paths re-routed on both Apply and
// Revert.
type MoveEntities struct {
	ctrl  *Controller
	moves []Move
}

func newMoveEntities(ctrl *Controller, moves []Move) *MoveEntities {
	return &MoveEntities{ctrl: ctrl, moves: moves}
}

func (c *MoveEntities) Name() string { return "move entities" }

func (c *MoveEntities) Apply()  { c.setPositions(true) }
func (c *MoveEntities) Revert() { c.setPositions(false) }

func (c *MoveEntities) setPositions(toNew bool) {
	for _, m := range c.moves {
		if toNew {
			m.Entity.SetPos(m.New)
		} else {
			m.Entity.SetPos(m.Old)
		}
		if s, ok := m.Entity.(*diagram.State); ok {
			c.ctrl.invalidateIncident(s)
		}
	}
}

// EditProperties swaps an entity's full snapshot between its old and new
// forms. A state rename additionally notifies the controller so any
// denormalized display of the name can refresh.
type EditProperties struct {
	ctrl     *Controller
	entity   diagram.Entity
	oldSnap  any
	newSnap  any
}

func newEditProperties(ctrl *Controller, entity diagram.Entity, oldSnap, newSnap any) *EditProperties {
	return &EditProperties{ctrl: ctrl, entity: entity, oldSnap: oldSnap, newSnap: newSnap}
}

func (c *EditProperties) Name() string { return "edit properties" }

func (c *EditProperties) Apply()  { c.swap(c.newSnap) }
func (c *EditProperties) Revert() { c.swap(c.oldSnap) }

func (c *EditProperties) swap(to any) {
	switch e := c.entity.(type) {
	case *diagram.State:
		oldName := e.Name
		e.Apply(to.(diagram.StateSnapshot))
		if oldName != e.Name {
			c.ctrl.stateRenamed(oldName, e.Name)
		}
		c.ctrl.invalidateIncident(e)
	case *diagram.Transition:
		e.Apply(to.(diagram.TransitionSnapshot))
		c.ctrl.invalidateRoute(e)
	case *diagram.Comment:
		e.Apply(to.(diagram.CommentSnapshot))
	}
}
