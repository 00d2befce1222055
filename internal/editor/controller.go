// Package editor is the diagram editing engine: an interaction-mode state
// machine that turns abstract pointer and keyboard gestures into entities
// and reversible commands on an undo stack.
//
// The Controller is the sole owner of its Diagram. After creation, every
// structural or property mutation flows through a Command; entities
// survive removal only inside the undo stack, pending redo.
package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/fsmforge/fsmforge/backend-go/internal/diagram"
	"github.com/fsmforge/fsmforge/backend-go/internal/geom"
	"github.com/fsmforge/fsmforge/backend-go/internal/route"
)

const (
	// GridSize is the snap grid pitch.
	GridSize = 20.0

	// moveEpsilon is the Manhattan distance below which a drag commits no
	// history entry.
	moveEpsilon = 0.1
)

// ErrDuplicateName rejects creating or renaming a state to a name already
// in use. The check runs before any command is constructed, so nothing is
// mutated and the undo stack is untouched.
var ErrDuplicateName = errors.New("a state with that name already exists")

// ErrUnknownState rejects a transition naming an endpoint that does not
// exist.
var ErrUnknownState = errors.New("unknown state")

// PropertyEditor is the property-entry flow opened by the interactive add
// and edit gestures. Implementations show the user the defaults and return
// the confirmed snapshot, or ok=false when the flow is dismissed.
// Dismissal discards the flow; nothing is created or changed.
type PropertyEditor interface {
	EditState(defaults diagram.StateSnapshot, isNew bool) (diagram.StateSnapshot, bool)
	EditTransition(defaults diagram.TransitionSnapshot, isNew bool) (diagram.TransitionSnapshot, bool)
	EditComment(defaults diagram.CommentSnapshot, isNew bool) (diagram.CommentSnapshot, bool)
}

// PropertyFuncs adapts plain functions to PropertyEditor. A nil field
// confirms the defaults unchanged.
type PropertyFuncs struct {
	State      func(diagram.StateSnapshot, bool) (diagram.StateSnapshot, bool)
	Transition func(diagram.TransitionSnapshot, bool) (diagram.TransitionSnapshot, bool)
	Comment    func(diagram.CommentSnapshot, bool) (diagram.CommentSnapshot, bool)
}

func (p PropertyFuncs) EditState(d diagram.StateSnapshot, isNew bool) (diagram.StateSnapshot, bool) {
	if p.State == nil {
		return d, true
	}
	return p.State(d, isNew)
}

func (p PropertyFuncs) EditTransition(d diagram.TransitionSnapshot, isNew bool) (diagram.TransitionSnapshot, bool) {
	if p.Transition == nil {
		return d, true
	}
	return p.Transition(d, isNew)
}

func (p PropertyFuncs) EditComment(d diagram.CommentSnapshot, isNew bool) (diagram.CommentSnapshot, bool) {
	if p.Comment == nil {
		return d, true
	}
	return p.Comment(d, isNew)
}

// Controller owns a diagram and an undo stack and interprets input events
// against the current interaction mode.
type Controller struct {
	diagram *diagram.Diagram
	stack   *Stack
	props   PropertyEditor

	mode  Mode
	dirty bool

	onDirty  func(bool)
	onChange func()
	onRename func(oldName, newName string)

	snapToGrid bool

	// routed paths, recomputed lazily after invalidation
	routes map[*diagram.Transition]route.Route

	selection []diagram.Entity

	// select-mode drag
	dragging  bool
	dragLast  geom.Point
	dragStart map[diagram.Movable]geom.Point

	// add-transition gesture
	pendingSource *diagram.State
	previewEnd    geom.Point
}

// New creates a controller over an empty diagram. props may be nil, in
// which case interactive flows confirm their defaults unchanged.
func New(props PropertyEditor) *Controller {
	if props == nil {
		props = PropertyFuncs{}
	}
	return &Controller{
		diagram:    diagram.New(),
		stack:      NewStack(),
		props:      props,
		mode:       ModeSelect,
		snapToGrid: true,
		routes:     make(map[*diagram.Transition]route.Route),
		dragStart:  make(map[diagram.Movable]geom.Point),
	}
}

// SetPropertyEditor replaces the property-entry flow.
func (c *Controller) SetPropertyEditor(props PropertyEditor) {
	if props == nil {
		props = PropertyFuncs{}
	}
	c.props = props
}

// Diagram exposes the owned collection for read-only collaborators
// (rendering, export). Mutating it directly bypasses the undo stack.
func (c *Controller) Diagram() *diagram.Diagram { return c.diagram }

// OnDirtyChanged registers the host callback fired when the modified flag
// flips (title bar, save-button enablement).
func (c *Controller) OnDirtyChanged(fn func(bool)) { c.onDirty = fn }

// OnChange registers a callback fired after any committed mutation,
// undo/redo, or import.
func (c *Controller) OnChange(fn func()) { c.onChange = fn }

// OnStateRenamed registers a callback fired when a committed command
// changes a state's name, for hosts keeping a denormalized display of it.
func (c *Controller) OnStateRenamed(fn func(oldName, newName string)) { c.onRename = fn }

// SetSnapToGrid toggles snapping moved entities to the grid on drop.
func (c *Controller) SetSnapToGrid(enabled bool) { c.snapToGrid = enabled }

// Mode returns the current interaction mode.
func (c *Controller) Mode() Mode { return c.mode }

// SetMode switches the interaction mode. Leaving add-transition abandons
// any half-finished gesture.
func (c *Controller) SetMode(m Mode) {
	if c.mode == m {
		return
	}
	if c.mode == ModeAddTransition {
		c.cancelTransitionGesture()
	}
	c.mode = m
}

// IsDirty reports whether the diagram has uncommitted-to-host changes.
func (c *Controller) IsDirty() bool { return c.dirty }

// MarkClean records a host save checkpoint.
func (c *Controller) MarkClean() { c.setDirty(false) }

func (c *Controller) setDirty(dirty bool) {
	if c.dirty == dirty {
		return
	}
	c.dirty = dirty
	if c.onDirty != nil {
		c.onDirty(dirty)
	}
}

func (c *Controller) notifyChange() {
	if c.onChange != nil {
		c.onChange()
	}
}

func (c *Controller) stateRenamed(oldName, newName string) {
	slog.Info("state renamed", "from", oldName, "to", newName)
	if c.onRename != nil {
		c.onRename(oldName, newName)
	}
}

// push commits a command: apply, record, mark modified, notify.
func (c *Controller) push(cmd Command) {
	c.stack.Push(cmd)
	c.setDirty(true)
	c.notifyChange()
}

// CanUndo reports whether an undo is available.
func (c *Controller) CanUndo() bool { return c.stack.CanUndo() }

// CanRedo reports whether a redo is available.
func (c *Controller) CanRedo() bool { return c.stack.CanRedo() }

// Undo reverts the most recent command.
func (c *Controller) Undo() bool {
	if !c.stack.Undo() {
		return false
	}
	c.clearSelection()
	c.setDirty(true)
	c.notifyChange()
	return true
}

// Redo reapplies the most recently undone command.
func (c *Controller) Redo() bool {
	if !c.stack.Redo() {
		return false
	}
	c.clearSelection()
	c.setDirty(true)
	c.notifyChange()
	return true
}

// UndoDepth returns the number of undoable commands.
func (c *Controller) UndoDepth() int { return c.stack.Len() }

// StateByName returns the named state, or nil.
func (c *Controller) StateByName(name string) *diagram.State {
	return c.diagram.StateByName(name)
}

// --- routing ---

// RouteFor returns the routed path for a transition, computing it on
// demand. Disconnected transitions route to an empty path.
func (c *Controller) RouteFor(t *diagram.Transition) route.Route {
	if r, ok := c.routes[t]; ok {
		return r
	}
	r := routeTransition(t)
	c.routes[t] = r
	return r
}

func routeTransition(t *diagram.Transition) route.Route {
	if !t.Connected() {
		return route.Route{}
	}
	return route.Compute(route.Connector{
		Source:   t.Source.Rect,
		Target:   t.Target.Rect,
		SelfLoop: t.IsSelfLoop(),
		Offset:   t.ControlOffset,
		Label:    t.Label(),
	})
}

func (c *Controller) invalidateRoute(t *diagram.Transition) {
	delete(c.routes, t)
}

func (c *Controller) invalidateIncident(s *diagram.State) {
	for _, t := range c.diagram.Incident(s) {
		delete(c.routes, t)
	}
}

// --- selection ---

// Selection returns the currently selected entities.
func (c *Controller) Selection() []diagram.Entity { return c.selection }

// Select makes e the sole selection.
func (c *Controller) Select(e diagram.Entity) {
	c.selection = []diagram.Entity{e}
}

// SelectAll selects every entity in the diagram.
func (c *Controller) SelectAll() {
	c.selection = c.selection[:0]
	for _, s := range c.diagram.States() {
		c.selection = append(c.selection, s)
	}
	for _, t := range c.diagram.Transitions() {
		c.selection = append(c.selection, t)
	}
	for _, cm := range c.diagram.Comments() {
		c.selection = append(c.selection, cm)
	}
}

// ClearSelection deselects everything.
func (c *Controller) ClearSelection() { c.clearSelection() }

func (c *Controller) clearSelection() { c.selection = nil }

func (c *Controller) isSelected(e diagram.Entity) bool {
	for _, sel := range c.selection {
		if sel == e {
			return true
		}
	}
	return false
}

// HitTest returns the topmost entity under the point: states first, then
// comments, then transitions by their routed bounding region. Returns nil
// over empty canvas.
func (c *Controller) HitTest(p geom.Point) diagram.Entity {
	states := c.diagram.States()
	for i := len(states) - 1; i >= 0; i-- {
		if states[i].Rect.Contains(p.X, p.Y) {
			return states[i]
		}
	}
	comments := c.diagram.Comments()
	for i := len(comments) - 1; i >= 0; i-- {
		cm := comments[i]
		r := geom.Rect{X: cm.X, Y: cm.Y, Width: cm.Width, Height: commentHitHeight}
		if r.Contains(p.X, p.Y) {
			return cm
		}
	}
	transitions := c.diagram.Transitions()
	for i := len(transitions) - 1; i >= 0; i-- {
		t := transitions[i]
		if !t.Connected() {
			continue
		}
		if c.RouteFor(t).Bounds.Contains(p.X, p.Y) {
			return t
		}
	}
	return nil
}

// Comments wrap their text client-side; the model only fixes the width,
// so hit testing assumes a nominal line height.
const commentHitHeight = 40.0

// --- pointer events ---

// PointerDown handles a primary-button press. In the add modes it runs the
// corresponding creation flow; the returned error is a validation
// rejection surfaced to the caller before any command was constructed.
func (c *Controller) PointerDown(p geom.Point) error {
	switch c.mode {
	case ModeAddState:
		return c.addStateFlow(p)
	case ModeAddComment:
		c.addCommentFlow(p)
		return nil
	case ModeAddTransition:
		c.transitionClick(p)
		return nil
	default:
		c.selectPress(p)
		return nil
	}
}

// PointerMove handles pointer motion with the button held.
func (c *Controller) PointerMove(p geom.Point) {
	switch c.mode {
	case ModeAddTransition:
		if c.pendingSource != nil {
			c.previewEnd = p
		}
	case ModeSelect:
		if !c.dragging {
			return
		}
		delta := p.Sub(c.dragLast)
		c.dragLast = p
		for m := range c.dragStart {
			m.SetPos(m.Pos().Add(delta))
			if s, ok := m.(*diagram.State); ok {
				c.invalidateIncident(s)
			}
		}
	}
}

// PointerUp ends a select-mode drag: entities that actually moved are
// snapped to the grid and committed as a single MoveEntities command.
func (c *Controller) PointerUp(p geom.Point) {
	if c.mode != ModeSelect || !c.dragging {
		return
	}
	c.dragging = false

	var moves []Move
	for m, oldPos := range c.dragStart {
		pos := m.Pos()
		if c.snapToGrid {
			pos = snapPoint(pos)
			if pos != m.Pos() {
				m.SetPos(pos)
				if s, ok := m.(*diagram.State); ok {
					c.invalidateIncident(s)
				}
			}
		}
		if pos.Sub(oldPos).ManhattanLength() > moveEpsilon {
			moves = append(moves, Move{Entity: m, Old: oldPos, New: pos})
		}
	}
	c.dragStart = make(map[diagram.Movable]geom.Point)

	if len(moves) > 0 {
		c.push(newMoveEntities(c, moves))
	}
}

// PointerDoubleClick opens the property-entry flow for the entity under
// the pointer.
func (c *Controller) PointerDoubleClick(p geom.Point) error {
	if c.mode != ModeSelect {
		return nil
	}
	e := c.HitTest(p)
	if e == nil {
		return nil
	}
	c.Select(e)
	return c.EditEntityProperties(e)
}

// KeyPress handles an abstract keyboard gesture.
func (c *Controller) KeyPress(k Key) {
	switch k {
	case KeyDelete:
		c.DeleteSelection()
	case KeyEscape:
		switch {
		case c.mode == ModeAddTransition && c.pendingSource != nil:
			c.cancelTransitionGesture()
			c.mode = ModeSelect
		case c.mode != ModeSelect:
			c.SetMode(ModeSelect)
		default:
			c.clearSelection()
		}
	}
}

// PreviewLine returns the live add-transition preview segment while a
// source is armed.
func (c *Controller) PreviewLine() (geom.Segment, bool) {
	if c.pendingSource == nil {
		return geom.Segment{}, false
	}
	return geom.Segment{A: c.pendingSource.Rect.Center(), B: c.previewEnd}, true
}

// --- creation flows ---

func (c *Controller) addStateFlow(p geom.Point) error {
	pos := snapPoint(p)
	defaults := diagram.StateSnapshot{
		Name: c.nextStateName(),
		Rect: geom.Rect{
			X:      pos.X - diagram.DefaultStateWidth/2,
			Y:      pos.Y - diagram.DefaultStateHeight/2,
			Width:  diagram.DefaultStateWidth,
			Height: diagram.DefaultStateHeight,
		},
		Color: diagram.DefaultStateColor,
	}

	snap, ok := c.props.EditState(defaults, true)
	c.SetMode(ModeSelect)
	if !ok {
		return nil
	}
	if c.diagram.StateByName(snap.Name) != nil {
		return fmt.Errorf("create state %q: %w", snap.Name, ErrDuplicateName)
	}

	c.push(newAddEntity(c, diagram.NewState(snap)))
	slog.Info("added state", "name", snap.Name, "x", snap.X, "y", snap.Y)
	return nil
}

func (c *Controller) addCommentFlow(p geom.Point) {
	pos := snapPoint(p)
	defaults := diagram.CommentSnapshot{
		Text:  "Comment",
		X:     pos.X,
		Y:     pos.Y,
		Width: diagram.DefaultCommentWidth,
	}

	snap, ok := c.props.EditComment(defaults, true)
	c.SetMode(ModeSelect)
	if !ok || snap.Text == "" {
		return
	}

	c.push(newAddEntity(c, diagram.NewComment(snap)))
	slog.Info("added comment", "x", snap.X, "y", snap.Y)
}

func (c *Controller) transitionClick(p geom.Point) {
	target, _ := c.HitTest(p).(*diagram.State)

	if c.pendingSource == nil {
		if target == nil {
			return
		}
		c.pendingSource = target
		c.previewEnd = p
		slog.Info("transition started", "source", target.Name)
		return
	}

	if target == nil {
		// Clicking empty canvas abandons the half-finished gesture.
		c.cancelTransitionGesture()
		return
	}

	source := c.pendingSource
	defaults := diagram.TransitionSnapshot{
		Source: source.Name,
		Target: target.Name,
		Color:  diagram.DefaultTransitionColor,
	}
	snap, ok := c.props.EditTransition(defaults, true)
	c.cancelTransitionGesture()
	c.mode = ModeSelect
	if !ok {
		slog.Info("transition addition cancelled")
		return
	}

	t := diagram.NewTransition(source, target, snap)
	c.push(newAddEntity(c, t))
	slog.Info("added transition", "source", source.Name, "target", target.Name, "label", t.Label())
}

func (c *Controller) cancelTransitionGesture() {
	c.pendingSource = nil
	c.previewEnd = geom.Point{}
}

func (c *Controller) selectPress(p geom.Point) {
	e := c.HitTest(p)
	if e == nil {
		c.clearSelection()
		return
	}

	if !c.isSelected(e) {
		c.Select(e)
	}

	if _, ok := e.(diagram.Movable); !ok {
		return
	}

	c.dragging = true
	c.dragLast = p
	c.dragStart = make(map[diagram.Movable]geom.Point)
	for _, sel := range c.selection {
		if m, ok := sel.(diagram.Movable); ok {
			c.dragStart[m] = m.Pos()
		}
	}
}

// --- programmatic mutation ---
//
// Hosts that already hold confirmed snapshots (a collaboration server
// applying a remote client's operation, scripted imports) bypass the
// interactive flows and commit commands directly. The same validation
// applies.

// AddState inserts a state from a confirmed snapshot as one undoable
// command.
func (c *Controller) AddState(snap diagram.StateSnapshot) (*diagram.State, error) {
	if c.diagram.StateByName(snap.Name) != nil {
		return nil, fmt.Errorf("create state %q: %w", snap.Name, ErrDuplicateName)
	}
	s := diagram.NewState(snap)
	c.push(newAddEntity(c, s))
	return s, nil
}

// AddTransition inserts a transition from a confirmed snapshot, resolving
// both endpoints by name.
func (c *Controller) AddTransition(snap diagram.TransitionSnapshot) (*diagram.Transition, error) {
	source := c.diagram.StateByName(snap.Source)
	target := c.diagram.StateByName(snap.Target)
	if source == nil || target == nil {
		return nil, fmt.Errorf("link transition %q -> %q: %w", snap.Source, snap.Target, ErrUnknownState)
	}
	t := diagram.NewTransition(source, target, snap)
	c.push(newAddEntity(c, t))
	return t, nil
}

// AddComment inserts a comment from a confirmed snapshot.
func (c *Controller) AddComment(snap diagram.CommentSnapshot) *diagram.Comment {
	cm := diagram.NewComment(snap)
	c.push(newAddEntity(c, cm))
	return cm
}

// ApplySnapshot commits a full property change for an entity as one
// undoable command. A snapshot equal to the current one is a no-op; a
// state rename to a taken name is rejected before any command exists.
func (c *Controller) ApplySnapshot(e diagram.Entity, snap any) error {
	switch v := e.(type) {
	case *diagram.State:
		newSnap, ok := snap.(diagram.StateSnapshot)
		if !ok {
			return fmt.Errorf("state %q: snapshot type mismatch", v.Name)
		}
		oldSnap := v.Snapshot()
		if newSnap == oldSnap {
			return nil
		}
		if newSnap.Name != oldSnap.Name && c.diagram.StateByName(newSnap.Name) != nil {
			return fmt.Errorf("rename state %q to %q: %w", oldSnap.Name, newSnap.Name, ErrDuplicateName)
		}
		c.push(newEditProperties(c, v, oldSnap, newSnap))
	case *diagram.Transition:
		newSnap, ok := snap.(diagram.TransitionSnapshot)
		if !ok {
			return fmt.Errorf("transition %q: snapshot type mismatch", v.Label())
		}
		oldSnap := v.Snapshot()
		if newSnap == oldSnap {
			return nil
		}
		c.push(newEditProperties(c, v, oldSnap, newSnap))
	case *diagram.Comment:
		newSnap, ok := snap.(diagram.CommentSnapshot)
		if !ok {
			return fmt.Errorf("comment: snapshot type mismatch")
		}
		oldSnap := v.Snapshot()
		if newSnap == oldSnap {
			return nil
		}
		c.push(newEditProperties(c, v, oldSnap, newSnap))
	default:
		return fmt.Errorf("unknown entity kind")
	}
	return nil
}

// ApplyMoves repositions entities as one undoable command. Moves below
// the drag epsilon are filtered out; an all-epsilon batch commits
// nothing.
func (c *Controller) ApplyMoves(moves []Move) {
	kept := moves[:0]
	for _, m := range moves {
		if m.New.Sub(m.Old).ManhattanLength() > moveEpsilon {
			kept = append(kept, m)
		}
	}
	if len(kept) == 0 {
		return
	}
	c.push(newMoveEntities(c, kept))
}

// DeleteEntities removes the given entities plus every transition
// incident to a removed state, as one undoable command.
func (c *Controller) DeleteEntities(entities []diagram.Entity) {
	if len(entities) == 0 {
		return
	}
	c.push(newRemoveEntities(c, entities))
}

// --- edit and delete ---

// EditEntityProperties runs the property-entry flow for an existing
// entity and commits the change as one EditProperties command. A no-op
// confirmation pushes nothing; renaming a state to a taken name is
// rejected before any command exists.
func (c *Controller) EditEntityProperties(e diagram.Entity) error {
	switch v := e.(type) {
	case *diagram.State:
		oldSnap := v.Snapshot()
		newSnap, ok := c.props.EditState(oldSnap, false)
		if !ok || newSnap == oldSnap {
			return nil
		}
		if newSnap.Name != oldSnap.Name && c.diagram.StateByName(newSnap.Name) != nil {
			return fmt.Errorf("rename state %q to %q: %w", oldSnap.Name, newSnap.Name, ErrDuplicateName)
		}
		c.push(newEditProperties(c, v, oldSnap, newSnap))
	case *diagram.Transition:
		oldSnap := v.Snapshot()
		newSnap, ok := c.props.EditTransition(oldSnap, false)
		if !ok || newSnap == oldSnap {
			return nil
		}
		c.push(newEditProperties(c, v, oldSnap, newSnap))
	case *diagram.Comment:
		oldSnap := v.Snapshot()
		newSnap, ok := c.props.EditComment(oldSnap, false)
		if !ok || newSnap == oldSnap {
			return nil
		}
		c.push(newEditProperties(c, v, oldSnap, newSnap))
	}
	return nil
}

// DeleteSelection removes the selected entities plus every transition
// incident to a selected state, as one reversible command. Selection is
// always cleared afterward.
func (c *Controller) DeleteSelection() {
	if len(c.selection) == 0 {
		return
	}
	cmd := newRemoveEntities(c, c.selection)
	c.push(cmd)
	slog.Info("deleted entities", "count", len(cmd.instances))
	c.clearSelection()
}

// --- lifecycle ---

// NewDiagram discards everything: entities, history, selection, dirty
// state.
func (c *Controller) NewDiagram() {
	c.diagram.Clear()
	c.reset()
}

// Export returns a read-only snapshot of the whole diagram.
func (c *Controller) Export() diagram.Document {
	return c.diagram.Export()
}

// Import replaces all entities with the document's contents. States load
// first so transitions can resolve endpoints by name; a transition naming
// a missing or duplicate-skipped state is dropped with a warning. History
// and the dirty flag are reset.
func (c *Controller) Import(doc diagram.Document) {
	c.diagram.Clear()

	byName := make(map[string]*diagram.State, len(doc.States))
	for _, snap := range doc.States {
		if _, taken := byName[snap.Name]; taken {
			slog.Warn("skipping duplicate state on import", "name", snap.Name)
			continue
		}
		s := diagram.NewState(snap)
		c.diagram.Add(s)
		byName[snap.Name] = s
	}

	for _, snap := range doc.Transitions {
		source := byName[snap.Source]
		target := byName[snap.Target]
		if source == nil || target == nil {
			slog.Warn("could not link transition on import",
				"label", snap.Label(),
				"source", snap.Source,
				"target", snap.Target)
			continue
		}
		c.diagram.Add(diagram.NewTransition(source, target, snap))
	}

	for _, snap := range doc.Comments {
		c.diagram.Add(diagram.NewComment(snap))
	}

	c.reset()
}

func (c *Controller) reset() {
	c.stack.Clear()
	c.routes = make(map[*diagram.Transition]route.Route)
	c.clearSelection()
	c.cancelTransitionGesture()
	c.dragging = false
	c.dragStart = make(map[diagram.Movable]geom.Point)
	c.mode = ModeSelect
	c.setDirty(false)
	c.notifyChange()
}

// --- helpers ---

func (c *Controller) nextStateName() string {
	for i := 1; ; i++ {
		name := fmt.Sprintf("State%d", i)
		if c.diagram.StateByName(name) == nil {
			return name
		}
	}
}

func snapPoint(p geom.Point) geom.Point {
	return geom.Point{
		X: math.Round(p.X/GridSize) * GridSize,
		Y: math.Round(p.Y/GridSize) * GridSize,
	}
}
