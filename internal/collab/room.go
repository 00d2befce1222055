package collab

import (
	"fmt"
	"sync"

	"github.com/fsmforge/fsmforge/backend-go/internal/diagram"
	"github.com/fsmforge/fsmforge/backend-go/internal/editor"
	"github.com/fsmforge/fsmforge/backend-go/internal/geom"
)

// Room holds the authoritative editor session for one diagram. Every
// connected client's operations funnel through the same controller, so
// the room's undo stack is the shared session history.
type Room struct {
	diagramID string
	clients   map[string]*Client // clientID -> client
	presence  *PresenceManager

	mu        sync.Mutex
	ctrl      *editor.Controller
	serverSeq int64
	dirty     bool
}

// NewRoom creates a room and loads doc into its controller. doc may be
// nil for a fresh diagram.
func NewRoom(diagramID string, doc *diagram.Document) *Room {
	r := &Room{
		diagramID: diagramID,
		clients:   make(map[string]*Client),
		presence:  NewPresenceManager(),
		ctrl:      editor.New(nil),
	}
	if doc != nil {
		r.ctrl.Import(*doc)
	}
	return r
}

// Apply validates and commits one operation, returning the new server
// sequence. A rejected operation mutates nothing.
func (r *Room) Apply(op Operation) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.apply(op); err != nil {
		return 0, err
	}

	r.serverSeq++
	r.dirty = true
	return r.serverSeq, nil
}

func (r *Room) apply(op Operation) error {
	switch op.Type {
	case OpAddState:
		if op.State == nil {
			return fmt.Errorf("state.add: missing state payload")
		}
		_, err := r.ctrl.AddState(*op.State)
		return err

	case OpAddTransition:
		if op.Transition == nil {
			return fmt.Errorf("transition.add: missing transition payload")
		}
		_, err := r.ctrl.AddTransition(*op.Transition)
		return err

	case OpAddComment:
		if op.Comment == nil {
			return fmt.Errorf("comment.add: missing comment payload")
		}
		r.ctrl.AddComment(*op.Comment)
		return nil

	case OpEditEntity:
		e := r.ctrl.Diagram().ByID(op.EntityID)
		if e == nil {
			return fmt.Errorf("entity.edit: entity not found: %s", op.EntityID)
		}
		switch {
		case op.State != nil:
			return r.ctrl.ApplySnapshot(e, *op.State)
		case op.Transition != nil:
			return r.ctrl.ApplySnapshot(e, *op.Transition)
		case op.Comment != nil:
			return r.ctrl.ApplySnapshot(e, *op.Comment)
		default:
			return fmt.Errorf("entity.edit: missing snapshot payload")
		}

	case OpMoveEntities:
		moves := make([]editor.Move, 0, len(op.Moves))
		for _, m := range op.Moves {
			e := r.ctrl.Diagram().ByID(m.EntityID)
			if e == nil {
				return fmt.Errorf("entity.move: entity not found: %s", m.EntityID)
			}
			mv, ok := e.(diagram.Movable)
			if !ok {
				return fmt.Errorf("entity.move: entity not movable: %s", m.EntityID)
			}
			moves = append(moves, editor.Move{
				Entity: mv,
				Old:    mv.Pos(),
				New:    geom.Point{X: m.X, Y: m.Y},
			})
		}
		r.ctrl.ApplyMoves(moves)
		return nil

	case OpDeleteEntities:
		entities := make([]diagram.Entity, 0, len(op.EntityIDs))
		for _, id := range op.EntityIDs {
			e := r.ctrl.Diagram().ByID(id)
			if e == nil {
				return fmt.Errorf("entity.delete: entity not found: %s", id)
			}
			entities = append(entities, e)
		}
		r.ctrl.DeleteEntities(entities)
		return nil

	case OpUndo:
		if !r.ctrl.Undo() {
			return fmt.Errorf("nothing to undo")
		}
		return nil

	case OpRedo:
		if !r.ctrl.Redo() {
			return fmt.Errorf("nothing to redo")
		}
		return nil

	case OpReplaceDoc:
		if op.Document == nil {
			return fmt.Errorf("doc.replace: missing document payload")
		}
		r.ctrl.Import(*op.Document)
		return nil

	default:
		return fmt.Errorf("unknown operation type: %s", op.Type)
	}
}

// Document exports the room's current authoritative document.
func (r *Room) Document() diagram.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ctrl.Export()
}

// ServerSeq returns the last committed sequence number.
func (r *Room) ServerSeq() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.serverSeq
}

// TakeDirty reports and clears the unsaved-changes flag, handing the
// caller a snapshot to persist when it was set.
func (r *Room) TakeDirty() (diagram.Document, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.dirty {
		return diagram.Document{}, false
	}
	r.dirty = false
	return r.ctrl.Export(), true
}
