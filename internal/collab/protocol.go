package collab

import (
	"encoding/json"

	"github.com/fsmforge/fsmforge/backend-go/internal/diagram"
	"github.com/fsmforge/fsmforge/backend-go/internal/geom"
)

type Message struct {
	Type      string          `json:"type"`
	DiagramID string          `json:"diagramId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	Seq       int64           `json:"seq,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

const (
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
	TypeError          = "error"

	// Connection
	TypeWelcome = "welcome"

	// Document sync
	TypeDocSync = "doc.sync"

	// Operation message types
	TypeOpSubmit    = "op.submit"
	TypeOpAck       = "op.ack"
	TypeOpNack      = "op.nack"
	TypeOpBroadcast = "op.broadcast"
)

// --- presence ---

type PresencePayload struct {
	Cursor      *geom.Point `json:"cursor,omitempty"`
	Selection   []string    `json:"selection,omitempty"`
	UserID      string      `json:"userId,omitempty"`
	DisplayName string      `json:"displayName,omitempty"`
}

// PresenceStatePayload maps clientID to that client's presence.
type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	UserID string `json:"userId"`
}

// --- operations ---

// Operation types accepted by a room. Interaction modes, gestures, and
// property dialogs are client-side; by the time an operation reaches the
// server its snapshot is already confirmed.
const (
	OpAddState       = "state.add"
	OpAddTransition  = "transition.add"
	OpAddComment     = "comment.add"
	OpEditEntity     = "entity.edit"
	OpMoveEntities   = "entity.move"
	OpDeleteEntities = "entity.delete"
	OpUndo           = "edit.undo"
	OpRedo           = "edit.redo"
	OpReplaceDoc     = "doc.replace"
)

// MovePayload is one entity's drop position within an entity.move batch.
type MovePayload struct {
	EntityID string  `json:"entityId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// Operation is one confirmed document mutation. Exactly one payload field
// is set, matching Type.
type Operation struct {
	ID   string `json:"id"` // client-assigned, echoed in ack/nack
	Type string `json:"type"`

	EntityID   string                       `json:"entityId,omitempty"`
	EntityIDs  []string                     `json:"entityIds,omitempty"`
	State      *diagram.StateSnapshot       `json:"state,omitempty"`
	Transition *diagram.TransitionSnapshot  `json:"transition,omitempty"`
	Comment    *diagram.CommentSnapshot     `json:"comment,omitempty"`
	Moves      []MovePayload                `json:"moves,omitempty"`
	Document   *diagram.Document            `json:"document,omitempty"`
}

// OperationSubmitPayload is the payload for op.submit messages.
type OperationSubmitPayload struct {
	Operation Operation `json:"operation"`
}

// OperationAckPayload is the payload for op.ack messages.
type OperationAckPayload struct {
	OperationID string `json:"operationId"`
	ServerSeq   int64  `json:"serverSeq"`
}

// OperationNackPayload is the payload for op.nack messages.
type OperationNackPayload struct {
	OperationID string `json:"operationId"`
	Reason      string `json:"reason"`
}

// OperationBroadcastPayload is the payload for op.broadcast messages.
type OperationBroadcastPayload struct {
	Operation Operation `json:"operation"`
	UserID    string    `json:"userId"`
	ServerSeq int64     `json:"serverSeq"`
}

// DocSyncPayload carries the authoritative document to a joining client.
type DocSyncPayload struct {
	Document  diagram.Document `json:"document"`
	ServerSeq int64            `json:"serverSeq"`
}

// WelcomePayload identifies the session to a newly connected client.
type WelcomePayload struct {
	ClientID  string `json:"clientId"`
	UserID    string `json:"userId"`
	DiagramID string `json:"diagramId"`
}
