package editor

// Mode is the controller's interaction mode. Every pointer and keyboard
// handler branches on it.
type Mode int

const (
	ModeSelect Mode = iota
	ModeAddState
	ModeAddTransition
	ModeAddComment
)

// String returns the mode name for display and logging.
func (m Mode) String() string {
	switch m {
	case ModeSelect:
		return "select"
	case ModeAddState:
		return "add-state"
	case ModeAddTransition:
		return "add-transition"
	case ModeAddComment:
		return "add-comment"
	default:
		return "unknown"
	}
}

// Key is an abstract keyboard gesture. Device bindings are the host's
// concern.
type Key int

const (
	KeyEscape Key = iota
	KeyDelete
)
