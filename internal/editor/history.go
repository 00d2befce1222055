package editor

// Command is a reversible unit of mutation. Apply and Revert must be safe
// under any alternation a LIFO undo stack can produce, but are never
// called twice in a row in the same direction.
type Command interface {
	Name() string
	Apply()
	Revert()
}

// Stack is a strict-LIFO undo stack. Pushing applies the command and
// discards any redoable tail.
type Stack struct {
	done   []Command
	undone []Command
}

// NewStack creates an empty undo stack.
func NewStack() *Stack {
	return &Stack{}
}

// Push applies the command and records it. Anything previously undone is
// no longer reachable.
func (s *Stack) Push(c Command) {
	c.Apply()
	s.done = append(s.done, c)
	s.undone = s.undone[:0]
}

// CanUndo reports whether there is a command to revert.
func (s *Stack) CanUndo() bool { return len(s.done) > 0 }

// CanRedo reports whether there is a reverted command to reapply.
func (s *Stack) CanRedo() bool { return len(s.undone) > 0 }

// Undo reverts the most recent command. Returns false on an empty stack.
func (s *Stack) Undo() bool {
	if !s.CanUndo() {
		return false
	}
	c := s.done[len(s.done)-1]
	s.done = s.done[:len(s.done)-1]
	c.Revert()
	s.undone = append(s.undone, c)
	return true
}

// Redo reapplies the most recently reverted command. Returns false when
// there is nothing to redo.
func (s *Stack) Redo() bool {
	if !s.CanRedo() {
		return false
	}
	c := s.undone[len(s.undone)-1]
	s.undone = s.undone[:len(s.undone)-1]
	c.Apply()
	s.done = append(s.done, c)
	return true
}

// Len returns the number of undoable commands.
func (s *Stack) Len() int { return len(s.done) }

// Clear drops all history.
func (s *Stack) Clear() {
	s.done = nil
	s.undone = nil
}
