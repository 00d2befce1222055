package typeid

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixUser       = "user"
	PrefixDiagram    = "diag"
	PrefixSnapshot   = "snap"
	PrefixSession    = "sess"
	PrefixState      = "state"
	PrefixTransition = "trans"
	PrefixComment    = "note"
)

func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewUserID() string       { return New(PrefixUser) }
func NewDiagramID() string    { return New(PrefixDiagram) }
func NewSnapshotID() string   { return New(PrefixSnapshot) }
func NewSessionID() string    { return New(PrefixSession) }
func NewStateID() string      { return New(PrefixState) }
func NewTransitionID() string { return New(PrefixTransition) }
func NewCommentID() string    { return New(PrefixComment) }

func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("expected prefix %q but got %q in id %q", expectedPrefix, parsed.Prefix(), id)
	}
	return nil
}
