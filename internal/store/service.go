package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fsmforge/fsmforge/backend-go/internal/db"
	"github.com/fsmforge/fsmforge/backend-go/internal/diagram"
	"github.com/fsmforge/fsmforge/backend-go/internal/typeid"
)

var (
	ErrNotFound  = errors.New("diagram not found")
	ErrForbidden = errors.New("forbidden")
	ErrNotMember = errors.New("not a diagram member")
)

type Service struct {
	queries *db.Queries
}

func NewService(queries *db.Queries) *Service {
	return &Service{queries: queries}
}

type Diagram struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OwnerID   string `json:"ownerId"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type Member struct {
	UserID      string `json:"userId"`
	Role        string `json:"role"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

func (s *Service) Create(ctx context.Context, name, ownerID string) (*Diagram, error) {
	diagramID := typeid.NewDiagramID()

	rec, err := s.queries.CreateDiagram(ctx, db.CreateDiagramParams{
		ID:      diagramID,
		Name:    name,
		OwnerID: ownerID,
	})
	if err != nil {
		return nil, fmt.Errorf("create diagram: %w", err)
	}

	// Add owner as member
	err = s.queries.AddDiagramMember(ctx, db.AddDiagramMemberParams{
		DiagramID: diagramID,
		UserID:    ownerID,
		Role:      db.DiagramRoleOwner,
	})
	if err != nil {
		return nil, fmt.Errorf("add owner as member: %w", err)
	}

	// Seed version 1 with an empty document
	docJSON, err := json.Marshal(diagram.Document{
		States:      []diagram.StateSnapshot{},
		Transitions: []diagram.TransitionSnapshot{},
		Comments:    []diagram.CommentSnapshot{},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal empty document: %w", err)
	}

	_, err = s.queries.CreateSnapshot(ctx, db.CreateSnapshotParams{
		ID:        typeid.NewSnapshotID(),
		DiagramID: diagramID,
		Version:   1,
		Document:  docJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("create initial snapshot: %w", err)
	}

	return recordToDiagram(rec), nil
}

func (s *Service) Get(ctx context.Context, diagramID, userID string) (*Diagram, error) {
	if err := s.checkMembership(ctx, diagramID, userID); err != nil {
		return nil, err
	}

	rec, err := s.queries.GetDiagram(ctx, diagramID)
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get diagram: %w", err)
	}

	return recordToDiagram(rec), nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Diagram, error) {
	recs, err := s.queries.ListDiagramsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list diagrams: %w", err)
	}

	diagrams := make([]Diagram, len(recs))
	for i, rec := range recs {
		diagrams[i] = *recordToDiagram(rec)
	}

	return diagrams, nil
}

func (s *Service) Rename(ctx context.Context, diagramID, userID, name string) error {
	if err := s.checkOwner(ctx, diagramID, userID); err != nil {
		return err
	}
	return s.queries.RenameDiagram(ctx, diagramID, name)
}

func (s *Service) Delete(ctx context.Context, diagramID, userID string) error {
	if err := s.checkOwner(ctx, diagramID, userID); err != nil {
		return err
	}
	return s.queries.DeleteDiagram(ctx, diagramID)
}

func (s *Service) InviteByEmail(ctx context.Context, diagramID, ownerID, inviteeEmail string) error {
	if err := s.checkOwner(ctx, diagramID, ownerID); err != nil {
		return err
	}

	invitee, err := s.queries.GetUserByEmail(ctx, inviteeEmail)
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return errors.New("user not found")
		}
		return fmt.Errorf("find user: %w", err)
	}

	return s.queries.AddDiagramMember(ctx, db.AddDiagramMemberParams{
		DiagramID: diagramID,
		UserID:    invitee.ID,
		Role:      db.DiagramRoleEditor,
	})
}

func (s *Service) ListMembers(ctx context.Context, diagramID, userID string) ([]Member, error) {
	if err := s.checkMembership(ctx, diagramID, userID); err != nil {
		return nil, err
	}

	rows, err := s.queries.ListDiagramMembers(ctx, diagramID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	members := make([]Member, len(rows))
	for i, m := range rows {
		members[i] = Member{
			UserID:      m.UserID,
			Role:        string(m.Role),
			DisplayName: m.DisplayName,
			Email:       m.Email,
		}
	}

	return members, nil
}

func (s *Service) RemoveMember(ctx context.Context, diagramID, ownerID, targetUserID string) error {
	if err := s.checkOwner(ctx, diagramID, ownerID); err != nil {
		return err
	}

	if targetUserID == ownerID {
		return errors.New("cannot remove diagram owner")
	}

	return s.queries.RemoveDiagramMember(ctx, db.RemoveDiagramMemberParams{
		DiagramID: diagramID,
		UserID:    targetUserID,
	})
}

// LatestDocument returns the newest saved document for a diagram.
func (s *Service) LatestDocument(ctx context.Context, diagramID, userID string) (json.RawMessage, error) {
	if err := s.checkMembership(ctx, diagramID, userID); err != nil {
		return nil, err
	}

	snap, err := s.queries.GetLatestSnapshot(ctx, diagramID)
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	return snap.Document, nil
}

// DocumentVersion returns one historical version of a diagram's document.
func (s *Service) DocumentVersion(ctx context.Context, diagramID, userID string, version int32) (json.RawMessage, error) {
	if err := s.checkMembership(ctx, diagramID, userID); err != nil {
		return nil, err
	}

	snap, err := s.queries.GetSnapshotVersion(ctx, diagramID, version)
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot version: %w", err)
	}

	return snap.Document, nil
}

// ListVersions returns the saved version numbers, newest first.
func (s *Service) ListVersions(ctx context.Context, diagramID, userID string) ([]int32, error) {
	if err := s.checkMembership(ctx, diagramID, userID); err != nil {
		return nil, err
	}

	versions, err := s.queries.ListSnapshotVersions(ctx, diagramID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return versions, nil
}

// SaveDocument writes doc as the next version of the diagram. It is also
// the collaboration hub's autosave sink.
func (s *Service) SaveDocument(ctx context.Context, diagramID string, doc *diagram.Document) error {
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	nextVersion := int32(1)
	if current, err := s.queries.GetLatestSnapshot(ctx, diagramID); err == nil {
		nextVersion = current.Version + 1
	}

	_, err = s.queries.CreateSnapshot(ctx, db.CreateSnapshotParams{
		ID:        typeid.NewSnapshotID(),
		DiagramID: diagramID,
		Version:   nextVersion,
		Document:  docJSON,
	})
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	return nil
}

// LoadDocument reads the newest document without a membership check, for
// trusted internal callers like the collaboration hub.
func (s *Service) LoadDocument(ctx context.Context, diagramID string) (*diagram.Document, error) {
	snap, err := s.queries.GetLatestSnapshot(ctx, diagramID)
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	var doc diagram.Document
	if err := json.Unmarshal(snap.Document, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return &doc, nil
}

// IsMember reports whether the user belongs to the diagram.
func (s *Service) IsMember(ctx context.Context, diagramID, userID string) bool {
	return s.checkMembership(ctx, diagramID, userID) == nil
}

func (s *Service) checkMembership(ctx context.Context, diagramID, userID string) error {
	_, err := s.queries.GetDiagramMember(ctx, db.GetDiagramMemberParams{
		DiagramID: diagramID,
		UserID:    userID,
	})
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return ErrNotMember
		}
		return fmt.Errorf("check membership: %w", err)
	}
	return nil
}

func (s *Service) checkOwner(ctx context.Context, diagramID, userID string) error {
	rec, err := s.queries.GetDiagram(ctx, diagramID)
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("get diagram: %w", err)
	}
	if rec.OwnerID != userID {
		return ErrForbidden
	}
	return nil
}

func recordToDiagram(rec db.DiagramRecord) *Diagram {
	return &Diagram{
		ID:        rec.ID,
		Name:      rec.Name,
		OwnerID:   rec.OwnerID,
		CreatedAt: rec.CreatedAt.Time.Format("2006-01-02T15:04:05Z"),
		UpdatedAt: rec.UpdatedAt.Time.Format("2006-01-02T15:04:05Z"),
	}
}
