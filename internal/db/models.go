package db

import (
	"encoding/json"

	"github.com/jackc/pgx/v5/pgtype"
)

type DiagramRole string

const (
	DiagramRoleOwner  DiagramRole = "owner"
	DiagramRoleEditor DiagramRole = "editor"
)

type User struct {
	ID          string
	Email       string
	Password    string
	DisplayName string
	CreatedAt   pgtype.Timestamptz
}

type DiagramRecord struct {
	ID        string
	Name      string
	OwnerID   string
	CreatedAt pgtype.Timestamptz
	UpdatedAt pgtype.Timestamptz
}

type DiagramMember struct {
	DiagramID string
	UserID    string
	Role      DiagramRole
	CreatedAt pgtype.Timestamptz
}

type DiagramMemberRow struct {
	UserID      string
	Role        DiagramRole
	DisplayName string
	Email       string
}

type Snapshot struct {
	ID        string
	DiagramID string
	Version   int32
	Document  json.RawMessage
	CreatedAt pgtype.Timestamptz
}
