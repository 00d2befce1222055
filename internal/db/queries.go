package db

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Queries wraps the connection pool with one method per statement.
type Queries struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}

// --- users ---

type CreateUserParams struct {
	ID          string
	Email       string
	Password    string
	DisplayName string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, password, display_name)
		VALUES ($1, $2, $3, $4)
		RETURNING id, email, password, display_name, created_at`,
		arg.ID, arg.Email, arg.Password, arg.DisplayName)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &u.CreatedAt)
	return u, err
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.pool.QueryRow(ctx, `
		SELECT id, email, password, display_name, created_at
		FROM users WHERE email = $1`, email)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &u.CreatedAt)
	return u, err
}

func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	row := q.pool.QueryRow(ctx, `
		SELECT id, email, password, display_name, created_at
		FROM users WHERE id = $1`, id)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &u.CreatedAt)
	return u, err
}

// --- diagrams ---

type CreateDiagramParams struct {
	ID      string
	Name    string
	OwnerID string
}

func (q *Queries) CreateDiagram(ctx context.Context, arg CreateDiagramParams) (DiagramRecord, error) {
	row := q.pool.QueryRow(ctx, `
		INSERT INTO diagrams (id, name, owner_id)
		VALUES ($1, $2, $3)
		RETURNING id, name, owner_id, created_at, updated_at`,
		arg.ID, arg.Name, arg.OwnerID)
	var d DiagramRecord
	err := row.Scan(&d.ID, &d.Name, &d.OwnerID, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func (q *Queries) GetDiagram(ctx context.Context, id string) (DiagramRecord, error) {
	row := q.pool.QueryRow(ctx, `
		SELECT id, name, owner_id, created_at, updated_at
		FROM diagrams WHERE id = $1`, id)
	var d DiagramRecord
	err := row.Scan(&d.ID, &d.Name, &d.OwnerID, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func (q *Queries) ListDiagramsForUser(ctx context.Context, userID string) ([]DiagramRecord, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT d.id, d.name, d.owner_id, d.created_at, d.updated_at
		FROM diagrams d
		JOIN diagram_members m ON m.diagram_id = d.id
		WHERE m.user_id = $1
		ORDER BY d.updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DiagramRecord
	for rows.Next() {
		var d DiagramRecord
		if err := rows.Scan(&d.ID, &d.Name, &d.OwnerID, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (q *Queries) RenameDiagram(ctx context.Context, id, name string) error {
	_, err := q.pool.Exec(ctx, `
		UPDATE diagrams SET name = $2, updated_at = now() WHERE id = $1`, id, name)
	return err
}

func (q *Queries) DeleteDiagram(ctx context.Context, id string) error {
	_, err := q.pool.Exec(ctx, `DELETE FROM diagrams WHERE id = $1`, id)
	return err
}

// --- members ---

type AddDiagramMemberParams struct {
	DiagramID string
	UserID    string
	Role      DiagramRole
}

func (q *Queries) AddDiagramMember(ctx context.Context, arg AddDiagramMemberParams) error {
	_, err := q.pool.Exec(ctx, `
		INSERT INTO diagram_members (diagram_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (diagram_id, user_id) DO NOTHING`,
		arg.DiagramID, arg.UserID, arg.Role)
	return err
}

type GetDiagramMemberParams struct {
	DiagramID string
	UserID    string
}

func (q *Queries) GetDiagramMember(ctx context.Context, arg GetDiagramMemberParams) (DiagramMember, error) {
	row := q.pool.QueryRow(ctx, `
		SELECT diagram_id, user_id, role, created_at
		FROM diagram_members
		WHERE diagram_id = $1 AND user_id = $2`,
		arg.DiagramID, arg.UserID)
	var m DiagramMember
	err := row.Scan(&m.DiagramID, &m.UserID, &m.Role, &m.CreatedAt)
	return m, err
}

func (q *Queries) ListDiagramMembers(ctx context.Context, diagramID string) ([]DiagramMemberRow, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT m.user_id, m.role, u.display_name, u.email
		FROM diagram_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.diagram_id = $1
		ORDER BY m.created_at`, diagramID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DiagramMemberRow
	for rows.Next() {
		var m DiagramMemberRow
		if err := rows.Scan(&m.UserID, &m.Role, &m.DisplayName, &m.Email); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type RemoveDiagramMemberParams struct {
	DiagramID string
	UserID    string
}

func (q *Queries) RemoveDiagramMember(ctx context.Context, arg RemoveDiagramMemberParams) error {
	_, err := q.pool.Exec(ctx, `
		DELETE FROM diagram_members WHERE diagram_id = $1 AND user_id = $2`,
		arg.DiagramID, arg.UserID)
	return err
}

// --- snapshots ---

type CreateSnapshotParams struct {
	ID        string
	DiagramID string
	Version   int32
	Document  json.RawMessage
}

func (q *Queries) CreateSnapshot(ctx context.Context, arg CreateSnapshotParams) (Snapshot, error) {
	row := q.pool.QueryRow(ctx, `
		INSERT INTO snapshots (id, diagram_id, version, document)
		VALUES ($1, $2, $3, $4)
		RETURNING id, diagram_id, version, document, created_at`,
		arg.ID, arg.DiagramID, arg.Version, arg.Document)
	var s Snapshot
	err := row.Scan(&s.ID, &s.DiagramID, &s.Version, &s.Document, &s.CreatedAt)
	return s, err
}

func (q *Queries) GetLatestSnapshot(ctx context.Context, diagramID string) (Snapshot, error) {
	row := q.pool.QueryRow(ctx, `
		SELECT id, diagram_id, version, document, created_at
		FROM snapshots
		WHERE diagram_id = $1
		ORDER BY version DESC
		LIMIT 1`, diagramID)
	var s Snapshot
	err := row.Scan(&s.ID, &s.DiagramID, &s.Version, &s.Document, &s.CreatedAt)
	return s, err
}

func (q *Queries) GetSnapshotVersion(ctx context.Context, diagramID string, version int32) (Snapshot, error) {
	row := q.pool.QueryRow(ctx, `
		SELECT id, diagram_id, version, document, created_at
		FROM snapshots
		WHERE diagram_id = $1 AND version = $2`, diagramID, version)
	var s Snapshot
	err := row.Scan(&s.ID, &s.DiagramID, &s.Version, &s.Document, &s.CreatedAt)
	return s, err
}

func (q *Queries) ListSnapshotVersions(ctx context.Context, diagramID string) ([]int32, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT version FROM snapshots
		WHERE diagram_id = $1
		ORDER BY version DESC`, diagramID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int32
	for rows.Next() {
		var v int32
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ErrNoRows re-exports the pgx sentinel so callers don't import pgx just
// to test for it.
var ErrNoRows = pgx.ErrNoRows
