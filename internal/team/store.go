package team

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when a team member does not exist.
	ErrNotFound = errors.New("team: member not found")
	// ErrDuplicateEmail is returned when the email is already on the
	// supplier's team.
	ErrDuplicateEmail = errors.New("team: email already invited")
)

// Member statuses.
const (
	StatusInvited = "invited"
	StatusActive  = "active"
)

// Member is one person on a supplier's team.
type Member struct {
	ID         string    `json:"id"`
	SupplierID string    `json:"-"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	Status     string    `json:"status"`
	InvitedAt  time.Time `json:"invitedAt"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Store persists team members.
type Store interface {
	Insert(ctx context.Context, m Member) (Member, error)
	List(ctx context.Context, supplierID string) ([]Member, error)
	GetByID(ctx context.Context, supplierID, id string) (Member, error)
	SetStatus(ctx context.Context, supplierID, id, status string) error
	Delete(ctx context.Context, supplierID, id string) error
}

// PGStore implements Store on a pgx pool.
type PGStore struct {
	Pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{Pool: pool}
}

func (s *PGStore) Insert(ctx context.Context, m Member) (Member, error) {
	const q = `
		INSERT INTO team_members (supplier_id, name, email, role, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, invited_at, created_at`
	err := s.Pool.QueryRow(ctx, q, m.SupplierID, m.Name, m.Email, m.Role, m.Status).
		Scan(&m.ID, &m.InvitedAt, &m.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Member{}, ErrDuplicateEmail
		}
		return Member{}, err
	}
	return m, nil
}

func (s *PGStore) List(ctx context.Context, supplierID string) ([]Member, error) {
	const q = `
		SELECT id, supplier_id, name, email, role, status, invited_at, created_at
		FROM team_members WHERE supplier_id = $1 ORDER BY created_at`
	rows, err := s.Pool.Query(ctx, q, supplierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.SupplierID, &m.Name, &m.Email, &m.Role, &m.Status, &m.InvitedAt, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PGStore) GetByID(ctx context.Context, supplierID, id string) (Member, error) {
	const q = `
		SELECT id, supplier_id, name, email, role, status, invited_at, created_at
		FROM team_members WHERE supplier_id = $1 AND id = $2`
	var m Member
	err := s.Pool.QueryRow(ctx, q, supplierID, id).Scan(
		&m.ID, &m.SupplierID, &m.Name, &m.Email, &m.Role, &m.Status, &m.InvitedAt, &m.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Member{}, ErrNotFound
	}
	return m, err
}

func (s *PGStore) SetStatus(ctx context.Context, supplierID, id, status string) error {
	tag, err := s.Pool.Exec(ctx,
		`UPDATE team_members SET status = $3 WHERE supplier_id = $1 AND id = $2`,
		supplierID, id, status,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) Delete(ctx context.Context, supplierID, id string) error {
	tag, err := s.Pool.Exec(ctx,
		`DELETE FROM team_members WHERE supplier_id = $1 AND id = $2`, supplierID, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
