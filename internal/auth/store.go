package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a supplier or session row does not exist.
var ErrNotFound = errors.New("auth: not found")

// ErrDuplicateEmail is returned when a supplier email is already registered.
var ErrDuplicateEmail = errors.New("auth: email already registered")

// Supplier is an account that owns a tenant of the back office.
type Supplier struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session is a persisted refresh token. Only the SHA-256 hash of the
// token is stored.
type Session struct {
	ID         string
	SupplierID string
	TokenHash  string
	UserAgent  string
	IP         string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// Store persists suppliers and refresh sessions.
type Store interface {
	CreateSupplier(ctx context.Context, name, email, passwordHash string) (Supplier, error)
	GetSupplierByEmail(ctx context.Context, email string) (Supplier, error)
	GetSupplierByID(ctx context.Context, id string) (Supplier, error)

	InsertSession(ctx context.Context, s Session) error
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (Session, error)
	RotateSessionToken(ctx context.Context, sessionID, newHash string, expiresAt time.Time) error
	DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}

// PGStore implements Store on a pgx pool.
type PGStore struct {
	Pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{Pool: pool}
}

func (s *PGStore) CreateSupplier(ctx context.Context, name, email, passwordHash string) (Supplier, error) {
	const q = `
		INSERT INTO suppliers (name, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, name, email, password_hash, created_at, updated_at`
	var sup Supplier
	err := s.Pool.QueryRow(ctx, q, name, email, passwordHash).Scan(
		&sup.ID, &sup.Name, &sup.Email, &sup.PasswordHash, &sup.CreatedAt, &sup.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Supplier{}, ErrDuplicateEmail
		}
		return Supplier{}, err
	}
	return sup, nil
}

func (s *PGStore) GetSupplierByEmail(ctx context.Context, email string) (Supplier, error) {
	const q = `
		SELECT id, name, email, password_hash, created_at, updated_at
		FROM suppliers WHERE email = $1`
	return s.scanSupplier(s.Pool.QueryRow(ctx, q, email))
}

func (s *PGStore) GetSupplierByID(ctx context.Context, id string) (Supplier, error) {
	const q = `
		SELECT id, name, email, password_hash, created_at, updated_at
		FROM suppliers WHERE id = $1`
	return s.scanSupplier(s.Pool.QueryRow(ctx, q, id))
}

func (s *PGStore) scanSupplier(row pgx.Row) (Supplier, error) {
	var sup Supplier
	err := row.Scan(&sup.ID, &sup.Name, &sup.Email, &sup.PasswordHash, &sup.CreatedAt, &sup.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, ErrNotFound
	}
	if err != nil {
		return Supplier{}, err
	}
	return sup, nil
}

func (s *PGStore) InsertSession(ctx context.Context, sess Session) error {
	const q = `
		INSERT INTO sessions (supplier_id, token_hash, user_agent, ip, expires_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := s.Pool.Exec(ctx, q, sess.SupplierID, sess.TokenHash, sess.UserAgent, sess.IP, sess.ExpiresAt)
	return err
}

func (s *PGStore) GetSessionByTokenHash(ctx context.Context, tokenHash string) (Session, error) {
	const q = `
		SELECT id, supplier_id, token_hash, coalesce(user_agent, ''), coalesce(ip, ''), expires_at, created_at
		FROM sessions WHERE token_hash = $1`
	var sess Session
	err := s.Pool.QueryRow(ctx, q, tokenHash).Scan(
		&sess.ID, &sess.SupplierID, &sess.TokenHash, &sess.UserAgent, &sess.IP, &sess.ExpiresAt, &sess.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (s *PGStore) RotateSessionToken(ctx context.Context, sessionID, newHash string, expiresAt time.Time) error {
	const q = `UPDATE sessions SET token_hash = $2, expires_at = $3 WHERE id = $1`
	tag, err := s.Pool.Exec(ctx, q, sessionID, newHash, expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash)
	return err
}

func (s *PGStore) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
