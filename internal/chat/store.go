package chat

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a room does not exist or belongs to
// another supplier.
var ErrNotFound = errors.New("chat: room not found")

// Room is one conversation between a supplier and a buyer contact.
// There is at most one room per (supplier, contact email).
type Room struct {
	ID           string    `json:"id"`
	SupplierID   string    `json:"-"`
	CustomerID   *string   `json:"customerId,omitempty"`
	ContactEmail string    `json:"contactEmail"`
	ContactName  string    `json:"contactName"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Message is one chat line within a room. Sender is either "supplier"
// or the contact email.
type Message struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"roomId"`
	Sender    string    `json:"sender"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store persists rooms and messages.
type Store interface {
	UpsertRoom(ctx context.Context, r Room) (Room, error)
	GetRoom(ctx context.Context, supplierID, roomID string) (Room, error)
	ListRooms(ctx context.Context, supplierID string) ([]Room, error)
	InsertMessage(ctx context.Context, m Message) (Message, error)
	ListMessages(ctx context.Context, roomID string, limit int) ([]Message, error)
}

// PGStore implements Store on a pgx pool.
type PGStore struct {
	Pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{Pool: pool}
}

// UpsertRoom reconciles a conversation to one row per contact. A
// repeat contact refreshes the display name and customer link instead
// of opening a second room.
func (s *PGStore) UpsertRoom(ctx context.Context, r Room) (Room, error) {
	const q = `
		INSERT INTO chat_rooms (supplier_id, customer_id, contact_email, contact_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (supplier_id, contact_email) DO UPDATE
		SET contact_name = EXCLUDED.contact_name,
		    customer_id = COALESCE(EXCLUDED.customer_id, chat_rooms.customer_id)
		RETURNING id, customer_id, created_at`
	err := s.Pool.QueryRow(ctx, q, r.SupplierID, r.CustomerID, r.ContactEmail, r.ContactName).
		Scan(&r.ID, &r.CustomerID, &r.CreatedAt)
	return r, err
}

func (s *PGStore) GetRoom(ctx context.Context, supplierID, roomID string) (Room, error) {
	const q = `
		SELECT id, supplier_id, customer_id, contact_email, contact_name, created_at
		FROM chat_rooms WHERE supplier_id = $1 AND id = $2`
	var r Room
	err := s.Pool.QueryRow(ctx, q, supplierID, roomID).Scan(
		&r.ID, &r.SupplierID, &r.CustomerID, &r.ContactEmail, &r.ContactName, &r.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Room{}, ErrNotFound
	}
	return r, err
}

func (s *PGStore) ListRooms(ctx context.Context, supplierID string) ([]Room, error) {
	const q = `
		SELECT id, supplier_id, customer_id, contact_email, contact_name, created_at
		FROM chat_rooms WHERE supplier_id = $1 ORDER BY created_at DESC`
	rows, err := s.Pool.Query(ctx, q, supplierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Room
	for rows.Next() {
		var r Room
		if err := rows.Scan(&r.ID, &r.SupplierID, &r.CustomerID, &r.ContactEmail, &r.ContactName, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PGStore) InsertMessage(ctx context.Context, m Message) (Message, error) {
	const q = `
		INSERT INTO chat_messages (room_id, sender, body)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	err := s.Pool.QueryRow(ctx, q, m.RoomID, m.Sender, m.Body).Scan(&m.ID, &m.CreatedAt)
	return m, err
}

func (s *PGStore) ListMessages(ctx context.Context, roomID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
		SELECT id, room_id, sender, body, created_at
		FROM chat_messages WHERE room_id = $1
		ORDER BY created_at DESC LIMIT $2`
	rows, err := s.Pool.Query(ctx, q, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.Sender, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	// reverse to chronological order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, rows.Err()
}
