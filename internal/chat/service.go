package chat

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-supplier/internal/common"
	"github.com/noah-isme/backend-supplier/internal/obs"
)

var (
	errRoomNotFound = common.NewAppError("NOT_FOUND", "chat room not found", http.StatusNotFound, nil)
	errEmptyBody    = common.NewAppError("EMPTY_MESSAGE", "message body must not be empty", http.StatusUnprocessableEntity, nil)
)

// SenderSupplier marks messages written by the supplier side of the
// conversation.
const SenderSupplier = "supplier"

// Service owns chat rooms and messages. Accepted messages are
// broadcast to the supplier's live websocket clients.
type Service struct {
	Store Store
	Hub   *Hub
	Log   zerolog.Logger
}

func NewService(store Store, hub *Hub, log zerolog.Logger) *Service {
	return &Service{Store: store, Hub: hub, Log: log}
}

// OpenRoomInput identifies the buyer contact a conversation is with.
type OpenRoomInput struct {
	ContactEmail string  `json:"contactEmail" validate:"required,email"`
	ContactName  string  `json:"contactName" validate:"max=200"`
	CustomerID   *string `json:"customerId"`
}

// OpenRoom returns the room for the contact, creating it on first
// touch. Repeat calls with the same contact email return the same
// room.
func (s *Service) OpenRoom(ctx context.Context, supplierID string, in OpenRoomInput) (Room, error) {
	if err := common.Validate(in); err != nil {
		return Room{}, err
	}
	return s.Store.UpsertRoom(ctx, Room{
		SupplierID:   supplierID,
		CustomerID:   in.CustomerID,
		ContactEmail: strings.ToLower(strings.TrimSpace(in.ContactEmail)),
		ContactName:  strings.TrimSpace(in.ContactName),
	})
}

func (s *Service) ListRooms(ctx context.Context, supplierID string) ([]Room, error) {
	return s.Store.ListRooms(ctx, supplierID)
}

// Post appends a message to the room and broadcasts it.
func (s *Service) Post(ctx context.Context, supplierID, roomID, sender, body string) (Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return Message{}, errEmptyBody
	}
	if sender == "" {
		sender = SenderSupplier
	}
	if _, err := s.Store.GetRoom(ctx, supplierID, roomID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Message{}, errRoomNotFound
		}
		return Message{}, err
	}
	m, err := s.Store.InsertMessage(ctx, Message{RoomID: roomID, Sender: sender, Body: body})
	if err != nil {
		return Message{}, err
	}
	obs.ChatMessagesTotal.Inc()
	if s.Hub != nil {
		s.Hub.Broadcast(supplierID, m)
	}
	return m, nil
}

// History returns the room's messages in chronological order.
func (s *Service) History(ctx context.Context, supplierID, roomID string, limit int) ([]Message, error) {
	if _, err := s.Store.GetRoom(ctx, supplierID, roomID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errRoomNotFound
		}
		return nil, err
	}
	return s.Store.ListMessages(ctx, roomID, limit)
}
