package team

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-supplier/internal/common"
	"github.com/noah-isme/backend-supplier/internal/events"
)

var (
	errNotFound    = common.NewAppError("NOT_FOUND", "team member not found", http.StatusNotFound, nil)
	errEmailOnTeam = common.NewAppError("EMAIL_ON_TEAM", "this email is already on the team", http.StatusConflict, nil)
	errBadStatus   = common.NewAppError("INVALID_STATUS", "status must be invited or active", http.StatusUnprocessableEntity, nil)
)

// TaskEnqueuer abstracts the asynq client so tests can capture tasks.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Service owns the supplier's team roster. Invitation emails are
// dispatched asynchronously through the task queue, an enqueue failure
// does not roll back the invite.
type Service struct {
	Store Store
	Tasks TaskEnqueuer
	Bus   *events.Bus
	Log   zerolog.Logger
}

func NewService(store Store, tasks TaskEnqueuer, bus *events.Bus, log zerolog.Logger) *Service {
	return &Service{Store: store, Tasks: tasks, Bus: bus, Log: log}
}

// InviteInput carries the fields of a new invitation.
type InviteInput struct {
	Name  string `json:"name" validate:"required,min=2,max=120"`
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"omitempty,oneof=member admin"`
}

func (s *Service) Invite(ctx context.Context, supplierID, supplierName string, in InviteInput) (Member, error) {
	if err := common.Validate(in); err != nil {
		return Member{}, err
	}
	role := in.Role
	if role == "" {
		role = "member"
	}
	m, err := s.Store.Insert(ctx, Member{
		SupplierID: supplierID,
		Name:       strings.TrimSpace(in.Name),
		Email:      strings.ToLower(strings.TrimSpace(in.Email)),
		Role:       role,
		Status:     StatusInvited,
	})
	if errors.Is(err, ErrDuplicateEmail) {
		return Member{}, errEmailOnTeam
	}
	if err != nil {
		return Member{}, err
	}
	s.enqueueInvite(m, supplierName)
	if s.Bus != nil {
		if err := s.Bus.Publish(ctx, events.TopicTeamInvited, m.ID, map[string]any{"email": m.Email}); err != nil {
			s.Log.Warn().Err(err).Msg("publish team.invited")
		}
	}
	return m, nil
}

func (s *Service) enqueueInvite(m Member, supplierName string) {
	if s.Tasks == nil {
		return
	}
	task, err := NewInviteEmailTask(InviteEmailPayload{
		SupplierID:   m.SupplierID,
		SupplierName: supplierName,
		MemberID:     m.ID,
		Email:        m.Email,
		Name:         m.Name,
	})
	if err != nil {
		s.Log.Error().Err(err).Msg("build invite task")
		return
	}
	if _, err := s.Tasks.Enqueue(task); err != nil {
		s.Log.Error().Err(err).Str("member_id", m.ID).Msg("enqueue invite email")
	}
}

func (s *Service) List(ctx context.Context, supplierID string) ([]Member, error) {
	return s.Store.List(ctx, supplierID)
}

// SetStatus flips a member between invited and active and returns the
// updated row.
func (s *Service) SetStatus(ctx context.Context, supplierID, id, status string) (Member, error) {
	if status != StatusInvited && status != StatusActive {
		return Member{}, errBadStatus
	}
	if err := s.Store.SetStatus(ctx, supplierID, id, status); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Member{}, errNotFound
		}
		return Member{}, err
	}
	m, err := s.Store.GetByID(ctx, supplierID, id)
	if errors.Is(err, ErrNotFound) {
		return Member{}, errNotFound
	}
	return m, err
}

func (s *Service) Remove(ctx context.Context, supplierID, id string) error {
	err := s.Store.Delete(ctx, supplierID, id)
	if errors.Is(err, ErrNotFound) {
		return errNotFound
	}
	return err
}
