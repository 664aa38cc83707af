package team

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-supplier/internal/common"
	"github.com/noah-isme/backend-supplier/internal/obs"
)

func TestMain(m *testing.M) {
	obs.MustRegisterDomainMetrics("test", prometheus.NewRegistry())
	os.Exit(m.Run())
}

type memStore struct {
	members map[string]Member
}

func newMemStore() *memStore {
	return &memStore{members: map[string]Member{}}
}

func (m *memStore) Insert(_ context.Context, mem Member) (Member, error) {
	for _, existing := range m.members {
		if existing.Email == mem.Email {
			return Member{}, ErrDuplicateEmail
		}
	}
	mem.ID = "mem-" + mem.Email
	mem.InvitedAt = time.Now()
	mem.CreatedAt = mem.InvitedAt
	m.members[mem.ID] = mem
	return mem, nil
}

func (m *memStore) List(_ context.Context, _ string) ([]Member, error) {
	out := make([]Member, 0, len(m.members))
	for _, mem := range m.members {
		out = append(out, mem)
	}
	return out, nil
}

func (m *memStore) GetByID(_ context.Context, _, id string) (Member, error) {
	mem, ok := m.members[id]
	if !ok {
		return Member{}, ErrNotFound
	}
	return mem, nil
}

func (m *memStore) SetStatus(_ context.Context, _, id, status string) error {
	mem, ok := m.members[id]
	if !ok {
		return ErrNotFound
	}
	mem.Status = status
	m.members[id] = mem
	return nil
}

func (m *memStore) Delete(_ context.Context, _, id string) error {
	if _, ok := m.members[id]; !ok {
		return ErrNotFound
	}
	delete(m.members, id)
	return nil
}

type captureEnqueuer struct {
	tasks []*asynq.Task
}

func (c *captureEnqueuer) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	c.tasks = append(c.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func TestInviteEnqueuesEmailTask(t *testing.T) {
	store := newMemStore()
	queue := &captureEnqueuer{}
	svc := NewService(store, queue, nil, zerolog.Nop())

	m, err := svc.Invite(context.Background(), "sup-1", "Acme Foods", InviteInput{
		Name:  "Dana",
		Email: "Dana@Example.com",
	})
	require.NoError(t, err)
	require.Equal(t, "dana@example.com", m.Email, "emails are normalised to lower case")
	require.Equal(t, StatusInvited, m.Status)
	require.Equal(t, "member", m.Role)

	require.Len(t, queue.tasks, 1)
	require.Equal(t, TaskInviteEmail, queue.tasks[0].Type())

	var payload InviteEmailPayload
	require.NoError(t, json.Unmarshal(queue.tasks[0].Payload(), &payload))
	require.Equal(t, "Acme Foods", payload.SupplierName)
	require.Equal(t, m.ID, payload.MemberID)
}

func TestInviteDuplicateEmail(t *testing.T) {
	svc := NewService(newMemStore(), &captureEnqueuer{}, nil, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.Invite(ctx, "sup-1", "Acme", InviteInput{Name: "Dana", Email: "dana@example.com"})
	require.NoError(t, err)
	_, err = svc.Invite(ctx, "sup-1", "Acme", InviteInput{Name: "Dana Two", Email: "dana@example.com"})
	require.ErrorIs(t, err, errEmailOnTeam)
}

func TestSetStatusValidation(t *testing.T) {
	svc := NewService(newMemStore(), nil, nil, zerolog.Nop())
	_, err := svc.SetStatus(context.Background(), "sup-1", "mem-1", "banned")
	require.ErrorIs(t, err, errBadStatus)

	_, err = svc.SetStatus(context.Background(), "sup-1", "mem-1", StatusActive)
	require.ErrorIs(t, err, errNotFound)
}

func TestSetStatusReturnsUpdatedMember(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, &captureEnqueuer{}, nil, zerolog.Nop())
	ctx := context.Background()

	m, err := svc.Invite(ctx, "sup-1", "Acme", InviteInput{Name: "Dana", Email: "dana@example.com"})
	require.NoError(t, err)
	require.Equal(t, StatusInvited, m.Status)

	updated, err := svc.SetStatus(ctx, "sup-1", m.ID, StatusActive)
	require.NoError(t, err)
	require.Equal(t, m.ID, updated.ID)
	require.Equal(t, StatusActive, updated.Status)
}

func TestInviteEmailHandler(t *testing.T) {
	sender := &common.InMemoryEmail{}
	h := InviteEmailHandler{Sender: sender, From: "no-reply@supplier.local", Log: zerolog.Nop()}

	task, err := NewInviteEmailTask(InviteEmailPayload{
		SupplierName: "Acme Foods",
		MemberID:     "mem-1",
		Email:        "dana@example.com",
		Name:         "Dana",
	})
	require.NoError(t, err)
	require.NoError(t, h.ProcessTask(context.Background(), task))
	require.Len(t, sender.Outbox, 1)
	require.Equal(t, "no-reply@supplier.local", sender.Outbox[0].From)
	require.Equal(t, "dana@example.com", sender.Outbox[0].To)
	require.Contains(t, sender.Outbox[0].Subject, "Acme Foods")
}

func TestInviteEmailHandlerBadPayload(t *testing.T) {
	h := InviteEmailHandler{Sender: common.NopEmailSender{}, Log: zerolog.Nop()}
	task := asynq.NewTask(TaskInviteEmail, []byte("not-json"))
	err := h.ProcessTask(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}
