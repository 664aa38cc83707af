package team

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-supplier/internal/common"
	"github.com/noah-isme/backend-supplier/internal/obs"
)

// TaskInviteEmail is the asynq task type for invitation emails.
const TaskInviteEmail = "team:invite_email"

// InviteEmailPayload is the task body for TaskInviteEmail.
type InviteEmailPayload struct {
	SupplierID   string `json:"supplierId"`
	SupplierName string `json:"supplierName"`
	MemberID     string `json:"memberId"`
	Email        string `json:"email"`
	Name         string `json:"name"`
}

// NewInviteEmailTask builds the asynq task for one invitation.
func NewInviteEmailTask(p InviteEmailPayload) (*asynq.Task, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInviteEmail, body, asynq.MaxRetry(5)), nil
}

// InviteEmailHandler processes TaskInviteEmail on the worker.
type InviteEmailHandler struct {
	Sender common.EmailSender
	From   string
	Log    zerolog.Logger
}

func (h InviteEmailHandler) ProcessTask(_ context.Context, t *asynq.Task) error {
	var p InviteEmailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		// malformed payloads will never succeed, drop them
		return fmt.Errorf("decode invite payload: %v: %w", err, asynq.SkipRetry)
	}
	subject := fmt.Sprintf("You have been invited to join %s", p.SupplierName)
	body := fmt.Sprintf(
		"<p>Hello %s,</p><p>%s invited you to their supplier back office. Sign in with this email address to accept.</p>",
		p.Name, p.SupplierName,
	)
	if err := h.Sender.Send(h.From, p.Email, subject, body); err != nil {
		obs.InviteEmailsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("send invite email: %w", err)
	}
	obs.InviteEmailsTotal.WithLabelValues("ok").Inc()
	h.Log.Info().Str("member_id", p.MemberID).Msg("invite email sent")
	return nil
}
