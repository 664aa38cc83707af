package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-supplier/internal/common"
)

// LogNotifier writes every published event to the structured log.
type LogNotifier struct {
	Log zerolog.Logger
}

func (n LogNotifier) Notify(_ context.Context, ev Event) error {
	n.Log.Info().
		Str("topic", ev.Topic).
		Str("aggregate_id", ev.AggregateID).
		Int64("event_id", ev.ID).
		Msg("domain event")
	return nil
}

// EmailNotifier forwards events to an operations mailbox. Delivery goes
// through common.EmailSender, the same seam the invite emails use.
type EmailNotifier struct {
	Sender common.EmailSender
	From   string
	To     string
}

func (n EmailNotifier) Notify(_ context.Context, ev Event) error {
	if n.Sender == nil {
		return errors.New("email notifier: sender not configured")
	}
	if n.To == "" {
		return nil
	}
	subject := fmt.Sprintf("[supplier] %s", ev.Topic)
	body := fmt.Sprintf(
		"<p>Event <strong>%s</strong> for aggregate %s at %s.</p><pre>%s</pre>",
		ev.Topic, ev.AggregateID, ev.OccurredAt.UTC().Format("2006-01-02 15:04:05"), ev.Payload,
	)
	return n.Sender.Send(n.From, n.To, subject, body)
}
