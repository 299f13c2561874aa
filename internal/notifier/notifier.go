package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/psyconnect/psyconnect-api/internal/email"
	"github.com/psyconnect/psyconnect-api/internal/model"
	"github.com/psyconnect/psyconnect-api/pkg/logger"
	"github.com/psyconnect/psyconnect-api/pkg/messaging"
	"github.com/psyconnect/psyconnect-api/pkg/metrics"
)

// Notifier consumes appointment request events from the broker and turns
// them into patient and psychiatrist emails. Delivery is best-effort:
// failures are counted and logged, never retried back into the broker.
type Notifier struct {
	broker  messaging.Broker
	email   email.Service
	logger  *logger.Logger
	metrics *metrics.Metrics
	channel string
}

func New(broker messaging.Broker, email email.Service, channel string,
	logger *logger.Logger, metrics *metrics.Metrics) *Notifier {
	return &Notifier{
		broker:  broker,
		email:   email,
		logger:  logger,
		metrics: metrics,
		channel: channel,
	}
}

func (n *Notifier) Start(ctx context.Context) error {
	messages, err := n.broker.Subscribe(ctx, n.channel)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", n.channel, err)
	}

	n.logger.Info("Notifier started", "channel", n.channel)

	for {
		select {
		case <-ctx.Done():
			n.logger.Info("Notifier shutting down")
			return nil
		case raw, ok := <-messages:
			if !ok {
				return nil
			}
			n.handle(ctx, raw)
		}
	}
}

func (n *Notifier) handle(ctx context.Context, raw []byte) {
	var msg struct {
		Type    string                    `json:"type"`
		Payload model.RequestEventPayload `json:"payload"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		n.logger.Error(err, "Failed to decode event message")
		return
	}

	for _, m := range composeEmails(msg.Type, &msg.Payload) {
		if err := n.email.Send(ctx, m.to, m.subject, m.body); err != nil {
			n.metrics.NotificationsFailed.WithLabelValues(msg.Type).Inc()
			n.logger.Error(err, "Failed to send notification",
				"event_type", msg.Type, "to", m.to)
			continue
		}
		n.metrics.NotificationsSent.WithLabelValues(msg.Type).Inc()
	}
}

type mail struct {
	to      string
	subject string
	body    string
}

func composeEmails(eventType string, p *model.RequestEventPayload) []mail {
	switch eventType {
	case model.EventRequestCreated:
		mails := []mail{{
			to:      p.PatientEmail,
			subject: "We received your appointment request",
			body: fmt.Sprintf("Hi %s,\n\nYour appointment request has been received and is pending review. "+
				"You can sign in at any time to view or update it.\n", p.PatientName),
		}}
		if p.PsychiatristEmail != "" {
			mails = append(mails, mail{
				to:      p.PsychiatristEmail,
				subject: "New appointment request",
				body:    fmt.Sprintf("A new appointment request from %s is waiting for your review.\n", p.PatientName),
			})
		}
		return mails
	case model.EventStatusChanged:
		return []mail{{
			to:      p.PatientEmail,
			subject: fmt.Sprintf("Your appointment request is now %s", p.Status),
			body: fmt.Sprintf("Hi %s,\n\nThe status of your appointment request changed from %s to %s.\n",
				p.PatientName, p.PreviousStatus, p.Status),
		}}
	case model.EventRequestCancelled:
		return []mail{{
			to:      p.PatientEmail,
			subject: "Your appointment request was cancelled",
			body: fmt.Sprintf("Hi %s,\n\nYour appointment request has been cancelled as you asked. "+
				"You are welcome to submit a new one at any time.\n", p.PatientName),
		}}
	default:
		// Updates need no email.
		return nil
	}
}
