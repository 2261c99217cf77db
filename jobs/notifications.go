package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"text/template"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-hotel/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

var emailTemplate = template.Must(template.New("confirmation").Parse(`Hello {{.GuestName}},

Your reservation {{.Code}} is confirmed.

Room:      {{.RoomNumber}}
Check-in:  {{.CheckIn.Format "2006-01-02"}}
Check-out: {{.CheckOut.Format "2006-01-02"}}
Nights:    {{.Nights}}
Total:     {{printf "%.2f" .TotalPrice}}

We look forward to your stay.
`))

// NotificationJob delivers booking confirmations queued by the API.
type NotificationJob struct {
	Mailer  MailSender
	SMS     SMSSender
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewNotificationJob wires dependencies for the notification handlers.
func NewNotificationJob(mailer MailSender, sms SMSSender, logger *slog.Logger, metrics *jobmetrics.Metrics) *NotificationJob {
	return &NotificationJob{Mailer: mailer, SMS: sms, Logger: logger, Metrics: metrics}
}

// HandleEmail processes TaskReservationEmail tasks.
func (j *NotificationJob) HandleEmail(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Mailer == nil {
		return errors.New("reservation email: mailer not configured")
	}
	payload, err := decodeConfirmation(t)
	if err != nil {
		return err
	}
	if payload.Email == "" {
		return fmt.Errorf("reservation email %s: no recipient: %w", payload.Code, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskReservationEmail)
	defer func() { err = tracker.End(err) }()

	var body bytes.Buffer
	if err := emailTemplate.Execute(&body, payload); err != nil {
		return fmt.Errorf("render confirmation: %w", err)
	}
	err = j.Mailer.Send(ctx, Message{
		To:      payload.Email,
		Subject: "Reservation " + payload.Code + " confirmed",
		Body:    body.String(),
	})
	if err != nil {
		j.logger().Warn("send confirmation email", slog.String("code", payload.Code), slog.Any("error", err))
		return err
	}
	j.logger().Info("confirmation email sent", slog.String("code", payload.Code))
	return nil
}

// HandleSMS processes TaskReservationSMS tasks.
func (j *NotificationJob) HandleSMS(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.SMS == nil {
		return errors.New("reservation sms: sender not configured")
	}
	payload, err := decodeConfirmation(t)
	if err != nil {
		return err
	}
	if payload.Phone == "" {
		return fmt.Errorf("reservation sms %s: no phone: %w", payload.Code, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskReservationSMS)
	defer func() { err = tracker.End(err) }()

	text := fmt.Sprintf("Reservation %s confirmed: room %s, %s to %s.",
		payload.Code, payload.RoomNumber,
		payload.CheckIn.Format("2006-01-02"), payload.CheckOut.Format("2006-01-02"))
	if err := j.SMS.SendSMS(ctx, payload.Phone, text); err != nil {
		j.logger().Warn("send confirmation sms", slog.String("code", payload.Code), slog.Any("error", err))
		return err
	}
	return nil
}

func decodeConfirmation(t *asynq.Task) (ConfirmationPayload, error) {
	var payload ConfirmationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return payload, nil
}

func (j *NotificationJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *NotificationJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
