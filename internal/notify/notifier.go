// Package notify hands booking confirmations to the background worker.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-hotel/internal/reservation"
	"github.com/odyssey-erp/odyssey-hotel/jobs"
)

// Enqueuer is satisfied by *asynq.Client and *jobs.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueNotifier implements reservation.Notifier on top of asynq. Delivery
// happens in the worker; the API only pays for the enqueue.
type QueueNotifier struct {
	queue  Enqueuer
	logger *slog.Logger
}

// NewQueueNotifier creates a notifier that enqueues onto queue.
func NewQueueNotifier(queue Enqueuer, logger *slog.Logger) *QueueNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueueNotifier{queue: queue, logger: logger}
}

// SendReservationConfirmation queues the confirmation e-mail.
func (n *QueueNotifier) SendReservationConfirmation(ctx context.Context, c reservation.Confirmation) error {
	task, err := jobs.NewReservationEmailTask(toPayload(c))
	if err != nil {
		return err
	}
	return n.enqueue(ctx, task, c.Code)
}

// SendSMS queues the confirmation text message.
func (n *QueueNotifier) SendSMS(ctx context.Context, c reservation.Confirmation) error {
	task, err := jobs.NewReservationSMSTask(toPayload(c))
	if err != nil {
		return err
	}
	return n.enqueue(ctx, task, c.Code)
}

func (n *QueueNotifier) enqueue(ctx context.Context, task *asynq.Task, code string) error {
	info, err := n.queue.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		n.logger.Debug("notification already queued", slog.String("type", task.Type()), slog.String("code", code))
		return nil
	}
	if err != nil {
		return err
	}
	n.logger.Debug("notification queued",
		slog.String("type", task.Type()),
		slog.String("code", code),
		slog.String("task_id", info.ID),
	)
	return nil
}

func toPayload(c reservation.Confirmation) jobs.ConfirmationPayload {
	return jobs.ConfirmationPayload{
		ReservationID: c.ReservationID,
		Code:          c.Code,
		GuestName:     c.GuestName,
		Email:         c.Email,
		Phone:         c.Phone,
		RoomNumber:    c.RoomNumber,
		CheckIn:       c.CheckIn,
		CheckOut:      c.CheckOut,
		Nights:        c.Nights,
		TotalPrice:    c.TotalPrice,
	}
}
