package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueNotifications carries guest-facing messages.
	QueueNotifications = "notifications"
	// TaskReservationEmail delivers a booking confirmation e-mail.
	TaskReservationEmail = "reservation:email"
	// TaskReservationSMS delivers a booking confirmation text message.
	TaskReservationSMS = "reservation:sms"
)

// ConfirmationPayload describes a booking to confirm to the guest.
type ConfirmationPayload struct {
	ReservationID int64     `json:"reservation_id"`
	Code          string    `json:"code"`
	GuestName     string    `json:"guest_name"`
	Email         string    `json:"email,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	RoomNumber    string    `json:"room_number"`
	CheckIn       time.Time `json:"check_in"`
	CheckOut      time.Time `json:"check_out"`
	Nights        int       `json:"nights"`
	TotalPrice    float64   `json:"total_price"`
}

// NewReservationEmailTask constructs the e-mail task. The task id is derived
// from the reservation code so a repeated enqueue is rejected by asynq.
func NewReservationEmailTask(payload ConfirmationPayload) (*asynq.Task, error) {
	return newConfirmationTask(TaskReservationEmail, payload)
}

// NewReservationSMSTask constructs the SMS task.
func NewReservationSMSTask(payload ConfirmationPayload) (*asynq.Task, error) {
	return newConfirmationTask(TaskReservationSMS, payload)
}

func newConfirmationTask(taskType string, payload ConfirmationPayload) (*asynq.Task, error) {
	if payload.Code == "" {
		return nil, fmt.Errorf("%s: reservation code required", taskType)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, data,
		asynq.TaskID(taskType+":"+payload.Code),
		asynq.Queue(QueueNotifications),
		asynq.MaxRetry(5),
		asynq.Retention(24*time.Hour),
	), nil
}
