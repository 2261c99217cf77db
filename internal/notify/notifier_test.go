package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-hotel/internal/reservation"
	"github.com/odyssey-erp/odyssey-hotel/jobs"
)

type fakeQueue struct {
	seen  map[string]bool
	tasks []*asynq.Task
	err   error
}

func (q *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	if q.seen == nil {
		q.seen = make(map[string]bool)
	}
	key := task.Type() + string(task.Payload())
	if q.seen[key] {
		return nil, asynq.ErrTaskIDConflict
	}
	q.seen[key] = true
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: task.Type(), Queue: jobs.QueueNotifications}, nil
}

func confirmation() reservation.Confirmation {
	return reservation.Confirmation{
		ReservationID: 1,
		Code:          "RES-1",
		GuestName:     "Ana Lopez",
		Email:         "ana@example.com",
		Phone:         "+573001112233",
		RoomNumber:    "101",
		CheckIn:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		CheckOut:      time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
		Nights:        4,
		TotalPrice:    400,
	}
}

func TestQueueNotifierEnqueuesTasks(t *testing.T) {
	q := &fakeQueue{}
	n := NewQueueNotifier(q, nil)

	require.NoError(t, n.SendReservationConfirmation(context.Background(), confirmation()))
	require.NoError(t, n.SendSMS(context.Background(), confirmation()))
	require.Len(t, q.tasks, 2)
	assert.Equal(t, jobs.TaskReservationEmail, q.tasks[0].Type())
	assert.Equal(t, jobs.TaskReservationSMS, q.tasks[1].Type())

	var payload jobs.ConfirmationPayload
	require.NoError(t, json.Unmarshal(q.tasks[0].Payload(), &payload))
	assert.Equal(t, "RES-1", payload.Code)
	assert.Equal(t, 400.0, payload.TotalPrice)
}

func TestQueueNotifierTreatsDuplicateAsDelivered(t *testing.T) {
	q := &fakeQueue{}
	n := NewQueueNotifier(q, nil)

	require.NoError(t, n.SendReservationConfirmation(context.Background(), confirmation()))
	require.NoError(t, n.SendReservationConfirmation(context.Background(), confirmation()))
	assert.Len(t, q.tasks, 1)
}

func TestQueueNotifierReturnsQueueErrors(t *testing.T) {
	q := &fakeQueue{err: errors.New("redis: connection refused")}
	n := NewQueueNotifier(q, nil)
	assert.Error(t, n.SendSMS(context.Background(), confirmation()))

	c := confirmation()
	c.Code = ""
	assert.Error(t, NewQueueNotifier(&fakeQueue{}, nil).SendReservationConfirmation(context.Background(), c))
}
