package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-hotel/jobs"
)

// Inspector is the subset of *asynq.Inspector used by JobsCLI.
type Inspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	ListArchivedTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
	RunAllArchivedTasks(queue string) (int, error)
	Close() error
}

// JobsCLI wraps manual management helpers for the notification queue.
type JobsCLI struct {
	inspector Inspector
}

// NewJobsCLI initialises the CLI helpers using the provided Redis address.
func NewJobsCLI(redisAddr string) *JobsCLI {
	return &JobsCLI{inspector: asynq.NewInspector(asynq.RedisClientOpt{Addr: redisAddr})}
}

// NewJobsCLIWithInspector builds the helpers on an existing inspector.
func NewJobsCLIWithInspector(inspector Inspector) *JobsCLI {
	return &JobsCLI{inspector: inspector}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	if c == nil || c.inspector == nil {
		return nil
	}
	return c.inspector.Close()
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
}

// InspectQueue reports the metrics for queue. A queue that never received a
// task reports zeros.
func (c *JobsCLI) InspectQueue(ctx context.Context, queue string) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	if err := ctx.Err(); err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: queue}
	info, err := c.inspector.GetQueueInfo(queue)
	if errors.Is(err, asynq.ErrQueueNotFound) {
		return stats, nil
	}
	if err != nil {
		return QueueStats{}, err
	}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
	}
	return stats, nil
}

// ArchivedNotification is a confirmation that exhausted its retries.
type ArchivedNotification struct {
	TaskID    string `json:"task_id"`
	Type      string `json:"type"`
	Code      string `json:"code"`
	LastError string `json:"last_error"`
}

// ListArchived returns the notifications that gave up delivering.
func (c *JobsCLI) ListArchived(ctx context.Context, size int) ([]ArchivedNotification, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if size <= 0 {
		size = 20
	}
	infos, err := c.inspector.ListArchivedTasks(jobs.QueueNotifications, asynq.PageSize(size), asynq.Page(1))
	if errors.Is(err, asynq.ErrQueueNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]ArchivedNotification, 0, len(infos))
	for _, info := range infos {
		item := ArchivedNotification{TaskID: info.ID, Type: info.Type, LastError: info.LastErr}
		var payload jobs.ConfirmationPayload
		if err := json.Unmarshal(info.Payload, &payload); err == nil {
			item.Code = payload.Code
		}
		out = append(out, item)
	}
	return out, nil
}

// RetryArchived moves every archived notification back to pending.
func (c *JobsCLI) RetryArchived(ctx context.Context) (int, error) {
	if c == nil || c.inspector == nil {
		return 0, errors.New("jobs cli: inspector not configured")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := c.inspector.RunAllArchivedTasks(jobs.QueueNotifications)
	if errors.Is(err, asynq.ErrQueueNotFound) {
		return 0, nil
	}
	return n, err
}

// JobsOptions selects the jobs subcommand and its output streams.
type JobsOptions struct {
	Action string
	Stdout io.Writer
	Stderr io.Writer
}

// JobsCommand executes a jobs subcommand and returns the exit code.
func (c *JobsCLI) JobsCommand(ctx context.Context, opts JobsOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	enc := json.NewEncoder(opts.Stdout)
	enc.SetIndent("", "  ")

	switch opts.Action {
	case "stats":
		out := make([]QueueStats, 0, 2)
		for _, queue := range []string{jobs.QueueNotifications, jobs.QueueDefault} {
			stats, err := c.InspectQueue(ctx, queue)
			if err != nil {
				_, _ = fmt.Fprintf(opts.Stderr, "jobs stats: %v\n", err)
				return 1
			}
			out = append(out, stats)
		}
		_ = enc.Encode(out)
	case "archived":
		items, err := c.ListArchived(ctx, 50)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "jobs archived: %v\n", err)
			return 1
		}
		if items == nil {
			items = []ArchivedNotification{}
		}
		_ = enc.Encode(items)
	case "retry":
		n, err := c.RetryArchived(ctx)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "jobs retry: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintf(opts.Stdout, "requeued %d notification(s)\n", n)
	default:
		_, _ = fmt.Fprintf(opts.Stderr, "jobs: unknown action %q (want stats, archived or retry)\n", opts.Action)
		return 2
	}
	return 0
}
