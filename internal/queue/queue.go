package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Client enqueues immediate publishes. Tasks are never retried: a publish
// that ran once must not run again.
type Client struct {
	c taskEnqueuer
}

func NewClient(c *asynq.Client) *Client {
	return &Client{c: c}
}

func (q *Client) EnqueuePublish(ctx context.Context, postID string) error {
	taskPayload, err := json.Marshal(PublishPostPayload{PostID: postID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypePublishPost, taskPayload)

	info, err := q.c.EnqueueContext(ctx, task, asynq.MaxRetry(0))
	if err != nil {
		return fmt.Errorf("error enqueueing %s: %w", TaskTypePublishPost, err)
	}

	attrs := []any{slog.String("post_id", postID)}
	if info != nil {
		attrs = append(attrs, slog.String("task_id", info.ID))
	}
	slog.Info("publish task enqueued", attrs...)
	return nil
}
