package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/maheshrc27/crosspost/internal/service"
)

func (j *Queue) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.PostID == "" {
		return fmt.Errorf("payload has no post id: %w", asynq.SkipRetry)
	}

	j.inflight.Add(1)
	defer j.inflight.Done()

	report, err := j.ps.Dispatch(ctx, payload.PostID)
	switch {
	case err == nil:
		slog.Info("post published from queue",
			slog.String("post_id", payload.PostID),
			slog.String("status", string(report.Status)))
		return nil
	case errors.Is(err, service.ErrPostNotDispatchable):
		// Someone else claimed it first.
		slog.Info(err.Error())
		return nil
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrValidation):
		slog.Info(err.Error())
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	default:
		slog.Error("queued publish failed", slog.String("post_id", payload.PostID), slog.String("error", err.Error()))
		return err
	}
}

// Drain waits for running publish tasks, or for ctx to be done. Call it after
// the asynq server has shut down.
func (j *Queue) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		j.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for queued publishes: %w", ctx.Err())
	}
}
