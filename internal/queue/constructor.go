package queue

import (
	"context"
	"sync"

	"github.com/maheshrc27/crosspost/internal/service"
)

// PostDispatcher is the part of the post service the worker needs.
type PostDispatcher interface {
	Dispatch(ctx context.Context, id string) (*service.PublishReport, error)
}

type Queue struct {
	ps PostDispatcher

	// asynq stops waiting for handlers at its shutdown timeout, but the
	// dispatch keeps running and still has to record its outcome.
	inflight sync.WaitGroup
}

func NewQueue(ps PostDispatcher) *Queue {
	return &Queue{ps: ps}
}

const TaskTypePublishPost = "post:publish"

type PublishPostPayload struct {
	PostID string `json:"post_id"`
}
