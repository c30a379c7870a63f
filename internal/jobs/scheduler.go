package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron"

	"github.com/maheshrc27/crosspost/internal/metrics"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/service"
)

const DefaultInterval = 15 * time.Second

// ClaimedPublisher publishes a post that has already been moved to posting.
type ClaimedPublisher interface {
	PublishClaimed(ctx context.Context, post *models.Post, accounts []*models.Account) (*service.PublishReport, error)
}

type SchedulerConfig struct {
	Interval time.Duration
	Metrics  metrics.Recorder
	Logger   *slog.Logger
	Now      func() time.Time
}

// Scheduler claims due posts on every tick and hands each one to the
// dispatcher in its own goroutine.
type Scheduler struct {
	posts     repository.PostRepository
	accounts  service.AccountRegistry
	publisher ClaimedPublisher

	interval time.Duration
	metrics  metrics.Recorder
	logger   *slog.Logger
	now      func() time.Time

	cron    *cron.Cron
	started atomic.Bool
	active  atomic.Bool

	mu       sync.Mutex
	stopping bool
	inflight sync.WaitGroup
}

func NewScheduler(posts repository.PostRepository, accounts service.AccountRegistry, publisher ClaimedPublisher, cfg SchedulerConfig) *Scheduler {
	s := &Scheduler{
		posts:     posts,
		accounts:  accounts,
		publisher: publisher,
		interval:  cfg.Interval,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		now:       cfg.Now,
	}
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}
	if s.metrics == nil {
		s.metrics = metrics.Nop{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Start begins ticking. It may be called once per Scheduler.
func (s *Scheduler) Start() error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("scheduler already started")
	}

	c := cron.New()
	err := c.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		if !s.track() {
			return
		}
		defer s.inflight.Done()
		if _, err := s.Tick(context.Background()); err != nil {
			s.logger.Error("scheduler tick failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return fmt.Errorf("error scheduling tick: %w", err)
	}

	s.cron = c
	c.Start()
	s.active.Store(true)
	s.logger.Info("scheduler started", slog.Duration("interval", s.interval))
	return nil
}

// Stop halts ticking and waits for running ticks and dispatches, or for ctx
// to be done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopping = true
	s.mu.Unlock()

	if s.cron != nil {
		s.cron.Stop()
	}
	s.active.Store(false)

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for in-flight dispatches: %w", ctx.Err())
	}
}

func (s *Scheduler) IsActive() bool {
	return s.active.Load()
}

func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Tick claims every due post and starts its dispatch. It does not wait for
// the dispatches and returns the number of posts claimed.
func (s *Scheduler) Tick(ctx context.Context) (int, error) {
	due, err := s.posts.ClaimDue(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("error claiming due posts: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	s.metrics.RecordClaimed(len(due))
	s.logger.Info("claimed due posts", slog.Int("count", len(due)))

	for _, post := range due {
		if !s.track() {
			// Claimed but never dispatched: fail it rather than leave it posting.
			s.fail(context.Background(), post.ID, errors.New("scheduler stopped before dispatch"))
			continue
		}
		go func(post *models.Post) {
			defer s.inflight.Done()
			s.dispatch(post)
		}(post)
	}
	return len(due), nil
}

func (s *Scheduler) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return false
	}
	s.inflight.Add(1)
	return true
}

func (s *Scheduler) dispatch(post *models.Post) {
	ctx := context.Background()
	log := s.logger.With(slog.String("post_id", post.ID))

	accounts, err := s.accounts.Resolve(ctx, post.TargetAccounts)
	if err != nil {
		log.Error("could not resolve target accounts", slog.String("error", err.Error()))
		s.fail(ctx, post.ID, err)
		return
	}

	report, err := s.publisher.PublishClaimed(ctx, post, accounts)
	switch {
	case err == nil:
		log.Info("scheduled post dispatched", slog.String("status", string(report.Status)))
	case errors.Is(err, service.ErrValidation):
		log.Warn("scheduled post rejected", slog.String("error", err.Error()))
		s.fail(ctx, post.ID, err)
	default:
		log.Error("scheduled post dispatch failed", slog.String("error", err.Error()))
		s.fail(ctx, post.ID, err)
	}
}

// fail moves a claimed post to failed. A post that already left posting is
// left alone.
func (s *Scheduler) fail(ctx context.Context, postID string, cause error) {
	err := s.posts.Complete(ctx, postID, models.Outcome{
		Status:       models.PostStatusFailed,
		ErrorSummary: cause.Error(),
	})
	if err != nil && !errors.Is(err, repository.ErrNotClaimed) && !errors.Is(err, repository.ErrNotFound) {
		s.logger.Error("could not fail claimed post", slog.String("post_id", postID), slog.String("error", err.Error()))
	}
}
