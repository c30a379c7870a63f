package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/maheshrc27/crosspost/internal/media"
	"github.com/maheshrc27/crosspost/internal/metrics"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/repository"
)

const (
	DefaultPublishTimeout = 2 * time.Minute

	NoCompatibleAccounts = "No compatible accounts for media files"
	NetworkError         = "Network error"
)

type SkipReason string

const (
	SkipDisconnected SkipReason = "disconnected"
	SkipNotFound     SkipReason = "not_found"
	SkipMedia        SkipReason = "incompatible_media"
	SkipDuplicate    SkipReason = "duplicate"
)

type SkippedAccount struct {
	AccountID  string            `json:"account_id"`
	Reason     SkipReason        `json:"reason"`
	Violations []media.Violation `json:"violations,omitempty"`
}

// PublishReport describes one completed dispatch.
type PublishReport struct {
	PostID       string                          `json:"post_id"`
	Status       models.PostStatus               `json:"status"`
	Attempted    []string                        `json:"attempted"`
	Results      map[string]models.AccountResult `json:"results"`
	Skipped      []SkippedAccount                `json:"skipped,omitempty"`
	ErrorSummary string                          `json:"error_summary,omitempty"`
	PublishedAt  *time.Time                      `json:"published_at,omitempty"`
}

type DispatcherConfig struct {
	PublishTimeout time.Duration
	Metrics        metrics.Recorder
	Now            func() time.Time
}

// Dispatcher publishes one post to its eligible accounts concurrently and
// reduces the per-account outcomes into the post's terminal status.
type Dispatcher struct {
	posts    repository.PostRepository
	accounts AccountRegistry
	adapters *platform.Registry
	timeout  time.Duration
	metrics  metrics.Recorder
	now      func() time.Time
}

func NewDispatcher(posts repository.PostRepository, accounts AccountRegistry, adapters *platform.Registry, cfg DispatcherConfig) *Dispatcher {
	d := &Dispatcher{
		posts:    posts,
		accounts: accounts,
		adapters: adapters,
		timeout:  cfg.PublishTimeout,
		metrics:  cfg.Metrics,
		now:      cfg.Now,
	}
	if d.timeout <= 0 {
		d.timeout = DefaultPublishTimeout
	}
	if d.metrics == nil {
		d.metrics = metrics.Nop{}
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d
}

type publishTask struct {
	account *models.Account
	result  models.AccountResult
}

// PublishPost claims a draft or scheduled post, fans out one publish call per
// eligible account and records the outcome. Adapter failures end up in the
// report, never in the returned error.
func (d *Dispatcher) PublishPost(ctx context.Context, post *models.Post, accounts []*models.Account) (*PublishReport, error) {
	return d.publish(ctx, post, accounts, true)
}

// PublishClaimed is PublishPost for a post the caller has already moved to
// posting, as the scheduler does.
func (d *Dispatcher) PublishClaimed(ctx context.Context, post *models.Post, accounts []*models.Account) (*PublishReport, error) {
	return d.publish(ctx, post, accounts, false)
}

func (d *Dispatcher) publish(ctx context.Context, post *models.Post, accounts []*models.Account, needClaim bool) (*PublishReport, error) {
	if post == nil {
		return nil, validationErrorf("post is nil")
	}
	if strings.TrimSpace(post.Content) == "" && len(post.Media) == 0 {
		return nil, validationErrorf("post has neither content nor media")
	}
	if len(accounts) == 0 {
		return nil, validationErrorf("post has no target accounts")
	}

	// The outcome must be written even if the caller goes away mid-flight.
	ctx = context.WithoutCancel(ctx)
	started := d.now()

	if needClaim {
		if err := d.claim(ctx, post); err != nil {
			return nil, err
		}
	} else if post.Status != models.PostStatusPosting {
		return nil, fmt.Errorf("post %s is %s: %w", post.ID, post.Status, ErrPostNotDispatchable)
	}

	report := &PublishReport{
		PostID:    post.ID,
		Attempted: []string{},
		Results:   make(map[string]models.AccountResult),
	}

	eligible := d.partition(post, accounts, report)
	if len(eligible) == 0 {
		report.Status = models.PostStatusFailed
		report.ErrorSummary = NoCompatibleAccounts
		if err := d.complete(ctx, post.ID, report); err != nil {
			return nil, err
		}
		d.metrics.RecordDispatch(string(report.Status), d.now().Sub(started))
		slog.Info("post dispatch failed", slog.String("post_id", post.ID), slog.String("reason", NoCompatibleAccounts))
		return report, nil
	}

	tasks := make([]publishTask, len(eligible))
	var wg sync.WaitGroup
	for i, account := range eligible {
		tasks[i].account = account
		wg.Add(1)
		go func(task *publishTask) {
			defer wg.Done()
			task.result = d.publishOne(ctx, task.account, post)
		}(&tasks[i])
	}
	wg.Wait()

	var failures []string
	for _, task := range tasks {
		report.Attempted = append(report.Attempted, task.account.ID)
		report.Results[task.account.ID] = task.result
		if task.result.Failed() {
			failures = append(failures, fmt.Sprintf("%s: %s", task.account.AccountName, task.result.ErrorMessage))
		}
	}

	publishedAt := d.now()
	report.PublishedAt = &publishedAt
	if len(failures) == 0 {
		report.Status = models.PostStatusPosted
	} else {
		report.Status = models.PostStatusFailed
		report.ErrorSummary = strings.Join(failures, "; ")
	}

	if err := d.complete(ctx, post.ID, report); err != nil {
		return nil, err
	}

	for _, task := range tasks {
		if task.result.Failed() {
			continue
		}
		if err := d.accounts.RecordPublished(ctx, task.account.ID, publishedAt); err != nil && !errors.Is(err, ErrNotFound) {
			slog.Warn("could not stamp last publish time", slog.String("account_id", task.account.ID), slog.String("error", err.Error()))
		}
	}

	d.metrics.RecordDispatch(string(report.Status), d.now().Sub(started))
	slog.Info("post dispatched",
		slog.String("post_id", post.ID),
		slog.String("status", string(report.Status)),
		slog.Int("attempted", len(report.Attempted)),
		slog.Int("failed", len(failures)),
		slog.Int("skipped", len(report.Skipped)),
	)
	return report, nil
}

func (d *Dispatcher) claim(ctx context.Context, post *models.Post) error {
	if post.Status != models.PostStatusDraft && post.Status != models.PostStatusScheduled {
		return fmt.Errorf("post %s is %s: %w", post.ID, post.Status, ErrPostNotDispatchable)
	}
	ok, err := d.posts.Transition(ctx, post.ID, post.Status, models.PostStatusPosting)
	if err != nil {
		return fmt.Errorf("error claiming post: %w", err)
	}
	if !ok {
		return fmt.Errorf("post %s: %w", post.ID, ErrPostNotDispatchable)
	}
	post.Status = models.PostStatusPosting
	return nil
}

// partition keeps target order. Accounts that are gone, disconnected,
// repeated or cannot take the post's media are recorded as skipped.
func (d *Dispatcher) partition(post *models.Post, accounts []*models.Account, report *PublishReport) []*models.Account {
	seen := make(map[string]struct{}, len(accounts))
	eligible := make([]*models.Account, 0, len(accounts))
	for _, account := range accounts {
		if account == nil {
			continue
		}
		if _, dup := seen[account.ID]; dup {
			report.Skipped = append(report.Skipped, SkippedAccount{AccountID: account.ID, Reason: SkipDuplicate})
			continue
		}
		seen[account.ID] = struct{}{}

		switch {
		case account.Platform == "":
			report.Skipped = append(report.Skipped, SkippedAccount{AccountID: account.ID, Reason: SkipNotFound})
		case !account.Connected:
			report.Skipped = append(report.Skipped, SkippedAccount{AccountID: account.ID, Reason: SkipDisconnected})
		default:
			if violations := media.Check(post.Media, account.Platform); len(violations) > 0 {
				report.Skipped = append(report.Skipped, SkippedAccount{AccountID: account.ID, Reason: SkipMedia, Violations: violations})
				d.metrics.RecordSkipped(account.Platform)
				continue
			}
			eligible = append(eligible, account)
		}
	}
	return eligible
}

func (d *Dispatcher) publishOne(ctx context.Context, account *models.Account, post *models.Post) (result models.AccountResult) {
	started := d.now()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("adapter panicked", slog.String("account_id", account.ID), slog.Any("panic", r))
			result = models.AccountResult{ErrorMessage: NetworkError}
		}
		outcome := metrics.OutcomeSuccess
		if result.Failed() {
			outcome = metrics.OutcomeFailure
		}
		d.metrics.RecordPublish(account.Platform, outcome, d.now().Sub(started))
	}()

	adapter, err := d.adapters.Get(account.Platform)
	if err != nil {
		return models.AccountResult{ErrorMessage: err.Error()}
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	res, err := adapter.Publish(callCtx, account, post.Content, post.Media)
	if err != nil {
		if pe, ok := platform.AsError(err); ok && pe.Message != "" {
			return models.AccountResult{ErrorMessage: pe.Message}
		}
		slog.Info("publish failed", slog.String("account_id", account.ID), slog.String("platform", account.Platform), slog.String("error", err.Error()))
		return models.AccountResult{ErrorMessage: NetworkError}
	}
	if res == nil {
		return models.AccountResult{}
	}
	return models.AccountResult{URL: res.URL}
}

func (d *Dispatcher) complete(ctx context.Context, postID string, report *PublishReport) error {
	err := d.posts.Complete(ctx, postID, models.Outcome{
		Status:       report.Status,
		Results:      report.Results,
		ErrorSummary: report.ErrorSummary,
		PublishedAt:  report.PublishedAt,
	})
	if err != nil {
		slog.Error("could not record dispatch outcome", slog.String("post_id", postID), slog.String("error", err.Error()))
		return fmt.Errorf("error saving outcome: %w", err)
	}
	return nil
}
