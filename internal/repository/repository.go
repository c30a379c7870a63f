package repository

import (
	"context"
	"errors"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrNotClaimed = errors.New("post is not in posting state")
)

// PostRepository persists posts. Every status change goes through a
// compare-and-swap so two callers can never both move a post out of the
// same state.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	List(ctx context.Context, status models.PostStatus) ([]*models.Post, error)
	// ClaimDue moves every scheduled post with scheduled_at <= now to posting
	// and returns the claimed posts.
	ClaimDue(ctx context.Context, now time.Time) ([]*models.Post, error)
	Transition(ctx context.Context, id string, from, to models.PostStatus) (bool, error)
	// Complete writes the terminal outcome of a post that is currently posting.
	Complete(ctx context.Context, id string, outcome models.Outcome) error
	// Remove deletes a post unless it is being published. It reports whether
	// a row was removed.
	Remove(ctx context.Context, id string) (bool, error)
}

type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id string) (*models.Account, error)
	List(ctx context.Context) ([]*models.Account, error)
	ListConnected(ctx context.Context) ([]*models.Account, error)
	CountByPlatform(ctx context.Context, platform string) (int, error)
	Update(ctx context.Context, account *models.Account) error
	// SetProfile writes the result of a credential check without touching the
	// label. A nil profile keeps the stored one.
	SetProfile(ctx context.Context, id string, profile *models.Profile, connected bool, at time.Time) error
	SetLastPublished(ctx context.Context, id string, at time.Time) error
	Remove(ctx context.Context, id string) error
}
