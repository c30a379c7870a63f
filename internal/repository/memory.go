package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
)

// The in-memory repositories back STORAGE_DRIVER=memory and tests. They hand
// out copies so callers never share state with the store.

type memoryPostRepository struct {
	mu    sync.Mutex
	posts map[string]*models.Post
}

func NewMemoryPostRepository() PostRepository {
	return &memoryPostRepository{posts: make(map[string]*models.Post)}
}

func (r *memoryPostRepository) Create(ctx context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts[post.ID] = post.Clone()
	return nil
}

func (r *memoryPostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.posts[id].Clone(), nil
}

func (r *memoryPostRepository) List(ctx context.Context, status models.PostStatus) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var posts []*models.Post
	for _, p := range r.posts {
		if status == "" || p.Status == status {
			posts = append(posts, p.Clone())
		}
	}
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	return posts, nil
}

func (r *memoryPostRepository) ClaimDue(ctx context.Context, now time.Time) ([]*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var claimed []*models.Post
	for _, p := range r.posts {
		if p.Status != models.PostStatusScheduled || p.ScheduledAt == nil || p.ScheduledAt.After(now) {
			continue
		}
		p.Status = models.PostStatusPosting
		p.UpdatedAt = now
		claimed = append(claimed, p.Clone())
	}
	sort.Slice(claimed, func(i, j int) bool {
		return claimed[i].ScheduledAt.Before(*claimed[j].ScheduledAt)
	})
	return claimed, nil
}

func (r *memoryPostRepository) Transition(ctx context.Context, id string, from, to models.PostStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.posts[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	p.UpdatedAt = time.Now()
	return true, nil
}

func (r *memoryPostRepository) Complete(ctx context.Context, id string, outcome models.Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.posts[id]
	if !ok || p.Status != models.PostStatusPosting {
		return ErrNotClaimed
	}
	p.Status = outcome.Status
	p.Results = make(map[string]models.AccountResult, len(outcome.Results))
	for k, v := range outcome.Results {
		p.Results[k] = v
	}
	p.ErrorSummary = outcome.ErrorSummary
	if outcome.PublishedAt != nil {
		t := *outcome.PublishedAt
		p.PublishedAt = &t
	}
	p.UpdatedAt = time.Now()
	return nil
}

func (r *memoryPostRepository) Remove(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.posts[id]
	if !ok || p.Status == models.PostStatusPosting {
		return false, nil
	}
	delete(r.posts, id)
	return true, nil
}

type memoryAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*models.Account
}

func NewMemoryAccountRepository() AccountRepository {
	return &memoryAccountRepository{accounts: make(map[string]*models.Account)}
}

func (r *memoryAccountRepository) Create(ctx context.Context, a *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[a.ID] = a.Clone()
	return nil
}

func (r *memoryAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.accounts[id].Clone(), nil
}

func (r *memoryAccountRepository) list(keep func(*models.Account) bool) []*models.Account {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var accounts []*models.Account
	for _, a := range r.accounts {
		if keep(a) {
			accounts = append(accounts, a.Clone())
		}
	}
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].ID < accounts[j].ID
		}
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})
	return accounts
}

func (r *memoryAccountRepository) List(ctx context.Context) ([]*models.Account, error) {
	return r.list(func(*models.Account) bool { return true }), nil
}

func (r *memoryAccountRepository) ListConnected(ctx context.Context) ([]*models.Account, error) {
	return r.list(func(a *models.Account) bool { return a.Connected }), nil
}

func (r *memoryAccountRepository) CountByPlatform(ctx context.Context, platform string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, a := range r.accounts {
		if a.Platform == platform {
			n++
		}
	}
	return n, nil
}

func (r *memoryAccountRepository) Update(ctx context.Context, a *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.accounts[a.ID]
	if !ok {
		return ErrNotFound
	}
	updated := a.Clone()
	updated.Credential = current.Credential
	updated.LastPublishedAt = current.LastPublishedAt
	updated.CreatedAt = current.CreatedAt
	r.accounts[a.ID] = updated
	return nil
}

func (r *memoryAccountRepository) SetProfile(ctx context.Context, id string, p *models.Profile, connected bool, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return ErrNotFound
	}
	if p != nil {
		a.Profile = p.Clone()
	}
	a.Connected = connected
	a.UpdatedAt = at
	return nil
}

func (r *memoryAccountRepository) SetLastPublished(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return ErrNotFound
	}
	a.LastPublishedAt = &at
	return nil
}

func (r *memoryAccountRepository) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[id]; !ok {
		return ErrNotFound
	}
	delete(r.accounts, id)
	return nil
}
