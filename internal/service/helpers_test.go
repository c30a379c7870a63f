package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/repository"
)

type fakeAdapter struct {
	name     string
	validate func(ctx context.Context, credential string) (*models.Profile, error)
	publish  func(ctx context.Context, account *models.Account, content string, media []models.MediaItem) (*platform.PublishResult, error)
	calls    atomic.Int32
}

func (f *fakeAdapter) Platform() string { return f.name }

func (f *fakeAdapter) ValidateAccount(ctx context.Context, credential string) (*models.Profile, error) {
	if f.validate != nil {
		return f.validate(ctx, credential)
	}
	return &models.Profile{DisplayName: "Display " + f.name, Username: "user_" + f.name}, nil
}

func (f *fakeAdapter) Publish(ctx context.Context, account *models.Account, content string, media []models.MediaItem) (*platform.PublishResult, error) {
	f.calls.Add(1)
	if f.publish != nil {
		return f.publish(ctx, account, content, media)
	}
	return &platform.PublishResult{URL: "https://" + f.name + ".example/" + account.ID}, nil
}

type env struct {
	posts      repository.PostRepository
	accountsDB repository.AccountRepository
	registry   AccountRegistry
	adapters   *platform.Registry
	dispatcher *Dispatcher
	fakes      map[string]*fakeAdapter
}

func newEnv(t *testing.T, platforms ...string) *env {
	t.Helper()
	e := &env{
		posts:      repository.NewMemoryPostRepository(),
		accountsDB: repository.NewMemoryAccountRepository(),
		adapters:   platform.NewRegistry(),
		fakes:      make(map[string]*fakeAdapter),
	}
	for _, p := range platforms {
		f := &fakeAdapter{name: p}
		e.fakes[p] = f
		e.adapters.Register(f)
	}
	e.registry = NewAccountRegistry(e.accountsDB, e.adapters)
	e.dispatcher = NewDispatcher(e.posts, e.registry, e.adapters, DispatcherConfig{PublishTimeout: time.Second})
	return e
}

func (e *env) addAccount(t *testing.T, id, platformID, name string, connected bool) *models.Account {
	t.Helper()
	a := &models.Account{
		ID:          id,
		Platform:    platformID,
		AccountName: name,
		Credential:  "token-" + id,
		Connected:   connected,
		CreatedAt:   time.Now(),
	}
	require.NoError(t, e.accountsDB.Create(context.Background(), a))
	return a
}

func (e *env) addPost(t *testing.T, id string, status models.PostStatus, media []models.MediaItem, targets ...string) *models.Post {
	t.Helper()
	p := &models.Post{
		ID:             id,
		Content:        "Hello world",
		Media:          media,
		TargetAccounts: targets,
		Status:         status,
		CreatedAt:      time.Now(),
	}
	require.NoError(t, e.posts.Create(context.Background(), p))
	return p
}

func (e *env) resolve(t *testing.T, post *models.Post) []*models.Account {
	t.Helper()
	accounts, err := e.registry.Resolve(context.Background(), post.TargetAccounts)
	require.NoError(t, err)
	return accounts
}

func (e *env) stored(t *testing.T, id string) *models.Post {
	t.Helper()
	p, err := e.posts.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p
}

func image1x1() models.MediaItem {
	return models.MediaItem{ID: "img", Kind: models.MediaKindImage, SourceRef: "https://cdn.example/a.jpg", MimeType: "image/jpeg", SizeBytes: 200 * 1024, Width: 1080, Height: 1080}
}
