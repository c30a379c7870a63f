// Package platform holds the adapters that talk to each social network.
package platform

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/maheshrc27/crosspost/internal/models"
)

// Adapter is the narrow contract the publish core needs from a social network.
// Expected failures (rate limits, rejected media, revoked tokens) are returned
// as *Error; anything else is treated as a transport failure by callers.
type Adapter interface {
	Platform() string
	ValidateAccount(ctx context.Context, credential string) (*models.Profile, error)
	Publish(ctx context.Context, account *models.Account, content string, media []models.MediaItem) (*PublishResult, error)
}

type PublishResult struct {
	URL string `json:"url,omitempty"`
}

// Error is a failure reported by the platform itself.
type Error struct {
	Platform   string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return e.Message
}

func Errorf(platform string, statusCode int, format string, args ...any) *Error {
	return &Error{Platform: platform, StatusCode: statusCode, Message: fmt.Sprintf(format, args...)}
}

// AsError reports whether err carries a platform-reported failure.
func AsError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

var ErrUnsupportedPlatform = errors.New("unsupported platform")

type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter)}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Platform()] = a
}

func (r *Registry) Get(platform string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[platform]
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrUnsupportedPlatform, platform)
	}
	return a, nil
}

func (r *Registry) Platforms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.adapters))
	for p := range r.adapters {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
