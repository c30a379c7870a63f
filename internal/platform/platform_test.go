package platform

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/crosspost/internal/models"
)

type stubAdapter struct {
	platform string
}

func (s stubAdapter) Platform() string { return s.platform }

func (s stubAdapter) ValidateAccount(ctx context.Context, credential string) (*models.Profile, error) {
	return &models.Profile{}, nil
}

func (s stubAdapter) Publish(ctx context.Context, account *models.Account, content string, media []models.MediaItem) (*PublishResult, error) {
	return &PublishResult{}, nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(stubAdapter{"youtube"}, stubAdapter{"instagram"})

	a, err := r.Get("instagram")
	require.NoError(t, err)
	assert.Equal(t, "instagram", a.Platform())

	_, err = r.Get("myspace")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedPlatform))
	assert.Equal(t, "unsupported platform myspace", err.Error())

	r.Register(stubAdapter{"tiktok"})
	assert.Equal(t, []string{"instagram", "tiktok", "youtube"}, r.Platforms())
}

func TestAsError(t *testing.T) {
	pe := Errorf("twitter", 429, "Rate limit exceeded")
	wrapped := fmt.Errorf("publish: %w", pe)

	got, ok := AsError(wrapped)
	require.True(t, ok)
	assert.Equal(t, "Rate limit exceeded", got.Message)
	assert.Equal(t, 429, got.StatusCode)

	_, ok = AsError(errors.New("connection reset"))
	assert.False(t, ok)
}
