package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/crosspost/internal/models"
)

func newInstagramServer(t *testing.T, handler http.HandlerFunc) Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewInstagramAdapter(InstagramConfig{
		BaseURL:      srv.URL,
		HTTPClient:   srv.Client(),
		PollInterval: time.Millisecond,
		PollAttempts: 3,
	})
}

func TestInstagramValidateAccount(t *testing.T) {
	ig := newInstagramServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me", r.URL.Path)
		assert.Equal(t, "tok", r.URL.Query().Get("access_token"))
		w.Write([]byte(`{"id":"1789","username":"acme","name":"Acme","account_type":"BUSINESS","followers_count":1200,"media_count":42}`))
	})

	profile, err := ig.ValidateAccount(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "Acme", profile.DisplayName)
	assert.Equal(t, "acme", profile.Username)
	require.NotNil(t, profile.FollowerCount)
	assert.Equal(t, int64(1200), *profile.FollowerCount)
	assert.Equal(t, "1789", profile.Extra["user_id"])
	assert.Equal(t, "42", profile.Extra["media_count"])
}

func TestInstagramValidateAccountRejected(t *testing.T) {
	ig := newInstagramServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Invalid OAuth access token.","type":"OAuthException","code":190}}`))
	})

	_, err := ig.ValidateAccount(context.Background(), "bad")
	pe, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, "Invalid OAuth access token.", pe.Message)
	assert.Equal(t, http.StatusBadRequest, pe.StatusCode)
}

func TestInstagramPublishSingleImage(t *testing.T) {
	var captions []string
	ig := newInstagramServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/1789/media":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			captions = append(captions, body["caption"].(string))
			assert.Equal(t, "https://cdn.example.com/a.jpg", body["image_url"])
			w.Write([]byte(`{"id":"c1"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/c1":
			w.Write([]byte(`{"id":"c1","status_code":"FINISHED"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/1789/media_publish":
			w.Write([]byte(`{"id":"m1"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/m1":
			w.Write([]byte(`{"id":"m1","permalink":"https://www.instagram.com/p/abc/"}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	account := &models.Account{
		Platform:   models.PlatformInstagram,
		Credential: "tok",
		Profile:    &models.Profile{Extra: map[string]string{"user_id": "1789"}},
	}
	media := []models.MediaItem{{ID: "m", Kind: models.MediaKindImage, SourceRef: "https://cdn.example.com/a.jpg"}}

	res, err := ig.Publish(context.Background(), account, "hello", media)
	require.NoError(t, err)
	assert.Equal(t, "https://www.instagram.com/p/abc/", res.URL)
	assert.Equal(t, []string{"hello"}, captions)
}

func TestInstagramPublishProcessingError(t *testing.T) {
	ig := newInstagramServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost:
			w.Write([]byte(`{"id":"c1"}`))
		default:
			w.Write([]byte(`{"id":"c1","status_code":"ERROR"}`))
		}
	})

	account := &models.Account{Platform: models.PlatformInstagram, Credential: "tok"}
	media := []models.MediaItem{{ID: "v", Kind: models.MediaKindVideo, SourceRef: "https://cdn.example.com/v.mp4"}}

	_, err := ig.Publish(context.Background(), account, "clip", media)
	pe, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, "media processing error", pe.Message)
}

func TestInstagramPublishRequiresMedia(t *testing.T) {
	ig := NewInstagramAdapter(InstagramConfig{BaseURL: "http://127.0.0.1:0"})
	_, err := ig.Publish(context.Background(), &models.Account{}, "text only", nil)
	_, ok := AsError(err)
	assert.True(t, ok)
}

func TestInstagramTransportFailureIsNotPlatformError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	ig := NewInstagramAdapter(InstagramConfig{BaseURL: url})
	_, err := ig.ValidateAccount(context.Background(), "tok")
	require.Error(t, err)
	_, ok := AsError(err)
	assert.False(t, ok)
}
