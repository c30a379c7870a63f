package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/crosspost/internal/models"
)

func newFacebookServer(t *testing.T, handler http.HandlerFunc) Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewFacebookAdapter(FacebookConfig{
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
	})
}

func pageAccount() *models.Account {
	return &models.Account{
		Platform:   models.PlatformFacebook,
		Credential: "page-tok",
		Profile:    &models.Profile{Extra: map[string]string{"page_id": "4242"}},
	}
}

func TestFacebookValidateAccount(t *testing.T) {
	fb := newFacebookServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me", r.URL.Path)
		assert.Equal(t, "page-tok", r.URL.Query().Get("access_token"))
		w.Write([]byte(`{"id":"4242","name":"Acme Coffee","username":"acmecoffee","link":"https://www.facebook.com/acmecoffee","category":"Cafe","fan_count":900,"followers_count":1500,"picture":{"data":{"url":"https://cdn.example.com/p.jpg"}}}`))
	})

	profile, err := fb.ValidateAccount(context.Background(), "page-tok")
	require.NoError(t, err)
	assert.Equal(t, "Acme Coffee", profile.DisplayName)
	assert.Equal(t, "acmecoffee", profile.Username)
	require.NotNil(t, profile.FollowerCount)
	assert.Equal(t, int64(1500), *profile.FollowerCount)
	assert.Equal(t, "https://cdn.example.com/p.jpg", profile.AvatarURL)
	assert.Equal(t, "4242", profile.Extra["page_id"])
	assert.Equal(t, "Cafe", profile.Extra["category"])
}

func TestFacebookValidateAccountRejected(t *testing.T) {
	fb := newFacebookServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Error validating access token: Session has expired.","type":"OAuthException","code":190}}`))
	})

	_, err := fb.ValidateAccount(context.Background(), "expired")
	pe, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, "Error validating access token: Session has expired.", pe.Message)
	assert.Equal(t, http.StatusUnauthorized, pe.StatusCode)

	_, err = fb.ValidateAccount(context.Background(), "")
	_, ok = AsError(err)
	assert.True(t, ok)
}

func TestFacebookPublishText(t *testing.T) {
	fb := newFacebookServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/4242/feed", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello page", body["message"])
		assert.Equal(t, "page-tok", body["access_token"])
		assert.NotContains(t, body, "attached_media")
		w.Write([]byte(`{"id":"4242_777"}`))
	})

	res, err := fb.Publish(context.Background(), pageAccount(), "hello page", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://www.facebook.com/4242_777", res.URL)
}

func TestFacebookPublishSinglePhoto(t *testing.T) {
	fb := newFacebookServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/4242/photos", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://cdn.example.com/a.jpg", body["url"])
		assert.Equal(t, "caption", body["caption"])
		w.Write([]byte(`{"id":"901","post_id":"4242_902"}`))
	})

	media := []models.MediaItem{{ID: "a", Kind: models.MediaKindImage, SourceRef: "https://cdn.example.com/a.jpg"}}
	res, err := fb.Publish(context.Background(), pageAccount(), "caption", media)
	require.NoError(t, err)
	assert.Equal(t, "https://www.facebook.com/4242_902", res.URL)
}

func TestFacebookPublishMultiplePhotos(t *testing.T) {
	var uploaded []string
	fb := newFacebookServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch r.URL.Path {
		case "/4242/photos":
			assert.Equal(t, false, body["published"])
			uploaded = append(uploaded, body["url"].(string))
			fmt.Fprintf(w, `{"id":"ph%d"}`, len(uploaded))
		case "/4242/feed":
			assert.Equal(t, "two shots", body["message"])
			assert.Equal(t, []any{
				map[string]any{"media_fbid": "ph1"},
				map[string]any{"media_fbid": "ph2"},
			}, body["attached_media"])
			w.Write([]byte(`{"id":"4242_800"}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	media := []models.MediaItem{
		{ID: "a", Kind: models.MediaKindImage, SourceRef: "https://cdn.example.com/a.jpg"},
		{ID: "b", Kind: models.MediaKindImage, SourceRef: "https://cdn.example.com/b.jpg"},
	}
	res, err := fb.Publish(context.Background(), pageAccount(), "two shots", media)
	require.NoError(t, err)
	assert.Equal(t, "https://www.facebook.com/4242_800", res.URL)
	assert.Equal(t, []string{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.jpg"}, uploaded)
}

func TestFacebookPublishVideo(t *testing.T) {
	fb := newFacebookServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/4242/videos", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://cdn.example.com/v.mp4", body["file_url"])
		assert.Equal(t, "clip", body["description"])
		w.Write([]byte(`{"id":"555"}`))
	})

	media := []models.MediaItem{{ID: "v", Kind: models.MediaKindVideo, SourceRef: "https://cdn.example.com/v.mp4"}}
	res, err := fb.Publish(context.Background(), pageAccount(), "clip", media)
	require.NoError(t, err)
	assert.Equal(t, "https://www.facebook.com/4242/videos/555", res.URL)
}

func TestFacebookPublishRejectsVideoInAlbum(t *testing.T) {
	fb := newFacebookServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	})

	media := []models.MediaItem{
		{ID: "a", Kind: models.MediaKindImage, SourceRef: "https://cdn.example.com/a.jpg"},
		{ID: "v", Kind: models.MediaKindVideo, SourceRef: "https://cdn.example.com/v.mp4"},
	}
	_, err := fb.Publish(context.Background(), pageAccount(), "mixed", media)
	_, ok := AsError(err)
	assert.True(t, ok)
}

func TestFacebookPublishGraphError(t *testing.T) {
	fb := newFacebookServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"message":"(#200) Permissions error","type":"OAuthException","code":200,"error_user_msg":"The page token is missing pages_manage_posts."}}`))
	})

	_, err := fb.Publish(context.Background(), pageAccount(), "hello", nil)
	pe, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, models.PlatformFacebook, pe.Platform)
	assert.Equal(t, "The page token is missing pages_manage_posts.", pe.Message)
}
