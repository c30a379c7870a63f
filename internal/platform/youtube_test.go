package platform

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/crosspost/internal/models"
)

func newYoutubeServer(t *testing.T, handler http.HandlerFunc) (Adapter, string) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewYoutubeAdapter(YoutubeConfig{Endpoint: srv.URL + "/", HTTPClient: srv.Client()}), srv.URL
}

func TestYoutubeValidateAccount(t *testing.T) {
	yt, _ := newYoutubeServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/youtube/v3/channels"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[{"id":"UC1","snippet":{"title":"Acme TV","customUrl":"@acmetv","thumbnails":{"default":{"url":"https://yt.example.com/a.png"}}},"statistics":{"subscriberCount":"5000","videoCount":"12"}}]}`))
	})

	profile, err := yt.ValidateAccount(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "Acme TV", profile.DisplayName)
	assert.Equal(t, "acmetv", profile.Username)
	assert.Equal(t, "https://yt.example.com/a.png", profile.AvatarURL)
	require.NotNil(t, profile.FollowerCount)
	assert.Equal(t, int64(5000), *profile.FollowerCount)
	assert.Equal(t, "UC1", profile.Extra["channel_id"])
}

func TestYoutubeValidateAccountNoChannel(t *testing.T) {
	yt, _ := newYoutubeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[]}`))
	})

	_, err := yt.ValidateAccount(context.Background(), "tok")
	pe, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, "no YouTube channel found for this token", pe.Message)
}

func TestYoutubeValidateAccountAPIError(t *testing.T) {
	yt, _ := newYoutubeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"The request cannot be completed because you have exceeded your quota."}}`))
	})

	_, err := yt.ValidateAccount(context.Background(), "tok")
	pe, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, pe.StatusCode)
	assert.Contains(t, pe.Message, "exceeded your quota")
}

func TestYoutubePublishUploadsVideo(t *testing.T) {
	var uploaded []byte
	yt, base := newYoutubeServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/media/clip.mp4":
			w.Write([]byte("fake-video-bytes"))
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/youtube/v3/videos"):
			uploaded, _ = io.ReadAll(r.Body)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":"dQw4w9WgXcQ"}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	account := &models.Account{Platform: models.PlatformYoutube, Credential: "tok"}
	media := []models.MediaItem{{ID: "v", Kind: models.MediaKindVideo, SourceRef: base + "/media/clip.mp4"}}

	res, err := yt.Publish(context.Background(), account, "Launch day\nfull description", media)
	require.NoError(t, err)
	assert.Equal(t, "https://youtu.be/dQw4w9WgXcQ", res.URL)
	assert.Contains(t, string(uploaded), "fake-video-bytes")
	assert.Contains(t, string(uploaded), "Launch day")
}

func TestYoutubePublishRequiresOneVideo(t *testing.T) {
	yt := NewYoutubeAdapter(YoutubeConfig{})
	media := []models.MediaItem{{ID: "i", Kind: models.MediaKindImage}}

	_, err := yt.Publish(context.Background(), &models.Account{Credential: "tok"}, "x", media)
	pe, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, "YouTube requires exactly one video", pe.Message)
}

func TestVideoTitle(t *testing.T) {
	assert.Equal(t, "Untitled", videoTitle("   \nbody"))
	assert.Equal(t, "First line", videoTitle("First line\nsecond"))
	assert.Equal(t, 100, len([]rune(videoTitle(strings.Repeat("é", 150)))))
}
