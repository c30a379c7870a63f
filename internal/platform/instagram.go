package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

const (
	InstagramGraphURL = "https://graph.instagram.com/v21.0"

	igExtraUserID = "user_id"
)

type InstagramConfig struct {
	BaseURL      string
	HTTPClient   *http.Client
	PollInterval time.Duration
	PollAttempts int
}

type instagramAdapter struct {
	baseURL      string
	client       *http.Client
	pollInterval time.Duration
	pollAttempts int
}

func NewInstagramAdapter(cfg InstagramConfig) Adapter {
	a := &instagramAdapter{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		client:       newHTTPClient(cfg.HTTPClient),
		pollInterval: cfg.PollInterval,
		pollAttempts: cfg.PollAttempts,
	}
	if a.baseURL == "" {
		a.baseURL = InstagramGraphURL
	}
	if a.pollInterval <= 0 {
		a.pollInterval = 3 * time.Second
	}
	if a.pollAttempts <= 0 {
		a.pollAttempts = 20
	}
	return a
}

func (ig *instagramAdapter) Platform() string {
	return models.PlatformInstagram
}

func (ig *instagramAdapter) ValidateAccount(ctx context.Context, credential string) (*models.Profile, error) {
	if credential == "" {
		return nil, Errorf(models.PlatformInstagram, 0, "access token is empty")
	}

	params := url.Values{}
	params.Set("fields", "id,username,name,account_type,profile_picture_url,followers_count,media_count")
	params.Set("access_token", credential)

	var userInfo transfer.InstagramUserInfo
	if err := doJSON(ctx, ig.client, http.MethodGet, ig.baseURL+"/me?"+params.Encode(), nil, nil, &userInfo, ig.decodeError); err != nil {
		return nil, err
	}
	if userInfo.UserID == "" {
		return nil, Errorf(models.PlatformInstagram, 0, "token is not linked to an Instagram account")
	}

	return &models.Profile{
		DisplayName:   userInfo.Name,
		Username:      userInfo.Username,
		FollowerCount: userInfo.FollowersCount,
		AvatarURL:     userInfo.ProfilePicture,
		Extra: map[string]string{
			igExtraUserID:  userInfo.UserID,
			"account_type": userInfo.AccountType,
			"media_count":  fmt.Sprintf("%d", userInfo.MediaCount),
		},
	}, nil
}

func (ig *instagramAdapter) Publish(ctx context.Context, account *models.Account, content string, media []models.MediaItem) (*PublishResult, error) {
	if len(media) == 0 {
		return nil, Errorf(models.PlatformInstagram, 0, "Instagram requires at least one image or video")
	}

	userID := "me"
	if account.Profile != nil && account.Profile.Extra[igExtraUserID] != "" {
		userID = account.Profile.Extra[igExtraUserID]
	}

	var containerID string
	var err error
	if len(media) == 1 {
		containerID, err = ig.createContainer(ctx, userID, account.Credential, media[0], content, false)
	} else {
		containerID, err = ig.createCarousel(ctx, userID, account.Credential, media, content)
	}
	if err != nil {
		return nil, err
	}

	if err := ig.waitUntilReady(ctx, containerID, account.Credential); err != nil {
		return nil, err
	}

	var published transfer.InstagramContainer
	payload := map[string]interface{}{
		"creation_id":  containerID,
		"access_token": account.Credential,
	}
	if err := doJSON(ctx, ig.client, http.MethodPost, fmt.Sprintf("%s/%s/media_publish", ig.baseURL, userID), nil, payload, &published, ig.decodeError); err != nil {
		return nil, err
	}
	if published.ID == "" {
		return nil, Errorf(models.PlatformInstagram, 0, "no media ID returned from Instagram")
	}

	permalink, err := ig.permalink(ctx, published.ID, account.Credential)
	if err != nil {
		// The post is live at this point; a missing link is not a failure.
		slog.Warn("instagram permalink lookup failed", slog.String("media_id", published.ID), slog.String("error", err.Error()))
	}
	return &PublishResult{URL: permalink}, nil
}

func (ig *instagramAdapter) createContainer(ctx context.Context, userID, token string, item models.MediaItem, caption string, carouselItem bool) (string, error) {
	payload := map[string]interface{}{
		"access_token": token,
	}
	switch item.Kind {
	case models.MediaKindVideo:
		payload["video_url"] = item.SourceRef
		if carouselItem {
			payload["media_type"] = "VIDEO"
		} else {
			payload["media_type"] = "REELS"
		}
	default:
		payload["image_url"] = item.SourceRef
	}
	if carouselItem {
		payload["is_carousel_item"] = true
	} else {
		payload["caption"] = caption
	}

	var result transfer.InstagramContainer
	if err := doJSON(ctx, ig.client, http.MethodPost, fmt.Sprintf("%s/%s/media", ig.baseURL, userID), nil, payload, &result, ig.decodeError); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", Errorf(models.PlatformInstagram, 0, "no media ID returned from Instagram")
	}
	return result.ID, nil
}

func (ig *instagramAdapter) createCarousel(ctx context.Context, userID, token string, media []models.MediaItem, caption string) (string, error) {
	containerIDs := make([]string, 0, len(media))
	for _, item := range media {
		id, err := ig.createContainer(ctx, userID, token, item, "", true)
		if err != nil {
			return "", err
		}
		containerIDs = append(containerIDs, id)
	}

	payload := map[string]interface{}{
		"media_type":   "CAROUSEL",
		"caption":      caption,
		"children":     strings.Join(containerIDs, ","),
		"access_token": token,
	}
	var result transfer.InstagramContainer
	if err := doJSON(ctx, ig.client, http.MethodPost, fmt.Sprintf("%s/%s/media", ig.baseURL, userID), nil, payload, &result, ig.decodeError); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", Errorf(models.PlatformInstagram, 0, "no carousel ID returned from Instagram")
	}
	return result.ID, nil
}

// waitUntilReady polls the container until Instagram has finished ingesting
// the media. Image containers are usually FINISHED on the first poll.
func (ig *instagramAdapter) waitUntilReady(ctx context.Context, containerID, token string) error {
	params := url.Values{}
	params.Set("fields", "status_code")
	params.Set("access_token", token)
	endpoint := fmt.Sprintf("%s/%s?%s", ig.baseURL, containerID, params.Encode())

	for attempt := 0; attempt < ig.pollAttempts; attempt++ {
		var status transfer.InstagramContainer
		if err := doJSON(ctx, ig.client, http.MethodGet, endpoint, nil, nil, &status, ig.decodeError); err != nil {
			return err
		}
		switch status.StatusCode {
		case "", "FINISHED", "PUBLISHED":
			return nil
		case "ERROR", "EXPIRED":
			return Errorf(models.PlatformInstagram, 0, "media processing %s", strings.ToLower(status.StatusCode))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(ig.pollInterval):
		}
	}
	return Errorf(models.PlatformInstagram, 0, "media was not ready after %d checks", ig.pollAttempts)
}

func (ig *instagramAdapter) permalink(ctx context.Context, mediaID, token string) (string, error) {
	params := url.Values{}
	params.Set("fields", "permalink")
	params.Set("access_token", token)

	var result transfer.InstagramContainer
	if err := doJSON(ctx, ig.client, http.MethodGet, fmt.Sprintf("%s/%s?%s", ig.baseURL, mediaID, params.Encode()), nil, nil, &result, ig.decodeError); err != nil {
		return "", err
	}
	return result.Permalink, nil
}

func (ig *instagramAdapter) decodeError(status int, body []byte) *Error {
	var errResp transfer.InstagramErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		msg := errResp.Error.Message
		if errResp.Error.ErrorUserMsg != "" {
			msg = errResp.Error.ErrorUserMsg
		}
		return Errorf(models.PlatformInstagram, status, "%s", msg)
	}
	return Errorf(models.PlatformInstagram, status, "unexpected status code from Instagram: %d", status)
}
