package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

const (
	FacebookGraphURL = "https://graph.facebook.com/v23.0"
	FacebookWebURL   = "https://www.facebook.com"

	fbExtraPageID = "page_id"
)

// FacebookConfig configures the Page publishing adapter. Credentials are
// Page Access Tokens, so /me resolves to the page itself.
type FacebookConfig struct {
	BaseURL    string
	WebURL     string
	HTTPClient *http.Client
}

type facebookAdapter struct {
	baseURL string
	webURL  string
	client  *http.Client
}

func NewFacebookAdapter(cfg FacebookConfig) Adapter {
	a := &facebookAdapter{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		webURL:  strings.TrimRight(cfg.WebURL, "/"),
		client:  newHTTPClient(cfg.HTTPClient),
	}
	if a.baseURL == "" {
		a.baseURL = FacebookGraphURL
	}
	if a.webURL == "" {
		a.webURL = FacebookWebURL
	}
	return a
}

func (fb *facebookAdapter) Platform() string {
	return models.PlatformFacebook
}

func (fb *facebookAdapter) ValidateAccount(ctx context.Context, credential string) (*models.Profile, error) {
	if credential == "" {
		return nil, Errorf(models.PlatformFacebook, 0, "access token is empty")
	}

	params := url.Values{}
	params.Set("fields", "id,name,username,link,category,fan_count,followers_count,picture{url}")
	params.Set("access_token", credential)

	var page transfer.FacebookPage
	if err := doJSON(ctx, fb.client, http.MethodGet, fb.baseURL+"/me?"+params.Encode(), nil, nil, &page, fb.decodeError); err != nil {
		return nil, err
	}
	if page.ID == "" {
		return nil, Errorf(models.PlatformFacebook, 0, "token is not linked to a Facebook Page")
	}

	followers := page.FollowersCount
	if followers == nil {
		followers = page.FanCount
	}
	extra := map[string]string{fbExtraPageID: page.ID}
	if page.Link != "" {
		extra["link"] = page.Link
	}
	if page.Category != "" {
		extra["category"] = page.Category
	}

	return &models.Profile{
		DisplayName:   page.Name,
		Username:      page.Username,
		FollowerCount: followers,
		AvatarURL:     page.Picture.Data.URL,
		Extra:         extra,
	}, nil
}

func (fb *facebookAdapter) Publish(ctx context.Context, account *models.Account, content string, media []models.MediaItem) (*PublishResult, error) {
	pageID := "me"
	if account.Profile != nil && account.Profile.Extra[fbExtraPageID] != "" {
		pageID = account.Profile.Extra[fbExtraPageID]
	}
	token := account.Credential

	switch {
	case len(media) == 0:
		return fb.publishFeed(ctx, pageID, token, content, nil)
	case len(media) == 1 && media[0].Kind == models.MediaKindVideo:
		return fb.publishVideo(ctx, pageID, token, content, media[0])
	case len(media) == 1:
		return fb.publishPhoto(ctx, pageID, token, content, media[0])
	}

	for _, item := range media {
		if item.Kind == models.MediaKindVideo {
			return nil, Errorf(models.PlatformFacebook, 0, "videos cannot be combined with other media in one Facebook post")
		}
	}
	refs := make([]transfer.FacebookMediaRef, 0, len(media))
	for _, item := range media {
		id, err := fb.uploadPhoto(ctx, pageID, token, item)
		if err != nil {
			return nil, err
		}
		refs = append(refs, transfer.FacebookMediaRef{MediaFbid: id})
	}
	return fb.publishFeed(ctx, pageID, token, content, refs)
}

func (fb *facebookAdapter) publishFeed(ctx context.Context, pageID, token, message string, attached []transfer.FacebookMediaRef) (*PublishResult, error) {
	payload := map[string]interface{}{
		"message":      message,
		"access_token": token,
	}
	if len(attached) > 0 {
		payload["attached_media"] = attached
	}

	var result transfer.FacebookPostResult
	if err := doJSON(ctx, fb.client, http.MethodPost, fmt.Sprintf("%s/%s/feed", fb.baseURL, pageID), nil, payload, &result, fb.decodeError); err != nil {
		return nil, err
	}
	if result.ID == "" {
		return nil, Errorf(models.PlatformFacebook, 0, "no post ID returned from Facebook")
	}
	return &PublishResult{URL: fb.webURL + "/" + result.ID}, nil
}

func (fb *facebookAdapter) publishPhoto(ctx context.Context, pageID, token, caption string, item models.MediaItem) (*PublishResult, error) {
	payload := map[string]interface{}{
		"url":          item.SourceRef,
		"caption":      caption,
		"access_token": token,
	}

	var result transfer.FacebookPostResult
	if err := doJSON(ctx, fb.client, http.MethodPost, fmt.Sprintf("%s/%s/photos", fb.baseURL, pageID), nil, payload, &result, fb.decodeError); err != nil {
		return nil, err
	}
	switch {
	case result.PostID != "":
		return &PublishResult{URL: fb.webURL + "/" + result.PostID}, nil
	case result.ID != "":
		return &PublishResult{URL: fb.webURL + "/" + result.ID}, nil
	}
	return nil, Errorf(models.PlatformFacebook, 0, "no photo ID returned from Facebook")
}

// uploadPhoto stores an unpublished photo so it can be attached to a feed post.
func (fb *facebookAdapter) uploadPhoto(ctx context.Context, pageID, token string, item models.MediaItem) (string, error) {
	payload := map[string]interface{}{
		"url":          item.SourceRef,
		"published":    false,
		"access_token": token,
	}

	var result transfer.FacebookPostResult
	if err := doJSON(ctx, fb.client, http.MethodPost, fmt.Sprintf("%s/%s/photos", fb.baseURL, pageID), nil, payload, &result, fb.decodeError); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", Errorf(models.PlatformFacebook, 0, "no photo ID returned from Facebook")
	}
	return result.ID, nil
}

func (fb *facebookAdapter) publishVideo(ctx context.Context, pageID, token, description string, item models.MediaItem) (*PublishResult, error) {
	payload := map[string]interface{}{
		"file_url":     item.SourceRef,
		"description":  description,
		"access_token": token,
	}

	var result transfer.FacebookPostResult
	if err := doJSON(ctx, fb.client, http.MethodPost, fmt.Sprintf("%s/%s/videos", fb.baseURL, pageID), nil, payload, &result, fb.decodeError); err != nil {
		return nil, err
	}
	if result.ID == "" {
		return nil, Errorf(models.PlatformFacebook, 0, "no video ID returned from Facebook")
	}
	return &PublishResult{URL: fmt.Sprintf("%s/%s/videos/%s", fb.webURL, pageID, result.ID)}, nil
}

func (fb *facebookAdapter) decodeError(status int, body []byte) *Error {
	var errResp transfer.FacebookErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		msg := errResp.Error.Message
		if errResp.Error.ErrorUserMsg != "" {
			msg = errResp.Error.ErrorUserMsg
		}
		return Errorf(models.PlatformFacebook, status, "%s", msg)
	}
	return Errorf(models.PlatformFacebook, status, "unexpected status code from Facebook: %d", status)
}
