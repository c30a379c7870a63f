package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

const TiktokAPIURL = "https://open.tiktokapis.com"

type TiktokConfig struct {
	BaseURL    string
	HTTPClient *http.Client
}

type tiktokAdapter struct {
	baseURL string
	client  *http.Client
}

func NewTiktokAdapter(cfg TiktokConfig) Adapter {
	a := &tiktokAdapter{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  newHTTPClient(cfg.HTTPClient),
	}
	if a.baseURL == "" {
		a.baseURL = TiktokAPIURL
	}
	return a
}

func (s *tiktokAdapter) Platform() string {
	return models.PlatformTiktok
}

func (s *tiktokAdapter) authHeader(token string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h
}

func (s *tiktokAdapter) ValidateAccount(ctx context.Context, credential string) (*models.Profile, error) {
	if credential == "" {
		return nil, Errorf(models.PlatformTiktok, 0, "access token is empty")
	}

	endpoint := s.baseURL + "/v2/user/info/?fields=open_id,avatar_url,display_name,username,is_verified,follower_count,profile_deep_link"

	var result transfer.TikTokResponse
	if err := doJSON(ctx, s.client, http.MethodGet, endpoint, s.authHeader(credential), nil, &result, s.decodeError); err != nil {
		return nil, err
	}
	if !result.Error.OK() {
		return nil, Errorf(models.PlatformTiktok, http.StatusOK, "%s", result.Error.Message)
	}

	user := result.Data.User
	return &models.Profile{
		DisplayName:   user.DisplayName,
		Username:      user.Username,
		FollowerCount: user.FollowerCount,
		Verified:      user.IsVerified,
		AvatarURL:     user.AvatarURL,
		Extra: map[string]string{
			"open_id":      user.OpenID,
			"profile_link": user.ProfileLink,
		},
	}, nil
}

func (s *tiktokAdapter) Publish(ctx context.Context, account *models.Account, content string, media []models.MediaItem) (*PublishResult, error) {
	if len(media) == 0 {
		return nil, Errorf(models.PlatformTiktok, 0, "TikTok requires a video or photos")
	}

	privacy, err := s.privacyLevel(ctx, account.Credential)
	if err != nil {
		return nil, err
	}

	var endpoint string
	var payload any

	if media[0].Kind == models.MediaKindVideo {
		endpoint = s.baseURL + "/v2/post/publish/video/init/"
		payload = transfer.VideoUploadRequest{
			PostInfo: transfer.VideoPostInfo{
				Title:                 content,
				PrivacyLevel:          privacy,
				VideoCoverTimestampMs: 1000,
			},
			SourceInfo: transfer.VideoSourceInfo{
				Source:   "PULL_FROM_URL",
				VideoURL: media[0].SourceRef,
			},
		}
	} else {
		photos := make([]string, 0, len(media))
		for _, item := range media {
			photos = append(photos, item.SourceRef)
		}
		endpoint = s.baseURL + "/v2/post/publish/content/init/"
		payload = transfer.PhotoUploadRequest{
			PostInfo: transfer.PhotoPostInfo{
				Description:  content,
				PrivacyLevel: privacy,
				AutoAddMusic: true,
			},
			SourceInfo: transfer.PhotoSourceInfo{
				Source:      "PULL_FROM_URL",
				PhotoImages: photos,
			},
			PostMode:  "DIRECT_POST",
			MediaType: "PHOTO",
		}
	}

	var result transfer.TikTokUploadResponse
	if err := doJSON(ctx, s.client, http.MethodPost, endpoint, s.authHeader(account.Credential), payload, &result, s.decodeError); err != nil {
		return nil, err
	}
	if !result.Error.OK() {
		return nil, Errorf(models.PlatformTiktok, http.StatusOK, "%s", result.Error.Message)
	}

	// TikTok publishes asynchronously and only hands back a publish id.
	return &PublishResult{}, nil
}

// privacyLevel asks TikTok which audiences the creator may post to and picks
// the most public one.
func (s *tiktokAdapter) privacyLevel(ctx context.Context, token string) (string, error) {
	var result struct {
		Data  transfer.TiktokCreatorInfo `json:"data"`
		Error transfer.TiktokError       `json:"error"`
	}
	if err := doJSON(ctx, s.client, http.MethodPost, s.baseURL+"/v2/post/publish/creator_info/query/", s.authHeader(token), struct{}{}, &result, s.decodeError); err != nil {
		return "", err
	}
	if !result.Error.OK() {
		return "", Errorf(models.PlatformTiktok, http.StatusOK, "%s", result.Error.Message)
	}

	options := result.Data.PrivacyLevelOptions
	for _, o := range options {
		if o == "PUBLIC_TO_EVERYONE" {
			return o, nil
		}
	}
	if len(options) > 0 {
		return options[0], nil
	}
	return "SELF_ONLY", nil
}

func (s *tiktokAdapter) decodeError(status int, body []byte) *Error {
	var result struct {
		Error transfer.TiktokError `json:"error"`
	}
	if err := json.Unmarshal(body, &result); err == nil && result.Error.Message != "" {
		return Errorf(models.PlatformTiktok, status, "%s", result.Error.Message)
	}
	return Errorf(models.PlatformTiktok, status, "TikTok returned status %d", status)
}
