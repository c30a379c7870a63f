package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/maheshrc27/crosspost/internal/models"
)

const youtubeTitleLimit = 100

type YoutubeConfig struct {
	// With a client id set, credentials are treated as refresh tokens and
	// exchanged through Google's token endpoint. Without one they are used
	// as bearer access tokens as-is.
	ClientID     string
	ClientSecret string
	Endpoint     string
	HTTPClient   *http.Client
}

type youtubeAdapter struct {
	cfg    YoutubeConfig
	client *http.Client
}

func NewYoutubeAdapter(cfg YoutubeConfig) Adapter {
	return &youtubeAdapter{cfg: cfg, client: newHTTPClient(cfg.HTTPClient)}
}

func (y *youtubeAdapter) Platform() string {
	return models.PlatformYoutube
}

func (y *youtubeAdapter) tokenSource(ctx context.Context, credential string) oauth2.TokenSource {
	if y.cfg.ClientID == "" {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: credential})
	}
	conf := &oauth2.Config{
		ClientID:     y.cfg.ClientID,
		ClientSecret: y.cfg.ClientSecret,
		Scopes:       []string{youtube.YoutubeUploadScope, youtube.YoutubeReadonlyScope},
		Endpoint:     google.Endpoint,
	}
	return conf.TokenSource(ctx, &oauth2.Token{RefreshToken: credential})
}

func (y *youtubeAdapter) service(ctx context.Context, credential string) (*youtube.Service, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, y.client)
	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, y.tokenSource(ctx, credential)))}
	if y.cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(y.cfg.Endpoint))
	}
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating YouTube service: %w", err)
	}
	return service, nil
}

func (y *youtubeAdapter) ValidateAccount(ctx context.Context, credential string) (*models.Profile, error) {
	if credential == "" {
		return nil, Errorf(models.PlatformYoutube, 0, "token is empty")
	}

	service, err := y.service(ctx, credential)
	if err != nil {
		return nil, err
	}

	resp, err := service.Channels.List([]string{"snippet", "statistics"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return nil, y.wrapError(err)
	}
	if len(resp.Items) == 0 {
		return nil, Errorf(models.PlatformYoutube, 0, "no YouTube channel found for this token")
	}

	channel := resp.Items[0]
	profile := &models.Profile{
		Extra: map[string]string{"channel_id": channel.Id},
	}
	if channel.Snippet != nil {
		profile.DisplayName = channel.Snippet.Title
		profile.Username = strings.TrimPrefix(channel.Snippet.CustomUrl, "@")
		if channel.Snippet.Thumbnails != nil && channel.Snippet.Thumbnails.Default != nil {
			profile.AvatarURL = channel.Snippet.Thumbnails.Default.Url
		}
	}
	if channel.Statistics != nil && !channel.Statistics.HiddenSubscriberCount {
		n := int64(channel.Statistics.SubscriberCount)
		profile.FollowerCount = &n
		profile.Extra["video_count"] = fmt.Sprintf("%d", channel.Statistics.VideoCount)
	}
	return profile, nil
}

func (y *youtubeAdapter) Publish(ctx context.Context, account *models.Account, content string, media []models.MediaItem) (*PublishResult, error) {
	if len(media) != 1 || media[0].Kind != models.MediaKindVideo {
		return nil, Errorf(models.PlatformYoutube, 0, "YouTube requires exactly one video")
	}

	service, err := y.service(ctx, account.Credential)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, media[0].SourceRef, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating download request: %w", err)
	}
	download, err := y.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error downloading video: %w", err)
	}
	defer download.Body.Close()
	if download.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status downloading video: %d", download.StatusCode)
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       videoTitle(content),
			Description: content,
			CategoryId:  "22",
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: "public",
		},
	}

	uploaded, err := service.Videos.Insert([]string{"snippet", "status"}, video).Media(download.Body).Context(ctx).Do()
	if err != nil {
		return nil, y.wrapError(err)
	}
	return &PublishResult{URL: "https://youtu.be/" + uploaded.Id}, nil
}

// wrapError keeps API rejections as platform errors and everything else as
// transport failures.
func (y *youtubeAdapter) wrapError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		msg := gerr.Message
		if msg == "" {
			msg = fmt.Sprintf("YouTube returned status %d", gerr.Code)
		}
		return Errorf(models.PlatformYoutube, gerr.Code, "%s", msg)
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return Errorf(models.PlatformYoutube, http.StatusUnauthorized, "token refresh failed: %s", rerr.ErrorCode)
	}
	return err
}

func videoTitle(content string) string {
	title := strings.TrimSpace(strings.SplitN(content, "\n", 2)[0])
	if title == "" {
		title = "Untitled"
	}
	if utf8.RuneCountInString(title) > youtubeTitleLimit {
		runes := []rune(title)
		title = string(runes[:youtubeTitleLimit])
	}
	return title
}
