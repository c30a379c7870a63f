package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"strings"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

var allowedTypes = map[string]struct{}{
	"mp4": {}, "mov": {}, "jpg": {}, "png": {}, "gif": {}, "webp": {},
}

type MediaUpload struct {
	Filename string
	Data     []byte
}

// PublishEnqueuer hands an immediate publish to a background worker.
type PublishEnqueuer interface {
	EnqueuePublish(ctx context.Context, postID string) error
}

type PostService interface {
	CreatePost(ctx context.Context, pc *transfer.PostCreation, uploads []MediaUpload) (*models.Post, error)
	List(ctx context.Context, status models.PostStatus) ([]*models.Post, error)
	PostInfo(ctx context.Context, id string) (*models.Post, error)
	Remove(ctx context.Context, id string) error
	PublishNow(ctx context.Context, id string) (*models.Post, error)
	Dispatch(ctx context.Context, id string) (*PublishReport, error)
}

type postService struct {
	pr         repository.PostRepository
	accounts   AccountRegistry
	dispatcher *Dispatcher
	composer   *Composer
	store      MediaStore
	enqueuer   PublishEnqueuer
	now        func() time.Time
}

// NewPostService wires the post use cases. store may be nil, which rejects
// uploads. enqueuer may be nil, in which case immediate publishes run inline.
func NewPostService(
	pr repository.PostRepository,
	accounts AccountRegistry,
	dispatcher *Dispatcher,
	composer *Composer,
	store MediaStore,
	enqueuer PublishEnqueuer) PostService {
	return &postService{
		pr:         pr,
		accounts:   accounts,
		dispatcher: dispatcher,
		composer:   composer,
		store:      store,
		enqueuer:   enqueuer,
		now:        time.Now,
	}
}

func (s *postService) CreatePost(ctx context.Context, pc *transfer.PostCreation, uploads []MediaUpload) (*models.Post, error) {
	if pc == nil {
		return nil, validationErrorf("post creation data is nil")
	}

	content, err := s.composer.ComposeChecked(pc.Content, pc.Hashtags)
	if err != nil {
		return nil, err
	}
	if content == "" && len(uploads) == 0 {
		return nil, validationErrorf("a post needs content or media")
	}
	if len(uploads) > models.MaxMediaItems {
		return nil, validationErrorf("a post can carry at most %d media files", models.MaxMediaItems)
	}
	if len(uploads) > 0 && s.store == nil {
		return nil, validationErrorf("media uploads are not configured")
	}
	if pc.ScheduledAt != nil && !pc.ScheduledAt.After(s.now()) {
		return nil, validationErrorf("scheduled_at must be in the future")
	}

	targets, err := s.checkTargets(ctx, pc.TargetAccounts)
	if err != nil {
		return nil, err
	}

	items, err := s.processFiles(ctx, uploads, pc.MediaMeta)
	if err != nil {
		return nil, err
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}

	now := s.now()
	post := &models.Post{
		ID:             id,
		Content:        content,
		Media:          items,
		TargetAccounts: targets,
		Status:         models.PostStatusDraft,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if pc.ScheduledAt != nil {
		at := pc.ScheduledAt.UTC()
		post.ScheduledAt = &at
		post.Status = models.PostStatusScheduled
	}

	if err := s.pr.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("error creating post: %w", err)
	}
	slog.Info("post created", slog.String("post_id", id), slog.String("status", string(post.Status)))

	if pc.PublishNow && post.Status == models.PostStatusDraft {
		return s.PublishNow(ctx, id)
	}
	return post, nil
}

func (s *postService) checkTargets(ctx context.Context, ids []string) ([]string, error) {
	seen := make(map[string]struct{}, len(ids))
	targets := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		targets = append(targets, id)
	}
	if len(targets) == 0 {
		return nil, validationErrorf("select at least one account")
	}

	for _, id := range targets {
		if _, err := s.accounts.GetAccount(ctx, id); err != nil {
			if isNotFound(err) {
				return nil, validationErrorf("account %s does not exist", id)
			}
			return nil, err
		}
	}
	return targets, nil
}

func (s *postService) processFiles(ctx context.Context, uploads []MediaUpload, meta []transfer.MediaMeta) ([]models.MediaItem, error) {
	items := make([]models.MediaItem, 0, len(uploads))
	for i, upload := range uploads {
		fileType, err := filetype.Match(upload.Data)
		if err != nil || fileType == types.Unknown {
			return nil, validationErrorf("unsupported file type for %s", upload.Filename)
		}
		if _, ok := allowedTypes[fileType.Extension]; !ok {
			return nil, validationErrorf("file type %s is not allowed", fileType.Extension)
		}

		id, err := gonanoid.New()
		if err != nil {
			return nil, err
		}

		item := models.MediaItem{
			ID:        id,
			MimeType:  fileType.MIME.Value,
			SizeBytes: int64(len(upload.Data)),
		}
		if filetype.IsVideo(upload.Data) {
			item.Kind = models.MediaKindVideo
		} else {
			item.Kind = models.MediaKindImage
			if cfg, _, err := image.DecodeConfig(bytes.NewReader(upload.Data)); err == nil {
				item.Width, item.Height = cfg.Width, cfg.Height
			}
		}
		if i < len(meta) {
			if item.Kind == models.MediaKindVideo {
				item.DurationSeconds = meta[i].DurationSeconds
			}
			if item.Width == 0 && item.Height == 0 {
				item.Width, item.Height = meta[i].Width, meta[i].Height
			}
		}

		key := id + "." + fileType.Extension
		url, err := s.store.Put(ctx, key, upload.Data, fileType.MIME.Value)
		if err != nil {
			return nil, fmt.Errorf("error uploading file: %w", err)
		}
		item.SourceRef = url
		items = append(items, item)
	}
	return items, nil
}

func (s *postService) List(ctx context.Context, status models.PostStatus) ([]*models.Post, error) {
	switch status {
	case "", models.PostStatusDraft, models.PostStatusScheduled, models.PostStatusPosting, models.PostStatusPosted, models.PostStatusFailed:
	default:
		return nil, validationErrorf("unknown status %q", status)
	}

	posts, err := s.pr.List(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("error listing posts: %w", err)
	}
	return posts, nil
}

func (s *postService) PostInfo(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.pr.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error fetching post: %w", err)
	}
	if post == nil {
		return nil, fmt.Errorf("post %s: %w", id, ErrNotFound)
	}
	return post, nil
}

func (s *postService) Remove(ctx context.Context, id string) error {
	post, err := s.PostInfo(ctx, id)
	if err != nil {
		return err
	}
	if post.Status == models.PostStatusPosting {
		return fmt.Errorf("post %s: %w", id, ErrPostBusy)
	}

	removed, err := s.pr.Remove(ctx, id)
	if err != nil {
		return fmt.Errorf("error removing post: %w", err)
	}
	if !removed {
		// Claimed between the read and the delete.
		return fmt.Errorf("post %s: %w", id, ErrPostBusy)
	}
	return nil
}

// PublishNow publishes a draft or scheduled post right away. With an
// enqueuer the work is handed off and the post is returned as it stands;
// otherwise the dispatch runs inline and the finished post is returned.
func (s *postService) PublishNow(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.PostInfo(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.Status != models.PostStatusDraft && post.Status != models.PostStatusScheduled {
		return nil, fmt.Errorf("post %s is %s: %w", id, post.Status, ErrPostNotDispatchable)
	}

	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueuePublish(ctx, id); err != nil {
			return nil, fmt.Errorf("error enqueueing publish: %w", err)
		}
		return post, nil
	}

	if _, err := s.Dispatch(ctx, id); err != nil {
		return nil, err
	}
	return s.PostInfo(ctx, id)
}

func (s *postService) Dispatch(ctx context.Context, id string) (*PublishReport, error) {
	post, err := s.PostInfo(ctx, id)
	if err != nil {
		return nil, err
	}

	accounts, err := s.accounts.Resolve(ctx, post.TargetAccounts)
	if err != nil {
		return nil, err
	}

	report, err := s.dispatcher.PublishPost(ctx, post, accounts)
	if err != nil && post.Status == models.PostStatusPosting {
		// The claim went through but the outcome was never written.
		s.failClaimed(context.WithoutCancel(ctx), id, err)
	}
	return report, err
}

// failClaimed moves a claimed post to failed. A post that already left
// posting is left alone.
func (s *postService) failClaimed(ctx context.Context, id string, cause error) {
	err := s.pr.Complete(ctx, id, models.Outcome{
		Status:       models.PostStatusFailed,
		ErrorSummary: cause.Error(),
	})
	if err != nil && !errors.Is(err, repository.ErrNotClaimed) && !errors.Is(err, repository.ErrNotFound) {
		slog.Error("could not fail claimed post", slog.String("post_id", id), slog.String("error", err.Error()))
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
