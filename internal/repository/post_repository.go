package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/maheshrc27/crosspost/internal/models"
)

const postColumns = `id, content, media, target_accounts, scheduled_at, status, results, error_summary, created_at, updated_at, published_at`

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var post models.Post
	var media, results []byte
	err := row.Scan(
		&post.ID,
		&post.Content,
		&media,
		pq.Array(&post.TargetAccounts),
		&post.ScheduledAt,
		&post.Status,
		&results,
		&post.ErrorSummary,
		&post.CreatedAt,
		&post.UpdatedAt,
		&post.PublishedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(media) > 0 {
		if err := json.Unmarshal(media, &post.Media); err != nil {
			return nil, err
		}
	}
	if len(results) > 0 {
		if err := json.Unmarshal(results, &post.Results); err != nil {
			return nil, err
		}
	}
	return &post, nil
}

func scanPosts(rows *sql.Rows) ([]*models.Post, error) {
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	items := post.Media
	if items == nil {
		items = []models.MediaItem{}
	}
	media, err := json.Marshal(items)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO posts (id, content, media, target_accounts, scheduled_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.db.ExecContext(ctx, query,
		post.ID,
		post.Content,
		media,
		pq.Array(post.TargetAccounts),
		post.ScheduledAt,
		post.Status,
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *postRepository) List(ctx context.Context, status models.PostStatus) ([]*models.Post, error) {
	var rows *sql.Rows
	var err error

	if status == "" {
		rows, err = r.db.QueryContext(ctx, `SELECT `+postColumns+` FROM posts ORDER BY created_at DESC`)
	} else {
		rows, err = r.db.QueryContext(ctx, `SELECT `+postColumns+` FROM posts WHERE status = $1 ORDER BY created_at DESC`, status)
	}
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return scanPosts(rows)
}

func (r *postRepository) ClaimDue(ctx context.Context, now time.Time) ([]*models.Post, error) {
	query := `
		UPDATE posts
		SET status = $1,
			updated_at = $2
		WHERE id IN (
			SELECT id FROM posts
			WHERE status = $3 AND scheduled_at <= $2
			ORDER BY scheduled_at ASC
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + postColumns

	rows, err := r.db.QueryContext(ctx, query, models.PostStatusPosting, now, models.PostStatusScheduled)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return scanPosts(rows)
}

func (r *postRepository) Transition(ctx context.Context, id string, from, to models.PostStatus) (bool, error) {
	query := `
		UPDATE posts
		SET status = $1,
			updated_at = $2
		WHERE id = $3 AND status = $4
	`
	res, err := r.db.ExecContext(ctx, query, to, time.Now(), id, from)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *postRepository) Complete(ctx context.Context, id string, outcome models.Outcome) error {
	results, err := json.Marshal(outcome.Results)
	if err != nil {
		return err
	}

	query := `
		UPDATE posts
		SET status = $1,
			results = $2,
			error_summary = $3,
			published_at = $4,
			updated_at = $5
		WHERE id = $6 AND status = $7
	`
	res, err := r.db.ExecContext(ctx, query,
		outcome.Status,
		results,
		outcome.ErrorSummary,
		outcome.PublishedAt,
		time.Now(),
		id,
		models.PostStatusPosting,
	)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotClaimed
	}
	return nil
}

func (r *postRepository) Remove(ctx context.Context, id string) (bool, error) {
	query := `DELETE FROM posts WHERE id = $1 AND status <> $2`
	res, err := r.db.ExecContext(ctx, query, id, models.PostStatusPosting)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
