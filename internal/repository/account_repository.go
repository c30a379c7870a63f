package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/pkg/utils"
)

const accountColumns = `id, platform, account_name, credential, connected, profile, last_published_at, created_at, updated_at`

type accountRepository struct {
	db  *sql.DB
	key []byte
}

// NewAccountRepository stores credentials AES-GCM encrypted with key.
func NewAccountRepository(db *sql.DB, key []byte) AccountRepository {
	return &accountRepository{db: db, key: key}
}

func (r *accountRepository) scan(row rowScanner) (*models.Account, error) {
	var a models.Account
	var credential string
	var profile []byte
	err := row.Scan(
		&a.ID,
		&a.Platform,
		&a.AccountName,
		&credential,
		&a.Connected,
		&profile,
		&a.LastPublishedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Credential, err = utils.Decrypt(credential, r.key)
	if err != nil {
		return nil, err
	}
	if len(profile) > 0 {
		a.Profile = &models.Profile{}
		if err := json.Unmarshal(profile, a.Profile); err != nil {
			return nil, err
		}
	}
	return &a, nil
}

func (r *accountRepository) list(ctx context.Context, query string, args ...any) ([]*models.Account, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		a, err := r.scan(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return accounts, nil
}

// marshalProfile returns nil for a missing profile so the column stays NULL.
func marshalProfile(p *models.Profile) (any, error) {
	if p == nil {
		return nil, nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (r *accountRepository) Create(ctx context.Context, a *models.Account) error {
	credential, err := utils.Encrypt([]byte(a.Credential), r.key)
	if err != nil {
		return err
	}
	profile, err := marshalProfile(a.Profile)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO accounts (id, platform, account_name, credential, connected, profile, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.db.ExecContext(ctx, query,
		a.ID,
		a.Platform,
		a.AccountName,
		credential,
		a.Connected,
		profile,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	a, err := r.scan(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return a, nil
}

func (r *accountRepository) List(ctx context.Context) ([]*models.Account, error) {
	return r.list(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at ASC`)
}

func (r *accountRepository) ListConnected(ctx context.Context) ([]*models.Account, error) {
	return r.list(ctx, `SELECT `+accountColumns+` FROM accounts WHERE connected = TRUE ORDER BY created_at ASC`)
}

func (r *accountRepository) CountByPlatform(ctx context.Context, platform string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts WHERE platform = $1`, platform).Scan(&n)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return n, nil
}

func (r *accountRepository) Update(ctx context.Context, a *models.Account) error {
	profile, err := marshalProfile(a.Profile)
	if err != nil {
		return err
	}

	query := `
		UPDATE accounts
		SET account_name = $1,
			connected = $2,
			profile = $3,
			updated_at = $4
		WHERE id = $5
	`
	res, err := r.db.ExecContext(ctx, query, a.AccountName, a.Connected, profile, a.UpdatedAt, a.ID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return requireRow(res)
}

func (r *accountRepository) SetProfile(ctx context.Context, id string, p *models.Profile, connected bool, at time.Time) error {
	profile, err := marshalProfile(p)
	if err != nil {
		return err
	}

	query := `
		UPDATE accounts
		SET profile = COALESCE($1, profile),
			connected = $2,
			updated_at = $3
		WHERE id = $4
	`
	res, err := r.db.ExecContext(ctx, query, profile, connected, at, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return requireRow(res)
}

func (r *accountRepository) SetLastPublished(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE accounts SET last_published_at = $1 WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return requireRow(res)
}

func (r *accountRepository) Remove(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
