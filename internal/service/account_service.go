package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/repository"
)

const MaxAccountsPerPlatform = 10

type AccountPatch struct {
	AccountName *string
	Connected   *bool
}

// AccountRegistry owns connected accounts. Reads hand out copies, so a
// dispatch in flight keeps working on the snapshot it resolved even if the
// account is edited or removed meanwhile.
type AccountRegistry interface {
	AddAccount(ctx context.Context, platformID, label, credential string) (*models.Account, error)
	UpdateAccount(ctx context.Context, id string, patch AccountPatch) (*models.Account, error)
	RemoveAccount(ctx context.Context, id string) error
	RefreshProfile(ctx context.Context, id string) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]*models.Account, error)
	ListConnected(ctx context.Context) ([]*models.Account, error)
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	Resolve(ctx context.Context, ids []string) ([]*models.Account, error)
	RecordPublished(ctx context.Context, id string, at time.Time) error
}

type accountRegistry struct {
	ar       repository.AccountRepository
	adapters *platform.Registry
	now      func() time.Time
}

func NewAccountRegistry(ar repository.AccountRepository, adapters *platform.Registry) AccountRegistry {
	return &accountRegistry{
		ar:       ar,
		adapters: adapters,
		now:      time.Now,
	}
}

func (s *accountRegistry) AddAccount(ctx context.Context, platformID, label, credential string) (*models.Account, error) {
	platformID = strings.ToLower(strings.TrimSpace(platformID))
	credential = strings.TrimSpace(credential)
	label = strings.TrimSpace(label)

	adapter, err := s.adapters.Get(platformID)
	if err != nil {
		return nil, validationErrorf("%s", err.Error())
	}
	if credential == "" {
		return nil, validationErrorf("credential cannot be empty")
	}

	count, err := s.ar.CountByPlatform(ctx, platformID)
	if err != nil {
		return nil, fmt.Errorf("error counting accounts: %w", err)
	}
	if count >= MaxAccountsPerPlatform {
		return nil, validationErrorf("at most %d %s accounts can be connected", MaxAccountsPerPlatform, platformID)
	}

	profile, err := adapter.ValidateAccount(ctx, credential)
	if err != nil {
		if pe, ok := platform.AsError(err); ok {
			return nil, validationErrorf("account validation failed: %s", pe.Message)
		}
		slog.Info(err.Error())
		return nil, fmt.Errorf("error validating account: %w", err)
	}

	if label == "" && profile != nil {
		label = profile.DisplayName
		if label == "" {
			label = profile.Username
		}
	}
	if label == "" {
		label = platformID
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}

	now := s.now()
	account := &models.Account{
		ID:          id,
		Platform:    platformID,
		AccountName: label,
		Credential:  credential,
		Connected:   true,
		Profile:     profile,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.ar.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("error saving account: %w", err)
	}

	slog.Info("account connected", slog.String("account_id", id), slog.String("platform", platformID))
	return account.Clone(), nil
}

func (s *accountRegistry) UpdateAccount(ctx context.Context, id string, patch AccountPatch) (*models.Account, error) {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.AccountName != nil {
		name := strings.TrimSpace(*patch.AccountName)
		if name == "" {
			return nil, validationErrorf("account name cannot be empty")
		}
		account.AccountName = name
	}
	if patch.Connected != nil {
		account.Connected = *patch.Connected
	}
	account.UpdatedAt = s.now()

	if err := s.ar.Update(ctx, account); err != nil {
		return nil, s.wrapNotFound(id, err)
	}
	return account, nil
}

func (s *accountRegistry) RemoveAccount(ctx context.Context, id string) error {
	if err := s.ar.Remove(ctx, id); err != nil {
		return s.wrapNotFound(id, err)
	}
	slog.Info("account removed", slog.String("account_id", id))
	return nil
}

// RefreshProfile re-validates the stored credential. A rejection by the
// platform disconnects the account; transport failures leave it untouched.
func (s *accountRegistry) RefreshProfile(ctx context.Context, id string) (*models.Account, error) {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	adapter, err := s.adapters.Get(account.Platform)
	if err != nil {
		return nil, validationErrorf("%s", err.Error())
	}

	profile, err := adapter.ValidateAccount(ctx, account.Credential)
	if err != nil {
		pe, ok := platform.AsError(err)
		if !ok {
			return nil, fmt.Errorf("error refreshing profile: %w", err)
		}
		// Only the check result is written, so a rename made while the
		// platform was being called survives.
		if uerr := s.ar.SetProfile(ctx, id, nil, false, s.now()); uerr != nil {
			return nil, s.wrapNotFound(id, uerr)
		}
		slog.Info("account disconnected", slog.String("account_id", id), slog.String("reason", pe.Message))
		refreshed, gerr := s.GetAccount(ctx, id)
		if gerr != nil {
			return nil, gerr
		}
		return refreshed, validationErrorf("account validation failed: %s", pe.Message)
	}

	if err := s.ar.SetProfile(ctx, id, profile, true, s.now()); err != nil {
		return nil, s.wrapNotFound(id, err)
	}
	return s.GetAccount(ctx, id)
}

func (s *accountRegistry) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	accounts, err := s.ar.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing accounts: %w", err)
	}
	return accounts, nil
}

func (s *accountRegistry) ListConnected(ctx context.Context) ([]*models.Account, error) {
	accounts, err := s.ar.ListConnected(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing accounts: %w", err)
	}
	return accounts, nil
}

func (s *accountRegistry) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	account, err := s.ar.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error fetching account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	return account, nil
}

// Resolve returns one account per id, in order. Ids that no longer exist
// come back as disconnected placeholders so they are skipped, not attempted.
func (s *accountRegistry) Resolve(ctx context.Context, ids []string) ([]*models.Account, error) {
	accounts := make([]*models.Account, 0, len(ids))
	for _, id := range ids {
		account, err := s.ar.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("error resolving account %s: %w", id, err)
		}
		if account == nil {
			account = &models.Account{ID: id, AccountName: id}
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

func (s *accountRegistry) RecordPublished(ctx context.Context, id string, at time.Time) error {
	if err := s.ar.SetLastPublished(ctx, id, at); err != nil {
		return s.wrapNotFound(id, err)
	}
	return nil
}

func (s *accountRegistry) wrapNotFound(id string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	return err
}
