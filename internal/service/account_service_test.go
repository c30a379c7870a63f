package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/platform"
)

func TestAccountRegistry_AddAccount(t *testing.T) {
	e := newEnv(t, "instagram")
	ctx := context.Background()

	account, err := e.registry.AddAccount(ctx, " Instagram ", "", "ig-token")
	require.NoError(t, err)
	assert.NotEmpty(t, account.ID)
	assert.Equal(t, "instagram", account.Platform)
	assert.Equal(t, "Display instagram", account.AccountName)
	assert.True(t, account.Connected)
	require.NotNil(t, account.Profile)

	stored, err := e.registry.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "ig-token", stored.Credential)
}

func TestAccountRegistry_AddAccountRejected(t *testing.T) {
	e := newEnv(t, "twitter")
	e.fakes["twitter"].validate = func(ctx context.Context, credential string) (*models.Profile, error) {
		return nil, platform.Errorf("twitter", 401, "Invalid or expired token")
	}
	ctx := context.Background()

	_, err := e.registry.AddAccount(ctx, "twitter", "Brand", "bad")
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "Invalid or expired token")

	accounts, err := e.registry.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestAccountRegistry_AddAccountTransportFailure(t *testing.T) {
	e := newEnv(t, "twitter")
	e.fakes["twitter"].validate = func(ctx context.Context, credential string) (*models.Profile, error) {
		return nil, errors.New("connection reset by peer")
	}

	_, err := e.registry.AddAccount(context.Background(), "twitter", "Brand", "tok")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrValidation))
}

func TestAccountRegistry_AddAccountInputChecks(t *testing.T) {
	e := newEnv(t, "twitter")
	ctx := context.Background()

	_, err := e.registry.AddAccount(ctx, "myspace", "Brand", "tok")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = e.registry.AddAccount(ctx, "twitter", "Brand", "  ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAccountRegistry_PlatformLimit(t *testing.T) {
	e := newEnv(t, "twitter")
	ctx := context.Background()

	for i := 0; i < MaxAccountsPerPlatform; i++ {
		_, err := e.registry.AddAccount(ctx, "twitter", fmt.Sprintf("acct %d", i), "tok")
		require.NoError(t, err)
	}
	_, err := e.registry.AddAccount(ctx, "twitter", "one too many", "tok")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAccountRegistry_UpdateAccount(t *testing.T) {
	e := newEnv(t, "twitter")
	e.addAccount(t, "a1", "twitter", "Old", true)
	ctx := context.Background()

	name := "  New Name "
	off := false
	account, err := e.registry.UpdateAccount(ctx, "a1", AccountPatch{AccountName: &name, Connected: &off})
	require.NoError(t, err)
	assert.Equal(t, "New Name", account.AccountName)
	assert.False(t, account.Connected)

	empty := ""
	_, err = e.registry.UpdateAccount(ctx, "a1", AccountPatch{AccountName: &empty})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = e.registry.UpdateAccount(ctx, "missing", AccountPatch{Connected: &off})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAccountRegistry_RefreshProfile(t *testing.T) {
	e := newEnv(t, "twitter")
	e.addAccount(t, "a1", "twitter", "Brand", true)
	ctx := context.Background()

	account, err := e.registry.RefreshProfile(ctx, "a1")
	require.NoError(t, err)
	require.NotNil(t, account.Profile)
	assert.Equal(t, "user_twitter", account.Profile.Username)

	e.fakes["twitter"].validate = func(ctx context.Context, credential string) (*models.Profile, error) {
		return nil, errors.New("i/o timeout")
	}
	_, err = e.registry.RefreshProfile(ctx, "a1")
	require.Error(t, err)
	stored, _ := e.registry.GetAccount(ctx, "a1")
	assert.True(t, stored.Connected)

	e.fakes["twitter"].validate = func(ctx context.Context, credential string) (*models.Profile, error) {
		return nil, platform.Errorf("twitter", 401, "Token revoked")
	}
	account, err = e.registry.RefreshProfile(ctx, "a1")
	assert.ErrorIs(t, err, ErrValidation)
	require.NotNil(t, account)
	assert.False(t, account.Connected)
	stored, _ = e.registry.GetAccount(ctx, "a1")
	assert.False(t, stored.Connected)
}

func TestAccountRegistry_ResolveKeepsOrderAndSnapshots(t *testing.T) {
	e := newEnv(t, "twitter")
	e.addAccount(t, "a1", "twitter", "One", true)
	e.addAccount(t, "a2", "twitter", "Two", true)
	ctx := context.Background()

	accounts, err := e.registry.Resolve(ctx, []string{"a2", "ghost", "a1"})
	require.NoError(t, err)
	require.Len(t, accounts, 3)
	assert.Equal(t, "a2", accounts[0].ID)
	assert.Equal(t, "ghost", accounts[1].ID)
	assert.False(t, accounts[1].Connected)
	assert.Empty(t, accounts[1].Platform)
	assert.Equal(t, "a1", accounts[2].ID)

	require.NoError(t, e.registry.RemoveAccount(ctx, "a1"))
	assert.Equal(t, "One", accounts[2].AccountName)
	assert.ErrorIs(t, e.registry.RemoveAccount(ctx, "a1"), ErrNotFound)
}

func TestAccountRegistry_RefreshKeepsConcurrentRename(t *testing.T) {
	e := newEnv(t, "twitter")
	e.addAccount(t, "a1", "twitter", "Old", true)
	ctx := context.Background()

	renamed := "Renamed mid-refresh"
	e.fakes["twitter"].validate = func(ctx context.Context, credential string) (*models.Profile, error) {
		_, err := e.registry.UpdateAccount(ctx, "a1", AccountPatch{AccountName: &renamed})
		require.NoError(t, err)
		return &models.Profile{DisplayName: "Fresh", Username: "fresh"}, nil
	}

	account, err := e.registry.RefreshProfile(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, renamed, account.AccountName)
	require.NotNil(t, account.Profile)
	assert.Equal(t, "fresh", account.Profile.Username)

	stored, err := e.registry.GetAccount(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, renamed, stored.AccountName)
	assert.True(t, stored.Connected)

	e.fakes["twitter"].validate = func(ctx context.Context, credential string) (*models.Profile, error) {
		again := "Renamed again"
		_, err := e.registry.UpdateAccount(ctx, "a1", AccountPatch{AccountName: &again})
		require.NoError(t, err)
		return nil, platform.Errorf("twitter", 401, "Token revoked")
	}
	account, err = e.registry.RefreshProfile(ctx, "a1")
	assert.ErrorIs(t, err, ErrValidation)
	require.NotNil(t, account)
	assert.Equal(t, "Renamed again", account.AccountName)
	assert.False(t, account.Connected)
	require.NotNil(t, account.Profile)
	assert.Equal(t, "fresh", account.Profile.Username)
}
