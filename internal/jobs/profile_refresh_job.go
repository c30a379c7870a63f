package job

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/service"
)

const refreshConcurrency = 10

// ProfileRefreshJob re-validates every connected account so that revoked
// credentials show up as disconnected before the next dispatch.
type ProfileRefreshJob struct {
	accounts service.AccountRegistry
}

func NewProfileRefreshJob(accounts service.AccountRegistry) *ProfileRefreshJob {
	return &ProfileRefreshJob{accounts: accounts}
}

// RefreshProfiles is the cron entry point.
func (j *ProfileRefreshJob) RefreshProfiles() {
	j.Run(context.Background())
}

// Run refreshes all connected accounts and returns how many were refreshed
// successfully.
func (j *ProfileRefreshJob) Run(ctx context.Context) int {
	accounts, err := j.accounts.ListConnected(ctx)
	if err != nil {
		slog.Info(err.Error())
		return 0
	}

	var (
		wg        sync.WaitGroup
		refreshed atomic.Int32
	)
	semaphore := make(chan struct{}, refreshConcurrency)

	for _, acc := range accounts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.Account) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if _, err := j.accounts.RefreshProfile(ctx, acc.ID); err != nil {
				slog.Info("Unable to refresh profile",
					slog.String("account_id", acc.ID),
					slog.String("platform", acc.Platform),
					slog.String("error", err.Error()))
				return
			}
			refreshed.Add(1)
		}(acc)
	}
	wg.Wait()

	return int(refreshed.Load())
}
