package ports

import (
	"context"

	"github.com/gtsurkav-sudo/JOJIAI/internal/models/entities"
)

// RetentionUseCase defines the retention maintenance business logic.
type RetentionUseCase interface {
	// CleanupOlderThan removes (or soft-deletes) records older than the
	// request cutoff, in batches, and reports what was done.
	CleanupOlderThan(ctx context.Context, req entities.CleanupRequest) (*entities.CleanupReport, error)

	// StartAsyncCleanup launches a cleanup in the background and returns
	// a task identifier for status polling.
	StartAsyncCleanup(ctx context.Context, req entities.CleanupRequest) (string, error)

	// GetCleanupStatus returns the state of an async cleanup task.
	GetCleanupStatus(ctx context.Context, taskID string) (*entities.CleanupReport, error)

	// ForgetSubject soft-deletes all data of one subject across the
	// subject tables. Broken tables are skipped, not fatal.
	ForgetSubject(ctx context.Context, req entities.ErasureRequest) (*entities.ErasureReport, error)

	// HealthCheck probes the store. It never returns an error; failures
	// are folded into the status.
	HealthCheck(ctx context.Context) *entities.HealthStatus
}
