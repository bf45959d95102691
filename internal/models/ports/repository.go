package ports

import (
	"context"
	"time"
)

// RetentionRepository defines data access for retention maintenance.
type RetentionRepository interface {
	// ExecuteQuery runs one parameterized statement. Statements that
	// return rows yield one map per row; everything else yields a single
	// {"affected_rows": N} summary.
	ExecuteQuery(ctx context.Context, query string, args ...interface{}) ([]map[string]interface{}, error)

	// CountExpired counts rows eligible for cleanup under the cutoff.
	// With softDelete the count only covers rows not yet soft-deleted, so
	// it matches what the delete batches will actually touch.
	CountExpired(ctx context.Context, tableName string, cutoff time.Time, softDelete bool) (int, error)

	// SoftDeleteExpiredBatch stamps deleted_at on up to batchSize eligible
	// rows and commits. Returns the number of rows affected.
	SoftDeleteExpiredBatch(ctx context.Context, tableName string, cutoff time.Time, batchSize int) (int, error)

	// DeleteExpiredBatch hard-deletes up to batchSize eligible rows and
	// commits. Returns the number of rows affected.
	DeleteExpiredBatch(ctx context.Context, tableName string, cutoff time.Time, batchSize int) (int, error)

	// TableExists checks the table against information_schema.
	TableExists(ctx context.Context, tableName string) (bool, error)

	// HasColumn reports whether the table carries the named column.
	HasColumn(ctx context.Context, tableName, columnName string) (bool, error)

	// CountSubjectRows counts live rows belonging to one subject.
	CountSubjectRows(ctx context.Context, tableName, subjectID string) (int, error)

	// EraseSubjectBatch soft-deletes up to batchSize live rows of one
	// subject and commits. Returns the number of rows affected.
	EraseSubjectBatch(ctx context.Context, tableName, subjectID string, batchSize int) (int, error)

	// TryAcquireLock attempts a store-side advisory lock for the table.
	TryAcquireLock(ctx context.Context, tableName string) (bool, func(), error)

	// Ping runs the health probe statement.
	Ping(ctx context.Context) error
}
