package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/gtsurkav-sudo/JOJIAI/internal/models/entities"
	"github.com/gtsurkav-sudo/JOJIAI/internal/models/ports"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type retentionRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewRetentionRepository creates the PostgreSQL-backed retention repository.
func NewRetentionRepository(db *sqlx.DB, logger *zap.Logger) ports.RetentionRepository {
	return &retentionRepository{
		db:     db,
		logger: logger,
	}
}

// ExecuteQuery runs one parameterized statement on a pooled connection.
// SELECT-style statements yield one map per row; mutating statements
// yield a single {"affected_rows": N} summary.
func (r *retentionRepository) ExecuteQuery(ctx context.Context, query string, args ...interface{}) ([]map[string]interface{}, error) {
	if returnsRows(query) {
		rows, err := r.db.QueryxContext(ctx, query, args...)
		if err != nil {
			return nil, r.queryError(query, args, err)
		}
		defer rows.Close()

		var result []map[string]interface{}
		for rows.Next() {
			row := map[string]interface{}{}
			if err := rows.MapScan(row); err != nil {
				return nil, r.queryError(query, args, err)
			}
			result = append(result, row)
		}
		if err := rows.Err(); err != nil {
			return nil, r.queryError(query, args, err)
		}
		return result, nil
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, r.queryError(query, args, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, r.queryError(query, args, err)
	}

	return []map[string]interface{}{{"affected_rows": affected}}, nil
}

// CountExpired counts cleanup-eligible rows. The soft-delete count only
// covers rows with deleted_at IS NULL so it matches the rows the update
// batches will actually touch; already-deleted rows are never recounted.
func (r *retentionRepository) CountExpired(ctx context.Context, tableName string, cutoff time.Time, softDelete bool) (int, error) {
	if err := validTableName(tableName); err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE created_at < $1`, tableName)
	if softDelete {
		query += ` AND deleted_at IS NULL`
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, cutoff); err != nil {
		return 0, r.queryError(query, []interface{}{cutoff}, err)
	}

	return count, nil
}

// SoftDeleteExpiredBatch stamps deleted_at on up to batchSize eligible
// rows inside one committed transaction.
func (r *retentionRepository) SoftDeleteExpiredBatch(ctx context.Context, tableName string, cutoff time.Time, batchSize int) (int, error) {
	if err := validTableName(tableName); err != nil {
		return 0, err
	}

	// CTE keeps the lock footprint to the batch being updated
	query := fmt.Sprintf(`
		WITH rows_to_delete AS (
			SELECT id FROM %s
			WHERE created_at < $1 AND deleted_at IS NULL
			ORDER BY created_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		UPDATE %s
		SET deleted_at = NOW()
		WHERE id IN (SELECT id FROM rows_to_delete)
		RETURNING id;
	`, tableName, tableName)

	return r.mutateBatch(ctx, query, cutoff, batchSize)
}

// DeleteExpiredBatch hard-deletes up to batchSize eligible rows inside
// one committed transaction.
func (r *retentionRepository) DeleteExpiredBatch(ctx context.Context, tableName string, cutoff time.Time, batchSize int) (int, error) {
	if err := validTableName(tableName); err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`
		WITH rows_to_delete AS (
			SELECT id FROM %s
			WHERE created_at < $1
			ORDER BY created_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		DELETE FROM %s
		WHERE id IN (SELECT id FROM rows_to_delete)
		RETURNING id;
	`, tableName, tableName)

	return r.mutateBatch(ctx, query, cutoff, batchSize)
}

// EraseSubjectBatch soft-deletes up to batchSize live rows of one subject
// inside one committed transaction.
func (r *retentionRepository) EraseSubjectBatch(ctx context.Context, tableName, subjectID string, batchSize int) (int, error) {
	if err := validTableName(tableName); err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`
		WITH rows_to_delete AS (
			SELECT id FROM %s
			WHERE user_id = $1 AND deleted_at IS NULL
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		UPDATE %s
		SET deleted_at = NOW()
		WHERE id IN (SELECT id FROM rows_to_delete)
		RETURNING id;
	`, tableName, tableName)

	return r.mutateBatch(ctx, query, subjectID, batchSize)
}

// mutateBatch runs one batched mutation in its own READ COMMITTED
// transaction and returns the number of rows it touched.
func (r *retentionRepository) mutateBatch(ctx context.Context, query string, key interface{}, batchSize int) (int, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	rows, err := tx.QueryxContext(ctx, query, key, batchSize)
	if err != nil {
		return 0, r.queryError(query, []interface{}{key, batchSize}, err)
	}
	defer rows.Close()

	var count int
	for rows.Next() {
		count++
	}

	if err = rows.Err(); err != nil {
		return 0, fmt.Errorf("process result rows: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	return count, nil
}

// TableExists checks the table against information_schema.
func (r *retentionRepository) TableExists(ctx context.Context, tableName string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = $1
		)
	`, tableName)
	if err != nil {
		return false, fmt.Errorf("check table existence: %w", err)
	}

	return exists, nil
}

// HasColumn reports whether the table carries the named column.
func (r *retentionRepository) HasColumn(ctx context.Context, tableName, columnName string) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM information_schema.columns
		WHERE table_name = $1
		AND column_name = $2
	`, tableName, columnName)
	if err != nil {
		return false, fmt.Errorf("check column existence: %w", err)
	}

	return count > 0, nil
}

// CountSubjectRows counts live rows belonging to one subject.
func (r *retentionRepository) CountSubjectRows(ctx context.Context, tableName, subjectID string) (int, error) {
	if err := validTableName(tableName); err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE user_id = $1 AND deleted_at IS NULL`, tableName)

	var count int
	if err := r.db.GetContext(ctx, &count, query, subjectID); err != nil {
		return 0, r.queryError(query, []interface{}{subjectID}, err)
	}

	return count, nil
}

// TryAcquireLock takes a pg advisory lock keyed on the table name so two
// cleanup runs on the same table do not shred each other's batches.
func (r *retentionRepository) TryAcquireLock(ctx context.Context, tableName string) (bool, func(), error) {
	lockID := generateLockID(tableName)

	var acquired bool
	err := r.db.GetContext(ctx, &acquired, "SELECT pg_try_advisory_lock($1)", lockID)
	if err != nil {
		return false, nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	if !acquired {
		return false, nil, nil
	}

	unlock := func() {
		var released bool
		err := r.db.Get(&released, "SELECT pg_advisory_unlock($1)", lockID)
		if err != nil {
			r.logger.Error("Failed to release advisory lock",
				zap.String("table", tableName),
				zap.Int64("lock_id", lockID),
				zap.Error(err))
		}
	}

	return true, unlock, nil
}

// Ping runs the health probe statement.
func (r *retentionRepository) Ping(ctx context.Context) error {
	var probe int
	if err := r.db.GetContext(ctx, &probe, "SELECT 1 AS health_check"); err != nil {
		return err
	}

	if probe != 1 {
		return fmt.Errorf("unexpected health probe result: %d", probe)
	}

	return nil
}

// Helpers

// queryError logs the failed statement with its parameters and wraps the
// driver error. Callers are responsible for redacting sensitive params
// before they reach this layer in production.
func (r *retentionRepository) queryError(query string, args []interface{}, err error) error {
	r.logger.Error("SQL execution failed",
		zap.String("query", query),
		zap.Any("params", args),
		zap.Error(err))

	return &entities.QueryError{Query: query, Err: err}
}

// generateLockID derives a stable advisory lock ID from the table name.
func generateLockID(tableName string) int64 {
	h := fnv.New64a()
	h.Write([]byte(tableName))
	return int64(h.Sum64())
}

func validTableName(name string) error {
	if !entities.IsValidTableName(name) {
		return fmt.Errorf("invalid table name: %s", name)
	}
	return nil
}

// returnsRows classifies a statement by its leading verb, with mutations
// carrying a RETURNING clause treated as row-producing. Plain mutations
// go through Exec so affected row counts are available. The RETURNING
// scan is token-based and would misfire on the keyword inside a string
// literal; this layer only ever sees trusted maintenance SQL.
func returnsRows(query string) bool {
	trimmed := strings.TrimSpace(query)
	for strings.HasPrefix(trimmed, "(") {
		trimmed = strings.TrimSpace(trimmed[1:])
	}
	if trimmed == "" {
		return false
	}

	verb := trimmed
	if i := strings.IndexAny(trimmed, " \t\r\n("); i > 0 {
		verb = trimmed[:i]
	}

	switch strings.ToUpper(verb) {
	case "SELECT", "WITH", "SHOW", "VALUES", "EXPLAIN", "TABLE":
		return true
	}

	for _, tok := range strings.Fields(strings.ToUpper(trimmed)) {
		if tok == "RETURNING" {
			return true
		}
	}
	return false
}
