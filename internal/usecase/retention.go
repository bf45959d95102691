package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gtsurkav-sudo/JOJIAI/internal/models/entities"
	"github.com/gtsurkav-sudo/JOJIAI/internal/models/ports"
	"github.com/gtsurkav-sudo/JOJIAI/internal/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SubjectTables is the fixed set of tables that may hold subject data.
// Adding a table here requires a redeploy; the schema convention is that
// each of these carries id, user_id and deleted_at columns.
var SubjectTables = []string{
	"user_sessions",
	"user_preferences",
	"user_activity_logs",
	"user_conversations",
	"user_memory",
	"user_embeddings",
}

type retentionUseCase struct {
	repo            ports.RetentionRepository
	logger          *zap.Logger
	endpoint        string
	activeTasksLock sync.RWMutex
	activeTasks     map[string]*entities.CleanupReport
}

// NewRetentionUseCase creates the retention maintenance service.
// endpoint is the credential-stripped store address used in health output.
func NewRetentionUseCase(repo ports.RetentionRepository, logger *zap.Logger, endpoint string) ports.RetentionUseCase {
	return &retentionUseCase{
		repo:        repo,
		logger:      logger,
		endpoint:    endpoint,
		activeTasks: make(map[string]*entities.CleanupReport),
	}
}

// CleanupOlderThan removes records older than the request cutoff in
// batches. The initial count bounds the run to one pass over the table:
// rows inserted while the loop runs are left for the next invocation.
func (uc *retentionUseCase) CleanupOlderThan(ctx context.Context, req entities.CleanupRequest) (*entities.CleanupReport, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	exists, err := uc.repo.TableExists(ctx, req.TableName)
	if err != nil {
		return nil, fmt.Errorf("table validation failed: %w", err)
	}
	if !exists {
		return nil, entities.NewDomainError(fmt.Sprintf("table %s does not exist", req.TableName))
	}

	acquired, unlock, err := uc.repo.TryAcquireLock(ctx, req.TableName)
	if err != nil {
		return nil, fmt.Errorf("lock acquisition failed: %w", err)
	}
	if !acquired {
		return nil, entities.NewDomainError(fmt.Sprintf("another process is already cleaning table %s", req.TableName))
	}
	defer unlock()

	cutoff := req.Cutoff(time.Now().UTC())

	uc.logger.Info("Starting retention cleanup",
		zap.String("table", req.TableName),
		zap.Time("cutoff", cutoff),
		zap.Int("batch_size", req.BatchSize),
		zap.Bool("soft_delete", req.UseSoftDelete))

	startTime := time.Now()
	report := &entities.CleanupReport{
		TableName:     req.TableName,
		CutoffDate:    cutoff,
		BatchSize:     req.BatchSize,
		UseSoftDelete: req.UseSoftDelete,
		Status:        "in_progress",
	}

	totalCount, err := uc.repo.CountExpired(ctx, req.TableName, cutoff, req.UseSoftDelete)
	if err != nil {
		return uc.failCleanup(report, startTime, fmt.Errorf("count eligible records: %w", err))
	}

	uc.logger.Info("Eligible records counted",
		zap.String("table", req.TableName),
		zap.Int("count", totalCount))

	mode := metrics.ModeHardDelete
	if req.UseSoftDelete {
		mode = metrics.ModeSoftDelete
	}

	totalAffected := 0
	for totalAffected < totalCount {
		var affected int
		if req.UseSoftDelete {
			affected, err = uc.repo.SoftDeleteExpiredBatch(ctx, req.TableName, cutoff, req.BatchSize)
		} else {
			affected, err = uc.repo.DeleteExpiredBatch(ctx, req.TableName, cutoff, req.BatchSize)
		}
		if err != nil {
			return uc.failCleanup(report, startTime, fmt.Errorf("batch deletion failed: %w", err))
		}

		// A zero-row batch means someone else got there first; stop
		// rather than rescan forever.
		if affected == 0 {
			break
		}

		totalAffected += affected
		metrics.RowsAffected.WithLabelValues(req.TableName, mode).Add(float64(affected))

		uc.logger.Info("Batch processed",
			zap.String("table", req.TableName),
			zap.Int("affected", affected),
			zap.Int("total_affected", totalAffected))

		// Short pause between batches to keep load off the store
		select {
		case <-time.After(100 * time.Millisecond):
		case <-ctx.Done():
			report.Status = "canceled"
			report.RowsAffected = totalAffected
			report.ElapsedTime = time.Since(startTime)
			metrics.CleanupRuns.WithLabelValues(req.TableName, "canceled").Inc()
			return report, ctx.Err()
		}
	}

	elapsed := time.Since(startTime)
	uc.logger.Info("Cleanup completed",
		zap.String("table", req.TableName),
		zap.Int("total_affected", totalAffected),
		zap.Duration("duration", elapsed))

	report.Status = "completed"
	report.RowsAffected = totalAffected
	report.ElapsedTime = elapsed
	report.CompletedAt = time.Now().UTC()

	metrics.CleanupRuns.WithLabelValues(req.TableName, "completed").Inc()
	metrics.CleanupDuration.WithLabelValues(req.TableName).Observe(elapsed.Seconds())

	return report, nil
}

func (uc *retentionUseCase) failCleanup(report *entities.CleanupReport, startTime time.Time, err error) (*entities.CleanupReport, error) {
	uc.logger.Error("Cleanup failed",
		zap.String("table", report.TableName),
		zap.Error(err))

	report.Status = "failed"
	report.ErrorMessage = err.Error()
	report.ElapsedTime = time.Since(startTime)
	metrics.CleanupRuns.WithLabelValues(report.TableName, "failed").Inc()
	return report, err
}

// StartAsyncCleanup launches the cleanup in the background and returns a
// task identifier for polling.
func (uc *retentionUseCase) StartAsyncCleanup(ctx context.Context, req entities.CleanupRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	taskID := uuid.New().String()

	report := &entities.CleanupReport{
		TableName: req.TableName,
		Status:    "pending",
	}

	uc.activeTasksLock.Lock()
	uc.activeTasks[taskID] = report
	uc.activeTasksLock.Unlock()

	cleanupCtx, cancel := context.WithTimeout(context.Background(), 1*time.Hour)

	go func() {
		defer cancel()

		// The report is shared with GetCleanupStatus; every write to it
		// must hold the task lock.
		uc.activeTasksLock.Lock()
		report.Status = "in_progress"
		uc.activeTasksLock.Unlock()

		result, err := uc.CleanupOlderThan(cleanupCtx, req)

		uc.activeTasksLock.Lock()
		if err != nil && result == nil {
			report.Status = "failed"
			report.ErrorMessage = err.Error()
		} else {
			*report = *result
		}
		uc.activeTasksLock.Unlock()

		// Drop the task record once it has had time to be read
		time.AfterFunc(1*time.Hour, func() {
			uc.activeTasksLock.Lock()
			delete(uc.activeTasks, taskID)
			uc.activeTasksLock.Unlock()
		})
	}()

	return taskID, nil
}

// GetCleanupStatus returns the state of an async cleanup task.
func (uc *retentionUseCase) GetCleanupStatus(ctx context.Context, taskID string) (*entities.CleanupReport, error) {
	uc.activeTasksLock.RLock()
	defer uc.activeTasksLock.RUnlock()

	report, exists := uc.activeTasks[taskID]
	if !exists {
		return nil, fmt.Errorf("task with ID %s not found", taskID)
	}

	reportCopy := *report
	return &reportCopy, nil
}

// ForgetSubject soft-deletes all data of one subject across the subject
// tables. A failure in one table is logged and that table is skipped;
// erasure must not be blocked by one broken table. Success only turns
// false when the run itself fails.
func (uc *retentionUseCase) ForgetSubject(ctx context.Context, req entities.ErasureRequest) (*entities.ErasureReport, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	uc.logger.Info("Starting subject erasure",
		zap.String("subject_id", req.SubjectID),
		zap.Int("batch_size", req.BatchSize))

	report := &entities.ErasureReport{
		SubjectID: req.SubjectID,
		StartedAt: time.Now().UTC(),
	}

	for _, tableName := range SubjectTables {
		affected, err := uc.eraseFromTable(ctx, tableName, req.SubjectID, req.BatchSize, report)
		if err != nil {
			// Skip the broken table and keep going
			uc.logger.Error("Failed to process table, skipping",
				zap.String("table", tableName),
				zap.String("subject_id", req.SubjectID),
				zap.Error(err))

			report.Tables = append(report.Tables, entities.TableErasure{
				TableName:  tableName,
				Skipped:    true,
				SkipReason: err.Error(),
			})
			continue
		}

		report.TotalRecordsAffected += affected
	}

	// Per-table failures are tolerated above; a dead context means the
	// run itself did not finish and must be reported as such.
	if err := ctx.Err(); err != nil {
		report.Success = false
		report.ErrorMessage = err.Error()
		metrics.ErasureRuns.WithLabelValues("failed").Inc()
		return report, err
	}

	report.CompletedAt = time.Now().UTC()
	report.Success = true

	metrics.ErasureRuns.WithLabelValues("completed").Inc()

	uc.logger.Info("Subject erasure completed",
		zap.String("subject_id", req.SubjectID),
		zap.Int("total_records_affected", report.TotalRecordsAffected))

	return report, nil
}

// eraseFromTable processes one table of a subject erasure and appends
// its outcome to the report. Tables without a user_id column are skipped
// by schema introspection rather than by failing.
func (uc *retentionUseCase) eraseFromTable(ctx context.Context, tableName, subjectID string, batchSize int, report *entities.ErasureReport) (int, error) {
	hasColumn, err := uc.repo.HasColumn(ctx, tableName, "user_id")
	if err != nil {
		return 0, fmt.Errorf("check user_id column: %w", err)
	}

	if !hasColumn {
		uc.logger.Warn("Table does not have user_id column, skipping",
			zap.String("table", tableName))

		report.Tables = append(report.Tables, entities.TableErasure{
			TableName:  tableName,
			Skipped:    true,
			SkipReason: "missing user_id column",
		})
		return 0, nil
	}

	count, err := uc.repo.CountSubjectRows(ctx, tableName, subjectID)
	if err != nil {
		return 0, fmt.Errorf("count subject rows: %w", err)
	}

	if count == 0 {
		uc.logger.Info("No records found for subject",
			zap.String("table", tableName),
			zap.String("subject_id", subjectID))
		return 0, nil
	}

	totalAffected := 0
	for totalAffected < count {
		affected, err := uc.repo.EraseSubjectBatch(ctx, tableName, subjectID, batchSize)
		if err != nil {
			return 0, fmt.Errorf("erase batch: %w", err)
		}

		if affected == 0 {
			break
		}

		totalAffected += affected

		uc.logger.Info("Erasure batch processed",
			zap.String("table", tableName),
			zap.Int("affected", affected),
			zap.Int("total_affected", totalAffected))
	}

	report.Tables = append(report.Tables, entities.TableErasure{
		TableName:       tableName,
		RecordsAffected: totalAffected,
	})

	metrics.RowsAffected.WithLabelValues(tableName, metrics.ModeErasure).Add(float64(totalAffected))

	return totalAffected, nil
}

// HealthCheck probes the store with SELECT 1. It never returns an error;
// every failure collapses into an unhealthy status.
func (uc *retentionUseCase) HealthCheck(ctx context.Context) *entities.HealthStatus {
	status := &entities.HealthStatus{
		Endpoint:  uc.endpoint,
		CheckedAt: time.Now().UTC(),
	}

	if err := uc.repo.Ping(ctx); err != nil {
		status.Status = entities.StatusUnhealthy
		status.Error = err.Error()
		return status
	}

	status.Status = entities.StatusHealthy
	return status
}
