package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gtsurkav-sudo/JOJIAI/internal/models/entities"
)

// stubRepo is a scriptable RetentionRepository for usecase tests.
type stubRepo struct {
	tableExists     bool
	tableExistsErr  error
	lockAcquired    bool
	lockErr         error
	unlocked        bool
	countExpired    int
	countExpiredErr error
	batchSizes      []int // affected rows returned per batch call, in order
	batchCalls      int
	batchErr        error
	hasColumn       map[string]bool
	hasColumnErr    map[string]error
	subjectCounts   map[string]int
	subjectCountErr map[string]error
	eraseBatchSizes map[string][]int
	eraseBatchCalls map[string]int
	pingErr         error
	executedQueries []string
}

func (s *stubRepo) ExecuteQuery(ctx context.Context, query string, args ...interface{}) ([]map[string]interface{}, error) {
	s.executedQueries = append(s.executedQueries, query)
	return nil, nil
}

func (s *stubRepo) CountExpired(ctx context.Context, tableName string, cutoff time.Time, softDelete bool) (int, error) {
	return s.countExpired, s.countExpiredErr
}

func (s *stubRepo) SoftDeleteExpiredBatch(ctx context.Context, tableName string, cutoff time.Time, batchSize int) (int, error) {
	return s.nextBatch()
}

func (s *stubRepo) DeleteExpiredBatch(ctx context.Context, tableName string, cutoff time.Time, batchSize int) (int, error) {
	return s.nextBatch()
}

func (s *stubRepo) nextBatch() (int, error) {
	if s.batchErr != nil {
		return 0, s.batchErr
	}
	if s.batchCalls >= len(s.batchSizes) {
		return 0, nil
	}
	n := s.batchSizes[s.batchCalls]
	s.batchCalls++
	return n, nil
}

func (s *stubRepo) TableExists(ctx context.Context, tableName string) (bool, error) {
	return s.tableExists, s.tableExistsErr
}

func (s *stubRepo) HasColumn(ctx context.Context, tableName, columnName string) (bool, error) {
	if err := s.hasColumnErr[tableName]; err != nil {
		return false, err
	}
	if s.hasColumn == nil {
		return true, nil
	}
	has, ok := s.hasColumn[tableName]
	if !ok {
		return true, nil
	}
	return has, nil
}

func (s *stubRepo) CountSubjectRows(ctx context.Context, tableName, subjectID string) (int, error) {
	if err := s.subjectCountErr[tableName]; err != nil {
		return 0, err
	}
	return s.subjectCounts[tableName], nil
}

func (s *stubRepo) EraseSubjectBatch(ctx context.Context, tableName, subjectID string, batchSize int) (int, error) {
	if s.eraseBatchCalls == nil {
		s.eraseBatchCalls = map[string]int{}
	}
	sizes := s.eraseBatchSizes[tableName]
	call := s.eraseBatchCalls[tableName]
	if call >= len(sizes) {
		return 0, nil
	}
	s.eraseBatchCalls[tableName] = call + 1
	return sizes[call], nil
}

func (s *stubRepo) TryAcquireLock(ctx context.Context, tableName string) (bool, func(), error) {
	if s.lockErr != nil {
		return false, nil, s.lockErr
	}
	if !s.lockAcquired {
		return false, nil, nil
	}
	return true, func() { s.unlocked = true }, nil
}

func (s *stubRepo) Ping(ctx context.Context) error {
	return s.pingErr
}

func newUseCase(repo *stubRepo) *retentionUseCase {
	return NewRetentionUseCase(repo, zap.NewNop(), "localhost:5432/app").(*retentionUseCase)
}

func TestCleanupOlderThanValidation(t *testing.T) {
	uc := newUseCase(&stubRepo{})

	tests := []struct {
		name string
		req  entities.CleanupRequest
		want error
	}{
		{"empty table", entities.CleanupRequest{BatchSize: 10, DaysOld: 30}, entities.ErrEmptyTableName},
		{"zero batch size", entities.CleanupRequest{TableName: "sessions", DaysOld: 30}, entities.ErrInvalidBatchSize},
		{"negative batch size", entities.CleanupRequest{TableName: "sessions", DaysOld: 30, BatchSize: -1}, entities.ErrInvalidBatchSize},
		{"negative days", entities.CleanupRequest{TableName: "sessions", DaysOld: -2, BatchSize: 10}, entities.ErrInvalidDaysOld},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.CleanupOlderThan(context.Background(), tt.req)
			assert.Equal(t, tt.want, err)
		})
	}
}

func TestCleanupOlderThanMissingTable(t *testing.T) {
	uc := newUseCase(&stubRepo{tableExists: false})

	_, err := uc.CleanupOlderThan(context.Background(), entities.CleanupRequest{
		TableName: "sessions", DaysOld: 30, BatchSize: 10,
	})

	require.Error(t, err)
	assert.IsType(t, entities.DomainError{}, err)
}

func TestCleanupOlderThanLockHeld(t *testing.T) {
	uc := newUseCase(&stubRepo{tableExists: true, lockAcquired: false})

	_, err := uc.CleanupOlderThan(context.Background(), entities.CleanupRequest{
		TableName: "sessions", DaysOld: 30, BatchSize: 10,
	})

	require.Error(t, err)
	assert.IsType(t, entities.DomainError{}, err)
	assert.Contains(t, err.Error(), "already cleaning")
}

// Five expired rows with batch size two must drain in three batches and
// leave anything newer untouched (the repository only ever sees the
// cutoff predicate).
func TestCleanupOlderThanBatchScenario(t *testing.T) {
	repo := &stubRepo{
		tableExists:  true,
		lockAcquired: true,
		countExpired: 5,
		batchSizes:   []int{2, 2, 1},
	}
	uc := newUseCase(repo)

	report, err := uc.CleanupOlderThan(context.Background(), entities.CleanupRequest{
		TableName: "sessions", DaysOld: 30, BatchSize: 2, UseSoftDelete: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 5, report.RowsAffected)
	assert.Equal(t, 3, repo.batchCalls)
	assert.Equal(t, "completed", report.Status)
	assert.True(t, report.UseSoftDelete)
	assert.True(t, repo.unlocked)
}

// A second run over an already-clean table counts zero and must not
// issue a single batch.
func TestCleanupOlderThanIdempotent(t *testing.T) {
	repo := &stubRepo{
		tableExists:  true,
		lockAcquired: true,
		countExpired: 0,
	}
	uc := newUseCase(repo)

	report, err := uc.CleanupOlderThan(context.Background(), entities.CleanupRequest{
		TableName: "sessions", DaysOld: 30, BatchSize: 2, UseSoftDelete: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, report.RowsAffected)
	assert.Equal(t, 0, repo.batchCalls)
	assert.Equal(t, "completed", report.Status)
}

// A zero-row batch under a non-zero count means another run drained the
// table concurrently; the loop must stop instead of spinning.
func TestCleanupOlderThanStopsOnZeroBatch(t *testing.T) {
	repo := &stubRepo{
		tableExists:  true,
		lockAcquired: true,
		countExpired: 10,
		batchSizes:   []int{3}, // then zero forever
	}
	uc := newUseCase(repo)

	report, err := uc.CleanupOlderThan(context.Background(), entities.CleanupRequest{
		TableName: "sessions", DaysOld: 30, BatchSize: 5, UseSoftDelete: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, report.RowsAffected)
	assert.Equal(t, "completed", report.Status)
}

func TestCleanupOlderThanBatchFailure(t *testing.T) {
	repo := &stubRepo{
		tableExists:  true,
		lockAcquired: true,
		countExpired: 5,
		batchErr:     assert.AnError,
	}
	uc := newUseCase(repo)

	report, err := uc.CleanupOlderThan(context.Background(), entities.CleanupRequest{
		TableName: "sessions", DaysOld: 30, BatchSize: 2, UseSoftDelete: true,
	})

	require.Error(t, err)
	require.NotNil(t, report)
	assert.Equal(t, "failed", report.Status)
	assert.NotEmpty(t, report.ErrorMessage)
}

func TestForgetSubjectNoMatchingRows(t *testing.T) {
	repo := &stubRepo{}
	uc := newUseCase(repo)

	report, err := uc.ForgetSubject(context.Background(), entities.ErasureRequest{
		SubjectID: "user-42", BatchSize: 100,
	})
	require.NoError(t, err)

	assert.True(t, report.Success)
	assert.Equal(t, 0, report.TotalRecordsAffected)
}

func TestForgetSubjectSkipsTableWithoutUserID(t *testing.T) {
	repo := &stubRepo{
		hasColumn: map[string]bool{"user_embeddings": false},
		subjectCounts: map[string]int{
			"user_sessions": 3,
		},
		eraseBatchSizes: map[string][]int{
			"user_sessions": {3},
		},
	}
	uc := newUseCase(repo)

	report, err := uc.ForgetSubject(context.Background(), entities.ErasureRequest{
		SubjectID: "user-42", BatchSize: 100,
	})
	require.NoError(t, err)

	assert.True(t, report.Success)
	assert.Equal(t, 3, report.TotalRecordsAffected)

	var skipped *entities.TableErasure
	for i := range report.Tables {
		if report.Tables[i].TableName == "user_embeddings" {
			skipped = &report.Tables[i]
		}
	}
	require.NotNil(t, skipped)
	assert.True(t, skipped.Skipped)
	assert.Equal(t, "missing user_id column", skipped.SkipReason)
}

func TestForgetSubjectToleratesBrokenTable(t *testing.T) {
	repo := &stubRepo{
		hasColumnErr: map[string]error{"user_activity_logs": assert.AnError},
		subjectCounts: map[string]int{
			"user_sessions": 2,
			"user_memory":   4,
		},
		eraseBatchSizes: map[string][]int{
			"user_sessions": {2},
			"user_memory":   {4},
		},
	}
	uc := newUseCase(repo)

	report, err := uc.ForgetSubject(context.Background(), entities.ErasureRequest{
		SubjectID: "user-42", BatchSize: 100,
	})
	require.NoError(t, err)

	// The broken table is skipped, the rest still processed
	assert.True(t, report.Success)
	assert.Equal(t, 6, report.TotalRecordsAffected)

	var broken *entities.TableErasure
	for i := range report.Tables {
		if report.Tables[i].TableName == "user_activity_logs" {
			broken = &report.Tables[i]
		}
	}
	require.NotNil(t, broken)
	assert.True(t, broken.Skipped)
}

func TestForgetSubjectBatchesLargeTables(t *testing.T) {
	repo := &stubRepo{
		subjectCounts: map[string]int{
			"user_conversations": 5,
		},
		eraseBatchSizes: map[string][]int{
			"user_conversations": {2, 2, 1},
		},
	}
	uc := newUseCase(repo)

	report, err := uc.ForgetSubject(context.Background(), entities.ErasureRequest{
		SubjectID: "user-42", BatchSize: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, 5, report.TotalRecordsAffected)
	assert.Equal(t, 3, repo.eraseBatchCalls["user_conversations"])
}

func TestForgetSubjectValidation(t *testing.T) {
	uc := newUseCase(&stubRepo{})

	_, err := uc.ForgetSubject(context.Background(), entities.ErasureRequest{SubjectID: "", BatchSize: 10})
	assert.Equal(t, entities.ErrEmptySubjectID, err)

	_, err = uc.ForgetSubject(context.Background(), entities.ErasureRequest{SubjectID: "u", BatchSize: 0})
	assert.Equal(t, entities.ErrInvalidBatchSize, err)
}

func TestHealthCheckNeverErrors(t *testing.T) {
	uc := newUseCase(&stubRepo{})

	status := uc.HealthCheck(context.Background())
	assert.Equal(t, entities.StatusHealthy, status.Status)
	assert.Equal(t, "localhost:5432/app", status.Endpoint)
	assert.Empty(t, status.Error)

	uc = newUseCase(&stubRepo{pingErr: assert.AnError})

	status = uc.HealthCheck(context.Background())
	assert.Equal(t, entities.StatusUnhealthy, status.Status)
	assert.NotEmpty(t, status.Error)
}

func TestGetCleanupStatusUnknownTask(t *testing.T) {
	uc := newUseCase(&stubRepo{})

	_, err := uc.GetCleanupStatus(context.Background(), "no-such-task")
	assert.Error(t, err)
}

// Status polls run concurrently with the background cleanup writing to
// the same task report; the race detector must stay quiet while the
// task moves through in_progress to completed.
func TestStartAsyncCleanupConcurrentStatusPolls(t *testing.T) {
	repo := &stubRepo{
		tableExists:  true,
		lockAcquired: true,
		countExpired: 3,
		batchSizes:   []int{1, 1, 1},
	}
	uc := newUseCase(repo)

	taskID, err := uc.StartAsyncCleanup(context.Background(), entities.CleanupRequest{
		TableName: "sessions", DaysOld: 30, BatchSize: 1, UseSoftDelete: true,
	})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			report, err := uc.GetCleanupStatus(context.Background(), taskID)
			if err == nil && report.Status == "completed" {
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("async cleanup did not complete")
	}

	report, err := uc.GetCleanupStatus(context.Background(), taskID)
	require.NoError(t, err)
	assert.Equal(t, "completed", report.Status)
	assert.Equal(t, 3, report.RowsAffected)
}

func TestSubjectTablesFixedSet(t *testing.T) {
	assert.Equal(t, []string{
		"user_sessions",
		"user_preferences",
		"user_activity_logs",
		"user_conversations",
		"user_memory",
		"user_embeddings",
	}, SubjectTables)
}
