package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCleanupRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     CleanupRequest
		wantErr error
	}{
		{
			name:    "valid request",
			req:     CleanupRequest{TableName: "sessions", DaysOld: 30, BatchSize: 1000, UseSoftDelete: true},
			wantErr: nil,
		},
		{
			name:    "zero days old is allowed",
			req:     CleanupRequest{TableName: "sessions", DaysOld: 0, BatchSize: 10},
			wantErr: nil,
		},
		{
			name:    "empty table name",
			req:     CleanupRequest{TableName: "", DaysOld: 30, BatchSize: 1000},
			wantErr: ErrEmptyTableName,
		},
		{
			name:    "unsafe table name",
			req:     CleanupRequest{TableName: "sessions; DROP TABLE users", DaysOld: 30, BatchSize: 1000},
			wantErr: ErrUnsafeTableName,
		},
		{
			name:    "negative days old",
			req:     CleanupRequest{TableName: "sessions", DaysOld: -1, BatchSize: 1000},
			wantErr: ErrInvalidDaysOld,
		},
		{
			name:    "zero batch size",
			req:     CleanupRequest{TableName: "sessions", DaysOld: 30, BatchSize: 0},
			wantErr: ErrInvalidBatchSize,
		},
		{
			name:    "negative batch size",
			req:     CleanupRequest{TableName: "sessions", DaysOld: 30, BatchSize: -5},
			wantErr: ErrInvalidBatchSize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, tt.wantErr, err)
			}
		})
	}
}

func TestErasureRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     ErasureRequest
		wantErr error
	}{
		{name: "valid", req: ErasureRequest{SubjectID: "user-42", BatchSize: 100}, wantErr: nil},
		{name: "empty subject", req: ErasureRequest{SubjectID: "", BatchSize: 100}, wantErr: ErrEmptySubjectID},
		{name: "non-positive batch", req: ErasureRequest{SubjectID: "user-42", BatchSize: 0}, wantErr: ErrInvalidBatchSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, tt.wantErr, err)
			}
		})
	}
}

func TestCutoff(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	req := CleanupRequest{TableName: "sessions", DaysOld: 30, BatchSize: 10}

	assert.Equal(t, time.Date(2025, 5, 16, 12, 0, 0, 0, time.UTC), req.Cutoff(now))

	req.DaysOld = 0
	assert.Equal(t, now, req.Cutoff(now))
}

func TestIsValidTableName(t *testing.T) {
	valid := []string{"sessions", "user_activity_logs", "Table2", "_private"}
	for _, name := range valid {
		assert.True(t, IsValidTableName(name), name)
	}

	invalid := []string{"", "user-data", "users; DROP", "2fast", "таблица", "a.b"}
	for _, name := range invalid {
		assert.False(t, IsValidTableName(name), name)
	}
}

func TestQueryErrorUnwrap(t *testing.T) {
	inner := assert.AnError
	err := &QueryError{Query: "SELECT 1", Err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "query failed")
}
