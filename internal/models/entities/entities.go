package entities

import (
	"time"
)

// CleanupRequest describes a retention cleanup run against one table.
type CleanupRequest struct {
	TableName     string `json:"table_name"`
	DaysOld       int    `json:"days_old"`
	BatchSize     int    `json:"batch_size"`
	UseSoftDelete bool   `json:"use_soft_delete"`
}

// Cutoff returns the retention boundary for the request relative to now.
func (r *CleanupRequest) Cutoff(now time.Time) time.Time {
	return now.Add(-time.Duration(r.DaysOld) * 24 * time.Hour)
}

// Validate checks the request before any work is started. A non-positive
// batch size is rejected here so the batch loop can never spin forever.
func (r *CleanupRequest) Validate() error {
	if r.TableName == "" {
		return ErrEmptyTableName
	}

	if !IsValidTableName(r.TableName) {
		return ErrUnsafeTableName
	}

	if r.DaysOld < 0 {
		return ErrInvalidDaysOld
	}

	if r.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	return nil
}

// CleanupReport summarizes a finished (or failed) cleanup run.
type CleanupReport struct {
	TableName     string        `json:"table_name"`
	CutoffDate    time.Time     `json:"cutoff_date"`
	RowsAffected  int           `json:"rows_affected"`
	BatchSize     int           `json:"batch_size"`
	UseSoftDelete bool          `json:"use_soft_delete"`
	ElapsedTime   time.Duration `json:"elapsed_time"`
	Status        string        `json:"status"`
	ErrorMessage  string        `json:"error_message,omitempty"`
	CompletedAt   time.Time     `json:"completed_at,omitempty"`
}

// ErasureRequest asks for all data of one subject to be soft-deleted
// across the subject tables.
type ErasureRequest struct {
	SubjectID string `json:"subject_id"`
	BatchSize int    `json:"batch_size"`
}

// Validate checks the erasure request.
func (r *ErasureRequest) Validate() error {
	if r.SubjectID == "" {
		return ErrEmptySubjectID
	}

	if r.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	return nil
}

// TableErasure is the per-table portion of an erasure report.
type TableErasure struct {
	TableName       string `json:"table_name"`
	RecordsAffected int    `json:"records_affected"`
	Skipped         bool   `json:"skipped,omitempty"`
	SkipReason      string `json:"skip_reason,omitempty"`
}

// ErasureReport summarizes a subject erasure run. Success stays true as
// long as the run itself completed; individual tables may have been
// skipped, which is recorded per table.
type ErasureReport struct {
	SubjectID            string         `json:"subject_id"`
	Tables               []TableErasure `json:"tables_processed"`
	TotalRecordsAffected int            `json:"total_records_affected"`
	Success              bool           `json:"success"`
	StartedAt            time.Time      `json:"started_at"`
	CompletedAt          time.Time      `json:"completed_at,omitempty"`
	ErrorMessage         string         `json:"error_message,omitempty"`
}

// HealthStatus is the result of a store probe. Failures are folded into
// Status and Error instead of being returned as a Go error.
type HealthStatus struct {
	Status    string    `json:"status"`
	Endpoint  string    `json:"endpoint,omitempty"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// IsValidTableName reports whether a table name is safe to interpolate
// into a statement: ASCII letters, digits and underscores only, not
// starting with a digit.
func IsValidTableName(name string) bool {
	if name == "" {
		return false
	}

	for i, char := range name {
		switch {
		case char >= 'a' && char <= 'z':
		case char >= 'A' && char <= 'Z':
		case char == '_':
		case char >= '0' && char <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}

	return true
}

// Domain errors
var (
	ErrEmptyTableName   = NewDomainError("table name cannot be empty")
	ErrUnsafeTableName  = NewDomainError("table name contains unsafe characters")
	ErrInvalidDaysOld   = NewDomainError("days_old must not be negative")
	ErrInvalidBatchSize = NewDomainError("batch size must be positive")
	ErrEmptySubjectID   = NewDomainError("subject id cannot be empty")
)

// DomainError is a validation failure that maps to a client error rather
// than an internal one.
type DomainError struct {
	Message string
}

func (e DomainError) Error() string {
	return e.Message
}

func NewDomainError(message string) DomainError {
	return DomainError{Message: message}
}

// QueryError wraps a backing-store failure together with the statement
// that caused it. The statement and parameters are logged at the point
// of failure; callers unwrap to reach the driver error.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return "query failed: " + e.Err.Error()
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
