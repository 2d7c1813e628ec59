package sequence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// ExecutionStatus is a run's lifecycle status in the audit trail.
type ExecutionStatus string

// Execution statuses as stored.
const (
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
	ExecutionCancelled ExecutionStatus = "cancelled"
)

// ExecutionRecord is one run's audit trail entry.
type ExecutionRecord struct {
	ID                string          `json:"id"`
	Source            string          `json:"source"`
	Mode              string          `json:"mode"` // "sync" or "async"
	Status            ExecutionStatus `json:"status"`
	CommandsTotal     int             `json:"commands_total"`
	CommandsCompleted int             `json:"commands_completed"`
	CommandsFailed    int             `json:"commands_failed"`
	Results           []CommandResult `json:"results,omitempty"`
	Message           string          `json:"message,omitempty"`
	StartedAt         time.Time       `json:"started_at"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
	DurationMS        *int64          `json:"duration_ms,omitempty"`
}

// ExecutionRepository persists the execution audit trail. The engine
// works without one; a nil repository simply keeps no history.
type ExecutionRepository interface {
	CreateExecution(ctx context.Context, record *ExecutionRecord) error
	UpdateExecution(ctx context.Context, record *ExecutionRecord) error
	GetExecution(ctx context.Context, id string) (*ExecutionRecord, error)
	ListExecutions(ctx context.Context, source string, limit int) ([]ExecutionRecord, error)
}

// SQLiteRepository stores execution records in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository over an open database handle.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// CreateExecution inserts a new run record. StartedAt defaults to now.
func (r *SQLiteRepository) CreateExecution(ctx context.Context, record *ExecutionRecord) error {
	if record.ID == "" {
		return fmt.Errorf("execution record has no id")
	}
	if record.StartedAt.IsZero() {
		record.StartedAt = time.Now().UTC()
	}
	if record.Status == "" {
		record.Status = ExecutionRunning
	}

	resultsJSON, err := marshalResults(record.Results)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO sequence_executions
		 (id, source, mode, status, commands_total, commands_completed, commands_failed,
		  results, message, started_at, completed_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.Source, record.Mode, string(record.Status),
		record.CommandsTotal, record.CommandsCompleted, record.CommandsFailed,
		resultsJSON, nullableText(record.Message),
		record.StartedAt.Format(time.RFC3339),
		nullableTimestamp(record.CompletedAt), record.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("inserting execution record: %w", err)
	}
	return nil
}

// UpdateExecution rewrites a run record's mutable fields.
func (r *SQLiteRepository) UpdateExecution(ctx context.Context, record *ExecutionRecord) error {
	resultsJSON, err := marshalResults(record.Results)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE sequence_executions
		 SET status = ?, commands_total = ?, commands_completed = ?, commands_failed = ?,
		     results = ?, message = ?, completed_at = ?, duration_ms = ?
		 WHERE id = ?`,
		string(record.Status),
		record.CommandsTotal, record.CommandsCompleted, record.CommandsFailed,
		resultsJSON, nullableText(record.Message),
		nullableTimestamp(record.CompletedAt), record.DurationMS,
		record.ID,
	)
	if err != nil {
		return fmt.Errorf("updating execution record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking execution update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrExecutionNotFound, record.ID)
	}
	return nil
}

// GetExecution returns one run record by id.
func (r *SQLiteRepository) GetExecution(ctx context.Context, id string) (*ExecutionRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, source, mode, status, commands_total, commands_completed, commands_failed,
		        results, message, started_at, completed_at, duration_ms
		 FROM sequence_executions WHERE id = ?`, id)

	record, err := scanExecution(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrExecutionNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListExecutions returns run records, most recent first, optionally
// filtered by source.
func (r *SQLiteRepository) ListExecutions(ctx context.Context, source string, limit int) ([]ExecutionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	query := `SELECT id, source, mode, status, commands_total, commands_completed, commands_failed,
	                 results, message, started_at, completed_at, duration_ms
	          FROM sequence_executions`
	args := []any{}
	if source != "" {
		query += " WHERE source = ?"
		args = append(args, source)
	}
	query += " ORDER BY started_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying execution records: %w", err)
	}
	defer rows.Close()

	records := []ExecutionRecord{}
	for rows.Next() {
		record, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating execution records: %w", err)
	}
	return records, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanExecution(row rowScanner) (*ExecutionRecord, error) {
	var record ExecutionRecord
	var status string
	var resultsJSON, message, completedAt sql.NullString
	var durationMS sql.NullInt64
	var startedAt string

	if err := row.Scan(&record.ID, &record.Source, &record.Mode, &status,
		&record.CommandsTotal, &record.CommandsCompleted, &record.CommandsFailed,
		&resultsJSON, &message, &startedAt, &completedAt, &durationMS); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning execution record: %w", err)
	}

	record.Status = ExecutionStatus(status)
	if message.Valid {
		record.Message = message.String
	}
	if resultsJSON.Valid && resultsJSON.String != "" {
		var results []CommandResult
		if json.Unmarshal([]byte(resultsJSON.String), &results) == nil {
			record.Results = results
		}
	}

	started, err := time.Parse(time.RFC3339, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing execution timestamp %q: %w", startedAt, err)
	}
	record.StartedAt = started

	if completedAt.Valid && completedAt.String != "" {
		completed, err := time.Parse(time.RFC3339, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing execution timestamp %q: %w", completedAt.String, err)
		}
		record.CompletedAt = &completed
	}
	if durationMS.Valid {
		record.DurationMS = &durationMS.Int64
	}
	return &record, nil
}

func marshalResults(results []CommandResult) (any, error) {
	if results == nil {
		return nil, nil
	}
	b, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("marshalling execution results: %w", err)
	}
	return string(b), nil
}

// nullableText returns nil for empty strings, for nullable TEXT columns.
func nullableText(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableTimestamp(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}
