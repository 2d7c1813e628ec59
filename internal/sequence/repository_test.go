package sequence

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE sequence_executions (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			mode TEXT NOT NULL,
			status TEXT NOT NULL,
			commands_total INTEGER NOT NULL DEFAULT 0,
			commands_completed INTEGER NOT NULL DEFAULT 0,
			commands_failed INTEGER NOT NULL DEFAULT 0,
			results TEXT,
			message TEXT,
			started_at TEXT NOT NULL,
			completed_at TEXT,
			duration_ms INTEGER
		)`)
	if err != nil {
		t.Fatalf("creating test schema: %v", err)
	}

	return NewSQLiteRepository(db)
}

func TestRepository_CreateAndGet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	record := &ExecutionRecord{
		ID:            "exec-1",
		Source:        "morning",
		Mode:          "async",
		CommandsTotal: 3,
	}
	if err := repo.CreateExecution(ctx, record); err != nil {
		t.Fatalf("CreateExecution() error = %v", err)
	}
	if record.Status != ExecutionRunning {
		t.Errorf("status defaulted to %s, want running", record.Status)
	}
	if record.StartedAt.IsZero() {
		t.Error("StartedAt was not defaulted")
	}

	got, err := repo.GetExecution(ctx, "exec-1")
	if err != nil {
		t.Fatalf("GetExecution() error = %v", err)
	}
	if got.Source != "morning" || got.Mode != "async" || got.CommandsTotal != 3 {
		t.Errorf("GetExecution() = %+v, want stored fields back", got)
	}
	if got.CompletedAt != nil || got.DurationMS != nil {
		t.Error("running record has completion fields set")
	}
}

func TestRepository_CreateRequiresID(t *testing.T) {
	repo := newTestRepository(t)

	if err := repo.CreateExecution(context.Background(), &ExecutionRecord{}); err == nil {
		t.Error("CreateExecution() accepted record without id")
	}
}

func TestRepository_UpdateRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	record := &ExecutionRecord{ID: "exec-1", Source: "test", Mode: "sync", CommandsTotal: 2}
	if err := repo.CreateExecution(ctx, record); err != nil {
		t.Fatalf("CreateExecution() error = %v", err)
	}

	completed := time.Now().UTC().Truncate(time.Second)
	duration := int64(1234)
	record.Status = ExecutionCompleted
	record.CommandsCompleted = 2
	record.Message = "completed"
	record.Results = []CommandResult{
		{Command: "c1", Success: true, DurationMS: 10.5},
		{Command: "c2", Success: true, Message: "ok"},
	}
	record.CompletedAt = &completed
	record.DurationMS = &duration

	if err := repo.UpdateExecution(ctx, record); err != nil {
		t.Fatalf("UpdateExecution() error = %v", err)
	}

	got, err := repo.GetExecution(ctx, "exec-1")
	if err != nil {
		t.Fatalf("GetExecution() error = %v", err)
	}
	if got.Status != ExecutionCompleted || got.Message != "completed" {
		t.Errorf("GetExecution() = %+v, want completed", got)
	}
	if len(got.Results) != 2 || got.Results[0].Command != "c1" || got.Results[0].DurationMS != 10.5 {
		t.Errorf("results = %+v, want round-tripped command results", got.Results)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(completed) {
		t.Errorf("completed_at = %v, want %v", got.CompletedAt, completed)
	}
	if got.DurationMS == nil || *got.DurationMS != 1234 {
		t.Errorf("duration_ms = %v, want 1234", got.DurationMS)
	}
}

func TestRepository_UpdateMissing(t *testing.T) {
	repo := newTestRepository(t)

	err := repo.UpdateExecution(context.Background(), &ExecutionRecord{ID: "ghost"})
	if !errors.Is(err, ErrExecutionNotFound) {
		t.Errorf("UpdateExecution(ghost) error = %v, want ErrExecutionNotFound", err)
	}
}

func TestRepository_GetMissing(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.GetExecution(context.Background(), "ghost")
	if !errors.Is(err, ErrExecutionNotFound) {
		t.Errorf("GetExecution(ghost) error = %v, want ErrExecutionNotFound", err)
	}
}

func TestRepository_ListFiltersAndOrders(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i, source := range []string{"alpha", "beta", "alpha"} {
		record := &ExecutionRecord{
			ID:        string(rune('a' + i)),
			Source:    source,
			Mode:      "sync",
			Status:    ExecutionCompleted,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.CreateExecution(ctx, record); err != nil {
			t.Fatalf("CreateExecution() error = %v", err)
		}
	}

	all, err := repo.ListExecutions(ctx, "", 10)
	if err != nil {
		t.Fatalf("ListExecutions() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListExecutions() = %d records, want 3", len(all))
	}
	// Most recent first.
	if all[0].ID != "c" || all[2].ID != "a" {
		t.Errorf("order = %s..%s, want c..a", all[0].ID, all[2].ID)
	}

	alpha, err := repo.ListExecutions(ctx, "alpha", 10)
	if err != nil {
		t.Fatalf("ListExecutions(alpha) error = %v", err)
	}
	if len(alpha) != 2 {
		t.Errorf("ListExecutions(alpha) = %d records, want 2", len(alpha))
	}

	limited, err := repo.ListExecutions(ctx, "", 1)
	if err != nil {
		t.Fatalf("ListExecutions(limit 1) error = %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("ListExecutions(limit 1) = %d records, want 1", len(limited))
	}
}

func TestRepository_ListEmpty(t *testing.T) {
	repo := newTestRepository(t)

	records, err := repo.ListExecutions(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("ListExecutions() error = %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("ListExecutions() = %v, want empty non-nil slice", records)
	}
}
