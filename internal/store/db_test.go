package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-cloud-etl/internal/model"
)

var fixedNow = time.Date(2014, 7, 1, 12, 0, 0, 0, time.UTC)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := newStore(db)
	s.now = func() time.Time { return fixedNow }
	return s, mock
}

func TestMigrate(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS runs").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS run_errors").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS run_logs").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.migrate())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateStopsOnError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS runs").WillReturnError(errors.New("disk full"))

	assert.EqualError(t, s.migrate(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRun(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO runs").
		WithArgs("run-1", "2014-07-01", "idle", fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.SaveRun(context.Background(), "run-1", "2014-07-01"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRunStatus(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("UPDATE runs SET status").
		WithArgs("loading", fixedNow, "run-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.UpdateRunStatus(context.Background(), "run-1", "loading"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinishRun(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("UPDATE runs SET status").
		WithArgs("done", 2, 3, "out/x.parquet", "", fixedNow, "run-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.FinishRun(context.Background(), model.RunRecord{
		ID: "run-1", Status: "done", Selected: 2, Groups: 3, OutputPath: "out/x.parquet",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRunError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO run_errors").
		WithArgs("run-1", "boom", fixedNow).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.SaveRunError(context.Background(), "run-1", errors.New("boom")))
	require.NoError(t, s.SaveRunError(context.Background(), "run-1", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRunLog(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO run_logs").
		WithArgs("run-1", "loading", "info", "stage entered", `{"selected":2}`, fixedNow).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.SaveRunLog(context.Background(), model.RunLog{
		RunID:   "run-1",
		Stage:   "loading",
		Level:   "info",
		Message: "stage entered",
		Details: map[string]any{"selected": 2},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func runRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "reference_date", "status", "selected", "groups_count",
		"output_path", "error_message", "created_at", "updated_at",
	})
}

func TestListRuns(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT (.+) FROM runs ORDER BY created_at DESC").
		WithArgs(DefaultListLimit).
		WillReturnRows(runRows().
			AddRow("run-2", "2014-07-02", "failed", 1, 0, "", "SourceReadError: boom", fixedNow, fixedNow).
			AddRow("run-1", "2014-07-01", "done", 2, 3, "out/x.parquet", "", fixedNow, fixedNow))

	runs, err := s.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, "SourceReadError: boom", runs[0].Error)
	assert.Equal(t, 3, runs[1].Groups)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRun(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT (.+) FROM runs WHERE id").
		WithArgs("run-1").
		WillReturnRows(runRows().
			AddRow("run-1", "2014-07-01", "done", 2, 3, "out/x.parquet", "", fixedNow, fixedNow))

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "done", run.Status)
	assert.Equal(t, "out/x.parquet", run.OutputPath)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRunNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT (.+) FROM runs WHERE id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestGetRunLogs(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT (.+) FROM run_logs WHERE run_id").
		WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "run_id", "stage", "level", "message", "details", "created_at"}).
			AddRow(1, "run-1", "selecting", "info", "stage entered", "{}", fixedNow).
			AddRow(2, "run-1", "loading", "info", "stage entered", `{"selected":2}`, fixedNow))

	logs, err := s.GetRunLogs(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Nil(t, logs[0].Details)
	assert.Equal(t, float64(2), logs[1].Details["selected"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
