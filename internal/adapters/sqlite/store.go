package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ament-gradle/ament-gradle/internal/domain"
	"github.com/ament-gradle/ament-gradle/internal/ports"
	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

var _ ports.StageStore = (*Store)(nil)

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	// WAL so the daemon can read while a CLI process writes
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	// single connection: SQLite must never see concurrent writers from us
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating: %w", err)
	}

	return &Store{db: db}, nil
}

// Files lists the database file at path and the journal files SQLite
// keeps next to it.
func Files(path string) []string {
	if path == "" || path == ":memory:" {
		return nil
	}
	return []string{path, path + "-wal", path + "-shm", path + "-journal"}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS stage_runs (
			id TEXT PRIMARY KEY,
			package_name TEXT NOT NULL,
			build_type TEXT NOT NULL,
			stage TEXT NOT NULL,
			state TEXT NOT NULL,
			started_at TEXT,
			completed_at TEXT,
			error_message TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS invocations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			stage_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			args_json TEXT NOT NULL,
			dir TEXT NOT NULL,
			exit_code INTEGER NOT NULL DEFAULT 0,
			outcome TEXT,
			output TEXT,
			started_at TEXT NOT NULL,
			completed_at TEXT,
			FOREIGN KEY (stage_id) REFERENCES stage_runs(id)
		);
		CREATE INDEX IF NOT EXISTS idx_stage_runs_package ON stage_runs(package_name);
	`)
	return err
}

const stageColumns = `id, package_name, build_type, stage, state, started_at, completed_at, error_message`

func (s *Store) CreateStage(ctx context.Context, run *domain.StageRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stage_runs (`+stageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.PackageName, run.BuildType, string(run.Stage), string(run.State),
		formatTime(run.StartedAt), formatTime(run.CompletedAt), run.ErrorMessage,
	)
	return err
}

func (s *Store) GetStage(ctx context.Context, id string) (*domain.StageRun, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+stageColumns+` FROM stage_runs WHERE id = ?`, id)
	run, err := scanStage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("stage %q: %w", id, ports.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	run.Invocations, err = s.GetInvocations(ctx, id)
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (s *Store) UpdateStage(ctx context.Context, run *domain.StageRun) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE stage_runs SET state = ?, started_at = ?, completed_at = ?, error_message = ? WHERE id = ?`,
		string(run.State), formatTime(run.StartedAt), formatTime(run.CompletedAt), run.ErrorMessage,
		run.ID,
	)
	return err
}

// ListStages returns all stage runs, newest first, without invocations.
func (s *Store) ListStages(ctx context.Context) ([]*domain.StageRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+stageColumns+` FROM stage_runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.StageRun
	for rows.Next() {
		run, err := scanStage(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *Store) SaveInvocation(ctx context.Context, stageID string, rec *domain.InvocationRecord) error {
	args, err := json.Marshal(rec.Args)
	if err != nil {
		return fmt.Errorf("encoding args: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO invocations (stage_id, seq, args_json, dir, exit_code, outcome, output, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stageID, rec.Seq, string(args), rec.Dir, rec.ExitCode, rec.Outcome, rec.Output,
		formatTime(rec.StartedAt), formatTime(rec.CompletedAt),
	)
	return err
}

func (s *Store) GetInvocations(ctx context.Context, stageID string) ([]*domain.InvocationRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, args_json, dir, exit_code, COALESCE(outcome,''), COALESCE(output,''), started_at, COALESCE(completed_at,'')
		 FROM invocations WHERE stage_id = ? ORDER BY seq, id`, stageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*domain.InvocationRecord
	for rows.Next() {
		rec := &domain.InvocationRecord{}
		var args, startedAt, completedAt string
		if err := rows.Scan(&rec.Seq, &args, &rec.Dir, &rec.ExitCode, &rec.Outcome, &rec.Output, &startedAt, &completedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(args), &rec.Args); err != nil {
			return nil, fmt.Errorf("decoding args of invocation %d: %w", rec.Seq, err)
		}
		rec.StartedAt = parseTime(startedAt)
		rec.CompletedAt = parseTime(completedAt)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// FailPendingStages marks stages left pending or running by a previous
// process as failed.
func (s *Store) FailPendingStages(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE stage_runs SET state = 'failed', completed_at = ?, error_message = 'interrupted'
		 WHERE state IN ('pending', 'running')`,
		formatTime(time.Now()),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStage(row scanner) (*domain.StageRun, error) {
	run := &domain.StageRun{}
	var startedAt, completedAt string
	err := row.Scan(&run.ID, &run.PackageName, &run.BuildType, &run.Stage, &run.State,
		&startedAt, &completedAt, &run.ErrorMessage)
	if err != nil {
		return nil, err
	}
	run.StartedAt = parseTime(startedAt)
	run.CompletedAt = parseTime(completedAt)
	return run, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
