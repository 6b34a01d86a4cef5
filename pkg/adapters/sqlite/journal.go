// Package sqlite keeps a local journal of bootstrap runs and the commands they ran.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/nexus-bootstrap/pkg/domain"
	"github.com/aretw0/nexus-bootstrap/pkg/ports"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// RunRecord is one row of the runs table.
type RunRecord struct {
	RunID       string `json:"runId"`
	Environment string `json:"environment"`
	Mode        string `json:"mode,omitempty"`
	Identity    string `json:"identity,omitempty"`
	Binary      string `json:"binary,omitempty"`
	Status      string `json:"status"`
	StartedAt   string `json:"startedAt"`
	EndedAt     string `json:"endedAt,omitempty"`
	LastError   string `json:"lastError,omitempty"`
}

// CommandRecord is one row of the commands table.
type CommandRecord struct {
	RunID      string `json:"runId"`
	Stage      string `json:"stage"`
	Command    string `json:"command"`
	ExitCode   int    `json:"exitCode"`
	TimedOut   bool   `json:"timedOut"`
	Tolerated  bool   `json:"tolerated"`
	DurationMS int64  `json:"durationMs"`
	Stderr     string `json:"stderr,omitempty"`
	FinishedAt string `json:"finishedAt"`
}

// Journal records one bootstrap run at a time. Write failures are logged, never returned
// to the observers' callers.
type Journal struct {
	db     *sql.DB
	logger *slog.Logger

	mu    sync.Mutex
	runID string
}

var (
	_ ports.OutcomeObserver = (*Journal)(nil)
	_ ports.StageObserver   = (*Journal)(nil)
)

// Open opens or creates the journal database at path.
func Open(path string, logger *slog.Logger) (*Journal, error) {
	if path == "" {
		path = filepath.Join(".nexus", "bootstrap.db")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	j := &Journal{db: db, logger: logger}
	if err := j.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialise journal %s: %w", path, err)
	}
	return j, nil
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

func (j *Journal) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			environment TEXT NOT NULL,
			mode TEXT,
			identity TEXT,
			binary_path TEXT,
			status TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT,
			last_error TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS commands (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			stage TEXT NOT NULL,
			command TEXT NOT NULL,
			exit_code INTEGER NOT NULL,
			timed_out INTEGER NOT NULL,
			tolerated INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			stderr TEXT,
			finished_at TEXT NOT NULL,
			FOREIGN KEY(run_id) REFERENCES runs(run_id)
		);`,
		`CREATE TABLE IF NOT EXISTS stages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			stage TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			error TEXT,
			finished_at TEXT NOT NULL,
			FOREIGN KEY(run_id) REFERENCES runs(run_id)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := j.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// timeFormat keeps a fixed width so timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

func now() string {
	return time.Now().UTC().Format(timeFormat)
}

// Begin starts a new run and returns its identifier.
func (j *Journal) Begin(ctx context.Context, env domain.Environment) (string, error) {
	runID := uuid.NewString()
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, environment, status, started_at) VALUES (?, ?, ?, ?)`,
		runID, env.String(), StatusRunning, now(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}
	j.mu.Lock()
	j.runID = runID
	j.mu.Unlock()
	return runID, nil
}

// RunID returns the current run, or "" before Begin.
func (j *Journal) RunID() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runID
}

// SetIdentity records the resolved identity (masked) and the located binary.
func (j *Journal) SetIdentity(ctx context.Context, id domain.Identity, bin domain.BinaryLocation) {
	runID := j.RunID()
	if runID == "" {
		return
	}
	_, err := j.db.ExecContext(ctx,
		`UPDATE runs SET mode = ?, identity = ?, binary_path = ? WHERE run_id = ?`,
		nullableString(string(id.Mode())), nullableString(id.Masked()), nullableString(bin.String()), runID,
	)
	j.warn(err, "identity")
}

// Finish closes the current run. A nil err marks it succeeded.
func (j *Journal) Finish(ctx context.Context, runErr error) {
	runID := j.RunID()
	if runID == "" {
		return
	}
	status, lastError := StatusSucceeded, ""
	if runErr != nil {
		status, lastError = StatusFailed, runErr.Error()
	}
	_, err := j.db.ExecContext(context.WithoutCancel(ctx),
		`UPDATE runs SET status = ?, ended_at = ?, last_error = ? WHERE run_id = ?`,
		status, now(), nullableString(lastError), runID,
	)
	j.warn(err, "finish")
}

// ObserveOutcome implements ports.OutcomeObserver.
func (j *Journal) ObserveOutcome(ctx context.Context, o domain.CommandOutcome) {
	runID := j.RunID()
	if runID == "" {
		return
	}
	_, err := j.db.ExecContext(context.WithoutCancel(ctx),
		`INSERT INTO commands (run_id, stage, command, exit_code, timed_out, tolerated, duration_ms, stderr, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, string(o.Command.Stage), o.Command.Display(), o.ExitCode, o.TimedOut, o.Tolerated,
		o.Duration.Milliseconds(), nullableString(o.Stderr), now(),
	)
	j.warn(err, "command")
}

// StageStarted implements ports.StageObserver.
func (j *Journal) StageStarted(context.Context, domain.Stage) {}

// StageFinished implements ports.StageObserver.
func (j *Journal) StageFinished(ctx context.Context, stage domain.Stage, took time.Duration, stageErr error) {
	runID := j.RunID()
	if runID == "" {
		return
	}
	msg := ""
	if stageErr != nil {
		msg = stageErr.Error()
	}
	_, err := j.db.ExecContext(context.WithoutCancel(ctx),
		`INSERT INTO stages (run_id, stage, duration_ms, error, finished_at) VALUES (?, ?, ?, ?, ?)`,
		runID, string(stage), took.Milliseconds(), nullableString(msg), now(),
	)
	j.warn(err, "stage")
}

func (j *Journal) warn(err error, what string) {
	if err != nil {
		j.logger.Warn("Failed to write journal", "record", what, "error", err)
	}
}

const runColumns = `run_id, environment, COALESCE(mode,''), COALESCE(identity,''), COALESCE(binary_path,''), status, started_at, COALESCE(ended_at,''), COALESCE(last_error,'')`

func scanRun(row interface{ Scan(...any) error }) (RunRecord, error) {
	var r RunRecord
	err := row.Scan(&r.RunID, &r.Environment, &r.Mode, &r.Identity, &r.Binary, &r.Status, &r.StartedAt, &r.EndedAt, &r.LastError)
	return r, err
}

// GetRun returns one run.
func (j *Journal) GetRun(ctx context.Context, runID string) (RunRecord, error) {
	r, err := scanRun(j.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunRecord{}, fmt.Errorf("run not found: %s", runID)
		}
		return RunRecord{}, err
	}
	return r, nil
}

// ListRuns returns the most recent runs first.
func (j *Journal) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]RunRecord, 0)
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Commands returns the commands of runID in execution order.
func (j *Journal) Commands(ctx context.Context, runID string) ([]CommandRecord, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT run_id, stage, command, exit_code, timed_out, tolerated, duration_ms, COALESCE(stderr,''), finished_at
		FROM commands WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]CommandRecord, 0)
	for rows.Next() {
		var c CommandRecord
		if err := rows.Scan(&c.RunID, &c.Stage, &c.Command, &c.ExitCode, &c.TimedOut, &c.Tolerated, &c.DurationMS, &c.Stderr, &c.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}
