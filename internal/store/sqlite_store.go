package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/veilscan/veilscan/internal/interfaces"
	"github.com/veilscan/veilscan/internal/risk"
	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore implements Store using SQLite for scan tasks, findings and
// threat reports.
type SQLiteStore struct {
	db     *sql.DB
	logger interfaces.Logger
	config Config
}

// NewSQLiteStore opens (or creates) the database at cfg.Path, applies the
// schema and returns the store.
func NewSQLiteStore(cfg Config, logger interfaces.Logger) (*SQLiteStore, error) {
	if logger == nil {
		return nil, errors.New("store: nil logger provided")
	}
	if cfg.Path == "" {
		cfg = DefaultConfig()
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database exists per connection, so the pool must be
	// pinned to a single one.
	if cfg.Path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With(interfaces.Field{Key: "component", Value: "store"}),
		config: cfg,
	}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateTask inserts a new pending scan task.
func (s *SQLiteStore) CreateTask(ctx context.Context, query, queryType string) (*ScanTask, error) {
	task := &ScanTask{
		ID:        uuid.New().String(),
		Query:     query,
		QueryType: queryType,
		Status:    StatusPending,
		Progress:  0,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scan_tasks (id, query, query_type, status, progress, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		task.ID, task.Query, task.QueryType, string(task.Status), task.Progress, task.CreatedAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to insert scan task: %w", err)
	}

	s.logger.Debug("scan task created",
		interfaces.Field{Key: "task_id", Value: task.ID},
		interfaces.Field{Key: "query_type", Value: task.QueryType})
	return task, nil
}

// GetTask fetches one task by id.
func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*ScanTask, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, query, query_type, status, progress, created_at, completed_at
		 FROM scan_tasks WHERE id = ?`, id)
	return scanTaskRow(row)
}

// ClaimTask transitions a pending task to running. The conditional UPDATE is
// the concurrency gate: only one caller can flip pending to running.
func (s *SQLiteStore) ClaimTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scan_tasks SET status = ? WHERE id = ? AND status = ?`,
		string(StatusRunning), id, string(StatusPending))
	if err != nil {
		return fmt.Errorf("failed to claim scan task: %w", err)
	}
	return s.transitionResult(ctx, res, id)
}

// UpdateProgress raises a running task's progress. MAX() keeps the value
// monotonic under concurrent probe completions.
func (s *SQLiteStore) UpdateProgress(ctx context.Context, id string, progress int) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE scan_tasks SET progress = MAX(progress, ?) WHERE id = ? AND status = ?`,
		progress, id, string(StatusRunning))
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}
	return nil
}

// CompleteTask transitions a running task to completed.
func (s *SQLiteStore) CompleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scan_tasks SET status = ?, progress = 100, completed_at = ?
		 WHERE id = ? AND status = ?`,
		string(StatusCompleted), time.Now().UTC().Unix(), id, string(StatusRunning))
	if err != nil {
		return fmt.Errorf("failed to complete scan task: %w", err)
	}
	return s.transitionResult(ctx, res, id)
}

// FailTask transitions a non-terminal task to failed.
func (s *SQLiteStore) FailTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scan_tasks SET status = ?, completed_at = ?
		 WHERE id = ? AND status IN (?, ?)`,
		string(StatusFailed), time.Now().UTC().Unix(), id,
		string(StatusPending), string(StatusRunning))
	if err != nil {
		return fmt.Errorf("failed to fail scan task: %w", err)
	}
	return s.transitionResult(ctx, res, id)
}

// transitionResult maps a zero-row UPDATE to the right sentinel error.
func (s *SQLiteStore) transitionResult(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.GetTask(ctx, id); err != nil {
		return err
	}
	return ErrTaskNotClaimable
}

// InsertFinding persists one finding.
func (s *SQLiteStore) InsertFinding(ctx context.Context, f *Finding) error {
	return s.insertFinding(ctx, s.db, f)
}

// InsertFindings persists a batch of findings in one transaction.
func (s *SQLiteStore) InsertFindings(ctx context.Context, findings []*Finding) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, f := range findings {
		if err := s.insertFinding(ctx, tx, f); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteStore) insertFinding(ctx context.Context, ex execer, f *Finding) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.CheckedAt.IsZero() {
		f.CheckedAt = time.Now().UTC()
	}

	dataJSON, err := json.Marshal(f.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal finding data: %w", err)
	}

	_, err = ex.ExecContext(ctx,
		`INSERT INTO findings (id, task_id, platform, url, found, data_json, risk_category, risk_score, error, checked_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.TaskID, f.Platform, f.URL, boolToInt(f.Found),
		string(dataJSON), f.Category, f.Score, f.Error, f.CheckedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert finding: %w", err)
	}
	return nil
}

// ListFindings returns all findings of a task ordered by insertion time.
func (s *SQLiteStore) ListFindings(ctx context.Context, taskID string) ([]Finding, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task_id, platform, url, found, data_json, risk_category, risk_score, error, checked_at
		 FROM findings WHERE task_id = ? ORDER BY checked_at, platform`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query findings: %w", err)
	}
	defer rows.Close()

	var findings []Finding
	for rows.Next() {
		f, err := scanFindingRow(rows)
		if err != nil {
			return nil, err
		}
		findings = append(findings, *f)
	}
	return findings, rows.Err()
}

// GetFinding fetches one finding by task and platform, nil when absent.
func (s *SQLiteStore) GetFinding(ctx context.Context, taskID, platform string) (*Finding, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, task_id, platform, url, found, data_json, risk_category, risk_score, error, checked_at
		 FROM findings WHERE task_id = ? AND platform = ?`, taskID, platform)
	f, err := scanFindingRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return f, err
}

// CreateReport persists the threat report for a task.
func (s *SQLiteStore) CreateReport(ctx context.Context, taskID string, report *risk.ThreatReport) error {
	recJSON, err := json.Marshal(report.Recommendations)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendations: %w", err)
	}
	catJSON, err := json.Marshal(report.CategoryScores)
	if err != nil {
		return fmt.Errorf("failed to marshal category scores: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO threat_reports (id, task_id, overall_score, risk_level, summary, recommendations_json, category_scores_json, generated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), taskID, report.OverallScore, string(report.RiskLevel),
		report.Summary, string(recJSON), string(catJSON), time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("failed to insert threat report: %w", err)
	}
	return nil
}

// GetReport fetches a task's threat report, nil when none exists yet.
func (s *SQLiteStore) GetReport(ctx context.Context, taskID string) (*risk.ThreatReport, error) {
	var (
		report  risk.ThreatReport
		level   string
		recJSON string
		catJSON string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT overall_score, risk_level, summary, recommendations_json, category_scores_json
		 FROM threat_reports WHERE task_id = ?`, taskID).
		Scan(&report.OverallScore, &level, &report.Summary, &recJSON, &catJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query threat report: %w", err)
	}

	report.RiskLevel = risk.Level(level)
	if err := json.Unmarshal([]byte(recJSON), &report.Recommendations); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recommendations: %w", err)
	}
	if err := json.Unmarshal([]byte(catJSON), &report.CategoryScores); err != nil {
		return nil, fmt.Errorf("failed to unmarshal category scores: %w", err)
	}
	return &report, nil
}

// WipeTask removes the task's findings, its report and finally the task row.
// Child rows go first so the foreign keys never dangle mid-wipe.
func (s *SQLiteStore) WipeTask(ctx context.Context, taskID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM findings WHERE task_id = ?`, taskID); err != nil {
		return false, fmt.Errorf("failed to delete findings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM threat_reports WHERE task_id = ?`, taskID); err != nil {
		return false, fmt.Errorf("failed to delete threat report: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM scan_tasks WHERE id = ?`, taskID)
	if err != nil {
		return false, fmt.Errorf("failed to delete scan task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit wipe: %w", err)
	}

	if n > 0 {
		s.logger.Info("scan task wiped", interfaces.Field{Key: "task_id", Value: taskID})
	}
	return n > 0, nil
}

// ExpiredTaskIDs lists tasks created strictly before cutoff, oldest first.
func (s *SQLiteStore) ExpiredTaskIDs(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM scan_tasks WHERE created_at < ? ORDER BY created_at`, cutoff.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query expired tasks: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan task id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTaskRow(row rowScanner) (*ScanTask, error) {
	var (
		task        ScanTask
		status      string
		createdAt   int64
		completedAt sql.NullInt64
	)
	err := row.Scan(&task.ID, &task.Query, &task.QueryType, &status, &task.Progress, &createdAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan task row: %w", err)
	}

	task.Status = TaskStatus(status)
	task.CreatedAt = time.Unix(createdAt, 0).UTC()
	if completedAt.Valid {
		t := time.Unix(completedAt.Int64, 0).UTC()
		task.CompletedAt = &t
	}
	return &task, nil
}

func scanFindingRow(row rowScanner) (*Finding, error) {
	var (
		f         Finding
		found     int
		dataJSON  string
		checkedAt int64
	)
	err := row.Scan(&f.ID, &f.TaskID, &f.Platform, &f.URL, &found, &dataJSON,
		&f.Category, &f.Score, &f.Error, &checkedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to scan finding row: %w", err)
	}

	f.Found = found != 0
	f.CheckedAt = time.Unix(checkedAt, 0).UTC()
	if dataJSON != "" && dataJSON != "{}" && dataJSON != "null" {
		if err := json.Unmarshal([]byte(dataJSON), &f.Data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal finding data: %w", err)
		}
	}
	return &f, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
