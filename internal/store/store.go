package store

import (
	"context"
	"errors"
	"time"

	"github.com/veilscan/veilscan/internal/probe"
	"github.com/veilscan/veilscan/internal/risk"
)

var (
	// ErrTaskNotFound means no scan task exists for the given id.
	ErrTaskNotFound = errors.New("scan task not found")

	// ErrTaskNotClaimable means the task is not in a state the caller may
	// move it from, e.g. claiming a task that already ran.
	ErrTaskNotClaimable = errors.New("scan task not claimable")
)

// TaskStatus is the scan task lifecycle state. Transitions are monotonic:
// pending -> running -> completed|failed, never backwards.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusRunning   TaskStatus = "running"
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ScanTask is one scan job row.
type ScanTask struct {
	ID          string     `json:"id"`
	Query       string     `json:"query"`
	QueryType   string     `json:"query_type"`
	Status      TaskStatus `json:"status"`
	Progress    int        `json:"progress"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Finding is the persisted outcome of one probe for one task. Write-once:
// created when the probe completes, never updated, removed only by wipes.
type Finding struct {
	ID        string         `json:"id"`
	TaskID    string         `json:"task_id"`
	Platform  string         `json:"platform"`
	URL       string         `json:"url,omitempty"`
	Found     bool           `json:"found"`
	Data      map[string]any `json:"data_found,omitempty"`
	Category  string         `json:"risk_category,omitempty"`
	Score     float64        `json:"risk_score"`
	Error     string         `json:"error,omitempty"`
	CheckedAt time.Time      `json:"checked_at"`
}

// FindingFromResult maps a contained probe result onto a Finding row.
func FindingFromResult(taskID string, r probe.Result) *Finding {
	return &Finding{
		TaskID:   taskID,
		Platform: r.Platform,
		URL:      r.URL,
		Found:    r.Found,
		Data:     r.Data,
		Category: string(r.Category),
		Score:    r.Score,
		Error:    r.Error,
	}
}

// Result converts a Finding back into the probe result shape the scorer
// consumes.
func (f *Finding) Result() probe.Result {
	return probe.Result{
		Platform: f.Platform,
		URL:      f.URL,
		Found:    f.Found,
		Data:     f.Data,
		Category: probe.Category(f.Category),
		Score:    f.Score,
		Error:    f.Error,
	}
}

// Store is the persistence contract the orchestrator, sweeper and server
// depend on. The JSON sub-objects of findings and reports are a serialization
// concern of the implementation, not of callers.
type Store interface {
	// CreateTask inserts a new pending task and returns it.
	CreateTask(ctx context.Context, query, queryType string) (*ScanTask, error)

	// GetTask fetches one task by id, ErrTaskNotFound when absent.
	GetTask(ctx context.Context, id string) (*ScanTask, error)

	// ClaimTask moves a pending task to running. It is the single-owner
	// gate: exactly one caller wins; everyone else gets
	// ErrTaskNotClaimable (or ErrTaskNotFound).
	ClaimTask(ctx context.Context, id string) error

	// UpdateProgress raises the progress of a running task. Lower values
	// are ignored so concurrent completions can never move progress
	// backwards.
	UpdateProgress(ctx context.Context, id string, progress int) error

	// CompleteTask moves a running task to completed, pinning progress to
	// 100 and recording the completion time.
	CompleteTask(ctx context.Context, id string) error

	// FailTask moves a non-terminal task to failed.
	FailTask(ctx context.Context, id string) error

	// InsertFinding persists one finding.
	InsertFinding(ctx context.Context, f *Finding) error

	// InsertFindings persists a batch of findings in one transaction.
	InsertFindings(ctx context.Context, findings []*Finding) error

	// ListFindings returns all findings of a task in insertion order.
	ListFindings(ctx context.Context, taskID string) ([]Finding, error)

	// GetFinding fetches a single found finding by task and platform.
	GetFinding(ctx context.Context, taskID, platform string) (*Finding, error)

	// CreateReport persists the threat report for a task. A task has at
	// most one report; a second insert fails.
	CreateReport(ctx context.Context, taskID string, report *risk.ThreatReport) error

	// GetReport fetches a task's report, nil when none exists yet.
	GetReport(ctx context.Context, taskID string) (*risk.ThreatReport, error)

	// WipeTask deletes the task's findings, report and the task row, in
	// that order. Returns false when the task was already gone.
	WipeTask(ctx context.Context, taskID string) (bool, error)

	// ExpiredTaskIDs lists tasks created strictly before cutoff.
	ExpiredTaskIDs(ctx context.Context, cutoff time.Time) ([]string, error)

	Close() error
}
