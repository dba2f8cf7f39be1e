package scan

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"

	"github.com/veilscan/veilscan/internal/interfaces"
	"github.com/veilscan/veilscan/internal/probe"
	"github.com/veilscan/veilscan/internal/risk"
	"github.com/veilscan/veilscan/internal/store"
)

var (
	ErrEmptyQuery       = errors.New("scan: empty query")
	ErrInvalidQueryType = errors.New("scan: invalid query type")
	ErrInvalidEmail     = errors.New("scan: query is not a valid email address")
)

// Orchestrator owns the scan lifecycle: it creates tasks, fans probes out
// under the concurrency cap, persists findings as they arrive, scores the
// outcome and drives the state machine to a terminal status.
type Orchestrator struct {
	cfg      Config
	store    store.Store
	registry *probe.Registry
	runner   *probe.Runner
	logger   interfaces.Logger

	mu      sync.Mutex
	events  map[string]chan ScanEvent
	cancels map[string]context.CancelFunc
}

// NewOrchestrator ties together config, store, probe registry and logger.
func NewOrchestrator(cfg Config, st store.Store, reg *probe.Registry, logger interfaces.Logger) (*Orchestrator, error) {
	if st == nil {
		return nil, errors.New("scan: nil store provided")
	}
	if reg == nil {
		return nil, errors.New("scan: nil registry provided")
	}
	if logger == nil {
		return nil, errors.New("scan: nil logger provided")
	}
	cfg = cfg.withDefaults()

	return &Orchestrator{
		cfg:      cfg,
		store:    st,
		registry: reg,
		runner:   probe.NewRunner(cfg.ProbeTimeout, logger),
		logger:   logger.With(interfaces.Field{Key: "component", Value: "orchestrator"}),
		events:   make(map[string]chan ScanEvent),
		cancels:  make(map[string]context.CancelFunc),
	}, nil
}

// ScanView is the composed read model of one scan: the task, whatever
// findings exist so far, and the report once the scan completed.
type ScanView struct {
	Task     *store.ScanTask
	Findings []store.Finding
	Report   *risk.ThreatReport
}

// StartScan validates the query, creates a pending task and launches the
// scan in the background. The returned task is the pending row; callers poll
// or subscribe for the rest.
func (o *Orchestrator) StartScan(ctx context.Context, query string, queryType probe.QueryType) (*store.ScanTask, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	switch queryType {
	case probe.QueryEmail:
		if _, err := mail.ParseAddress(query); err != nil {
			return nil, ErrInvalidEmail
		}
	case probe.QueryUsername:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidQueryType, queryType)
	}

	task, err := o.store.CreateTask(ctx, query, string(queryType))
	if err != nil {
		return nil, fmt.Errorf("failed to create scan task: %w", err)
	}

	// The scan outlives the request that started it.
	scanCtx, cancel := context.WithCancel(context.Background())

	o.mu.Lock()
	o.events[task.ID] = make(chan ScanEvent, 64)
	o.cancels[task.ID] = cancel
	o.mu.Unlock()

	o.emit(task.ID, ScanEvent{TaskID: task.ID, Type: ScanEventStatus, Status: store.StatusPending})

	go o.run(scanCtx, task)

	return task, nil
}

// GetScan composes the task, its findings and its report.
func (o *Orchestrator) GetScan(ctx context.Context, taskID string) (*ScanView, error) {
	task, err := o.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	findings, err := o.store.ListFindings(ctx, taskID)
	if err != nil {
		return nil, err
	}
	report, err := o.store.GetReport(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return &ScanView{Task: task, Findings: findings, Report: report}, nil
}

// WipeScan cancels the scan if it is still running and removes every trace of
// it. Returns false when nothing was stored for the id.
func (o *Orchestrator) WipeScan(ctx context.Context, taskID string) (bool, error) {
	o.mu.Lock()
	cancel := o.cancels[taskID]
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return o.store.WipeTask(ctx, taskID)
}

// Events returns the event stream of a scan, nil when the scan is unknown or
// already finished. The channel is closed when the scan reaches a terminal
// status.
func (o *Orchestrator) Events(taskID string) <-chan ScanEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	ch, ok := o.events[taskID]
	if !ok {
		return nil
	}
	return ch
}

// Shutdown cancels every in-flight scan.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(o.cancels))
	for _, cancel := range o.cancels {
		cancels = append(cancels, cancel)
	}
	o.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

// emit sends an event to the task's stream without blocking; slow consumers
// lose events rather than stalling the scan.
func (o *Orchestrator) emit(taskID string, ev ScanEvent) {
	o.mu.Lock()
	ch := o.events[taskID]
	o.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case ch <- ev:
	default:
	}
}

// finish closes out the per-task bookkeeping after a terminal transition.
func (o *Orchestrator) finish(taskID string) {
	o.mu.Lock()
	ch := o.events[taskID]
	delete(o.events, taskID)
	delete(o.cancels, taskID)
	o.mu.Unlock()
	if ch != nil {
		close(ch)
	}
}

func (o *Orchestrator) run(ctx context.Context, task *store.ScanTask) {
	defer o.finish(task.ID)

	logger := o.logger.With(
		interfaces.Field{Key: "task_id", Value: task.ID},
		interfaces.Field{Key: "query_type", Value: task.QueryType})

	if err := o.store.ClaimTask(ctx, task.ID); err != nil {
		// Someone wiped or raced the task before the scan started.
		logger.Warn("scan not claimable", interfaces.Field{Key: "error", Value: err.Error()})
		return
	}
	o.emit(task.ID, ScanEvent{TaskID: task.ID, Type: ScanEventStatus, Status: store.StatusRunning})

	probes := o.registry.Probes()
	total := len(probes)
	logger.Info("scan started",
		interfaces.Field{Key: "probes", Value: total},
		interfaces.Field{Key: "concurrency", Value: o.cfg.Concurrency})

	results := make([]probe.Result, total)
	sem := make(chan struct{}, o.cfg.Concurrency)

	var (
		wg        sync.WaitGroup
		persistMu sync.Mutex
		completed int
		storeErr  error
	)

	for i, p := range probes {
		wg.Add(1)
		go func(i int, p probe.Probe) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			res := o.runner.Run(ctx, p, task.Query, probe.QueryType(task.QueryType))
			results[i] = res

			// Serialize persistence per scan so finding inserts and
			// progress updates land in completion order.
			persistMu.Lock()
			defer persistMu.Unlock()

			finding := store.FindingFromResult(task.ID, res)
			if err := o.store.InsertFinding(ctx, finding); err != nil {
				if storeErr == nil {
					storeErr = err
				}
				return
			}

			completed++
			progress := completed * 100 / total
			if err := o.store.UpdateProgress(ctx, task.ID, progress); err != nil && storeErr == nil {
				storeErr = err
			}

			o.emit(task.ID, ScanEvent{TaskID: task.ID, Type: ScanEventFinding, Finding: finding})
			o.emit(task.ID, ScanEvent{
				TaskID:    task.ID,
				Type:      ScanEventProgress,
				Completed: completed,
				Total:     total,
				Progress:  progress,
			})
		}(i, p)
	}
	wg.Wait()

	if storeErr != nil {
		o.fail(ctx, task.ID, logger, storeErr)
		return
	}
	if err := ctx.Err(); err != nil {
		// Canceled scans are wiped by the caller; just mark failed if
		// the row still exists.
		o.fail(ctx, task.ID, logger, err)
		return
	}

	report := risk.Score(results)
	if err := o.store.CreateReport(ctx, task.ID, report); err != nil {
		o.fail(ctx, task.ID, logger, err)
		return
	}
	if err := o.store.CompleteTask(ctx, task.ID); err != nil {
		o.fail(ctx, task.ID, logger, err)
		return
	}

	o.emit(task.ID, ScanEvent{TaskID: task.ID, Type: ScanEventReport})
	o.emit(task.ID, ScanEvent{TaskID: task.ID, Type: ScanEventStatus, Status: store.StatusCompleted})
	logger.Info("scan completed",
		interfaces.Field{Key: "overall_score", Value: report.OverallScore},
		interfaces.Field{Key: "risk_level", Value: string(report.RiskLevel)})
}

func (o *Orchestrator) fail(ctx context.Context, taskID string, logger interfaces.Logger, cause error) {
	// Best effort with a fresh context; the scan context may already be
	// canceled.
	if ctx.Err() != nil {
		ctx = context.Background()
	}
	if err := o.store.FailTask(ctx, taskID); err != nil && !errors.Is(err, store.ErrTaskNotFound) {
		logger.Error("failed to mark scan failed", interfaces.Field{Key: "error", Value: err.Error()})
	}
	o.emit(taskID, ScanEvent{
		TaskID: taskID,
		Type:   ScanEventStatus,
		Status: store.StatusFailed,
		Error:  cause.Error(),
	})
	logger.Error("scan failed", interfaces.Field{Key: "error", Value: cause.Error()})
}
