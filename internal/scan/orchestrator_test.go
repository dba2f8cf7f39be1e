package scan_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/veilscan/veilscan/internal/interfaces"
	"github.com/veilscan/veilscan/internal/probe"
	"github.com/veilscan/veilscan/internal/scan"
	"github.com/veilscan/veilscan/internal/store"
)

// scriptedProbe returns a fixed outcome, optionally after a delay.
type scriptedProbe struct {
	platform string
	category probe.Category
	delay    time.Duration
	result   *probe.Result
	err      error
}

func (s *scriptedProbe) Platform() string         { return s.platform }
func (s *scriptedProbe) BaseURL() string          { return "https://scripted.test" }
func (s *scriptedProbe) Category() probe.Category { return s.category }

func (s *scriptedProbe) Check(ctx context.Context, query string, queryType probe.QueryType) (*probe.Result, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.result, s.err
}

func foundOn(platform string, cat probe.Category) *scriptedProbe {
	return &scriptedProbe{
		platform: platform,
		category: cat,
		result: &probe.Result{
			Platform: platform,
			URL:      "https://scripted.test/" + platform,
			Found:    true,
			Category: cat,
		},
	}
}

func missOn(platform string, cat probe.Category) *scriptedProbe {
	return &scriptedProbe{
		platform: platform,
		category: cat,
		result:   &probe.Result{Platform: platform, Category: cat},
	}
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(
		store.Config{Path: filepath.Join(t.TempDir(), "veilscan.db")},
		interfaces.NewTestLogger(testing.Verbose()))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newOrchestrator(t *testing.T, st store.Store, probes []probe.Probe) *scan.Orchestrator {
	t.Helper()
	reg, err := probe.NewRegistry(probes)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	orch, err := scan.NewOrchestrator(scan.Config{Concurrency: 2, ProbeTimeout: time.Second},
		st, reg, interfaces.NewTestLogger(testing.Verbose()))
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	return orch
}

// waitTerminal polls until the task reaches a terminal status.
func waitTerminal(t *testing.T, orch *scan.Orchestrator, taskID string) *scan.ScanView {
	t.Helper()

	if events := orch.Events(taskID); events != nil {
		deadline := time.After(5 * time.Second)
		for {
			select {
			case _, ok := <-events:
				if !ok {
					goto done
				}
			case <-deadline:
				t.Fatal("scan did not finish within 5s")
			}
		}
	}
done:
	deadline := time.Now().Add(5 * time.Second)
	for {
		view, err := orch.GetScan(context.Background(), taskID)
		if err != nil {
			t.Fatalf("GetScan: %v", err)
		}
		if view.Task.Status.Terminal() {
			return view
		}
		if time.Now().After(deadline) {
			t.Fatalf("task stuck in status %v", view.Task.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestScanProducesOneFindingPerProbe(t *testing.T) {
	st := newTestStore(t)
	orch := newOrchestrator(t, st, []probe.Probe{
		foundOn("HaveIBeenPwned", probe.CategoryDataBreach),
		missOn("GitHub", probe.CategoryReputational),
		&scriptedProbe{platform: "Reddit", category: probe.CategoryReputational, err: errors.New("connection reset")},
	})
	defer orch.Shutdown()

	task, err := orch.StartScan(context.Background(), "alice", probe.QueryUsername)
	if err != nil {
		t.Fatalf("StartScan: %v", err)
	}
	if task.Status != store.StatusPending {
		t.Errorf("initial status = %v, want pending", task.Status)
	}

	view := waitTerminal(t, orch, task.ID)

	if view.Task.Status != store.StatusCompleted {
		t.Fatalf("status = %v, want completed", view.Task.Status)
	}
	if view.Task.Progress != 100 {
		t.Errorf("progress = %d, want 100", view.Task.Progress)
	}
	if len(view.Findings) != 3 {
		t.Fatalf("got %d findings, want 3 (one per probe)", len(view.Findings))
	}

	byPlatform := make(map[string]store.Finding)
	for _, f := range view.Findings {
		byPlatform[f.Platform] = f
	}
	if !byPlatform["HaveIBeenPwned"].Found {
		t.Error("HaveIBeenPwned finding not marked found")
	}
	if byPlatform["GitHub"].Found || byPlatform["GitHub"].Error != "" {
		t.Errorf("GitHub finding = %+v, want clean miss", byPlatform["GitHub"])
	}
	if byPlatform["Reddit"].Error != "connection reset" {
		t.Errorf("Reddit error = %q, want contained failure", byPlatform["Reddit"].Error)
	}

	if view.Report == nil {
		t.Fatal("no threat report after completion")
	}
	if view.Report.OverallScore != 9.5 {
		t.Errorf("OverallScore = %v, want 9.5", view.Report.OverallScore)
	}
}

func TestScanEmitsLifecycleEvents(t *testing.T) {
	st := newTestStore(t)
	orch := newOrchestrator(t, st, []probe.Probe{
		// A small delay keeps the scan alive long enough to observe the
		// running transition.
		&scriptedProbe{
			platform: "GitHub",
			category: probe.CategoryReputational,
			delay:    20 * time.Millisecond,
			result:   &probe.Result{Platform: "GitHub", Found: true, Category: probe.CategoryReputational},
		},
	})
	defer orch.Shutdown()

	task, err := orch.StartScan(context.Background(), "alice", probe.QueryUsername)
	if err != nil {
		t.Fatalf("StartScan: %v", err)
	}

	events := orch.Events(task.ID)
	if events == nil {
		t.Fatal("Events returned nil for a fresh scan")
	}

	var (
		sawRunning   bool
		sawFinding   bool
		sawProgress  bool
		sawCompleted bool
	)
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				if !sawRunning || !sawFinding || !sawProgress || !sawCompleted {
					t.Errorf("missed events: running=%v finding=%v progress=%v completed=%v",
						sawRunning, sawFinding, sawProgress, sawCompleted)
				}
				return
			}
			switch ev.Type {
			case scan.ScanEventStatus:
				if ev.Status == store.StatusRunning {
					sawRunning = true
				}
				if ev.Status == store.StatusCompleted {
					sawCompleted = true
				}
			case scan.ScanEventFinding:
				sawFinding = true
				if ev.Finding == nil || ev.Finding.Platform != "GitHub" {
					t.Errorf("finding event = %+v", ev.Finding)
				}
			case scan.ScanEventProgress:
				sawProgress = true
				if ev.Total != 1 {
					t.Errorf("progress total = %d, want 1", ev.Total)
				}
			}
		case <-deadline:
			t.Fatal("event stream did not close within 5s")
		}
	}
}

// countingProbe blocks briefly in Check and records how many Checks were
// in flight at once.
type countingProbe struct {
	platform string
	mu       *sync.Mutex
	inflight *int
	peak     *int
}

func (c *countingProbe) Platform() string         { return c.platform }
func (c *countingProbe) BaseURL() string          { return "https://scripted.test" }
func (c *countingProbe) Category() probe.Category { return probe.CategoryReputational }

func (c *countingProbe) Check(ctx context.Context, query string, queryType probe.QueryType) (*probe.Result, error) {
	c.mu.Lock()
	*c.inflight++
	if *c.inflight > *c.peak {
		*c.peak = *c.inflight
	}
	c.mu.Unlock()

	select {
	case <-time.After(30 * time.Millisecond):
	case <-ctx.Done():
	}

	c.mu.Lock()
	*c.inflight--
	c.mu.Unlock()
	return &probe.Result{Platform: c.platform}, nil
}

func TestScanHonorsConcurrencyCap(t *testing.T) {
	var (
		mu       sync.Mutex
		inflight int
		peak     int
	)
	probes := make([]probe.Probe, 0, 6)
	for _, platform := range []string{"GitHub", "GitLab", "Reddit", "Medium", "Keybase", "Behance"} {
		probes = append(probes, &countingProbe{platform: platform, mu: &mu, inflight: &inflight, peak: &peak})
	}

	st := newTestStore(t)
	orch := newOrchestrator(t, st, probes)
	defer orch.Shutdown()

	task, err := orch.StartScan(context.Background(), "alice", probe.QueryUsername)
	if err != nil {
		t.Fatalf("StartScan: %v", err)
	}
	view := waitTerminal(t, orch, task.ID)

	if view.Task.Status != store.StatusCompleted {
		t.Fatalf("status = %v, want completed", view.Task.Status)
	}
	if len(view.Findings) != 6 {
		t.Fatalf("got %d findings, want 6", len(view.Findings))
	}

	mu.Lock()
	defer mu.Unlock()
	if peak > 2 {
		t.Errorf("peak concurrent probes = %d, cap is 2", peak)
	}
	if peak < 2 {
		t.Errorf("peak concurrent probes = %d, the pool never filled", peak)
	}
}

func TestStartScanValidation(t *testing.T) {
	st := newTestStore(t)
	orch := newOrchestrator(t, st, []probe.Probe{missOn("GitHub", probe.CategoryReputational)})
	defer orch.Shutdown()

	tests := []struct {
		name      string
		query     string
		queryType probe.QueryType
		wantErr   error
	}{
		{"empty query", "", probe.QueryUsername, scan.ErrEmptyQuery},
		{"blank query", "   ", probe.QueryUsername, scan.ErrEmptyQuery},
		{"bad type", "alice", probe.QueryType("phone"), scan.ErrInvalidQueryType},
		{"bad email", "not-an-email", probe.QueryEmail, scan.ErrInvalidEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := orch.StartScan(context.Background(), tt.query, tt.queryType)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestScanSurvivesSlowProbe(t *testing.T) {
	st := newTestStore(t)
	orch := newOrchestrator(t, st, []probe.Probe{
		foundOn("GitHub", probe.CategoryReputational),
		// Outlasts the 1s probe timeout.
		&scriptedProbe{
			platform: "Medium",
			category: probe.CategoryReputational,
			delay:    10 * time.Second,
			result:   &probe.Result{Platform: "Medium", Found: true},
		},
	})
	defer orch.Shutdown()

	task, err := orch.StartScan(context.Background(), "alice", probe.QueryUsername)
	if err != nil {
		t.Fatalf("StartScan: %v", err)
	}

	view := waitTerminal(t, orch, task.ID)

	if view.Task.Status != store.StatusCompleted {
		t.Fatalf("status = %v, want completed despite the slow probe", view.Task.Status)
	}
	var medium *store.Finding
	for i := range view.Findings {
		if view.Findings[i].Platform == "Medium" {
			medium = &view.Findings[i]
		}
	}
	if medium == nil {
		t.Fatal("slow probe produced no finding")
	}
	if medium.Found || medium.Error == "" {
		t.Errorf("slow probe finding = %+v, want timeout failure", medium)
	}
}

func TestWipeScanRemovesCompletedScan(t *testing.T) {
	st := newTestStore(t)
	orch := newOrchestrator(t, st, []probe.Probe{foundOn("GitHub", probe.CategoryReputational)})
	defer orch.Shutdown()

	task, err := orch.StartScan(context.Background(), "alice", probe.QueryUsername)
	if err != nil {
		t.Fatalf("StartScan: %v", err)
	}
	waitTerminal(t, orch, task.ID)

	deleted, err := orch.WipeScan(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("WipeScan: %v", err)
	}
	if !deleted {
		t.Error("deleted = false, want true")
	}

	if _, err := orch.GetScan(context.Background(), task.ID); !errors.Is(err, store.ErrTaskNotFound) {
		t.Errorf("GetScan after wipe = %v, want ErrTaskNotFound", err)
	}

	deleted, err = orch.WipeScan(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("second WipeScan: %v", err)
	}
	if deleted {
		t.Error("second wipe reported deleted = true")
	}
}

// failingStore wraps a real store and fails every finding insert.
type failingStore struct {
	store.Store
}

func (f *failingStore) InsertFinding(ctx context.Context, finding *store.Finding) error {
	return errors.New("disk full")
}

func TestScanFailsWhenStoreFails(t *testing.T) {
	st := &failingStore{Store: newTestStore(t)}
	orch := newOrchestrator(t, st, []probe.Probe{foundOn("GitHub", probe.CategoryReputational)})
	defer orch.Shutdown()

	task, err := orch.StartScan(context.Background(), "alice", probe.QueryUsername)
	if err != nil {
		t.Fatalf("StartScan: %v", err)
	}

	view := waitTerminal(t, orch, task.ID)
	if view.Task.Status != store.StatusFailed {
		t.Errorf("status = %v, want failed when persistence breaks", view.Task.Status)
	}
}
