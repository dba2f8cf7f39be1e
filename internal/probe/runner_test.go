package probe_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/veilscan/veilscan/internal/interfaces"
	"github.com/veilscan/veilscan/internal/probe"
)

// stubProbe scripts a single Check behavior.
type stubProbe struct {
	platform string
	category probe.Category
	check    func(ctx context.Context, query string, queryType probe.QueryType) (*probe.Result, error)
}

func (s *stubProbe) Platform() string         { return s.platform }
func (s *stubProbe) BaseURL() string          { return "https://stub.test" }
func (s *stubProbe) Category() probe.Category { return s.category }

func (s *stubProbe) Check(ctx context.Context, query string, queryType probe.QueryType) (*probe.Result, error) {
	return s.check(ctx, query, queryType)
}

func newRunner(t *testing.T, timeout time.Duration) *probe.Runner {
	t.Helper()
	return probe.NewRunner(timeout, interfaces.NewTestLogger(testing.Verbose()))
}

func TestRunnerPassesThroughResult(t *testing.T) {
	p := &stubProbe{
		platform: "Stub",
		category: probe.CategoryReputational,
		check: func(ctx context.Context, query string, queryType probe.QueryType) (*probe.Result, error) {
			return &probe.Result{
				Platform: "Stub",
				URL:      "https://stub.test/alice",
				Found:    true,
				Data:     map[string]any{"username": query},
				Category: probe.CategoryReputational,
			}, nil
		},
	}

	res := newRunner(t, time.Second).Run(context.Background(), p, "alice", probe.QueryUsername)

	if !res.Found {
		t.Error("Found = false, want true")
	}
	if res.Error != "" {
		t.Errorf("Error = %q, want empty", res.Error)
	}
	if res.Data["username"] != "alice" {
		t.Errorf("Data = %v", res.Data)
	}
}

func TestRunnerContainsError(t *testing.T) {
	p := &stubProbe{
		platform: "Stub",
		category: probe.CategoryStalking,
		check: func(ctx context.Context, query string, queryType probe.QueryType) (*probe.Result, error) {
			return nil, errors.New("connection refused")
		},
	}

	res := newRunner(t, time.Second).Run(context.Background(), p, "alice", probe.QueryUsername)

	if res.Found {
		t.Error("Found = true, want false")
	}
	if res.Error != "connection refused" {
		t.Errorf("Error = %q, want %q", res.Error, "connection refused")
	}
	if res.Platform != "Stub" || res.Category != probe.CategoryStalking {
		t.Errorf("identity not filled: %+v", res)
	}
}

func TestRunnerContainsPanic(t *testing.T) {
	p := &stubProbe{
		platform: "Stub",
		category: probe.CategoryPhishing,
		check: func(ctx context.Context, query string, queryType probe.QueryType) (*probe.Result, error) {
			panic("boom")
		},
	}

	res := newRunner(t, time.Second).Run(context.Background(), p, "alice", probe.QueryUsername)

	if res.Found {
		t.Error("Found = true, want false")
	}
	if !strings.Contains(res.Error, "probe panicked") || !strings.Contains(res.Error, "boom") {
		t.Errorf("Error = %q, want panic containment", res.Error)
	}
}

func TestRunnerEnforcesTimeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	p := &stubProbe{
		platform: "Stub",
		category: probe.CategoryDataBreach,
		check: func(ctx context.Context, query string, queryType probe.QueryType) (*probe.Result, error) {
			// Ignores ctx on purpose.
			<-block
			return &probe.Result{Found: true}, nil
		},
	}

	timeout := 50 * time.Millisecond
	start := time.Now()
	res := newRunner(t, timeout).Run(context.Background(), p, "alice", probe.QueryUsername)
	elapsed := time.Since(start)

	if res.Found {
		t.Error("Found = true, want false")
	}
	want := "timeout after " + timeout.String()
	if res.Error != want {
		t.Errorf("Error = %q, want %q", res.Error, want)
	}
	if elapsed > time.Second {
		t.Errorf("Run took %v, should return promptly after the deadline", elapsed)
	}
	if res.Platform != "Stub" || res.Category != probe.CategoryDataBreach {
		t.Errorf("identity not filled: %+v", res)
	}
}

func TestRunnerReportsCancelNotTimeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	p := &stubProbe{
		platform: "Stub",
		category: probe.CategoryReputational,
		check: func(ctx context.Context, query string, queryType probe.QueryType) (*probe.Result, error) {
			// Ignores ctx on purpose.
			<-block
			return &probe.Result{Found: true}, nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	res := newRunner(t, time.Minute).Run(ctx, p, "alice", probe.QueryUsername)

	if res.Found {
		t.Error("Found = true, want false")
	}
	if res.Error != "scan canceled" {
		t.Errorf("Error = %q, want %q", res.Error, "scan canceled")
	}
}

func TestRunnerNilResultBecomesMiss(t *testing.T) {
	p := &stubProbe{
		platform: "Stub",
		category: probe.CategoryImpersonation,
		check: func(ctx context.Context, query string, queryType probe.QueryType) (*probe.Result, error) {
			return nil, nil
		},
	}

	res := newRunner(t, time.Second).Run(context.Background(), p, "alice", probe.QueryUsername)

	if res.Found || res.Error != "" {
		t.Errorf("want clean miss, got %+v", res)
	}
	if res.Platform != "Stub" {
		t.Errorf("Platform = %q, want Stub", res.Platform)
	}
}

func TestRunnerFillsMissingIdentity(t *testing.T) {
	p := &stubProbe{
		platform: "Stub",
		category: probe.CategoryReputational,
		check: func(ctx context.Context, query string, queryType probe.QueryType) (*probe.Result, error) {
			return &probe.Result{Found: true}, nil
		},
	}

	res := newRunner(t, time.Second).Run(context.Background(), p, "alice", probe.QueryUsername)

	if res.Platform != "Stub" {
		t.Errorf("Platform = %q, want Stub", res.Platform)
	}
	if res.Category != probe.CategoryReputational {
		t.Errorf("Category = %q, want REPUTATIONAL", res.Category)
	}
}
