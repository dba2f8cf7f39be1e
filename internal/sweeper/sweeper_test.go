package sweeper_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/veilscan/veilscan/internal/interfaces"
	"github.com/veilscan/veilscan/internal/store"
	"github.com/veilscan/veilscan/internal/sweeper"
)

// fakeStore scripts the expiry listing and records wipes. Unused Store
// methods come from the embedded nil interface and must not be called.
type fakeStore struct {
	store.Store

	mu       sync.Mutex
	expired  []string
	failWipe map[string]bool
	wiped    []string
	cutoffs  []time.Time
}

func (f *fakeStore) ExpiredTaskIDs(ctx context.Context, cutoff time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.expired, nil
}

func (f *fakeStore) WipeTask(ctx context.Context, taskID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWipe[taskID] {
		return false, errors.New("database locked")
	}
	f.wiped = append(f.wiped, taskID)
	return true, nil
}

func (f *fakeStore) wipedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.wiped)
}

func testLogger() interfaces.Logger {
	return interfaces.NewTestLogger(testing.Verbose())
}

func TestSweepOnceWipesExpired(t *testing.T) {
	st := &fakeStore{expired: []string{"a", "b", "c"}}
	sw, err := sweeper.New(sweeper.Config{Interval: time.Hour, TTL: 24 * time.Hour}, st, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	wiped, err := sw.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if wiped != 3 {
		t.Errorf("wiped = %d, want 3", wiped)
	}
	if len(st.wiped) != 3 {
		t.Errorf("store saw %d wipes, want 3", len(st.wiped))
	}

	// Cutoff is TTL before now.
	if len(st.cutoffs) != 1 {
		t.Fatalf("store saw %d expiry queries, want 1", len(st.cutoffs))
	}
	wantCutoff := time.Now().UTC().Add(-24 * time.Hour)
	if diff := st.cutoffs[0].Sub(wantCutoff); diff < -time.Minute || diff > time.Minute {
		t.Errorf("cutoff = %v, want about %v", st.cutoffs[0], wantCutoff)
	}
}

func TestSweepOnceIsolatesWipeFailures(t *testing.T) {
	st := &fakeStore{
		expired:  []string{"a", "bad", "c"},
		failWipe: map[string]bool{"bad": true},
	}
	sw, err := sweeper.New(sweeper.Config{Interval: time.Hour, TTL: time.Hour}, st, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	wiped, err := sw.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if wiped != 2 {
		t.Errorf("wiped = %d, want 2 (one failure skipped)", wiped)
	}
	for _, id := range st.wiped {
		if id == "bad" {
			t.Error("failed wipe counted as wiped")
		}
	}
}

func TestSweepOnceEmptyStore(t *testing.T) {
	st := &fakeStore{}
	sw, err := sweeper.New(sweeper.Config{}, st, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	wiped, err := sw.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if wiped != 0 {
		t.Errorf("wiped = %d, want 0", wiped)
	}
}

func TestRunSweepsImmediatelyAndStopsOnCancel(t *testing.T) {
	st := &fakeStore{expired: []string{"a"}}
	sw, err := sweeper.New(sweeper.Config{Interval: time.Hour, TTL: time.Hour}, st, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sw.Run(ctx)
		close(done)
	}()

	// The first sweep happens on start, not after the first tick.
	deadline := time.Now().Add(time.Second)
	for st.wipedCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no sweep after startup")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
