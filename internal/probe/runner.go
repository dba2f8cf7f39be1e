package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/veilscan/veilscan/internal/interfaces"
)

// Runner wraps a single probe invocation with a deadline and failure
// containment. Run never returns an error and never panics: every failure
// mode, including a probe that hangs past the deadline or panics outright,
// comes back as a Result with Found=false and Error set. One broken probe
// must never affect another probe's outcome or stall the scan.
type Runner struct {
	timeout time.Duration
	logger  interfaces.Logger
}

// NewRunner builds a Runner with a fixed per-probe deadline.
func NewRunner(timeout time.Duration, logger interfaces.Logger) *Runner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Runner{
		timeout: timeout,
		logger:  logger.With(interfaces.Field{Key: "component", Value: "probe-runner"}),
	}
}

// Timeout returns the per-probe deadline.
func (r *Runner) Timeout() time.Duration { return r.timeout }

type outcome struct {
	res *Result
	err error
}

// Run executes one probe against the query under the Runner's deadline.
func (r *Runner) Run(ctx context.Context, p Probe, query string, queryType QueryType) Result {
	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				ch <- outcome{err: fmt.Errorf("probe panicked: %v", rec)}
			}
		}()
		res, err := p.Check(cctx, query, queryType)
		ch <- outcome{res: res, err: err}
	}()

	select {
	case <-cctx.Done():
		// The probe goroutine may still be running; its eventual send lands
		// in the buffered channel and is dropped with it. Distinguish the
		// deadline from a canceled parent (wipe or shutdown).
		msg := fmt.Sprintf("timeout after %s", r.timeout)
		if cctx.Err() == context.Canceled {
			msg = "scan canceled"
		}
		r.logger.Warn("probe cut short",
			interfaces.Field{Key: "platform", Value: p.Platform()},
			interfaces.Field{Key: "reason", Value: msg})
		return Result{
			Platform: p.Platform(),
			Found:    false,
			Category: p.Category(),
			Error:    msg,
		}
	case out := <-ch:
		if out.err != nil {
			r.logger.Warn("probe failed",
				interfaces.Field{Key: "platform", Value: p.Platform()},
				interfaces.Field{Key: "error", Value: out.err.Error()})
			return Result{
				Platform: p.Platform(),
				Found:    false,
				Category: p.Category(),
				Error:    out.err.Error(),
			}
		}
		if out.res == nil {
			return Result{
				Platform: p.Platform(),
				Found:    false,
				Category: p.Category(),
			}
		}
		res := *out.res
		// The registry keys findings by platform, so never trust an adapter
		// to have filled its own identity.
		if res.Platform == "" {
			res.Platform = p.Platform()
		}
		if res.Category == "" {
			res.Category = p.Category()
		}
		return res
	}
}
