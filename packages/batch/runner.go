// Package batch sequences presets through the HTTP executor, one call in
// flight at a time, with cooperative cancellation and incremental progress
// reporting.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/hbruhn/devprobe/packages/core/config"
	"github.com/hbruhn/devprobe/packages/http"
	"github.com/hbruhn/devprobe/packages/preset"
	"github.com/hbruhn/devprobe/packages/stats"
)

// State is the runner's lifecycle position.
type State string

const (
	Idle      State = "idle"
	Running   State = "running"
	Completed State = "completed"
	Cancelled State = "cancelled"
	Failed    State = "failed"
)

// Executor issues one resolved request. Satisfied by *http.Executor; tests
// substitute stubs.
type Executor interface {
	Execute(ctx context.Context, d *http.Descriptor) *http.ExecutionResult
}

// PayloadLoader reads a preset's params. Satisfied by *preset.Store.
type PayloadLoader interface {
	LoadPayload(p preset.Preset) (json.RawMessage, error)
}

// Recorder durably records one attempt. Satisfied by the execution log sink
// and the history store adapter.
type Recorder interface {
	Record(presetName string, d *http.Descriptor, res *http.ExecutionResult) error
}

// Step is one attempt delivered to the observer as it completes.
type Step struct {
	Index      int
	Preset     preset.Preset
	Descriptor *http.Descriptor
	Result     *http.ExecutionResult
}

// Summary is the aggregate outcome of a run.
type Summary struct {
	RunID    string
	State    State
	Steps    []*Step
	OK       int
	Errors   int
	Elapsed  time.Duration
	Latency  *stats.Snapshot
	FailErr  error // set when State is Failed
}

// Runner drives a sequence of presets through the executor. A Runner is
// single-use per Run call but holds no per-run state between calls.
type Runner struct {
	exec      Executor
	loader    PayloadLoader
	settings  *config.Settings
	recorders []Recorder
	onStep    func(*Step)
	pace      *rate.Limiter
	runID     string
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithRecorder appends a recorder; every attempt is recorded by each one.
func WithRecorder(r Recorder) RunnerOption {
	return func(rn *Runner) {
		if r != nil {
			rn.recorders = append(rn.recorders, r)
		}
	}
}

// WithObserver sets the per-step callback. Steps arrive in submission order.
func WithObserver(fn func(*Step)) RunnerOption {
	return func(rn *Runner) {
		rn.onStep = fn
	}
}

// WithRunID fixes the run identifier, so callers that record the run
// elsewhere can correlate it. Unset, the runner generates one.
func WithRunID(id string) RunnerOption {
	return func(rn *Runner) {
		rn.runID = id
	}
}

// WithStepRate paces batch steps at n per second, so a run does not hammer a
// single-session device. Zero leaves the batch unpaced.
func WithStepRate(n float64) RunnerOption {
	return func(rn *Runner) {
		if n > 0 {
			rn.pace = rate.NewLimiter(rate.Limit(n), 1)
		}
	}
}

// NewRunner builds a runner over the given executor, payload loader and
// settings.
func NewRunner(exec Executor, loader PayloadLoader, settings *config.Settings, opts ...RunnerOption) *Runner {
	r := &Runner{
		exec:     exec,
		loader:   loader,
		settings: settings,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the presets strictly in order. A failing step is recorded and
// the run proceeds; only cancellation or an unresolvable preset halts early.
// Partial results are retained in both cases.
func (r *Runner) Run(ctx context.Context, presets []preset.Preset, token *Token) *Summary {
	start := time.Now()
	runID := r.runID
	if runID == "" {
		runID = uuid.New().String()
	}
	summary := &Summary{
		RunID: runID,
		State: Running,
	}
	latency := stats.NewCollector()

	for i, p := range presets {
		if cancelled(ctx, token) {
			summary.State = Cancelled
			break
		}

		if r.pace != nil {
			if err := r.pace.Wait(ctx); err != nil {
				summary.State = Cancelled
				break
			}
		}

		desc, err := r.resolve(p)
		if err != nil {
			// A preset that cannot become a descriptor is fatal for this
			// run; nothing sensible can be sent and skipping would hide
			// an authoring error.
			summary.State = Failed
			summary.FailErr = err
			break
		}

		res := r.exec.Execute(ctx, desc)

		step := &Step{Index: i, Preset: p, Descriptor: desc, Result: res}
		summary.Steps = append(summary.Steps, step)
		if res.OK() {
			summary.OK++
		} else {
			summary.Errors++
		}
		latency.Observe(res.Elapsed)

		for _, rec := range r.recorders {
			if err := rec.Record(p.Name, desc, res); err != nil {
				// Recording must not stop the sequence; surface it on the
				// step so the observer can display it.
				res.Detail = appendDetail(res.Detail, fmt.Sprintf("record: %v", err))
			}
		}

		if r.onStep != nil {
			r.onStep(step)
		}
	}

	if summary.State == Running {
		summary.State = Completed
	}
	summary.Elapsed = time.Since(start)
	summary.Latency = latency.Snapshot()
	return summary
}

func (r *Runner) resolve(p preset.Preset) (*http.Descriptor, error) {
	params, err := r.loader.LoadPayload(p)
	if err != nil {
		return nil, err
	}
	return preset.Resolve(p, params, r.settings)
}

func cancelled(ctx context.Context, token *Token) bool {
	if token != nil && token.Cancelled() {
		return true
	}
	return ctx.Err() != nil
}

func appendDetail(detail, extra string) string {
	if detail == "" {
		return extra
	}
	return detail + "; " + extra
}
