package benchmark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"sync"
	"time"

	"github.com/haskel/benchfox/internal/catalog"
	"github.com/haskel/benchfox/internal/ollama"
	"github.com/haskel/benchfox/internal/progress"
	"github.com/haskel/benchfox/internal/sysinfo"
)

// SystemInfo provides the hardware description attached to each run.
type SystemInfo interface {
	Snapshot(ctx context.Context) sysinfo.Info
}

// ResultSink persists finished runs.
type ResultSink interface {
	Save(ctx context.Context, run *Run) error
}

// Options tune the runner. They may be replaced between benchmarks.
type Options struct {
	DefaultRuns int
	MaxRuns     int
	// FailureThreshold is the number of consecutive failed steps after
	// which the server is probed; a failed probe fails the benchmark.
	FailureThreshold int
	// UnloadBeforeRun unloads the model before every run. When false the
	// model is unloaded once before its first run.
	UnloadBeforeRun bool
}

func DefaultOptions() Options {
	return Options{
		DefaultRuns:      3,
		MaxRuns:          10,
		FailureThreshold: 3,
		UnloadBeforeRun:  true,
	}
}

// Handle refers to a started background operation.
type Handle struct {
	ID         string
	Operation  progress.Operation
	TotalSteps int

	done chan struct{}
	run  *Run
}

// Done is closed when the operation reaches a terminal state.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Result returns the run once Done is closed. It is nil for pulls.
func (h *Handle) Result() *Run {
	select {
	case <-h.done:
		return h.run
	default:
		return nil
	}
}

// Runner executes one benchmark or pull at a time on a background
// goroutine. The progress store enforces the single active operation.
type Runner struct {
	client  ollama.Client
	store   *progress.Store
	catalog *catalog.Catalog
	system  SystemInfo
	sink    ResultSink
	logger  *slog.Logger

	mu   sync.RWMutex
	opts Options
	last *Run

	wg      sync.WaitGroup
	baseCtx context.Context
	stop    context.CancelFunc
	now     func() time.Time
}

func NewRunner(client ollama.Client, store *progress.Store, cat *catalog.Catalog, system SystemInfo, sink ResultSink, opts Options, logger *slog.Logger) *Runner {
	ctx, stop := context.WithCancel(context.Background())
	return &Runner{
		client:  client,
		store:   store,
		catalog: cat,
		system:  system,
		sink:    sink,
		logger:  logger,
		opts:    opts,
		baseCtx: ctx,
		stop:    stop,
		now:     time.Now,
	}
}

func (r *Runner) SetOptions(opts Options) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opts = opts
}

func (r *Runner) options() Options {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.opts
}

// Last returns the most recent finished run, or nil.
func (r *Runner) Last() *Run {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

// Cancel asks the active operation to stop. It reports whether one was
// running.
func (r *Runner) Cancel() bool {
	return r.store.RequestCancel()
}

// Wait blocks until the active operation, if any, has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Close aborts in-flight inference calls and waits for the background
// goroutine. An interrupted benchmark ends as cancelled.
func (r *Runner) Close() {
	r.stop()
	r.wg.Wait()
}

// Start validates req and begins executing it in the background. It
// returns an error wrapping ErrInvalidRequest or progress.ErrConflict
// without touching the store's current operation.
func (r *Runner) Start(req Request) (*Handle, error) {
	opts := r.options()

	prompts, err := r.validate(&req, opts)
	if err != nil {
		return nil, err
	}

	total := req.TotalSteps()
	op, err := r.store.Reset(progress.OperationBenchmark, total, map[string]any{
		"phase":   string(PhasePlanning),
		"models":  req.Models,
		"prompts": req.Prompts,
		"runs":    req.Runs,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot start benchmark: %w", err)
	}

	h := &Handle{
		ID:         op.ID(),
		Operation:  progress.OperationBenchmark,
		TotalSteps: total,
		done:       make(chan struct{}),
	}

	r.logger.Info("benchmark started",
		"id", op.ID(),
		"models", req.Models,
		"prompts", req.Prompts,
		"runs", req.Runs,
		"total_steps", total,
	)

	r.wg.Add(1)
	go r.execute(op, req, prompts, opts, h)

	return h, nil
}

func (r *Runner) validate(req *Request, opts Options) ([]catalog.Prompt, error) {
	if len(req.Models) == 0 {
		return nil, invalid("no models specified")
	}
	if len(req.Prompts) == 0 {
		return nil, invalid("no prompts specified")
	}

	if req.Runs == 0 {
		req.Runs = opts.DefaultRuns
	}
	if req.Runs < 1 || (opts.MaxRuns > 0 && req.Runs > opts.MaxRuns) {
		return nil, invalid("runs must be between 1 and %d, got %d", opts.MaxRuns, req.Runs)
	}

	for _, m := range req.Models {
		if m == "" {
			return nil, invalid("model name cannot be empty")
		}
		if !r.catalog.KnownModel(m) {
			return nil, invalid("unknown model: %s", m)
		}
	}

	prompts := make([]catalog.Prompt, 0, len(req.Prompts))
	for _, id := range req.Prompts {
		p, ok := r.catalog.Prompt(id)
		if !ok {
			return nil, invalid("unknown prompt: %s", id)
		}
		prompts = append(prompts, p)
	}

	return prompts, nil
}

type execution struct {
	op      *progress.Op
	run     *Run
	prompts []catalog.Prompt
	opts    Options
	step    int
	eta     *etaEstimator
}

// etaMetadata is the estimated remaining time after the current step.
func (e *execution) etaMetadata() map[string]any {
	req := e.run.Request
	d, ok := e.eta.Remaining(remainingSteps(req.Models, len(e.prompts)*req.Runs, e.step))
	if !ok {
		return nil
	}
	return map[string]any{"eta_seconds": math.Round(d.Seconds())}
}

func (e *execution) fraction() float64 {
	if e.run.TotalSteps == 0 {
		return 1
	}
	return float64(e.step) / float64(e.run.TotalSteps)
}

func (r *Runner) execute(op *progress.Op, req Request, prompts []catalog.Prompt, opts Options, h *Handle) {
	defer r.wg.Done()
	defer close(h.done)

	ctx := r.baseCtx
	e := &execution{
		op: op,
		run: &Run{
			ID:         op.ID(),
			Request:    req,
			TotalSteps: req.TotalSteps(),
			StartedAt:  r.now().UTC(),
		},
		prompts: prompts,
		opts:    opts,
		eta:     newETAEstimator(etaAlpha),
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("benchmark panicked", "id", op.ID(), "panic", p)
			h.run = r.finish(ctx, e, RunFailed, fmt.Errorf("%w: %v", ErrInvariant, p))
		}
	}()

	status, err := r.plan(ctx, e)
	if status == "" {
		status, err = r.steps(ctx, e)
	}
	h.run = r.finish(ctx, e, status, err)
}

// plan publishes the planning phase and makes sure every model is
// installed. It returns an empty status when execution may proceed.
func (r *Runner) plan(ctx context.Context, e *execution) (RunStatus, error) {
	_ = e.op.Update(progress.Update{
		Message:  fmt.Sprintf("Planning %d tests", e.run.TotalSteps),
		Metadata: map[string]any{"phase": string(PhasePlanning)},
	})

	e.run.System = r.system.Snapshot(ctx)

	if e.op.CancelRequested() {
		return RunCancelled, nil
	}

	installed, err := r.client.ListModels(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return RunCancelled, nil
		}
		return RunFailed, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	for _, model := range e.run.Request.Models {
		if ollama.HasModel(installed, model) {
			continue
		}
		if !e.run.Request.PullMissing {
			return RunFailed, fmt.Errorf("model %s is not downloaded; pull it first", model)
		}

		r.logger.Info("pulling missing model", "id", e.op.ID(), "model", model)
		if err := r.pull(ctx, e.op, model, false); err != nil {
			if errors.Is(err, errPullCancelled) {
				return RunCancelled, nil
			}
			return RunFailed, fmt.Errorf("failed to pull %s: %w", model, err)
		}
		r.catalog.Observe(model)
	}

	return "", nil
}

// steps runs the model × prompt × run plan in model-major order.
func (r *Runner) steps(ctx context.Context, e *execution) (RunStatus, error) {
	req := e.run.Request
	consecutive := 0

	for _, model := range req.Models {
		for pi, p := range e.prompts {
			for run := 1; run <= req.Runs; run++ {
				if e.op.CancelRequested() || ctx.Err() != nil {
					return RunCancelled, nil
				}

				if e.opts.UnloadBeforeRun || (pi == 0 && run == 1) {
					r.unload(ctx, model)
				}

				label := fmt.Sprintf("%s/%s/%d", model, p.ID, run)
				desc := fmt.Sprintf("%s - %s (Run %d/%d)", model, p.Name, run, req.Runs)
				// in-flight steps are 1-based; the finishing update repeats
				// the index, so per-step indices strictly increase
				_ = e.op.Update(progress.Update{
					Step:     e.step + 1,
					Label:    label,
					Message:  "Testing: " + desc,
					Progress: e.fraction(),
					Metadata: map[string]any{
						"phase":       string(PhaseExecuting),
						"model":       model,
						"prompt_id":   p.ID,
						"prompt_name": p.Name,
						"run":         run,
						"total_runs":  req.Runs,
					},
				})

				began := r.now()
				sample, err := r.runOnce(ctx, model, p, run)
				e.step++
				e.eta.Observe(model, r.now().Sub(began))

				if err != nil {
					if ctx.Err() != nil {
						return RunCancelled, nil
					}

					consecutive++
					e.run.Failures = append(e.run.Failures, StepFailure{
						Step:     e.step,
						Model:    model,
						PromptID: p.ID,
						Run:      run,
						Error:    err.Error(),
					})
					r.logger.Warn("benchmark step failed",
						"id", e.op.ID(),
						"model", model,
						"prompt", p.ID,
						"run", run,
						"consecutive", consecutive,
						"error", err,
					)
					meta := map[string]any{
						"failed_steps": len(e.run.Failures),
						"last_error":   err.Error(),
					}
					maps.Copy(meta, e.etaMetadata())
					_ = e.op.Update(progress.Update{
						Step:     e.step,
						Message:  fmt.Sprintf("Failed: %s: %v", desc, err),
						Progress: e.fraction(),
						Metadata: meta,
					})

					if consecutive >= e.opts.FailureThreshold {
						if ok, perr := r.client.CheckAvailability(ctx); !ok {
							// the probe itself was interrupted
							if ctx.Err() != nil || e.op.CancelRequested() {
								return RunCancelled, nil
							}
							return RunFailed, fmt.Errorf("%w after %d consecutive failures: %v", ErrUnavailable, consecutive, perr)
						}
						consecutive = 0
					}
					continue
				}

				consecutive = 0
				e.run.Samples = append(e.run.Samples, sample)
				_ = e.op.Update(progress.Update{
					Step:     e.step,
					Message:  "Completed: " + desc,
					Progress: e.fraction(),
					Metadata: e.etaMetadata(),
				})
			}
		}

		if !e.opts.UnloadBeforeRun {
			r.unload(ctx, model)
		}
	}

	if e.step != e.run.TotalSteps || len(e.run.Samples)+len(e.run.Failures) != e.step {
		return RunFailed, fmt.Errorf("%w: executed %d of %d steps, %d samples, %d failures",
			ErrInvariant, e.step, e.run.TotalSteps, len(e.run.Samples), len(e.run.Failures))
	}

	return RunCompleted, nil
}

func (r *Runner) runOnce(ctx context.Context, model string, p catalog.Prompt, run int) (Sample, error) {
	res, err := r.client.Generate(ctx, model, p.Text)
	if err != nil {
		return Sample{}, err
	}

	var resident *ollama.LoadedModel
	loaded, err := r.client.LoadedModels(ctx)
	if err != nil {
		r.logger.Debug("failed to read loaded models", "model", model, "error", err)
	} else if m, ok := ollama.FindLoaded(loaded, model); ok {
		resident = &m
	}

	return NewSample(model, p, run, res, resident, r.now()), nil
}

// unload is best-effort; a failure only costs timing isolation.
func (r *Runner) unload(ctx context.Context, model string) {
	if err := r.client.Unload(ctx, model); err != nil {
		r.logger.Debug("unload failed", "model", model, "error", err)
	}
}

func (r *Runner) finish(ctx context.Context, e *execution, status RunStatus, err error) *Run {
	run := e.run
	run.Status = status
	run.CompletedAt = r.now().UTC()
	if err != nil {
		run.Error = err.Error()
	}

	r.mu.Lock()
	r.last = run
	r.mu.Unlock()

	if r.sink != nil && (status != RunFailed || len(run.Samples) > 0) {
		if serr := r.sink.Save(context.WithoutCancel(ctx), run); serr != nil {
			r.logger.Error("failed to persist benchmark", "id", run.ID, "error", serr)
		}
	}

	var ferr error
	switch status {
	case RunCompleted:
		msg := fmt.Sprintf("Benchmark complete! Ran %d tests.", e.step)
		if n := len(run.Failures); n > 0 {
			msg = fmt.Sprintf("Benchmark complete! Ran %d tests, %d failed.", e.step, n)
		}
		ferr = e.op.Complete(run.ID, msg)
	case RunCancelled:
		ferr = e.op.Cancelled(run.ID, fmt.Sprintf("Benchmark cancelled after %d tests; %d results kept.", e.step, len(run.Samples)))
	default:
		ferr = e.op.Fail(err)
	}
	if ferr != nil {
		r.logger.Error("failed to publish final state", "id", run.ID, "error", ferr)
	}

	r.logger.Info("benchmark finished",
		"id", run.ID,
		"status", status,
		"samples", len(run.Samples),
		"failures", len(run.Failures),
		"error", run.Error,
	)

	return run
}
