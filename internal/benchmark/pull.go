package benchmark

import (
	"context"
	"errors"
	"fmt"

	"github.com/haskel/benchfox/internal/ollama"
	"github.com/haskel/benchfox/internal/progress"
)

var errPullCancelled = errors.New("pull cancelled")

// Pull downloads a model in the background as its own operation.
func (r *Runner) Pull(model string) (*Handle, error) {
	if model == "" {
		return nil, invalid("model name required")
	}

	op, err := r.store.Reset(progress.OperationPull, 1, map[string]any{
		"phase": string(PhasePulling),
		"model": model,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot start pull: %w", err)
	}

	h := &Handle{
		ID:         op.ID(),
		Operation:  progress.OperationPull,
		TotalSteps: 1,
		done:       make(chan struct{}),
	}

	r.logger.Info("pull started", "id", op.ID(), "model", model)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer close(h.done)

		err := r.pull(r.baseCtx, op, model, true)
		switch {
		case err == nil:
			r.catalog.Observe(model)
			_ = op.Complete("", fmt.Sprintf("Successfully pulled %s", model))
			r.logger.Info("pull finished", "model", model)
		case errors.Is(err, errPullCancelled):
			_ = op.Cancelled("", fmt.Sprintf("Pull of %s cancelled", model))
			r.logger.Info("pull cancelled", "model", model)
		default:
			_ = op.Fail(fmt.Errorf("failed to pull %s: %w", model, err))
			r.logger.Error("pull failed", "model", model, "error", err)
		}
	}()

	return h, nil
}

// pull streams a model download into op. Cancellation is checked between
// progress events; once requested the stream is abandoned. With
// withFraction the byte ratio also drives the progress fraction.
func (r *Runner) pull(ctx context.Context, op *progress.Op, model string, withFraction bool) error {
	if op.CancelRequested() {
		return errPullCancelled
	}

	pctx, abandon := context.WithCancel(ctx)
	defer abandon()

	events := make(chan ollama.PullProgress, 16)
	errc := make(chan error, 1)
	go func() {
		errc <- r.client.Pull(pctx, model, events)
	}()

	cancelled := false
	for ev := range events {
		if cancelled {
			continue
		}
		if op.CancelRequested() {
			cancelled = true
			abandon()
			continue
		}

		u := progress.Update{
			Label:    model,
			Message:  pullMessage(ev),
			Metadata: map[string]any{"phase": string(PhasePulling), "model": model, "pull_status": ev.Status},
		}
		if ev.Total > 0 {
			u.Bytes = &progress.ByteCounts{Completed: ev.Completed, Total: ev.Total}
			if withFraction {
				u.Progress = float64(ev.Completed) / float64(ev.Total)
			}
		}
		_ = op.Update(u)
	}

	err := <-errc
	if cancelled || (err != nil && ctx.Err() != nil) {
		return errPullCancelled
	}
	return err
}

func pullMessage(ev ollama.PullProgress) string {
	if ev.Total > 0 {
		return fmt.Sprintf("%s: %.1f MB / %.1f MB", ev.Status, bytesToMB(ev.Completed), bytesToMB(ev.Total))
	}
	return ev.Status
}
