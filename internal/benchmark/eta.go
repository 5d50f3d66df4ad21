package benchmark

import "time"

// etaAlpha weighs the latest step duration against the running average.
const etaAlpha = 0.3

// etaEstimator predicts the remaining time of a benchmark from an
// exponential moving average of step durations, kept per model. It is
// owned by one execution and not safe for concurrent use.
type etaEstimator struct {
	alpha   float64
	models  map[string]time.Duration
	overall time.Duration
	count   int
}

func newETAEstimator(alpha float64) *etaEstimator {
	if alpha <= 0 || alpha > 1 {
		alpha = etaAlpha
	}
	return &etaEstimator{
		alpha:  alpha,
		models: make(map[string]time.Duration),
	}
}

// Observe records how long one step of model took.
func (e *etaEstimator) Observe(model string, d time.Duration) {
	if d < 0 {
		return
	}

	e.count++
	if e.count == 1 {
		e.overall = d
	} else {
		e.overall = e.ema(e.overall, d)
	}

	if avg, ok := e.models[model]; ok {
		e.models[model] = e.ema(avg, d)
	} else {
		e.models[model] = d
	}
}

func (e *etaEstimator) ema(avg, d time.Duration) time.Duration {
	return time.Duration(e.alpha*float64(d) + (1-e.alpha)*float64(avg))
}

// Remaining estimates the time for the given number of outstanding steps
// per model. Models without observations use the overall average. It
// reports false until a step has been observed.
func (e *etaEstimator) Remaining(steps map[string]int) (time.Duration, bool) {
	if e.count == 0 {
		return 0, false
	}

	var total time.Duration
	for model, n := range steps {
		avg, ok := e.models[model]
		if !ok {
			avg = e.overall
		}
		total += time.Duration(n) * avg
	}
	return total, true
}

// remainingSteps counts outstanding steps per model for a model-major
// plan after done steps.
func remainingSteps(models []string, perModel, done int) map[string]int {
	out := make(map[string]int, len(models))
	for i, m := range models {
		start := i * perModel
		end := start + perModel
		switch {
		case done <= start:
			out[m] = perModel
		case done < end:
			out[m] = end - done
		}
	}
	return out
}
