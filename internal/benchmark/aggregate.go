package benchmark

import "math"

// Metric names a numeric sample field that is aggregated.
type Metric string

const (
	MetricTotalDuration         Metric = "total_duration_s"
	MetricLoadDuration          Metric = "load_duration_s"
	MetricPromptEvalDuration    Metric = "prompt_eval_duration_s"
	MetricEvalDuration          Metric = "eval_duration_s"
	MetricTimeToFirstToken      Metric = "time_to_first_token_s"
	MetricTokensPerSecond       Metric = "tokens_per_second"
	MetricPromptTokensPerSecond Metric = "prompt_tokens_per_second"
	MetricModelSize             Metric = "model_size_bytes"
	MetricModelSizeVRAM         Metric = "model_size_vram_bytes"
)

// Metrics lists every aggregated metric in display order.
var Metrics = []Metric{
	MetricTotalDuration,
	MetricLoadDuration,
	MetricPromptEvalDuration,
	MetricEvalDuration,
	MetricTimeToFirstToken,
	MetricTokensPerSecond,
	MetricPromptTokensPerSecond,
	MetricModelSize,
	MetricModelSizeVRAM,
}

func (m Metric) value(s Sample) float64 {
	switch m {
	case MetricTotalDuration:
		return s.TotalDurationS
	case MetricLoadDuration:
		return s.LoadDurationS
	case MetricPromptEvalDuration:
		return s.PromptEvalDurationS
	case MetricEvalDuration:
		return s.EvalDurationS
	case MetricTimeToFirstToken:
		return s.TimeToFirstTokenS
	case MetricTokensPerSecond:
		return s.TokensPerSecond
	case MetricPromptTokensPerSecond:
		return s.PromptTokensPerSecond
	case MetricModelSize:
		return float64(s.SizeBytes)
	case MetricModelSizeVRAM:
		return float64(s.SizeVRAMBytes)
	default:
		return 0
	}
}

// Statistics summarizes one metric over one group. An empty group is all
// zeros.
type Statistics struct {
	Count int     `json:"count"`
	Avg   float64 `json:"avg"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Stdev float64 `json:"stdev"`
}

// MetricSet maps each metric to its statistics for one group.
type MetricSet map[Metric]Statistics

// Summary is the grouped statistics of a run.
type Summary struct {
	PerModel       map[string]MetricSet            `json:"per_model"`
	PerPrompt      map[string]MetricSet            `json:"per_prompt"`
	PerModelPrompt map[string]map[string]MetricSet `json:"per_model_prompt"`
	Overall        MetricSet                       `json:"overall"`
}

// Compute returns count, mean, min, max and the Bessel-corrected sample
// standard deviation of values. Stdev is 0 for fewer than two values.
func Compute(values []float64) Statistics {
	n := len(values)
	if n == 0 {
		return Statistics{}
	}

	st := Statistics{Count: n, Min: values[0], Max: values[0]}
	var sum float64
	for _, v := range values {
		sum += v
		if v < st.Min {
			st.Min = v
		}
		if v > st.Max {
			st.Max = v
		}
	}
	st.Avg = sum / float64(n)

	if n > 1 {
		var ss float64
		for _, v := range values {
			d := v - st.Avg
			ss += d * d
		}
		st.Stdev = math.Sqrt(ss / float64(n-1))
	}

	return st
}

// Aggregate groups the samples of run per model, per prompt, per
// model×prompt and overall. Every requested model and prompt gets an
// entry, empty if none of its steps succeeded.
func Aggregate(run *Run) Summary {
	byModel := make(map[string][]Sample)
	byPrompt := make(map[string][]Sample)
	byPair := make(map[string]map[string][]Sample)

	for _, m := range run.Request.Models {
		byModel[m] = nil
		byPair[m] = make(map[string][]Sample)
		for _, p := range run.Request.Prompts {
			byPair[m][p] = nil
		}
	}
	for _, p := range run.Request.Prompts {
		byPrompt[p] = nil
	}

	for _, s := range run.Samples {
		byModel[s.Model] = append(byModel[s.Model], s)
		byPrompt[s.PromptID] = append(byPrompt[s.PromptID], s)
		if byPair[s.Model] == nil {
			byPair[s.Model] = make(map[string][]Sample)
		}
		byPair[s.Model][s.PromptID] = append(byPair[s.Model][s.PromptID], s)
	}

	sum := Summary{
		PerModel:       make(map[string]MetricSet, len(byModel)),
		PerPrompt:      make(map[string]MetricSet, len(byPrompt)),
		PerModelPrompt: make(map[string]map[string]MetricSet, len(byPair)),
		Overall:        metricSet(run.Samples),
	}
	for k, group := range byModel {
		sum.PerModel[k] = metricSet(group)
	}
	for k, group := range byPrompt {
		sum.PerPrompt[k] = metricSet(group)
	}
	for m, prompts := range byPair {
		sum.PerModelPrompt[m] = make(map[string]MetricSet, len(prompts))
		for p, group := range prompts {
			sum.PerModelPrompt[m][p] = metricSet(group)
		}
	}

	return sum
}

func metricSet(samples []Sample) MetricSet {
	set := make(MetricSet, len(Metrics))
	values := make([]float64, len(samples))
	for _, m := range Metrics {
		for i, s := range samples {
			values[i] = m.value(s)
		}
		set[m] = Compute(values)
	}
	return set
}
