package benchmark

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/haskel/benchfox/internal/catalog"
	"github.com/haskel/benchfox/internal/ollama"
	"github.com/haskel/benchfox/internal/progress"
	"github.com/haskel/benchfox/internal/sysinfo"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClient is a scripted inference server.
type fakeClient struct {
	mu sync.Mutex

	installed  []ollama.Model
	loaded     []ollama.LoadedModel
	available  bool
	failFrom   int // generate calls numbered >= failFrom fail; 0 disables
	pullEvents []ollama.PullProgress
	pullErr    error

	onGenerate func(call int)
	onPull     func(event int)
	onProbe    func(ctx context.Context)

	generated []string
	unloaded  []string
	pulled    []string
	probes    int
}

func newFakeClient(models ...string) *fakeClient {
	f := &fakeClient{available: true}
	for _, m := range models {
		f.installed = append(f.installed, ollama.Model{Name: m, Downloaded: true})
		f.loaded = append(f.loaded, ollama.LoadedModel{Name: m, SizeBytes: 1000, SizeVRAMBytes: 1000})
	}
	return f
}

func (f *fakeClient) CheckAvailability(ctx context.Context) (bool, error) {
	f.mu.Lock()
	f.probes++
	hook := f.onProbe
	available := f.available
	f.mu.Unlock()

	if hook != nil {
		hook(ctx)
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !available {
		return false, ollama.ErrUnavailable
	}
	return true, nil
}

func (f *fakeClient) ListModels(ctx context.Context) ([]ollama.Model, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ollama.Model(nil), f.installed...), nil
}

func (f *fakeClient) Pull(ctx context.Context, model string, events chan<- ollama.PullProgress) error {
	defer close(events)

	f.mu.Lock()
	f.pulled = append(f.pulled, model)
	evs := f.pullEvents
	hook := f.onPull
	perr := f.pullErr
	f.mu.Unlock()

	for i, ev := range evs {
		if hook != nil {
			hook(i)
		}
		select {
		case events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if perr != nil {
		return perr
	}

	f.mu.Lock()
	f.installed = append(f.installed, ollama.Model{Name: model, Downloaded: true})
	f.mu.Unlock()
	return nil
}

func (f *fakeClient) Generate(ctx context.Context, model, prompt string) (*ollama.GenerateResult, error) {
	f.mu.Lock()
	f.generated = append(f.generated, model+"|"+prompt)
	call := len(f.generated)
	hook := f.onGenerate
	fail := f.failFrom > 0 && call >= f.failFrom
	f.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if fail {
		return nil, fmt.Errorf("generate %d: %w", call, errors.New("boom"))
	}

	return &ollama.GenerateResult{
		Response:           "ok",
		TotalDuration:      2 * time.Second,
		LoadDuration:       500 * time.Millisecond,
		PromptEvalCount:    10,
		PromptEvalDuration: 100 * time.Millisecond,
		EvalCount:          50,
		EvalDuration:       time.Second,
	}, nil
}

func (f *fakeClient) Unload(ctx context.Context, model string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unloaded = append(f.unloaded, model)
	return nil
}

func (f *fakeClient) LoadedModels(ctx context.Context) ([]ollama.LoadedModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ollama.LoadedModel(nil), f.loaded...), nil
}

func (f *fakeClient) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.generated...)
}

// fakeSystem blocks Snapshot until gate is closed, when gate is set.
type fakeSystem struct {
	gate    chan struct{}
	entered chan struct{}
}

func (s *fakeSystem) Snapshot(ctx context.Context) sysinfo.Info {
	if s.entered != nil {
		close(s.entered)
	}
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
		}
	}
	return sysinfo.Info{Name: "test-host", CPUCores: 4}
}

type memorySink struct {
	mu   sync.Mutex
	runs []*Run
}

func (s *memorySink) Save(ctx context.Context, run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	return nil
}

func (s *memorySink) saved() []*Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Run(nil), s.runs...)
}

func testCatalog(models ...string) *catalog.Catalog {
	return catalog.New(models, []catalog.Prompt{
		{ID: "p1", Name: "Prompt One", Text: "one"},
		{ID: "p2", Name: "Prompt Two", Text: "two"},
	})
}

type fixture struct {
	client *fakeClient
	store  *progress.Store
	system *fakeSystem
	sink   *memorySink
	runner *Runner
}

func newFixture(models ...string) *fixture {
	f := &fixture{
		client: newFakeClient(models...),
		store:  progress.NewStore(),
		system: &fakeSystem{},
		sink:   &memorySink{},
	}
	f.runner = NewRunner(f.client, f.store, testCatalog(models...), f.system, f.sink, DefaultOptions(), testLogger())
	return f
}

func wait(h *Handle) *Run {
	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		panic("operation did not finish")
	}
	return h.Result()
}
