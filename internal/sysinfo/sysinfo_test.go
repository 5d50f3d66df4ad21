package sysinfo

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/haskel/benchfox/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type mockProbe struct {
	name  string
	apply func(*Info)
	err   error
	calls atomic.Int32
	// hook runs before apply, e.g. to hold a collection open
	hook func()
}

func (m *mockProbe) Name() string { return m.name }

func (m *mockProbe) Collect(ctx context.Context, info *Info) error {
	m.calls.Add(1)
	if m.hook != nil {
		m.hook()
	}
	if m.apply != nil {
		m.apply(info)
	}
	return m.err
}

func TestCollector_OverridesWin(t *testing.T) {
	probe := &mockProbe{name: "fake", apply: func(i *Info) {
		i.Name = "detected-host"
		i.CPUModel = "Ryzen 7"
		i.RAMGB = 32
	}}

	c := NewCollector([]Probe{probe}, config.SystemConfig{
		Name:      "lab-box",
		GPUModel:  "RTX 4070",
		GPUVRAMGB: 12,
		GPUDriver: "550.54",
	}, testLogger())

	info := c.Snapshot(context.Background())

	if info.Name != "lab-box" {
		t.Errorf("expected override name, got %s", info.Name)
	}
	if info.CPUModel != "Ryzen 7" || info.RAMGB != 32 {
		t.Errorf("expected probe fields kept, got %+v", info)
	}
	if info.GPUModel != "RTX 4070" || info.GPUVRAMGB != 12 || info.GPUDriver != "550.54" {
		t.Errorf("expected GPU overrides, got %+v", info)
	}
}

func TestCollector_Caches(t *testing.T) {
	probe := &mockProbe{name: "fake"}
	c := NewCollector([]Probe{probe}, config.SystemConfig{}, testLogger())

	c.Snapshot(context.Background())
	c.Snapshot(context.Background())

	if probe.calls.Load() != 1 {
		t.Errorf("expected probes to run once, ran %d times", probe.calls.Load())
	}

	c.SetOverrides(config.SystemConfig{Name: "renamed"})
	info := c.Snapshot(context.Background())
	if probe.calls.Load() != 2 || info.Name != "renamed" {
		t.Errorf("expected recollect after override change, calls=%d name=%s", probe.calls.Load(), info.Name)
	}
}

func TestCollector_ConcurrentReload(t *testing.T) {
	probe := &mockProbe{name: "fake", apply: func(i *Info) { i.CPUCores = 8 }}
	c := NewCollector([]Probe{probe}, config.SystemConfig{}, testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				c.Snapshot(context.Background())
			}
		}()
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				c.SetOverrides(config.SystemConfig{GPUModel: "gpu", GPUVRAMGB: float64(i + 1)})
			}
		}(i)
	}
	wg.Wait()

	c.SetOverrides(config.SystemConfig{Name: "final"})
	if info := c.Snapshot(context.Background()); info.Name != "final" || info.CPUCores != 8 {
		t.Errorf("expected final overrides and probe data, got %+v", info)
	}
}

func TestCollector_StaleCollectionNotCached(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	probe := &mockProbe{name: "fake"}
	probe.hook = func() {
		once.Do(func() {
			close(entered)
			<-release
		})
	}
	c := NewCollector([]Probe{probe}, config.SystemConfig{Name: "old"}, testLogger())

	done := make(chan Info)
	go func() { done <- c.Snapshot(context.Background()) }()

	<-entered
	c.SetOverrides(config.SystemConfig{Name: "new"})
	close(release)

	if info := <-done; info.Name != "old" {
		t.Errorf("expected the in-flight snapshot to keep its overrides, got %s", info.Name)
	}
	if info := c.Snapshot(context.Background()); info.Name != "new" {
		t.Errorf("expected a fresh snapshot after reload, got %s", info.Name)
	}
	if probe.calls.Load() != 2 {
		t.Errorf("expected a second collection, got %d", probe.calls.Load())
	}
}

func TestCollector_ProbeErrorKeepsOthers(t *testing.T) {
	bad := &mockProbe{name: "bad", err: errors.New("no /proc")}
	good := &mockProbe{name: "good", apply: func(i *Info) { i.CPUCores = 8 }}
	c := NewCollector([]Probe{bad, good}, config.SystemConfig{}, testLogger())

	info, err := c.Collect(context.Background())
	if err == nil {
		t.Error("expected joined probe error")
	}
	if info.CPUCores != 8 {
		t.Errorf("expected good probe data, got %d cores", info.CPUCores)
	}
}

func TestDefaultProbes_Collect(t *testing.T) {
	c := NewCollector(DefaultProbes(), config.SystemConfig{}, testLogger())

	info, err := c.Collect(context.Background())
	if err != nil {
		t.Skipf("host probes unavailable: %v", err)
	}

	if info.CPUArch == "" {
		t.Error("expected cpu arch")
	}
	if info.CPUThreads < 1 {
		t.Errorf("expected at least one thread, got %d", info.CPUThreads)
	}
	if info.RAMGB <= 0 {
		t.Errorf("expected positive RAM, got %f", info.RAMGB)
	}
}

func TestBytesToGB(t *testing.T) {
	if got := bytesToGB(16 << 30); got != 16 {
		t.Errorf("expected 16, got %f", got)
	}
	if got := bytesToGB(1610612736); got != 1.5 {
		t.Errorf("expected 1.5, got %f", got)
	}
}
