// Package sysinfo describes the machine a benchmark ran on.
package sysinfo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/haskel/benchfox/internal/config"
)

// Info is the hardware and OS description attached to every benchmark run.
type Info struct {
	Name        string    `json:"name"`
	CPUModel    string    `json:"cpu_model"`
	CPUCores    int       `json:"cpu_cores"`
	CPUThreads  int       `json:"cpu_threads"`
	CPUArch     string    `json:"cpu_arch"`
	RAMGB       float64   `json:"ram_gb"`
	GPUModel    string    `json:"gpu_model"`
	GPUVRAMGB   float64   `json:"gpu_vram_gb"`
	GPUDriver   string    `json:"gpu_driver"`
	OSName      string    `json:"os_name"`
	OSVersion   string    `json:"os_version"`
	CollectedAt time.Time `json:"collected_at"`
}

// Probe fills in the part of Info it knows about.
type Probe interface {
	Name() string
	Collect(ctx context.Context, info *Info) error
}

// Collector gathers Info once and caches it; hardware does not change
// while the daemon runs. Overrides from the config win over probes.
type Collector struct {
	probes    []Probe
	overrides config.SystemConfig
	logger    *slog.Logger

	mu     sync.RWMutex
	cached *Info
	// gen counts override changes; a collection started under an older
	// generation is returned but not cached.
	gen uint64
}

func NewCollector(probes []Probe, overrides config.SystemConfig, logger *slog.Logger) *Collector {
	return &Collector{
		probes:    probes,
		overrides: overrides,
		logger:    logger,
	}
}

// DefaultProbes returns the gopsutil-backed probes.
func DefaultProbes() []Probe {
	return []Probe{
		NewHostProbe(),
		NewCPUProbe(),
		NewMemoryProbe(),
	}
}

// Snapshot returns the cached Info, collecting it on first use. Probe
// failures are logged and leave their fields empty.
func (c *Collector) Snapshot(ctx context.Context) Info {
	c.mu.RLock()
	if c.cached != nil {
		info := *c.cached
		c.mu.RUnlock()
		return info
	}
	overrides, gen := c.overrides, c.gen
	c.mu.RUnlock()

	info, err := c.collect(ctx, overrides)
	if err != nil {
		c.logger.Warn("system info incomplete", "error", err)
	}

	c.mu.Lock()
	if c.gen == gen {
		c.cached = &info
	}
	c.mu.Unlock()

	return info
}

// Collect runs every probe and applies overrides without touching the cache.
func (c *Collector) Collect(ctx context.Context) (Info, error) {
	c.mu.RLock()
	overrides := c.overrides
	c.mu.RUnlock()

	return c.collect(ctx, overrides)
}

func (c *Collector) collect(ctx context.Context, overrides config.SystemConfig) (Info, error) {
	var info Info
	var errs []error

	for _, p := range c.probes {
		if err := p.Collect(ctx, &info); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
	}

	applyOverrides(&info, overrides)
	info.CollectedAt = time.Now().UTC()

	return info, errors.Join(errs...)
}

// SetOverrides replaces the config overrides and drops the cache.
func (c *Collector) SetOverrides(o config.SystemConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overrides = o
	c.cached = nil
	c.gen++
}

func applyOverrides(info *Info, o config.SystemConfig) {
	if o.Name != "" {
		info.Name = o.Name
	}
	if o.GPUModel != "" {
		info.GPUModel = o.GPUModel
	}
	if o.GPUVRAMGB > 0 {
		info.GPUVRAMGB = o.GPUVRAMGB
	}
	if o.GPUDriver != "" {
		info.GPUDriver = o.GPUDriver
	}
}

func bytesToGB(b uint64) float64 {
	return math.Round(float64(b)/(1<<30)*10) / 10
}
