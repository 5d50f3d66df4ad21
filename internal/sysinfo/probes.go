package sysinfo

import (
	"context"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

type CPUProbe struct{}

func NewCPUProbe() *CPUProbe {
	return &CPUProbe{}
}

func (p *CPUProbe) Name() string {
	return "cpu"
}

func (p *CPUProbe) Collect(ctx context.Context, info *Info) error {
	info.CPUArch = runtime.GOARCH

	cores, err := cpu.CountsWithContext(ctx, false)
	if err != nil {
		return err
	}
	threads, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return err
	}
	info.CPUCores = cores
	info.CPUThreads = threads

	stats, err := cpu.InfoWithContext(ctx)
	if err != nil {
		return err
	}
	if len(stats) > 0 {
		info.CPUModel = strings.TrimSpace(stats[0].ModelName)
	}

	return nil
}

type MemoryProbe struct{}

func NewMemoryProbe() *MemoryProbe {
	return &MemoryProbe{}
}

func (p *MemoryProbe) Name() string {
	return "memory"
}

func (p *MemoryProbe) Collect(ctx context.Context, info *Info) error {
	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return err
	}

	info.RAMGB = bytesToGB(v.Total)
	return nil
}

type HostProbe struct{}

func NewHostProbe() *HostProbe {
	return &HostProbe{}
}

func (p *HostProbe) Name() string {
	return "host"
}

func (p *HostProbe) Collect(ctx context.Context, info *Info) error {
	h, err := host.InfoWithContext(ctx)
	if err != nil {
		return err
	}

	if info.Name == "" {
		info.Name = h.Hostname
	}
	info.OSName = h.OS
	if h.Platform != "" {
		info.OSName = h.Platform
	}
	info.OSVersion = h.PlatformVersion
	if info.OSVersion == "" {
		info.OSVersion = h.KernelVersion
	}

	return nil
}
