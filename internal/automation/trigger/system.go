package trigger

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/nerrad567/gray-logic-automator/internal/automation"
)

// System event types.
const (
	SystemCPUHigh    = "cpu_high"
	SystemMemoryHigh = "memory_high"
	SystemDiskLow    = "disk_low"
)

// Sample is one reading of host utilisation, all in percent.
type Sample struct {
	CPU    float64
	Memory float64
	Disk   float64
	Time   time.Time
}

// Sampler reads host utilisation. diskPath selects the filesystem.
type Sampler interface {
	Sample(ctx context.Context, diskPath string) (Sample, error)
}

// SamplerFunc adapts a function to Sampler.
type SamplerFunc func(ctx context.Context, diskPath string) (Sample, error)

// Sample calls f.
func (f SamplerFunc) Sample(ctx context.Context, diskPath string) (Sample, error) {
	return f(ctx, diskPath)
}

// HostSampler reads the local host with gopsutil.
type HostSampler struct{}

// Sample returns CPU busy percent since the previous call, used virtual
// memory percent and used disk percent for diskPath.
func (HostSampler) Sample(ctx context.Context, diskPath string) (Sample, error) {
	cpuPct, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return Sample{}, fmt.Errorf("reading cpu: %w", err)
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Sample{}, fmt.Errorf("reading memory: %w", err)
	}
	usage, err := disk.UsageWithContext(ctx, diskPath)
	if err != nil {
		return Sample{}, fmt.Errorf("reading disk %s: %w", diskPath, err)
	}

	s := Sample{
		Memory: vm.UsedPercent,
		Disk:   usage.UsedPercent,
		Time:   time.Now().UTC(),
	}
	if len(cpuPct) > 0 {
		s.CPU = cpuPct[0]
	}
	return s, nil
}

// System samples host utilisation and fires when a configured threshold
// is exceeded. Every sample over a threshold fires; there is no hysteresis.
//
// Spec: {"type":"system","interval":"30s","cpu_threshold":90,"memory_threshold":85,
// "disk_threshold":95,"disk_path":"/"}
type System struct {
	Sampler  Sampler
	Sink     func(Sample)
	Interval time.Duration
	Logger   automation.Logger
}

type threshold struct {
	event string
	limit float64
	set   bool
}

// Bind starts the sampling loop.
func (s *System) Bind(ctx context.Context, a *automation.Automation, fire automation.FireFunc) (automation.Binding, error) {
	if s.Sampler == nil {
		return nil, ErrNoSampler
	}

	spec := a.Trigger
	logger := loggerOr(s.Logger)
	id := a.ID
	diskPath := spec.StringOr("disk_path", "/")

	cpuLimit, cpuSet := spec.Float("cpu_threshold")
	memLimit, memSet := spec.Float("memory_threshold")
	diskLimit, diskSet := spec.Float("disk_threshold")
	thresholds := [3]threshold{
		{SystemCPUHigh, cpuLimit, cpuSet},
		{SystemMemoryHigh, memLimit, memSet},
		{SystemDiskLow, diskLimit, diskSet},
	}

	interval := spec.Duration("interval", s.Interval)
	if interval <= 0 {
		interval = DefaultSystemInterval
	}

	return startPoll(ctx, interval, a, fire, logger, func(ctx context.Context) []automation.ExecutionContext {
		sample, err := s.Sampler.Sample(ctx, diskPath)
		if err != nil {
			logger.Warn("system sample failed", "automation_id", id, "error", err)
			return nil
		}
		if s.Sink != nil {
			s.Sink(sample)
		}

		var batch []automation.ExecutionContext
		values := [3]float64{sample.CPU, sample.Memory, sample.Disk}
		for i, th := range thresholds {
			if !th.set || values[i] <= th.limit {
				continue
			}
			batch = append(batch, automation.ExecutionContext{
				Trigger:   "system",
				Timestamp: time.Now().UTC(),
				Data: map[string]any{
					"type":      th.event,
					"value":     values[i],
					"threshold": th.limit,
					"cpu":       sample.CPU,
					"memory":    sample.Memory,
					"disk":      sample.Disk,
				},
			})
		}
		return batch
	}), nil
}
