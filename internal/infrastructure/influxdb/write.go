package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementRun    = "automation_run"
	MeasurementSystem = "system_sample"
)

// RunSample describes one finished run.
type RunSample struct {
	AutomationID string
	Trigger      string
	// Status is completed, skipped or failed.
	Status      string
	Reason      string
	Duration    time.Duration
	ActionCount int
	Time        time.Time
}

// SystemSample is one host metrics reading in percent.
type SystemSample struct {
	Host          string
	CPUPercent    float64
	MemoryPercent float64
	DiskPercent   float64
	Time          time.Time
}

// RunPoint converts a run sample into a line-protocol point.
func RunPoint(s RunSample) *write.Point {
	tags := map[string]string{
		"automation_id": s.AutomationID,
		"trigger":       s.Trigger,
		"status":        s.Status,
	}
	if s.Reason != "" {
		tags["reason"] = s.Reason
	}

	ts := s.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	return write.NewPoint(MeasurementRun, tags, map[string]any{
		"duration_ms":  s.Duration.Milliseconds(),
		"action_count": s.ActionCount,
	}, ts)
}

// SystemPoint converts a host sample into a line-protocol point.
func SystemPoint(s SystemSample) *write.Point {
	ts := s.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	return write.NewPoint(MeasurementSystem,
		map[string]string{"host": s.Host},
		map[string]any{
			"cpu_percent":    s.CPUPercent,
			"memory_percent": s.MemoryPercent,
			"disk_percent":   s.DiskPercent,
		}, ts)
}

// WriteRun queues a run point. Non-blocking; dropped when disconnected.
func (c *Client) WriteRun(s RunSample) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(RunPoint(s))
}

// WriteSystemSample queues a host sample point.
func (c *Client) WriteSystemSample(s SystemSample) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(SystemPoint(s))
}
