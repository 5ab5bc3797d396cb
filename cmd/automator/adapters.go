package main

import (
	"context"

	"github.com/nerrad567/gray-logic-automator/internal/automation"
	"github.com/nerrad567/gray-logic-automator/internal/automation/trigger"
	"github.com/nerrad567/gray-logic-automator/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-automator/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-automator/internal/infrastructure/mqtt"
)

// pointWriter is the part of the InfluxDB client the adapters use.
type pointWriter interface {
	WriteRun(s influxdb.RunSample)
	WriteSystemSample(s influxdb.SystemSample)
}

// influxRecorder exports run history as InfluxDB points.
type influxRecorder struct {
	client pointWriter
}

// RecordRun implements automation.RunRecorder. Writes are batched and
// asynchronous; failures surface through the client's error callback.
func (r influxRecorder) RecordRun(_ context.Context, rec automation.RunRecord) error {
	r.client.WriteRun(influxdb.RunSample{
		AutomationID: rec.AutomationID,
		Trigger:      rec.Trigger,
		Status:       string(rec.Status),
		Reason:       rec.Reason,
		Duration:     rec.CompletedAt.Sub(rec.StartedAt),
		ActionCount:  rec.ActionCount,
		Time:         rec.StartedAt,
	})
	return nil
}

// systemSampleSink exports host samples taken by system triggers.
func systemSampleSink(client pointWriter, host string) func(trigger.Sample) {
	return func(s trigger.Sample) {
		client.WriteSystemSample(influxdb.SystemSample{
			Host:          host,
			CPUPercent:    s.CPU,
			MemoryPercent: s.Memory,
			DiskPercent:   s.Disk,
			Time:          s.Time,
		})
	}
}

// jsonPublisher is the part of the MQTT client the event mirror uses.
type jsonPublisher interface {
	PublishJSON(topic string, v any, qos byte, retained bool) error
	DefaultQoS() byte
}

// eventMirror republishes run events to automator/event/{id}/{type}.
func eventMirror(client jsonPublisher, log *logging.Logger) func(automation.Event) {
	topics := mqtt.Topics{}
	return func(ev automation.Event) {
		topic := topics.Event(ev.AutomationID, string(ev.Type))
		if err := client.PublishJSON(topic, ev.Payload(), client.DefaultQoS(), false); err != nil {
			log.Warn("mirroring event to MQTT failed", "topic", topic, "error", err)
		}
	}
}
