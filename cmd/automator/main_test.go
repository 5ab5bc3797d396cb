package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-automator/internal/automation"
	"github.com/nerrad567/gray-logic-automator/internal/automation/trigger"
	"github.com/nerrad567/gray-logic-automator/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-automator/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-automator/internal/infrastructure/logging"
)

// TestRun_InvalidConfig verifies run fails with an explicit config path that does not exist.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("AUTOMATOR_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingDatabasePath verifies run fails config validation.
func TestRun_MissingDatabasePath(t *testing.T) {
	configPath := writeConfig(t, `
site:
  id: test-site
database:
  path: ""
logging:
  level: error
  format: text
`)
	t.Setenv("AUTOMATOR_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with empty database path")
	}
}

// TestRun_MissingSeedFile verifies a configured but absent seed file stops startup.
func TestRun_MissingSeedFile(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, fmt.Sprintf(`
database:
  path: %q
api:
  port: %d
logging:
  level: error
  format: text
automation:
  seed_file: %q
`, filepath.Join(dir, "test.db"), freePort(t), filepath.Join(dir, "missing.yaml")))
	t.Setenv("AUTOMATOR_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with missing seed file")
	}
}

// TestRun_StartsAndStops boots the runtime with a seed file, checks the API
// serves the seeded automation, then shuts down on cancel.
func TestRun_StartsAndStops(t *testing.T) {
	dir := t.TempDir()
	seedPath := filepath.Join(dir, "automations.yaml")
	seed := `
automations:
  - id: yearly
    name: Yearly note
    enabled: true
    trigger: {type: schedule, cron: "0 0 1 1 *"}
    actions:
      - {type: log, message: "happy new year"}
`
	if err := os.WriteFile(seedPath, []byte(seed), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	port := freePort(t)
	configPath := writeConfig(t, fmt.Sprintf(`
database:
  path: %q
api:
  host: "127.0.0.1"
  port: %d
logging:
  level: error
  format: text
automation:
  seed_file: %q
`, filepath.Join(dir, "test.db"), port, seedPath))
	t.Setenv("AUTOMATOR_CONFIG", configPath)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- run(ctx) }()

	base := fmt.Sprintf("http://127.0.0.1:%d/api/v1", port)
	var body struct {
		Count int `json:"count"`
	}
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(base + "/automations")
		if err == nil {
			decodeErr := json.NewDecoder(resp.Body).Decode(&body)
			resp.Body.Close()
			if decodeErr == nil {
				break
			}
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("API never came up: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
	}
	if body.Count != 1 {
		t.Errorf("automations count = %d, want 1", body.Count)
	}

	resp, err := http.Post(base+"/automations/yearly/run", "application/json", nil)
	if err != nil {
		t.Fatalf("POST run: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("manual run status = %d, want 200", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("run() error = %v, want nil on clean shutdown", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("run() did not return after cancel")
	}
}

// TestGetConfigPath checks the env override.
func TestGetConfigPath(t *testing.T) {
	t.Setenv("AUTOMATOR_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv("AUTOMATOR_CONFIG", "/etc/automator.yaml")
	if got := getConfigPath(); got != "/etc/automator.yaml" {
		t.Errorf("getConfigPath() = %q", got)
	}
}

// ─── Adapters ────────────────────────────────────────────────────────────

type fakeWriter struct {
	runs    []influxdb.RunSample
	samples []influxdb.SystemSample
}

func (f *fakeWriter) WriteRun(s influxdb.RunSample)             { f.runs = append(f.runs, s) }
func (f *fakeWriter) WriteSystemSample(s influxdb.SystemSample) { f.samples = append(f.samples, s) }

func TestInfluxRecorder(t *testing.T) {
	w := &fakeWriter{}
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	err := influxRecorder{client: w}.RecordRun(context.Background(), automation.RunRecord{
		AutomationID: "a1",
		Trigger:      "schedule",
		Status:       automation.RunCompleted,
		ActionCount:  2,
		StartedAt:    start,
		CompletedAt:  start.Add(1500 * time.Millisecond),
	})
	if err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}
	if len(w.runs) != 1 {
		t.Fatalf("runs written = %d, want 1", len(w.runs))
	}
	got := w.runs[0]
	if got.AutomationID != "a1" || got.Status != "completed" || got.Duration != 1500*time.Millisecond || got.ActionCount != 2 {
		t.Errorf("sample = %+v", got)
	}
}

func TestSystemSampleSink(t *testing.T) {
	w := &fakeWriter{}
	now := time.Now()

	systemSampleSink(w, "site-1")(trigger.Sample{CPU: 10, Memory: 20, Disk: 30, Time: now})

	if len(w.samples) != 1 {
		t.Fatalf("samples written = %d, want 1", len(w.samples))
	}
	want := influxdb.SystemSample{Host: "site-1", CPUPercent: 10, MemoryPercent: 20, DiskPercent: 30, Time: now}
	if w.samples[0] != want {
		t.Errorf("sample = %+v, want %+v", w.samples[0], want)
	}
}

type fakePublisher struct {
	topics []string
	fail   bool
}

func (f *fakePublisher) PublishJSON(topic string, _ any, _ byte, _ bool) error {
	f.topics = append(f.topics, topic)
	if f.fail {
		return errors.New("broker gone")
	}
	return nil
}

func (f *fakePublisher) DefaultQoS() byte { return 1 }

func TestEventMirror(t *testing.T) {
	pub := &fakePublisher{}
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text"}, "test")
	mirror := eventMirror(pub, log)

	mirror(automation.Event{Type: automation.EventComplete, AutomationID: "backup"})
	pub.fail = true
	mirror(automation.Event{Type: automation.EventError, AutomationID: "backup", Error: "x"})

	want := []string{"automator/event/backup/complete", "automator/event/backup/error"}
	if len(pub.topics) != len(want) {
		t.Fatalf("topics = %v, want %v", pub.topics, want)
	}
	for i := range want {
		if pub.topics[i] != want[i] {
			t.Errorf("topic[%d] = %q, want %q", i, pub.topics[i], want[i])
		}
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}
