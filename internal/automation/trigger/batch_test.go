package trigger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cast"

	"github.com/nerrad567/gray-logic-automator/internal/automation"
)

// slowRecorder is an action that takes long enough for sibling fires to
// overlap and records one data field per run.
type slowRecorder struct {
	key   string
	delay time.Duration

	mu   sync.Mutex
	seen map[string]int
}

func (s *slowRecorder) Execute(_ context.Context, _ automation.Spec, ec automation.ExecutionContext, _ automation.Handle) (any, error) {
	time.Sleep(s.delay)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen == nil {
		s.seen = make(map[string]int)
	}
	s.seen[cast.ToString(ec.Data[s.key])]++
	return nil, nil
}

func (s *slowRecorder) counts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.seen))
	for k, v := range s.seen {
		out[k] = v
	}
	return out
}

// waitCounts polls rec until every key in want has been run at least once.
func waitCounts(t *testing.T, rec *slowRecorder, want ...string) map[string]int {
	t.Helper()
	deadline := time.Now().Add(fireTimeout)
	for {
		got := rec.counts()
		missing := false
		for _, k := range want {
			if got[k] == 0 {
				missing = true
				break
			}
		}
		if !missing {
			return got
		}
		if time.Now().After(deadline) {
			t.Fatalf("runs = %v, want at least one of each %v", got, want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func engineWith(t *testing.T, opts Options, rec *slowRecorder, trig automation.Spec) {
	t.Helper()
	engine := automation.NewEngine(nil)
	t.Cleanup(func() { engine.Close() }) //nolint:errcheck // test cleanup

	Register(engine.Types(), opts)
	engine.Types().RegisterAction("slow", rec)

	a := &automation.Automation{
		ID:      "batch",
		Name:    "Batch",
		Enabled: true,
		Trigger: trig,
		Actions: []automation.Spec{{"type": "slow"}},
	}
	if err := engine.Save(context.Background(), a); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
}

// ─── Batches through the engine ─────────────────────────────────────

func TestEmail_EachNewMessageRunsOnce(t *testing.T) {
	rec := &slowRecorder{key: "id", delay: 50 * time.Millisecond}
	engineWith(t, Options{
		Email: staticChecker(
			map[string]any{"id": "m1"},
			map[string]any{"id": "m2"},
			map[string]any{"id": "m3"},
		),
	}, rec, automation.Spec{"type": "email", "interval": "20ms"})

	waitCounts(t, rec, "m1", "m2", "m3")
	time.Sleep(150 * time.Millisecond)

	got := rec.counts()
	for _, id := range []string{"m1", "m2", "m3"} {
		if got[id] != 1 {
			t.Errorf("runs[%s] = %d, want 1", id, got[id])
		}
	}
}

func TestCalendar_EveryRecordRuns(t *testing.T) {
	rec := &slowRecorder{key: "id", delay: 50 * time.Millisecond}
	engineWith(t, Options{
		Calendar: staticChecker(
			map[string]any{"id": "ev1"},
			map[string]any{"id": "ev2"},
			map[string]any{"id": "ev3"},
		),
	}, rec, automation.Spec{"type": "calendar", "interval": "20ms"})

	waitCounts(t, rec, "ev1", "ev2", "ev3")
}

func TestSystem_EveryCrossedThresholdRuns(t *testing.T) {
	rec := &slowRecorder{key: "type", delay: 50 * time.Millisecond}
	engineWith(t, Options{
		Sampler: fixedSampler(95, 95, 10),
	}, rec, automation.Spec{
		"type":             "system",
		"interval":         "20ms",
		"cpu_threshold":    90,
		"memory_threshold": 90,
	})

	got := waitCounts(t, rec, SystemCPUHigh, SystemMemoryHigh)
	if got[SystemDiskLow] != 0 {
		t.Errorf("runs[%s] = %d, want 0", SystemDiskLow, got[SystemDiskLow])
	}
}

// ─── Poll loop ──────────────────────────────────────────────────────

func TestPoll_SkipsTickWhileBatchRuns(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	checks := 0

	fire := func(automation.ExecutionContext) (*automation.Result, error) {
		<-release
		return &automation.Result{Success: true}, nil
	}
	a := &automation.Automation{ID: "poll"}
	b := startPoll(context.Background(), 10*time.Millisecond, a, fire, nil, func(context.Context) []automation.ExecutionContext {
		mu.Lock()
		checks++
		mu.Unlock()
		return []automation.ExecutionContext{{Trigger: "test"}}
	})

	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	n := checks
	mu.Unlock()
	if n != 1 {
		t.Errorf("checks while batch blocked = %d, want 1", n)
	}

	closed := make(chan struct{})
	go func() {
		b.Close() //nolint:errcheck // test cleanup
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(fireTimeout):
		t.Fatal("Close() waited for the running batch")
	}
	close(release)
}

func TestPoll_CloseDropsRestOfBatch(t *testing.T) {
	started := make(chan struct{}, 8)
	release := make(chan struct{})

	fire := func(automation.ExecutionContext) (*automation.Result, error) {
		started <- struct{}{}
		<-release
		return &automation.Result{Success: true}, nil
	}
	a := &automation.Automation{ID: "poll"}
	b := startPoll(context.Background(), 10*time.Millisecond, a, fire, nil, func(context.Context) []automation.ExecutionContext {
		return []automation.ExecutionContext{{Trigger: "a"}, {Trigger: "b"}, {Trigger: "c"}}
	})

	select {
	case <-started:
	case <-time.After(fireTimeout):
		t.Fatal("timed out waiting for first fire")
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	close(release)

	select {
	case <-started:
		t.Error("fire after Close, want rest of batch dropped")
	case <-time.After(100 * time.Millisecond):
	}
}
