package trigger

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-automator/internal/automation"
	"github.com/nerrad567/gray-logic-automator/internal/infrastructure/mqtt"
)

const fireTimeout = 3 * time.Second

// collector returns a FireFunc that forwards every context to the channel.
func collector() (automation.FireFunc, chan automation.ExecutionContext) {
	ch := make(chan automation.ExecutionContext, 64)
	return func(ec automation.ExecutionContext) (*automation.Result, error) {
		select {
		case ch <- ec:
		default:
		}
		return &automation.Result{Success: true}, nil
	}, ch
}

func waitFire(t *testing.T, ch <-chan automation.ExecutionContext) automation.ExecutionContext {
	t.Helper()
	select {
	case ec := <-ch:
		return ec
	case <-time.After(fireTimeout):
		t.Fatal("timed out waiting for trigger to fire")
	}
	return automation.ExecutionContext{}
}

func expectNoFire(t *testing.T, ch <-chan automation.ExecutionContext, wait time.Duration) {
	t.Helper()
	select {
	case ec := <-ch:
		t.Fatalf("unexpected fire: %+v", ec)
	case <-time.After(wait):
	}
}

func drain(ch <-chan automation.ExecutionContext) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func bindOrFatal(t *testing.T, tr automation.Trigger, a *automation.Automation, fire automation.FireFunc) automation.Binding {
	t.Helper()
	b, err := tr.Bind(context.Background(), a, fire)
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	t.Cleanup(func() { b.Close() }) //nolint:errcheck // test cleanup
	return b
}

func automationWith(id string, trigger automation.Spec) *automation.Automation {
	return &automation.Automation{ID: id, Name: id, Enabled: true, Trigger: trigger}
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close() //nolint:errcheck // releasing probe port
	return port
}

// fakeSubscriber records subscriptions and lets tests deliver messages.
type fakeSubscriber struct {
	mu           sync.Mutex
	handlers     map[string]mqtt.MessageHandler
	subscribes   int
	unsubscribes int
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{handlers: make(map[string]mqtt.MessageHandler)}
}

func (f *fakeSubscriber) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if topic == "forbidden" {
		return errors.New("not authorised")
	}
	f.subscribes++
	f.handlers[topic] = handler
	return nil
}

func (f *fakeSubscriber) Unsubscribe(topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribes++
	delete(f.handlers, topic)
	return nil
}

func (f *fakeSubscriber) deliver(filter, topic string, payload []byte) bool {
	f.mu.Lock()
	h := f.handlers[filter]
	f.mu.Unlock()
	if h == nil {
		return false
	}
	h(topic, payload) //nolint:errcheck // handler never fails
	return true
}

func (f *fakeSubscriber) counts() (subs, unsubs, live int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subscribes, f.unsubscribes, len(f.handlers)
}

// fixedSampler returns the same sample every time.
func fixedSampler(cpu, memory, disk float64) Sampler {
	return SamplerFunc(func(context.Context, string) (Sample, error) {
		return Sample{CPU: cpu, Memory: memory, Disk: disk, Time: time.Now()}, nil
	})
}

// staticChecker returns the same records every time.
func staticChecker(records ...map[string]any) Checker {
	return CheckerFunc(func(context.Context, automation.Spec) ([]map[string]any, error) {
		return records, nil
	})
}
