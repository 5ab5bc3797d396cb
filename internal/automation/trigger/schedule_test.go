package trigger

import (
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-automator/internal/automation"
)

func TestSchedule_InvalidRejected(t *testing.T) {
	fire, _ := collector()
	tests := []struct {
		name string
		spec automation.Spec
	}{
		{"missing cron", automation.Spec{"type": "schedule"}},
		{"garbage cron", automation.Spec{"type": "schedule", "cron": "not a cron"}},
		{"bad timezone", automation.Spec{"type": "schedule", "cron": "0 * * * *", "timezone": "Mars/Olympus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&Schedule{}).Bind(t.Context(), automationWith("s1", tt.spec), fire)
			if !errors.Is(err, ErrInvalidSchedule) {
				t.Errorf("Bind() error = %v, want ErrInvalidSchedule", err)
			}
		})
	}
}

func TestSchedule_FiresEverySecond(t *testing.T) {
	fire, ch := collector()
	a := automationWith("s1", automation.Spec{"type": "schedule", "cron": "* * * * * * *", "timezone": "UTC"})
	bindOrFatal(t, &Schedule{}, a, fire)

	ec := waitFire(t, ch)
	if ec.Trigger != "schedule" {
		t.Errorf("Trigger = %q, want schedule", ec.Trigger)
	}
	if ec.Timestamp.IsZero() {
		t.Error("Timestamp is zero")
	}
	if _, ok := ec.Data["scheduled_at"]; !ok {
		t.Error("Data missing scheduled_at")
	}
}

func TestSchedule_CloseStopsLoop(t *testing.T) {
	fire, ch := collector()
	a := automationWith("s1", automation.Spec{"type": "schedule", "cron": "* * * * * * *"})

	b, err := (&Schedule{}).Bind(t.Context(), a, fire)
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	drain(ch)
	expectNoFire(t, ch, 1500*time.Millisecond)
}
