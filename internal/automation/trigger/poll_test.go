package trigger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-automator/internal/automation"
)

func TestEmail_DedupByID(t *testing.T) {
	checker := staticChecker(
		map[string]any{"id": "m1", "subject": "hello"},
		map[string]any{"subject": "no id"},
	)
	fire, ch := collector()
	email := &Email{Checker: checker, Interval: 20 * time.Millisecond}
	bindOrFatal(t, email, automationWith("e1", automation.Spec{"type": "email"}), fire)

	var withID, withoutID int
	deadline := time.After(300 * time.Millisecond)
loop:
	for {
		select {
		case ec := <-ch:
			if ec.Trigger != "email" {
				t.Fatalf("Trigger = %q, want email", ec.Trigger)
			}
			if _, ok := ec.Data["email"].(map[string]any); !ok {
				t.Fatalf("Data missing nested email record: %v", ec.Data)
			}
			if ec.Data["id"] == "m1" {
				withID++
			} else {
				withoutID++
			}
		case <-deadline:
			break loop
		}
	}

	if withID != 1 {
		t.Errorf("message with id fired %d times, want 1", withID)
	}
	if withoutID < 2 {
		t.Errorf("message without id fired %d times, want every poll", withoutID)
	}
}

func TestEmail_CheckErrorContinues(t *testing.T) {
	var calls atomic.Int32
	checker := CheckerFunc(func(context.Context, automation.Spec) ([]map[string]any, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("imap timeout")
		}
		return []map[string]any{{"id": "m1"}}, nil
	})

	fire, ch := collector()
	bindOrFatal(t, &Email{Checker: checker, Interval: 20 * time.Millisecond}, automationWith("e1", automation.Spec{"type": "email"}), fire)

	if ec := waitFire(t, ch); ec.Data["id"] != "m1" {
		t.Errorf("id = %v, want m1", ec.Data["id"])
	}
}

func TestEmail_NoChecker(t *testing.T) {
	fire, _ := collector()
	_, err := (&Email{}).Bind(t.Context(), automationWith("e1", automation.Spec{"type": "email"}), fire)
	if !errors.Is(err, ErrNoChecker) {
		t.Errorf("Bind() error = %v, want ErrNoChecker", err)
	}
}

func TestCalendar_FiresEveryRecord(t *testing.T) {
	checker := staticChecker(map[string]any{"id": "ev1", "title": "standup"})
	fire, ch := collector()
	spec := automation.Spec{"type": "calendar", "interval": "20ms"}
	bindOrFatal(t, &Calendar{Checker: checker, Interval: time.Hour}, automationWith("c1", spec), fire)

	for range 2 {
		ec := waitFire(t, ch)
		if ec.Trigger != "calendar" || ec.Data["title"] != "standup" {
			t.Errorf("fire = %+v", ec)
		}
		if ev, ok := ec.Data["event"].(map[string]any); !ok || ev["id"] != "ev1" {
			t.Errorf("event = %v", ec.Data["event"])
		}
	}
}

func TestFeedChecker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/inbox":
			if r.Header.Get("X-Token") != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[{"id":"m1","subject":"hi"},{"id":"m2"}]`)) //nolint:errcheck // test server
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := NewFeedChecker(time.Second)

	records, err := c.Check(t.Context(), automation.Spec{
		"feed_url": srv.URL + "/inbox",
		"headers":  map[string]any{"X-Token": "secret"},
	})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if len(records) != 2 || records[0]["subject"] != "hi" {
		t.Errorf("records = %v", records)
	}

	if _, err := c.Check(t.Context(), automation.Spec{"feed_url": srv.URL + "/broken"}); err == nil {
		t.Error("Check() on 500 expected error")
	}
	if _, err := c.Check(t.Context(), automation.Spec{}); !errors.Is(err, ErrNoFeedURL) {
		t.Errorf("Check() error = %v, want ErrNoFeedURL", err)
	}
}
