package trigger

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/spf13/cast"

	"github.com/nerrad567/gray-logic-automator/internal/automation"
)

// checkFunc fetches one poll's worth of fires.
type checkFunc func(context.Context) []automation.ExecutionContext

// pollLoop calls check every interval until ctx is done. The first check
// is one interval after binding. The fires of one check run in order on a
// single goroutine, so they never race each other for the run guard. A
// tick that comes while the previous batch is still running is skipped.
func pollLoop(ctx context.Context, done chan<- struct{}, interval time.Duration, check checkFunc, fire automation.FireFunc, logger automation.Logger, automationID string) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var busy atomic.Bool
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if busy.Load() {
				logger.Debug("poll skipped, previous batch still running", "automation_id", automationID)
				continue
			}
			batch := check(ctx)
			if len(batch) == 0 {
				continue
			}
			busy.Store(true)
			go func() {
				defer busy.Store(false)
				fireEach(ctx, fire, batch, logger, automationID)
			}()
		}
	}
}

// startPoll runs the poll loop on a goroutine and returns a Binding that
// stops it. Closing does not wait for a batch already running; the rest of
// that batch is dropped.
func startPoll(ctx context.Context, interval time.Duration, a *automation.Automation, fire automation.FireFunc, logger automation.Logger, check checkFunc) automation.Binding {
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go pollLoop(loopCtx, done, interval, check, fire, loggerOr(logger), a.ID)

	return automation.BindingFunc(func() error {
		cancel()
		<-done
		return nil
	})
}

// Email polls a Checker and fires once per new message.
//
// Spec: {"type":"email","interval":"2m","feed_url":"http://localhost:8025/api/new"}
//
// Message ids already seen by this binding are skipped. The seen set is
// bounded by DedupSize and DedupWindow and starts empty on every bind.
type Email struct {
	Checker     Checker
	Interval    time.Duration
	DedupSize   int
	DedupWindow time.Duration
	Logger      automation.Logger
}

// Bind starts the email poll loop.
func (e *Email) Bind(ctx context.Context, a *automation.Automation, fire automation.FireFunc) (automation.Binding, error) {
	if e.Checker == nil {
		return nil, fmt.Errorf("email: %w", ErrNoChecker)
	}

	size := e.DedupSize
	if size <= 0 {
		size = DefaultEmailDedupSize
	}
	window := e.DedupWindow
	if window <= 0 {
		window = DefaultEmailDedupWindow
	}
	seen := expirable.NewLRU[string, struct{}](size, nil, window)

	logger := loggerOr(e.Logger)
	spec := a.Trigger.Clone()
	id := a.ID

	interval := spec.Duration("interval", e.Interval)
	if interval <= 0 {
		interval = DefaultEmailInterval
	}

	return startPoll(ctx, interval, a, fire, logger, func(ctx context.Context) []automation.ExecutionContext {
		records, err := e.Checker.Check(ctx, spec)
		if err != nil {
			logger.Warn("email check failed", "automation_id", id, "error", err)
			return nil
		}
		var batch []automation.ExecutionContext
		for _, rec := range records {
			if msgID := cast.ToString(rec["id"]); msgID != "" {
				if seen.Contains(msgID) {
					continue
				}
				seen.Add(msgID, struct{}{})
			}
			batch = append(batch, recordContext("email", "email", rec))
		}
		return batch
	}), nil
}

// Calendar polls a Checker and fires once per returned event.
//
// Spec: {"type":"calendar","interval":"5m","feed_url":"http://localhost:8080/upcoming"}
type Calendar struct {
	Checker  Checker
	Interval time.Duration
	Logger   automation.Logger
}

// Bind starts the calendar poll loop.
func (c *Calendar) Bind(ctx context.Context, a *automation.Automation, fire automation.FireFunc) (automation.Binding, error) {
	if c.Checker == nil {
		return nil, fmt.Errorf("calendar: %w", ErrNoChecker)
	}

	logger := loggerOr(c.Logger)
	spec := a.Trigger.Clone()
	id := a.ID

	interval := spec.Duration("interval", c.Interval)
	if interval <= 0 {
		interval = DefaultCalendarInterval
	}

	return startPoll(ctx, interval, a, fire, logger, func(ctx context.Context) []automation.ExecutionContext {
		records, err := c.Checker.Check(ctx, spec)
		if err != nil {
			logger.Warn("calendar check failed", "automation_id", id, "error", err)
			return nil
		}
		batch := make([]automation.ExecutionContext, 0, len(records))
		for _, rec := range records {
			batch = append(batch, recordContext("calendar", "event", rec))
		}
		return batch
	}), nil
}

// recordContext copies rec's fields into the data map and also nests the
// whole record under key.
func recordContext(trigger, key string, rec map[string]any) automation.ExecutionContext {
	data := make(map[string]any, len(rec)+1)
	for k, v := range rec {
		data[k] = v
	}
	data[key] = rec
	return automation.ExecutionContext{
		Trigger:   trigger,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}
