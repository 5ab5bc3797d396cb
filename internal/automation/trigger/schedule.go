package trigger

import (
	"context"
	"fmt"
	"time"

	"github.com/gorhill/cronexpr"

	"github.com/nerrad567/gray-logic-automator/internal/automation"
)

// Schedule fires on a cron expression.
//
// Spec: {"type":"schedule","cron":"0 9 * * mon-fri","timezone":"Europe/London"}
//
// Five-field expressions have minute resolution; a seven-field expression
// starts with seconds and ends with year. An expression that never matches
// is rejected at bind time.
type Schedule struct {
	Logger automation.Logger
}

// Bind starts a timer loop for a.
func (s *Schedule) Bind(ctx context.Context, a *automation.Automation, fire automation.FireFunc) (automation.Binding, error) {
	raw := a.Trigger.String("cron")
	if raw == "" {
		return nil, fmt.Errorf("%w: cron is required", ErrInvalidSchedule)
	}

	expr, err := cronexpr.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidSchedule, raw, err)
	}

	loc := time.Local
	if tz := a.Trigger.String("timezone"); tz != "" {
		if loc, err = time.LoadLocation(tz); err != nil {
			return nil, fmt.Errorf("%w: timezone %q: %w", ErrInvalidSchedule, tz, err)
		}
	}

	if expr.Next(time.Now().In(loc)).IsZero() {
		return nil, fmt.Errorf("%w: %q never fires", ErrInvalidSchedule, raw)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go s.loop(loopCtx, done, a.ID, expr, loc, fire)

	return automation.BindingFunc(func() error {
		cancel()
		<-done
		return nil
	}), nil
}

func (s *Schedule) loop(ctx context.Context, done chan<- struct{}, id string, expr *cronexpr.Expression, loc *time.Location, fire automation.FireFunc) {
	defer close(done)

	for {
		now := time.Now().In(loc)
		next := expr.Next(now)
		if next.IsZero() {
			loggerOr(s.Logger).Info("schedule exhausted", "automation_id", id)
			return
		}

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case at := <-timer.C:
			dispatch(fire, automation.ExecutionContext{
				Trigger:   "schedule",
				Timestamp: at.UTC(),
				Data:      map[string]any{"scheduled_at": next.UTC().Format(time.RFC3339)},
			}, s.Logger, id)
		}
	}
}
