package trigger

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-automator/internal/automation"
)

// Default poll intervals and dedup bounds.
const (
	DefaultEmailInterval    = 60 * time.Second
	DefaultCalendarInterval = 5 * time.Minute
	DefaultSystemInterval   = 60 * time.Second
	DefaultEmailDedupSize   = 10000
	DefaultEmailDedupWindow = 7 * 24 * time.Hour
)

// Options configures the built-in trigger kinds. Zero values take the
// package defaults; a nil Checker, Sampler or Subscriber makes the matching
// kind fail at bind time.
type Options struct {
	Logger automation.Logger

	// WebhookHost is the interface webhook listeners bind to.
	WebhookHost string

	EmailInterval    time.Duration
	CalendarInterval time.Duration
	SystemInterval   time.Duration

	EmailDedupSize   int
	EmailDedupWindow time.Duration

	Email    Checker
	Calendar Checker
	Sampler  Sampler

	// SampleSink, when set, receives every system sample (metrics export).
	SampleSink func(Sample)

	Subscriber Subscriber
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = noopLogger{}
	}
	if o.EmailInterval <= 0 {
		o.EmailInterval = DefaultEmailInterval
	}
	if o.CalendarInterval <= 0 {
		o.CalendarInterval = DefaultCalendarInterval
	}
	if o.SystemInterval <= 0 {
		o.SystemInterval = DefaultSystemInterval
	}
	if o.EmailDedupSize <= 0 {
		o.EmailDedupSize = DefaultEmailDedupSize
	}
	if o.EmailDedupWindow <= 0 {
		o.EmailDedupWindow = DefaultEmailDedupWindow
	}
	return o
}

// Register installs every built-in trigger kind into types.
func Register(types *automation.TypeRegistry, opts Options) {
	opts = opts.withDefaults()

	types.RegisterTrigger("schedule", &Schedule{Logger: opts.Logger})
	types.RegisterTrigger("webhook", NewWebhook(opts.WebhookHost, opts.Logger))
	types.RegisterTrigger("file_change", &FileChange{Logger: opts.Logger})
	types.RegisterTrigger("email", &Email{
		Checker:     opts.Email,
		Interval:    opts.EmailInterval,
		DedupSize:   opts.EmailDedupSize,
		DedupWindow: opts.EmailDedupWindow,
		Logger:      opts.Logger,
	})
	types.RegisterTrigger("calendar", &Calendar{
		Checker:  opts.Calendar,
		Interval: opts.CalendarInterval,
		Logger:   opts.Logger,
	})
	types.RegisterTrigger("system", &System{
		Sampler:  opts.Sampler,
		Sink:     opts.SampleSink,
		Interval: opts.SystemInterval,
		Logger:   opts.Logger,
	})
	types.RegisterTrigger("mqtt", NewMQTT(opts.Subscriber, opts.Logger))
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

func loggerOr(l automation.Logger) automation.Logger {
	if l == nil {
		return noopLogger{}
	}
	return l
}

// dispatch fires in a new goroutine and logs a failed run.
func dispatch(fire automation.FireFunc, ec automation.ExecutionContext, logger automation.Logger, automationID string) {
	go fireOnce(fire, ec, loggerOr(logger), automationID)
}

// fireEach fires the batch in order, stopping early once ctx is done.
func fireEach(ctx context.Context, fire automation.FireFunc, batch []automation.ExecutionContext, logger automation.Logger, automationID string) {
	for _, ec := range batch {
		if ctx.Err() != nil {
			return
		}
		fireOnce(fire, ec, logger, automationID)
	}
}

func fireOnce(fire automation.FireFunc, ec automation.ExecutionContext, logger automation.Logger, automationID string) {
	res, err := fire(ec)
	if err != nil {
		logger.Warn("triggered run failed",
			"automation_id", automationID,
			"trigger", ec.Trigger,
			"error", err,
		)
		return
	}
	if res != nil && res.Skipped {
		logger.Debug("triggered run skipped",
			"automation_id", automationID,
			"trigger", ec.Trigger,
			"reason", res.Reason,
		)
	}
}
