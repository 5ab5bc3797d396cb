// Package trigger implements the built-in trigger kinds: schedule, webhook,
// file_change, email, calendar, system and mqtt.
//
// Each kind implements automation.Trigger. Bind allocates exactly one
// resource (a timer loop, a path on a shared HTTP listener, a filesystem
// watcher, a poll loop or a broker subscription) and the returned Binding
// releases exactly that resource. Fires are delivered through the
// automation.FireFunc passed to Bind, each in its own goroutine.
//
// Register installs every kind into a TypeRegistry:
//
//	trigger.Register(engine.Types(), trigger.Options{
//	    Logger:      log,
//	    WebhookHost: cfg.Automation.WebhookHost,
//	    Sampler:     trigger.HostSampler{},
//	})
package trigger
