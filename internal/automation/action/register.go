package action

import (
	"time"

	"github.com/nerrad567/gray-logic-automator/internal/automation"
)

// Defaults for command and script execution.
const (
	DefaultShell         = "/bin/sh"
	DefaultTimeout       = 5 * time.Minute
	DefaultScriptTimeout = 30 * time.Second
)

// Publisher is the part of the MQTT client mqtt_publish needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Options configures the built-in actions.
type Options struct {
	// Shell is the interpreter invoked as `<shell> -c <command>`.
	Shell string

	// Timeout bounds shell and git commands that set no timeout of their own.
	Timeout time.Duration

	// Publisher backs mqtt_publish. Nil disables it.
	Publisher Publisher
}

// Register installs every built-in action kind into types.
func Register(types *automation.TypeRegistry, opts Options) {
	if opts.Shell == "" {
		opts.Shell = DefaultShell
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	runner := &Runner{Shell: opts.Shell, Timeout: opts.Timeout}
	types.RegisterAction("shell", &Shell{Runner: runner})
	types.RegisterAction("git", &Git{Runner: runner})
	types.RegisterAction("log", Log{})
	types.RegisterAction("mqtt_publish", &MQTTPublish{Publisher: opts.Publisher})
	types.RegisterAction("script", Script{})
}
