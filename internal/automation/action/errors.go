package action

import "errors"

var (
	// ErrMissingField is returned when a required spec field is empty.
	ErrMissingField = errors.New("action: required field missing")

	// ErrCommandFailed is returned when a shell or git command exits non-zero.
	ErrCommandFailed = errors.New("action: command failed")

	// ErrMQTTDisabled is returned by mqtt_publish when no broker is configured.
	ErrMQTTDisabled = errors.New("action: mqtt is not enabled")

	// ErrScriptFailed is returned when a script throws or is interrupted.
	ErrScriptFailed = errors.New("action: script failed")
)
