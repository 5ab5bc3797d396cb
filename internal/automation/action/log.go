package action

import (
	"context"
	"fmt"
	"strings"

	"github.com/nerrad567/gray-logic-automator/internal/automation"
)

// Log writes a templated message to the engine logger.
//
// Spec: {"type":"log","message":"deploy of ${body.ref} requested","level":"info"}
type Log struct{}

// Execute logs the message and returns it.
func (Log) Execute(_ context.Context, spec automation.Spec, ec automation.ExecutionContext, h automation.Handle) (any, error) {
	if !spec.Has("message") {
		return nil, fmt.Errorf("%w: message", ErrMissingField)
	}
	message := automation.Expand(spec.String("message"), ec.Vars())

	logger := h.Logger()
	args := []any{"trigger", ec.Trigger}
	switch strings.ToLower(spec.StringOr("level", "info")) {
	case "debug":
		logger.Debug(message, args...)
	case "warn", "warning":
		logger.Warn(message, args...)
	case "error":
		logger.Error(message, args...)
	default:
		logger.Info(message, args...)
	}
	return message, nil
}
