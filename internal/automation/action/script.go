package action

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dop251/goja"

	"github.com/nerrad567/gray-logic-automator/internal/automation"
)

// Script runs JavaScript in a fresh goja runtime.
//
// Spec: {"type":"script","source":"context.body.items.length > 3 ? 'big' : 'small'",
// "timeout":"5s"}
//
// The runtime exposes `context` (trigger, timestamp and data keys) and
// `log(value)`. The completion value of the script is the action result.
type Script struct{}

// Execute runs the script.
func (Script) Execute(ctx context.Context, spec automation.Spec, ec automation.ExecutionContext, h automation.Handle) (any, error) {
	source := spec.String("source")
	if source == "" {
		return nil, fmt.Errorf("%w: source", ErrMissingField)
	}

	program, err := goja.Compile("script", source, false)
	if err != nil {
		return nil, fmt.Errorf("%w: compiling: %w", ErrScriptFailed, err)
	}

	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	if err := vm.Set("context", ec.Vars()); err != nil {
		return nil, fmt.Errorf("%w: binding context: %w", ErrScriptFailed, err)
	}
	logger := h.Logger()
	if err := vm.Set("log", func(v goja.Value) {
		logger.Info("script log", "value", v.Export())
	}); err != nil {
		return nil, fmt.Errorf("%w: binding log: %w", ErrScriptFailed, err)
	}

	timeout := spec.Duration("timeout", DefaultScriptTimeout)
	timer := time.AfterFunc(timeout, func() {
		vm.Interrupt(fmt.Sprintf("timed out after %s", timeout))
	})
	defer timer.Stop()

	stop := context.AfterFunc(ctx, func() { vm.Interrupt(ctx.Err()) })
	defer stop()

	value, err := vm.RunProgram(program)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return nil, fmt.Errorf("%w: interrupted: %v", ErrScriptFailed, interrupted.Value())
		}
		return nil, fmt.Errorf("%w: %w", ErrScriptFailed, err)
	}
	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return nil, nil
	}
	return value.Export(), nil
}
