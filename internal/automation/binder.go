package automation

import (
	"context"
	"fmt"
)

// bind allocates the trigger resource for a and stores the binding.
// Callers hold lifecycleMu.
func (e *Engine) bind(a *Automation) error {
	if e.registry.IsBound(a.ID) {
		return fmt.Errorf("%w: %s", ErrAlreadyBound, a.ID)
	}

	kind := a.Trigger.Type()
	t, ok := e.types.Trigger(kind)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTrigger, kind)
	}

	b, err := t.Bind(e.baseCtx, a.DeepCopy(), e.fireFunc(a.ID))
	if err != nil {
		return fmt.Errorf("binding %s trigger: %w", kind, err)
	}
	if b == nil {
		b = BindingFunc(func() error { return nil })
	}

	e.registry.setBinding(a.ID, b)
	e.logger.Debug("automation trigger bound", "automation_id", a.ID, "trigger", kind)
	return nil
}

// unbind is the single teardown path for Disable, Delete, Save and Close.
// Unbinding an unbound id is a no-op. Callers hold lifecycleMu.
func (e *Engine) unbind(id string) {
	b := e.registry.takeBinding(id)
	if b == nil {
		return
	}
	if err := b.Close(); err != nil {
		e.logger.Warn("automation trigger release failed", "automation_id", id, "error", err)
		return
	}
	e.logger.Debug("automation trigger released", "automation_id", id)
}

// fireFunc returns the callback a binding uses to start runs. Runs use the
// engine's base context without its cancellation, so neither unbinding
// nor Close aborts a run in flight.
func (e *Engine) fireFunc(id string) FireFunc {
	return func(ec ExecutionContext) (*Result, error) {
		return e.Run(context.WithoutCancel(e.baseCtx), id, ec)
	}
}
