package automation

import (
	"context"
	"fmt"
)

// evaluateConditions ANDs conditions in order and stops at the first false.
// An unregistered kind counts as satisfied.
func (e *Engine) evaluateConditions(ctx context.Context, conditions []Spec, ec ExecutionContext) (bool, error) {
	for i, spec := range conditions {
		kind := spec.Type()
		c, ok := e.types.Condition(kind)
		if !ok {
			e.logger.Debug("unregistered condition kind treated as satisfied", "index", i, "type", kind)
			continue
		}

		ok, err := c.Evaluate(ctx, spec, ec)
		if err != nil {
			return false, fmt.Errorf("condition %d (%s): %w", i, kind, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
