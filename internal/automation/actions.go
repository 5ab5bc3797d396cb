package automation

import (
	"context"
	"fmt"
)

// executeActions runs actions sequentially in declared order. The first
// failure stops the run; results gathered so far are returned with it.
func (e *Engine) executeActions(ctx context.Context, actions []Spec, ec ExecutionContext) ([]any, error) {
	h := handle{e: e}
	results := make([]any, 0, len(actions))

	for i, spec := range actions {
		kind := spec.Type()
		act, ok := e.types.Action(kind)
		if !ok {
			return results, fmt.Errorf("action %d (%s): %w", i, kind, ErrUnknownAction)
		}

		res, err := act.Execute(ctx, spec, ec, h)
		if err != nil {
			return results, fmt.Errorf("action %d (%s): %w", i, kind, err)
		}
		results = append(results, res)
	}
	return results, nil
}
