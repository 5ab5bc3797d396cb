package condition

import (
	"context"
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/nerrad567/gray-logic-automator/internal/automation"
)

// Expression evaluates a boolean expr-lang program against the execution
// context variables (trigger, timestamp and every data key).
//
// Spec: {"type":"expression","expression":"trigger == 'webhook' && body.ref == 'main'"}
//
// Compiled programs are cached by source.
type Expression struct {
	mu       sync.RWMutex
	programs map[string]*vm.Program
}

// NewExpression creates an expression condition with an empty cache.
func NewExpression() *Expression {
	return &Expression{programs: make(map[string]*vm.Program)}
}

// Evaluate compiles (once) and runs the expression.
func (e *Expression) Evaluate(_ context.Context, spec automation.Spec, ec automation.ExecutionContext) (bool, error) {
	source := spec.String("expression")
	if source == "" {
		return false, fmt.Errorf("%w: expression is required", ErrInvalidExpression)
	}

	program, err := e.compile(source)
	if err != nil {
		return false, err
	}

	out, err := expr.Run(program, ec.Vars())
	if err != nil {
		return false, fmt.Errorf("evaluating expression: %w", err)
	}
	ok, isBool := out.(bool)
	if !isBool {
		return false, fmt.Errorf("%w: result is %T, not bool", ErrInvalidExpression, out)
	}
	return ok, nil
}

func (e *Expression) compile(source string) (*vm.Program, error) {
	e.mu.RLock()
	program, ok := e.programs[source]
	e.mu.RUnlock()
	if ok {
		return program, nil
	}

	program, err := expr.Compile(source, expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidExpression, err)
	}

	e.mu.Lock()
	e.programs[source] = program
	e.mu.Unlock()
	return program, nil
}
