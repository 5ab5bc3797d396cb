package automation

import (
	"context"
	"sort"
	"sync"
)

// FireFunc starts a run for the automation a binding belongs to. Bindings
// call it from their own goroutines; it blocks until the run finishes.
type FireFunc func(ec ExecutionContext) (*Result, error)

// Binding is the live resource held for one enabled automation.
type Binding interface {
	// Close releases exactly what Bind allocated.
	Close() error
}

// BindingFunc adapts a function to Binding.
type BindingFunc func() error

// Close calls f.
func (f BindingFunc) Close() error { return f() }

// Trigger allocates the resource that turns external events into fires.
type Trigger interface {
	// Bind allocates the resource for a. ctx is cancelled when the engine
	// closes; Binding.Close must not depend on it.
	Bind(ctx context.Context, a *Automation, fire FireFunc) (Binding, error)
}

// TriggerFunc adapts a function to Trigger.
type TriggerFunc func(ctx context.Context, a *Automation, fire FireFunc) (Binding, error)

// Bind calls f.
func (f TriggerFunc) Bind(ctx context.Context, a *Automation, fire FireFunc) (Binding, error) {
	return f(ctx, a, fire)
}

// Condition is a predicate over an execution context.
type Condition interface {
	Evaluate(ctx context.Context, spec Spec, ec ExecutionContext) (bool, error)
}

// ConditionFunc adapts a function to Condition.
type ConditionFunc func(ctx context.Context, spec Spec, ec ExecutionContext) (bool, error)

// Evaluate calls f.
func (f ConditionFunc) Evaluate(ctx context.Context, spec Spec, ec ExecutionContext) (bool, error) {
	return f(ctx, spec, ec)
}

// Action performs one side effect and returns its result.
type Action interface {
	Execute(ctx context.Context, spec Spec, ec ExecutionContext, h Handle) (any, error)
}

// ActionFunc adapts a function to Action.
type ActionFunc func(ctx context.Context, spec Spec, ec ExecutionContext, h Handle) (any, error)

// Execute calls f.
func (f ActionFunc) Execute(ctx context.Context, spec Spec, ec ExecutionContext, h Handle) (any, error) {
	return f(ctx, spec, ec, h)
}

// Handle is what actions see of the engine: the kind registry, the event
// emitter and the logger. It does not expose run state or bindings.
type Handle interface {
	Types() *TypeRegistry
	Events() *Emitter
	Logger() Logger
}

// TypeRegistry maps kind names to handlers. Re-registering a name replaces
// the previous handler. Safe for concurrent use.
type TypeRegistry struct {
	mu         sync.RWMutex
	triggers   map[string]Trigger
	conditions map[string]Condition
	actions    map[string]Action
}

// NewTypeRegistry creates an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		triggers:   make(map[string]Trigger),
		conditions: make(map[string]Condition),
		actions:    make(map[string]Action),
	}
}

// RegisterTrigger stores t under name.
func (r *TypeRegistry) RegisterTrigger(name string, t Trigger) {
	r.mu.Lock()
	r.triggers[name] = t
	r.mu.Unlock()
}

// RegisterCondition stores c under name.
func (r *TypeRegistry) RegisterCondition(name string, c Condition) {
	r.mu.Lock()
	r.conditions[name] = c
	r.mu.Unlock()
}

// RegisterAction stores a under name.
func (r *TypeRegistry) RegisterAction(name string, a Action) {
	r.mu.Lock()
	r.actions[name] = a
	r.mu.Unlock()
}

// Trigger looks up a trigger kind.
func (r *TypeRegistry) Trigger(name string) (Trigger, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.triggers[name]
	return t, ok
}

// Condition looks up a condition kind.
func (r *TypeRegistry) Condition(name string) (Condition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conditions[name]
	return c, ok
}

// Action looks up an action kind.
func (r *TypeRegistry) Action(name string) (Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[name]
	return a, ok
}

// Kinds lists registered names per class, sorted.
func (r *TypeRegistry) Kinds() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return map[string][]string{
		"triggers":   sortedKeys(r.triggers),
		"conditions": sortedKeys(r.conditions),
		"actions":    sortedKeys(r.actions),
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
