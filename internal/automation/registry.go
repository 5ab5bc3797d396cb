package automation

import (
	"sort"
	"sync"
)

// Logger defines the logging interface used by the engine and its kinds.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// AutomationRegistry is the in-memory set of definitions plus the live
// binding of each enabled automation. Lookups return deep copies.
//
// All public methods are thread-safe.
type AutomationRegistry struct {
	mu          sync.RWMutex
	automations map[string]*Automation
	bindings    map[string]Binding
}

// NewAutomationRegistry creates an empty registry.
func NewAutomationRegistry() *AutomationRegistry {
	return &AutomationRegistry{
		automations: make(map[string]*Automation),
		bindings:    make(map[string]Binding),
	}
}

// Get returns a copy of the automation with id.
func (r *AutomationRegistry) Get(id string) (*Automation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.automations[id]
	if !ok {
		return nil, ErrAutomationNotFound
	}
	return a.DeepCopy(), nil
}

// Contains reports whether id is known.
func (r *AutomationRegistry) Contains(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.automations[id]
	return ok
}

// List returns copies of every automation sorted by name then id.
func (r *AutomationRegistry) List() []Automation {
	r.mu.RLock()
	out := make([]Automation, 0, len(r.automations))
	for _, a := range r.automations {
		out = append(out, *a.DeepCopy())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Count returns the number of known automations.
func (r *AutomationRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.automations)
}

// IsBound reports whether id currently holds a binding.
func (r *AutomationRegistry) IsBound(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.bindings[id]
	return ok
}

// BoundCount returns the number of live bindings.
func (r *AutomationRegistry) BoundCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bindings)
}

func (r *AutomationRegistry) put(a *Automation) {
	r.mu.Lock()
	r.automations[a.ID] = a.DeepCopy()
	r.mu.Unlock()
}

func (r *AutomationRegistry) remove(id string) {
	r.mu.Lock()
	delete(r.automations, id)
	r.mu.Unlock()
}

func (r *AutomationRegistry) setEnabled(id string, enabled bool) {
	r.mu.Lock()
	if a, ok := r.automations[id]; ok {
		a.Enabled = enabled
	}
	r.mu.Unlock()
}

func (r *AutomationRegistry) setBinding(id string, b Binding) {
	r.mu.Lock()
	r.bindings[id] = b
	r.mu.Unlock()
}

// takeBinding removes and returns the binding for id, or nil.
func (r *AutomationRegistry) takeBinding(id string) Binding {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bindings[id]
	if !ok {
		return nil
	}
	delete(r.bindings, id)
	return b
}

func (r *AutomationRegistry) boundIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.bindings)
}
