package automation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Store persists automation definitions. The engine loads everything on
// Load and writes whole records back on every lifecycle change.
type Store interface {
	List(ctx context.Context) ([]Automation, error)
	Save(ctx context.Context, a *Automation) error
	Delete(ctx context.Context, id string) error
}

// RunRecorder receives one record per run that passed the guards.
type RunRecorder interface {
	RecordRun(ctx context.Context, rec RunRecord) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRunRecorder adds a run recorder. May be given more than once.
func WithRunRecorder(r RunRecorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorders = append(e.recorders, r)
		}
	}
}

// WithTypes uses an existing type registry instead of a fresh one.
func WithTypes(types *TypeRegistry) Option {
	return func(e *Engine) {
		if types != nil {
			e.types = types
		}
	}
}

// Engine binds triggers for enabled automations and coordinates runs.
//
// Lifecycle calls (Load, Save, Enable, Disable, Delete, Close) are
// serialised so a binding is never created twice without an unbind in
// between. Run is safe for concurrent use; concurrent runs of the same
// automation are dropped with reason "running".
type Engine struct {
	store     Store
	recorders []RunRecorder
	types     *TypeRegistry
	events    *Emitter
	registry  *AutomationRegistry
	logger    Logger

	lifecycleMu sync.Mutex
	closed      bool

	runMu   sync.Mutex
	running map[string]struct{}

	baseCtx context.Context
	cancel  context.CancelFunc
}

// NewEngine creates an engine backed by store. A nil store keeps
// definitions in memory only.
func NewEngine(store Store, opts ...Option) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		store:    store,
		types:    NewTypeRegistry(),
		registry: NewAutomationRegistry(),
		logger:   noopLogger{},
		running:  make(map[string]struct{}),
		baseCtx:  ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		e.store = NewMemoryStore()
	}
	e.events = NewEmitter(e.logger)
	return e
}

// Types returns the kind registry.
func (e *Engine) Types() *TypeRegistry { return e.types }

// Events returns the event emitter.
func (e *Engine) Events() *Emitter { return e.events }

// Logger returns the engine logger.
func (e *Engine) Logger() Logger { return e.logger }

// Registry returns the automation registry.
func (e *Engine) Registry() *AutomationRegistry { return e.registry }

// Subscribe registers fn for start/complete/error events.
func (e *Engine) Subscribe(fn func(Event)) (unsubscribe func()) {
	return e.events.Subscribe(fn)
}

// Get returns a copy of the automation with id.
func (e *Engine) Get(id string) (*Automation, error) {
	return e.registry.Get(id)
}

// List returns copies of all automations.
func (e *Engine) List() []Automation {
	return e.registry.List()
}

// IsBound reports whether id holds a live trigger binding.
func (e *Engine) IsBound(id string) bool {
	return e.registry.IsBound(id)
}

// IsRunning reports whether a run of id is in flight.
func (e *Engine) IsRunning(id string) bool {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	_, ok := e.running[id]
	return ok
}

// Load reads every definition from the store and binds the enabled ones.
// A definition whose trigger cannot be bound is kept but marked disabled
// in memory; the error is logged, not returned.
func (e *Engine) Load(ctx context.Context) error {
	e.lifecycleMu.Lock()
	defer e.lifecycleMu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}

	automations, err := e.store.List(ctx)
	if err != nil {
		return fmt.Errorf("loading automations: %w", err)
	}

	bound := 0
	for i := range automations {
		a := &automations[i]
		e.unbind(a.ID)
		e.registry.put(a)
		if !a.Enabled {
			continue
		}
		if err := e.bind(a); err != nil {
			e.logger.Error("automation trigger bind failed, leaving disabled",
				"automation_id", a.ID,
				"trigger", a.Trigger.Type(),
				"error", err,
			)
			e.registry.setEnabled(a.ID, false)
			continue
		}
		bound++
	}

	e.logger.Info("automations loaded", "count", len(automations), "bound", bound)
	return nil
}

// Save validates, binds (when enabled) and persists a. An empty ID is
// replaced with a new UUID. If the trigger cannot be bound the automation
// is persisted disabled and the bind error is returned.
func (e *Engine) Save(ctx context.Context, a *Automation) error {
	if a == nil {
		return ErrInvalidAutomation
	}

	e.lifecycleMu.Lock()
	defer e.lifecycleMu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}

	if a.ID == "" {
		a.ID = GenerateID()
	}
	if err := ValidateAutomation(a); err != nil {
		return err
	}

	now := time.Now().UTC()
	if prev, err := e.registry.Get(a.ID); err == nil {
		a.CreatedAt = prev.CreatedAt
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	e.unbind(a.ID)

	var bindErr error
	if a.Enabled {
		if bindErr = e.bind(a); bindErr != nil {
			a.Enabled = false
		}
	}

	if err := e.store.Save(ctx, a); err != nil {
		e.unbind(a.ID)
		return fmt.Errorf("saving automation %s: %w", a.ID, err)
	}
	e.registry.put(a)

	if bindErr != nil {
		return fmt.Errorf("enabling automation %s: %w", a.ID, bindErr)
	}

	e.logger.Info("automation saved", "automation_id", a.ID, "name", a.Name, "enabled", a.Enabled)
	return nil
}

// Enable binds the trigger and persists enabled=true. Enabling an already
// bound automation is a no-op.
func (e *Engine) Enable(ctx context.Context, id string) error {
	e.lifecycleMu.Lock()
	defer e.lifecycleMu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}

	a, err := e.registry.Get(id)
	if err != nil {
		return err
	}
	if a.Enabled && e.registry.IsBound(id) {
		return nil
	}

	a.Enabled = true
	if err := e.bind(a); err != nil {
		return fmt.Errorf("enabling automation %s: %w", id, err)
	}

	a.UpdatedAt = time.Now().UTC()
	if err := e.store.Save(ctx, a); err != nil {
		e.unbind(id)
		return fmt.Errorf("saving automation %s: %w", id, err)
	}
	e.registry.put(a)

	e.logger.Info("automation enabled", "automation_id", id, "trigger", a.Trigger.Type())
	return nil
}

// Disable releases the trigger binding and persists enabled=false.
// In-flight runs are not interrupted.
func (e *Engine) Disable(ctx context.Context, id string) error {
	e.lifecycleMu.Lock()
	defer e.lifecycleMu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}

	a, err := e.registry.Get(id)
	if err != nil {
		return err
	}

	e.unbind(id)

	a.Enabled = false
	a.UpdatedAt = time.Now().UTC()
	e.registry.put(a)
	if err := e.store.Save(ctx, a); err != nil {
		return fmt.Errorf("saving automation %s: %w", id, err)
	}

	e.logger.Info("automation disabled", "automation_id", id)
	return nil
}

// Delete releases the binding and removes the definition.
func (e *Engine) Delete(ctx context.Context, id string) error {
	e.lifecycleMu.Lock()
	defer e.lifecycleMu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}

	if !e.registry.Contains(id) {
		return ErrAutomationNotFound
	}

	e.unbind(id)

	if err := e.store.Delete(ctx, id); err != nil && !errors.Is(err, ErrAutomationNotFound) {
		return fmt.Errorf("deleting automation %s: %w", id, err)
	}
	e.registry.remove(id)

	e.logger.Info("automation deleted", "automation_id", id)
	return nil
}

// Close releases every binding. Runs already in flight finish on their own.
func (e *Engine) Close() error {
	e.lifecycleMu.Lock()
	defer e.lifecycleMu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	for _, id := range e.registry.boundIDs() {
		e.unbind(id)
	}
	e.cancel()

	e.logger.Info("automation engine closed")
	return nil
}

// Run fires automation id with ec.
//
// It returns ErrAutomationNotFound for an unknown id, a skipped Result
// for a disabled automation, an automation that is already running, or
// unmet conditions, and the wrapped handler error when a condition or
// action fails. Actions already executed are not rolled back.
func (e *Engine) Run(ctx context.Context, id string, ec ExecutionContext) (*Result, error) {
	a, err := e.registry.Get(id)
	if err != nil {
		return nil, err
	}
	if !a.Enabled {
		return skipped(ReasonDisabled), nil
	}
	if !e.acquire(id) {
		e.logger.Debug("automation already running, fire dropped", "automation_id", id, "trigger", ec.Trigger)
		return skipped(ReasonRunning), nil
	}
	defer e.release(id)

	if ec.Timestamp.IsZero() {
		ec.Timestamp = time.Now().UTC()
	}
	if ec.Data == nil {
		ec.Data = map[string]any{}
	}

	rec := RunRecord{
		ID:           GenerateID(),
		AutomationID: id,
		Trigger:      ec.Trigger,
		StartedAt:    time.Now().UTC(),
	}

	startCtx := ec
	e.events.Emit(Event{Type: EventStart, AutomationID: id, Context: &startCtx})
	e.logger.Debug("automation run started", "automation_id", id, "run_id", rec.ID, "trigger", ec.Trigger)

	ok, err := e.evaluateConditions(ctx, a.Conditions, ec)
	if err != nil {
		return nil, e.fail(ctx, &rec, err)
	}
	if !ok {
		res := skipped(ReasonConditionsNotMet)
		res.RunID = rec.ID
		rec.Status = RunSkipped
		rec.Reason = ReasonConditionsNotMet
		e.finish(ctx, &rec)
		return res, nil
	}

	results, err := e.executeActions(ctx, a.Actions, ec)
	rec.ActionCount = len(results)
	if err != nil {
		return nil, e.fail(ctx, &rec, err)
	}

	rec.Status = RunCompleted
	e.finish(ctx, &rec)

	res := &Result{
		RunID:      rec.ID,
		Success:    true,
		Duration:   rec.CompletedAt.Sub(rec.StartedAt),
		DurationMS: rec.DurationMS,
		Results:    results,
	}
	e.events.Emit(Event{Type: EventComplete, AutomationID: id, Result: res})
	e.logger.Info("automation run completed",
		"automation_id", id,
		"run_id", rec.ID,
		"trigger", ec.Trigger,
		"actions", len(results),
		"duration_ms", rec.DurationMS,
	)
	return res, nil
}

// fail records and announces a failed run and returns err for the caller.
func (e *Engine) fail(ctx context.Context, rec *RunRecord, err error) error {
	rec.Status = RunFailed
	rec.Error = err.Error()
	e.finish(ctx, rec)

	e.events.Emit(Event{Type: EventError, AutomationID: rec.AutomationID, Error: err.Error()})
	e.logger.Error("automation run failed",
		"automation_id", rec.AutomationID,
		"run_id", rec.ID,
		"trigger", rec.Trigger,
		"error", err,
	)
	return err
}

func (e *Engine) finish(ctx context.Context, rec *RunRecord) {
	rec.CompletedAt = time.Now().UTC()
	rec.DurationMS = rec.CompletedAt.Sub(rec.StartedAt).Milliseconds()

	for _, r := range e.recorders {
		if err := r.RecordRun(context.WithoutCancel(ctx), *rec); err != nil {
			e.logger.Warn("recording run failed", "automation_id", rec.AutomationID, "run_id", rec.ID, "error", err)
		}
	}
}

// acquire inserts id into the running set unless it is already there.
func (e *Engine) acquire(id string) bool {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if _, busy := e.running[id]; busy {
		return false
	}
	e.running[id] = struct{}{}
	return true
}

func (e *Engine) release(id string) {
	e.runMu.Lock()
	delete(e.running, id)
	e.runMu.Unlock()
}

// handle is the restricted view of the engine given to actions.
type handle struct{ e *Engine }

func (h handle) Types() *TypeRegistry { return h.e.types }
func (h handle) Events() *Emitter     { return h.e.events }
func (h handle) Logger() Logger       { return h.e.logger }
