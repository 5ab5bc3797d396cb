// Package automation provides the trigger-binding and run-coordination engine.
//
// An automation binds one trigger (schedule, webhook, file_change, email,
// calendar, system, mqtt) to an ordered list of conditions and actions.
// The engine keeps at most one live trigger binding per automation and at
// most one concurrent run per automation.
//
// Architecture:
//
//	┌──────────────────────────────────────────────────────────┐
//	│                   Engine (engine.go)                      │
//	│  ┌────────────────────┐      ┌──────────────────────┐    │
//	│  │ AutomationRegistry │─────▶│ Store (repository.go)│    │
//	│  │   (registry.go)    │      └──────────────────────┘    │
//	│  └────────────────────┘                                  │
//	│        │ bind / unbind (binder.go)                       │
//	│        ▼                                                 │
//	│  Trigger.Bind ──fire(ec)──▶ Engine.Run                   │
//	│                               1. enabled guard           │
//	│                               2. running guard           │
//	│                               3. conditions (AND)        │
//	│                               4. actions (in order)      │
//	│                               5. start/complete/error    │
//	└──────────────────────────────────────────────────────────┘
//
// # Key Types
//
//   - Automation: definition record (trigger, conditions, actions)
//   - Spec: tagged record with typed accessors
//   - TypeRegistry: kind name → Trigger, Condition or Action handler
//   - ExecutionContext: uniform payload handed from a trigger to a run
//   - Result: outcome of Engine.Run
//   - Emitter: start/complete/error event fan-out
//
// Built-in kinds live in the trigger, condition and action subpackages and
// are registered by the caller, so several engines can coexist in one process.
//
// # Usage
//
//	store := automation.NewSQLiteStore(db.DB)
//	engine := automation.NewEngine(store, automation.WithLogger(log), automation.WithRunRecorder(store))
//	trigger.Register(engine.Types(), trigger.Options{...})
//	condition.Register(engine.Types())
//	action.Register(engine.Types(), action.Options{...})
//
//	if err := engine.Load(ctx); err != nil {
//	    return err
//	}
//	defer engine.Close()
package automation
