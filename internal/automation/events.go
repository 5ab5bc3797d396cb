package automation

import (
	"sync"
	"time"
)

// EventType names a run lifecycle event.
type EventType string

const (
	EventStart    EventType = "start"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// Event is delivered to every subscriber. Payload shapes:
//
//	start    {automationId, context}
//	complete {automationId, result}
//	error    {automationId, error}
type Event struct {
	Type         EventType         `json:"type"`
	AutomationID string            `json:"automationId"`
	Context      *ExecutionContext `json:"context,omitempty"`
	Result       *Result           `json:"result,omitempty"`
	Error        string            `json:"error,omitempty"`
	Time         time.Time         `json:"timestamp"`
}

// Payload returns the event body in its wire shape.
func (e Event) Payload() map[string]any {
	p := map[string]any{"automationId": e.AutomationID}
	switch e.Type {
	case EventStart:
		p["context"] = e.Context
	case EventComplete:
		p["result"] = e.Result
	case EventError:
		p["error"] = e.Error
	}
	return p
}

// Emitter fans events out to subscribers. Delivery is synchronous and
// fire-and-forget: a panicking subscriber is logged and skipped.
type Emitter struct {
	mu     sync.RWMutex
	subs   map[uint64]func(Event)
	nextID uint64
	logger Logger
}

// NewEmitter creates an emitter with no subscribers.
func NewEmitter(logger Logger) *Emitter {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Emitter{
		subs:   make(map[uint64]func(Event)),
		logger: logger,
	}
}

// Subscribe registers fn and returns a function that removes it.
func (em *Emitter) Subscribe(fn func(Event)) (unsubscribe func()) {
	em.mu.Lock()
	id := em.nextID
	em.nextID++
	em.subs[id] = fn
	em.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			em.mu.Lock()
			delete(em.subs, id)
			em.mu.Unlock()
		})
	}
}

// Emit delivers ev to every current subscriber.
func (em *Emitter) Emit(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}

	em.mu.RLock()
	subs := make([]func(Event), 0, len(em.subs))
	for _, fn := range em.subs {
		subs = append(subs, fn)
	}
	em.mu.RUnlock()

	for _, fn := range subs {
		em.deliver(fn, ev)
	}
}

func (em *Emitter) deliver(fn func(Event), ev Event) {
	defer func() {
		if r := recover(); r != nil {
			em.logger.Error("event subscriber panic recovered",
				"event", ev.Type,
				"automation_id", ev.AutomationID,
				"panic", r,
			)
		}
	}()
	fn(ev)
}

// SubscriberCount returns the number of subscribers.
func (em *Emitter) SubscriberCount() int {
	em.mu.RLock()
	defer em.mu.RUnlock()
	return len(em.subs)
}
