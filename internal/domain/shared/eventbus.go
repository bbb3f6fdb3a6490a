package shared

import "context"

// EventHandler reacts to invoicing events, for example the business metrics
// recorder counting payments and settlements.
type EventHandler interface {
	// Handle processes one event. A handler error is logged by the bus and
	// never undoes the committed change that raised the event.
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the event types the handler wants.
	// An empty slice subscribes it to everything.
	EventTypes() []string
}

// EventPublisher is what the billing, catalog and partner services depend on.
// They call Publish after commit, so a rolled back payment or item edit
// never produces an event.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber registers handlers at startup
type EventSubscriber interface {
	// Subscribe registers handler for eventTypes, falling back to
	// handler.EventTypes() when none are given
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
}

// EventBus is the process-wide dispatcher wired in cmd/server
type EventBus interface {
	EventPublisher
	EventSubscriber
	Start(ctx context.Context) error
	// Stop stops accepting events and waits for in-flight handlers
	Stop(ctx context.Context) error
}
