package events

import (
	"smc/monitoring"
)

// EventRouter fans transaction lifecycle events out to the event bus and
// keeps the node metrics in sync.
type EventRouter struct {
	eventBus *EventBus
}

// NewEventRouter creates a new EventRouter instance
func NewEventRouter(eventBus *EventBus) *EventRouter {
	return &EventRouter{
		eventBus: eventBus,
	}
}

// PublishTransactionEvent publishes a transaction lifecycle event
func (er *EventRouter) PublishTransactionEvent(event LedgerEvent) {
	if er == nil || er.eventBus == nil {
		return
	}

	if event.Type() == EventTransactionApplied {
		monitoring.IncreaseAppliedTxCount()
	}

	er.eventBus.Publish(event)
}
