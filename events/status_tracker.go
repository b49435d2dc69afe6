package events

import (
	"sync"
	"time"

	"smc/exception"
)

const defaultStatusCapacity = 4096

// TxStatus is the latest lifecycle state this node observed for a
// transaction hash.
type TxStatus struct {
	TxHash    string    `json:"tx_hash"`
	State     string    `json:"state"`
	Reason    string    `json:"reason,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusTracker consumes the event bus and remembers the most recent
// lifecycle state per transaction hash. Rejected transactions never reach
// the tx store, so this window is the only place a client can ask what
// happened to one. Oldest entries are evicted once capacity is reached.
type StatusTracker struct {
	mu       sync.RWMutex
	statuses map[string]*TxStatus
	order    []string
	capacity int

	bus   *EventBus
	subID SubscriberID
}

func NewStatusTracker(bus *EventBus, capacity int) *StatusTracker {
	if capacity <= 0 {
		capacity = defaultStatusCapacity
	}
	st := &StatusTracker{
		statuses: make(map[string]*TxStatus),
		order:    make([]string, 0, capacity),
		capacity: capacity,
		bus:      bus,
	}

	id, ch := bus.Subscribe()
	st.subID = id
	exception.SafeGo("StatusTracker", func() {
		for event := range ch {
			st.record(event)
		}
	})
	return st
}

// Get returns the tracked status for txHash, if the node saw one recently.
func (st *StatusTracker) Get(txHash string) (*TxStatus, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	status, ok := st.statuses[txHash]
	if !ok {
		return nil, false
	}
	cp := *status
	return &cp, true
}

// Stop unsubscribes from the bus, ending the consumer goroutine.
func (st *StatusTracker) Stop() {
	st.bus.Unsubscribe(st.subID)
}

func (st *StatusTracker) record(event LedgerEvent) {
	txHash := event.TxHash()
	if txHash == "" {
		return
	}

	status := &TxStatus{
		TxHash:    txHash,
		State:     stateForEvent(event.Type()),
		UpdatedAt: time.Now(),
	}
	if failed, ok := event.(*TransactionFailed); ok {
		status.Reason = failed.Reason()
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if _, known := st.statuses[txHash]; !known {
		if len(st.order) >= st.capacity {
			oldest := st.order[0]
			st.order = st.order[1:]
			delete(st.statuses, oldest)
		}
		st.order = append(st.order, txHash)
	}
	st.statuses[txHash] = status
}

func stateForEvent(eventType EventType) string {
	switch eventType {
	case EventTransactionCreated:
		return "created"
	case EventTransactionSigned:
		return "signed"
	case EventTransactionPublished:
		return "published"
	case EventTransactionApplied:
		return "applied"
	case EventTransactionFailed:
		return "rejected"
	default:
		return "unknown"
	}
}
