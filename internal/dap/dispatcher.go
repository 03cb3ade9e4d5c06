package dap

import "sync"

// dispatcher is a small typed pub/sub used by SessionManager to notify
// subscribers of state changes, stops, output, and errors, in place of the
// single-callback wiring the teacher used for one client at a time. Each
// event kind gets its own buffered channel per subscriber; a full
// subscriber channel drops the event rather than blocking the session's
// event-processing goroutine.
type dispatcher struct {
	mu sync.Mutex

	stateSubs  []chan StateChangeEvent
	stopSubs   []chan StopEvent
	outputSubs []chan OutputEvent
	errorSubs  []chan ErrorEvent
}

func newDispatcher() *dispatcher {
	return &dispatcher{}
}

// SubscribeState registers a new subscriber for session state transitions.
func (d *dispatcher) SubscribeState() <-chan StateChangeEvent {
	ch := make(chan StateChangeEvent, 32)
	d.mu.Lock()
	d.stateSubs = append(d.stateSubs, ch)
	d.mu.Unlock()
	return ch
}

// SubscribeStop registers a new subscriber for surfaced stopped events.
func (d *dispatcher) SubscribeStop() <-chan StopEvent {
	ch := make(chan StopEvent, 32)
	d.mu.Lock()
	d.stopSubs = append(d.stopSubs, ch)
	d.mu.Unlock()
	return ch
}

// SubscribeOutput registers a new subscriber for adapter output events.
func (d *dispatcher) SubscribeOutput() <-chan OutputEvent {
	ch := make(chan OutputEvent, 64)
	d.mu.Lock()
	d.outputSubs = append(d.outputSubs, ch)
	d.mu.Unlock()
	return ch
}

// SubscribeError registers a new subscriber for session errors.
func (d *dispatcher) SubscribeError() <-chan ErrorEvent {
	ch := make(chan ErrorEvent, 32)
	d.mu.Lock()
	d.errorSubs = append(d.errorSubs, ch)
	d.mu.Unlock()
	return ch
}

func (d *dispatcher) emitState(evt StateChangeEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, ch := range d.stateSubs {
		select {
		case ch <- evt:
		default:
		}
	}
}

func (d *dispatcher) emitStop(evt StopEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, ch := range d.stopSubs {
		select {
		case ch <- evt:
		default:
		}
	}
}

func (d *dispatcher) emitOutput(evt OutputEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, ch := range d.outputSubs {
		select {
		case ch <- evt:
		default:
		}
	}
}

func (d *dispatcher) emitError(evt ErrorEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, ch := range d.errorSubs {
		select {
		case ch <- evt:
		default:
		}
	}
}
