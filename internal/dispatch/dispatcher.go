// Package dispatch runs event handlers so that at most one handler per ID is active at any time, while
// handlers for different IDs run concurrently.
package dispatch

import (
	"context"
	"sync"
)

type submission[TID comparable, TEvent any] struct {
	ID    TID
	Event TEvent
}

// Handler processes one event. It is never called concurrently for the same ID.
type Handler[TID comparable, TEvent any] func(ctx context.Context, id TID, event TEvent)

// PanicHandler is called with the recovered value when a Handler panics. The ID is released afterwards.
type PanicHandler[TID comparable] func(ctx context.Context, id TID, recovered any)

// Dispatcher queues events per ID and hands them to the Handler one at a time, in submission order.
//
// Events of a busy ID wait in an unbounded queue owned by the dispatcher goroutine, so Submit only blocks
// until the dispatcher picks the event up.
type Dispatcher[TID comparable, TEvent any] struct {
	handle        Handler[TID, TEvent]
	onPanic       PanicHandler[TID]
	stopChannel   chan struct{}
	submitChannel chan submission[TID, TEvent]
	doneChannel   chan TID
	handlers      sync.WaitGroup
	stopOnce      sync.Once
}

// New creates a Dispatcher. Use Start to run it and Stop to end it. onPanic may be nil.
func New[TID comparable, TEvent any](handle Handler[TID, TEvent], onPanic PanicHandler[TID]) *Dispatcher[TID, TEvent] {
	return &Dispatcher[TID, TEvent]{
		handle:        handle,
		onPanic:       onPanic,
		stopChannel:   make(chan struct{}),
		submitChannel: make(chan submission[TID, TEvent]),
		doneChannel:   make(chan TID),
	}
}

// Start dispatches events until Stop is called. It blocks, so it should be called in a goroutine. ctx is
// passed to every handler.
func (d *Dispatcher[TID, TEvent]) Start(ctx context.Context) {
	pending := map[TID][]TEvent{}
	busy := map[TID]bool{}
	for {
		select {
		case <-d.stopChannel:
			return

		case s := <-d.submitChannel:
			if busy[s.ID] {
				pending[s.ID] = append(pending[s.ID], s.Event)
				break
			}
			busy[s.ID] = true
			d.run(ctx, s.ID, s.Event)

		case id := <-d.doneChannel:
			queue := pending[id]
			if len(queue) == 0 {
				delete(busy, id)
				delete(pending, id)
				break
			}
			next := queue[0]
			if len(queue) == 1 {
				delete(pending, id)
			} else {
				pending[id] = queue[1:]
			}
			d.run(ctx, id, next)
		}
	}
}

func (d *Dispatcher[TID, TEvent]) run(ctx context.Context, id TID, event TEvent) {
	d.handlers.Add(1)
	go func() {
		defer d.handlers.Done()
		defer func() {
			if p := recover(); p != nil && d.onPanic != nil {
				d.onPanic(ctx, id, p)
			}
			select {
			case d.doneChannel <- id:
			case <-d.stopChannel:
			}
		}()
		d.handle(ctx, id, event)
	}()
}

// Submit queues the event for the ID. It returns false when the dispatcher is stopped.
func (d *Dispatcher[TID, TEvent]) Submit(id TID, event TEvent) bool {
	select {
	case <-d.stopChannel:
		return false
	default:
	}
	select {
	case d.submitChannel <- submission[TID, TEvent]{ID: id, Event: event}:
		return true
	case <-d.stopChannel:
		return false
	}
}

// Stop the dispatcher goroutine. Queued events that have not started are dropped. It is safe to call Stop
// more than once.
func (d *Dispatcher[TID, TEvent]) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopChannel)
	})
}

// Wait blocks until every running handler has returned.
func (d *Dispatcher[TID, TEvent]) Wait() {
	d.handlers.Wait()
}
