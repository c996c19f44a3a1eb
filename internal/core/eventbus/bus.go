package eventbus

import (
	"context"
	"sync"
)

type envelope struct {
	event   Event
	payload any
}

// EventBus delivers published events to subscribers on a single dispatch
// goroutine. Publishing never blocks: when the buffer is full the event is
// dropped and OnDrop hooks fire.
type EventBus struct {
	ch chan envelope

	mu   sync.RWMutex
	subs map[Event][]func(any)

	hooks hooks
}

// New creates a bus with the given buffer size. Call Start to begin
// dispatching.
func New(buffer int) *EventBus {
	if buffer < 1 {
		buffer = 1
	}
	return &EventBus{
		ch:   make(chan envelope, buffer),
		subs: make(map[Event][]func(any)),
	}
}

// Start dispatches events until ctx is cancelled, then delivers whatever is
// still buffered before returning.
func (bus *EventBus) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			bus.drain()
			return
		case env := <-bus.ch:
			bus.dispatch(env)
		}
	}
}

func (bus *EventBus) drain() {
	for {
		select {
		case env := <-bus.ch:
			bus.dispatch(env)
		default:
			return
		}
	}
}

func (bus *EventBus) dispatch(env envelope) {
	bus.mu.RLock()
	handlers := make([]func(any), len(bus.subs[env.event]))
	copy(handlers, bus.subs[env.event])
	bus.mu.RUnlock()

	for _, fn := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					bus.runOnPanic(env.event, env.payload, r)
				}
			}()
			fn(env.payload)
		}()
	}
}

func (bus *EventBus) subscribe(event Event, fn func(any)) {
	bus.mu.Lock()
	bus.subs[event] = append(bus.subs[event], fn)
	bus.mu.Unlock()

	bus.runOnSubscribe(event)
}

func subscribeTyped[T any](bus *EventBus, event Event, fn func(T)) {
	bus.subscribe(event, func(payload any) {
		if p, ok := payload.(T); ok {
			fn(p)
		}
	})
}

func (bus *EventBus) PublishItemCreated(p ItemCreatedPayload) {
	bus.send(EventItemCreated, p)
}

func (bus *EventBus) SubscribeItemCreated(fn func(ItemCreatedPayload)) {
	subscribeTyped(bus, EventItemCreated, fn)
}

func (bus *EventBus) PublishItemStarted(p ItemStartedPayload) {
	bus.send(EventItemStarted, p)
}

func (bus *EventBus) SubscribeItemStarted(fn func(ItemStartedPayload)) {
	subscribeTyped(bus, EventItemStarted, fn)
}

func (bus *EventBus) PublishItemStopped(p ItemStoppedPayload) {
	bus.send(EventItemStopped, p)
}

func (bus *EventBus) SubscribeItemStopped(fn func(ItemStoppedPayload)) {
	subscribeTyped(bus, EventItemStopped, fn)
}

func (bus *EventBus) PublishItemCompleted(p ItemCompletedPayload) {
	bus.send(EventItemCompleted, p)
}

func (bus *EventBus) SubscribeItemCompleted(fn func(ItemCompletedPayload)) {
	subscribeTyped(bus, EventItemCompleted, fn)
}

func (bus *EventBus) PublishItemReopened(p ItemReopenedPayload) {
	bus.send(EventItemReopened, p)
}

func (bus *EventBus) SubscribeItemReopened(fn func(ItemReopenedPayload)) {
	subscribeTyped(bus, EventItemReopened, fn)
}

func (bus *EventBus) PublishItemDeleted(p ItemDeletedPayload) {
	bus.send(EventItemDeleted, p)
}

func (bus *EventBus) SubscribeItemDeleted(fn func(ItemDeletedPayload)) {
	subscribeTyped(bus, EventItemDeleted, fn)
}

// SubscribeAll registers fn for every event type with the untyped payload.
func (bus *EventBus) SubscribeAll(fn func(Event, any)) {
	for _, event := range AllEvents {
		bus.subscribe(event, func(payload any) { fn(event, payload) })
	}
}
