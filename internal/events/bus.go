package events

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reeveops/reeve/internal/logger"
)

// Event is a single occurrence on the bus. Tags are slash-separated paths
// subscribers match by prefix.
type Event struct {
	ID        string    `json:"id"`
	Tag       string    `json:"tag"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Handler processes a published event. Handlers run synchronously on the
// publisher's goroutine and must not block.
type Handler func(Event)

type subscription struct {
	id      string
	prefix  string
	handler Handler
}

// Bus is an in-process publish/subscribe fan-out with a bounded replay
// buffer. It is safe for concurrent use.
type Bus struct {
	mu         sync.RWMutex
	subs       map[string]*subscription
	buffer     []Event
	bufferSize int
	logger     *logger.Logger
}

// NewBus creates a bus retaining up to bufferSize recent events for late
// subscribers. A non-positive size falls back to 1024.
func NewBus(log *logger.Logger, bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	return &Bus{
		subs:       make(map[string]*subscription),
		buffer:     make([]Event, 0, bufferSize),
		bufferSize: bufferSize,
		logger:     log.WithComponent("events"),
	}
}

// Subscribe registers a handler for every event whose tag starts with
// prefix. An empty prefix matches everything. The returned id cancels the
// subscription via Unsubscribe.
func (b *Bus) Subscribe(prefix string, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscription{id: uuid.NewString(), prefix: prefix, handler: handler}
	b.subs[sub.id] = sub
	return sub.id
}

// Unsubscribe removes a subscription. It reports whether the id was known.
func (b *Bus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[id]; !ok {
		return false
	}
	delete(b.subs, id)
	return true
}

// Publish emits an event to every matching subscriber and appends it to the
// replay buffer, evicting the oldest event when full.
func (b *Bus) Publish(tag string, data any) {
	event := Event{
		ID:        uuid.NewString(),
		Tag:       tag,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	b.mu.Lock()
	if len(b.buffer) >= b.bufferSize {
		b.buffer = b.buffer[1:]
	}
	b.buffer = append(b.buffer, event)
	subs := make([]*subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		if !strings.HasPrefix(tag, sub.prefix) {
			continue
		}
		b.invoke(sub.handler, event)
	}
}

// invoke shields the bus from handler panics so one broken subscriber
// cannot starve the rest.
func (b *Bus) invoke(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.WithFields(map[string]any{"tag": event.Tag, "panic": fmt.Sprint(r)}).Warn("event handler panicked")
		}
	}()
	handler(event)
}

// Buffered returns the retained events whose tags match prefix, oldest
// first.
func (b *Bus) Buffered(prefix string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []Event
	for _, event := range b.buffer {
		if strings.HasPrefix(event.Tag, prefix) {
			out = append(out, event)
		}
	}
	return out
}

// SubscriberCount returns the number of live subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
