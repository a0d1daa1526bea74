// Package notify fans out change signals to independent subscribers. It joins
// two sources: synthetic in-process events dispatched after a local write, and
// native storage events that a backend reports for writes made elsewhere.
package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/dtroode/moviecat/internal/logger"
	"github.com/dtroode/moviecat/internal/model"
)

// Watcher is a source of native storage events.
type Watcher interface {
	Watch(ctx context.Context) (<-chan model.StorageEvent, error)
}

type storageListener struct {
	key      string
	callback func()
}

// Hub is the in-process event bus of one storage instance.
type Hub struct {
	logger *logger.Logger

	mu       sync.Mutex
	nextID   uint64
	events   map[string]map[uint64]func()
	storages map[uint64]storageListener
}

// NewHub creates an empty Hub.
func NewHub(logger *logger.Logger) *Hub {
	return &Hub{
		logger:   logger,
		events:   make(map[string]map[uint64]func()),
		storages: make(map[uint64]storageListener),
	}
}

// Run forwards native storage events from source to storage listeners until
// ctx is done or the source closes its stream.
func (h *Hub) Run(ctx context.Context, source Watcher) error {
	events, err := source.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch storage: %w", err)
	}

	h.logger.Debug("Notify hub: listening for storage events")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				h.logger.Debug("Notify hub: storage event stream closed")
				return nil
			}
			h.logger.Debug("Notify hub: storage event",
				"key", ev.Key,
				"origin", ev.Origin)
			h.DispatchStorage(ev)
		}
	}
}

// Dispatch synchronously calls every listener registered for event.
func (h *Hub) Dispatch(event string) {
	h.mu.Lock()
	callbacks := make([]func(), 0, len(h.events[event]))
	for _, cb := range h.events[event] {
		callbacks = append(callbacks, cb)
	}
	h.mu.Unlock()

	for _, cb := range callbacks {
		cb()
	}
}

// DispatchStorage calls every storage listener whose key matches ev.Key.
func (h *Hub) DispatchStorage(ev model.StorageEvent) {
	h.mu.Lock()
	callbacks := make([]func(), 0, len(h.storages))
	for _, l := range h.storages {
		if l.key == "" || l.key == ev.Key {
			callbacks = append(callbacks, l.callback)
		}
	}
	h.mu.Unlock()

	for _, cb := range callbacks {
		cb()
	}
}

// AddListener registers callback for the synthetic event.
func (h *Hub) AddListener(event string, callback func()) (remove func()) {
	h.mu.Lock()
	id := h.id()
	if h.events[event] == nil {
		h.events[event] = make(map[uint64]func())
	}
	h.events[event][id] = callback
	h.mu.Unlock()

	return once(func() {
		h.mu.Lock()
		delete(h.events[event], id)
		if len(h.events[event]) == 0 {
			delete(h.events, event)
		}
		h.mu.Unlock()
	})
}

// AddStorageListener registers callback for native storage events on key.
// An empty key matches every key.
func (h *Hub) AddStorageListener(key string, callback func()) (remove func()) {
	h.mu.Lock()
	id := h.id()
	h.storages[id] = storageListener{key: key, callback: callback}
	h.mu.Unlock()

	return once(func() {
		h.mu.Lock()
		delete(h.storages, id)
		h.mu.Unlock()
	})
}

// Subscribe registers callback for both the synthetic event and native
// storage events on key. The returned function removes both registrations.
func (h *Hub) Subscribe(event, key string, callback func()) (unsubscribe func()) {
	removeEvent := h.AddListener(event, callback)
	removeStorage := h.AddStorageListener(key, callback)

	return func() {
		removeEvent()
		removeStorage()
	}
}

// ListenerCount reports how many listeners are registered. Useful for tests.
func (h *Hub) ListenerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.storages)
	for _, l := range h.events {
		n += len(l)
	}
	return n
}

func (h *Hub) id() uint64 {
	h.nextID++
	return h.nextID
}

func once(fn func()) func() {
	var o sync.Once
	return func() { o.Do(fn) }
}
