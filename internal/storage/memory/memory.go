// Package memory is an in-process storage backend. An Origin holds the data;
// each Storage opened from it behaves like a separate tab of that origin.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/dtroode/moviecat/internal/model"
)

// eventBuffer bounds undelivered events per watcher. Events are change
// signals, so dropping them once a slow watcher fills up is harmless.
const eventBuffer = 64

var errClosed = errors.New("memory storage is closed")

// Origin is a key/value space shared by every Storage opened from it.
type Origin struct {
	mu      sync.RWMutex
	data    map[string]string
	handles map[*Storage]struct{}
}

// NewOrigin creates an empty origin.
func NewOrigin() *Origin {
	return &Origin{
		data:    make(map[string]string),
		handles: make(map[*Storage]struct{}),
	}
}

// Open returns a new handle onto the origin with its own origin id.
func (o *Origin) Open() *Storage {
	s := &Storage{
		origin:   o,
		id:       uuid.NewString(),
		watchers: make(map[chan model.StorageEvent]struct{}),
	}

	o.mu.Lock()
	o.handles[s] = struct{}{}
	o.mu.Unlock()

	return s
}

// Raw returns the stored value regardless of handle. Useful for tests.
func (o *Origin) Raw(key string) (string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	v, ok := o.data[key]
	return v, ok
}

func (o *Origin) write(from *Storage, key string, value *string) {
	o.mu.Lock()
	if value == nil {
		if _, ok := o.data[key]; !ok {
			o.mu.Unlock()
			return
		}
		delete(o.data, key)
	} else {
		o.data[key] = *value
	}

	others := make([]*Storage, 0, len(o.handles))
	for h := range o.handles {
		if h != from {
			others = append(others, h)
		}
	}
	o.mu.Unlock()

	event := model.StorageEvent{Key: key, Origin: from.id}
	for _, h := range others {
		h.deliver(event)
	}
}

var _ model.Storage = (*Storage)(nil)

// Storage is one handle onto an Origin.
type Storage struct {
	origin *Origin
	id     string

	mu       sync.Mutex
	watchers map[chan model.StorageEvent]struct{}
	closed   bool
}

// New creates a Storage on a fresh private origin.
func New() *Storage {
	return NewOrigin().Open()
}

// Get returns the value for key.
func (s *Storage) Get(_ context.Context, key string) (string, bool, error) {
	if s.isClosed() {
		return "", false, errClosed
	}
	v, ok := s.origin.Raw(key)
	return v, ok, nil
}

// Set overwrites key and notifies the other handles of the origin.
func (s *Storage) Set(_ context.Context, key, value string) error {
	if s.isClosed() {
		return errClosed
	}
	s.origin.write(s, key, &value)
	return nil
}

// Remove deletes key and notifies the other handles when it existed.
func (s *Storage) Remove(_ context.Context, key string) error {
	if s.isClosed() {
		return errClosed
	}
	s.origin.write(s, key, nil)
	return nil
}

// Watch streams writes made through other handles of the origin.
func (s *Storage) Watch(ctx context.Context) (<-chan model.StorageEvent, error) {
	ch := make(chan model.StorageEvent, eventBuffer)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errClosed
	}
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if _, ok := s.watchers[ch]; ok {
			delete(s.watchers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}()

	return ch, nil
}

// Origin returns the handle id.
func (s *Storage) Origin() string {
	return s.id
}

// Close detaches the handle from its origin and closes every watch channel.
func (s *Storage) Close() error {
	s.origin.mu.Lock()
	delete(s.origin.handles, s)
	s.origin.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for ch := range s.watchers {
		delete(s.watchers, ch)
		close(ch)
	}
	return nil
}

func (s *Storage) deliver(event model.StorageEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.watchers {
		select {
		case ch <- event:
		default:
		}
	}
}

func (s *Storage) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
