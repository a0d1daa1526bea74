package model

import "context"

// Storage is an origin-scoped string key/value store shared by every
// instance that opens the same backend.
type Storage interface {
	// Get returns the value for key and whether it is present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set overwrites the value for key.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
	// Watch streams changes made by other instances. Writes made through
	// this instance are never reported. The channel is closed when ctx is done.
	Watch(ctx context.Context) (<-chan StorageEvent, error)
	// Origin identifies this instance in change events.
	Origin() string
	Close() error
}

// StorageEvent reports that key was written or removed by another instance.
type StorageEvent struct {
	Key    string `json:"key"`
	Origin string `json:"origin"`
}
