// Package storage persists small per-user client state (chat transcript,
// assistant mode, panel visibility) as JSON documents on local disk.
package storage

import (
	"errors"
	"time"
)

// ErrNotExist is returned by Read for a key that has never been written.
var ErrNotExist = errors.New("storage: key does not exist")

// Entry describes a stored key.
type Entry struct {
	Key       string    `json:"key"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is a namespaced key/value store.
type Provider interface {
	// List returns every key stored under namespace.
	List(namespace string) ([]Entry, error)
	// Read returns the value of key in namespace.
	Read(namespace, key string) ([]byte, error)
	// Write atomically replaces the value of key in namespace.
	Write(namespace, key string, value []byte) error
	// Delete removes key from namespace. Missing keys are not an error.
	Delete(namespace, key string) error
}
