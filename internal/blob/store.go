// Package blob keeps downloaded documents in memory behind object URLs,
// the way a browser hands out blob: URLs for fetched responses.
package blob

import (
	"fmt"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// Scheme prefixes every object URL handed out by a Store.
const Scheme = "blob:"

// Blob is a stored document.
type Blob struct {
	Data        []byte
	ContentType string
}

// Store is a concurrency-safe in-memory blob store.
type Store struct {
	mu    sync.RWMutex
	blobs map[string]Blob
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{blobs: make(map[string]Blob)}
}

// Create stores data and returns its object URL.
func (s *Store) Create(data []byte, contentType string) string {
	id := ulid.Make().String()

	s.mu.Lock()
	s.blobs[id] = Blob{Data: data, ContentType: contentType}
	s.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"blob_id":     id,
		"data_length": len(data),
	}).Debug("blob created")
	return Scheme + id
}

// Get returns the blob behind an object URL or a bare ID.
func (s *Store) Get(objectURL string) (Blob, error) {
	id := ID(objectURL)

	s.mu.RLock()
	b, ok := s.blobs[id]
	s.mu.RUnlock()

	if !ok {
		return Blob{}, fmt.Errorf("blob %s not found", id)
	}
	return b, nil
}

// Revoke releases an object URL. Revoking an unknown URL is a no-op.
func (s *Store) Revoke(objectURL string) {
	id := ID(objectURL)

	s.mu.Lock()
	_, ok := s.blobs[id]
	delete(s.blobs, id)
	s.mu.Unlock()

	if ok {
		logrus.WithField("blob_id", id).Debug("blob revoked")
	}
}

// Len returns the number of live blobs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

// ID strips the object URL scheme.
func ID(objectURL string) string {
	return strings.TrimPrefix(objectURL, Scheme)
}
