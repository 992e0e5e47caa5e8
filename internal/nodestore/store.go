package nodestore

import (
	"fmt"
	"sync"

	"github.com/mitchellh/hashstructure"
)

// Key identifies the content of a record. Fingerprint returns a value that
// hashstructure can hash; keys with equal content must have equal
// fingerprints. Equal resolves hash collisions.
type Key[K any] interface {
	Fingerprint() interface{}
	Equal(K) bool
}

// Store interns records by content. Records get sequential IDs starting at
// zero and are never removed. It is safe for concurrent use.
type Store[K Key[K]] struct {
	mu      sync.Mutex
	buckets map[uint64][]*Record[K]
	records []*Record[K]
}

func New[K Key[K]]() *Store[K] {
	return &Store[K]{buckets: map[uint64][]*Record[K]{}}
}

// Intern returns the record holding key, creating it if no record with
// equal content exists yet. The boolean reports whether it was created.
func (s *Store[K]) Intern(key K) (*Record[K], bool, error) {
	h, err := hashstructure.Hash(key.Fingerprint(), nil)
	if err != nil {
		return nil, false, fmt.Errorf("hashing node key: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.buckets[h] {
		if r.Key.Equal(key) {
			return r, false, nil
		}
	}
	r := &Record[K]{ID: len(s.records), Key: key}
	s.records = append(s.records, r)
	s.buckets[h] = append(s.buckets[h], r)
	return r, true, nil
}

// Get returns the record with the given ID, or nil.
func (s *Store[K]) Get(id int) *Record[K] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id < 0 || id >= len(s.records) {
		return nil
	}
	return s.records[id]
}

func (s *Store[K]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
