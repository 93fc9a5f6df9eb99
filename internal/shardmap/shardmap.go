// Package shardmap provides a concurrent map split into independently locked
// shards, so that operations on unrelated keys do not contend on one lock.
package shardmap

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// DefaultShards is the shard count used when New is given a non-positive value
const DefaultShards = 32

type shard[K ~string, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

// Map is a string-keyed concurrent map.
// The zero value is not usable; create one with New.
type Map[K ~string, V any] struct {
	shards []*shard[K, V]
}

// New creates a Map with n shards
func New[K ~string, V any](n int) *Map[K, V] {
	if n <= 0 {
		n = DefaultShards
	}
	m := &Map[K, V]{shards: make([]*shard[K, V], n)}
	for i := range m.shards {
		m.shards[i] = &shard[K, V]{items: make(map[K]V)}
	}
	return m
}

func (m *Map[K, V]) shardFor(key K) *shard[K, V] {
	return m.shards[xxhash.Sum64String(string(key))%uint64(len(m.shards))]
}

// Load returns the value stored under key
func (m *Map[K, V]) Load(key K) (V, bool) {
	s := m.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

// Store sets the value for key
func (m *Map[K, V]) Store(key K, value V) {
	s := m.shardFor(key)
	s.mu.Lock()
	s.items[key] = value
	s.mu.Unlock()
}

// LoadOrStore returns the existing value for key if present.
// Otherwise it stores and returns value. loaded reports which happened.
func (m *Map[K, V]) LoadOrStore(key K, value V) (actual V, loaded bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.items[key]; ok {
		return v, true
	}
	s.items[key] = value
	return value, false
}

// Delete removes key and returns the value it held
func (m *Map[K, V]) Delete(key K) (V, bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	if ok {
		delete(s.items, key)
	}
	return v, ok
}

// Compute atomically replaces the entry for key with the result of fn.
// fn receives the current value and whether it exists; returning keep=false
// deletes the entry. Compute returns the resulting value and presence.
// fn runs under the shard lock and must not call back into the Map.
func (m *Map[K, V]) Compute(key K, fn func(old V, loaded bool) (value V, keep bool)) (V, bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	old, loaded := s.items[key]
	v, keep := fn(old, loaded)
	if !keep {
		delete(s.items, key)
		var zero V
		return zero, false
	}
	s.items[key] = v
	return v, true
}

// DeleteIf removes every entry matching pred and returns how many were removed.
// Shards are visited one at a time, so the sweep never holds more than one lock.
func (m *Map[K, V]) DeleteIf(pred func(key K, value V) bool) int {
	removed := 0
	for _, s := range m.shards {
		s.mu.Lock()
		for k, v := range s.items {
			if pred(k, v) {
				delete(s.items, k)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Range calls fn for every entry until fn returns false.
// The view is not a snapshot: entries in shards not yet visited may change.
func (m *Map[K, V]) Range(fn func(key K, value V) bool) {
	for _, s := range m.shards {
		s.mu.RLock()
		for k, v := range s.items {
			if !fn(k, v) {
				s.mu.RUnlock()
				return
			}
		}
		s.mu.RUnlock()
	}
}

// Keys returns the keys present at the time each shard was visited
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0, m.Len())
	m.Range(func(k K, _ V) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// Len returns the total number of entries
func (m *Map[K, V]) Len() int {
	n := 0
	for _, s := range m.shards {
		s.mu.RLock()
		n += len(s.items)
		s.mu.RUnlock()
	}
	return n
}
