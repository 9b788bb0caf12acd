// Package storage provides implementations of the dto.Backend key-value
// store. Memory models the browser localStorage + storage-event pair: a
// synchronous in-process store whose mutations fan out to every watcher.
package storage

import (
	"sync"

	"github.com/baasic/baasic-go/dto"
)

const watchBuffer = 32

// Memory is a concurrency-safe in-process Backend. All handles sharing one
// Memory value observe each other's writes through Watch, which is how
// separate App instances in the same process simulate tabs sharing an
// origin.
type Memory struct {
	mu       sync.Mutex
	items    map[string]string
	watchers map[int]chan dto.Change
	nextID   int
}

func NewMemory() *Memory {
	return &Memory{
		items:    make(map[string]string),
		watchers: make(map[int]chan dto.Change),
	}
}

func (m *Memory) GetItem(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *Memory) SetItem(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.items[key]; ok && existing == value {
		return nil
	}
	m.items[key] = value
	m.notifyLocked(dto.Change{Key: key, NewValue: value})
	return nil
}

func (m *Memory) RemoveItem(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[key]; !ok {
		return nil
	}
	delete(m.items, key)
	m.notifyLocked(dto.Change{Key: key})
	return nil
}

// Watch subscribes to mutations. Changes are delivered in mutation order,
// at most once each; a watcher that stops draining its channel loses the
// overflow rather than blocking writers.
func (m *Memory) Watch() (<-chan dto.Change, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	ch := make(chan dto.Change, watchBuffer)
	m.watchers[id] = ch

	unsub := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if existing, ok := m.watchers[id]; ok {
			delete(m.watchers, id)
			close(existing)
		}
	}
	return ch, unsub
}

func (m *Memory) notifyLocked(change dto.Change) {
	for _, ch := range m.watchers {
		select {
		case ch <- change:
		default:
		}
	}
}
