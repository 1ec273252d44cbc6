package status

import (
	"slices"
	"sync"
)

// MetricMap is a keyed set of metric cells of type T
// Lookup and creation take the lock; writes through a returned pointer do not
type MetricMap[T any] struct {
	mu    sync.RWMutex
	cells map[string]*T
}

// NewMetricMap creates an empty MetricMap
func NewMetricMap[T any]() *MetricMap[T] {
	return &MetricMap[T]{cells: make(map[string]*T)}
}

// Get returns the cell for key, allocating on first use
func (m *MetricMap[T]) Get(key string) *T {
	m.mu.RLock()
	cell, ok := m.cells[key]
	m.mu.RUnlock()
	if ok {
		return cell
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cell, ok = m.cells[key]; ok {
		return cell
	}
	cell = new(T)
	m.cells[key] = cell
	return cell
}

// Delete drops key; pointers already handed out stay valid but are no longer listed
func (m *MetricMap[T]) Delete(key string) {
	m.mu.Lock()
	delete(m.cells, key)
	m.mu.Unlock()
}

// Has reports whether key was ever requested
func (m *MetricMap[T]) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.cells[key]
	return ok
}

// Range visits cells in key order
func (m *MetricMap[T]) Range(fn func(key string, cell *T)) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.cells))
	for k := range m.cells {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fn(k, m.cells[k])
	}
}

// Count returns the number of cells
func (m *MetricMap[T]) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cells)
}
