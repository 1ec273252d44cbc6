package status

import (
	"fmt"
	"strconv"
	"sync/atomic"
)

// Registry groups device metrics by value type
// Devices cache cell pointers at construction and write them every tick
type Registry struct {
	Bools   *MetricMap[atomic.Bool]
	Ints    *MetricMap[atomic.Int64]
	Floats  *MetricMap[AtomicFloat]
	Strings *MetricMap[AtomicString]
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{
		Bools:   NewMetricMap[atomic.Bool](),
		Ints:    NewMetricMap[atomic.Int64](),
		Floats:  NewMetricMap[AtomicFloat](),
		Strings: NewMetricMap[AtomicString](),
	}
}

// TotalCount returns the number of cells across all maps
func (r *Registry) TotalCount() int {
	return r.Bools.Count() + r.Ints.Count() + r.Floats.Count() + r.Strings.Count()
}

// Forget drops every cell whose key is one of keys
func (r *Registry) Forget(keys ...string) {
	for _, k := range keys {
		r.Bools.Delete(k)
		r.Ints.Delete(k)
		r.Floats.Delete(k)
		r.Strings.Delete(k)
	}
}

// Entry is one formatted metric
type Entry struct {
	Key   string
	Value string
}

// Snapshot formats every metric, grouped by type and sorted by key within each group
func (r *Registry) Snapshot() []Entry {
	out := make([]Entry, 0, r.TotalCount())
	r.Bools.Range(func(k string, c *atomic.Bool) {
		out = append(out, Entry{k, strconv.FormatBool(c.Load())})
	})
	r.Ints.Range(func(k string, c *atomic.Int64) {
		out = append(out, Entry{k, strconv.FormatInt(c.Load(), 10)})
	})
	r.Floats.Range(func(k string, c *AtomicFloat) {
		out = append(out, Entry{k, fmt.Sprintf("%.1f", c.Get())})
	})
	r.Strings.Range(func(k string, c *AtomicString) {
		out = append(out, Entry{k, c.Load()})
	})
	return out
}
