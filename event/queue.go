package event

import (
	"sync/atomic"
	"time"

	"github.com/lixenwraith/airbladder/parameter"
)

// Queue is a lock-free ring of host events
// Any goroutine may Push (input, equipment callbacks, timers); only the simulation loop consumes.
// A slot is readable once its published flag is set. When full, the oldest unread events
// are overwritten and counted in Dropped
type Queue struct {
	slots     [parameter.EventQueueSize]HostEvent
	published [parameter.EventQueueSize]atomic.Bool
	head      atomic.Uint64 // next read
	tail      atomic.Uint64 // next write
	dropped   atomic.Uint64
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{}
}

// Emit pushes an event stamped with the current time
func (q *Queue) Emit(t EventType, payload any) {
	q.Push(HostEvent{Type: t, Payload: payload, Timestamp: time.Now()})
}

// Push claims the next slot, writes ev, then publishes it
func (q *Queue) Push(ev HostEvent) {
	seq := q.tail.Add(1) - 1
	idx := seq & parameter.EventBufferMask

	q.slots[idx] = ev
	q.published[idx].Store(true)

	// Lapped the reader: move head past the overwritten slot
	for {
		head := q.head.Load()
		if seq+1-head <= parameter.EventQueueSize {
			return
		}
		if q.head.CompareAndSwap(head, seq+1-parameter.EventQueueSize) {
			q.dropped.Add(1)
			return
		}
	}
}

// Consume returns the published events in FIFO order and advances head past them
// Stops early at a slot whose writer has not finished
func (q *Queue) Consume() []HostEvent {
	for {
		head, n := q.window()
		if n == 0 {
			return nil
		}

		out := make([]HostEvent, 0, n)
		for i := uint64(0); i < n; i++ {
			idx := (head + i) & parameter.EventBufferMask
			if !q.published[idx].Load() {
				break
			}
			out = append(out, q.slots[idx])
			q.published[idx].Store(false)
		}

		if q.head.CompareAndSwap(head, head+uint64(len(out))) {
			if len(out) == 0 {
				return nil
			}
			return out
		}
	}
}

// window returns the first readable sequence and how many follow it, capped at capacity
func (q *Queue) window() (head, n uint64) {
	head = q.head.Load()
	tail := q.tail.Load()
	if tail <= head {
		return head, 0
	}
	n = tail - head
	if n > parameter.EventQueueSize {
		head = tail - parameter.EventQueueSize
		n = parameter.EventQueueSize
	}
	return head, n
}

// Len returns the approximate number of unread events
func (q *Queue) Len() int {
	_, n := q.window()
	return int(n)
}

// Dropped returns how many unread events were overwritten since creation
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}
