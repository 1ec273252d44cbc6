package status

import "sync/atomic"

// MaxStringLen caps stored labels so the HUD status line stays bounded
const MaxStringLen = 24

// AtomicString holds a short label; zero value reads ""
type AtomicString struct {
	ptr atomic.Pointer[string]
}

// Store sets val, truncated to MaxStringLen bytes
func (s *AtomicString) Store(val string) {
	if len(val) > MaxStringLen {
		val = val[:MaxStringLen]
	}
	s.ptr.Store(&val)
}

// Load returns the current label
func (s *AtomicString) Load() string {
	if p := s.ptr.Load(); p != nil {
		return *p
	}
	return ""
}
