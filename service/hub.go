package service

import (
	"fmt"
	"log/slog"
	"sync"
)

// Hub brings services up dependencies-first and takes them down in reverse
type Hub struct {
	mu      sync.Mutex
	byName  map[string]Service
	names   []string // registration order
	order   []string // resolved on first InitAll
	running []string
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		byName: make(map[string]Service),
		logger: logger.With("component", "services"),
	}
}

func (h *Hub) Register(svc Service) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	name := svc.Name()
	if _, dup := h.byName[name]; dup {
		return fmt.Errorf("service %s registered twice", name)
	}
	h.byName[name] = svc
	h.names = append(h.names, name)
	h.order = nil
	return nil
}

// Names lists services in registration order
func (h *Hub) Names() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.names...)
}

// InitAll resolves the order and initializes every service
// A failure stops the ones already initialized
func (h *Hub) InitAll(args ...any) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.order == nil {
		order, err := h.resolve()
		if err != nil {
			return err
		}
		h.order = order
	}
	_, err := h.each("init", func(svc Service) error { return svc.Init(args...) })
	return err
}

// StartAll starts every service; a failure stops the ones already started
func (h *Hub) StartAll() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.order == nil {
		return fmt.Errorf("services not initialized")
	}
	done, err := h.each("start", Service.Start)
	if err == nil {
		h.running = done
	}
	return err
}

// StopAll stops running services newest first; stop errors are logged
func (h *Hub) StopAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unwind(h.running)
	h.running = nil
}

// each applies step in resolved order and unwinds on the first error
func (h *Hub) each(phase string, step func(Service) error) ([]string, error) {
	done := make([]string, 0, len(h.order))
	for _, name := range h.order {
		if err := step(h.byName[name]); err != nil {
			h.unwind(done)
			return nil, fmt.Errorf("service %s %s: %w", name, phase, err)
		}
		done = append(done, name)
	}
	return done, nil
}

func (h *Hub) unwind(names []string) {
	for i := len(names) - 1; i >= 0; i-- {
		if err := h.byName[names[i]].Stop(); err != nil {
			h.logger.Error("service stop failed", "service", names[i], "error", err)
		}
	}
}

// resolve orders services depth-first so each follows its dependencies
func (h *Hub) resolve() ([]string, error) {
	const (
		unseen = iota
		visiting
		placed
	)
	state := make(map[string]int, len(h.names))
	order := make([]string, 0, len(h.names))

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case placed:
			return nil
		case visiting:
			return fmt.Errorf("circular service dependency through %s", name)
		}
		state[name] = visiting
		for _, dep := range h.byName[name].Dependencies() {
			if _, ok := h.byName[dep]; !ok {
				return fmt.Errorf("service %s depends on unregistered service %s", name, dep)
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[name] = placed
		order = append(order, name)
		return nil
	}

	for _, name := range h.names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}
