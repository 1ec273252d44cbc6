package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/airbladder/anchor"
	"github.com/lixenwraith/airbladder/audio"
	"github.com/lixenwraith/airbladder/core"
	"github.com/lixenwraith/airbladder/device"
	"github.com/lixenwraith/airbladder/engine"
	"github.com/lixenwraith/airbladder/event"
	"github.com/lixenwraith/airbladder/host"
	"github.com/lixenwraith/airbladder/parameter"
	"github.com/lixenwraith/airbladder/persistence"
	"github.com/lixenwraith/airbladder/render"
)

// Pilot input
const (
	thrustSpeed  = 3.0    // m/s set by the ascend/descend keys
	heavyBallast = -800.0 // N, the ballast key toggles between this and neutral
)

type command int

const (
	cmdNone command = iota
	cmdQuit
	cmdToggle
	cmdNextVehicle
	cmdDock
	cmdSave
	cmdAscend
	cmdDescend
	cmdCursorLeft
	cmdCursorRight
	cmdInstall
	cmdUninstall
	cmdMove
	cmdMute
	cmdBallast
)

// keyCommand maps a key press onto a simulator command
func keyCommand(key tcell.Key, r rune) command {
	switch key {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return cmdQuit
	case tcell.KeyTab:
		return cmdNextVehicle
	case tcell.KeyUp:
		return cmdAscend
	case tcell.KeyDown:
		return cmdDescend
	case tcell.KeyLeft:
		return cmdCursorLeft
	case tcell.KeyRight:
		return cmdCursorRight
	case tcell.KeyRune:
	default:
		return cmdNone
	}

	switch r {
	case 'q':
		return cmdQuit
	case ' ':
		return cmdToggle
	case 'd':
		return cmdDock
	case 's':
		return cmdSave
	case 'i':
		return cmdInstall
	case 'u':
		return cmdUninstall
	case 'm':
		return cmdMove
	case 'x':
		return cmdMute
	case 'b':
		return cmdBallast
	}
	return cmdNone
}

// gaugeSet hands out one HUD gauge per vehicle
type gaugeSet struct {
	mu     sync.Mutex
	gauges map[host.ID]*render.Gauge
}

func newGaugeSet() *gaugeSet {
	return &gaugeSet{gauges: make(map[host.ID]*render.Gauge)}
}

// overlay implements engine.OverlayFactory
func (s *gaugeSet) overlay(id host.ID) anchor.Overlay {
	return s.get(id)
}

func (s *gaugeSet) get(id host.ID) *render.Gauge {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.gauges[id]
	if !ok {
		g = render.NewGauge()
		s.gauges[id] = g
	}
	return g
}

// app is the interactive simulator state driven by the main loop
type app struct {
	m        *engine.Manager
	bank     *audio.Bank         // nil when audio is disabled
	backend  persistence.Backend // nil skips roster saves
	vehicles []*host.Vehicle
	gauges   *gaugeSet
	logger   *slog.Logger

	current int
	cursor  int
	message string
}

func newApp(m *engine.Manager, bank *audio.Bank, backend persistence.Backend, vehicles []*host.Vehicle, gauges *gaugeSet, logger *slog.Logger) *app {
	return &app{
		m:        m,
		bank:     bank,
		backend:  backend,
		vehicles: vehicles,
		gauges:   gauges,
		logger:   logger.With("component", "app"),
	}
}

func (a *app) vehicle() *host.Vehicle {
	return a.vehicles[a.current]
}

func (a *app) emit(t event.EventType) {
	a.m.Queue().Emit(t, &event.VehiclePayload{Vehicle: a.vehicle().ID()})
}

// start boards the first vehicle
func (a *app) start() {
	a.emit(event.EventPilotBegin)
}

// do applies one command; false means quit
func (a *app) do(cmd command) bool {
	v := a.vehicle()
	switch cmd {
	case cmdQuit:
		return false

	case cmdToggle:
		a.emit(event.EventToggleRequest)

	case cmdNextVehicle:
		a.emit(event.EventPilotEnd)
		a.current = (a.current + 1) % len(a.vehicles)
		a.emit(event.EventPilotBegin)
		a.message = "piloting " + a.vehicle().Name()

	case cmdDock:
		a.emit(event.EventDocked)
		a.message = "docked, refilling"

	case cmdSave:
		a.emit(event.EventSaveRequested)
		if err := a.saveRoster(context.Background()); err != nil {
			a.message = err.Error()
		} else {
			a.message = "saved"
		}

	case cmdAscend:
		v.Thrust(thrustSpeed)
	case cmdDescend:
		v.Thrust(-thrustSpeed)

	case cmdCursorLeft:
		if a.cursor > 0 {
			a.cursor--
		}
	case cmdCursorRight:
		if a.cursor < v.Equipment().Len()-1 {
			a.cursor++
		}

	case cmdInstall:
		if err := a.m.Install(v.ID(), a.cursor); err != nil {
			a.message = err.Error()
		} else {
			a.message = fmt.Sprintf("air bladder fitted in slot %d", a.cursor+1)
		}

	case cmdUninstall:
		if err := a.m.Uninstall(v.ID(), a.cursor); err != nil {
			a.message = err.Error()
		} else {
			a.message = "air bladder removed"
		}

	case cmdMove:
		from := bladderSlot(v)
		if from < 0 {
			a.message = "no air bladder to move"
			break
		}
		if err := v.Equipment().Move(from, a.cursor); err != nil {
			a.message = err.Error()
		} else {
			a.message = fmt.Sprintf("air bladder moved to slot %d", a.cursor+1)
		}

	case cmdMute:
		if a.bank == nil {
			a.message = "audio disabled"
		} else if a.bank.ToggleMute() {
			a.message = "muted"
		} else {
			a.message = "unmuted"
		}

	case cmdBallast:
		if v.State().Ballast == 0 {
			v.SetBallast(heavyBallast)
			a.message = "ballast flooded"
		} else {
			v.SetBallast(0)
			a.message = "ballast blown"
		}
	}
	return true
}

// tick advances the simulation by the wall time since the previous tick
func (a *app) tick(elapsed time.Duration) {
	a.m.Tick(min(elapsed, parameter.MaxTickDelta).Seconds())
}

// frame collects the HUD state of the piloted vehicle
func (a *app) frame() render.Frame {
	v := a.vehicle()
	id := v.ID()
	f := render.Frame{
		Vehicle:   v.Name(),
		Y:         v.Y(),
		VY:        v.Body().VerticalVelocity(),
		Slots:     v.Equipment().Slots(),
		Selected:  a.cursor,
		Gauge:     a.gauges.get(id).State(),
		Installed: v.Equipment().IsInstalled(device.ModuleName),
		Message:   a.message,
	}
	if c, ok := a.m.Device(id); ok {
		f.Air = c.Air()
		f.Recharging = c.Recharging()
	}
	if a.bank != nil {
		f.Muted = a.bank.IsMuted()
	}

	prefix := "device." + id.String() + "."
	for _, e := range a.m.Metrics().Snapshot() {
		switch {
		case strings.HasPrefix(e.Key, prefix):
			e.Key = strings.TrimPrefix(e.Key, prefix)
			f.Metrics = append(f.Metrics, e)
		case strings.HasPrefix(e.Key, "engine."):
			f.Metrics = append(f.Metrics, e)
		}
	}
	return f
}

// saveRoster stores the vehicle list next to the air records
func (a *app) saveRoster(ctx context.Context) error {
	if a.backend == nil {
		return nil
	}
	return saveFleet(ctx, a.backend, a.vehicles)
}

// shutdown leaves the vehicle, saves everything and releases the devices
func (a *app) shutdown(ctx context.Context) error {
	a.emit(event.EventPilotEnd)
	a.m.Tick(0)

	var errs []error
	if err := a.m.Save(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := a.saveRoster(ctx); err != nil {
		errs = append(errs, err)
	}
	a.m.Close()
	return errors.Join(errs...)
}

// pumpEvents forwards screen events to out until the screen is finalized or done closes
func pumpEvents(screen tcell.Screen, out chan<- tcell.Event, done <-chan struct{}) {
	for {
		ev := screen.PollEvent()
		if ev == nil {
			return
		}
		select {
		case out <- ev:
		case <-done:
			return
		}
	}
}

// loop runs input, simulation and frame timers until quit
func (a *app) loop(screen tcell.Screen) {
	frameTicker := time.NewTicker(parameter.FrameUpdateInterval)
	defer frameTicker.Stop()
	simTicker := time.NewTicker(parameter.TickInterval)
	defer simTicker.Stop()

	eventChan := make(chan tcell.Event, 256)
	done := make(chan struct{})
	defer close(done)
	core.Go(func() { pumpEvents(screen, eventChan, done) })

	last := time.Now()
	for {
		select {
		case ev := <-eventChan:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if !a.do(keyCommand(ev.Key(), ev.Rune())) {
					return
				}
			case *tcell.EventResize:
				screen.Sync()
			}

		case now := <-simTicker.C:
			a.tick(now.Sub(last))
			last = now

		case <-frameTicker.C:
			render.Draw(screen, a.frame())
			screen.Show()
		}
	}
}
