package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/lixenwraith/airbladder/engine"
	"github.com/lixenwraith/airbladder/event"
	"github.com/lixenwraith/airbladder/host"
	"github.com/lixenwraith/airbladder/parameter"
)

// diveReport summarizes a scripted headless dive
type diveReport struct {
	Ticks     int
	Surfaced  bool
	MaxY      float64
	Remaining float64
	Docked    bool
}

// runDive plays a scripted ascent on v in simulated time: pilot aboard, inflate,
// ride to the surface, dock at the halfway mark, save at the end
// The device must already be attached; ticks run as fast as the host allows
func runDive(ctx context.Context, m *engine.Manager, v *host.Vehicle, duration time.Duration, logger *slog.Logger) (diveReport, error) {
	dt := parameter.TickInterval.Seconds()
	total := int(duration / parameter.TickInterval)
	perSecond := int(time.Second / parameter.TickInterval)
	id := v.ID()

	q := m.Queue()
	q.Emit(event.EventPilotBegin, &event.VehiclePayload{Vehicle: id})
	q.Emit(event.EventToggleRequest, &event.VehiclePayload{Vehicle: id})

	report := diveReport{MaxY: v.Y()}
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if i == total/2 {
			q.Emit(event.EventDocked, &event.VehiclePayload{Vehicle: id})
			report.Docked = true
		}

		m.Tick(dt)
		report.Ticks++

		y := v.Y()
		report.MaxY = math.Max(report.MaxY, y)
		if y >= parameter.RechargeThreshold {
			report.Surfaced = true
		}

		if i%perSecond == 0 {
			attrs := []any{"t", fmt.Sprintf("%.1fs", float64(i)*dt), "y", fmt.Sprintf("%.2f", y)}
			if c, ok := m.Device(id); ok {
				attrs = append(attrs, "air", fmt.Sprintf("%.1f", c.Remaining()), "active", c.Active(), "recharging", c.Recharging())
			}
			logger.Info("dive", attrs...)
		}
	}

	q.Emit(event.EventPilotEnd, &event.VehiclePayload{Vehicle: id})
	m.Tick(0)

	if c, ok := m.Device(id); ok {
		report.Remaining = c.Remaining()
	}
	if err := m.Save(ctx); err != nil {
		return report, err
	}
	return report, nil
}
