package render

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"
	"github.com/lixenwraith/airbladder/anchor"
	"github.com/lixenwraith/airbladder/component"
	"github.com/lixenwraith/airbladder/parameter"
	"github.com/lixenwraith/airbladder/status"
)

// HUD layout
const (
	SlotWidth   = 8 // "[" + label + "]"
	SlotGap     = 1
	SlotLabel   = SlotWidth - 2
	SlotBarX    = 4
	MeterX      = 1
	MeterTopRow = 2
	MetricsX    = 6

	// Depth meter range, world units
	MeterCeiling = 2.0
	MeterFloor   = -40.0
)

// Frame is everything the HUD draws in one pass
type Frame struct {
	Vehicle    string
	Y          float64
	VY         float64
	Slots      []anchor.Slot
	Selected   int // highlighted slot, -1 for none
	Gauge      GaugeState
	Air        component.AirComponent
	Installed  bool
	Recharging bool
	Muted      bool
	Metrics    []status.Entry
	Message    string
}

// Draw paints f onto screen without calling Show
func Draw(screen tcell.Screen, f Frame) {
	width, height := screen.Size()
	bg := tcell.StyleDefault.Background(RgbBackground)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			screen.SetContent(x, y, ' ', nil, bg)
		}
	}

	drawStatusLine(screen, width, f, bg)

	slotRow := height - 2
	meterBottom := height - 4
	drawDepthMeter(screen, f.Y, MeterTopRow, meterBottom, bg)
	drawMetrics(screen, width, MeterTopRow, meterBottom, f.Metrics, bg)
	drawSlots(screen, width, slotRow, f, bg)

	if f.Message != "" {
		drawText(screen, 0, height-1, width, f.Message, bg.Foreground(RgbText))
	}
}

func drawStatusLine(screen tcell.Screen, width int, f Frame, bg tcell.Style) {
	text := bg.Foreground(RgbText)
	line := fmt.Sprintf("%s  y=%6.1f  vy=%5.1f", f.Vehicle, f.Y, f.VY)
	x := drawText(screen, 0, 0, width, line, text)

	if !f.Installed {
		drawText(screen, x, 0, width, "  no bladder", bg.Foreground(RgbDim))
		return
	}

	air := fmt.Sprintf("  air %3.0f/%3.0f", f.Air.Remaining, f.Air.Capacity)
	x = drawText(screen, x, 0, width, air, bg.Foreground(GaugeColor(anchor.LevelFor(f.Air.Ratio()))))

	if f.Air.Active {
		x = drawText(screen, x, 0, width, "  INFLATED", bg.Foreground(RgbActive))
	}
	if f.Recharging {
		x = drawText(screen, x, 0, width, "  RECHARGING", bg.Foreground(RgbRecharge))
	}
	if f.Muted {
		drawText(screen, x, 0, width, "  MUTED", bg.Foreground(RgbDim))
	}
}

// MeterRow maps a height onto the depth meter rows [top, bottom]
func MeterRow(y float64, top, bottom int) int {
	if bottom <= top {
		return top
	}
	t := (MeterCeiling - y) / (MeterCeiling - MeterFloor)
	t = math.Max(0, math.Min(1, t))
	return top + int(math.Round(t*float64(bottom-top)))
}

func drawDepthMeter(screen tcell.Screen, y float64, top, bottom int, bg tcell.Style) {
	if bottom < top {
		return
	}
	surface := MeterRow(parameter.SurfaceLevel, top, bottom)
	for row := top; row <= bottom; row++ {
		switch {
		case row < surface:
			screen.SetContent(MeterX, row, ' ', nil, bg)
		case row == surface:
			screen.SetContent(MeterX, row, '~', nil, bg.Foreground(RgbSurface))
		default:
			screen.SetContent(MeterX, row, '│', nil, bg.Foreground(RgbWater))
		}
	}
	screen.SetContent(MeterX+1, MeterRow(y, top, bottom), '◀', nil, bg.Foreground(RgbVehicle))
}

func drawMetrics(screen tcell.Screen, width, top, bottom int, entries []status.Entry, bg tcell.Style) {
	style := bg.Foreground(RgbDim)
	for i, e := range entries {
		row := top + i
		if row > bottom {
			return
		}
		drawText(screen, MetricsX, row, width, e.Key+"="+e.Value, style)
	}
}

// SlotX returns the left column of slot index i
func SlotX(i int) int {
	return SlotBarX + i*(SlotWidth+SlotGap)
}

func drawSlots(screen tcell.Screen, width, row int, f Frame, bg tcell.Style) {
	for i, s := range f.Slots {
		x := SlotX(i)
		if x+SlotWidth > width {
			break
		}

		frame := bg.Foreground(RgbSlotFrame)
		if i == f.Selected {
			frame = bg.Foreground(RgbVehicle)
		}
		screen.SetContent(x, row, '[', nil, frame)
		screen.SetContent(x+SlotWidth-1, row, ']', nil, frame)
		drawText(screen, x+1, row, x+1+SlotLabel, SlotLabelText(s.Icon), bg.Foreground(RgbSlotIcon))

		if f.Gauge.Drawable() && f.Gauge.Slot == s.ID {
			drawGauge(screen, x+1, row-1, f.Gauge, bg)
		}
	}
}

// SlotLabelText fits an icon name into a slot cell
func SlotLabelText(icon string) string {
	r := []rune(icon)
	if len(r) > SlotLabel {
		r = r[:SlotLabel]
	}
	return string(r)
}

func drawGauge(screen tcell.Screen, x, row int, g GaugeState, bg tcell.Style) {
	filled := int(math.Round(g.Ratio * SlotLabel))
	fill := bg.Foreground(GaugeColor(g.Level))
	empty := bg.Foreground(RgbDim)
	for i := 0; i < SlotLabel; i++ {
		if i < filled {
			screen.SetContent(x+i, row, '█', nil, fill)
		} else {
			screen.SetContent(x+i, row, '░', nil, empty)
		}
	}
}

// drawText writes s from column x, clipped at column limit, and returns the next column
func drawText(screen tcell.Screen, x, y, limit int, s string, style tcell.Style) int {
	for _, r := range s {
		if x >= limit {
			break
		}
		screen.SetContent(x, y, r, nil, style)
		x++
	}
	return x
}
