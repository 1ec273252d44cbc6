package render

import (
	"github.com/gdamore/tcell/v2"
	"github.com/lixenwraith/airbladder/anchor"
)

// HUD palette
var (
	RgbBackground = tcell.NewRGBColor(26, 27, 38)    // Tokyo Night background
	RgbText       = tcell.NewRGBColor(200, 200, 210) // Light gray
	RgbDim        = tcell.NewRGBColor(90, 90, 110)   // Muted gray for empty cells
	RgbSlotFrame  = tcell.NewRGBColor(140, 140, 160) // Slot brackets
	RgbSlotIcon   = tcell.NewRGBColor(100, 150, 255) // Installed module icon
	RgbWater      = tcell.NewRGBColor(30, 60, 120)   // Depth meter below surface
	RgbSurface    = tcell.NewRGBColor(140, 190, 255) // Surface line
	RgbVehicle    = tcell.NewRGBColor(255, 165, 0)   // Orange vehicle marker

	RgbGaugeHigh = tcell.NewRGBColor(0, 200, 0)   // Green
	RgbGaugeMid  = tcell.NewRGBColor(255, 255, 0) // Yellow
	RgbGaugeLow  = tcell.NewRGBColor(255, 80, 80) // Red
	RgbActive    = tcell.NewRGBColor(50, 255, 50) // Inflated indicator
	RgbRecharge  = tcell.NewRGBColor(0, 200, 200) // Recharging indicator
)

// GaugeColor maps a fill band to its gauge color
func GaugeColor(level anchor.FillLevel) tcell.Color {
	switch level {
	case anchor.FillHigh:
		return RgbGaugeHigh
	case anchor.FillMid:
		return RgbGaugeMid
	default:
		return RgbGaugeLow
	}
}
