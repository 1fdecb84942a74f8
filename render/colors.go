package render

import (
	"image/color"

	"github.com/wirebond/bondtrack"
)

var (
	// targetColors are the box colors of each target indexed by TargetKind
	targetColors = [bondtrack.NumTargets]color.RGBA{
		{R: 0, G: 194, B: 255, A: 255},  // #00C2FF tip
		{R: 255, G: 178, B: 29, A: 255}, // #FFB21D reel
	}

	Black  = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Yellow = color.RGBA{R: 255, G: 255, B: 50, A: 255}
	Gray   = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	Red    = color.RGBA{R: 220, G: 40, B: 40, A: 255}

	// screen palette, a light theme used for the startup and error screens
	ScreenBackground = color.RGBA{R: 245, G: 246, B: 248, A: 255}
	ScreenBorder     = color.RGBA{R: 225, G: 227, B: 230, A: 255}
	ScreenTitle      = color.RGBA{R: 33, G: 37, B: 41, A: 255}
	ScreenSubtitle   = color.RGBA{R: 108, G: 117, B: 125, A: 255}
)

// TargetColor returns the color used to draw the given target
func TargetColor(kind bondtrack.TargetKind) color.RGBA {

	if !kind.Valid() {
		return Gray
	}

	return targetColors[kind]
}
