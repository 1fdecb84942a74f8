package render

import (
	"image/color"

	"github.com/wirebond/bondtrack"
	"github.com/wirebond/bondtrack/tracker"
	"gocv.io/x/gocv"
)

// TrailStyle sets how target trails are drawn.  A zero colour means the
// target's own colour is used.
type TrailStyle struct {
	LineColor     color.RGBA
	LineThickness int
	// DotColor and DotRadius style the marker on the current position
	DotColor  color.RGBA
	DotRadius int
}

// DefaultTrailStyle draws yellow trails ending in a dot of the target colour
func DefaultTrailStyle() TrailStyle {
	return TrailStyle{
		LineColor:     Yellow,
		LineThickness: 1,
		DotRadius:     3,
	}
}

func orColor(clr, fallback color.RGBA) color.RGBA {
	if clr == (color.RGBA{}) {
		return fallback
	}
	return clr
}

// Trail draws the position history of every target currently located by
// its visual tracker
func Trail(img *gocv.Mat, snap tracker.Snapshot, trail *tracker.Trail,
	style TrailStyle) {

	for _, kind := range bondtrack.TargetKinds {

		if !snap.Get(kind).OK {
			continue
		}

		points := trail.GetPoints(kind)

		if len(points) < 2 {
			continue
		}

		lineClr := orColor(style.LineColor, TargetColor(kind))

		for i := 1; i < len(points); i++ {
			gocv.Line(img, points[i-1], points[i], lineClr, style.LineThickness)
		}

		gocv.Circle(img, points[len(points)-1], style.DotRadius,
			orColor(style.DotColor, TargetColor(kind)), -1)
	}
}
