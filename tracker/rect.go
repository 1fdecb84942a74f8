package tracker

import (
	"image"
)

// Bounds returns the rectangle of valid pixel positions of a frame with the
// given size, [0,w-1]x[0,h-1] expressed as a half open image.Rectangle
func Bounds(width, height int) image.Rectangle {
	return image.Rect(0, 0, width, height)
}

// ClampRect restricts r to lie inside bounds.  The result may be empty if
// r does not overlap bounds.
func ClampRect(r image.Rectangle, bounds image.Rectangle) image.Rectangle {
	return r.Canon().Intersect(bounds)
}

// Center returns the center point of r
func Center(r image.Rectangle) image.Point {
	return image.Pt((r.Min.X+r.Max.X)/2, (r.Min.Y+r.Max.Y)/2)
}

// Degenerate reports if r has no area
func Degenerate(r image.Rectangle) bool {
	return r.Dx() <= 0 || r.Dy() <= 0
}

// IoU returns the intersection over union of two rectangles
func IoU(a, b image.Rectangle) float32 {

	inter := a.Intersect(b)

	if inter.Empty() {
		return 0
	}

	ia := inter.Dx() * inter.Dy()
	union := a.Dx()*a.Dy() + b.Dx()*b.Dy() - ia

	if union <= 0 {
		return 0
	}

	return float32(ia) / float32(union)
}

// FitRect restricts r to bounds while keeping at least one pixel of width
// and height, so a box that drifted outside the frame stays usable.  An
// empty bounds returns an empty rectangle.
func FitRect(r image.Rectangle, bounds image.Rectangle) image.Rectangle {

	if bounds.Empty() {
		return image.Rectangle{}
	}

	r = r.Canon()

	x1 := clampInt(r.Min.X, bounds.Min.X, bounds.Max.X-1)
	y1 := clampInt(r.Min.Y, bounds.Min.Y, bounds.Max.Y-1)
	x2 := clampInt(r.Max.X, x1+1, bounds.Max.X)
	y2 := clampInt(r.Max.Y, y1+1, bounds.Max.Y)

	return image.Rect(x1, y1, x2, y2)
}

// clampInt restricts val to the range min and max
func clampInt(val, min, max int) int {

	if val < min {
		return min
	}

	if val > max {
		return max
	}

	return val
}
