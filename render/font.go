package render

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Alignment of a label relative to the box it describes
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

// Font holds the Hershey font settings used for overlay text
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
	// padding between the text and its background box
	LeftPad   int
	RightPad  int
	TopPad    int
	BottomPad int
	Alignment Alignment
}

// DefaultFont returns the font used for box labels
func DefaultFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.5,
		Color:     White,
		Thickness: 1,
		LineType:  gocv.LineAA,
		LeftPad:   4,
		RightPad:  4,
		TopPad:    4,
		BottomPad: 6,
		Alignment: AlignLeft,
	}
}

// StatusFont returns the font used for the badge and status line
func StatusFont() Font {
	f := DefaultFont()
	f.Scale = 0.55
	f.BottomPad = 8
	return f
}

// Size returns the pixel size of text without padding
func (f Font) Size(text string) image.Point {
	return gocv.GetTextSize(text, f.Face, f.Scale, f.Thickness)
}

// Box returns the size of text including padding
func (f Font) Box(text string) image.Point {
	sz := f.Size(text)
	return image.Pt(sz.X+f.LeftPad+f.RightPad, sz.Y+f.TopPad+f.BottomPad)
}

// Draw writes text with its baseline starting at pt
func (f Font) Draw(img *gocv.Mat, text string, pt image.Point) {
	gocv.PutTextWithParams(img, text, pt, f.Face, f.Scale, f.Color,
		f.Thickness, f.LineType, false)
}
