package preprocess

import (
	"gocv.io/x/gocv"
	"image"
	"image/color"
	"math"
)

// Meta describes the geometry of a single letterbox resize so coordinates
// found in the destination image can be mapped back to the source frame
type Meta struct {
	// XPad is the number of padding pixels added to the left of the image
	XPad int
	// YPad is the number of padding pixels added to the top of the image
	YPad int
	// Scale is the uniform scale factor applied to the source image
	Scale float32
	// SrcWidth is the width of the source image
	SrcWidth int
	// SrcHeight is the height of the source image
	SrcHeight int
	// DestWidth is the width of the letterboxed image
	DestWidth int
	// DestHeight is the height of the letterboxed image
	DestHeight int
	// ResizeWidth is the width of the scaled source inside the letterbox
	ResizeWidth int
	// ResizeHeight is the height of the scaled source inside the letterbox
	ResizeHeight int
}

// NewMeta calculates the letterbox geometry for scaling a srcWidth x srcHeight
// image into a destWidth x destHeight canvas whilst maintaining aspect ratio
func NewMeta(srcWidth, srcHeight, destWidth, destHeight int) Meta {

	m := Meta{
		SrcWidth:     srcWidth,
		SrcHeight:    srcHeight,
		DestWidth:    destWidth,
		DestHeight:   destHeight,
		ResizeWidth:  destWidth,
		ResizeHeight: destHeight,
	}

	if srcWidth <= 0 || srcHeight <= 0 {
		return m
	}

	scaleW := float32(destWidth) / float32(srcWidth)
	scaleH := float32(destHeight) / float32(srcHeight)
	m.Scale = scaleH

	if scaleW < scaleH {
		m.Scale = scaleW
		m.ResizeHeight = int(float32(srcHeight) * m.Scale)
	} else {
		m.ResizeWidth = int(float32(srcWidth) * m.Scale)
	}

	m.YPad = (destHeight - m.ResizeHeight) / 2 // padding height / 2
	m.XPad = (destWidth - m.ResizeWidth) / 2   // padding width / 2

	return m
}

// ToSource maps a box given by its corner coordinates in letterbox space back
// to the source image.  The result is rounded to whole pixels and clamped to
// [0, SrcWidth-1] x [0, SrcHeight-1].  Min holds the top left corner and Max
// the bottom right corner
func (m Meta) ToSource(x1, y1, x2, y2 float32) image.Rectangle {

	if m.Scale == 0 {
		return image.Rectangle{}
	}

	sx1 := (x1 - float32(m.XPad)) / m.Scale
	sy1 := (y1 - float32(m.YPad)) / m.Scale
	sx2 := (x2 - float32(m.XPad)) / m.Scale
	sy2 := (y2 - float32(m.YPad)) / m.Scale

	maxX := float32(m.SrcWidth - 1)
	maxY := float32(m.SrcHeight - 1)

	return image.Rect(
		round(clampf(sx1, 0, maxX)),
		round(clampf(sy1, 0, maxY)),
		round(clampf(sx2, 0, maxX)),
		round(clampf(sy2, 0, maxY)),
	)
}

// ToModel maps a box in source image coordinates into letterbox space
func (m Meta) ToModel(r image.Rectangle) (x1, y1, x2, y2 float32) {
	x1 = float32(r.Min.X)*m.Scale + float32(m.XPad)
	y1 = float32(r.Min.Y)*m.Scale + float32(m.YPad)
	x2 = float32(r.Max.X)*m.Scale + float32(m.XPad)
	y2 = float32(r.Max.Y)*m.Scale + float32(m.YPad)
	return x1, y1, x2, y2
}

// Letterbox handles scaling images to a fixed canvas size, such as the square
// input tensor of a detection model, using a uniform scale with centered
// padding.  A Letterbox is not safe for concurrent use
type Letterbox struct {
	// destWidth is the width to scale to
	destWidth int
	// destHeight is the height to scale to
	destHeight int
	// color is used for the letterbox padding
	color color.RGBA
	// tempMat is a Mat used during the resize process
	tempMat gocv.Mat
	// meta caches the geometry for the last seen source size
	meta Meta
}

// NewLetterbox returns a Letterbox that scales images into a destWidth x
// destHeight canvas padded with the given color
func NewLetterbox(destWidth, destHeight int, pad color.RGBA) *Letterbox {
	return &Letterbox{
		destWidth:  destWidth,
		destHeight: destHeight,
		color:      pad,
		tempMat:    gocv.NewMat(),
	}
}

// Close frees memory allocated during resize process
func (l *Letterbox) Close() error {
	return l.tempMat.Close()
}

// Meta returns the letterbox geometry for a source image of the given size
func (l *Letterbox) Meta(srcWidth, srcHeight int) Meta {
	if l.meta.SrcWidth != srcWidth || l.meta.SrcHeight != srcHeight ||
		l.meta.DestWidth != l.destWidth || l.meta.DestHeight != l.destHeight {
		l.meta = NewMeta(srcWidth, srcHeight, l.destWidth, l.destHeight)
	}

	return l.meta
}

// Resize scales src into dest with letterbox padding and returns the
// geometry needed to invert coordinates found in dest
func (l *Letterbox) Resize(src gocv.Mat, dest *gocv.Mat) Meta {

	m := l.Meta(src.Cols(), src.Rows())

	gocv.Resize(src, &l.tempMat, image.Pt(m.ResizeWidth, m.ResizeHeight),
		0, 0, gocv.InterpolationArea)

	gocv.CopyMakeBorder(l.tempMat, dest, m.YPad, m.DestHeight-m.ResizeHeight-m.YPad,
		m.XPad, m.DestWidth-m.ResizeWidth-m.XPad, gocv.BorderConstant, l.color)

	return m
}

// clampf restricts val to the range min and max
func clampf(val, min, max float32) float32 {

	if val < min {
		return min
	}

	if val > max {
		return max
	}

	return val
}

// round returns the nearest integer to val
func round(val float32) int {
	return int(math.Round(float64(val)))
}
