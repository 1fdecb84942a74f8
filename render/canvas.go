package render

import (
	"image/color"

	"github.com/wirebond/bondtrack/preprocess"
	"gocv.io/x/gocv"
)

// Canvas fits camera frames into a fixed size display keeping their aspect
// ratio, the unused area is filled with the background color
type Canvas struct {
	letterbox *preprocess.Letterbox
	img       gocv.Mat
	meta      preprocess.Meta
}

// NewCanvas returns a Canvas of the given display size
func NewCanvas(width, height int, bg color.RGBA) *Canvas {
	return &Canvas{
		letterbox: preprocess.NewLetterbox(width, height, bg),
		img:       gocv.NewMat(),
	}
}

// Fit scales frame onto the canvas and returns the canvas image.  The
// returned Mat is owned by the Canvas and is overwritten by the next call.
func (c *Canvas) Fit(frame gocv.Mat) gocv.Mat {
	c.meta = c.letterbox.Resize(frame, &c.img)
	return c.img
}

// Meta returns the geometry of the last fitted frame
func (c *Canvas) Meta() preprocess.Meta {
	return c.meta
}

// Close frees the canvas buffers
func (c *Canvas) Close() error {
	c.letterbox.Close()
	return c.img.Close()
}
