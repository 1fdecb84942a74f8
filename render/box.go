package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/wirebond/bondtrack"
	"github.com/wirebond/bondtrack/tracker"
	"gocv.io/x/gocv"
)

// boxLabel is a label rendered after all boxes so it stays on top
type boxLabel struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

// TargetLabel returns the label text describing a target state
func TargetLabel(st tracker.State) string {

	switch {
	case st.OK:
		return fmt.Sprintf("%s %s", st.Kind, st.Algorithm)
	case st.Valid:
		return fmt.Sprintf("%s lost %d", st.Kind, st.Misses)
	default:
		return st.Kind.String()
	}
}

// Targets renders the bounding box and label of every tracked target.
// Targets predicted without the visual tracker are drawn in gray.
func Targets(img *gocv.Mat, snap tracker.Snapshot, font Font, lineThickness int) {

	// keep a record of all box labels for later rendering
	boxLabels := make([]boxLabel, 0, bondtrack.NumTargets)

	for _, st := range snap.Targets {

		if !st.Valid {
			continue
		}

		useClr := TargetColor(st.Kind)
		thickness := lineThickness

		if !st.OK {
			useClr = Gray
			thickness = max(1, lineThickness/2)
		}

		gocv.Rectangle(img, st.Box, useClr, thickness)

		boxLabels = append(boxLabels,
			placeLabel(st.Box, TargetLabel(st), useClr, font, lineThickness))
	}

	drawLabels(img, boxLabels, font)
}

// Detections renders the raw detector boxes with their confidence using a
// thin outline
func Detections(img *gocv.Mat, set bondtrack.DetectionSet, font Font) {

	boxLabels := make([]boxLabel, 0, bondtrack.NumTargets)

	for _, kind := range bondtrack.TargetKinds {

		det, ok := set.Get(kind)

		if !ok {
			continue
		}

		useClr := TargetColor(kind)
		gocv.Rectangle(img, det.Box, useClr, 1)

		text := fmt.Sprintf("%s %.2f", kind, det.Confidence)
		label := placeLabel(det.Box, text, useClr, font, 1)

		// place detection labels under the box to avoid the tracker label
		shift := det.Box.Dy() + label.rect.Dy()
		label.rect = label.rect.Add(image.Pt(0, shift))
		label.textPos = label.textPos.Add(image.Pt(0, shift))

		boxLabels = append(boxLabels, label)
	}

	drawLabels(img, boxLabels, font)
}

// placeLabel calculates where the label of a box is drawn, the label sits
// on top of the box edge
func placeLabel(box image.Rectangle, text string, clr color.RGBA, font Font,
	lineThickness int) boxLabel {

	size := font.Box(text)

	var left int

	switch font.Alignment {
	case AlignCenter:
		left = (box.Min.X+box.Max.X)/2 - size.X/2
	case AlignRight:
		left = box.Max.X - size.X + lineThickness/2
	default:
		left = box.Min.X - lineThickness/2
	}

	rect := image.Rect(left, box.Min.Y-size.Y, left+size.X, box.Min.Y)

	return boxLabel{
		rect:    rect,
		clr:     clr,
		text:    text,
		textPos: image.Pt(left+font.LeftPad, box.Min.Y-font.BottomPad),
	}
}

// drawLabels draws all precalculated box labels so they are the top most
// layer on the image
func drawLabels(img *gocv.Mat, boxLabels []boxLabel, font Font) {

	for _, label := range boxLabels {
		gocv.Rectangle(img, label.rect, label.clr, -1)
		font.Draw(img, label.text, label.textPos)
	}
}
