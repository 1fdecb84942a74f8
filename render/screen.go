package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"

	"gocv.io/x/gocv"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Screen renders the full window status screens shown while no camera
// session is running, such as searching for a camera or a camera error
type Screen struct {
	Width  int
	Height int
	// palette
	Background color.RGBA
	Border     color.RGBA
	Title      color.RGBA
	Subtitle   color.RGBA
	// Face used for all text, when nil the built in bitmap face is used
	// and enlarged by the scale factors
	Face          font.Face
	TitleScale    int
	SubtitleScale int
	// Margin is the inset of the border frame from the window edge
	Margin int
}

// NewScreen returns a light themed screen of the given size
func NewScreen(width, height int) Screen {
	return Screen{
		Width:         width,
		Height:        height,
		Background:    ScreenBackground,
		Border:        ScreenBorder,
		Title:         ScreenTitle,
		Subtitle:      ScreenSubtitle,
		TitleScale:    3,
		SubtitleScale: 2,
		Margin:        24,
	}
}

// LoadFace loads a TrueType font file at the given point size
func LoadFace(ttfFile string, size float64) (font.Face, error) {

	fontBytes, err := os.ReadFile(ttfFile)

	if err != nil {
		return nil, fmt.Errorf("error reading font file: %w", err)
	}

	f, err := opentype.Parse(fontBytes)

	if err != nil {
		return nil, fmt.Errorf("error parsing font: %w", err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})

	if err != nil {
		return nil, fmt.Errorf("error creating font face: %w", err)
	}

	return face, nil
}

// Image renders the screen with a centered title and subtitle
func (s Screen) Image(title, subtitle string) *image.RGBA {

	img := image.NewRGBA(image.Rect(0, 0, s.Width, s.Height))

	draw.Draw(img, img.Bounds(), image.NewUniform(s.Background), image.Point{}, draw.Src)

	// frame border
	frame := img.Bounds().Inset(s.Margin)

	if !frame.Empty() {
		border := image.NewUniform(s.Border)
		thick := 2

		draw.Draw(img, image.Rect(frame.Min.X, frame.Min.Y, frame.Max.X, frame.Min.Y+thick), border, image.Point{}, draw.Src)
		draw.Draw(img, image.Rect(frame.Min.X, frame.Max.Y-thick, frame.Max.X, frame.Max.Y), border, image.Point{}, draw.Src)
		draw.Draw(img, image.Rect(frame.Min.X, frame.Min.Y, frame.Min.X+thick, frame.Max.Y), border, image.Point{}, draw.Src)
		draw.Draw(img, image.Rect(frame.Max.X-thick, frame.Min.Y, frame.Max.X, frame.Max.Y), border, image.Point{}, draw.Src)
	}

	face, titleScale, subScale := s.faces()
	cx := s.Width / 2

	titleH := textHeight(face) * titleScale
	subH := textHeight(face) * subScale
	gap := subH / 2

	// title and subtitle centered together as one block
	top := (s.Height - titleH - gap - subH) / 2

	drawText(img, face, titleScale, title, image.Pt(cx, top+titleH/2), s.Title)
	drawText(img, face, subScale, subtitle, image.Pt(cx, top+titleH+gap+subH/2), s.Subtitle)

	return img
}

// Mat renders the screen into a BGR Mat, the caller must Close it
func (s Screen) Mat(title, subtitle string) (gocv.Mat, error) {

	rgba := s.Image(title, subtitle)

	// Convert image.RGBA to gocv.Mat
	imgRGBA, err := gocv.NewMatFromBytes(rgba.Bounds().Dy(), rgba.Bounds().Dx(),
		gocv.MatTypeCV8UC4, rgba.Pix)

	if err != nil || imgRGBA.Empty() {
		return gocv.NewMat(), fmt.Errorf("error creating Mat from RGBA: %v", err)
	}

	defer imgRGBA.Close()

	out := gocv.NewMat()
	gocv.CvtColor(imgRGBA, &out, gocv.ColorRGBAToBGR)

	return out, nil
}

// faces returns the face and scale factors to draw with
func (s Screen) faces() (font.Face, int, int) {

	if s.Face != nil {
		return s.Face, 1, 1
	}

	return basicfont.Face7x13, max(1, s.TitleScale), max(1, s.SubtitleScale)
}

// textHeight is the line height of face in pixels
func textHeight(face font.Face) int {
	m := face.Metrics()
	return (m.Ascent + m.Descent).Ceil()
}

// drawText draws text enlarged by scale with its center at center
func drawText(dst *image.RGBA, face font.Face, scale int, text string,
	center image.Point, clr color.RGBA) {

	if text == "" {
		return
	}

	width := font.MeasureString(face, text).Ceil()
	height := textHeight(face)

	// render at native size then scale up, nearest neighbour keeps the
	// bitmap glyphs crisp
	tmp := image.NewRGBA(image.Rect(0, 0, width, height))

	d := &font.Drawer{
		Dst:  tmp,
		Src:  image.NewUniform(clr),
		Face: face,
		Dot:  fixed.Point26_6{X: 0, Y: face.Metrics().Ascent},
	}
	d.DrawString(text)

	w, h := width*scale, height*scale
	dr := image.Rect(center.X-w/2, center.Y-h/2, center.X-w/2+w, center.Y-h/2+h)

	xdraw.NearestNeighbor.Scale(dst, dr, tmp, tmp.Bounds(), xdraw.Over, nil)
}
