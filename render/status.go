package render

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/wirebond/bondtrack"
	"gocv.io/x/gocv"
)

// WaitingText is shown until any target is located
const WaitingText = "waiting for target... (q to quit)"

// Badge draws text on a filled box in the top left corner of img
func Badge(img *gocv.Mat, text string, bg color.RGBA, font Font) {

	margin := 10
	rect := image.Rectangle{Max: font.Box(text)}.Add(image.Pt(margin, margin))

	gocv.Rectangle(img, rect, bg, -1)
	font.Draw(img, text, image.Pt(rect.Min.X+font.LeftPad, rect.Max.Y-font.BottomPad))
}

// StatusLine draws text along the bottom edge of img
func StatusLine(img *gocv.Mat, text string, font Font) {

	rect := image.Rect(0, img.Rows()-font.Box(text).Y, img.Cols(), img.Rows())

	gocv.Rectangle(img, rect, Black, -1)
	font.Draw(img, text, image.Pt(font.LeftPad, img.Rows()-font.BottomPad))
}

// StatsText formats the frame rate and detector counters for the status line
func StatsText(fps float64, stats bondtrack.DetectorStats) string {
	return fmt.Sprintf("%.1f fps  det %d  drop %d  fail %d  infer %s",
		fps, stats.Inferences, stats.Dropped, stats.Failures,
		stats.LastInference.Round(time.Millisecond))
}
