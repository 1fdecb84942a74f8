package preprocess

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
	"image"
	"image/color"
	"math/rand"
	"testing"
)

var (
	black = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	grey  = color.RGBA{R: 114, G: 114, B: 114, A: 255}
)

func TestLetterboxResize(t *testing.T) {

	tests := []struct {
		srcWidth      int
		srcHeight     int
		size          int
		expectedXPad  int
		expectedYPad  int
		expectedScale float32
	}{
		{1280, 720, 640, 0, 140, 0.50},
		{800, 1000, 640, 64, 0, 0.64},
		{800, 800, 640, 0, 0, 0.8},
		{640, 480, 416, 0, 52, 0.65},
	}

	for _, tc := range tests {
		img := gocv.NewMatWithSize(tc.srcHeight, tc.srcWidth, gocv.MatTypeCV8UC3)
		resizedImg := gocv.NewMat()

		lb := NewLetterbox(tc.size, tc.size, black)
		meta := lb.Resize(img, &resizedImg)

		assert.Equal(t, tc.expectedXPad, meta.XPad, "xpad for src %dx%d", tc.srcWidth, tc.srcHeight)
		assert.Equal(t, tc.expectedYPad, meta.YPad, "ypad for src %dx%d", tc.srcWidth, tc.srcHeight)
		assert.InDelta(t, tc.expectedScale, meta.Scale, 1e-6)
		assert.Equal(t, tc.size, resizedImg.Cols())
		assert.Equal(t, tc.size, resizedImg.Rows())

		img.Close()
		resizedImg.Close()
		lb.Close()
	}
}

func TestMetaScaleInvariant(t *testing.T) {
	m := NewMeta(640, 480, 416, 416)

	want := float32(416) / float32(640)
	assert.InDelta(t, want, m.Scale, 1e-6)
	assert.Equal(t, 416, m.ResizeWidth)
	assert.Equal(t, 312, m.ResizeHeight)
	assert.Equal(t, (416-312)/2, m.YPad)
}

func TestMetaRoundTrip(t *testing.T) {

	sizes := []struct{ w, h int }{
		{640, 480}, {1280, 720}, {480, 640}, {1920, 1080}, {333, 777},
	}

	rng := rand.New(rand.NewSource(7))

	for _, sz := range sizes {
		m := NewMeta(sz.w, sz.h, 416, 416)

		for i := 0; i < 500; i++ {
			x1 := rng.Intn(sz.w - 1)
			y1 := rng.Intn(sz.h - 1)
			x2 := x1 + rng.Intn(sz.w-1-x1) + 1
			y2 := y1 + rng.Intn(sz.h-1-y1) + 1
			src := image.Rect(x1, y1, x2, y2)

			got := m.ToSource(m.ToModel(src))

			require.InDelta(t, src.Min.X, got.Min.X, 1, "src=%v got=%v", src, got)
			require.InDelta(t, src.Min.Y, got.Min.Y, 1, "src=%v got=%v", src, got)
			require.InDelta(t, src.Max.X, got.Max.X, 1, "src=%v got=%v", src, got)
			require.InDelta(t, src.Max.Y, got.Max.Y, 1, "src=%v got=%v", src, got)
		}
	}
}

func TestMetaToSourceClamps(t *testing.T) {
	m := NewMeta(640, 480, 416, 416)

	// box reaching into the padding bars on every side
	got := m.ToSource(-20, 0, 430, 416)

	assert.Equal(t, image.Rect(0, 0, 639, 479), got)
}

func TestPaddingColorDoesNotChangeGeometry(t *testing.T) {
	img := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer img.Close()

	a := gocv.NewMat()
	defer a.Close()
	b := gocv.NewMat()
	defer b.Close()

	lbBlack := NewLetterbox(416, 416, black)
	defer lbBlack.Close()
	lbGrey := NewLetterbox(416, 416, grey)
	defer lbGrey.Close()

	assert.Equal(t, lbBlack.Resize(img, &a), lbGrey.Resize(img, &b))
}
