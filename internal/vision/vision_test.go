package vision

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardoc/cardoc-go/internal/errors"
	"github.com/cardoc/cardoc-go/internal/logger"
)

var (
	neutralGray = color.RGBA{R: 128, G: 128, B: 128, A: 255}
	brightRed   = color.RGBA{R: 204, A: 255}
	white       = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black       = color.RGBA{A: 255}
)

func canvas(w, h int, bg color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, bg)
		}
	}
	return img
}

func fillDisc(img *image.RGBA, cx, cy, r int, c color.RGBA) {
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			if (x-cx)*(x-cx)+(y-cy)*(y-cy) <= r*r {
				img.SetRGBA(x, y, c)
			}
		}
	}
}

func TestRGBToHSV(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		r, g, b uint8
		h, s, v uint8
	}{
		{"red", 255, 0, 0, 0, 255, 255},
		{"green", 0, 255, 0, 60, 255, 255},
		{"blue", 0, 0, 255, 120, 255, 255},
		{"orange", 255, 128, 0, 15, 255, 255},
		{"rose wraps", 255, 0, 128, 165, 255, 255},
		{"gray", 128, 128, 128, 0, 0, 128},
		{"black", 0, 0, 0, 0, 0, 0},
	}
	for _, tt := range tests {
		h, s, v := rgbToHSV(tt.r, tt.g, tt.b)
		assert.Equal(t, [3]uint8{tt.h, tt.s, tt.v}, [3]uint8{h, s, v}, tt.name)
	}
}

func TestGrayBT601(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint8(255), grayBT601(255, 255, 255))
	assert.Equal(t, uint8(76), grayBT601(255, 0, 0))
	assert.Equal(t, uint8(0), grayBT601(0, 0, 0))
}

func TestColorClasses(t *testing.T) {
	t.Parallel()

	names := []string{}
	for _, c := range ColorClasses() {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"red", "yellow", "orange", "green", "blue", "amber"}, names)

	assert.Equal(t, SeverityCritical, SeverityOf("red"))
	assert.Equal(t, SeverityHigh, SeverityOf("amber"))
	assert.Equal(t, SeverityMedium, SeverityOf("yellow"))
	assert.Equal(t, SeverityLow, SeverityOf("blue"))
	assert.Equal(t, SeverityMedium, SeverityOf("purple"))

	red := colorClasses[0]
	assert.True(t, red.contains(175, 200, 200))
	assert.True(t, red.contains(5, 50, 50))
	assert.False(t, red.contains(5, 49, 200))
}

func TestComponents_EightConnected(t *testing.T) {
	t.Parallel()

	// 5x4 mask: a diagonal pair and a separate 2x2 block
	mask := []bool{
		true, false, false, false, false,
		false, true, false, true, true,
		false, false, false, true, true,
		false, false, false, false, false,
	}
	regions := components(mask, 5, 4)
	require.Len(t, regions, 2)
	assert.Equal(t, Region{X: 0, Y: 0, Width: 2, Height: 2, Area: 2}, regions[0])
	assert.Equal(t, Region{X: 3, Y: 1, Width: 2, Height: 2, Area: 4}, regions[1])
	assert.Equal(t, Point{X: 4, Y: 2}, regions[1].Center())
}

func TestLightConfidence(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.0, LightConfidence(200, 1, 0.8), 1e-12)
	assert.InDelta(t, 0.8, LightConfidence(30, 1, 0.8), 1e-12)
	assert.InDelta(t, 0.8, LightConfidence(50, 1, 0.9), 1e-12, "area bounds are exclusive")
	assert.InDelta(t, 0.4, LightConfidence(600, 2.5, 0.3), 1e-12)
	assert.InDelta(t, 0.0, LightConfidence(1500, 5, 0.1), 1e-12)
}

func TestDetectLights_RedCircle(t *testing.T) {
	t.Parallel()

	img := canvas(200, 200, neutralGray)
	fillDisc(img, 100, 100, 8, brightRed)

	lights := DetectLights(NewFrame(img))
	require.Len(t, lights, 1)

	l := lights[0]
	assert.Equal(t, "red", l.Color)
	assert.Equal(t, SeverityCritical, l.Severity)
	assert.Greater(t, l.Confidence, 0.5)
	assert.Equal(t, 197, l.Area)
	assert.InDelta(t, 1.0, l.AspectRatio, 0)
	assert.InDelta(t, 0.71, l.Brightness, 0)
	assert.Equal(t, Point{X: 100, Y: 100}, l.Position)
	assert.Equal(t, Box{X: 92, Y: 92, Width: 17, Height: 17}, l.BoundingBox)
}

func TestDetectLights_SizeLimits(t *testing.T) {
	t.Parallel()

	img := canvas(300, 120, neutralGray)
	fillDisc(img, 40, 60, 2, brightRed)   // 13 pixels, too small
	fillDisc(img, 200, 60, 40, brightRed) // far over the area limit
	assert.Empty(t, DetectLights(NewFrame(img)))
}

func TestDetectLights_CloseLightsCollapse(t *testing.T) {
	t.Parallel()

	// Two distinct lights 20px apart are merged; the radius does not scale
	// with resolution.
	img := canvas(200, 200, neutralGray)
	fillDisc(img, 60, 100, 5, brightRed)
	fillDisc(img, 80, 100, 5, brightRed)

	lights := DetectLights(NewFrame(img))
	require.Len(t, lights, 1)
	assert.Equal(t, Point{X: 60, Y: 100}, lights[0].Position)

	img = canvas(200, 200, neutralGray)
	fillDisc(img, 60, 100, 5, brightRed)
	fillDisc(img, 100, 100, 5, brightRed)
	assert.Len(t, DetectLights(NewFrame(img)), 2)
}

func TestDedupe(t *testing.T) {
	t.Parallel()

	lights := []Light{
		{Color: "yellow", Position: Point{X: 10, Y: 10}, Confidence: 0.5},
		{Color: "red", Position: Point{X: 20, Y: 10}, Confidence: 0.9},
		{Color: "green", Position: Point{X: 100, Y: 10}, Confidence: 0.7},
		{Color: "blue", Position: Point{X: 130, Y: 10}, Confidence: 0.7},
	}
	kept := Dedupe(lights)

	colors := []string{}
	for _, l := range kept {
		colors = append(colors, l.Color)
	}
	// blue is exactly 30px from green and survives
	assert.Equal(t, []string{"red", "green", "blue"}, colors)
	assert.Equal(t, "yellow", lights[0].Color, "input is not reordered")
	assert.Empty(t, Dedupe(nil))
}

func TestCanny_StepEdge(t *testing.T) {
	t.Parallel()

	const w, h = 20, 20
	src := make([]uint8, w*h)
	for y := range h {
		for x := w / 2; x < w; x++ {
			src[y*w+x] = 255
		}
	}

	edges := canny(src, w, h, 50, 150)
	var count int
	for i, e := range edges {
		if e {
			count++
			assert.Equal(t, 9, i%w)
		}
	}
	assert.Equal(t, h, count)
}

func TestHoughCircles(t *testing.T) {
	t.Parallel()

	img := canvas(240, 100, black)
	for _, cx := range []int{40, 120, 200} {
		fillDisc(img, cx, 50, 20, white)
	}
	f := NewFrame(img)

	circles := HoughCircles(f.Gray, f.Width, f.Height, DashboardCircleParams)
	require.Len(t, circles, 3)
	for _, c := range circles {
		assert.Equal(t, 50, c.Y)
		assert.Equal(t, 20, c.Radius)
		assert.Contains(t, []int{40, 120, 200}, c.X)
	}

	blank := NewFrame(canvas(60, 60, black))
	assert.Empty(t, HoughCircles(blank.Gray, blank.Width, blank.Height, DashboardCircleParams))
}

func TestDetectDashboard(t *testing.T) {
	t.Parallel()

	img := canvas(240, 100, black)
	for _, cx := range []int{40, 120, 200} {
		fillDisc(img, cx, 50, 20, white)
	}
	d := DetectDashboard(NewFrame(img))
	assert.True(t, d.Detected)
	assert.Equal(t, 3, d.Circles)
	assert.Greater(t, d.HorizontalPixels, 100)

	d = DetectDashboard(NewFrame(canvas(50, 50, black)))
	assert.False(t, d.Detected)
	assert.Zero(t, d.HorizontalPixels)
	assert.Zero(t, d.EdgeDensity)

	// any non-black plane survives the opening
	d = DetectDashboard(NewFrame(canvas(50, 50, neutralGray)))
	assert.True(t, d.Detected)
}

func TestOpenHorizontal(t *testing.T) {
	t.Parallel()

	// a 30px bright run survives, a 10px run does not
	const w = 60
	src := make([]uint8, w)
	for x := 0; x < 30; x++ {
		src[x] = 200
	}
	for x := 40; x < 50; x++ {
		src[x] = 200
	}
	out := openHorizontal(src, w, 1, 25)
	for x := range w {
		want := uint8(0)
		if x < 30 {
			want = 200
		}
		assert.Equal(t, want, out[x], "x=%d", x)
	}
}

func TestAssessQuality(t *testing.T) {
	t.Parallel()

	q, err := AssessQuality(NewFrame(canvas(40, 40, neutralGray)))
	require.NoError(t, err)
	assert.InDelta(t, 0.3, q.Score, 0)
	assert.Zero(t, q.Sharpness)
	assert.InDelta(t, 0.5, q.Brightness, 0)
	assert.Equal(t, []string{IssueBlurry, IssueLowContrast}, q.Issues)

	q, err = AssessQuality(NewFrame(canvas(40, 40, black)))
	require.NoError(t, err)
	assert.Contains(t, q.Issues, IssueTooDark)

	q, err = AssessQuality(NewFrame(canvas(40, 40, white)))
	require.NoError(t, err)
	assert.Contains(t, q.Issues, IssueOverexposed)

	checker := canvas(40, 40, black)
	for y := range 40 {
		for x := range 40 {
			if (x+y)%2 == 0 {
				checker.SetRGBA(x, y, white)
			}
		}
	}
	q, err = AssessQuality(NewFrame(checker))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, q.Sharpness, 0)
	assert.InDelta(t, 0.5, q.Contrast, 0)
	assert.Empty(t, q.Issues)

	_, err = AssessQuality(&Frame{})
	require.Error(t, err)
	assert.Equal(t, Quality{Score: 0.5, Issues: []string{IssueAnalysisFailed}}, FailedQuality(err))
}

func TestDecode(t *testing.T) {
	t.Parallel()

	img := canvas(32, 16, neutralGray)

	var pngBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, img))
	f, err := Decode(pngBuf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "png", f.Format)
	assert.Equal(t, "32x16", f.Dimensions())
	assert.Equal(t, uint8(128), f.Gray[0])

	var jpgBuf bytes.Buffer
	require.NoError(t, jpeg.Encode(&jpgBuf, img, &jpeg.Options{Quality: 90}))
	f, err = Decode(jpgBuf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "jpeg", f.Format)
	assert.Equal(t, 32*16, f.Pixels())

	_, err = Decode([]byte("definitely not an image"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUndecodable)
	assert.Equal(t, MsgUndecodable, err.Error())
	assert.True(t, errors.IsCategory(err, errors.CategoryImageDecode))
}

func TestDecode_TranslucentPNGKeepsColour(t *testing.T) {
	t.Parallel()

	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := range 4 {
		for x := range 4 {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, A: 128})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	f, err := Decode(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, [3]uint8{0, 255, 255}, [3]uint8{f.Hue[0], f.Sat[0], f.Val[0]})

	// premultiplied sources are un-premultiplied first
	pm := image.NewRGBA(image.Rect(0, 0, 1, 1))
	pm.SetRGBA(0, 0, color.RGBA{R: 128, A: 128})
	f = NewFrame(pm)
	assert.Equal(t, uint8(255), f.Val[0])
	assert.Equal(t, uint8(255), f.Sat[0])
}

func TestExtract(t *testing.T) {
	t.Parallel()

	img := canvas(200, 200, neutralGray)
	fillDisc(img, 100, 100, 8, brightRed)
	f := NewFrame(img)

	e := NewExtractor(logger.NewNopLogger())
	first := e.Extract(f)
	require.Len(t, first.Lights, 1)
	assert.True(t, first.Dashboard.Detected)
	assert.GreaterOrEqual(t, first.Quality.Score, 0.0)
	assert.LessOrEqual(t, first.Quality.Score, 1.0)

	assert.Equal(t, first, e.Extract(f))
}

func TestExtract_EmptyFrameDegrades(t *testing.T) {
	t.Parallel()

	out := NewExtractor(logger.NewNopLogger()).Extract(NewFrame(image.NewRGBA(image.Rect(0, 0, 0, 0))))
	assert.False(t, out.Dashboard.Detected)
	assert.Empty(t, out.Lights)
	assert.Equal(t, []string{IssueAnalysisFailed}, out.Quality.Issues)
	assert.InDelta(t, 0.5, out.Quality.Score, 0)
}

func TestGuard_RecoversPanic(t *testing.T) {
	t.Parallel()

	got := guard(logger.NewNopLogger(), "boom", func(err error) string { return "fallback: " + err.Error() },
		func() (string, error) {
			var lights []Light
			return lights[3].Color, nil
		})
	assert.Contains(t, got, "fallback: boom panicked")
}
