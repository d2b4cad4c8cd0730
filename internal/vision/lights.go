package vision

import (
	"math"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/cardoc/cardoc-go/internal/dsp"
)

// Warning-light acceptance limits
const (
	// MinLightArea and MaxLightArea bound region areas, exclusive
	MinLightArea = 20
	MaxLightArea = 2000
	// LightThreshold is the confidence a region must exceed to be a light
	LightThreshold = 0.3
	// DedupeRadius is the centre distance in pixels below which two lights
	// are considered the same one. It does not scale with resolution.
	DedupeRadius = 30.0
)

// Point is a pixel position.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Box is a pixel bounding box.
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Light is one detected dashboard warning light.
type Light struct {
	Color       string   `json:"color"`
	Position    Point    `json:"position"`
	BoundingBox Box      `json:"bounding_box"`
	Area        int      `json:"area"`
	AspectRatio float64  `json:"aspect_ratio"`
	Brightness  float64  `json:"brightness"`
	Confidence  float64  `json:"confidence"`
	Severity    Severity `json:"severity"`
}

// LightConfidence scores a region by size, squareness and brightness.
func LightConfidence(area int, aspectRatio, brightness float64) float64 {
	confidence := 0.0
	a := float64(area)

	switch {
	case a > 50 && a < 500:
		confidence += 0.4
	case a > 20 && a < 1000:
		confidence += 0.2
	}

	switch {
	case aspectRatio > 0.5 && aspectRatio < 2.0:
		confidence += 0.3
	case aspectRatio > 0.3 && aspectRatio < 3.0:
		confidence += 0.1
	}

	switch {
	case brightness > 0.6:
		confidence += 0.3
	case brightness > 0.4:
		confidence += 0.2
	case brightness > 0.2:
		confidence += 0.1
	}

	return min(confidence, 1)
}

// DetectColor returns the lights of one colour class in raster order.
func DetectColor(f *Frame, c *ColorClass) []Light {
	var lights []Light
	for _, r := range components(colorMask(f, c), f.Width, f.Height) {
		if r.Area <= MinLightArea || r.Area >= MaxLightArea {
			continue
		}
		aspect := float64(r.Width) / float64(r.Height)
		brightness := meanValue(f, r) / 255
		confidence := LightConfidence(r.Area, aspect, brightness)
		if confidence <= LightThreshold {
			continue
		}
		lights = append(lights, Light{
			Color:       c.Name,
			Position:    r.Center(),
			BoundingBox: Box{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height},
			Area:        r.Area,
			AspectRatio: dsp.Round(aspect, 2),
			Brightness:  dsp.Round(brightness, 2),
			Confidence:  dsp.Round(confidence, 2),
			Severity:    c.Severity,
		})
	}
	return lights
}

// DetectLights scans every colour class concurrently, merges the results in
// table order and removes duplicates. The result is sorted by confidence,
// highest first.
func DetectLights(f *Frame) []Light {
	perColor := make([][]Light, len(colorClasses))
	var g errgroup.Group
	for i, c := range colorClasses {
		g.Go(func() error {
			perColor[i] = DetectColor(f, c)
			return nil
		})
	}
	_ = g.Wait()

	return Dedupe(slices.Concat(perColor...))
}

// Dedupe keeps, in descending confidence order, each light whose centre is
// at least DedupeRadius away from every light already kept. Equal
// confidences keep input order.
func Dedupe(lights []Light) []Light {
	sorted := slices.Clone(lights)
	slices.SortStableFunc(sorted, byConfidenceDesc)

	kept := make([]Light, 0, len(sorted))
	for _, l := range sorted {
		duplicate := false
		for _, k := range kept {
			if distance(l.Position, k.Position) < DedupeRadius {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, l)
		}
	}
	return kept
}

func byConfidenceDesc(a, b Light) int {
	switch {
	case a.Confidence > b.Confidence:
		return -1
	case a.Confidence < b.Confidence:
		return 1
	default:
		return 0
	}
}

func distance(a, b Point) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}
