package vision

import (
	"math"
	"slices"
)

// CircleParams configures gradient Hough circle detection.
type CircleParams struct {
	// MinDist is the minimum distance between accepted centres
	MinDist float64
	// CannyHigh is the upper Canny threshold; the lower one is half of it
	CannyHigh float64
	// Threshold is the vote count a centre and its radius must exceed
	Threshold int
	MinRadius int
	MaxRadius int
}

// DashboardCircleParams are the circle settings of the dashboard heuristic.
var DashboardCircleParams = CircleParams{
	MinDist:   20,
	CannyHigh: 50,
	Threshold: 30,
	MinRadius: 5,
	MaxRadius: 50,
}

// Circle is one detected circle.
type Circle struct {
	X, Y   int
	Radius int
	Votes  int
}

// HoughCircles finds circles in a grayscale plane. The plane is smoothed
// before edges are taken. Every edge pixel votes for centres along its
// gradient direction; centres are local maxima of the
// accumulator, strongest first, and each keeps the radius most edge pixels
// agree on.
func HoughCircles(gray []uint8, w, h int, p CircleParams) []Circle {
	if w < 3 || h < 3 || p.MaxRadius < p.MinRadius {
		return nil
	}
	g := sobel(blur5(gray, w, h), w, h)
	edges := cannyFromGradient(g, p.CannyHigh/2, p.CannyHigh)

	acc := make([]int32, w*h)
	for i, edge := range edges {
		if !edge || (g.dx[i] == 0 && g.dy[i] == 0) {
			continue
		}
		x, y := float64(i%w), float64(i/w)
		norm := math.Hypot(float64(g.dx[i]), float64(g.dy[i]))
		ux, uy := float64(g.dx[i])/norm, float64(g.dy[i])/norm
		for _, sign := range [2]float64{1, -1} {
			for r := p.MinRadius; r <= p.MaxRadius; r++ {
				cx := int(math.Round(x + sign*ux*float64(r)))
				cy := int(math.Round(y + sign*uy*float64(r)))
				if cx < 0 || cy < 0 || cx >= w || cy >= h {
					break
				}
				acc[cy*w+cx]++
			}
		}
	}

	var centres []int
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			v := acc[i]
			if int(v) > p.Threshold &&
				v > acc[i-1] && v >= acc[i+1] &&
				v > acc[i-w] && v >= acc[i+w] {
				centres = append(centres, i)
			}
		}
	}
	slices.SortStableFunc(centres, func(a, b int) int {
		return int(acc[b]) - int(acc[a])
	})

	minDist2 := p.MinDist * p.MinDist
	hist := make([]int, p.MaxRadius+1)
	var circles []Circle
	for _, c := range centres {
		cx, cy := c%w, c/w
		if slices.ContainsFunc(circles, func(k Circle) bool {
			dx, dy := float64(k.X-cx), float64(k.Y-cy)
			return dx*dx+dy*dy < minDist2
		}) {
			continue
		}

		clear(hist)
		for y := max(cy-p.MaxRadius, 0); y <= min(cy+p.MaxRadius, h-1); y++ {
			for x := max(cx-p.MaxRadius, 0); x <= min(cx+p.MaxRadius, w-1); x++ {
				if !edges[y*w+x] {
					continue
				}
				r := int(math.Round(math.Hypot(float64(x-cx), float64(y-cy))))
				if r >= p.MinRadius && r <= p.MaxRadius {
					hist[r]++
				}
			}
		}

		best := p.MinRadius
		for r := p.MinRadius + 1; r <= p.MaxRadius; r++ {
			if hist[r] > hist[best] {
				best = r
			}
		}
		if hist[best] > p.Threshold {
			circles = append(circles, Circle{X: cx, Y: cy, Radius: best, Votes: int(acc[c])})
		}
	}
	return circles
}
