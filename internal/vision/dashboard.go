package vision

// Dashboard heuristic thresholds
const (
	horizontalKernelWidth = 25
	minHorizontalPixels   = 100
	minCircles            = 2
	edgeCannyLow          = 50
	edgeCannyHigh         = 150
	minEdgeDensity        = 0.05
	maxEdgeDensity        = 0.3
)

// Dashboard reports the dashboard-presence signals of a frame. Any one
// signal is enough for Detected.
type Dashboard struct {
	Detected         bool    `json:"detected"`
	HorizontalPixels int     `json:"horizontal_pixels"`
	Circles          int     `json:"circles"`
	EdgeDensity      float64 `json:"edge_density"`
}

// DetectDashboard checks for horizontal structure, gauge-like circles and a
// plausible edge density.
func DetectDashboard(f *Frame) Dashboard {
	var d Dashboard

	for _, v := range openHorizontal(f.Gray, f.Width, f.Height, horizontalKernelWidth) {
		if v > 0 {
			d.HorizontalPixels++
		}
	}

	d.Circles = len(HoughCircles(f.Gray, f.Width, f.Height, DashboardCircleParams))

	if n := f.Pixels(); n > 0 {
		var edgeCount int
		for _, e := range canny(f.Gray, f.Width, f.Height, edgeCannyLow, edgeCannyHigh) {
			if e {
				edgeCount++
			}
		}
		d.EdgeDensity = float64(edgeCount) / float64(n)
	}

	d.Detected = d.HorizontalPixels > minHorizontalPixels ||
		d.Circles > minCircles ||
		(d.EdgeDensity > minEdgeDensity && d.EdgeDensity < maxEdgeDensity)
	return d
}
