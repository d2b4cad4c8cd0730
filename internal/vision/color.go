package vision

import "math"

// grayBT601 weights RGB with the BT.601 luma coefficients in 14-bit fixed
// point, rounding to nearest.
func grayBT601(r, g, b uint8) uint8 {
	return uint8((uint32(r)*4899 + uint32(g)*9617 + uint32(b)*1868 + 1<<13) >> 14)
}

// rgbToHSV converts to 8-bit HSV: hue in [0,180), saturation and value in
// [0,255].
func rgbToHSV(r, g, b uint8) (h, s, v uint8) {
	maxc := max(r, g, b)
	minc := min(r, g, b)
	diff := int(maxc) - int(minc)

	v = maxc
	if maxc == 0 {
		return 0, 0, 0
	}
	s = uint8(math.Round(float64(diff) * 255 / float64(maxc)))
	if diff == 0 {
		return 0, s, v
	}

	ri, gi, bi := int(r), int(g), int(b)
	var sector int
	switch maxc {
	case r:
		sector = gi - bi
	case g:
		sector = bi - ri + 2*diff
	default:
		sector = ri - gi + 4*diff
	}
	hue := int(math.Round(float64(sector) * 30 / float64(diff)))
	if hue < 0 {
		hue += 180
	}
	if hue >= 180 {
		hue -= 180
	}
	return uint8(hue), s, v
}

// hsvRange is an inclusive box in HSV space.
type hsvRange struct {
	lo, hi [3]uint8
}

func (r hsvRange) contains(h, s, v uint8) bool {
	return h >= r.lo[0] && h <= r.hi[0] &&
		s >= r.lo[1] && s <= r.hi[1] &&
		v >= r.lo[2] && v <= r.hi[2]
}

// Severity of a warning light colour
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// ColorClass is one named warning-light colour with its HSV ranges.
type ColorClass struct {
	Name     string
	Severity Severity
	ranges   []hsvRange
}

func (c *ColorClass) contains(h, s, v uint8) bool {
	for _, r := range c.ranges {
		if r.contains(h, s, v) {
			return true
		}
	}
	return false
}

func span(hLo, hHi uint8) hsvRange {
	return hsvRange{lo: [3]uint8{hLo, 50, 50}, hi: [3]uint8{hHi, 255, 255}}
}

// colorClasses is scanned in this order and detections are merged in it.
var colorClasses = []*ColorClass{
	{Name: "red", Severity: SeverityCritical, ranges: []hsvRange{span(0, 10), span(170, 180)}},
	{Name: "yellow", Severity: SeverityMedium, ranges: []hsvRange{span(20, 30)}},
	{Name: "orange", Severity: SeverityHigh, ranges: []hsvRange{span(10, 20)}},
	{Name: "green", Severity: SeverityLow, ranges: []hsvRange{span(40, 80)}},
	{Name: "blue", Severity: SeverityLow, ranges: []hsvRange{span(100, 130)}},
	{Name: "amber", Severity: SeverityHigh, ranges: []hsvRange{span(15, 25)}},
}

// ColorClasses returns the colour table in scan order.
func ColorClasses() []*ColorClass {
	return append([]*ColorClass(nil), colorClasses...)
}

// SeverityOf returns the severity of a colour name, medium when unknown.
func SeverityOf(color string) Severity {
	for _, c := range colorClasses {
		if c.Name == color {
			return c.Severity
		}
	}
	return SeverityMedium
}
