package vision

// Region is one 8-connected component of a binary mask.
type Region struct {
	X, Y          int
	Width, Height int
	Area          int
}

// Center is the integer centre of the bounding box.
func (r Region) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// components labels the 8-connected foreground regions of mask in raster
// order of their first pixel.
func components(mask []bool, w, h int) []Region {
	seen := make([]bool, len(mask))
	var regions []Region
	var stack []int

	for start, on := range mask {
		if !on || seen[start] {
			continue
		}
		seen[start] = true
		stack = append(stack[:0], start)
		minX, minY := start%w, start/w
		maxX, maxY := minX, minY
		area := 0

		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			area++
			x, y := i%w, i/w
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)

			for dy := -1; dy <= 1; dy++ {
				ny := y + dy
				if ny < 0 || ny >= h {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					nx := x + dx
					if nx < 0 || nx >= w {
						continue
					}
					j := ny*w + nx
					if mask[j] && !seen[j] {
						seen[j] = true
						stack = append(stack, j)
					}
				}
			}
		}

		regions = append(regions, Region{
			X: minX, Y: minY,
			Width: maxX - minX + 1, Height: maxY - minY + 1,
			Area: area,
		})
	}
	return regions
}

// colorMask marks the pixels of f that fall in any range of c.
func colorMask(f *Frame, c *ColorClass) []bool {
	mask := make([]bool, f.Pixels())
	for i := range mask {
		mask[i] = c.contains(f.Hue[i], f.Sat[i], f.Val[i])
	}
	return mask
}

// meanValue is the mean V channel over the region's bounding box.
func meanValue(f *Frame, r Region) float64 {
	var total int
	for y := r.Y; y < r.Y+r.Height; y++ {
		row := f.Val[y*f.Width+r.X : y*f.Width+r.X+r.Width]
		for _, v := range row {
			total += int(v)
		}
	}
	return float64(total) / float64(r.Width*r.Height)
}
