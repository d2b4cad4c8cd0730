package vision

import "math"

// gradient holds 3x3 Sobel derivatives of a plane.
type gradient struct {
	dx, dy []int32
	w, h   int
}

// clampIndex replicates edge pixels for out-of-range coordinates.
func clampIndex(i, n int) int {
	return min(max(i, 0), n-1)
}

// reflect101 mirrors out-of-range coordinates without repeating the edge.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

func sobel(src []uint8, w, h int) gradient {
	g := gradient{dx: make([]int32, w*h), dy: make([]int32, w*h), w: w, h: h}
	at := func(x, y int) int32 {
		return int32(src[clampIndex(y, h)*w+clampIndex(x, w)])
	}
	for y := range h {
		for x := range w {
			tl, t, tr := at(x-1, y-1), at(x, y-1), at(x+1, y-1)
			l, r := at(x-1, y), at(x+1, y)
			bl, b, br := at(x-1, y+1), at(x, y+1), at(x+1, y+1)
			g.dx[y*w+x] = (tr + 2*r + br) - (tl + 2*l + bl)
			g.dy[y*w+x] = (bl + 2*b + br) - (tl + 2*t + tr)
		}
	}
	return g
}

// canny returns the edge map of src using L1 gradient magnitude, non-maximum
// suppression and hysteresis between low and high.
func canny(src []uint8, w, h int, low, high float64) []bool {
	return cannyFromGradient(sobel(src, w, h), low, high)
}

var (
	tan22 = math.Tan(math.Pi / 8)
	tan67 = math.Tan(3 * math.Pi / 8)
)

func cannyFromGradient(g gradient, low, high float64) []bool {
	w, h := g.w, g.h
	mag := make([]float64, w*h)
	for i := range mag {
		mag[i] = math.Abs(float64(g.dx[i])) + math.Abs(float64(g.dy[i]))
	}
	magAt := func(x, y int) float64 {
		if x < 0 || y < 0 || x >= w || y >= h {
			return 0
		}
		return mag[y*w+x]
	}

	const (
		none = iota
		weak
		strong
	)
	state := make([]uint8, w*h)
	var stack []int

	for y := range h {
		for x := range w {
			i := y*w + x
			m := mag[i]
			if m <= low {
				continue
			}
			ax, ay := math.Abs(float64(g.dx[i])), math.Abs(float64(g.dy[i]))
			var isMax bool
			switch {
			case ay < ax*tan22:
				isMax = m > magAt(x-1, y) && m >= magAt(x+1, y)
			case ay > ax*tan67:
				isMax = m > magAt(x, y-1) && m >= magAt(x, y+1)
			default:
				s := 1
				if (g.dx[i] < 0) != (g.dy[i] < 0) {
					s = -1
				}
				isMax = m > magAt(x-s, y-1) && m > magAt(x+s, y+1)
			}
			if !isMax {
				continue
			}
			if m > high {
				state[i] = strong
				stack = append(stack, i)
			} else {
				state[i] = weak
			}
		}
	}

	edges := make([]bool, w*h)
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if edges[i] {
			continue
		}
		edges[i] = true
		x, y := i%w, i/w
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if state[j] != none && !edges[j] {
					stack = append(stack, j)
				}
			}
		}
	}
	return edges
}

// openHorizontal erodes then dilates src with a kx-wide, one-pixel-high
// rectangle. Pixels outside the image do not take part.
func openHorizontal(src []uint8, w, h, kx int) []uint8 {
	return morphRows(morphRows(src, w, h, kx, minU8), w, h, kx, maxU8)
}

func minU8(a, b uint8) uint8 { return min(a, b) }

func maxU8(a, b uint8) uint8 { return max(a, b) }

func morphRows(src []uint8, w, h, kx int, pick func(a, b uint8) uint8) []uint8 {
	out := make([]uint8, len(src))
	left := kx / 2
	right := kx - 1 - left
	for y := range h {
		row := src[y*w : (y+1)*w]
		for x := range w {
			v := row[x]
			for k := max(x-left, 0); k <= min(x+right, w-1); k++ {
				v = pick(v, row[k])
			}
			out[y*w+x] = v
		}
	}
	return out
}

// laplacian applies the 4-neighbour Laplacian with reflected borders.
func laplacian(src []uint8, w, h int) []float64 {
	out := make([]float64, w*h)
	at := func(x, y int) float64 {
		return float64(src[reflect101(y, h)*w+reflect101(x, w)])
	}
	for y := range h {
		for x := range w {
			out[y*w+x] = at(x-1, y) + at(x+1, y) + at(x, y-1) + at(x, y+1) - 4*at(x, y)
		}
	}
	return out
}

// blur5 smooths src with the separable 5x5 binomial kernel and replicated
// borders.
func blur5(src []uint8, w, h int) []uint8 {
	kernel := [5]int{1, 4, 6, 4, 1}
	tmp := make([]int, w*h)
	for y := range h {
		for x := range w {
			var s int
			for k, c := range kernel {
				s += c * int(src[y*w+clampIndex(x+k-2, w)])
			}
			tmp[y*w+x] = s
		}
	}
	out := make([]uint8, w*h)
	for y := range h {
		for x := range w {
			var s int
			for k, c := range kernel {
				s += c * tmp[clampIndex(y+k-2, h)*w+x]
			}
			out[y*w+x] = uint8((s + 128) >> 8)
		}
	}
	return out
}
