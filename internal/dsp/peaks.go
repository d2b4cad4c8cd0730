package dsp

import (
	"math"
	"slices"
)

// FindPeaks returns the indices of local maxima in x whose value is at
// least height, in ascending order. A flat-topped peak is reported at the
// middle of its plateau (rounding down) and the first and last samples are
// never peaks. When distance > 1, peaks closer than distance samples to a
// higher peak are discarded, strongest first.
func FindPeaks(x []float64, height float64, distance int) []int {
	var peaks []int
	n := len(x)
	for i := 1; i < n-1; i++ {
		if x[i-1] >= x[i] {
			continue
		}
		ahead := i + 1
		for ahead < n-1 && x[ahead] == x[i] {
			ahead++
		}
		if x[ahead] < x[i] {
			peaks = append(peaks, (i+ahead-1)/2)
			i = ahead
		}
	}

	peaks = slices.DeleteFunc(peaks, func(p int) bool { return x[p] < height })

	if distance > 1 && len(peaks) > 1 {
		peaks = selectByDistance(peaks, x, distance)
	}
	return peaks
}

// selectByDistance keeps the highest peaks so that no two kept peaks are
// closer than distance samples.
func selectByDistance(peaks []int, x []float64, distance int) []int {
	order := make([]int, len(peaks))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case x[peaks[a]] < x[peaks[b]]:
			return -1
		case x[peaks[a]] > x[peaks[b]]:
			return 1
		default:
			return 0
		}
	})

	keep := make([]bool, len(peaks))
	for i := range keep {
		keep[i] = true
	}
	for i := len(order) - 1; i >= 0; i-- {
		j := order[i]
		if !keep[j] {
			continue
		}
		for k := j - 1; k >= 0 && peaks[j]-peaks[k] < distance; k-- {
			keep[k] = false
		}
		for k := j + 1; k < len(peaks) && peaks[k]-peaks[j] < distance; k++ {
			keep[k] = false
		}
	}

	out := peaks[:0:0]
	for i, p := range peaks {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}

// LocalMax marks x[i] > x[i-1] && x[i] >= x[i+1], treating the edges as
// repeated values, so the first element is never a local maximum.
func LocalMax(x []float64) []bool {
	out := make([]bool, len(x))
	for i, v := range x {
		left := x[max(i-1, 0)]
		right := x[min(i+1, len(x)-1)]
		out[i] = v > left && v >= right
	}
	return out
}

// PeakPickParams are the window sizes, in frames, used by PeakPick.
type PeakPickParams struct {
	PreMax  int
	PostMax int
	PreAvg  int
	PostAvg int
	Delta   float64
	Wait    int
}

// PeakPick selects frames that are the maximum of x[i-PreMax : i+PostMax],
// exceed the mean of x[i-PreAvg : i+PostAvg] by at least Delta, and come
// more than Wait frames after the previous pick.
func PeakPick(x []float64, p PeakPickParams) []int {
	var peaks []int
	last := math.MinInt / 2
	n := len(x)
	for i, v := range x {
		if v == 0 {
			continue
		}
		lo, hi := max(0, i-p.PreMax), min(n, i+p.PostMax)
		if hi <= lo {
			hi = lo + 1
		}
		if v != slices.Max(x[lo:hi]) {
			continue
		}
		lo, hi = max(0, i-p.PreAvg), min(n, i+p.PostAvg)
		if hi <= lo {
			hi = lo + 1
		}
		if v < Mean(x[lo:hi])+p.Delta {
			continue
		}
		if i > last+p.Wait {
			peaks = append(peaks, i)
			last = i
		}
	}
	return peaks
}
