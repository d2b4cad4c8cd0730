package dsp

import "math"

// Beat tracking constants
const (
	DefaultStartBPM = 120.0
	beatTightness   = 100.0
	tempoMaxBPM     = 320.0
	tempoWindowSec  = 8.0
)

// EstimateTempo picks the tempo in BPM whose lag maximises the mean
// windowed autocorrelation of env, weighted by a log-normal prior around
// startBPM (one octave deviation). Tempi above 320 BPM are excluded.
func EstimateTempo(env []float64, sampleRate, hop int, startBPM float64) float64 {
	winLength := int(tempoWindowSec*float64(sampleRate)) / hop
	if winLength < 2 {
		return startBPM
	}
	tg := meanTempogram(env, winLength)

	best, bestScore := -1, math.Inf(-1)
	for lag := 1; lag < winLength; lag++ {
		bpm := 60.0 * float64(sampleRate) / (float64(hop) * float64(lag))
		if bpm >= tempoMaxBPM {
			continue
		}
		d := math.Log2(bpm) - math.Log2(startBPM)
		score := math.Log1p(1e6*tg[lag]) - 0.5*d*d
		if score > bestScore {
			best, bestScore = lag, score
		}
	}
	if best < 0 {
		return startBPM
	}
	return 60.0 * float64(sampleRate) / (float64(hop) * float64(best))
}

// meanTempogram averages, over all frames, the peak-normalised
// autocorrelation of a Hann-windowed excerpt of env centred on each frame.
// The envelope is extended by linear ramps to zero on both sides.
func meanTempogram(env []float64, winLength int) []float64 {
	n := len(env)
	half := winLength / 2
	padded := make([]float64, n+2*half)
	copy(padded[half:], env)
	if n > 0 {
		first, last := env[0], env[n-1]
		for i := range half {
			padded[i] = first * float64(i) / float64(half)
			padded[half+n+i] = last * float64(half-1-i) / float64(half)
		}
	}

	window := Hann(winLength, true)
	size := NextPow2(2*winLength - 1)
	plan := NewFFT(size)
	buf := make([]complex128, size)
	mean := make([]float64, winLength)

	for t := range n {
		for i := range buf {
			buf[i] = 0
		}
		for i := range winLength {
			buf[i] = complex(padded[t+i]*window[i], 0)
		}
		plan.Transform(buf)
		for i, v := range buf {
			re, im := real(v), imag(v)
			buf[i] = complex(re*re+im*im, 0)
		}
		// power spectrum is real and even, so a forward transform inverts it
		plan.Transform(buf)

		peak := 0.0
		for lag := range winLength {
			peak = max(peak, math.Abs(real(buf[lag])))
		}
		if peak <= 0 {
			continue
		}
		for lag := range winLength {
			mean[lag] += real(buf[lag]) / peak
		}
	}
	if n > 0 {
		for lag := range mean {
			mean[lag] /= float64(n)
		}
	}
	return mean
}

// TrackBeats estimates the tempo of env and places beats with dynamic
// programming so that they fall on strong onsets at roughly that period.
// Weak leading and trailing beats are trimmed. Beats are frame indices.
func TrackBeats(env []float64, sampleRate, hop int) (tempo float64, beats []int) {
	if !anyNonZero(env) {
		return 0, nil
	}
	tempo = EstimateTempo(env, sampleRate, hop, DefaultStartBPM)
	frameRate := float64(sampleRate) / float64(hop)
	period := int(math.RoundToEven(60.0 * frameRate / tempo))
	if period < 1 {
		return tempo, nil
	}

	localScore := beatLocalScore(env, period)
	backlink, cumScore := beatTrackDP(localScore, period, beatTightness)

	tail, ok := lastBeat(cumScore)
	if !ok {
		return tempo, nil
	}
	path := []int{tail}
	for backlink[path[len(path)-1]] >= 0 {
		path = append(path, backlink[path[len(path)-1]])
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	return tempo, trimBeats(localScore, path)
}

func anyNonZero(x []float64) bool {
	for _, v := range x {
		if v != 0 {
			return true
		}
	}
	return false
}

// beatLocalScore smooths the unit-variance envelope with a Gaussian one
// period wide on each side.
func beatLocalScore(env []float64, period int) []float64 {
	norm := env
	if sd := SampleStd(env); sd > 0 {
		norm = make([]float64, len(env))
		for i, v := range env {
			norm[i] = v / sd
		}
	}
	window := make([]float64, 2*period+1)
	for i := range window {
		x := float64(i-period) * 32.0 / float64(period)
		window[i] = math.Exp(-0.5 * x * x)
	}
	return ConvolveSame(norm, window)
}

// beatTrackDP scores every frame as the best predecessor beat, searched
// between two periods and half a period back, plus its local score. The
// transition cost penalises log deviation from the period.
func beatTrackDP(localScore []float64, period int, tightness float64) (backlink []int, cumScore []float64) {
	n := len(localScore)
	backlink = make([]int, n)
	cumScore = make([]float64, n)

	lo := -2 * period
	hi := -int(math.RoundToEven(float64(period) / 2))
	width := hi - lo + 1
	txwt := make([]float64, width)
	for j := range txwt {
		l := math.Log(-float64(lo+j) / float64(period))
		txwt[j] = -tightness * l * l
	}

	maxScore := math.Inf(-1)
	for _, v := range localScore {
		maxScore = max(maxScore, v)
	}

	firstBeat := true
	for i, score := range localScore {
		start := i + lo
		zPad := max(0, min(-start, width))

		bestJ, best := 0, math.Inf(-1)
		for j := range width {
			c := txwt[j]
			if j >= zPad {
				c += cumScore[start+j]
			}
			if c > best {
				bestJ, best = j, c
			}
		}
		cumScore[i] = score + best

		if firstBeat && score < 0.01*maxScore {
			backlink[i] = -1
		} else {
			backlink[i] = start + bestJ
			firstBeat = false
		}
	}
	return backlink, cumScore
}

// lastBeat returns the last local maximum of cumScore that beats half the
// median of all local maxima.
func lastBeat(cumScore []float64) (int, bool) {
	peaks := LocalMax(cumScore)
	var vals []float64
	for i, p := range peaks {
		if p {
			vals = append(vals, cumScore[i])
		}
	}
	if len(vals) == 0 {
		return 0, false
	}
	med := Median(vals)
	for i := len(cumScore) - 1; i >= 0; i-- {
		v := 0.0
		if peaks[i] {
			v = cumScore[i] * 2
		}
		if v > med {
			return i, true
		}
	}
	return 0, false
}

// trimBeats drops weak beats from both ends: beats whose Hann-smoothed
// local score is under half the RMS of the smoothed scores. The last
// strong beat is dropped as well.
func trimBeats(localScore []float64, beats []int) []int {
	scores := make([]float64, len(beats))
	for i, b := range beats {
		scores[i] = localScore[b]
	}
	smooth := ConvolveSame(scores, Hann(5, true))

	var sq float64
	for _, v := range smooth {
		sq += v * v
	}
	threshold := 0.5 * math.Sqrt(sq/float64(len(smooth)))

	first, last := -1, -1
	for i, v := range smooth {
		if v > threshold {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return nil
	}
	return beats[first:last]
}
