package myaudio

// ResampleAudio converts audio from originalRate to targetRate with
// four-point cubic (Catmull-Rom) interpolation. Clips shorter than four
// samples fall back to linear interpolation.
func ResampleAudio(audio []float64, originalRate, targetRate int) []float64 {
	if originalRate == targetRate || len(audio) == 0 {
		return audio
	}

	ratio := float64(targetRate) / float64(originalRate)
	newLength := int(float64(len(audio)) * ratio)
	resampled := make([]float64, newLength)

	if len(audio) < 4 {
		last := len(audio) - 1
		for i := range newLength {
			pos := float64(i) / ratio
			idx := min(int(pos), last)
			next := min(idx+1, last)
			frac := pos - float64(idx)
			resampled[i] = audio[idx] + (audio[next]-audio[idx])*frac
		}
		return resampled
	}

	lastIndex := len(audio) - 3
	for i := range newLength {
		origPos := float64(i) / ratio
		index := max(1, min(int(origPos), lastIndex))
		frac := origPos - float64(index)

		y0, y1, y2, y3 := audio[index-1], audio[index], audio[index+1], audio[index+2]
		mu2 := frac * frac
		a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
		a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
		a2 := -0.5*y0 + 0.5*y2

		resampled[i] = a0*frac*mu2 + a1*mu2 + a2*frac + y1
	}

	return resampled
}
