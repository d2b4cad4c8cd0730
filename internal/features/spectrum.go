package features

import (
	"math"

	"github.com/cardoc/cardoc-go/internal/dsp"
	"github.com/cardoc/cardoc-go/internal/errors"
)

// Band is a named frequency interval, inclusive on both edges.
type Band struct {
	Name string
	Low  float64
	High float64
}

// Band names
const (
	BandSubBass    = "sub_bass"
	BandBass       = "bass"
	BandLowMid     = "low_mid"
	BandMid        = "mid"
	BandHighMid    = "high_mid"
	BandPresence   = "presence"
	BandBrilliance = "brilliance"
)

// Bands partitions the audible spectrum, lowest first.
var Bands = []Band{
	{BandSubBass, 20, 60},         // engine fundamentals
	{BandBass, 60, 250},           // engine harmonics
	{BandLowMid, 250, 500},        // mechanical
	{BandMid, 500, 2000},          // valve and timing
	{BandHighMid, 2000, 4000},     // belts and accessories
	{BandPresence, 4000, 6000},    // brakes and metal contact
	{BandBrilliance, 6000, 20000}, // air leaks and whistles
}

const (
	maxBandPeaks      = 3
	maxGlobalPeaks    = 10
	bandPeakRatio     = 0.3
	globalPeakRatio   = 0.1
	peakMinSeparation = 10
	rolloffPercent    = 0.85
)

// Peak is one local maximum of the averaged power spectrum.
type Peak struct {
	Frequency float64 `json:"frequency"`
	Magnitude float64 `json:"magnitude"`
}

// Distribution summarises where the spectral energy sits.
type Distribution struct {
	EnergyDistribution map[string]float64 `json:"energy_distribution"`
	DominantBand       string             `json:"dominant_band"`
	FrequencySpread    float64            `json:"frequency_spread"`
}

// FrequencyProfile is the time-averaged spectral description of a clip.
type FrequencyProfile struct {
	DominantFrequency float64              `json:"dominant_frequency"`
	SpectralCentroid  float64              `json:"spectral_centroid"`
	SpectralRolloff   float64              `json:"spectral_rolloff"`
	SpectralBandwidth float64              `json:"spectral_bandwidth"`
	BandEnergies      map[string]float64   `json:"frequency_bands"`
	BandPeaks         map[string][]float64 `json:"band_peaks"`
	PeakFrequencies   []float64            `json:"peak_frequencies"`
	PeakMagnitudes    []float64            `json:"peak_magnitudes"`
	Distribution      Distribution         `json:"frequency_distribution"`
	AnalysisFailed    bool                 `json:"analysis_failed,omitempty"`
	Error             string               `json:"error,omitempty"`
}

// BandEnergy returns the summed power of the named band, 0 when unknown.
func (p *FrequencyProfile) BandEnergy(name string) float64 {
	return p.BandEnergies[name]
}

// TotalEnergy sums all band energies.
func (p *FrequencyProfile) TotalEnergy() float64 {
	var total float64
	for _, b := range Bands {
		total += p.BandEnergies[b.Name]
	}
	return total
}

// Peaks pairs peak frequencies with their magnitudes.
func (p *FrequencyProfile) Peaks() []Peak {
	out := make([]Peak, len(p.PeakFrequencies))
	for i, f := range p.PeakFrequencies {
		out[i] = Peak{Frequency: f, Magnitude: p.PeakMagnitudes[i]}
	}
	return out
}

// AnalyzeSpectrum averages |X|² of s over time and describes the result.
func AnalyzeSpectrum(s *dsp.Spectrogram) (FrequencyProfile, error) {
	if s == nil || s.Frames() == 0 {
		return FrequencyProfile{}, errors.NewStd("no spectrogram frames")
	}

	power := s.MeanPower()
	freqs := s.Frequencies()
	peakPower := power[dsp.ArgMax(power)]

	profile := FrequencyProfile{
		DominantFrequency: freqs[dsp.ArgMax(power)],
		BandEnergies:      make(map[string]float64, len(Bands)),
		BandPeaks:         make(map[string][]float64, len(Bands)),
	}

	for _, band := range Bands {
		var bandPower, bandFreqs []float64
		for k, f := range freqs {
			if f >= band.Low && f <= band.High {
				bandPower = append(bandPower, power[k])
				bandFreqs = append(bandFreqs, f)
			}
		}
		profile.BandPeaks[band.Name] = []float64{}
		if len(bandPower) == 0 {
			profile.BandEnergies[band.Name] = 0
			continue
		}
		profile.BandEnergies[band.Name] = dsp.Sum(bandPower)

		bandMax := bandPower[dsp.ArgMax(bandPower)]
		peaks := dsp.FindPeaks(bandPower, bandMax*bandPeakRatio, 1)
		for _, idx := range peaks[:min(len(peaks), maxBandPeaks)] {
			profile.BandPeaks[band.Name] = append(profile.BandPeaks[band.Name], bandFreqs[idx])
		}
	}

	peaks := dsp.FindPeaks(power, peakPower*globalPeakRatio, peakMinSeparation)
	peaks = peaks[:min(len(peaks), maxGlobalPeaks)]
	profile.PeakFrequencies = make([]float64, len(peaks))
	profile.PeakMagnitudes = make([]float64, len(peaks))
	for i, idx := range peaks {
		profile.PeakFrequencies[i] = freqs[idx]
		profile.PeakMagnitudes[i] = power[idx]
	}

	centroid := dsp.SpectralCentroid(s)
	profile.SpectralCentroid = dsp.Mean(centroid)
	profile.SpectralRolloff = dsp.Mean(dsp.SpectralRolloff(s, rolloffPercent))
	profile.SpectralBandwidth = dsp.Mean(dsp.SpectralBandwidth(s, centroid))

	var strong []float64
	for k, p := range power {
		if p > peakPower*globalPeakRatio {
			strong = append(strong, freqs[k])
		}
	}
	profile.Distribution = Distribution{
		EnergyDistribution: profile.BandEnergies,
		DominantBand:       dominantBand(profile.BandEnergies),
		FrequencySpread:    dsp.Std(strong),
	}

	if math.IsNaN(profile.SpectralCentroid) {
		return FrequencyProfile{}, errors.NewStd("spectral centroid is not a number")
	}
	return profile, nil
}

// dominantBand returns the first band, in Bands order, with the most energy.
func dominantBand(energies map[string]float64) string {
	best := Bands[0].Name
	for _, b := range Bands[1:] {
		if energies[b.Name] > energies[best] {
			best = b.Name
		}
	}
	return best
}

// FailedSpectrum is the profile reported when spectral analysis fails.
func FailedSpectrum(err error) FrequencyProfile {
	p := FrequencyProfile{
		BandEnergies:    map[string]float64{},
		BandPeaks:       map[string][]float64{},
		PeakFrequencies: []float64{},
		PeakMagnitudes:  []float64{},
		AnalysisFailed:  true,
	}
	if err != nil {
		p.Error = err.Error()
	}
	return p
}
