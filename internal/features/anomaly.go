package features

import (
	"github.com/cardoc/cardoc-go/internal/dsp"
	"github.com/cardoc/cardoc-go/internal/errors"
)

const maxReportedRegions = 10

// Region is a run of consecutive high-energy frames, in seconds.
type Region struct {
	StartTime float64 `json:"start_time"`
	Duration  float64 `json:"duration"`
	EndTime   float64 `json:"end_time"`
}

// Anomalies describes frames whose RMS energy exceeds mean + 2·std.
type Anomalies struct {
	Percentage     float64  `json:"anomaly_percentage"`
	Count          int      `json:"anomaly_count"`
	AvgDuration    float64  `json:"avg_anomaly_duration"`
	MaxDuration    float64  `json:"max_anomaly_duration"`
	TotalTime      float64  `json:"total_anomaly_time"`
	Regions        []Region `json:"anomaly_regions"`
	AnalysisFailed bool     `json:"analysis_failed,omitempty"`
}

// AnalyzeAnomalies finds contiguous high-energy regions of y. Count covers
// every region while Regions lists at most the first ten.
func AnalyzeAnomalies(y []float64, sampleRate int) (Anomalies, error) {
	if len(y) == 0 || sampleRate <= 0 {
		return Anomalies{}, errors.NewStd("empty waveform")
	}
	rms := dsp.RMS(y, NFFT, HopLength)
	if len(rms) == 0 {
		return Anomalies{}, errors.NewStd("no RMS frames")
	}

	threshold := dsp.Mean(rms) + 2*dsp.Std(rms)
	sr := float64(sampleRate)
	frameTime := func(frame int) float64 { return float64(frame*HopLength) / sr }

	var (
		regions   []Region
		anomalous int
		inRegion  bool
		start     int
	)
	for i, v := range rms {
		isAnomalous := v > threshold
		if isAnomalous {
			anomalous++
		}
		switch {
		case isAnomalous && !inRegion:
			start, inRegion = i, true
		case !isAnomalous && inRegion:
			regions = append(regions, Region{
				StartTime: frameTime(start),
				Duration:  frameTime(i - start),
				EndTime:   frameTime(i),
			})
			inRegion = false
		}
	}
	if inRegion {
		regions = append(regions, Region{
			StartTime: frameTime(start),
			Duration:  frameTime(len(rms) - start),
			EndTime:   float64(len(y)) / sr,
		})
	}

	out := Anomalies{
		Percentage: dsp.Round(float64(anomalous)/float64(len(rms))*100, 2),
		Count:      len(regions),
		Regions:    regions[:min(len(regions), maxReportedRegions)],
	}
	if out.Regions == nil {
		out.Regions = []Region{}
	}
	if len(regions) > 0 {
		durations := make([]float64, len(regions))
		for i, r := range regions {
			durations[i] = r.Duration
		}
		out.AvgDuration = dsp.Round(dsp.Mean(durations), 2)
		out.TotalTime = dsp.Round(dsp.Sum(durations), 2)
		maxDur := durations[dsp.ArgMax(durations)]
		out.MaxDuration = dsp.Round(maxDur, 2)
	}
	return out, nil
}

// FailedAnomalies is reported when anomaly analysis fails.
func FailedAnomalies(error) Anomalies {
	return Anomalies{Regions: []Region{}, AnalysisFailed: true}
}
