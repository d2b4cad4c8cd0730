package diagnosis

import (
	"time"

	"github.com/cardoc/cardoc-go/internal/dsp"
	"github.com/cardoc/cardoc-go/internal/faults"
	"github.com/cardoc/cardoc-go/internal/features"
	"github.com/cardoc/cardoc-go/internal/myaudio"
	"github.com/cardoc/cardoc-go/internal/vision"
)

// Failure recommendations and keywords
const (
	recommendReRecord = "Consider re-recording in a quieter environment"
)

var failedAudioKeywords = []string{"audio analysis failed", "re-record audio"}

// AssembleAudio matches faults against the extracted features and packages
// everything into a successful AudioResult.
func AssembleAudio(id string, at time.Time, wf *myaudio.Waveform, f *features.Features) *AudioResult {
	candidates := faults.Match(faults.EvidenceFrom(f))
	patterns := f.Patterns
	if patterns == nil {
		patterns = []features.Pattern{}
	}

	return &AudioResult{
		ID:                 id,
		AnalysisSuccessful: true,
		DetectedSounds:     faults.Names(candidates),
		DetectedFaults:     candidates,
		SoundPatterns:      patterns,
		FrequencyAnalysis:  f.Spectrum,
		DecibelAnalysis:    f.Decibels,
		AnomalyAnalysis:    f.Anomalies,
		AudioQuality:       f.Quality,
		OverallConfidence: AudioConfidence(f.Quality.Score, candidates,
			f.Spectrum.DominantFrequency, patterns),
		UrgencyLevel:   faults.Urgency(candidates),
		RepairKeywords: faults.RepairKeywords(candidates),
		Metadata: AudioMetadata{
			DurationSeconds:      dsp.Round(wf.Seconds(), 2),
			SampleRate:           wf.SampleRate,
			Format:               wf.Format,
			TotalFaultsDetected:  len(candidates),
			ProcessingSuccessful: true,
			AnalyzedAt:           at,
		},
	}
}

// FailedAudio is the result reported when a clip cannot be analysed at all.
func FailedAudio(id string, at time.Time, kind FailureKind, message string) *AudioResult {
	return &AudioResult{
		ID:                 id,
		AnalysisSuccessful: false,
		AnalysisFailed:     true,
		ErrorMessage:       message,
		FailureKind:        kind,
		DetectedSounds:     []string{},
		DetectedFaults:     []faults.Candidate{},
		SoundPatterns:      []features.Pattern{},
		FrequencyAnalysis:  features.FailedSpectrum(nil),
		DecibelAnalysis:    features.FailedDecibels(nil),
		AnomalyAnalysis:    features.FailedAnomalies(nil),
		AudioQuality: features.Quality{
			Score:           0,
			Rating:          features.RatingPoor,
			Issues:          []string{message},
			Recommendations: []string{recommendReRecord},
		},
		OverallConfidence: 0,
		UrgencyLevel:      faults.LevelNormal,
		RepairKeywords:    append([]string(nil), failedAudioKeywords...),
		Metadata: AudioMetadata{
			ProcessingSuccessful: false,
			AnalyzedAt:           at,
			Error:                message,
		},
	}
}

// AssembleImage packages the image features into a successful ImageResult.
func AssembleImage(id string, at time.Time, frame *vision.Frame, f *vision.Features) *ImageResult {
	lights := f.Lights
	if lights == nil {
		lights = []vision.Light{}
	}

	return &ImageResult{
		ID:                id,
		DashboardDetected: f.Dashboard.Detected,
		DashboardSignals:  f.Dashboard,
		DetectedLights:    lights,
		ImageQuality:      f.Quality,
		OverallConfidence: ImageConfidence(f.Dashboard.Detected, f.Quality.Score, lights),
		UrgencyLevel:      ImageUrgency(lights),
		RepairKeywords:    ImageKeywords(lights),
		Metadata: ImageMetadata{
			ImageDimensions:      frame.Dimensions(),
			Format:               frame.Format,
			TotalLightsFound:     len(lights),
			ProcessingSuccessful: true,
			AnalyzedAt:           at,
		},
	}
}

// FailedImage is the result reported when a photo cannot be analysed.
func FailedImage(id string, at time.Time, kind FailureKind, message string) *ImageResult {
	return &ImageResult{
		ID:             id,
		DetectedLights: []vision.Light{},
		ImageQuality:   vision.Quality{Score: 0, Issues: []string{message}},
		UrgencyLevel:   faults.LevelNormal,
		RepairKeywords: ImageKeywords(nil),
		ErrorMessage:   message,
		FailureKind:    kind,
		Metadata: ImageMetadata{
			ProcessingSuccessful: false,
			AnalyzedAt:           at,
			Error:                message,
		},
	}
}
