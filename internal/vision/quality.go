package vision

import (
	"math"

	"github.com/cardoc/cardoc-go/internal/dsp"
	"github.com/cardoc/cardoc-go/internal/errors"
)

// Image quality issues
const (
	IssueBlurry         = "Image appears blurry"
	IssueTooDark        = "Image too dark"
	IssueOverexposed    = "Image overexposed"
	IssueLowContrast    = "Low contrast"
	IssueAnalysisFailed = "Quality analysis failed"
)

// sharpnessScale normalises the Laplacian variance
const sharpnessScale = 1000.0

// Quality describes how usable a photo is for light detection.
type Quality struct {
	Score      float64  `json:"score"`
	Sharpness  float64  `json:"sharpness"`
	Brightness float64  `json:"brightness"`
	Contrast   float64  `json:"contrast"`
	Issues     []string `json:"issues"`
}

// AssessQuality scores sharpness, brightness and contrast of the grayscale
// plane.
func AssessQuality(f *Frame) (Quality, error) {
	if f.Pixels() == 0 {
		return Quality{}, errors.NewStd("empty image")
	}

	lap := laplacian(f.Gray, f.Width, f.Height)
	sd := dsp.Std(lap)
	sharpness := min(sd*sd/sharpnessScale, 1)

	gray := make([]float64, len(f.Gray))
	for i, v := range f.Gray {
		gray[i] = float64(v)
	}
	brightness := dsp.Mean(gray) / 255
	contrast := dsp.Std(gray) / 255

	score := sharpness*0.4 + min(brightness*2, 1)*0.3 + contrast*0.3

	issues := []string{}
	if sharpness < 0.3 {
		issues = append(issues, IssueBlurry)
	}
	if brightness < 0.2 {
		issues = append(issues, IssueTooDark)
	} else if brightness > 0.9 {
		issues = append(issues, IssueOverexposed)
	}
	if contrast < 0.1 {
		issues = append(issues, IssueLowContrast)
	}

	if math.IsNaN(score) {
		return Quality{}, errors.NewStd("quality score is not a number")
	}
	return Quality{
		Score:      dsp.Round(score, 2),
		Sharpness:  dsp.Round(sharpness, 2),
		Brightness: dsp.Round(brightness, 2),
		Contrast:   dsp.Round(contrast, 2),
		Issues:     issues,
	}, nil
}

// FailedQuality is the neutral quality reported when assessment fails.
func FailedQuality(error) Quality {
	return Quality{Score: 0.5, Issues: []string{IssueAnalysisFailed}}
}
