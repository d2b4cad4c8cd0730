package narration

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cardoc/cardoc-go/internal/diagnosis"
)

const replySchema = `Respond with ONLY this JSON object, no markdown:
{
  "detected_issues": ["specific fault name"],
  "confidence_score": 0.0,
  "urgency_level": "critical|warning|normal",
  "overall_assessment": {
    "severity": "critical|warning|normal",
    "safe_to_drive": true,
    "immediate_action_required": false,
    "estimated_repair_cost": "$min-max"
  },
  "recommendations": ["actionable step"],
  "repair_keywords": ["youtube search phrase"],
  "safety_info": {
    "driving_safety": "",
    "immediate_actions": "",
    "warning_signs": ""
  }
}`

func indentJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

// engineSoundPrompt describes an audio result for the model.
func engineSoundPrompt(r *diagnosis.AudioResult) string {
	names := make([]string, 0, len(r.DetectedFaults))
	for _, c := range r.DetectedFaults {
		names = append(names, c.DisplayName)
	}
	peaks := r.FrequencyAnalysis.PeakFrequencies
	if len(peaks) > 5 {
		peaks = peaks[:5]
	}

	var b strings.Builder
	b.WriteString("You are an automotive sound diagnostician. Identify specific engine problems from this audio analysis.\n\n")
	fmt.Fprintf(&b, "Detected faults: %s\n\n", indentJSON(names))
	b.WriteString("Frequency analysis:\n")
	fmt.Fprintf(&b, "- Dominant frequency: %.1f Hz\n", r.FrequencyAnalysis.DominantFrequency)
	fmt.Fprintf(&b, "- Spectral centroid: %.1f Hz\n", r.FrequencyAnalysis.SpectralCentroid)
	fmt.Fprintf(&b, "- Peak frequencies: %v\n", peaks)
	fmt.Fprintf(&b, "- Band energies: %v\n", r.FrequencyAnalysis.BandEnergies)
	b.WriteString("Decibel analysis:\n")
	fmt.Fprintf(&b, "- Mean %.1f dB, max %.1f dB, dynamic range %.1f dB, volume %s\n",
		r.DecibelAnalysis.MeanDB, r.DecibelAnalysis.MaxDB, r.DecibelAnalysis.DynamicRangeDB, r.DecibelAnalysis.VolumeCategory)
	b.WriteString("Anomalies:\n")
	fmt.Fprintf(&b, "- %.1f%% of the clip, %d regions, mean duration %.2f s\n",
		r.AnomalyAnalysis.Percentage, r.AnomalyAnalysis.Count, r.AnomalyAnalysis.AvgDuration)
	b.WriteString("Recording quality:\n")
	fmt.Fprintf(&b, "- Score %.2f (%s), SNR %.1f dB\n\n",
		r.AudioQuality.Score, r.AudioQuality.Rating, r.AudioQuality.SNRDB)
	fmt.Fprintf(&b, "Fault details:\n%s\n\n", indentJSON(r.DetectedFaults))
	b.WriteString("Urgency: knock, worn bearings and timing chain faults are critical; belt squeal, valve noise and CV joint clicks are warnings; exhaust noise is normal.\n")
	b.WriteString("Low frequencies with high levels suggest bearings or knock, 1-4 kHz rhythmic sounds suggest timing or valves, above 4 kHz suggests belts or brakes.\n\n")
	b.WriteString(replySchema)
	return b.String()
}

// dashboardPrompt describes an image result for the model.
func dashboardPrompt(r *diagnosis.ImageResult) string {
	var b strings.Builder
	b.WriteString("You are an automotive diagnostician. Interpret the warning lights found on this dashboard photo.\n\n")
	b.WriteString("Detected warning lights:\n")
	if len(r.DetectedLights) == 0 {
		b.WriteString("- none found by image analysis\n")
	}
	for _, l := range r.DetectedLights {
		fmt.Fprintf(&b, "- %s light at (%d, %d), brightness %.0f\n",
			strings.ToUpper(colorOrUnknown(l.Color)), l.Position.X, l.Position.Y, l.Brightness)
	}
	fmt.Fprintf(&b, "\nImage analysis:\n%s\n\n", indentJSON(r))
	b.WriteString("Map colours to urgency: red is critical, yellow or orange is a warning, green or blue is normal.\n")
	b.WriteString("Name specific faults such as \"Brake Fluid Low\" or \"Engine Oil Pressure Critical\".\n\n")
	b.WriteString(replySchema)
	return b.String()
}
