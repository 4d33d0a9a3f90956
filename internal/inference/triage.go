package inference

// Priority ranks an image for radiologist review.
type Priority string

const (
	// PriorityHigh means at least one detection reached the high-confidence threshold.
	PriorityHigh Priority = "HIGH"

	// PriorityMedium means there were detections, none of them high-confidence.
	PriorityMedium Priority = "MEDIUM"

	// PriorityLow means nothing was detected.
	PriorityLow Priority = "LOW"
)

// DefaultHighConfidence is the confidence at which a detection counts as high.
const DefaultHighConfidence = 0.64

// Recommendation returns the review advice printed for p.
func (p Priority) Recommendation() string {
	switch p {
	case PriorityHigh:
		return "Recommend immediate radiologist review"
	case PriorityMedium:
		return "Recommend radiologist review"
	default:
		return "No significant masses detected"
	}
}

// Triage returns the priority and the number of high-confidence detections.
func Triage(dets []Detection, highConfidence float64) (Priority, int) {
	high := 0
	for _, d := range dets {
		if d.Confidence >= highConfidence {
			high++
		}
	}
	switch {
	case high > 0:
		return PriorityHigh, high
	case len(dets) > 0:
		return PriorityMedium, 0
	default:
		return PriorityLow, 0
	}
}
