package analysis

import "fmt"

// Sentinel field values preserved verbatim at the JSON and CSV boundaries.
const (
	BrandNotFound        = "Not Found"
	BrandConversionError = "CONVERSION_ERROR"
	ZeroConfidence       = "0.00"
	ValueUnavailable     = "N/A"
	LinkUnavailable      = "#"
)

// ReviewThreshold is the confidence below which a row is flagged for manual
// review. It is a review-priority signal only, never a filter.
const ReviewThreshold = 0.70

// Result is one row of final output, tracing to exactly one source image.
type Result struct {
	FileName           string `json:"fileName"`
	Brand              string `json:"brand"`
	Model              string `json:"model"`
	Description        string `json:"description"`
	Condition          string `json:"condition"`
	CurrentRetailPrice string `json:"currentRetailPrice"`
	WebLink            string `json:"webLink"`
	ItemPictureURL     string `json:"itemPictureUrl"`
	Confidence         string `json:"confidence"` // two-decimal formatted
	NeedsReview        bool   `json:"needsReview"`
}

// FormatConfidence renders a recognition score with exactly two decimal
// digits. An absent score is zero, which renders as "0.00".
func FormatConfidence(score float64) string {
	return fmt.Sprintf("%.2f", score)
}

// Progress tracks how far an analysis run has advanced. Processed never
// decreases within one run.
type Progress struct {
	Processed int `json:"processedCount"`
	Total     int `json:"totalCount"`
}

// Percent returns completion as a percentage in [0,100].
func (p Progress) Percent() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Processed) / float64(p.Total) * 100
}

// RunState is the lifecycle of one analysis run.
type RunState int

const (
	StateIdle RunState = iota
	StateRunning
	StateSucceeded
	StateFailed
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
