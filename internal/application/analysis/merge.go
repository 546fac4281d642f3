package analysis

import (
	"math"

	domain "github.com/bryanwahyu/knowledge-extractor/internal/domain/analysis"
)

const (
	minConfidence  = 0.5
	maxConfidence  = 0.9
	confidenceStep = 0.4
	// text length at which confidence saturates
	confidenceSpan = 2000.0
)

// Confidence scores an analysis by input length only: 0.5 for empty text rising
// linearly to 0.9 at 2000 characters, rounded to two decimals.
func Confidence(textLength int) float64 {
	c := math.Min(maxConfidence, minConfidence+(float64(textLength)/confidenceSpan)*confidenceStep)
	return math.Round(c*100) / 100
}

// MergeMetadata copies the model fields verbatim and overwrites keywords and
// confidence with locally derived values. Model key order is kept; the derived
// keys go last unless the model already used them. fields is not modified.
func MergeMetadata(fields domain.Metadata, keywords []string, textLength int) domain.Metadata {
	md := fields.Clone()
	if keywords == nil {
		keywords = []string{}
	}
	md.Set(domain.KeyKeywords, keywords)
	md.Set(domain.KeyConfidence, Confidence(textLength))
	return md
}
