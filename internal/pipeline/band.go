package pipeline

import (
	"github.com/MeKo-Tech/filingocr/internal/extraction"
)

// Band is the review category of a final confidence score.
type Band string

const (
	BandAccept    Band = "accept"
	BandSpotCheck Band = "spot_check"
	BandWarn      Band = "warn"
	BandReject    Band = "reject"
)

// ClassifyBand maps a score onto the bands. Accept is strictly above its
// threshold; the lower bands include their boundary.
func ClassifyBand(score float64, t Thresholds) Band {
	switch {
	case score > t.Accept:
		return BandAccept
	case score >= t.SpotCheck:
		return BandSpotCheck
	case score >= t.Warn:
		return BandWarn
	default:
		return BandReject
	}
}

func (b Band) String() string { return string(b) }

// Warning is the annotation a result in this band carries, if any.
func (b Band) Warning() string {
	switch b {
	case BandSpotCheck:
		return extraction.WarnSpotCheckRecommended
	case BandWarn:
		return extraction.WarnLowConfidenceAccepted
	}
	return ""
}
