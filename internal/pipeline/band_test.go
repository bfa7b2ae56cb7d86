package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MeKo-Tech/filingocr/internal/extraction"
)

func TestClassifyBand(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		score float64
		want  Band
	}{
		{1, BandAccept},
		{0.8501, BandAccept},
		{0.85, BandSpotCheck},
		{0.70, BandSpotCheck},
		{0.6999, BandWarn},
		{0.50, BandWarn},
		{0.4999, BandReject},
		{0, BandReject},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyBand(tt.score, th), "score %.4f", tt.score)
	}
}

func TestBandWarning(t *testing.T) {
	assert.Empty(t, BandAccept.Warning())
	assert.Equal(t, extraction.WarnSpotCheckRecommended, BandSpotCheck.Warning())
	assert.Equal(t, extraction.WarnLowConfidenceAccepted, BandWarn.Warning())
	assert.Empty(t, BandReject.Warning())
}

func TestThresholdsValidate(t *testing.T) {
	assert.NoError(t, DefaultThresholds().Validate())
	assert.Error(t, Thresholds{Accept: 1.2, SpotCheck: 0.7, Warn: 0.5}.Validate())
	assert.Error(t, Thresholds{Accept: 0.6, SpotCheck: 0.7, Warn: 0.5}.Validate())
	assert.Error(t, Thresholds{Accept: 0.9, SpotCheck: 0.7, Warn: -0.1}.Validate())
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.DocumentBudget = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.ExpectedPatterns = []string{"("}
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Scorer.CharsPerPage = 0
	assert.Error(t, cfg.Validate())
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "accepted", Accepted.String())
	assert.Equal(t, "escalate", Escalate.String())
	assert.Equal(t, "hard_failure", HardFailure.String())
	assert.Equal(t, "skipped", Skipped.String())
	text, err := Escalate.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "escalate", string(text))
}
