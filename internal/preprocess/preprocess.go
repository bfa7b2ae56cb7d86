// Package preprocess cleans page rasters before recognition. Stages run in a
// fixed order and each can be switched off; a stage that fails leaves the
// image as it was.
package preprocess

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
)

// Stage identifies one preprocessing step.
type Stage int

const (
	StageGrayscale Stage = iota
	StageDenoise
	StageBinarize
	StageDeskew
	StageBorderRemoval
	StageContrast
)

var stageNames = [...]string{"grayscale", "denoise", "binarize", "deskew", "border_removal", "contrast"}

// Stages lists every stage in execution order.
func Stages() []Stage {
	return []Stage{StageGrayscale, StageDenoise, StageBinarize, StageDeskew, StageBorderRemoval, StageContrast}
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// ParseStage resolves a stage name.
func ParseStage(name string) (Stage, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "-", "_")
	for i, n := range stageNames {
		if n == name {
			return Stage(i), nil
		}
	}
	return 0, fmt.Errorf("unknown preprocessing stage %q (valid: %s)", name, strings.Join(stageNames[:], ", "))
}

// Config selects stages and tunes their parameters.
type Config struct {
	Grayscale     bool `mapstructure:"grayscale" yaml:"grayscale" json:"grayscale"`
	Denoise       bool `mapstructure:"denoise" yaml:"denoise" json:"denoise"`
	Binarize      bool `mapstructure:"binarize" yaml:"binarize" json:"binarize"`
	Deskew        bool `mapstructure:"deskew" yaml:"deskew" json:"deskew"`
	BorderRemoval bool `mapstructure:"border_removal" yaml:"border_removal" json:"border_removal"`
	Contrast      bool `mapstructure:"contrast" yaml:"contrast" json:"contrast"`

	DenoiseRadius   int     `mapstructure:"denoise_radius" yaml:"denoise_radius" json:"denoise_radius"`
	BinarizeWindow  int     `mapstructure:"binarize_window" yaml:"binarize_window" json:"binarize_window"`
	BinarizeBias    float64 `mapstructure:"binarize_bias" yaml:"binarize_bias" json:"binarize_bias"`
	MaxSkewDegrees  float64 `mapstructure:"max_skew_degrees" yaml:"max_skew_degrees" json:"max_skew_degrees"`
	SkewStepDegrees float64 `mapstructure:"skew_step_degrees" yaml:"skew_step_degrees" json:"skew_step_degrees"`
}

// DefaultConfig enables every stage.
func DefaultConfig() Config {
	return Config{
		Grayscale:       true,
		Denoise:         true,
		Binarize:        true,
		Deskew:          true,
		BorderRemoval:   true,
		Contrast:        true,
		DenoiseRadius:   1,
		BinarizeWindow:  31,
		BinarizeBias:    0.15,
		MaxSkewDegrees:  5,
		SkewStepDegrees: 0.25,
	}
}

// Validate checks parameter ranges.
func (c Config) Validate() error {
	if c.DenoiseRadius < 0 || c.DenoiseRadius > 5 {
		return fmt.Errorf("denoise_radius must be between 0 and 5, got %d", c.DenoiseRadius)
	}
	if c.BinarizeWindow < 3 {
		return fmt.Errorf("binarize_window must be at least 3, got %d", c.BinarizeWindow)
	}
	if c.BinarizeBias < 0 || c.BinarizeBias > 1 {
		return fmt.Errorf("binarize_bias must be between 0 and 1, got %.2f", c.BinarizeBias)
	}
	if c.MaxSkewDegrees < 0 || c.MaxSkewDegrees > 45 {
		return fmt.Errorf("max_skew_degrees must be between 0 and 45, got %.2f", c.MaxSkewDegrees)
	}
	if c.SkewStepDegrees <= 0 {
		return fmt.Errorf("skew_step_degrees must be positive, got %.2f", c.SkewStepDegrees)
	}
	return nil
}

// Enabled reports whether the stage is switched on.
func (c Config) Enabled(s Stage) bool {
	switch s {
	case StageGrayscale:
		return c.Grayscale
	case StageDenoise:
		return c.Denoise
	case StageBinarize:
		return c.Binarize
	case StageDeskew:
		return c.Deskew
	case StageBorderRemoval:
		return c.BorderRemoval
	case StageContrast:
		return c.Contrast
	}
	return false
}

// Without returns a copy with the given stages switched off.
func (c Config) Without(stages ...Stage) Config {
	for _, s := range stages {
		switch s {
		case StageGrayscale:
			c.Grayscale = false
		case StageDenoise:
			c.Denoise = false
		case StageBinarize:
			c.Binarize = false
		case StageDeskew:
			c.Deskew = false
		case StageBorderRemoval:
			c.BorderRemoval = false
		case StageContrast:
			c.Contrast = false
		}
	}
	return c
}

// StageError reports a stage that could not run. The stage is skipped.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("preprocessing error in %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// SkippedStage records why a stage did not change the image.
type SkippedStage struct {
	Stage  Stage  `json:"stage"`
	Reason string `json:"reason"`
}

// Report describes what Process did.
type Report struct {
	Applied      []Stage         `json:"applied"`
	Skipped      []SkippedStage  `json:"skipped"`
	SkewAngle    float64         `json:"skew_angle"`
	Threshold    string          `json:"threshold,omitempty"`
	Crop         image.Rectangle `json:"crop"`
	InputBounds  image.Rectangle `json:"input_bounds"`
	OutputBounds image.Rectangle `json:"output_bounds"`
}

// AppliedStage reports whether s changed the image.
func (r Report) AppliedStage(s Stage) bool {
	for _, a := range r.Applied {
		if a == s {
			return true
		}
	}
	return false
}

// Preprocessor runs the configured stages. It is stateless and safe for
// concurrent use.
type Preprocessor struct {
	cfg Config
}

// New creates a preprocessor. Out-of-range parameters are replaced by defaults.
func New(cfg Config) *Preprocessor {
	d := DefaultConfig()
	if cfg.DenoiseRadius < 0 || cfg.DenoiseRadius > 5 {
		cfg.DenoiseRadius = d.DenoiseRadius
	}
	if cfg.BinarizeWindow < 3 {
		cfg.BinarizeWindow = d.BinarizeWindow
	}
	if cfg.BinarizeBias < 0 || cfg.BinarizeBias > 1 {
		cfg.BinarizeBias = d.BinarizeBias
	}
	if cfg.MaxSkewDegrees < 0 || cfg.MaxSkewDegrees > 45 {
		cfg.MaxSkewDegrees = d.MaxSkewDegrees
	}
	if cfg.SkewStepDegrees <= 0 {
		cfg.SkewStepDegrees = d.SkewStepDegrees
	}
	return &Preprocessor{cfg: cfg}
}

// Config returns the effective configuration.
func (p *Preprocessor) Config() Config { return p.cfg }

var errNoChange = errors.New("no change")

// Process runs the enabled stages in order. The result is never larger than
// the input. With every stage disabled the input is returned untouched.
func (p *Preprocessor) Process(img image.Image) (image.Image, Report) {
	report := Report{Applied: []Stage{}, Skipped: []SkippedStage{}}
	if img == nil {
		return nil, report
	}
	report.InputBounds = img.Bounds()
	report.OutputBounds = img.Bounds()
	report.Crop = img.Bounds()

	anyEnabled := false
	for _, s := range Stages() {
		anyEnabled = anyEnabled || p.cfg.Enabled(s)
	}
	if !anyEnabled || img.Bounds().Empty() {
		return img, report
	}

	// Every stage after the first works on a single channel.
	gray := toGray(img)

	for _, stage := range Stages() {
		if !p.cfg.Enabled(stage) {
			report.Skipped = append(report.Skipped, SkippedStage{Stage: stage, Reason: "disabled"})
			continue
		}
		out, err := p.runStage(stage, gray, &report)
		if err != nil {
			reason := err.Error()
			var se *StageError
			if errors.As(err, &se) {
				slog.Debug("Preprocessing stage failed", "stage", stage.String(), "error", se.Err)
			} else if errors.Is(err, errNoChange) {
				reason = "no-op"
			}
			report.Skipped = append(report.Skipped, SkippedStage{Stage: stage, Reason: reason})
			continue
		}
		gray = out
		report.Applied = append(report.Applied, stage)
	}

	report.OutputBounds = gray.Bounds()
	return gray, report
}

func (p *Preprocessor) runStage(stage Stage, in *image.Gray, report *Report) (out *image.Gray, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &StageError{Stage: stage, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	switch stage {
	case StageGrayscale:
		// toGray already produced the single-channel copy.
		return in, nil
	case StageDenoise:
		return medianFilter(in, p.cfg.DenoiseRadius)
	case StageBinarize:
		res, method, err := binarize(in, p.cfg.BinarizeWindow, p.cfg.BinarizeBias)
		if err == nil {
			report.Threshold = method
		}
		return res, err
	case StageDeskew:
		res, angle, err := deskew(in, p.cfg.MaxSkewDegrees, p.cfg.SkewStepDegrees)
		report.SkewAngle = angle
		return res, err
	case StageBorderRemoval:
		res, rect, err := removeBorders(in)
		if err == nil {
			report.Crop = rect
		}
		return res, err
	case StageContrast:
		return equalize(in)
	}
	return nil, &StageError{Stage: stage, Err: errors.New("unknown stage")}
}
