package batch

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Progress receives completion updates while a batch runs.
type Progress interface {
	Add(n int)
	Finish()
}

type noProgress struct{}

func (noProgress) Add(int) {}
func (noProgress) Finish() {}

// barProgress renders a terminal progress bar.
type barProgress struct {
	bar *progressbar.ProgressBar
}

func newProgress(cfg *Config, total int) Progress {
	if !cfg.ShowProgress || cfg.Quiet {
		return noProgress{}
	}
	w := cfg.ProgressWriter
	if w == nil {
		w = os.Stderr
	}
	return newBarProgress(w, total)
}

func newBarProgress(w io.Writer, total int) *barProgress {
	bar := progressbar.NewOptions(
		total,
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Extracting"),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprint(w, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
	return &barProgress{bar: bar}
}

func (p *barProgress) Add(n int) { _ = p.bar.Add(n) }

func (p *barProgress) Finish() { _ = p.bar.Finish() }
