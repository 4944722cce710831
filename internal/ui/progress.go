package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/schollz/progressbar/v3"
)

// ProgressBar shows pages compared so far. A nil *ProgressBar is valid and
// does nothing, which is what a non-interactive UI hands out.
type ProgressBar struct {
	bar *progressbar.ProgressBar
}

// ProgressBar creates a page progress bar, or nil when not interactive.
func (ui *UI) ProgressBar(total int, description string) *ProgressBar {
	if !ui.interactive || total <= 0 {
		return nil
	}
	return newProgressBar(ui.errOut, total, description)
}

func newProgressBar(w io.Writer, total int, description string) *ProgressBar {
	bar := progressbar.NewOptions(
		total,
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("pages"),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
	return &ProgressBar{bar: bar}
}

// Set moves the bar to current pages done.
func (p *ProgressBar) Set(current int) {
	if p == nil {
		return
	}
	_ = p.bar.Set(current)
}

// Finish completes the bar and clears its line.
func (p *ProgressBar) Finish() {
	if p == nil {
		return
	}
	_ = p.bar.Finish()
}

// Spinner shows indeterminate progress. A nil *Spinner does nothing.
type Spinner struct {
	spinner *spinner.Spinner
}

// Spinner creates a spinner with the given message, or nil when not interactive.
func (ui *UI) Spinner(message string) *Spinner {
	if !ui.interactive {
		return nil
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(ui.errOut))
	s.Suffix = " " + message
	return &Spinner{spinner: s}
}

// Start starts the spinner animation.
func (s *Spinner) Start() {
	if s == nil {
		return
	}
	s.spinner.Start()
}

// Stop stops the spinner animation and clears the line.
func (s *Spinner) Stop() {
	if s == nil {
		return
	}
	s.spinner.Stop()
}

// UpdateMessage updates the spinner's message.
func (s *Spinner) UpdateMessage(format string, args ...interface{}) {
	if s == nil {
		return
	}
	s.spinner.Lock()
	s.spinner.Suffix = " " + fmt.Sprintf(format, args...)
	s.spinner.Unlock()
}
