// Package ui provides terminal output for the pdf-diff command.
package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// UI writes human-readable status lines to out and transient progress to
// errOut. In JSON mode every human-facing method is silent.
type UI struct {
	out         io.Writer
	errOut      io.Writer
	noColor     bool
	jsonMode    bool
	interactive bool
}

// Options configures a UI.
type Options struct {
	Out      io.Writer
	ErrOut   io.Writer
	NoColor  bool
	JSONMode bool
	// Interactive enables progress bars and spinners. Leave it false when
	// ErrOut is not a terminal.
	Interactive bool
}

// New creates a UI. Nil writers default to stdout and stderr.
func New(opts Options) *UI {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.ErrOut == nil {
		opts.ErrOut = os.Stderr
	}
	return &UI{
		out:         opts.Out,
		errOut:      opts.ErrOut,
		noColor:     opts.NoColor,
		jsonMode:    opts.JSONMode,
		interactive: opts.Interactive && !opts.JSONMode,
	}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Success prints a success message.
func (ui *UI) Success(format string, args ...interface{}) {
	ui.line(ui.out, color.FgGreen, "✓", format, args...)
}

// Error prints an error message to the error stream.
func (ui *UI) Error(format string, args ...interface{}) {
	ui.line(ui.errOut, color.FgRed, "✗", format, args...)
}

// Warning prints a warning message.
func (ui *UI) Warning(format string, args ...interface{}) {
	ui.line(ui.out, color.FgYellow, "⚠", format, args...)
}

// Info prints an info message.
func (ui *UI) Info(format string, args ...interface{}) {
	ui.line(ui.out, color.FgCyan, "ℹ", format, args...)
}

// Step prints a step message.
func (ui *UI) Step(format string, args ...interface{}) {
	ui.line(ui.out, color.FgBlue, "→", format, args...)
}

func (ui *UI) line(w io.Writer, attr color.Attribute, symbol, format string, args ...interface{}) {
	if ui.jsonMode {
		return
	}
	msg := fmt.Sprintf("%s %s\n", symbol, fmt.Sprintf(format, args...))
	if ui.noColor {
		fmt.Fprint(w, msg)
		return
	}
	color.New(attr).Fprint(w, msg)
}

// Table prints rows aligned under headers.
func (ui *UI) Table(headers []string, rows [][]string) {
	if ui.jsonMode || len(headers) == 0 {
		return
	}

	w := tabwriter.NewWriter(ui.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(headers, "\t"))

	separator := make([]string, len(headers))
	for i := range separator {
		separator[i] = strings.Repeat("-", len(headers[i]))
	}
	fmt.Fprintln(w, strings.Join(separator, "\t"))

	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

// JSON prints v as indented JSON. It is the only output in JSON mode.
func (ui *UI) JSON(v interface{}) error {
	enc := json.NewEncoder(ui.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
