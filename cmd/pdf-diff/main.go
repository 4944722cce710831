// Command pdf-diff compares two PDF documents page by page.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spherical/pdf-diff/internal/domain"
	"github.com/spherical/pdf-diff/internal/ui"
)

var version = "1.0.0"

// flags holds the command-line values. Comparison settings only override
// the configuration when set explicitly.
type flags struct {
	configPath string
	jsonOut    bool
	noColor    bool

	verbose         bool
	skipIdentical   bool
	markDifferences bool
	grayscale       bool
	view            bool

	outputDiff       string
	exportThumbnails string
	exportComposites string

	channelTolerance int
	pixelTolerance   int
	dpi              int
}

// usageError marks errors that should be followed by the usage text.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func newRootCmd(a *app) *cobra.Command {
	f := &a.flags

	cmd := &cobra.Command{
		Use:   "pdf-diff [flags] file1.pdf file2.pdf",
		Short: "Compare two PDF files page by page",
		Long: `pdf-diff rasterizes both documents and compares them pixel by pixel.

Exit status is 0 when the documents are equal, 1 when they differ,
2 on usage errors and 3 when a document cannot be opened.

Use --output-diff to write a PDF where differing pages show both versions
overlaid (red/green from the first, blue from the second), and --view to
browse the differences in the terminal.`,
		Version: version,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return &usageError{err: fmt.Errorf("expected two PDF files, got %d argument(s)", len(args))}
			}
			return nil
		},
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, args[0], args[1])
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})
	cmd.SetVersionTemplate("pdf-diff version {{.Version}}\n")

	fs := cmd.Flags()
	fs.StringVarP(&f.configPath, "config", "c", "", "config file path (default: environment and built-in defaults)")
	fs.BoolVar(&f.jsonOut, "json", false, "print a JSON report to stdout")
	fs.BoolVar(&f.noColor, "no-color", false, "disable coloured output")

	fs.BoolVarP(&f.verbose, "verbose", "v", false, "list every differing page")
	fs.BoolVarP(&f.skipIdentical, "skip-identical", "s", false, "leave identical pages out of the --output-diff file")
	fs.BoolVarP(&f.markDifferences, "mark-differences", "m", false, "mark changed rows in the left margin of the composite")
	fs.BoolVarP(&f.grayscale, "grayscale", "g", false, "show only differences in colour, the rest in grayscale")
	fs.BoolVar(&f.view, "view", false, "browse the differences in an interactive terminal viewer")

	fs.StringVar(&f.outputDiff, "output-diff", "", "write the difference PDF to this file")
	fs.StringVar(&f.exportThumbnails, "export-thumbnails", "", "write per-page thumbnail PNGs to this directory")
	fs.StringVar(&f.exportComposites, "export-composites", "", "write per-page composite PNGs of differing pages to this directory")

	fs.IntVar(&f.channelTolerance, "channel-tolerance", 0, "per-channel difference (0-255) still considered equal")
	fs.IntVar(&f.pixelTolerance, "per-page-pixel-tolerance", 0, "number of differing pixels per page still considered equal")
	fs.IntVar(&f.dpi, "dpi", 300, "rasterization resolution (1-2400)")

	return cmd
}

// execute runs the command and maps the outcome to an exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr, exitCode: domain.ExitEqual}
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return a.exitCode
	}

	var ue *usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(stderr, "Error: %v\n\n%s", err, cmd.UsageString())
		return domain.ExitUsage
	}

	code := domain.ExitCode(err)
	ui.New(ui.Options{Out: stdout, ErrOut: stderr, NoColor: a.flags.noColor || !isTerminal(stderr)}).
		Error("%v", err)
	if code == domain.ExitUsage {
		fmt.Fprintf(stderr, "\n%s", cmd.UsageString())
	}
	return code
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
