package main

import (
	"io"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/spherical/pdf-diff/internal/compare"
	"github.com/spherical/pdf-diff/internal/config"
	"github.com/spherical/pdf-diff/internal/domain"
	"github.com/spherical/pdf-diff/internal/export"
	"github.com/spherical/pdf-diff/internal/observability"
	"github.com/spherical/pdf-diff/internal/output"
	"github.com/spherical/pdf-diff/internal/pdf"
	"github.com/spherical/pdf-diff/internal/ui"
	"github.com/spherical/pdf-diff/internal/viewer"
)

type app struct {
	flags    flags
	stdout   io.Writer
	stderr   io.Writer
	exitCode int
}

// report is the --json output.
type report struct {
	RunID          string              `json:"run_id"`
	File1          string              `json:"file1"`
	File2          string              `json:"file2"`
	Equal          bool                `json:"equal"`
	PagesFirst     int                 `json:"pages_first"`
	PagesSecond    int                 `json:"pages_second"`
	PagesCompared  int                 `json:"pages_compared"`
	DifferingPages int                 `json:"differing_pages"`
	StoppedEarly   bool                `json:"stopped_early"`
	Pages          []domain.PageResult `json:"pages"`
	OutputDiff     string              `json:"output_diff,omitempty"`
}

// loadConfig resolves defaults, the config file, the environment and the
// explicitly set flags, in that order, and validates the result.
func (a *app) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	cfg, err := config.Load(a.flags.configPath)
	if err != nil {
		return nil, err
	}

	fs := cmd.Flags()
	c := &cfg.Comparison
	if fs.Changed("dpi") {
		c.DPI = a.flags.dpi
	}
	if fs.Changed("channel-tolerance") {
		c.ChannelTolerance = a.flags.channelTolerance
	}
	if fs.Changed("per-page-pixel-tolerance") {
		c.PerPagePixelTolerance = a.flags.pixelTolerance
	}
	if fs.Changed("grayscale") {
		c.Grayscale = a.flags.grayscale
	}
	if fs.Changed("mark-differences") {
		c.MarkDifferences = a.flags.markDifferences
	}
	if fs.Changed("skip-identical") {
		c.SkipIdentical = a.flags.skipIdentical
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (a *app) run(cmd *cobra.Command, path1, path2 string) error {
	ctx := cmd.Context()

	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		Output:      a.stderr,
		ServiceName: "pdf-diff",
		RunID:       runID,
	}).WithOperation("compare")

	out := ui.New(ui.Options{
		Out:         a.stdout,
		ErrOut:      a.stderr,
		NoColor:     a.flags.noColor,
		JSONMode:    a.flags.jsonOut,
		Interactive: !a.flags.view && isTerminal(a.stderr),
	})

	doc1, err := pdf.Open(path1, logger)
	if err != nil {
		return err
	}
	defer doc1.Close()

	doc2, err := pdf.Open(path2, logger)
	if err != nil {
		return err
	}
	defer doc2.Close()

	svc := compare.NewService(cfg.Comparison, logger)
	opts := compare.Options{
		CollectDiffMap: a.flags.view || a.flags.jsonOut,
		Verbose:        a.flags.verbose,
	}

	if a.flags.exportThumbnails != "" {
		thumbs, err := export.NewPNGExporter(a.flags.exportThumbnails, logger)
		if err != nil {
			return err
		}
		opts.Thumbnails = thumbs
	}
	if a.flags.exportComposites != "" {
		composites, err := export.NewPNGExporter(a.flags.exportComposites, logger)
		if err != nil {
			return err
		}
		opts.Composites = composites
	}

	// the writer owns a scratch directory until Close or Abort, so it comes last
	var writer *output.Writer
	if a.flags.outputDiff != "" {
		writer, err = output.NewWriter(a.flags.outputDiff, logger)
		if err != nil {
			return err
		}
		opts.Output = writer
	}

	if a.flags.verbose {
		out.Step("Comparing %s with %s at %d dpi", path1, path2, cfg.Comparison.DPI)
	}

	bar := out.ProgressBar(max(doc1.PageCount(), doc2.PageCount()), "Comparing")
	opts.Progress = func(page, total int) { bar.Set(page) }

	summary, err := svc.Compare(ctx, doc1, doc2, opts)
	bar.Finish()
	if err != nil {
		if writer != nil {
			writer.Abort()
		}
		return err
	}

	written := false
	if writer != nil {
		spin := out.Spinner("Writing " + writer.Path())
		spin.Start()
		written, err = writer.Close()
		spin.Stop()
		if err != nil {
			return err
		}
		if !written {
			out.Warning("No pages to write, %s was not created", writer.Path())
		}
	}

	a.exitCode = domain.ExitEqual
	if !summary.Equal {
		a.exitCode = domain.ExitDifferent
	}

	if a.flags.jsonOut {
		rep := report{
			RunID:          runID,
			File1:          path1,
			File2:          path2,
			Equal:          summary.Equal,
			PagesFirst:     summary.PagesFirst,
			PagesSecond:    summary.PagesSecond,
			PagesCompared:  summary.PagesCompared,
			DifferingPages: len(summary.ChangedPages()),
			StoppedEarly:   summary.StoppedEarly,
			Pages:          summary.Pages,
		}
		if written {
			rep.OutputDiff = writer.Path()
		}
		if err := out.JSON(rep); err != nil {
			return domain.IOError("failed to write report", err)
		}
	} else if a.flags.verbose {
		printSummary(out, summary)
	}

	if a.flags.view {
		if summary.PagesTotal == 0 {
			out.Warning("Both documents are empty, nothing to view")
			return nil
		}
		return a.runViewer(cmd, cfg, svc, doc1, doc2, summary, logger)
	}
	return nil
}

func printSummary(out *ui.UI, summary *domain.Summary) {
	if summary.PageCountMismatch() {
		out.Warning("pages count differs: %d vs %d", summary.PagesFirst, summary.PagesSecond)
	}

	changed := summary.ChangedPages()
	if len(changed) > 0 {
		rows := make([][]string, 0, len(changed))
		for _, p := range changed {
			where := "both"
			switch {
			case !p.InSecond:
				where = "first only"
			case !p.InFirst:
				where = "second only"
			}
			rows = append(rows, []string{strconv.Itoa(p.Index + 1), strconv.Itoa(p.DiffPixels), where})
		}
		out.Table([]string{"Page", "Pixels", "Present in"}, rows)
	}

	if summary.Equal {
		out.Success("No differences in %d page(s)", summary.PagesCompared)
		return
	}
	if summary.StoppedEarly {
		out.Info("Documents differ (stopped after page %d)", summary.PagesCompared)
		return
	}
	out.Info("%d of %d page(s) differ", len(changed), summary.PagesTotal)
}

func (a *app) runViewer(cmd *cobra.Command, cfg *config.Config, svc *compare.Service, doc1, doc2 domain.Document, summary *domain.Summary, logger *observability.Logger) error {
	opts := viewer.Options{
		Doc1:     doc1,
		Doc2:     doc2,
		DiffMap:  summary.DiffMap,
		ZoomStep: cfg.Viewer.ZoomStep,
		Logger:   logger,
	}

	if cfg.Viewer.WatchFiles {
		w, err := viewer.NewWatcher([]string{doc1.Path(), doc2.Path()}, 0, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("Live reload disabled")
		} else {
			defer w.Close()
			opts.Changes = w.Changes()
			opts.Open = func() (domain.Document, domain.Document, error) {
				return openPair(doc1.Path(), doc2.Path(), logger)
			}
		}
	}

	return viewer.Run(cmd.Context(), svc, opts)
}

func openPair(path1, path2 string, logger *observability.Logger) (domain.Document, domain.Document, error) {
	d1, err := pdf.Open(path1, logger)
	if err != nil {
		return nil, nil, err
	}
	d2, err := pdf.Open(path2, logger)
	if err != nil {
		d1.Close()
		return nil, nil, err
	}
	return d1, d2, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && ui.IsTerminal(f)
}

