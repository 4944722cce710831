// Package compare orchestrates page-by-page comparison of two documents.
package compare

import (
	"context"
	"fmt"
	"time"

	"github.com/spherical/pdf-diff/internal/config"
	"github.com/spherical/pdf-diff/internal/diff"
	"github.com/spherical/pdf-diff/internal/domain"
	"github.com/spherical/pdf-diff/internal/observability"
	"github.com/spherical/pdf-diff/internal/pdf"
	"github.com/spherical/pdf-diff/internal/raster"
)

// ThumbnailSink receives the annotated thumbnail of every compared page.
type ThumbnailSink interface {
	AddThumbnail(index int, thumb *raster.Image) error
}

// CompositeSink receives the composite image of every differing page.
type CompositeSink interface {
	AddComposite(index int, composite *raster.Image) error
}

// Options selects the outputs of a comparison run.
type Options struct {
	// Output receives one page per compared index; nil disables it
	Output domain.OutputSink

	// CollectDiffMap fills Summary.DiffMap
	CollectDiffMap bool

	// Thumbnails receives per-page thumbnails; nil disables them
	Thumbnails ThumbnailSink

	// Composites receives the composite of each differing page
	Composites CompositeSink

	// Progress is called after each page with a 1-based page number
	Progress func(page, total int)

	// Verbose logs every differing page and keeps scanning after the first
	Verbose bool
}

// NeedsFullTraversal reports whether every page must be visited. When it is
// false the run stops at the first differing page, since the overall answer
// is already known.
func NeedsFullTraversal(opts Options) bool {
	return opts.Verbose ||
		opts.Output != nil ||
		opts.CollectDiffMap ||
		opts.Thumbnails != nil ||
		opts.Composites != nil
}

// Service compares documents
type Service struct {
	cfg    config.ComparisonConfig
	logger *observability.Logger
}

// NewService creates a new comparison service
func NewService(cfg config.ComparisonConfig, logger *observability.Logger) *Service {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Service{
		cfg:    cfg,
		logger: logger.WithComponent("compare"),
	}
}

// Config returns the comparison settings the service was created with
func (s *Service) Config() config.ComparisonConfig {
	return s.cfg
}

// Compare compares doc1 against doc2 page by page
func (s *Service) Compare(ctx context.Context, doc1, doc2 domain.Document, opts Options) (*domain.Summary, error) {
	startTime := time.Now()

	pages1 := doc1.PageCount()
	pages2 := doc2.PageCount()
	summary := &domain.Summary{
		PagesFirst:  pages1,
		PagesSecond: pages2,
		PagesTotal:  max(pages1, pages2),
	}
	if opts.CollectDiffMap {
		summary.DiffMap = make(domain.PageDiffMap, 0, summary.PagesTotal)
	}

	if pages1 != pages2 {
		s.logger.Info().Int("pages_first", pages1).Int("pages_second", pages2).
			Msgf("pages count differs: %d vs %d", pages1, pages2)
	}

	fullTraversal := NeedsFullTraversal(opts)
	diffCount := 0

	for page := 0; page < summary.PagesTotal; page++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		result, err := s.comparePage(doc1, doc2, page, opts)
		if err != nil {
			return nil, err
		}
		summary.Pages = append(summary.Pages, result)
		summary.PagesCompared++

		if opts.CollectDiffMap {
			summary.DiffMap = append(summary.DiffMap, result.Changed)
		}
		if opts.Progress != nil {
			opts.Progress(page+1, summary.PagesTotal)
		}

		if result.Changed {
			diffCount++
			if !fullTraversal {
				summary.StoppedEarly = page+1 < summary.PagesTotal
				break
			}
		}
	}

	summary.Equal = diffCount == 0 && pages1 == pages2

	s.logger.Debug().
		Int("pages_compared", summary.PagesCompared).
		Int("pages_differing", diffCount).
		Bool("equal", summary.Equal).
		Dur("duration", time.Since(startTime)).
		Msg("Comparison complete")

	return summary, nil
}

// comparePage renders, diffs and emits one page index
func (s *Service) comparePage(doc1, doc2 domain.Document, page int, opts Options) (domain.PageResult, error) {
	a, b, err := s.RenderPair(doc1, doc2, page)
	if err != nil {
		return domain.PageResult{}, err
	}

	dopts := s.cfg.DiffOptions()
	dopts.WantThumbnail = opts.Thumbnails != nil
	res := diff.Images(a, b, dopts)

	result := domain.PageResult{
		Index:      page,
		Changed:    res.Changed,
		DiffPixels: res.DiffPixels,
		InFirst:    a != nil,
		InSecond:   b != nil,
	}

	if res.Changed && opts.Verbose {
		s.logger.Info().Int("page", page+1).Int("diff_pixels", res.DiffPixels).
			Msgf("page %d differs", page+1)
	}

	if opts.Output != nil {
		if err := s.emitPage(opts.Output, doc1, doc2, page, a, res); err != nil {
			return domain.PageResult{}, err
		}
	}
	if opts.Thumbnails != nil && res.Thumbnail != nil {
		if err := opts.Thumbnails.AddThumbnail(page, res.Thumbnail); err != nil {
			return domain.PageResult{}, domain.IOError(fmt.Sprintf("failed to store thumbnail of page %d", page+1), err)
		}
	}
	if opts.Composites != nil && res.Composite != nil {
		if err := opts.Composites.AddComposite(page, res.Composite); err != nil {
			return domain.PageResult{}, domain.IOError(fmt.Sprintf("failed to store composite of page %d", page+1), err)
		}
	}

	return result, nil
}

// emitPage writes the output page for one index. Differing pages become the
// composite raster scaled back to page space; identical pages are copied as
// vector content unless skipped.
func (s *Service) emitPage(out domain.OutputSink, doc1, doc2 domain.Document, page int, a *raster.Image, res *diff.Result) error {
	if !res.Changed {
		if s.cfg.SkipIdentical {
			return nil
		}
		return out.AddSourcePage(doc1, page)
	}

	w, h, err := s.outputPageSize(doc1, doc2, page, a, res.Composite)
	if err != nil {
		return err
	}
	return out.AddComposite(res.Composite, w, h)
}

// outputPageSize picks the output page size for a composite: the first
// document's page size when the composite covers exactly that page,
// otherwise the composite's bounding box converted to points.
func (s *Service) outputPageSize(doc1, doc2 domain.Document, page int, a, composite *raster.Image) (float64, float64, error) {
	if a != nil && a.Width == composite.Width && a.Height == composite.Height {
		return doc1.PageSize(page)
	}
	w, h := pdf.PageSizeFromRaster(composite.Width, composite.Height, s.cfg.DPI)
	return w, h, nil
}

// RenderPair rasterizes page index of both documents. A side is nil when
// that document has no such page.
func (s *Service) RenderPair(doc1, doc2 domain.Document, index int) (*raster.Image, *raster.Image, error) {
	a, err := s.renderPage(doc1, index)
	if err != nil {
		return nil, nil, err
	}
	b, err := s.renderPage(doc2, index)
	if err != nil {
		return nil, nil, err
	}
	if a == nil && b == nil {
		return nil, nil, domain.RenderError(fmt.Sprintf("page %d is in neither document", index+1), nil)
	}
	return a, b, nil
}

func (s *Service) renderPage(doc domain.Document, index int) (*raster.Image, error) {
	if index >= doc.PageCount() {
		return nil, nil
	}
	img, err := doc.RenderPage(index, s.cfg.DPI)
	if err != nil {
		return nil, fmt.Errorf("render page %d of %s: %w", index+1, doc.Path(), err)
	}
	return img, nil
}

// DiffPair compares two already rendered pages with the configured
// tolerances and the given alignment offset.
func (s *Service) DiffPair(a, b *raster.Image, offset diff.Offset, wantThumbnail bool) *diff.Result {
	opts := s.cfg.DiffOptions()
	opts.Offset = offset
	opts.WantThumbnail = wantThumbnail
	return diff.Images(a, b, opts)
}
