// Package pdf opens PDF documents and rasterizes their pages using MuPDF
// (go-fitz), with page geometry taken from pdfcpu when it can parse the file.
package pdf

import (
	"fmt"
	"math"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/spherical/pdf-diff/internal/domain"
	"github.com/spherical/pdf-diff/internal/observability"
	"github.com/spherical/pdf-diff/internal/raster"
)

const pointsPerInch = 72.0

// Document is an opened PDF file
type Document struct {
	path   string
	doc    *fitz.Document
	sizes  []types.Dim
	logger *observability.Logger
}

var _ domain.Document = (*Document)(nil)

// Open opens a PDF file for comparison
func Open(path string, logger *observability.Logger) (*Document, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}

	validator := NewValidator()
	if err := validator.ValidatePDFPath(path); err != nil {
		return nil, err
	}
	if !validator.HasPDFExtension(path) {
		logger.Debug().Str("path", path).Msg("File has no .pdf extension, opening anyway")
	}

	doc, err := fitz.New(path)
	if err != nil {
		return nil, domain.OpenError(fmt.Sprintf("failed to open %s", path), err)
	}

	d := &Document{
		path:   path,
		doc:    doc,
		logger: logger,
	}

	if err := d.loadPageSizes(); err != nil {
		doc.Close()
		return nil, err
	}

	logger.Debug().Str("path", path).Int("pages", doc.NumPage()).Msg("Opened document")
	return d, nil
}

// Path returns the file the document was opened from
func (d *Document) Path() string {
	return d.path
}

// PageCount returns the number of pages
func (d *Document) PageCount() int {
	return d.doc.NumPage()
}

// PageSize returns the size of a page in points
func (d *Document) PageSize(index int) (float64, float64, error) {
	if index < 0 || index >= d.PageCount() {
		return 0, 0, domain.RenderError(fmt.Sprintf("page %d out of range (document has %d pages)", index+1, d.PageCount()), nil)
	}
	return d.sizes[index].Width, d.sizes[index].Height, nil
}

// loadPageSizes records the size of every page. MuPDF reports integral
// bounds only, so pdfcpu's exact box is preferred whenever the two agree to
// within a point.
func (d *Document) loadPageSizes() error {
	exact, err := api.PageDimsFile(d.path)
	if err != nil {
		d.logger.Debug().Err(err).Str("path", d.path).Msg("pdfcpu could not read page dimensions, using MuPDF bounds")
		exact = nil
	} else if len(exact) != d.doc.NumPage() {
		d.logger.Warn().
			Str("path", d.path).
			Int("pdfcpu_pages", len(exact)).
			Int("mupdf_pages", d.doc.NumPage()).
			Msg("Page count disagreement, using MuPDF bounds")
		exact = nil
	}

	d.sizes = make([]types.Dim, d.doc.NumPage())
	for i := range d.sizes {
		bound, err := d.doc.Bound(i)
		if err != nil {
			return domain.OpenError(fmt.Sprintf("failed to read bounds of page %d of %s", i+1, d.path), err)
		}
		d.sizes[i] = types.Dim{Width: float64(bound.Dx()), Height: float64(bound.Dy())}

		if exact != nil && closeTo(exact[i], d.sizes[i]) {
			d.sizes[i] = exact[i]
		}
	}
	return nil
}

func closeTo(a, b types.Dim) bool {
	return math.Abs(a.Width-b.Width) <= 1 && math.Abs(a.Height-b.Height) <= 1
}

// RenderPage rasterizes a page at the given resolution
func (d *Document) RenderPage(index int, dpi int) (*raster.Image, error) {
	if err := NewValidator().ValidateDPI(dpi); err != nil {
		return nil, err
	}

	w, h, err := d.PageSize(index)
	if err != nil {
		return nil, err
	}
	width, height := RasterSize(w, h, dpi)

	img, err := d.doc.ImageDPI(index, float64(dpi))
	if err != nil {
		return nil, domain.RenderError(fmt.Sprintf("failed to render page %d of %s", index+1, d.path), err)
	}

	if b := img.Bounds(); b.Dx() != width || b.Dy() != height {
		d.logger.Debug().
			Int("page", index+1).
			Int("rendered_width", b.Dx()).
			Int("rendered_height", b.Dy()).
			Int("width", width).
			Int("height", height).
			Msg("Adjusting rendered page to nominal raster size")
	}

	return raster.FromRGBA(img, width, height), nil
}

// Close releases the MuPDF document
func (d *Document) Close() error {
	if d.doc == nil {
		return nil
	}
	err := d.doc.Close()
	d.doc = nil
	return err
}

// RasterSize returns the pixel size of a wPt x hPt page rendered at dpi.
func RasterSize(wPt, hPt float64, dpi int) (int, int) {
	scale := float64(dpi) / pointsPerInch
	w := int(math.Round(wPt * scale))
	h := int(math.Round(hPt * scale))
	return max(w, 1), max(h, 1)
}

// PageSizeFromRaster converts a raster size back to points at dpi.
func PageSizeFromRaster(width, height, dpi int) (float64, float64) {
	scale := pointsPerInch / float64(dpi)
	return float64(width) * scale, float64(height) * scale
}
