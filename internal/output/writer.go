// Package output assembles the difference PDF.
//
// Pages arrive one at a time in page order. Consecutive composite pages are
// drawn into a single gofpdf document and consecutive pages copied from the
// same source are extracted together with pdfcpu; each such run becomes a
// segment file in a scratch directory next to the destination. Close merges
// the segments into the destination and Abort discards everything.
package output

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/phpdave11/gofpdf"

	"github.com/spherical/pdf-diff/internal/domain"
	"github.com/spherical/pdf-diff/internal/observability"
	"github.com/spherical/pdf-diff/internal/pdf"
	"github.com/spherical/pdf-diff/internal/raster"
)

// Writer is a domain.OutputSink writing a PDF file.
type Writer struct {
	path     string
	scratch  string
	logger   *observability.Logger
	segments []string
	pages    int
	done     bool

	// composite run in progress
	doc *gofpdf.Fpdf

	// source run in progress
	srcPath  string
	srcPages []int
}

var _ domain.OutputSink = (*Writer)(nil)

// NewWriter prepares a writer for path. Nothing is written to path until Close.
func NewWriter(path string, logger *observability.Logger) (*Writer, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if path == "" {
		return nil, domain.ValidationError("output path is required", nil)
	}

	scratch, err := os.MkdirTemp(filepath.Dir(path), ".pdf-diff-*")
	if err != nil {
		return nil, domain.OutputError(fmt.Sprintf("failed to create scratch directory for %s", path), err)
	}

	return &Writer{
		path:    path,
		scratch: scratch,
		logger:  logger.WithComponent("output"),
	}, nil
}

// Path returns the destination file.
func (w *Writer) Path() string {
	return w.path
}

// Pages returns the number of pages added so far.
func (w *Writer) Pages() int {
	return w.pages
}

// AddComposite appends a page holding img stretched over widthPt x heightPt.
func (w *Writer) AddComposite(img *raster.Image, widthPt, heightPt float64) error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	if widthPt <= 0 || heightPt <= 0 {
		return domain.OutputError(fmt.Sprintf("invalid page size %gx%g", widthPt, heightPt), nil)
	}
	if err := w.flushSource(); err != nil {
		return err
	}

	if w.doc == nil {
		w.doc = gofpdf.NewCustom(&gofpdf.InitType{
			UnitStr: "pt",
			Size:    gofpdf.SizeType{Wd: widthPt, Ht: heightPt},
		})
		w.doc.SetMargins(0, 0, 0)
		w.doc.SetAutoPageBreak(false, 0)
		w.doc.SetCompression(true)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img.ToNRGBA(), imaging.PNG); err != nil {
		return domain.OutputError(fmt.Sprintf("failed to encode page %d", w.pages+1), err)
	}

	name := "page-" + strconv.Itoa(w.pages+1)
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	w.doc.AddPageFormat("P", gofpdf.SizeType{Wd: widthPt, Ht: heightPt})
	w.doc.RegisterImageOptionsReader(name, opts, &buf)
	w.doc.ImageOptions(name, 0, 0, widthPt, heightPt, false, opts, 0, "")
	if err := w.doc.Error(); err != nil {
		return domain.OutputError(fmt.Sprintf("failed to draw page %d", w.pages+1), err)
	}

	w.pages++
	return nil
}

// AddSourcePage appends page index of src unchanged.
func (w *Writer) AddSourcePage(src domain.Document, index int) error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	if index < 0 || index >= src.PageCount() {
		return domain.OutputError(fmt.Sprintf("page %d out of range for %s", index+1, src.Path()), nil)
	}
	if err := w.flushComposite(); err != nil {
		return err
	}
	if w.srcPath != "" && w.srcPath != src.Path() {
		if err := w.flushSource(); err != nil {
			return err
		}
	}

	w.srcPath = src.Path()
	w.srcPages = append(w.srcPages, index+1)
	w.pages++
	return nil
}

// Close writes the destination file and removes the scratch directory. When
// no page was added no file is written and written is false.
func (w *Writer) Close() (written bool, err error) {
	if err := w.checkOpen(); err != nil {
		return false, err
	}
	defer w.cleanup()

	if err := w.flushComposite(); err != nil {
		return false, err
	}
	if err := w.flushSource(); err != nil {
		return false, err
	}

	w.done = true
	if len(w.segments) == 0 {
		w.logger.Warn().Str("path", w.path).Msg("No pages to write, output file not created")
		return false, nil
	}

	staged := filepath.Join(w.scratch, "merged.pdf")
	if err := api.MergeCreateFile(w.segments, staged, false, pdf.PdfcpuConfig()); err != nil {
		return false, domain.OutputError(fmt.Sprintf("failed to merge %d segments", len(w.segments)), err)
	}
	if err := os.Rename(staged, w.path); err != nil {
		return false, domain.OutputError(fmt.Sprintf("failed to write %s", w.path), err)
	}

	w.logger.Debug().
		Str("path", w.path).
		Int("pages", w.pages).
		Int("segments", len(w.segments)).
		Msg("Wrote difference document")
	return true, nil
}

// Abort discards all pages. The destination is left untouched.
func (w *Writer) Abort() {
	if w.done {
		return
	}
	w.done = true
	w.doc = nil
	w.srcPages = nil
	w.cleanup()
	w.logger.Debug().Str("path", w.path).Msg("Output aborted")
}

func (w *Writer) checkOpen() error {
	if w.done {
		return domain.OutputError("writer is closed", nil)
	}
	return nil
}

func (w *Writer) cleanup() {
	if err := os.RemoveAll(w.scratch); err != nil {
		w.logger.Warn().Err(err).Str("dir", w.scratch).Msg("Failed to remove scratch directory")
	}
}

func (w *Writer) nextSegment() string {
	return filepath.Join(w.scratch, fmt.Sprintf("segment-%04d.pdf", len(w.segments)))
}

func (w *Writer) flushComposite() error {
	if w.doc == nil {
		return nil
	}
	doc := w.doc
	w.doc = nil

	segment := w.nextSegment()
	if err := doc.OutputFileAndClose(segment); err != nil {
		return domain.OutputError("failed to write composite pages", err)
	}
	w.segments = append(w.segments, segment)
	return nil
}

func (w *Writer) flushSource() error {
	if len(w.srcPages) == 0 {
		return nil
	}
	src, pages := w.srcPath, w.srcPages
	w.srcPath, w.srcPages = "", nil

	segment := w.nextSegment()
	if err := api.TrimFile(src, segment, pageSelection(pages), pdf.PdfcpuConfig()); err != nil {
		return domain.OutputError(fmt.Sprintf("failed to copy pages from %s", src), err)
	}
	w.segments = append(w.segments, segment)
	return nil
}

// pageSelection renders 1-based page numbers as pdfcpu selectors,
// collapsing consecutive runs into ranges.
func pageSelection(pages []int) []string {
	var sel []string
	for i := 0; i < len(pages); {
		j := i
		for j+1 < len(pages) && pages[j+1] == pages[j]+1 {
			j++
		}
		if i == j {
			sel = append(sel, strconv.Itoa(pages[i]))
		} else {
			sel = append(sel, fmt.Sprintf("%d-%d", pages[i], pages[j]))
		}
		i = j + 1
	}
	return sel
}
