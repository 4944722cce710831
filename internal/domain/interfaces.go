package domain

import "github.com/spherical/pdf-diff/internal/raster"

// Document is the capability the comparator needs from an opened PDF.
// Implementations are not required to be safe for concurrent use.
type Document interface {
	// Path returns the file the document was opened from
	Path() string

	// PageCount returns the number of pages
	PageCount() int

	// PageSize returns the size of a page in PDF points (1/72 inch)
	PageSize(index int) (width, height float64, err error)

	// RenderPage rasterizes a page at the given resolution on a white background
	RenderPage(index int, dpi int) (*raster.Image, error)

	// Close releases backend resources
	Close() error
}

// OutputSink receives one output page per compared page index, in order.
type OutputSink interface {
	// AddComposite appends a page showing a rasterized difference image
	// stretched to widthPt x heightPt points.
	AddComposite(img *raster.Image, widthPt, heightPt float64) error

	// AddSourcePage appends the original vector content of a source page
	AddSourcePage(src Document, index int) error
}
