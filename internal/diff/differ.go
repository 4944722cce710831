// Package diff compares two page rasters pixel by pixel and builds the
// composite difference image and the navigation thumbnail in the same pass.
package diff

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/spherical/pdf-diff/internal/raster"
)

const (
	// DefaultThumbnailWidth is the width of the navigation gutter.
	DefaultThumbnailWidth = 100

	// markerWidth is the width of the changed-row stripe.
	markerWidth = 10
)

var (
	markerColor    = [3]uint8{0, 0, 255}
	changedColor   = [3]uint8{255, 0, 0}
	unchangedColor = [3]uint8{170, 230, 130}
)

// Offset displaces the second raster before comparison.
type Offset struct {
	DX int
	DY int
}

// Options controls a single page comparison.
type Options struct {
	Offset           Offset
	ChannelTolerance int
	// PixelBudget is the number of differing pixels still considered
	// unchanged; 0 means any difference counts.
	PixelBudget     int
	Grayscale       bool
	MarkDifferences bool
	WantThumbnail   bool
	ThumbnailWidth  int
	// KeepComposite returns the composite even when the page is unchanged.
	KeepComposite bool
}

// Result is the outcome of comparing two rasters.
type Result struct {
	Changed bool
	// StructuralMismatch is set when the rasters differ in size or position,
	// including when one of them is missing.
	StructuralMismatch bool
	DiffPixels         int
	Composite          *raster.Image
	Thumbnail          *raster.Image
}

// UnionSize returns the size of the bounding box of a (wa x ha at the origin)
// and b (wb x hb at offset). A zero-sized side is ignored.
func UnionSize(wa, ha, wb, hb int, off Offset) (int, int) {
	u := rect(wa, ha, Offset{}).Union(rect(wb, hb, off))
	return u.Dx(), u.Dy()
}

func rect(w, h int, off Offset) image.Rectangle {
	if w <= 0 || h <= 0 {
		return image.Rectangle{}
	}
	return image.Rect(off.DX, off.DY, off.DX+w, off.DY+h)
}

// Luma converts a colour to its BT.709 luminance.
func Luma(r, g, b uint8) uint8 {
	return uint8(0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(b) + 0.5)
}

// Images compares a against b displaced by opts.Offset. Either side may be
// nil, which models a page present in only one document; both nil is a
// programming error.
func Images(a, b *raster.Image, opts Options) *Result {
	if a == nil && b == nil {
		panic("diff: both rasters are nil")
	}

	var ra, rb image.Rectangle
	if a != nil {
		ra = rect(a.Width, a.Height, Offset{})
	}
	if b != nil {
		rb = rect(b.Width, b.Height, opts.Offset)
	}

	// union anchored at the origin
	union := ra.Union(rb)
	ra = ra.Sub(union.Min)
	rb = rb.Sub(union.Min)

	res := &Result{}
	composite := raster.New(union.Dx(), union.Dy())
	if ra != rb {
		res.StructuralMismatch = true
		composite.Fill(255, 255, 255)
	}

	var th *thumbnail
	if opts.WantThumbnail {
		th = newThumbnail(composite.Width, composite.Height, opts.ThumbnailWidth)
	}

	if a != nil {
		for y := 0; y < a.Height; y++ {
			out := composite.Pix[composite.PixOffset(ra.Min.X, ra.Min.Y+y):]
			copy(out[:a.Width*raster.BytesPerPixel], a.Pix[y*a.Stride:])
		}
	}

	tol := opts.ChannelTolerance
	if b != nil {
		markCols := min(markerWidth, composite.Width)
		for y := 0; y < b.Height; y++ {
			cy := rb.Min.Y + y
			out := composite.Pix[composite.PixOffset(rb.Min.X, cy):]
			in := b.Pix[y*b.Stride:]
			rowChanged := false

			for x := 0; x < b.Width*raster.BytesPerPixel; x += raster.BytesPerPixel {
				r1, g1, b1 := out[x+0], out[x+1], out[x+2]
				r2, g2, b2 := in[x+0], in[x+1], in[x+2]

				if exceeds(r1, r2, tol) || exceeds(g1, g2, tol) || exceeds(b1, b2, tol) {
					res.DiffPixels++
					rowChanged = true
					if th != nil {
						th.mark(rb.Min.X+x/raster.BytesPerPixel, cy)
					}
				}

				if opts.Grayscale {
					la := Luma(r1, g1, b1)
					lb := Luma(r2, g2, b2)
					out[x+0] = lb
					out[x+1] = uint8((int(la) + int(lb)) / 2)
					out[x+2] = la
				} else {
					// R and G stay from a, B comes from b
					out[x+2] = b2
				}
			}

			if opts.MarkDifferences && rowChanged {
				row := composite.Pix[composite.PixOffset(0, cy):]
				for x := 0; x < markCols; x++ {
					i := x * raster.BytesPerPixel
					row[i+0], row[i+1], row[i+2] = markerColor[0], markerColor[1], markerColor[2]
				}
			}
		}
	}

	observed := res.StructuralMismatch || res.DiffPixels > 0
	if opts.PixelBudget > 0 {
		res.Changed = res.StructuralMismatch || res.DiffPixels > opts.PixelBudget
	} else {
		res.Changed = observed
	}

	if th != nil {
		res.Thumbnail = th.finish(composite, observed)
	}
	if res.Changed || opts.KeepComposite {
		res.Composite = composite
	}
	return res
}

func exceeds(c1, c2 uint8, tol int) bool {
	d := int(c1) - int(c2)
	if d < 0 {
		d = -d
	}
	return d > tol
}

// thumbnail accumulates difference markers at reduced resolution.
type thumbnail struct {
	img    *raster.Image
	marked []bool
	scale  float64
}

func newThumbnail(w, h, width int) *thumbnail {
	if width <= 0 {
		width = DefaultThumbnailWidth
	}
	scale := float64(width) / float64(w)
	height := max(1, int(float64(h)*scale))
	return &thumbnail{
		img:    raster.NewWhite(width, height),
		marked: make([]bool, width*height),
		scale:  scale,
	}
}

func (t *thumbnail) mark(x, y int) {
	tx := min(int(float64(x)*t.scale), t.img.Width-1)
	ty := min(int(float64(y)*t.scale), t.img.Height-1)
	if t.marked[ty*t.img.Width+tx] {
		return
	}
	t.marked[ty*t.img.Width+tx] = true
	t.img.SetRGB(tx, ty, changedColor[0], changedColor[1], changedColor[2])
}

// finish lays a faint grayscale copy of the composite under the markers and
// tints pages without differences green.
func (t *thumbnail) finish(composite *raster.Image, changed bool) *raster.Image {
	gray := imaging.Grayscale(imaging.Resize(composite.ToNRGBA(), t.img.Width, t.img.Height, imaging.Box))

	for y := 0; y < t.img.Height; y++ {
		for x := 0; x < t.img.Width; x++ {
			if t.marked[y*t.img.Width+x] {
				continue
			}
			v := 128 + gray.Pix[gray.PixOffset(x, y)]/2
			if changed {
				t.img.SetRGB(x, y, v, v, v)
				continue
			}
			t.img.SetRGB(x, y,
				blend(v, unchangedColor[0]),
				blend(v, unchangedColor[1]),
				blend(v, unchangedColor[2]))
		}
	}
	return t.img
}

func blend(a, b uint8) uint8 {
	return uint8((int(a) + int(b)) / 2)
}
