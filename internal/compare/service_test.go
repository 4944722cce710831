package compare

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/pdf-diff/internal/config"
	"github.com/spherical/pdf-diff/internal/diff"
	"github.com/spherical/pdf-diff/internal/domain"
	"github.com/spherical/pdf-diff/internal/pdf"
	"github.com/spherical/pdf-diff/internal/raster"
	"github.com/spherical/pdf-diff/internal/testutil"
)

// fakeDocument serves pre-rendered pages.
type fakeDocument struct {
	path      string
	pages     []*raster.Image
	renders   int
	failPage  int
	renderErr error
}

func newFakeDocument(path string, pages ...*raster.Image) *fakeDocument {
	return &fakeDocument{path: path, pages: pages, failPage: -1}
}

func (d *fakeDocument) Path() string   { return d.path }
func (d *fakeDocument) PageCount() int { return len(d.pages) }
func (d *fakeDocument) Close() error   { return nil }

func (d *fakeDocument) PageSize(index int) (float64, float64, error) {
	p := d.pages[index]
	return float64(p.Width) * 2, float64(p.Height) * 2, nil
}

func (d *fakeDocument) RenderPage(index int, dpi int) (*raster.Image, error) {
	d.renders++
	if index == d.failPage {
		return nil, d.renderErr
	}
	return d.pages[index].Clone(), nil
}

// recordingSink remembers what was written to it.
type recordingSink struct {
	calls []string
	sizes [][2]float64
}

func (s *recordingSink) AddComposite(img *raster.Image, w, h float64) error {
	s.calls = append(s.calls, "composite")
	s.sizes = append(s.sizes, [2]float64{w, h})
	return nil
}

func (s *recordingSink) AddSourcePage(src domain.Document, index int) error {
	s.calls = append(s.calls, "source")
	return nil
}

type thumbSink struct{ pages []int }

func (s *thumbSink) AddThumbnail(index int, thumb *raster.Image) error {
	s.pages = append(s.pages, index)
	return nil
}

func white() *raster.Image { return raster.NewWhite(20, 30) }

func dotted() *raster.Image {
	img := raster.NewWhite(20, 30)
	img.SetRGB(5, 5, 0, 0, 0)
	return img
}

func testConfig() config.ComparisonConfig {
	return config.DefaultConfig().Comparison
}

func TestNeedsFullTraversal(t *testing.T) {
	assert.False(t, NeedsFullTraversal(Options{}))
	assert.False(t, NeedsFullTraversal(Options{Progress: func(int, int) {}}))
	assert.True(t, NeedsFullTraversal(Options{Verbose: true}))
	assert.True(t, NeedsFullTraversal(Options{CollectDiffMap: true}))
	assert.True(t, NeedsFullTraversal(Options{Output: &recordingSink{}}))
	assert.True(t, NeedsFullTraversal(Options{Thumbnails: &thumbSink{}}))
}

func TestCompare_SameDocumentIsEqual(t *testing.T) {
	doc := newFakeDocument("a.pdf", white(), dotted(), white())
	svc := NewService(testConfig(), nil)

	summary, err := svc.Compare(context.Background(), doc, doc, Options{CollectDiffMap: true})

	require.NoError(t, err)
	assert.True(t, summary.Equal)
	assert.Equal(t, domain.PageDiffMap{false, false, false}, summary.DiffMap)
	assert.Equal(t, 3, summary.PagesCompared)
	assert.Empty(t, summary.ChangedPages())
}

func TestCompare_ExtraPageDiffers(t *testing.T) {
	doc1 := newFakeDocument("a.pdf", white(), white(), white())
	doc2 := newFakeDocument("b.pdf", white(), white())
	svc := NewService(testConfig(), nil)

	summary, err := svc.Compare(context.Background(), doc1, doc2, Options{CollectDiffMap: true})

	require.NoError(t, err)
	assert.False(t, summary.Equal)
	assert.True(t, summary.PageCountMismatch())
	assert.Equal(t, domain.PageDiffMap{false, false, true}, summary.DiffMap)
	assert.Equal(t, 3, summary.PagesTotal)

	last := summary.Pages[2]
	assert.True(t, last.InFirst)
	assert.False(t, last.InSecond)
}

func TestCompare_StopsAtFirstDifference(t *testing.T) {
	doc1 := newFakeDocument("a.pdf", white(), white(), white(), white())
	doc2 := newFakeDocument("b.pdf", white(), dotted(), white(), white())
	svc := NewService(testConfig(), nil)

	summary, err := svc.Compare(context.Background(), doc1, doc2, Options{})

	require.NoError(t, err)
	assert.False(t, summary.Equal)
	assert.True(t, summary.StoppedEarly)
	assert.Equal(t, 2, summary.PagesCompared)
	assert.Equal(t, 2, doc1.renders)
}

func TestCompare_FullTraversalWhenVerbose(t *testing.T) {
	doc1 := newFakeDocument("a.pdf", white(), white(), white())
	doc2 := newFakeDocument("b.pdf", dotted(), white(), dotted())
	svc := NewService(testConfig(), nil)

	summary, err := svc.Compare(context.Background(), doc1, doc2, Options{Verbose: true})

	require.NoError(t, err)
	assert.False(t, summary.StoppedEarly)
	assert.Equal(t, 3, summary.PagesCompared)
	assert.Len(t, summary.ChangedPages(), 2)
	assert.Equal(t, 1, summary.Pages[0].DiffPixels)
}

func TestCompare_OutputPages(t *testing.T) {
	doc1 := newFakeDocument("a.pdf", white(), white(), white())
	doc2 := newFakeDocument("b.pdf", white(), dotted())

	t.Run("identical pages are copied", func(t *testing.T) {
		sink := &recordingSink{}
		svc := NewService(testConfig(), nil)

		_, err := svc.Compare(context.Background(), doc1, doc2, Options{Output: sink})

		require.NoError(t, err)
		assert.Equal(t, []string{"source", "composite", "composite"}, sink.calls)
		// same-size composite takes the first document's page size
		assert.Equal(t, [2]float64{40, 60}, sink.sizes[0])
	})

	t.Run("identical pages are skipped", func(t *testing.T) {
		cfg := testConfig()
		cfg.SkipIdentical = true
		sink := &recordingSink{}
		svc := NewService(cfg, nil)

		_, err := svc.Compare(context.Background(), doc1, doc2, Options{Output: sink})

		require.NoError(t, err)
		assert.Equal(t, []string{"composite", "composite"}, sink.calls)
	})
}

func TestCompare_CompositeSizeFromUnion(t *testing.T) {
	doc1 := newFakeDocument("a.pdf", raster.NewWhite(20, 30))
	doc2 := newFakeDocument("b.pdf", raster.NewWhite(36, 30))
	cfg := testConfig()
	cfg.DPI = 72
	sink := &recordingSink{}
	svc := NewService(cfg, nil)

	_, err := svc.Compare(context.Background(), doc1, doc2, Options{Output: sink})

	require.NoError(t, err)
	require.Len(t, sink.sizes, 1)
	w, h := pdf.PageSizeFromRaster(36, 30, 72)
	assert.Equal(t, [2]float64{w, h}, sink.sizes[0])
}

func TestCompare_ThumbnailsAndProgress(t *testing.T) {
	doc1 := newFakeDocument("a.pdf", white(), white())
	doc2 := newFakeDocument("b.pdf", white(), dotted())
	thumbs := &thumbSink{}
	var progress []int
	svc := NewService(testConfig(), nil)

	_, err := svc.Compare(context.Background(), doc1, doc2, Options{
		Thumbnails: thumbs,
		Progress: func(page, total int) {
			assert.Equal(t, 2, total)
			progress = append(progress, page)
		},
	})

	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, thumbs.pages)
	assert.Equal(t, []int{1, 2}, progress)
}

func TestCompare_Cancelled(t *testing.T) {
	doc := newFakeDocument("a.pdf", white(), white())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewService(testConfig(), nil).Compare(ctx, doc, doc, Options{})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, doc.renders)
}

func TestCompare_RenderErrorPropagates(t *testing.T) {
	doc1 := newFakeDocument("a.pdf", white(), white())
	doc1.failPage = 1
	doc1.renderErr = domain.RenderError("rasterization failed", errors.New("mupdf"))
	doc2 := newFakeDocument("b.pdf", white(), white())

	_, err := NewService(testConfig(), nil).Compare(context.Background(), doc1, doc2, Options{})

	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeRender, domain.TypeOf(err))
	assert.Contains(t, err.Error(), "render page 2 of a.pdf")
}

func TestService_DiffPairHonoursOffset(t *testing.T) {
	a := dotted()
	svc := NewService(testConfig(), nil)

	same := svc.DiffPair(a, a, diff.Offset{}, true)
	assert.False(t, same.Changed)
	require.NotNil(t, same.Thumbnail)
	assert.Equal(t, diff.DefaultThumbnailWidth, same.Thumbnail.Width)

	shifted := svc.DiffPair(a, a, diff.Offset{DX: 1}, false)
	assert.True(t, shifted.Changed)
	assert.True(t, shifted.StructuralMismatch)
	require.NotNil(t, shifted.Composite)
	assert.Equal(t, 21, shifted.Composite.Width)
	assert.Nil(t, shifted.Thumbnail)
}

func TestCompare_RealDocuments(t *testing.T) {
	if testing.Short() {
		t.Skip("requires MuPDF")
	}

	base := testutil.Page{Width: 200, Height: 200}
	marked := testutil.Page{Width: 200, Height: 200, Rects: []testutil.Rect{
		{X: 50, Y: 50, W: 5, H: 5, R: 255},
	}}
	path1 := testutil.WritePDF(t, "a.pdf", base, base)
	path2 := testutil.WritePDF(t, "b.pdf", base, marked)

	doc1, err := pdf.Open(path1, nil)
	require.NoError(t, err)
	defer doc1.Close()
	doc2, err := pdf.Open(path2, nil)
	require.NoError(t, err)
	defer doc2.Close()

	svc := NewService(testConfig(), nil)

	t.Run("against itself", func(t *testing.T) {
		summary, err := svc.Compare(context.Background(), doc1, doc1, Options{CollectDiffMap: true})
		require.NoError(t, err)
		assert.True(t, summary.Equal)
	})

	t.Run("small square", func(t *testing.T) {
		summary, err := svc.Compare(context.Background(), doc1, doc2, Options{CollectDiffMap: true})
		require.NoError(t, err)
		assert.False(t, summary.Equal)
		assert.Equal(t, domain.PageDiffMap{false, true}, summary.DiffMap)
		// 5pt at 300 dpi is about 21 pixels square, plus antialiased edges
		assert.InDelta(t, 441, summary.Pages[1].DiffPixels, 100)
	})

	t.Run("square within pixel budget", func(t *testing.T) {
		cfg := testConfig()
		cfg.PerPagePixelTolerance = 1000
		summary, err := NewService(cfg, nil).Compare(context.Background(), doc1, doc2, Options{})
		require.NoError(t, err)
		assert.True(t, summary.Equal)
	})
}
