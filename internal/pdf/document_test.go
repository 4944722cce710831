package pdf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/pdf-diff/internal/domain"
	"github.com/spherical/pdf-diff/internal/testutil"
)

func TestRasterSize(t *testing.T) {
	tests := []struct {
		name         string
		wPt, hPt     float64
		dpi          int
		wantW, wantH int
	}{
		{"letter at 72", 612, 792, 72, 612, 792},
		{"letter at 300", 612, 792, 300, 2550, 3300},
		{"a4 at 300", 595.28, 841.89, 300, 2480, 3508},
		{"100pt at 300", 100, 100, 300, 417, 417},
		{"rounds half up", 0.36, 0.12, 100, 1, 1},
		{"never zero", 0.1, 0.1, 1, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := RasterSize(tt.wPt, tt.hPt, tt.dpi)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestPageSizeFromRaster(t *testing.T) {
	w, h := PageSizeFromRaster(2550, 3300, 300)
	assert.InDelta(t, 612, w, 1e-9)
	assert.InDelta(t, 792, h, 1e-9)
}

func TestValidator_ValidatePDFPath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "doc.pdf")
	require.NoError(t, os.WriteFile(file, []byte("%PDF-1.4"), 0o644))

	v := NewValidator()

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"existing file", file, false},
		{"empty path", "  ", true},
		{"missing file", filepath.Join(dir, "missing.pdf"), true},
		{"directory", dir, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidatePDFPath(tt.path)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, domain.ErrorTypeOpen, domain.TypeOf(err))
		})
	}
}

func TestValidator_ValidateDPI(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.ValidateDPI(1))
	assert.NoError(t, v.ValidateDPI(300))
	assert.NoError(t, v.ValidateDPI(2400))
	assert.Error(t, v.ValidateDPI(0))
	assert.Error(t, v.ValidateDPI(2401))
}

func TestOpen_NotAPDF(t *testing.T) {
	if testing.Short() {
		t.Skip("opens files with MuPDF")
	}

	path := filepath.Join(t.TempDir(), "garbage.pdf")
	require.NoError(t, os.WriteFile(path, []byte("this is not a pdf"), 0o644))

	doc, err := Open(path, nil)

	require.Error(t, err)
	assert.Nil(t, doc)
	assert.Equal(t, domain.ExitOpenFailed, domain.ExitCode(err))
}

func TestDocument_RenderPage(t *testing.T) {
	if testing.Short() {
		t.Skip("renders PDFs with MuPDF")
	}

	path := testutil.WritePDF(t, "square.pdf",
		testutil.Page{Width: 100, Height: 100, Rects: []testutil.Rect{{X: 10, Y: 10, W: 5, H: 5, R: 255}}},
		testutil.Page{Width: 200, Height: 50},
	)

	doc, err := Open(path, nil)
	require.NoError(t, err)
	defer doc.Close()

	require.Equal(t, 2, doc.PageCount())
	assert.Equal(t, path, doc.Path())

	w, h, err := doc.PageSize(1)
	require.NoError(t, err)
	assert.InDelta(t, 200, w, 0.01)
	assert.InDelta(t, 50, h, 0.01)

	img, err := doc.RenderPage(0, 72)
	require.NoError(t, err)
	assert.Equal(t, 100, img.Width)
	assert.Equal(t, 100, img.Height)

	// background is opaque white, the square is red
	r, g, b := img.RGB(50, 50)
	assert.Equal(t, [3]uint8{255, 255, 255}, [3]uint8{r, g, b})
	r, g, b = img.RGB(12, 12)
	assert.Equal(t, [3]uint8{255, 0, 0}, [3]uint8{r, g, b})

	img, err = doc.RenderPage(1, 300)
	require.NoError(t, err)
	assert.Equal(t, 833, img.Width)
	assert.Equal(t, 208, img.Height)

	_, err = doc.RenderPage(2, 72)
	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeRender, domain.TypeOf(err))

	_, err = doc.RenderPage(0, 0)
	assert.Error(t, err)
}
