package export

import (
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/pdf-diff/internal/raster"
)

func TestNames(t *testing.T) {
	assert.Equal(t, "page-0001-thumb.png", ThumbnailName(0))
	assert.Equal(t, "page-0120-diff.png", CompositeName(119))
}

func TestPNGExporter_WritesReadableFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	e, err := NewPNGExporter(dir, nil)
	require.NoError(t, err)

	img := raster.NewWhite(8, 4)
	img.SetRGB(1, 2, 255, 0, 0)

	require.NoError(t, e.AddThumbnail(0, img))
	require.NoError(t, e.AddComposite(2, img))

	assert.Equal(t, []string{
		filepath.Join(dir, "page-0001-thumb.png"),
		filepath.Join(dir, "page-0003-diff.png"),
	}, e.Files())

	decoded, err := imaging.Open(e.Files()[1])
	require.NoError(t, err)
	back := raster.FromImage(decoded)
	assert.Equal(t, 8, back.Width)
	assert.Equal(t, 4, back.Height)
	r, g, b := back.RGB(1, 2)
	assert.Equal(t, [3]uint8{255, 0, 0}, [3]uint8{r, g, b})
}

func TestNewPNGExporter_RequiresDir(t *testing.T) {
	_, err := NewPNGExporter("", nil)
	assert.Error(t, err)
}
