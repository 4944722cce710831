// Package export writes per-page images to a directory.
package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/spherical/pdf-diff/internal/domain"
	"github.com/spherical/pdf-diff/internal/observability"
	"github.com/spherical/pdf-diff/internal/raster"
)

// PNGExporter saves thumbnails and composites as PNG files.
// It satisfies compare.ThumbnailSink and compare.CompositeSink.
type PNGExporter struct {
	dir    string
	logger *observability.Logger
	files  []string
}

// NewPNGExporter creates dir if needed.
func NewPNGExporter(dir string, logger *observability.Logger) (*PNGExporter, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if dir == "" {
		return nil, domain.ValidationError("export directory is required", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, domain.IOError(fmt.Sprintf("failed to create export directory %s", dir), err)
	}
	return &PNGExporter{dir: dir, logger: logger.WithComponent("export")}, nil
}

// ThumbnailName is the file name used for the thumbnail of page index.
func ThumbnailName(index int) string {
	return fmt.Sprintf("page-%04d-thumb.png", index+1)
}

// CompositeName is the file name used for the composite of page index.
func CompositeName(index int) string {
	return fmt.Sprintf("page-%04d-diff.png", index+1)
}

func (e *PNGExporter) AddThumbnail(index int, thumb *raster.Image) error {
	return e.save(ThumbnailName(index), thumb)
}

func (e *PNGExporter) AddComposite(index int, composite *raster.Image) error {
	return e.save(CompositeName(index), composite)
}

// Files lists the files written so far.
func (e *PNGExporter) Files() []string {
	return e.files
}

func (e *PNGExporter) save(name string, img *raster.Image) error {
	path := filepath.Join(e.dir, name)
	if err := imaging.Save(img.ToNRGBA(), path); err != nil {
		return err
	}
	e.files = append(e.files, path)
	e.logger.Trace().Str("path", path).Msg("Exported image")
	return nil
}
