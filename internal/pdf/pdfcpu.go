package pdf

import (
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func init() {
	// keep pdfcpu from creating a config directory under the user's home
	api.DisableConfigDir()
}

// PdfcpuConfig returns the pdfcpu configuration used for all page
// manipulation. Validation is relaxed since inputs come from arbitrary
// producers and are only read or copied.
func PdfcpuConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}
