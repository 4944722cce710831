// Package testutil generates PDF fixtures for tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/phpdave11/gofpdf"
)

// Rect is a filled rectangle in points, measured from the top-left corner.
type Rect struct {
	X, Y, W, H float64
	R, G, B    int
}

// Page describes one fixture page.
type Page struct {
	Width, Height float64
	Rects         []Rect
	Text          string
}

// WritePDF writes a PDF with the given pages into the test's temp directory
// and returns its path.
func WritePDF(t testing.TB, name string, pages ...Page) string {
	t.Helper()

	doc := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr:        "pt",
		OrientationStr: "P",
		Size:           gofpdf.SizeType{Wd: pages[0].Width, Ht: pages[0].Height},
	})
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	doc.SetFont("Helvetica", "", 12)

	for _, p := range pages {
		doc.AddPageFormat("P", gofpdf.SizeType{Wd: p.Width, Ht: p.Height})
		for _, r := range p.Rects {
			doc.SetFillColor(r.R, r.G, r.B)
			doc.Rect(r.X, r.Y, r.W, r.H, "F")
		}
		if p.Text != "" {
			doc.Text(20, 40, p.Text)
		}
	}

	path := filepath.Join(t.TempDir(), name)
	if err := doc.OutputFileAndClose(path); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	return path
}

// Blank returns n empty pages of the given size.
func Blank(n int, width, height float64) []Page {
	pages := make([]Page, n)
	for i := range pages {
		pages[i] = Page{Width: width, Height: height}
	}
	return pages
}
