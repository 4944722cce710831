package viewer

import (
	"fmt"
	"image"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const upperHalf = "▀"

// halfBlocks renders img as terminal text, two pixel rows per line: the
// upper half block takes the top pixel as foreground and the bottom pixel
// as background. An odd last row is paired with white.
func halfBlocks(img *image.NRGBA) []string {
	b := img.Bounds()
	lines := make([]string, 0, (b.Dy()+1)/2)

	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		var sb strings.Builder
		var runTop, runBottom string
		runLen := 0

		flush := func() {
			if runLen == 0 {
				return
			}
			style := lipgloss.NewStyle().
				Foreground(lipgloss.Color(runTop)).
				Background(lipgloss.Color(runBottom))
			sb.WriteString(style.Render(strings.Repeat(upperHalf, runLen)))
			runLen = 0
		}

		for x := b.Min.X; x < b.Max.X; x++ {
			top := hexAt(img, x, y)
			bottom := "#ffffff"
			if y+1 < b.Max.Y {
				bottom = hexAt(img, x, y+1)
			}
			if runLen > 0 && (top != runTop || bottom != runBottom) {
				flush()
			}
			runTop, runBottom = top, bottom
			runLen++
		}
		flush()
		lines = append(lines, sb.String())
	}
	return lines
}

func hexAt(img *image.NRGBA, x, y int) string {
	i := img.PixOffset(x, y)
	return fmt.Sprintf("#%02x%02x%02x", img.Pix[i], img.Pix[i+1], img.Pix[i+2])
}
