// Package raster provides the RGB pixel buffer shared by the renderer, the
// differ and the viewer.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// BytesPerPixel is the storage size of one pixel: R, G, B and an unused pad byte.
const BytesPerPixel = 4

// Image is an RGB raster. Pixel (x, y) starts at Pix[y*Stride + x*BytesPerPixel]
// and is laid out as R, G, B, pad.
type Image struct {
	Width  int
	Height int
	Stride int
	Pix    []byte
}

var _ image.Image = (*Image)(nil)

// New allocates a black raster. It panics if either dimension is not positive.
func New(width, height int) *Image {
	if width <= 0 || height <= 0 {
		panic(fmt.Sprintf("raster: invalid size %dx%d", width, height))
	}
	stride := width * BytesPerPixel
	return &Image{
		Width:  width,
		Height: height,
		Stride: stride,
		Pix:    make([]byte, stride*height),
	}
}

// NewWhite allocates a raster filled with white.
func NewWhite(width, height int) *Image {
	img := New(width, height)
	img.Fill(255, 255, 255)
	return img
}

// Fill sets every pixel to the given colour.
func (m *Image) Fill(r, g, b uint8) {
	for y := 0; y < m.Height; y++ {
		row := m.Pix[y*m.Stride : y*m.Stride+m.Width*BytesPerPixel]
		for i := 0; i < len(row); i += BytesPerPixel {
			row[i+0] = r
			row[i+1] = g
			row[i+2] = b
			row[i+3] = 0xff
		}
	}
}

// PixOffset returns the index of the first byte of pixel (x, y).
func (m *Image) PixOffset(x, y int) int {
	return y*m.Stride + x*BytesPerPixel
}

// RGB returns the colour channels of pixel (x, y).
func (m *Image) RGB(x, y int) (r, g, b uint8) {
	i := m.PixOffset(x, y)
	return m.Pix[i], m.Pix[i+1], m.Pix[i+2]
}

// SetRGB sets the colour channels of pixel (x, y).
func (m *Image) SetRGB(x, y int, r, g, b uint8) {
	i := m.PixOffset(x, y)
	m.Pix[i+0] = r
	m.Pix[i+1] = g
	m.Pix[i+2] = b
}

// Bounds implements image.Image.
func (m *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.Width, m.Height)
}

// ColorModel implements image.Image.
func (m *Image) ColorModel() color.Model {
	return color.RGBAModel
}

// At implements image.Image.
func (m *Image) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(m.Bounds())) {
		return color.RGBA{}
	}
	r, g, b := m.RGB(x, y)
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

// Clone returns a deep copy.
func (m *Image) Clone() *Image {
	pix := make([]byte, len(m.Pix))
	copy(pix, m.Pix)
	return &Image{Width: m.Width, Height: m.Height, Stride: m.Stride, Pix: pix}
}

// ToNRGBA converts the raster to an opaque *image.NRGBA.
func (m *Image) ToNRGBA() *image.NRGBA {
	dst := image.NewNRGBA(m.Bounds())
	for y := 0; y < m.Height; y++ {
		src := m.Pix[y*m.Stride:]
		out := dst.Pix[y*dst.Stride:]
		for x := 0; x < m.Width*BytesPerPixel; x += BytesPerPixel {
			out[x+0] = src[x+0]
			out[x+1] = src[x+1]
			out[x+2] = src[x+2]
			out[x+3] = 0xff
		}
	}
	return dst
}

// FromRGBA converts a backend-rendered, alpha-premultiplied RGBA image into a
// width x height raster. Transparent areas become white; the source is cropped
// or padded with white to the requested size.
func FromRGBA(src *image.RGBA, width, height int) *Image {
	dst := NewWhite(width, height)
	b := src.Bounds()
	w := min(b.Dx(), width)
	h := min(b.Dy(), height)
	for y := 0; y < h; y++ {
		in := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
		out := dst.Pix[y*dst.Stride:]
		for x := 0; x < w; x++ {
			s := in[x*4 : x*4+4]
			// premultiplied: c_over_white = c + (255 - a)
			pad := 0xff - s[3]
			out[x*BytesPerPixel+0] = s[0] + pad
			out[x*BytesPerPixel+1] = s[1] + pad
			out[x*BytesPerPixel+2] = s[2] + pad
		}
	}
	return dst
}

// FromImage converts any image to a raster of the same size, compositing
// transparent areas over white.
func FromImage(src image.Image) *Image {
	if rgba, ok := src.(*image.RGBA); ok {
		return FromRGBA(rgba, rgba.Bounds().Dx(), rgba.Bounds().Dy())
	}
	b := src.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), src, b.Min, draw.Src)
	return FromRGBA(rgba, b.Dx(), b.Dy())
}
