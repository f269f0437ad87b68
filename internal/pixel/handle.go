package pixel

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/nao1215/metanull/internal/model"
)

// Handle is a decoded image reduced to its pixel values.
//
// Samples are stored row-major with no padding: the sample for channel c
// of pixel (x, y) is at (y*Width+x)*Channels+c. The origin is always (0, 0).
// A Handle carries nothing but pixel values; it has no field in which
// metadata could travel.
//
// A Handle is owned by one pipeline stage at a time and is not safe for
// concurrent use.
type Handle struct {
	mode   model.ColorMode
	width  int
	height int
	pix    []uint8
}

// New allocates a zeroed handle.
func New(mode model.ColorMode, width, height int) *Handle {
	return &Handle{
		mode:   mode,
		width:  width,
		height: height,
		pix:    make([]uint8, width*height*mode.Channels()),
	}
}

// FromPix builds a handle from a copy of pix.
// It fails if the mode is unknown or the length does not match.
func FromPix(mode model.ColorMode, width, height int, pix []uint8) (*Handle, error) {
	if mode.Channels() == 0 {
		return nil, fmt.Errorf("%w: %q", model.ErrUnsupportedMode, mode)
	}
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", width, height)
	}
	want := width * height * mode.Channels()
	if len(pix) != want {
		return nil, fmt.Errorf("pixel buffer has %d samples, expected %d", len(pix), want)
	}
	h := New(mode, width, height)
	copy(h.pix, pix)
	return h, nil
}

// Mode returns the pixel layout.
func (h *Handle) Mode() model.ColorMode { return h.mode }

// Width returns the width in pixels.
func (h *Handle) Width() int { return h.width }

// Height returns the height in pixels.
func (h *Handle) Height() int { return h.height }

// Pix returns a copy of the raw samples.
func (h *Handle) Pix() []uint8 {
	out := make([]uint8, len(h.pix))
	copy(out, h.pix)
	return out
}

// Equal reports whether both handles have the same mode, size and samples.
func (h *Handle) Equal(o *Handle) bool {
	if h == nil || o == nil {
		return h == o
	}
	return h.mode == o.mode &&
		h.width == o.width &&
		h.height == o.height &&
		bytes.Equal(h.pix, o.pix)
}

// Clone returns a deep copy.
func (h *Handle) Clone() *Handle {
	return &Handle{
		mode:   h.mode,
		width:  h.width,
		height: h.height,
		pix:    h.Pix(),
	}
}

func (h *Handle) offset(x, y int) int {
	return (y*h.width + x) * h.mode.Channels()
}

// ColorModel implements image.Image.
func (h *Handle) ColorModel() color.Model {
	switch h.mode {
	case model.ModeGray:
		return color.GrayModel
	case model.ModeRGBA:
		return color.NRGBAModel
	case model.ModeCMYK:
		return color.CMYKModel
	default:
		return color.RGBAModel
	}
}

// Bounds implements image.Image.
func (h *Handle) Bounds() image.Rectangle {
	return image.Rect(0, 0, h.width, h.height)
}

// At implements image.Image.
func (h *Handle) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}).In(h.Bounds()) {
		return h.ColorModel().Convert(color.Transparent)
	}
	i := h.offset(x, y)
	switch h.mode {
	case model.ModeGray:
		return color.Gray{Y: h.pix[i]}
	case model.ModeRGBA:
		return color.NRGBA{R: h.pix[i], G: h.pix[i+1], B: h.pix[i+2], A: h.pix[i+3]}
	case model.ModeCMYK:
		return color.CMYK{C: h.pix[i], M: h.pix[i+1], Y: h.pix[i+2], K: h.pix[i+3]}
	default:
		return color.RGBA{R: h.pix[i], G: h.pix[i+1], B: h.pix[i+2], A: 0xff}
	}
}

// Image returns a standard library image holding a copy of the samples.
// The concrete type depends on the mode: *image.Gray, *image.RGBA (opaque),
// *image.NRGBA or *image.CMYK. Encoders use it to pick their fast paths.
func (h *Handle) Image() image.Image {
	r := h.Bounds()
	switch h.mode {
	case model.ModeGray:
		img := image.NewGray(r)
		copy(img.Pix, h.pix)
		return img
	case model.ModeRGBA:
		img := image.NewNRGBA(r)
		copy(img.Pix, h.pix)
		return img
	case model.ModeCMYK:
		img := image.NewCMYK(r)
		copy(img.Pix, h.pix)
		return img
	default:
		img := image.NewRGBA(r)
		for i, j := 0, 0; i < len(h.pix); i, j = i+3, j+4 {
			img.Pix[j] = h.pix[i]
			img.Pix[j+1] = h.pix[i+1]
			img.Pix[j+2] = h.pix[i+2]
			img.Pix[j+3] = 0xff
		}
		return img
	}
}
