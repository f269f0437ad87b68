package pixel

import (
	"fmt"
	"image/color"

	"github.com/nao1215/metanull/internal/model"
)

// Convert returns a new handle in the target layout. It is only called
// when the caller asked for a conversion explicitly; encoders never
// convert on their own.
//
// Alpha is dropped without compositing, luminance uses the ITU-R 601-2
// weights, and CMYK goes through color.CMYKToRGB. CMYK is not a valid
// target.
func Convert(h *Handle, target model.ColorMode) (*Handle, error) {
	if h.mode == target {
		return h.Clone(), nil
	}

	n := h.width * h.height
	src := h.mode.Channels()
	out := New(target, h.width, h.height)

	switch target {
	case model.ModeRGB, model.ModeRGBA, model.ModeGray:
	default:
		return nil, fmt.Errorf("%w: cannot convert %s to %s", model.ErrUnsupportedMode, h.mode, target)
	}

	dst := target.Channels()
	for i := range n {
		r, g, b, a := h.rgba(i * src)
		o := i * dst
		switch target {
		case model.ModeGray:
			out.pix[o] = luma(r, g, b)
		case model.ModeRGB:
			out.pix[o], out.pix[o+1], out.pix[o+2] = r, g, b
		case model.ModeRGBA:
			out.pix[o], out.pix[o+1], out.pix[o+2], out.pix[o+3] = r, g, b, a
		}
	}
	return out, nil
}

// rgba reads the pixel at sample offset i as non-premultiplied RGBA.
func (h *Handle) rgba(i int) (r, g, b, a uint8) {
	p := h.pix
	switch h.mode {
	case model.ModeGray:
		return p[i], p[i], p[i], 0xff
	case model.ModeRGBA:
		return p[i], p[i+1], p[i+2], p[i+3]
	case model.ModeCMYK:
		r, g, b = color.CMYKToRGB(p[i], p[i+1], p[i+2], p[i+3])
		return r, g, b, 0xff
	default:
		return p[i], p[i+1], p[i+2], 0xff
	}
}

// luma computes L = R*299/1000 + G*587/1000 + B*114/1000 in 16.16 fixed point.
func luma(r, g, b uint8) uint8 {
	return uint8((uint32(r)*19595 + uint32(g)*38470 + uint32(b)*7471 + 0x8000) >> 16)
}
