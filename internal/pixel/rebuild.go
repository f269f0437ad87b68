package pixel

import (
	"image"
	"image/color"

	"github.com/nao1215/metanull/internal/model"
)

// opaquer is implemented by every standard library image type.
type opaquer interface {
	Opaque() bool
}

// Rebuild allocates a new handle of the same layout and size as img and
// copies the pixel values into it. Nothing else is read from img.
//
// Layout mapping:
//   - *Handle keeps its mode
//   - *image.Gray, *image.Gray16 become L
//   - *image.CMYK stays CMYK
//   - *image.NRGBA, *image.NRGBA64, *image.NYCbCrA become RGBA
//   - anything else becomes RGB when fully opaque and RGBA otherwise
//
// Sources with 16-bit samples keep the high byte. For 8-bit sources the
// copy is exact, and Rebuild(Rebuild(x)) equals Rebuild(x).
func Rebuild(img image.Image) *Handle {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	switch src := img.(type) {
	case *Handle:
		return src.Clone()

	case *image.Gray:
		out := New(model.ModeGray, w, h)
		for y := 0; y < h; y++ {
			row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
			copy(out.pix[y*w:(y+1)*w], row[:w])
		}
		return out

	case *image.Gray16:
		out := New(model.ModeGray, w, h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.pix[y*w+x] = uint8(src.Gray16At(b.Min.X+x, b.Min.Y+y).Y >> 8)
			}
		}
		return out

	case *image.CMYK:
		out := New(model.ModeCMYK, w, h)
		for y := 0; y < h; y++ {
			row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
			copy(out.pix[y*w*4:(y+1)*w*4], row[:w*4])
		}
		return out

	case *image.NRGBA:
		out := New(model.ModeRGBA, w, h)
		for y := 0; y < h; y++ {
			row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
			copy(out.pix[y*w*4:(y+1)*w*4], row[:w*4])
		}
		return out

	case *image.NRGBA64:
		out := New(model.ModeRGBA, w, h)
		i := 0
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := src.NRGBA64At(b.Min.X+x, b.Min.Y+y)
				out.pix[i] = uint8(c.R >> 8)
				out.pix[i+1] = uint8(c.G >> 8)
				out.pix[i+2] = uint8(c.B >> 8)
				out.pix[i+3] = uint8(c.A >> 8)
				i += 4
			}
		}
		return out

	case *image.NYCbCrA:
		return rebuildNRGBA(img, b)
	}

	if isOpaque(img) {
		return rebuildRGB(img, b)
	}
	return rebuildNRGBA(img, b)
}

func rebuildRGB(img image.Image, b image.Rectangle) *Handle {
	out := New(model.ModeRGB, b.Dx(), b.Dy())
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			out.pix[i] = uint8(r >> 8)
			out.pix[i+1] = uint8(g >> 8)
			out.pix[i+2] = uint8(bl >> 8)
			i += 3
		}
	}
	return out
}

func rebuildNRGBA(img image.Image, b image.Rectangle) *Handle {
	out := New(model.ModeRGBA, b.Dx(), b.Dy())
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c, _ := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			out.pix[i] = c.R
			out.pix[i+1] = c.G
			out.pix[i+2] = c.B
			out.pix[i+3] = c.A
			i += 4
		}
	}
	return out
}

func isOpaque(img image.Image) bool {
	if o, ok := img.(opaquer); ok {
		return o.Opaque()
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return false
			}
		}
	}
	return true
}

// HasDeepSamples reports whether img stores more than 8 bits per sample,
// in which case Rebuild reduces its precision.
func HasDeepSamples(img image.Image) bool {
	switch img.(type) {
	case *image.Gray16, *image.RGBA64, *image.NRGBA64:
		return true
	default:
		return false
	}
}
