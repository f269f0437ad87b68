package codec

import (
	"bytes"
	"fmt"
	"image/color"

	"github.com/nao1215/metanull/internal/model"
)

// DetectFormat identifies the container by its leading magic bytes.
// It returns model.ErrNotAnImage for anything it does not recognise.
func DetectFormat(data []byte) (model.Format, error) {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return model.FormatJPEG, nil
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return model.FormatPNG, nil
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")):
		return model.FormatWebP, nil
	case bytes.HasPrefix(data, []byte("II*\x00")), bytes.HasPrefix(data, []byte("MM\x00*")):
		return model.FormatTIFF, nil
	case bytes.HasPrefix(data, []byte("BM")) && len(data) >= 26:
		return model.FormatBMP, nil
	default:
		return "", fmt.Errorf("%w: unrecognised signature", model.ErrNotAnImage)
	}
}

// ModeFromColorModel maps a decoder colour model to the pixel layout
// Rebuild would produce. Paletted models resolve to RGB or RGBA depending
// on whether any palette entry is translucent.
func ModeFromColorModel(cm color.Model) model.ColorMode {
	switch cm {
	case color.GrayModel, color.Gray16Model:
		return model.ModeGray
	case color.CMYKModel:
		return model.ModeCMYK
	case color.NRGBAModel, color.NRGBA64Model, color.NYCbCrAModel:
		return model.ModeRGBA
	case color.RGBAModel, color.RGBA64Model, color.YCbCrModel:
		return model.ModeRGB
	}
	if p, ok := cm.(color.Palette); ok {
		for _, c := range p {
			if _, _, _, a := c.RGBA(); a != 0xffff {
				return model.ModeRGBA
			}
		}
		return model.ModeRGB
	}
	return model.ModeRGBA
}
