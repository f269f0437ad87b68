package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	xwebp "golang.org/x/image/webp"

	"github.com/nao1215/metanull/internal/model"
)

// Decode decodes an image from its container bytes. The decoder is chosen
// from the sniffed signature rather than the registry so that only the
// five supported containers are ever accepted.
func Decode(data []byte) (image.Image, model.Format, error) {
	format, err := DetectFormat(data)
	if err != nil {
		return nil, "", err
	}

	r := bytes.NewReader(data)
	var img image.Image
	switch format {
	case model.FormatJPEG:
		img, err = jpeg.Decode(r)
	case model.FormatPNG:
		img, err = png.Decode(r)
	case model.FormatWebP:
		img, err = xwebp.Decode(r)
	case model.FormatTIFF:
		img, err = tiff.Decode(r)
	case model.FormatBMP:
		img, err = bmp.Decode(r)
	}
	if err != nil {
		return nil, format, fmt.Errorf("%w: %s: %w", model.ErrDecode, format, err)
	}
	return img, format, nil
}

// DecodeConfig reads only the header of the image.
func DecodeConfig(data []byte) (image.Config, model.Format, error) {
	format, err := DetectFormat(data)
	if err != nil {
		return image.Config{}, "", err
	}

	r := bytes.NewReader(data)
	var cfg image.Config
	switch format {
	case model.FormatJPEG:
		cfg, err = jpeg.DecodeConfig(r)
	case model.FormatPNG:
		cfg, err = png.DecodeConfig(r)
	case model.FormatWebP:
		cfg, err = xwebp.DecodeConfig(r)
	case model.FormatTIFF:
		cfg, err = tiff.DecodeConfig(r)
	case model.FormatBMP:
		cfg, err = bmp.DecodeConfig(r)
	}
	if err != nil {
		return image.Config{}, format, fmt.Errorf("%w: %s: %w", model.ErrDecode, format, err)
	}
	return cfg, format, nil
}
