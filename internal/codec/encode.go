package codec

import (
	"bytes"
	"fmt"
	"image/png"
	"io"
	"slices"

	"github.com/gen2brain/webp"

	"github.com/nao1215/metanull/internal/model"
	"github.com/nao1215/metanull/internal/pixel"
)

// WebPMethod is the libwebp effort level; 6 is the slowest and smallest.
const WebPMethod = 6

// supportedModes lists the pixel layouts each encoder writes natively.
var supportedModes = map[model.Format][]model.ColorMode{
	model.FormatJPEG: {model.ModeGray, model.ModeRGB},
	model.FormatWebP: {model.ModeRGB, model.ModeRGBA},
	model.FormatPNG:  {model.ModeGray, model.ModeRGB, model.ModeRGBA},
}

// Supports reports whether format can store mode without conversion.
func Supports(format model.Format, mode model.ColorMode) bool {
	return slices.Contains(supportedModes[format], mode)
}

// SupportedModes returns the layouts format can store.
func SupportedModes(format model.Format) []model.ColorMode {
	return slices.Clone(supportedModes[format])
}

// EncodeOptions controls serialization.
type EncodeOptions struct {
	// Format is the target container.
	Format model.Format

	// Quality is used by JPEG and WebP and ignored by PNG.
	Quality int

	// JPEGBackend selects the JPEG encoder. Empty selects jpegli.
	JPEGBackend JPEGBackend
}

// Encode writes h to w in the requested format.
//
// The whole image is encoded into memory first; w only sees bytes once
// encoding has succeeded. A layout the format cannot store fails with an
// error wrapping both model.ErrEncode and model.ErrUnsupportedMode, and
// nothing is written.
func Encode(w io.Writer, h *pixel.Handle, opts EncodeOptions) error {
	if !opts.Format.Encodable() {
		return fmt.Errorf("%w: cannot write %s", model.ErrEncode, opts.Format)
	}
	if !Supports(opts.Format, h.Mode()) {
		return fmt.Errorf("%w: %w: %s cannot store %s pixels (supported: %v)",
			model.ErrEncode, model.ErrUnsupportedMode, opts.Format, h.Mode(), SupportedModes(opts.Format))
	}

	data, err := encodeBytes(h, opts)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", model.ErrEncode, opts.Format, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("%w: write: %w", model.ErrEncode, err)
	}
	return nil
}

func encodeBytes(h *pixel.Handle, opts EncodeOptions) ([]byte, error) {
	img := h.Image()

	switch opts.Format {
	case model.FormatJPEG:
		return encodeJPEG(img, opts.Quality, opts.JPEGBackend)

	case model.FormatWebP:
		var buf bytes.Buffer
		if err := webp.Encode(&buf, img, webp.Options{
			Quality: opts.Quality,
			Method:  WebPMethod,
		}); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	case model.FormatPNG:
		var buf bytes.Buffer
		enc := &png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unsupported format %s", opts.Format)
}
