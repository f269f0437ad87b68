package model

import (
	"fmt"
	"strings"
)

// Format identifies an image container format.
type Format string

const (
	// FormatJPEG is JPEG/JFIF. Decode and encode.
	FormatJPEG Format = "JPEG"

	// FormatWebP is RIFF WebP (lossy or lossless). Decode and encode.
	FormatWebP Format = "WEBP"

	// FormatPNG is PNG. Decode and encode.
	FormatPNG Format = "PNG"

	// FormatTIFF is baseline TIFF. Decode only.
	FormatTIFF Format = "TIFF"

	// FormatBMP is Windows bitmap. Decode only.
	FormatBMP Format = "BMP"
)

// EncodeFormats lists the formats the engine can write, in preference order.
var EncodeFormats = []Format{FormatJPEG, FormatWebP, FormatPNG}

// ParseFormat converts a user supplied name ("jpg", "webp", "PNG", ...)
// into a Format. Matching is case-insensitive and accepts common aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "jpeg", "jpg", "jpe", "jfif":
		return FormatJPEG, nil
	case "webp":
		return FormatWebP, nil
	case "png":
		return FormatPNG, nil
	case "tiff", "tif":
		return FormatTIFF, nil
	case "bmp":
		return FormatBMP, nil
	default:
		return "", fmt.Errorf("unknown image format %q", s)
	}
}

// Encodable reports whether the engine can write this format.
func (f Format) Encodable() bool {
	switch f {
	case FormatJPEG, FormatWebP, FormatPNG:
		return true
	default:
		return false
	}
}

// UsesQuality reports whether the encoder for this format honours the
// quality setting. PNG is lossless and ignores it.
func (f Format) UsesQuality() bool {
	return f == FormatJPEG || f == FormatWebP
}

// Extension returns the canonical lower-case file extension including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatJPEG:
		return ".jpg"
	case FormatWebP:
		return ".webp"
	case FormatPNG:
		return ".png"
	case FormatTIFF:
		return ".tiff"
	case FormatBMP:
		return ".bmp"
	default:
		return ""
	}
}

// String returns the upper-case format name.
func (f Format) String() string {
	return string(f)
}

// ColorMode is the pixel layout of a decoded image.
// The names follow the conventional short forms used by imaging tools.
type ColorMode string

const (
	// ModeGray is 8-bit single channel luminance.
	ModeGray ColorMode = "L"

	// ModeRGB is 8-bit red, green, blue without alpha.
	ModeRGB ColorMode = "RGB"

	// ModeRGBA is 8-bit red, green, blue and non-premultiplied alpha.
	ModeRGBA ColorMode = "RGBA"

	// ModeCMYK is 8-bit cyan, magenta, yellow, key. It has no alpha.
	ModeCMYK ColorMode = "CMYK"
)

// ParseColorMode converts a user supplied mode name into a ColorMode.
func ParseColorMode(s string) (ColorMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "L", "GRAY", "GREY", "GRAYSCALE":
		return ModeGray, nil
	case "RGB":
		return ModeRGB, nil
	case "RGBA":
		return ModeRGBA, nil
	case "CMYK":
		return ModeCMYK, nil
	default:
		return "", fmt.Errorf("unknown color mode %q", s)
	}
}

// Channels returns the number of 8-bit samples per pixel.
func (m ColorMode) Channels() int {
	switch m {
	case ModeGray:
		return 1
	case ModeRGB:
		return 3
	case ModeRGBA, ModeCMYK:
		return 4
	default:
		return 0
	}
}

// HasAlpha reports whether the last channel is an alpha channel.
func (m ColorMode) HasAlpha() bool {
	return m == ModeRGBA
}

// ColorChannels returns the number of channels that carry colour,
// that is every channel except alpha.
func (m ColorMode) ColorChannels() int {
	if m.HasAlpha() {
		return m.Channels() - 1
	}
	return m.Channels()
}
