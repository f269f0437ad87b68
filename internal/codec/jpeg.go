package codec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/gen2brain/jpegli"
)

// JPEGBackend selects the JPEG encoder implementation.
type JPEGBackend string

const (
	// JPEGBackendJpegli uses the jpegli encoder (WebAssembly, no cgo).
	JPEGBackendJpegli JPEGBackend = "jpegli"

	// JPEGBackendStd uses image/jpeg.
	JPEGBackendStd JPEGBackend = "std"
)

// ParseJPEGBackend validates a backend name.
func ParseJPEGBackend(s string) (JPEGBackend, error) {
	switch JPEGBackend(s) {
	case JPEGBackendJpegli, JPEGBackendStd:
		return JPEGBackend(s), nil
	case "":
		return JPEGBackendJpegli, nil
	default:
		return "", fmt.Errorf("unknown jpeg backend %q (use jpegli or std)", s)
	}
}

// DefaultDPI is the pixel density written into JFIF headers.
const DefaultDPI = 72

const (
	markerSOI  = 0xD8
	markerSOS  = 0xDA
	markerAPP0 = 0xE0
	markerAPPE = 0xEE
	markerAPPF = 0xEF
	markerCOM  = 0xFE
)

// jpegliOptions returns the encoder settings. A non-nil options struct
// replaces all of jpegli's defaults, so the enabled-by-default flags are
// set explicitly.
func jpegliOptions(quality int) *jpegli.EncodingOptions {
	return &jpegli.EncodingOptions{
		Quality:              quality,
		ChromaSubsampling:    image.YCbCrSubsampleRatio420,
		OptimizeCoding:       true,
		AdaptiveQuantization: true,
	}
}

// encodeJPEG encodes img and normalizes the header. The std backend writes
// the fixed Annex K Huffman tables; image/jpeg has no optimized coding.
func encodeJPEG(img image.Image, quality int, backend JPEGBackend) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch backend {
	case JPEGBackendStd:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	default:
		err = jpegli.Encode(&buf, img, jpegliOptions(quality))
	}
	if err != nil {
		return nil, err
	}
	return rewriteJPEGHeader(buf.Bytes(), DefaultDPI)
}

// rewriteJPEGHeader replaces every application and comment segment in
// front of the first scan with a single JFIF APP0 carrying the given
// density in dots per inch. Adobe APP14 segments are kept since they
// define the colour transform of the scan.
func rewriteJPEGHeader(data []byte, dpi int) ([]byte, error) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != markerSOI {
		return nil, errors.New("encoder output is not a JPEG stream")
	}

	var out bytes.Buffer
	out.Grow(len(data) + 18)
	out.Write([]byte{0xFF, markerSOI})
	out.Write(jfifSegment(dpi))

	i := 2
	for i < len(data)-1 {
		if data[i] != 0xFF {
			return nil, fmt.Errorf("malformed JPEG stream at offset %d", i)
		}
		marker := data[i+1]
		if marker == 0xFF {
			i++
			continue
		}
		if marker == markerSOS {
			out.Write(data[i:])
			return out.Bytes(), nil
		}
		if i+3 >= len(data) {
			break
		}
		length := int(data[i+2])<<8 | int(data[i+3])
		end := i + 2 + length
		if length < 2 || end > len(data) {
			return nil, fmt.Errorf("truncated JPEG segment 0x%02X at offset %d", marker, i)
		}

		keep := true
		switch {
		case marker >= markerAPP0 && marker <= markerAPPF:
			keep = marker == markerAPPE && bytes.HasPrefix(data[i+4:end], []byte("Adobe"))
		case marker == markerCOM:
			keep = false
		}
		if keep {
			out.Write(data[i:end])
		}
		i = end
	}
	return nil, errors.New("JPEG stream has no scan")
}

// jfifSegment builds a JFIF 1.01 APP0 segment without thumbnail.
func jfifSegment(dpi int) []byte {
	d0, d1 := byte(dpi>>8), byte(dpi)
	return []byte{
		0xFF, markerAPP0,
		0x00, 0x10, // length
		'J', 'F', 'I', 'F', 0x00,
		0x01, 0x01, // version
		0x01,   // units: dots per inch
		d0, d1, // x density
		d0, d1, // y density
		0x00, 0x00, // no thumbnail
	}
}
