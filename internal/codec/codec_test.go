package codec

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/gen2brain/jpegli"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/nao1215/metanull/internal/model"
	"github.com/nao1215/metanull/internal/pixel"
)

func testRGB(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(40 * x), G: uint8(40 * y), B: 128, A: 0xff})
		}
	}
	return img
}

func testNRGBA(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(40 * x), G: 10, B: 200, A: uint8(30 * (x + y))})
		}
	}
	return img
}

// TestDetectFormat tests signature sniffing.
func TestDetectFormat(t *testing.T) {
	t.Parallel()

	var pngBuf, jpgBuf, tiffBuf, bmpBuf bytes.Buffer
	if err := png.Encode(&pngBuf, testRGB(2, 2)); err != nil {
		t.Fatal(err)
	}
	if err := jpeg.Encode(&jpgBuf, testRGB(2, 2), nil); err != nil {
		t.Fatal(err)
	}
	if err := tiff.Encode(&tiffBuf, testRGB(2, 2), nil); err != nil {
		t.Fatal(err)
	}
	if err := bmp.Encode(&bmpBuf, testRGB(2, 2)); err != nil {
		t.Fatal(err)
	}

	testCases := []struct {
		name     string
		data     []byte
		expected model.Format
		wantErr  bool
	}{
		{"png", pngBuf.Bytes(), model.FormatPNG, false},
		{"jpeg", jpgBuf.Bytes(), model.FormatJPEG, false},
		{"tiff", tiffBuf.Bytes(), model.FormatTIFF, false},
		{"bmp", bmpBuf.Bytes(), model.FormatBMP, false},
		{"webp header", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), model.FormatWebP, false},
		{"text file", []byte("hello world, not an image"), "", true},
		{"empty", nil, "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := DetectFormat(tc.data)
			if tc.wantErr {
				if !errors.Is(err, model.ErrNotAnImage) {
					t.Errorf("expected ErrNotAnImage, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.expected {
				t.Errorf("got %s, expected %s", got, tc.expected)
			}
		})
	}
}

// TestDecode tests decoding of every supported container.
func TestDecode(t *testing.T) {
	t.Parallel()

	t.Run("tiff and bmp decode", func(t *testing.T) {
		t.Parallel()

		var tiffBuf, bmpBuf bytes.Buffer
		if err := tiff.Encode(&tiffBuf, testRGB(3, 2), nil); err != nil {
			t.Fatal(err)
		}
		if err := bmp.Encode(&bmpBuf, testRGB(3, 2)); err != nil {
			t.Fatal(err)
		}

		for _, data := range [][]byte{tiffBuf.Bytes(), bmpBuf.Bytes()} {
			img, _, err := Decode(data)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if img.Bounds().Dx() != 3 || img.Bounds().Dy() != 2 {
				t.Errorf("unexpected bounds %v", img.Bounds())
			}
		}
	})

	t.Run("corrupt png is a decode error", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := png.Encode(&buf, testRGB(4, 4)); err != nil {
			t.Fatal(err)
		}
		data := buf.Bytes()[:30]

		_, format, err := Decode(data)
		if !errors.Is(err, model.ErrDecode) {
			t.Errorf("expected ErrDecode, got %v", err)
		}
		if errors.Is(err, model.ErrNotAnImage) {
			t.Error("truncated png must not be reported as not-an-image")
		}
		if format != model.FormatPNG {
			t.Errorf("expected PNG format, got %s", format)
		}
	})

	t.Run("config reports mode", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := png.Encode(&buf, testNRGBA(3, 3)); err != nil {
			t.Fatal(err)
		}
		cfg, format, err := DecodeConfig(buf.Bytes())
		if err != nil {
			t.Fatal(err)
		}
		if format != model.FormatPNG || cfg.Width != 3 {
			t.Errorf("unexpected config %+v %s", cfg, format)
		}
		if ModeFromColorModel(cfg.ColorModel) != model.ModeRGBA {
			t.Errorf("expected RGBA, got %s", ModeFromColorModel(cfg.ColorModel))
		}
	})
}

// TestModeFromColorModel tests colour model mapping.
func TestModeFromColorModel(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		cm       color.Model
		expected model.ColorMode
	}{
		{"gray", color.GrayModel, model.ModeGray},
		{"ycbcr", color.YCbCrModel, model.ModeRGB},
		{"nrgba", color.NRGBAModel, model.ModeRGBA},
		{"cmyk", color.CMYKModel, model.ModeCMYK},
		{"opaque palette", color.Palette{color.Black, color.White}, model.ModeRGB},
		{"translucent palette", color.Palette{color.Black, color.Transparent}, model.ModeRGBA},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ModeFromColorModel(tc.cm); got != tc.expected {
				t.Errorf("got %s, expected %s", got, tc.expected)
			}
		})
	}
}

// TestEncodePNGLossless tests that PNG output decodes to the same pixels.
func TestEncodePNGLossless(t *testing.T) {
	t.Parallel()

	gray := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range gray.Pix {
		gray.Pix[i] = uint8(i * 13)
	}

	testCases := []struct {
		name string
		src  image.Image
	}{
		{"rgb", testRGB(4, 4)},
		{"rgba", testNRGBA(4, 4)},
		{"gray", gray},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := pixel.Rebuild(tc.src)
			var buf bytes.Buffer
			if err := Encode(&buf, h, EncodeOptions{Format: model.FormatPNG, Quality: 95}); err != nil {
				t.Fatalf("encode: %v", err)
			}

			img, format, err := Decode(buf.Bytes())
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if format != model.FormatPNG {
				t.Errorf("expected PNG, got %s", format)
			}
			if got := pixel.Rebuild(img); !got.Equal(h) {
				t.Error("decoded pixels differ from encoded handle")
			}
		})
	}
}

// TestEncodeUnsupportedMode tests that no silent conversion happens.
func TestEncodeUnsupportedMode(t *testing.T) {
	t.Parallel()

	rgba := pixel.Rebuild(testNRGBA(2, 2))
	gray := pixel.Rebuild(image.NewGray(image.Rect(0, 0, 2, 2)))
	cmyk := pixel.Rebuild(image.NewCMYK(image.Rect(0, 0, 2, 2)))

	testCases := []struct {
		name   string
		h      *pixel.Handle
		format model.Format
	}{
		{"rgba to jpeg", rgba, model.FormatJPEG},
		{"gray to webp", gray, model.FormatWebP},
		{"cmyk to jpeg", cmyk, model.FormatJPEG},
		{"cmyk to png", cmyk, model.FormatPNG},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			err := Encode(&buf, tc.h, EncodeOptions{Format: tc.format, Quality: 90})
			if !errors.Is(err, model.ErrEncode) {
				t.Errorf("expected ErrEncode, got %v", err)
			}
			if !errors.Is(err, model.ErrUnsupportedMode) {
				t.Errorf("expected ErrUnsupportedMode, got %v", err)
			}
			if buf.Len() != 0 {
				t.Errorf("expected nothing written, got %d bytes", buf.Len())
			}
		})
	}

	t.Run("decode-only format is rejected", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		err := Encode(&buf, pixel.Rebuild(testRGB(1, 1)), EncodeOptions{Format: model.FormatTIFF})
		if !errors.Is(err, model.ErrEncode) {
			t.Errorf("expected ErrEncode, got %v", err)
		}
	})
}

// TestEncodeJPEG tests JPEG output headers.
func TestEncodeJPEG(t *testing.T) {
	t.Parallel()

	backends := []JPEGBackend{JPEGBackendStd, JPEGBackendJpegli}
	for _, backend := range backends {
		t.Run(string(backend), func(t *testing.T) {
			t.Parallel()

			h := pixel.Rebuild(testRGB(16, 16))
			var buf bytes.Buffer
			if err := Encode(&buf, h, EncodeOptions{Format: model.FormatJPEG, Quality: 80, JPEGBackend: backend}); err != nil {
				t.Fatalf("encode: %v", err)
			}
			data := buf.Bytes()

			want := append([]byte{0xFF, 0xD8}, jfifSegment(72)...)
			if !bytes.HasPrefix(data, want) {
				t.Fatalf("expected JFIF header with 72 dpi, got % X", data[:min(len(data), 20)])
			}
			if n := countAPPSegments(data); n != 1 {
				t.Errorf("expected exactly one APP segment, got %d", n)
			}

			img, err := jpeg.Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if img.Bounds() != h.Bounds() {
				t.Errorf("bounds %v, expected %v", img.Bounds(), h.Bounds())
			}
		})
	}

	t.Run("gray jpeg with std backend", func(t *testing.T) {
		t.Parallel()

		h := pixel.Rebuild(image.NewGray(image.Rect(0, 0, 8, 8)))
		var buf bytes.Buffer
		if err := Encode(&buf, h, EncodeOptions{Format: model.FormatJPEG, Quality: 50, JPEGBackend: JPEGBackendStd}); err != nil {
			t.Fatalf("encode: %v", err)
		}
		img, err := jpeg.Decode(&buf)
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := img.(*image.Gray); !ok {
			t.Errorf("expected *image.Gray, got %T", img)
		}
	})
}

// TestJPEGliOptimizedCoding tests that jpegli output uses optimized Huffman
// tables and adaptive quantization.
func TestJPEGliOptimizedCoding(t *testing.T) {
	t.Parallel()

	opts := jpegliOptions(80)
	if !opts.OptimizeCoding || !opts.AdaptiveQuantization {
		t.Fatalf("expected optimized coding and adaptive quantization, got %+v", opts)
	}

	img := testRGB(128, 128)
	optimized, err := encodeJPEG(img, 80, JPEGBackendJpegli)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	plain := *opts
	plain.OptimizeCoding = false
	var buf bytes.Buffer
	if err := jpegli.Encode(&buf, img, &plain); err != nil {
		t.Fatalf("encode without optimized coding: %v", err)
	}
	unoptimized, err := rewriteJPEGHeader(buf.Bytes(), DefaultDPI)
	if err != nil {
		t.Fatal(err)
	}

	if len(optimized) >= len(unoptimized) {
		t.Errorf("optimized output is %d bytes, expected less than the unoptimized %d bytes", len(optimized), len(unoptimized))
	}
}

// TestEncodeWebP tests WebP output.
func TestEncodeWebP(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		src  image.Image
	}{
		{"rgb", testRGB(8, 8)},
		{"rgba", testNRGBA(8, 8)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := pixel.Rebuild(tc.src)
			var buf bytes.Buffer
			if err := Encode(&buf, h, EncodeOptions{Format: model.FormatWebP, Quality: 90}); err != nil {
				t.Fatalf("encode: %v", err)
			}

			img, format, err := Decode(buf.Bytes())
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if format != model.FormatWebP {
				t.Errorf("expected WEBP, got %s", format)
			}
			if img.Bounds() != h.Bounds() {
				t.Errorf("bounds %v, expected %v", img.Bounds(), h.Bounds())
			}
		})
	}
}

// TestRewriteJPEGHeader tests segment filtering.
func TestRewriteJPEGHeader(t *testing.T) {
	t.Parallel()

	var src bytes.Buffer
	if err := jpeg.Encode(&src, testRGB(4, 4), nil); err != nil {
		t.Fatal(err)
	}
	body := src.Bytes()[2:]

	exif := segment(0xE1, append([]byte("Exif\x00\x00"), make([]byte, 20)...))
	comment := segment(0xFE, []byte("made by someone"))
	adobe := segment(0xEE, []byte("Adobe\x00\x64\x00\x00\x00\x00\x01"))
	icc := segment(0xE2, append([]byte("ICC_PROFILE\x00\x01\x01"), make([]byte, 32)...))

	var in bytes.Buffer
	in.Write([]byte{0xFF, 0xD8})
	in.Write(exif)
	in.Write(comment)
	in.Write(adobe)
	in.Write(icc)
	in.Write(body)

	out, err := rewriteJPEGHeader(in.Bytes(), 72)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bytes.Contains(out, []byte("Exif")) {
		t.Error("exif segment survived")
	}
	if bytes.Contains(out, []byte("made by someone")) {
		t.Error("comment survived")
	}
	if bytes.Contains(out, []byte("ICC_PROFILE")) {
		t.Error("icc profile survived")
	}
	if !bytes.Contains(out, []byte("Adobe")) {
		t.Error("adobe transform segment was dropped")
	}
	if _, err := jpeg.Decode(bytes.NewReader(out)); err != nil {
		t.Errorf("rewritten stream does not decode: %v", err)
	}

	if _, err := rewriteJPEGHeader([]byte("nope"), 72); err == nil {
		t.Error("expected error for non-JPEG input")
	}
}

// TestParseJPEGBackend tests backend names.
func TestParseJPEGBackend(t *testing.T) {
	t.Parallel()

	if b, err := ParseJPEGBackend(""); err != nil || b != JPEGBackendJpegli {
		t.Errorf("empty backend: got %q, %v", b, err)
	}
	if b, err := ParseJPEGBackend("std"); err != nil || b != JPEGBackendStd {
		t.Errorf("std backend: got %q, %v", b, err)
	}
	if _, err := ParseJPEGBackend("mozjpeg"); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func segment(marker byte, payload []byte) []byte {
	n := len(payload) + 2
	return append([]byte{0xFF, marker, byte(n >> 8), byte(n)}, payload...)
}

// countAPPSegments counts APPn segments before the first scan.
func countAPPSegments(data []byte) int {
	n := 0
	for i := 2; i+3 < len(data); {
		marker := data[i+1]
		if marker == markerSOS {
			break
		}
		if marker >= markerAPP0 && marker <= markerAPPF {
			n++
		}
		i += 2 + (int(data[i+2])<<8 | int(data[i+3]))
	}
	return n
}
