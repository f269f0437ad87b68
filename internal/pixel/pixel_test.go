package pixel

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/nao1215/metanull/internal/model"
)

// gradientRGBA builds a fully opaque *image.RGBA with distinct values.
func gradientRGBA(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: uint8(x + y), A: 0xff})
		}
	}
	return img
}

// translucentNRGBA builds an *image.NRGBA with varying alpha.
func translucentNRGBA(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 0, G: 255, B: uint8(x * 30), A: uint8(y * 60)})
		}
	}
	return img
}

// diffPositions returns the pixel positions at which two same-sized handles differ.
func diffPositions(a, b *Handle) []image.Point {
	var pts []image.Point
	ch := a.mode.Channels()
	for y := 0; y < a.height; y++ {
		for x := 0; x < a.width; x++ {
			off := (y*a.width + x) * ch
			for c := 0; c < ch; c++ {
				if a.pix[off+c] != b.pix[off+c] {
					pts = append(pts, image.Pt(x, y))
					break
				}
			}
		}
	}
	return pts
}

// TestRebuild tests pixel reconstruction.
func TestRebuild(t *testing.T) {
	t.Parallel()

	t.Run("opaque RGBA becomes RGB losslessly", func(t *testing.T) {
		t.Parallel()

		src := gradientRGBA(4, 4)
		h := Rebuild(src)

		if h.Mode() != model.ModeRGB {
			t.Fatalf("expected RGB, got %s", h.Mode())
		}
		if len(h.Pix()) != 4*4*3 {
			t.Fatalf("expected %d samples, got %d", 4*4*3, len(h.Pix()))
		}
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				want := src.RGBAAt(x, y)
				got := h.At(x, y).(color.RGBA)
				if got != want {
					t.Errorf("(%d,%d): got %v, want %v", x, y, got, want)
				}
			}
		}
	})

	t.Run("NRGBA keeps alpha exactly", func(t *testing.T) {
		t.Parallel()

		src := translucentNRGBA(3, 5)
		h := Rebuild(src)

		if h.Mode() != model.ModeRGBA {
			t.Fatalf("expected RGBA, got %s", h.Mode())
		}
		for y := 0; y < 5; y++ {
			for x := 0; x < 3; x++ {
				if got := h.At(x, y).(color.NRGBA); got != src.NRGBAAt(x, y) {
					t.Errorf("(%d,%d): got %v, want %v", x, y, got, src.NRGBAAt(x, y))
				}
			}
		}
	})

	t.Run("gray stays single channel", func(t *testing.T) {
		t.Parallel()

		src := image.NewGray(image.Rect(0, 0, 2, 2))
		src.Pix = []uint8{0, 64, 128, 255}
		h := Rebuild(src)

		if h.Mode() != model.ModeGray {
			t.Fatalf("expected L, got %s", h.Mode())
		}
		got := h.Pix()
		for i, v := range src.Pix {
			if got[i] != v {
				t.Errorf("sample %d: got %d, want %d", i, got[i], v)
			}
		}
	})

	t.Run("sub-image with offset origin", func(t *testing.T) {
		t.Parallel()

		full := gradientRGBA(8, 8)
		sub := full.SubImage(image.Rect(2, 3, 6, 7))
		h := Rebuild(sub)

		if h.Width() != 4 || h.Height() != 4 {
			t.Fatalf("expected 4x4, got %dx%d", h.Width(), h.Height())
		}
		if got := h.At(0, 0).(color.RGBA); got != full.RGBAAt(2, 3) {
			t.Errorf("origin pixel: got %v, want %v", got, full.RGBAAt(2, 3))
		}
	})

	t.Run("16-bit gray keeps high byte", func(t *testing.T) {
		t.Parallel()

		src := image.NewGray16(image.Rect(0, 0, 1, 1))
		src.SetGray16(0, 0, color.Gray16{Y: 0xabcd})
		h := Rebuild(src)

		if !HasDeepSamples(src) {
			t.Error("expected Gray16 to report deep samples")
		}
		if h.Pix()[0] != 0xab {
			t.Errorf("expected 0xab, got %#x", h.Pix()[0])
		}
	})

	t.Run("cmyk stays cmyk", func(t *testing.T) {
		t.Parallel()

		src := image.NewCMYK(image.Rect(0, 0, 1, 1))
		src.SetCMYK(0, 0, color.CMYK{C: 1, M: 2, Y: 3, K: 4})
		h := Rebuild(src)

		if h.Mode() != model.ModeCMYK {
			t.Fatalf("expected CMYK, got %s", h.Mode())
		}
		if got := h.At(0, 0).(color.CMYK); got != (color.CMYK{C: 1, M: 2, Y: 3, K: 4}) {
			t.Errorf("got %v", got)
		}
	})
}

// TestRebuildIdempotent tests rebuild(rebuild(x)) == rebuild(x).
func TestRebuildIdempotent(t *testing.T) {
	t.Parallel()

	gray := image.NewGray(image.Rect(0, 0, 3, 3))
	for i := range gray.Pix {
		gray.Pix[i] = uint8(i * 20)
	}
	cmyk := image.NewCMYK(image.Rect(0, 0, 2, 2))
	for i := range cmyk.Pix {
		cmyk.Pix[i] = uint8(i * 7)
	}
	paletted := image.NewPaletted(image.Rect(0, 0, 2, 2), color.Palette{color.Black, color.White})
	paletted.SetColorIndex(1, 1, 1)

	testCases := []struct {
		name string
		img  image.Image
	}{
		{"rgb", gradientRGBA(5, 4)},
		{"rgba", translucentNRGBA(4, 4)},
		{"gray", gray},
		{"cmyk", cmyk},
		{"paletted", paletted},
		{"ycbcr", image.NewYCbCr(image.Rect(0, 0, 4, 4), image.YCbCrSubsampleRatio444)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			once := Rebuild(tc.img)
			twice := Rebuild(once)
			if !once.Equal(twice) {
				t.Error("rebuild of a handle changed its content")
			}

			viaImage := Rebuild(once.Image())
			if !once.Equal(viaImage) {
				t.Errorf("rebuild through Image() changed content (mode %s -> %s)", once.Mode(), viaImage.Mode())
			}
		})
	}
}

// TestPerturb tests the perturbation bounds.
func TestPerturb(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		src  image.Image
	}{
		{"rgb", gradientRGBA(16, 16)},
		{"rgba", translucentNRGBA(16, 16)},
		{"gray", image.NewGray(image.Rect(0, 0, 16, 16))},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			for seed := uint64(0); seed < 50; seed++ {
				base := Rebuild(tc.src)
				h := base.Clone()

				n := Perturb(h, DefaultPerturbCount, NewSeededRand(seed))
				if n != DefaultPerturbCount {
					t.Fatalf("expected %d visits, got %d", DefaultPerturbCount, n)
				}

				diff := diffPositions(base, h)
				if len(diff) > DefaultPerturbCount {
					t.Fatalf("seed %d: %d positions changed, expected at most %d", seed, len(diff), DefaultPerturbCount)
				}

				ch := base.Mode().Channels()
				for i := range base.pix {
					d := int(h.pix[i]) - int(base.pix[i])
					if d < -DefaultPerturbCount || d > DefaultPerturbCount {
						t.Fatalf("seed %d: sample %d moved by %d", seed, i, d)
					}
					if base.Mode().HasAlpha() && i%ch == ch-1 && d != 0 {
						t.Fatalf("seed %d: alpha changed at sample %d", seed, i)
					}
				}
			}
		})
	}

	t.Run("delta within one when positions are distinct", func(t *testing.T) {
		t.Parallel()

		base := Rebuild(gradientRGBA(64, 64))
		h := base.Clone()
		Perturb(h, 1, NewSeededRand(7))

		for i := range base.pix {
			d := int(h.pix[i]) - int(base.pix[i])
			if d < -1 || d > 1 {
				t.Fatalf("sample %d moved by %d", i, d)
			}
		}
	})

	t.Run("every colour channel of a visited pixel can move", func(t *testing.T) {
		t.Parallel()

		src := image.NewRGBA(image.Rect(0, 0, 1, 1))
		src.Pix = []uint8{128, 128, 128, 0xff}

		moved := make([]bool, 3)
		multi := false
		for seed := uint64(0); seed < 50; seed++ {
			h := Rebuild(src)
			Perturb(h, 1, NewSeededRand(seed))

			changed := 0
			for c := range 3 {
				if h.pix[c] != 128 {
					moved[c] = true
					changed++
				}
			}
			if changed > 1 {
				multi = true
			}
		}
		for c, ok := range moved {
			if !ok {
				t.Errorf("channel %d never moved", c)
			}
		}
		if !multi {
			t.Error("expected a single visit to move more than one channel")
		}
	})

	t.Run("values are clamped", func(t *testing.T) {
		t.Parallel()

		white := image.NewGray(image.Rect(0, 0, 1, 1))
		white.Pix[0] = 255
		black := image.NewGray(image.Rect(0, 0, 1, 1))

		for seed := uint64(0); seed < 20; seed++ {
			hw := Rebuild(white)
			Perturb(hw, 5, NewSeededRand(seed))
			if hw.pix[0] < 250 {
				t.Fatalf("white pixel wrapped to %d", hw.pix[0])
			}

			hb := Rebuild(black)
			Perturb(hb, 5, NewSeededRand(seed))
			if hb.pix[0] > 5 {
				t.Fatalf("black pixel wrapped to %d", hb.pix[0])
			}
		}
	})

	t.Run("zero count or empty image is a no-op", func(t *testing.T) {
		t.Parallel()

		h := Rebuild(gradientRGBA(2, 2))
		before := h.Clone()
		if n := Perturb(h, 0, NewSeededRand(1)); n != 0 {
			t.Errorf("expected 0 visits, got %d", n)
		}
		if !h.Equal(before) {
			t.Error("zero count changed pixels")
		}

		empty := New(model.ModeRGB, 0, 0)
		if n := Perturb(empty, 5, NewSeededRand(1)); n != 0 {
			t.Errorf("expected 0 visits on empty image, got %d", n)
		}
	})
}

// TestConvert tests explicit layout conversion.
func TestConvert(t *testing.T) {
	t.Parallel()

	t.Run("rgba to rgb drops alpha", func(t *testing.T) {
		t.Parallel()

		h, err := FromPix(model.ModeRGBA, 1, 1, []uint8{10, 20, 30, 0})
		if err != nil {
			t.Fatal(err)
		}
		out, err := Convert(h, model.ModeRGB)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := out.Pix(); got[0] != 10 || got[1] != 20 || got[2] != 30 || len(got) != 3 {
			t.Errorf("got %v", got)
		}
	})

	t.Run("rgb to gray uses luma weights", func(t *testing.T) {
		t.Parallel()

		h, _ := FromPix(model.ModeRGB, 3, 1, []uint8{255, 0, 0, 0, 255, 0, 255, 255, 255}) //nolint:errcheck
		out, err := Convert(h, model.ModeGray)
		if err != nil {
			t.Fatal(err)
		}
		want := []uint8{76, 150, 255}
		for i, v := range out.Pix() {
			if v != want[i] {
				t.Errorf("pixel %d: got %d, want %d", i, v, want[i])
			}
		}
	})

	t.Run("cmyk to rgb", func(t *testing.T) {
		t.Parallel()

		h, _ := FromPix(model.ModeCMYK, 1, 1, []uint8{0, 0, 0, 0}) //nolint:errcheck
		out, err := Convert(h, model.ModeRGB)
		if err != nil {
			t.Fatal(err)
		}
		if got := out.Pix(); got[0] != 255 || got[1] != 255 || got[2] != 255 {
			t.Errorf("expected white, got %v", got)
		}
	})

	t.Run("cmyk target rejected", func(t *testing.T) {
		t.Parallel()

		h := New(model.ModeRGB, 1, 1)
		if _, err := Convert(h, model.ModeCMYK); !errors.Is(err, model.ErrUnsupportedMode) {
			t.Errorf("expected ErrUnsupportedMode, got %v", err)
		}
	})

	t.Run("same mode clones", func(t *testing.T) {
		t.Parallel()

		h := Rebuild(gradientRGBA(2, 2))
		out, err := Convert(h, model.ModeRGB)
		if err != nil {
			t.Fatal(err)
		}
		if !out.Equal(h) || out == h {
			t.Error("expected an equal but distinct handle")
		}
	})
}

// TestFromPix tests buffer validation.
func TestFromPix(t *testing.T) {
	t.Parallel()

	if _, err := FromPix(model.ModeRGB, 2, 2, make([]uint8, 11)); err == nil {
		t.Error("expected length mismatch error")
	}
	if _, err := FromPix("XYZ", 1, 1, []uint8{0}); !errors.Is(err, model.ErrUnsupportedMode) {
		t.Errorf("expected ErrUnsupportedMode, got %v", err)
	}
	h, err := FromPix(model.ModeGray, 2, 1, []uint8{1, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Width() != 2 || h.Height() != 1 {
		t.Errorf("unexpected size %dx%d", h.Width(), h.Height())
	}
}
