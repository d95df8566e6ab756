package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
)

func TestFitAlwaysReturnsPhotoBox(t *testing.T) {
	fitter := NewFitter(ResolveFonts(nil))
	sizes := []image.Point{
		{1, 1}, {150, 180}, {300, 180}, {180, 300}, {10000, 1}, {1, 10000}, {4000, 3000},
	}
	for _, size := range sizes {
		src := imaging.New(size.X, size.Y, color.NRGBA{R: 10, G: 200, B: 30, A: 255})
		got := fitter.Fit(src).Bounds()
		if got.Dx() != PhotoWidth || got.Dy() != PhotoHeight {
			t.Fatalf("%v: expected %dx%d, got %dx%d", size, PhotoWidth, PhotoHeight, got.Dx(), got.Dy())
		}
	}
}

func TestFitKeepsSourceContentForExtremeAspect(t *testing.T) {
	fitter := NewFitter(ResolveFonts(nil))
	green := color.NRGBA{G: 255, A: 255}
	out := fitter.Fit(imaging.New(5000, 2, green))
	r, g, b, _ := out.At(PhotoWidth/2, PhotoHeight/2).RGBA()
	if r>>8 > 5 || g>>8 < 250 || b>>8 > 5 {
		t.Fatalf("expected fitted source pixels, not placeholder, got %v", out.At(PhotoWidth/2, PhotoHeight/2))
	}
}

func TestCropRectCentersOnWiderSource(t *testing.T) {
	got := cropRect(image.Rect(0, 0, 300, 180), PhotoWidth, PhotoHeight)
	if got != image.Rect(75, 0, 225, 180) {
		t.Fatalf("unexpected crop %v", got)
	}
	got = cropRect(image.Rect(0, 0, 150, 400), PhotoWidth, PhotoHeight)
	if got != image.Rect(0, 20, 150, 200) {
		t.Fatalf("unexpected crop %v", got)
	}
	got = cropRect(image.Rect(10, 10, 11, 11), PhotoWidth, PhotoHeight)
	if got != image.Rect(10, 10, 11, 11) {
		t.Fatalf("unexpected 1x1 crop %v", got)
	}
}

func TestFitReaderFallsBackToPlaceholder(t *testing.T) {
	fitter := NewFitter(ResolveFonts(nil))
	out := fitter.FitReader(strings.NewReader("not an image"))
	if out.Bounds().Dx() != PhotoWidth || out.Bounds().Dy() != PhotoHeight {
		t.Fatalf("unexpected placeholder size %v", out.Bounds())
	}
	if got := color.NRGBAModel.Convert(out.At(2, 2)); got != placeholderFill {
		t.Fatalf("expected placeholder fill, got %v", got)
	}
}

func TestFitReaderDecodesPNG(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, imaging.New(640, 480, color.NRGBA{R: 255, A: 255})); err != nil {
		t.Fatalf("encode: %v", err)
	}
	out := NewFitter(nil).FitReader(&buf)
	if out.Bounds().Dx() != PhotoWidth || out.Bounds().Dy() != PhotoHeight {
		t.Fatalf("unexpected size %v", out.Bounds())
	}
	if got := color.NRGBAModel.Convert(out.At(75, 90)).(color.NRGBA); got.R < 250 || got.G > 5 {
		t.Fatalf("expected red photo content, got %v", got)
	}
}

func TestFitFileMissingReturnsPlaceholder(t *testing.T) {
	out := NewFitter(nil).FitFile(t.TempDir() + "/missing.jpg")
	if out.Bounds().Dx() != PhotoWidth || out.Bounds().Dy() != PhotoHeight {
		t.Fatalf("unexpected size %v", out.Bounds())
	}
}
