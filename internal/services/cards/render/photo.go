package render

import (
	"image"
	"image/color"
	"io"
	"log"

	"github.com/disintegration/imaging"
)

// Photo box dimensions.
const (
	PhotoWidth  = 150
	PhotoHeight = 180
)

var (
	placeholderFill = color.NRGBA{R: 0xf3, G: 0xf4, B: 0xf6, A: 0xff}
	placeholderText = color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}
)

// Fitter center-crops images to the photo box aspect ratio and scales them to
// its exact size.
type Fitter struct {
	fonts *FontSet
}

// NewFitter returns a fitter that draws placeholder captions with fonts.
func NewFitter(fonts *FontSet) Fitter {
	return Fitter{fonts: fonts}
}

// Fit returns img cropped and resized to PhotoWidth x PhotoHeight. Empty
// images yield the placeholder.
func (f Fitter) Fit(img image.Image) image.Image {
	if img == nil {
		return f.Placeholder()
	}
	crop := cropRect(img.Bounds(), PhotoWidth, PhotoHeight)
	if crop.Empty() {
		return f.Placeholder()
	}
	return imaging.Resize(imaging.Crop(img, crop), PhotoWidth, PhotoHeight, imaging.Lanczos)
}

// FitReader decodes r and fits the result, substituting the placeholder when
// decoding fails.
func (f Fitter) FitReader(r io.Reader) image.Image {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		log.Printf("photo decode: %v", err)
		return f.Placeholder()
	}
	return f.Fit(img)
}

// FitFile opens path and fits the result, substituting the placeholder when
// the file cannot be read or decoded.
func (f Fitter) FitFile(path string) image.Image {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		log.Printf("photo open %s: %v", path, err)
		return f.Placeholder()
	}
	return f.Fit(img)
}

// Placeholder returns a neutral photo-sized image captioned "PHOTO".
func (f Fitter) Placeholder() image.Image {
	img := imaging.New(PhotoWidth, PhotoHeight, placeholderFill)
	drawCentered(img, f.fonts.Face(16, false), placeholderText, PhotoWidth/2, PhotoHeight/2, "PHOTO")
	return img
}

// cropRect returns the centered region of bounds with the target aspect
// ratio: full height when the source is relatively wider, full width
// otherwise. Each side is at least one pixel.
func cropRect(bounds image.Rectangle, targetW, targetH int) image.Rectangle {
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return image.Rectangle{}
	}
	target := float64(targetW) / float64(targetH)
	if float64(w)/float64(h) > target {
		cw := clamp(int(float64(h)*target), 1, w)
		left := bounds.Min.X + (w-cw)/2
		return image.Rect(left, bounds.Min.Y, left+cw, bounds.Max.Y)
	}
	ch := clamp(int(float64(w)/target), 1, h)
	top := bounds.Min.Y + (h-ch)/2
	return image.Rect(bounds.Min.X, top, bounds.Max.X, top+ch)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
