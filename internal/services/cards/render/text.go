package render

import (
	"image"
	"image/color"
	"image/draw"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// minFontSize bounds shrink-to-fit loops.
const minFontSize = 12

func textWidth(face font.Face, s string) int {
	return font.MeasureString(face, s).Ceil()
}

// drawText draws s with its top-left corner at (x, top) and returns the
// baseline y and the drawn width.
func drawText(dst draw.Image, face font.Face, col color.Color, x, top int, s string) (baseline, width int) {
	baseline = top + face.Metrics().Ascent.Ceil()
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, baseline),
	}
	d.DrawString(s)
	return baseline, (d.Dot.X - fixed.I(x)).Ceil()
}

// drawCentered draws s centered on (cx, cy).
func drawCentered(dst draw.Image, face font.Face, col color.Color, cx, cy int, s string) {
	m := face.Metrics()
	baseline := cy + (m.Ascent.Ceil()-m.Descent.Ceil())/2
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(cx-textWidth(face, s)/2, baseline),
	}
	d.DrawString(s)
}

// fitFace returns the largest face, from size down in steps of 2, whose
// rendering of s is no wider than maxWidth.
func fitFace(fonts *FontSet, size float64, bold bool, s string, maxWidth int) font.Face {
	face := fonts.Face(size, bold)
	if !fonts.Scalable() {
		return face
	}
	for size > minFontSize && textWidth(face, s) > maxWidth {
		size -= 2
		face = fonts.Face(size, bold)
	}
	return face
}

// splitNearMiddle splits s at the word boundary closest to its midpoint.
// Strings without spaces are returned whole in the first line.
func splitNearMiddle(s string) (string, string) {
	s = strings.TrimSpace(s)
	mid := len(s) / 2
	best := -1
	for i, r := range s {
		if r != ' ' {
			continue
		}
		if best == -1 || abs(i-mid) < abs(best-mid) {
			best = i
		}
	}
	if best == -1 {
		return s, ""
	}
	return strings.TrimSpace(s[:best]), strings.TrimSpace(s[best+1:])
}

func fillRect(dst draw.Image, r image.Rectangle, col color.Color) {
	draw.Draw(dst, r, image.NewUniform(col), image.Point{}, draw.Src)
}

// strokeRect draws a border of the given width inside r.
func strokeRect(dst draw.Image, r image.Rectangle, width int, col color.Color) {
	fillRect(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width), col)
	fillRect(dst, image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y), col)
	fillRect(dst, image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y), col)
	fillRect(dst, image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y), col)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
