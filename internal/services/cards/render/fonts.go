package render

import (
	"fmt"
	"log"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// FontCandidate is one regular/bold TrueType pair on disk.
type FontCandidate struct {
	Name    string
	Regular string
	Bold    string
}

// DefaultFontCandidates lists system fonts in preference order.
var DefaultFontCandidates = []FontCandidate{
	{
		Name:    "DejaVu Sans",
		Regular: "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		Bold:    "/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
	},
	{
		Name:    "Liberation Sans",
		Regular: "/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
		Bold:    "/usr/share/fonts/truetype/liberation/LiberationSans-Bold.ttf",
	},
	{
		Name:    "Ubuntu",
		Regular: "/usr/share/fonts/truetype/ubuntu/Ubuntu-Regular.ttf",
		Bold:    "/usr/share/fonts/truetype/ubuntu/Ubuntu-Bold.ttf",
	},
}

// FontSet holds parsed regular and bold fonts shared by all renders. Faces are
// created per call so concurrent renders never share glyph buffers.
type FontSet struct {
	name    string
	regular *opentype.Font
	bold    *opentype.Font
}

// ResolveFonts returns the first candidate whose regular and bold files both
// parse, then the bundled Go fonts, then the fixed-size bitmap font. It never
// fails.
func ResolveFonts(candidates []FontCandidate) *FontSet {
	for _, c := range candidates {
		set, err := loadCandidate(c)
		if err != nil {
			continue
		}
		return set
	}
	regular, errRegular := opentype.Parse(goregular.TTF)
	bold, errBold := opentype.Parse(gobold.TTF)
	if errRegular == nil && errBold == nil {
		if len(candidates) > 0 {
			log.Printf("font candidates unavailable, using Go fonts")
		}
		return &FontSet{name: "Go", regular: regular, bold: bold}
	}
	log.Printf("font resolution failed, using basic bitmap font")
	return &FontSet{name: "basic"}
}

func loadCandidate(c FontCandidate) (*FontSet, error) {
	regular, err := parseFontFile(c.Regular)
	if err != nil {
		return nil, err
	}
	bold, err := parseFontFile(c.Bold)
	if err != nil {
		return nil, err
	}
	return &FontSet{name: c.Name, regular: regular, bold: bold}, nil
}

func parseFontFile(path string) (*opentype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return f, nil
}

// Name identifies the resolved family.
func (s *FontSet) Name() string {
	if s == nil {
		return "basic"
	}
	return s.name
}

// Scalable reports whether faces honor the requested size.
func (s *FontSet) Scalable() bool {
	return s != nil && s.regular != nil && s.bold != nil
}

// Face returns a face at size points (1pt = 1px). It falls back to the
// bitmap font when the set is empty or the face cannot be built.
func (s *FontSet) Face(size float64, bold bool) font.Face {
	if !s.Scalable() {
		return basicfont.Face7x13
	}
	f := s.regular
	if bold {
		f = s.bold
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		log.Printf("font face %s %.0fpt: %v", s.name, size, err)
		return basicfont.Face7x13
	}
	return face
}
