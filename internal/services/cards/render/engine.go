// Package render composes identity card rasters: layout, photo fitting and
// QR verification codes.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/louisbranch/cardpress/internal/platform/id"
	"github.com/louisbranch/cardpress/internal/platform/otel"
	"github.com/louisbranch/cardpress/internal/services/cards/domain"
)

// Canvas geometry.
const (
	CardWidth    = 640
	CardHeight   = 1000
	headerHeight = 160
	accentHeight = 60
	footerHeight = 50

	emblemSize = 90
	emblemX    = 30
	emblemY    = 35

	photoX = 50
	photoY = 240

	infoX          = photoX + PhotoWidth + 40
	infoY          = photoY + 10
	lineHeight     = 45
	valueOffset    = 25
	belowPhotoY    = photoY + PhotoHeight + 40
	authorityY     = CardHeight - 220
	rightMargin    = 20
	headerWrapSize = 35

	QRSize    = 130
	qrX       = CardWidth - 150
	qrY       = CardHeight - 170
	qrPadding = 5

	maxWriteAttempts = 5
)

var (
	white     = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	black     = color.NRGBA{A: 0xff}
	bloodRed  = color.NRGBA{R: 0xdc, G: 0x26, B: 0x26, A: 0xff}
	upperCase = cases.Upper(language.Und)
)

// Engine renders cards for a closed set of institutions into an output
// directory. It is safe for concurrent use.
type Engine struct {
	registry  *domain.Registry
	fonts     *FontSet
	fitter    Fitter
	outputDir string
	emblems   sync.Map // path -> image.Image
}

// NewEngine returns an engine writing PNG files beneath outputDir.
func NewEngine(registry *domain.Registry, fonts *FontSet, outputDir string) (*Engine, error) {
	if registry == nil {
		return nil, errors.New("institution registry is required")
	}
	outputDir = strings.TrimSpace(outputDir)
	if outputDir == "" {
		return nil, errors.New("output directory is required")
	}
	if fonts == nil {
		fonts = ResolveFonts(DefaultFontCandidates)
	}
	return &Engine{
		registry:  registry,
		fonts:     fonts,
		fitter:    NewFitter(fonts),
		outputDir: outputDir,
	}, nil
}

// Fitter returns the photo fitter sharing the engine's fonts.
func (e *Engine) Fitter() Fitter {
	return e.fitter
}

// Render composes a card and writes it to a new uniquely named file,
// returning its path. An unknown institution fails with
// INVALID_INSTITUTION before anything is written. A missing or unreadable
// photo renders as a placeholder.
func (e *Engine) Render(ctx context.Context, institutionID string, fields domain.CardFields, payload, photoPath string) (string, error) {
	ctx, span := otel.Tracer("render").Start(ctx, "render.card")
	defer span.End()
	span.SetAttributes(attribute.String("institution.id", institutionID))

	inst, err := e.registry.Lookup(institutionID)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var photo image.Image
	if strings.TrimSpace(photoPath) != "" {
		if _, statErr := os.Stat(photoPath); statErr == nil {
			photo = e.fitter.FitFile(photoPath)
		} else {
			log.Printf("photo %s unavailable: %v", photoPath, statErr)
		}
	}

	card, err := e.Compose(inst, fields, payload, photo)
	if err != nil {
		return "", err
	}
	path, err := e.write(inst.ID, card)
	if err != nil {
		return "", err
	}
	span.SetAttributes(attribute.String("card.path", path))
	return path, nil
}

// Compose draws the card in memory. photo, when non-nil, must already be
// fitted to the photo box.
func (e *Engine) Compose(inst domain.Institution, fields domain.CardFields, payload string, photo image.Image) (*image.NRGBA, error) {
	qr, err := EncodeQR(payload, QRSize)
	if err != nil {
		return nil, err
	}
	if fields.IssueDate.IsZero() {
		fields.IssueDate = time.Now()
	}

	card := imaging.New(CardWidth, CardHeight, white)
	palette := inst.Colors
	fillRect(card, image.Rect(0, 0, CardWidth, headerHeight), palette.Primary)
	fillRect(card, image.Rect(0, headerHeight, CardWidth, headerHeight+accentHeight), palette.Secondary)
	fillRect(card, image.Rect(0, CardHeight-footerHeight, CardWidth, CardHeight), palette.Primary)

	e.drawHeader(card, inst)
	drawCentered(card, e.fonts.Face(32, true), palette.AccentCaption(), CardWidth/2, headerHeight+accentHeight/2, "STUDENT ID")

	card = e.drawPhoto(card, photo)
	e.drawFields(card, inst, fields)

	card = imaging.Paste(card, imaging.New(QRSize+2*qrPadding, QRSize+2*qrPadding, white), image.Pt(qrX-qrPadding, qrY-qrPadding))
	card = imaging.Paste(card, qr, image.Pt(qrX, qrY))
	drawCentered(card, e.fonts.Face(10, true), palette.Text, qrX+65, qrY-25, "SCAN FOR VERIFICATION")
	return card, nil
}

func (e *Engine) drawHeader(card *image.NRGBA, inst domain.Institution) {
	name := inst.Name
	if emblem := e.emblem(inst); emblem != nil {
		draw.Draw(card, image.Rect(emblemX, emblemY, emblemX+emblemSize, emblemY+emblemSize), emblem, emblem.Bounds().Min, draw.Over)
		x := emblemX + emblemSize + 20
		face := fitFace(e.fonts, 28, true, name, CardWidth-x-rightMargin)
		baseline, width := drawText(card, face, white, x, 60, name)
		fillRect(card, image.Rect(x, baseline+5, x+width, baseline+7), white)
		return
	}

	if len([]rune(name)) > headerWrapSize {
		first, second := splitNearMiddle(name)
		maxWidth := CardWidth - 2*rightMargin
		face := fitFace(e.fonts, 26, true, longer(first, second), maxWidth)
		drawCentered(card, face, white, CardWidth/2, 55, first)
		drawCentered(card, face, white, CardWidth/2, 100, second)
		return
	}

	face := fitFace(e.fonts, 30, true, name, CardWidth-2*rightMargin)
	width := textWidth(face, name)
	x := (CardWidth - width) / 2
	baseline, _ := drawText(card, face, white, x, 60, name)
	fillRect(card, image.Rect(x, baseline+5, x+width, baseline+7), white)
}

func (e *Engine) drawPhoto(card *image.NRGBA, photo image.Image) *image.NRGBA {
	box := image.Rect(photoX, photoY, photoX+PhotoWidth, photoY+PhotoHeight)
	if photo == nil {
		fillRect(card, box, placeholderFill)
		strokeRect(card, box, 3, black)
		drawCentered(card, e.fonts.Face(16, false), placeholderText, photoX+PhotoWidth/2, photoY+PhotoHeight/2, "PHOTO")
		return card
	}
	card = imaging.Paste(card, photo, box.Min)
	strokeRect(card, box.Inset(-2), 2, black)
	return card
}

func (e *Engine) drawFields(card *image.NRGBA, inst domain.Institution, fields domain.CardFields) {
	text := inst.Colors.Text
	label := e.fonts.Face(18, true)
	value := e.fonts.Face(22, false)
	small := e.fonts.Face(16, false)
	columnWidth := CardWidth - infoX - rightMargin

	name := upperCase.String(strings.TrimSpace(fields.Name))
	drawText(card, label, text, infoX, infoY, "STUDENT NAME")
	drawText(card, fitFace(e.fonts, nameFontSize(name), true, name, columnWidth), text, infoX, infoY+valueOffset, name)

	drawText(card, label, text, infoX, infoY+lineHeight*2, "FATHER'S NAME")
	drawText(card, fitFace(e.fonts, 22, false, fields.Father, columnWidth), text, infoX, infoY+lineHeight*2+valueOffset, fields.Father)

	drawText(card, label, text, infoX, infoY+lineHeight*4, "STUDENT ID:")
	drawText(card, value, text, infoX, infoY+lineHeight*4+valueOffset, fields.StudentID)

	drawText(card, label, text, photoX, belowPhotoY, "PHONE:")
	drawText(card, value, text, photoX, belowPhotoY+valueOffset, fields.Phone)

	drawText(card, label, text, photoX, belowPhotoY+lineHeight, "DEPARTMENT:")
	drawText(card, value, text, photoX, belowPhotoY+lineHeight+valueOffset, domain.TruncateDepartment(fields.Department))

	drawText(card, label, text, photoX, belowPhotoY+lineHeight*2, "BLOOD GROUP:")
	drawText(card, value, bloodRed, photoX, belowPhotoY+lineHeight*2+valueOffset, fields.BloodGroup)

	authorityWidth := qrX - qrPadding - photoX - rightMargin
	drawText(card, label, text, photoX, authorityY, "ISSUED BY:")
	drawText(card, fitFace(e.fonts, 16, false, inst.Authority, authorityWidth), text, photoX, authorityY+valueOffset, inst.Authority)
	drawText(card, small, text, photoX, authorityY+2*valueOffset, "ISSUE DATE: "+fields.IssueDate.Format(domain.IssueDateLayout))
}

// nameFontSize steps the subject name size down as it gets longer.
func nameFontSize(name string) float64 {
	switch n := len([]rune(name)); {
	case n > 26:
		return 18
	case n > 18:
		return 22
	default:
		return 30
	}
}

// emblem loads and caches the institution emblem scaled to the header slot.
// Missing or unreadable files yield nil and a text-only header.
func (e *Engine) emblem(inst domain.Institution) image.Image {
	if !inst.HasEmblem() {
		return nil
	}
	if cached, ok := e.emblems.Load(inst.EmblemPath); ok {
		return cached.(image.Image)
	}
	img, err := imaging.Open(inst.EmblemPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("emblem %s: %v", inst.EmblemPath, err)
		}
		return nil
	}
	scaled := imaging.Resize(img, emblemSize, emblemSize, imaging.Lanczos)
	actual, _ := e.emblems.LoadOrStore(inst.EmblemPath, image.Image(scaled))
	return actual.(image.Image)
}

// write stores card under a fresh name, never replacing an existing file.
func (e *Engine) write(institutionID string, card image.Image) (string, error) {
	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create card dir: %w", err)
	}
	prefix := "id_card_" + fileSafe(institutionID) + "_"
	for range maxWriteAttempts {
		suffix, err := id.Short(8)
		if err != nil {
			return "", err
		}
		path := filepath.Join(e.outputDir, prefix+suffix+".png")
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create card file: %w", err)
		}
		encodeErr := imaging.Encode(f, card, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
		closeErr := f.Close()
		if err := errors.Join(encodeErr, closeErr); err != nil {
			_ = os.Remove(path)
			return "", fmt.Errorf("write card: %w", err)
		}
		return path, nil
	}
	return "", fmt.Errorf("write card: no free file name after %d attempts", maxWriteAttempts)
}

func fileSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}

func longer(a, b string) string {
	if len(b) > len(a) {
		return b
	}
	return a
}
