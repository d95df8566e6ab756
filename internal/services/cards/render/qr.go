package render

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/yeqown/go-qrcode/v2"
	"github.com/yeqown/go-qrcode/writer/standard"
)

// QR raster parameters before rescaling.
const (
	qrModulePixels = 8
	qrQuietModules = 2
)

type nopCloser struct {
	*bytes.Buffer
}

func (nopCloser) Close() error { return nil }

// EncodeQR renders payload as a medium error-correction QR code scaled to
// size x size pixels.
func EncodeQR(payload string, size int) (image.Image, error) {
	if size <= 0 {
		return nil, fmt.Errorf("qr size must be positive")
	}
	qrc, err := qrcode.NewWith(payload, qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionMedium))
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}

	buf := &bytes.Buffer{}
	w := standard.NewWithWriter(nopCloser{Buffer: buf},
		standard.WithQRWidth(qrModulePixels),
		standard.WithBorderWidth(qrModulePixels*qrQuietModules),
		standard.WithBuiltinImageEncoder(standard.PNG_FORMAT),
	)
	if err := qrc.Save(w); err != nil {
		return nil, fmt.Errorf("rasterize qr: %w", err)
	}
	raster, err := png.Decode(buf)
	if err != nil {
		return nil, fmt.Errorf("decode qr raster: %w", err)
	}
	return imaging.Resize(raster, size, size, imaging.Lanczos), nil
}
