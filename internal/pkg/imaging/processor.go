package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
)

const (
	DefaultQuality   = 80
	DefaultMaxWidth  = 2000
	DefaultMaxHeight = 2000
)

var ErrInvalidQuality = errors.New("quality must be between 1 and 100")

// Result is a re-encoded image with its before/after sizes.
type Result struct {
	Data         []byte
	ContentType  string
	Width        int
	Height       int
	OriginalSize int
}

// Processor fits images within a bounding box and re-encodes them as JPEG.
type Processor struct {
	maxWidth  int
	maxHeight int
}

func NewProcessor(maxWidth, maxHeight int) *Processor {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}
	if maxHeight <= 0 {
		maxHeight = DefaultMaxHeight
	}
	return &Processor{maxWidth: maxWidth, maxHeight: maxHeight}
}

// Compress decodes data, downsizes it if it exceeds the box, and encodes
// the result as JPEG at quality.
func (p *Processor) Compress(data []byte, quality int) (*Result, error) {
	if quality < 1 || quality > 100 {
		return nil, ErrInvalidQuality
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	var out image.Image = img
	if bounds.Dx() > p.maxWidth || bounds.Dy() > p.maxHeight {
		out = imaging.Fit(img, p.maxWidth, p.maxHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &Result{
		Data:         buf.Bytes(),
		ContentType:  "image/jpeg",
		Width:        out.Bounds().Dx(),
		Height:       out.Bounds().Dy(),
		OriginalSize: len(data),
	}, nil
}
