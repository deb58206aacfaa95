package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.NRGBA{R: 200, G: 40, B: 90, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestCompressFitsWithinBox(t *testing.T) {
	p := NewProcessor(100, 50)

	res, err := p.Compress(encodePNG(t, 400, 100), DefaultQuality)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	if res.Width != 100 || res.Height != 25 {
		t.Fatalf("expected 100x25, got %dx%d", res.Width, res.Height)
	}
	if res.ContentType != "image/jpeg" {
		t.Fatalf("unexpected content type %q", res.ContentType)
	}
	if _, format, err := image.Decode(bytes.NewReader(res.Data)); err != nil || format != "jpeg" {
		t.Fatalf("expected jpeg output, format=%q err=%v", format, err)
	}
}

func TestCompressKeepsSmallImages(t *testing.T) {
	res, err := NewProcessor(0, 0).Compress(encodePNG(t, 40, 30), 90)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	if res.Width != 40 || res.Height != 30 {
		t.Fatalf("expected 40x30, got %dx%d", res.Width, res.Height)
	}
}

func TestCompressRejectsBadInput(t *testing.T) {
	p := NewProcessor(0, 0)
	if _, err := p.Compress(encodePNG(t, 4, 4), 0); !errors.Is(err, ErrInvalidQuality) {
		t.Fatalf("expected ErrInvalidQuality, got %v", err)
	}
	if _, err := p.Compress([]byte("not an image"), 80); err == nil {
		t.Fatal("expected decode error")
	}
}
