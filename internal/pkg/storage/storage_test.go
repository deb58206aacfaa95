package storage

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestObjectTransportUploadsIntoLocalStorage(t *testing.T) {
	dir := t.TempDir()
	local, err := NewLocalStorage(dir, "http://localhost:8080/media/")
	if err != nil {
		t.Fatalf("new local storage: %v", err)
	}

	transport := NewObjectTransport(local)
	transport.now = func() time.Time { return time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC) }

	data := pngBytes(t)
	blob, err := transport.Upload(context.Background(), "tg-1", data, "image/png")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if blob.Path != "photos/2024/03/tg-1.png" {
		t.Fatalf("unexpected path %q", blob.Path)
	}
	if blob.URL != "http://localhost:8080/media/photos/2024/03/tg-1.png" {
		t.Fatalf("unexpected url %q", blob.URL)
	}
	if blob.Size != int64(len(data)) {
		t.Fatalf("unexpected size %d", blob.Size)
	}

	stored, err := os.ReadFile(filepath.Join(dir, "photos", "2024", "03", "tg-1.png"))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if !bytes.Equal(stored, data) {
		t.Fatal("stored bytes differ from upload")
	}

	ok, err := local.Exists(context.Background(), blob.Path)
	if err != nil || !ok {
		t.Fatalf("expected object to exist, ok=%v err=%v", ok, err)
	}

	if err := local.Delete(context.Background(), blob.Path); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := local.Delete(context.Background(), blob.Path); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}
}

func TestLocalStorageRejectsEscapingKeys(t *testing.T) {
	local, err := NewLocalStorage(t.TempDir(), "http://localhost/media")
	if err != nil {
		t.Fatalf("new local storage: %v", err)
	}

	for _, key := range []string{"", "../secret", "/etc/passwd", "a/../../b"} {
		if err := local.Put(context.Background(), key, []byte("x"), "text/plain"); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Put(%q) expected ErrInvalidKey, got %v", key, err)
		}
	}
}

func TestReadImage(t *testing.T) {
	data := pngBytes(t)

	t.Run("accepts png", func(t *testing.T) {
		got, mime, err := ReadImage(bytes.NewReader(data), 1<<20)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if mime != "image/png" || len(got) != len(data) {
			t.Fatalf("unexpected result mime=%q len=%d", mime, len(got))
		}
	})

	t.Run("rejects oversized", func(t *testing.T) {
		if _, _, err := ReadImage(bytes.NewReader(data), int64(len(data)-1)); !errors.Is(err, ErrFileTooLarge) {
			t.Fatalf("expected ErrFileTooLarge, got %v", err)
		}
	})

	t.Run("rejects text", func(t *testing.T) {
		if _, _, err := ReadImage(strings.NewReader("hello world"), 1<<20); !errors.Is(err, ErrInvalidMimeType) {
			t.Fatalf("expected ErrInvalidMimeType, got %v", err)
		}
	})

	t.Run("rejects empty", func(t *testing.T) {
		if _, _, err := ReadImage(strings.NewReader(""), 1<<20); !errors.Is(err, ErrEmptyFile) {
			t.Fatalf("expected ErrEmptyFile, got %v", err)
		}
	})
}
