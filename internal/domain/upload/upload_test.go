package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/rurikon/gallery-api/internal/domain/gallery"
	"github.com/rurikon/gallery-api/internal/middleware"
	"github.com/rurikon/gallery-api/internal/pkg/docstore"
	"github.com/rurikon/gallery-api/internal/pkg/storage"
)

type stubTransport struct {
	calls int
	err   error
}

func (s *stubTransport) Upload(_ context.Context, name string, data []byte, contentType string) (*storage.Blob, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &storage.Blob{
		URL:         "https://files.example.com/" + name,
		FileID:      "file-" + name,
		Path:        "photos/" + name + ".png",
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func newTestService(transport Transport) (*Service, *docstore.MemoryStore) {
	store := docstore.NewMemoryStore()
	engine := gallery.NewService(gallery.NewRepository(store), nil, nil)
	return NewService(transport, engine, 1<<20), store
}

func TestUploadRegistersPhoto(t *testing.T) {
	transport := &stubTransport{}
	svc, store := newTestService(transport)

	photo, err := svc.Upload(context.Background(), "../../holiday.png", bytes.NewReader(pngBytes(t, 40, 30)), "admin@example.com")
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	if !regexp.MustCompile(`^tg-\d+-[0-9a-f]{8}$`).MatchString(photo.ID) {
		t.Fatalf("unexpected photo id %q", photo.ID)
	}
	if photo.FileName != "holiday.png" {
		t.Fatalf("expected sanitized file name, got %q", photo.FileName)
	}
	if photo.Width != 40 || photo.Height != 30 {
		t.Fatalf("expected 40x30, got %dx%d", photo.Width, photo.Height)
	}
	if photo.FileType != "image/png" || photo.UploadedBy != "admin@example.com" {
		t.Fatalf("unexpected metadata: %+v", photo)
	}
	if photo.URL != "https://files.example.com/"+photo.ID || photo.FileID != "file-"+photo.ID {
		t.Fatalf("blob handles not copied: %+v", photo)
	}

	stored, err := gallery.NewRepository(store).GetPhoto(context.Background(), photo.ID)
	if err != nil || stored == nil {
		t.Fatalf("photo not stored: %v", err)
	}
}

func TestUploadRejectsNonImages(t *testing.T) {
	transport := &stubTransport{}
	svc, _ := newTestService(transport)

	_, err := svc.Upload(context.Background(), "notes.txt", strings.NewReader("just some text"), "admin")
	if !errors.Is(err, storage.ErrInvalidMimeType) {
		t.Fatalf("expected ErrInvalidMimeType, got %v", err)
	}

	_, err = svc.Upload(context.Background(), "big.png", bytes.NewReader(make([]byte, 2<<20)), "admin")
	if !errors.Is(err, storage.ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}

	if transport.calls != 0 {
		t.Fatalf("transport must not be called for rejected files, got %d calls", transport.calls)
	}
}

func TestUploadTransportFailureStoresNothing(t *testing.T) {
	svc, store := newTestService(&stubTransport{err: errors.New("telegram down")})

	_, err := svc.Upload(context.Background(), "a.png", bytes.NewReader(pngBytes(t, 4, 4)), "admin")
	if !errors.Is(err, ErrUploadFailed) {
		t.Fatalf("expected ErrUploadFailed, got %v", err)
	}

	docs, err := store.List(context.Background(), gallery.CollectionPhotos)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected no photos, got %d", len(docs))
	}
}

func multipartRequest(t *testing.T, field, name string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, name)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write(data)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/images/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req.WithContext(middleware.WithIdentity(req.Context(), "admin@example.com", "admin"))
}

func TestUploadHandlerStatuses(t *testing.T) {
	cases := []struct {
		name      string
		transport *stubTransport
		field     string
		data      []byte
		want      int
	}{
		{"created", &stubTransport{}, "file", pngBytes(t, 8, 8), http.StatusCreated},
		{"not an image", &stubTransport{}, "file", []byte("plain text"), http.StatusBadRequest},
		{"wrong field", &stubTransport{}, "image", pngBytes(t, 8, 8), http.StatusBadRequest},
		{"transport down", &stubTransport{err: errors.New("timeout")}, "file", pngBytes(t, 8, 8), http.StatusBadGateway},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newTestService(tc.transport)
			h := NewHandler(svc, 1<<20)

			w := httptest.NewRecorder()
			h.Upload(w, multipartRequest(t, tc.field, "x.png", tc.data))

			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, w.Code, w.Body.String())
			}
			if tc.want == http.StatusCreated {
				var resp struct {
					Data gallery.Photo `json:"data"`
				}
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if resp.Data.UploadedBy != "admin@example.com" {
					t.Fatalf("expected uploader from context, got %q", resp.Data.UploadedBy)
				}
			}
		})
	}
}
