package upload

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rurikon/gallery-api/internal/domain/gallery"
	"github.com/rurikon/gallery-api/internal/pkg/logger"
	"github.com/rurikon/gallery-api/internal/pkg/storage"
)

// Transport stores image bytes somewhere that hands back a permanent URL.
type Transport interface {
	Upload(ctx context.Context, name string, data []byte, contentType string) (*storage.Blob, error)
}

// PhotoRegistry records a freshly stored photo.
type PhotoRegistry interface {
	AddPhoto(ctx context.Context, photo *gallery.Photo) error
}

// Service handles upload business logic
type Service struct {
	transport Transport
	photos    PhotoRegistry
	maxBytes  int64
	now       func() time.Time
}

// NewService creates upload service
func NewService(transport Transport, photos PhotoRegistry, maxBytes int64) *Service {
	return &Service{
		transport: transport,
		photos:    photos,
		maxBytes:  maxBytes,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Upload validates the image, pushes it through the transport and registers
// the photo. Nothing is recorded when the transport fails.
func (s *Service) Upload(ctx context.Context, fileName string, reader io.Reader, uploadedBy string) (*gallery.Photo, error) {
	data, mimeType, err := storage.ReadImage(reader, s.maxBytes)
	if err != nil {
		return nil, err
	}

	now := s.now()
	id := newPhotoID(now)

	blob, err := s.transport.Upload(ctx, id, data, mimeType)
	if err != nil {
		logger.LogError(ctx, err, "blob upload failed", "photo_id", id, "size", len(data))
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	photo := &gallery.Photo{
		ID:               id,
		URL:              blob.URL,
		FileID:           blob.FileID,
		FileName:         sanitizeFileName(fileName),
		FileSize:         int64(len(data)),
		FileType:         mimeType,
		TelegramFilePath: blob.Path,
		UploadedBy:       uploadedBy,
		UploadedAt:       now,
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		photo.Width = cfg.Width
		photo.Height = cfg.Height
	}

	if err := s.photos.AddPhoto(ctx, photo); err != nil {
		return nil, err
	}
	return photo, nil
}

// newPhotoID returns tg-<unix millis>-<8 hex chars>.
func newPhotoID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("tg-%d-%s", now.UnixMilli(), suffix)
}

func sanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	name = strings.ReplaceAll(name, "..", "")
	if name == "" || name == "." || name == "/" {
		return "photo"
	}
	return name
}
