package storage

import (
	"context"
	"fmt"
	"path"
	"time"
)

// Storage is an object store addressed by key.
type Storage interface {
	// Put stores data under key, replacing any previous object.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Delete removes an object. Returns nil if it doesn't exist.
	Delete(ctx context.Context, key string) error

	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// URL returns the public URL for key.
	URL(key string) string
}

// Blob describes an uploaded file as seen by the gallery: a fetchable URL
// plus the backend handles needed to find it again.
type Blob struct {
	URL         string `json:"url"`
	FileID      string `json:"fileId,omitempty"`
	Path        string `json:"path,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size"`
}

// ObjectTransport publishes uploads into a Storage under photos/<yyyy>/<mm>/.
type ObjectTransport struct {
	store Storage
	now   func() time.Time
}

func NewObjectTransport(store Storage) *ObjectTransport {
	return &ObjectTransport{store: store, now: time.Now}
}

// Upload stores data and returns the blob handle. name is used as the base
// of the object key, the extension is derived from contentType.
func (t *ObjectTransport) Upload(ctx context.Context, name string, data []byte, contentType string) (*Blob, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	now := t.now().UTC()
	key := path.Join("photos", now.Format("2006"), now.Format("01"), name+ExtensionForMime(contentType))

	if err := t.store.Put(ctx, key, data, contentType); err != nil {
		return nil, fmt.Errorf("store %s: %w", key, err)
	}

	return &Blob{
		URL:         t.store.URL(key),
		FileID:      key,
		Path:        key,
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}
