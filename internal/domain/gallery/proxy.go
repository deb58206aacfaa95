package gallery

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// ImageStream is an upstream image body being relayed to a client.
// The caller must close Body.
type ImageStream struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// ResolveImage returns the ref at position (0-based) in the category list.
func (s *Service) ResolveImage(ctx context.Context, slug string, position int) (*PhotoRef, error) {
	if position < 0 {
		return nil, fmt.Errorf("%w: position must not be negative", ErrValidation)
	}
	cat, err := s.GetCategory(ctx, slug)
	if err != nil {
		return nil, err
	}
	if position >= len(cat.Images) {
		return nil, fmt.Errorf("%w: %s has no image at %d", ErrPhotoNotFound, slug, position)
	}
	ref := cat.Images[position]
	return &ref, nil
}

// FetchImage resolves the ref and opens its upstream URL.
func (s *Service) FetchImage(ctx context.Context, slug string, position int) (*ImageStream, error) {
	ref, err := s.ResolveImage(ctx, slug, position)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: bad image url for %s: %w", ErrTransport, ref.ID, err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %w", ErrTransport, ref.ID, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: fetch %s: upstream status %d", ErrTransport, ref.ID, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return &ImageStream{Body: resp.Body, ContentType: contentType, ContentLength: resp.ContentLength}, nil
}
