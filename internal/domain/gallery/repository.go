package gallery

import (
	"context"
	"errors"
	"fmt"

	"github.com/rurikon/gallery-api/internal/pkg/docstore"
)

// Repository is typed read access to the gallery collections. Writes are
// staged on a Batch so that one operation commits atomically.
// Lookups of a missing document return nil, nil.
type Repository interface {
	GetPhoto(ctx context.Context, id string) (*Photo, error)
	ListPhotos(ctx context.Context) ([]*Photo, error)
	GetCategory(ctx context.Context, slug string) (*Category, error)
	ListCategories(ctx context.Context) ([]*Category, error)
	GetHomepage(ctx context.Context) (*HomepageSelection, error)
	GetDeleted(ctx context.Context, id string) (*DeletedPhoto, error)
	ListDeleted(ctx context.Context) ([]*DeletedPhoto, error)
	Batch() *docstore.Batch
}

type repository struct {
	store docstore.Store
}

func NewRepository(store docstore.Store) Repository {
	return &repository{store: store}
}

func (r *repository) Batch() *docstore.Batch {
	return r.store.Batch()
}

func (r *repository) GetPhoto(ctx context.Context, id string) (*Photo, error) {
	var p Photo
	ok, err := r.get(ctx, CollectionPhotos, id, &p)
	if !ok || err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) ListPhotos(ctx context.Context) ([]*Photo, error) {
	docs, err := r.list(ctx, CollectionPhotos)
	if err != nil {
		return nil, err
	}
	photos := make([]*Photo, 0, len(docs))
	for i := range docs {
		var p Photo
		if err := docs[i].Decode(&p); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInternal, err)
		}
		p.ID = docs[i].ID
		photos = append(photos, &p)
	}
	return photos, nil
}

func (r *repository) GetCategory(ctx context.Context, slug string) (*Category, error) {
	var c Category
	ok, err := r.get(ctx, CollectionCategories, slug, &c)
	if !ok || err != nil {
		return nil, err
	}
	c.Slug = slug
	return &c, nil
}

// ListCategories returns all categories ordered by slug.
func (r *repository) ListCategories(ctx context.Context) ([]*Category, error) {
	docs, err := r.list(ctx, CollectionCategories)
	if err != nil {
		return nil, err
	}
	cats := make([]*Category, 0, len(docs))
	for i := range docs {
		var c Category
		if err := docs[i].Decode(&c); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInternal, err)
		}
		c.Slug = docs[i].ID
		cats = append(cats, &c)
	}
	return cats, nil
}

// GetHomepage returns an empty selection when the document was never written.
func (r *repository) GetHomepage(ctx context.Context) (*HomepageSelection, error) {
	var h HomepageSelection
	ok, err := r.get(ctx, CollectionSettings, HomepageDocID, &h)
	if err != nil {
		return nil, err
	}
	if !ok || h.SelectedPhotos == nil {
		h.SelectedPhotos = []HomepagePin{}
	}
	return &h, nil
}

func (r *repository) GetDeleted(ctx context.Context, id string) (*DeletedPhoto, error) {
	var d DeletedPhoto
	ok, err := r.get(ctx, CollectionTrash, id, &d)
	if !ok || err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repository) ListDeleted(ctx context.Context) ([]*DeletedPhoto, error) {
	docs, err := r.list(ctx, CollectionTrash)
	if err != nil {
		return nil, err
	}
	out := make([]*DeletedPhoto, 0, len(docs))
	for i := range docs {
		var d DeletedPhoto
		if err := docs[i].Decode(&d); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInternal, err)
		}
		d.ID = docs[i].ID
		out = append(out, &d)
	}
	return out, nil
}

func (r *repository) get(ctx context.Context, collection, id string, dst interface{}) (bool, error) {
	doc, err := r.store.Get(ctx, collection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %w", ErrInternal, err)
	}
	if err := doc.Decode(dst); err != nil {
		return false, fmt.Errorf("%w: %w", ErrInternal, err)
	}
	return true, nil
}

func (r *repository) list(ctx context.Context, collection string) ([]docstore.Document, error) {
	docs, err := r.store.List(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}
	return docs, nil
}
