package gallery

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rurikon/gallery-api/internal/pkg/docstore"
	"github.com/rurikon/gallery-api/internal/pkg/logger"
)

const (
	cacheKeyCategory = "category:"
	cacheKeyHomepage = "homepage"
)

// Cache is the read cache in front of public reads.
type Cache interface {
	Get(ctx context.Context, key string, dst interface{}) bool
	Set(ctx context.Context, key string, v interface{})
	InvalidateAll(ctx context.Context) error
}

// Notifier is told about every committed batch.
type Notifier interface {
	Notify(ctx context.Context, change Change)
}

type noopCache struct{}

func (noopCache) Get(context.Context, string, interface{}) bool { return false }
func (noopCache) Set(context.Context, string, interface{})       {}
func (noopCache) InvalidateAll(context.Context) error            { return nil }

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, Change) {}

// Service is the reconciliation engine. It is the only writer of the photo,
// category, homepage and trash collections. Every operation reads what it
// needs first, stages all writes on one batch and commits once.
//
// Two concurrent operations on the same photo are not serialized: the last
// commit wins.
type Service struct {
	repo     Repository
	cache    Cache
	notifier Notifier
	http     *http.Client
	now      func() time.Time
}

// NewService creates the gallery engine. cache and notifier may be nil.
func NewService(repo Repository, cache Cache, notifier Notifier) *Service {
	if cache == nil {
		cache = noopCache{}
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Service{
		repo:     repo,
		cache:    cache,
		notifier: notifier,
		http:     &http.Client{Timeout: 30 * time.Second},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// commit applies b and, on success, drops cached reads and notifies listeners.
func (s *Service) commit(ctx context.Context, b *docstore.Batch, change Change) error {
	writes := b.Len()
	if err := b.Commit(ctx); err != nil {
		logger.LogError(ctx, err, "gallery batch failed", "operation", change.Operation, "writes", writes)
		return fmt.Errorf("%w: commit %s: %w", ErrInternal, change.Operation, err)
	}

	if err := s.cache.InvalidateAll(ctx); err != nil {
		logger.LogWarn(ctx, "cache invalidation failed", "operation", change.Operation, "error", err.Error())
	}

	change.At = s.now()
	s.notifier.Notify(ctx, change)

	logger.LogInfo(ctx, "gallery batch committed",
		"operation", change.Operation,
		"writes", writes,
		"photo_ids", len(change.PhotoIDs),
		"slugs", change.Slugs,
		"actor", change.Actor,
	)
	return nil
}

// Categorize moves one photo into slug, or out of every category when slug is blank.
func (s *Service) Categorize(ctx context.Context, photoID, slug string, variant Variant, actor string) (*CategorizeResult, error) {
	photoID = strings.TrimSpace(photoID)
	slug = strings.TrimSpace(slug)
	if photoID == "" {
		return nil, fmt.Errorf("%w: id is required", ErrValidation)
	}
	if variant == "" {
		variant = VariantOriginal
	}

	photo, err := s.repo.GetPhoto(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if photo == nil {
		return nil, fmt.Errorf("%w: %s", ErrPhotoNotFound, photoID)
	}

	cats, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	set := newCategorySet(cats, s.now())

	result := &CategorizeResult{ID: photoID, Slug: slug, Variant: variant}
	if slug == "" {
		result.RemovedFrom = set.remove(photoID, "")
	} else {
		result.RemovedFrom, result.Replaced = set.assign(photo.Ref(variant), slug)
	}

	b := s.repo.Batch()
	touched := set.stage(b)
	if b.Len() == 0 {
		return result, nil
	}

	change := Change{Operation: "categorize", PhotoIDs: []string{photoID}, Slugs: touched, Actor: actor}
	if err := s.commit(ctx, b, change); err != nil {
		return nil, err
	}
	return result, nil
}

// BatchCategorize assigns several photos to one slug. Categories are read
// once; unknown ids are reported, not fatal.
func (s *Service) BatchCategorize(ctx context.Context, photoIDs []string, slug string, variant Variant, actor string) (*BatchCategorizeResult, error) {
	ids := uniqueIDs(photoIDs)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: imageIds must not be empty", ErrValidation)
	}
	slug = strings.TrimSpace(slug)
	if variant == "" {
		variant = VariantOriginal
	}

	cats, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	set := newCategorySet(cats, s.now())

	result := &BatchCategorizeResult{
		Slug:        slug,
		Variant:     variant,
		UpdatedIDs:  []string{},
		NotFoundIDs: []string{},
	}
	for _, id := range ids {
		photo, err := s.repo.GetPhoto(ctx, id)
		if err != nil {
			return nil, err
		}
		if photo == nil {
			result.NotFoundIDs = append(result.NotFoundIDs, id)
			continue
		}
		if slug == "" {
			set.remove(id, "")
		} else {
			set.assign(photo.Ref(variant), slug)
		}
		result.UpdatedIDs = append(result.UpdatedIDs, id)
	}
	result.UpdatedCount = len(result.UpdatedIDs)

	b := s.repo.Batch()
	touched := set.stage(b)
	if b.Len() == 0 {
		return result, nil
	}

	change := Change{Operation: "categorize_batch", PhotoIDs: result.UpdatedIDs, Slugs: touched, Actor: actor}
	if err := s.commit(ctx, b, change); err != nil {
		return nil, err
	}
	return result, nil
}

// RenameSlug re-keys a category. Homepage pins keep the old slug value.
func (s *Service) RenameSlug(ctx context.Context, oldSlug, newSlug, actor string) (*RenameResult, error) {
	oldSlug = strings.TrimSpace(oldSlug)
	newSlug = strings.TrimSpace(newSlug)
	if oldSlug == "" || newSlug == "" {
		return nil, fmt.Errorf("%w: oldSlug and newSlug are required", ErrValidation)
	}
	if oldSlug == newSlug {
		return nil, fmt.Errorf("%w: new slug must differ from old slug", ErrValidation)
	}

	cat, err := s.repo.GetCategory(ctx, oldSlug)
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, fmt.Errorf("%w: %s", ErrCategoryNotFound, oldSlug)
	}

	existing, err := s.repo.GetCategory(ctx, newSlug)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrSlugConflict, newSlug)
	}

	renamed := cat.clone()
	renamed.Slug = newSlug
	renamed.UpdatedAt = s.now()

	b := s.repo.Batch().
		Set(CollectionCategories, newSlug, renamed).
		Delete(CollectionCategories, oldSlug)

	change := Change{Operation: "rename", Slugs: []string{oldSlug, newSlug}, Actor: actor}
	if err := s.commit(ctx, b, change); err != nil {
		return nil, err
	}

	return &RenameResult{OldSlug: oldSlug, NewSlug: newSlug, ImageCount: len(renamed.Images)}, nil
}

// RemoveFromCategory drops one photo from one category, deleting the
// category if it becomes empty.
func (s *Service) RemoveFromCategory(ctx context.Context, slug, photoID, actor string) (*RemoveResult, error) {
	cat, idx, err := s.findRef(ctx, slug, photoID)
	if err != nil {
		return nil, err
	}

	cat.Images = append(cat.Images[:idx], cat.Images[idx+1:]...)
	cat.UpdatedAt = s.now()

	result := &RemoveResult{Slug: cat.Slug, PhotoID: photoID}
	b := s.repo.Batch()
	if len(cat.Images) == 0 {
		b.Delete(CollectionCategories, cat.Slug)
		result.CategoryDeleted = true
	} else {
		b.Update(CollectionCategories, cat.Slug, cat)
	}

	change := Change{Operation: "remove_from_category", PhotoIDs: []string{photoID}, Slugs: []string{cat.Slug}, Actor: actor}
	if err := s.commit(ctx, b, change); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdatePhotoRef patches alt and/or variant of a ref in place.
func (s *Service) UpdatePhotoRef(ctx context.Context, slug, photoID string, alt *string, variant *Variant, actor string) (*PhotoRef, error) {
	if alt == nil && variant == nil {
		return nil, fmt.Errorf("%w: nothing to update", ErrValidation)
	}

	cat, idx, err := s.findRef(ctx, slug, photoID)
	if err != nil {
		return nil, err
	}

	ref := &cat.Images[idx]
	if alt != nil {
		ref.Alt = *alt
	}
	if variant != nil {
		ref.Variant = *variant
	}
	cat.UpdatedAt = s.now()

	b := s.repo.Batch().Update(CollectionCategories, cat.Slug, cat)
	change := Change{Operation: "update_ref", PhotoIDs: []string{photoID}, Slugs: []string{cat.Slug}, Actor: actor}
	if err := s.commit(ctx, b, change); err != nil {
		return nil, err
	}

	updated := *ref
	return &updated, nil
}

// ReorderCategory rewrites the image order. photoIDs must be a permutation
// of the current ids.
func (s *Service) ReorderCategory(ctx context.Context, slug string, photoIDs []string, actor string) (*Category, error) {
	slug = strings.TrimSpace(slug)
	cat, err := s.repo.GetCategory(ctx, slug)
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, fmt.Errorf("%w: %s", ErrCategoryNotFound, slug)
	}

	if !isPermutation(photoIDs, refIDs(cat.Images)) {
		return nil, fmt.Errorf("%w: photoIds must list every photo of %s exactly once", ErrValidation, slug)
	}

	byID := make(map[string]PhotoRef, len(cat.Images))
	for _, ref := range cat.Images {
		byID[ref.ID] = ref
	}
	reordered := make([]PhotoRef, 0, len(photoIDs))
	for _, id := range photoIDs {
		reordered = append(reordered, byID[id])
	}
	cat.Images = reordered
	cat.UpdatedAt = s.now()

	b := s.repo.Batch().Update(CollectionCategories, slug, cat)
	change := Change{Operation: "reorder_category", Slugs: []string{slug}, Actor: actor}
	if err := s.commit(ctx, b, change); err != nil {
		return nil, err
	}
	return cat, nil
}

// ListCategories returns all categories, most recently updated first.
func (s *Service) ListCategories(ctx context.Context) (*CategoryList, error) {
	cats, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(cats, func(i, j int) bool {
		if !cats[i].UpdatedAt.Equal(cats[j].UpdatedAt) {
			return cats[i].UpdatedAt.After(cats[j].UpdatedAt)
		}
		return cats[i].Slug < cats[j].Slug
	})
	return &CategoryList{Categories: cats}, nil
}

// GetCategory is the public gallery read.
func (s *Service) GetCategory(ctx context.Context, slug string) (*Category, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, fmt.Errorf("%w: slug is required", ErrValidation)
	}

	var cached Category
	if s.cache.Get(ctx, cacheKeyCategory+slug, &cached) {
		return &cached, nil
	}

	cat, err := s.repo.GetCategory(ctx, slug)
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, fmt.Errorf("%w: %s", ErrCategoryNotFound, slug)
	}

	s.cache.Set(ctx, cacheKeyCategory+slug, cat)
	return cat, nil
}

// ListImages returns every photo, newest first, with its current category
// and pin state.
func (s *Service) ListImages(ctx context.Context) ([]*ImageListing, error) {
	photos, err := s.repo.ListPhotos(ctx)
	if err != nil {
		return nil, err
	}
	cats, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	home, err := s.repo.GetHomepage(ctx)
	if err != nil {
		return nil, err
	}

	set := newCategorySet(cats, s.now())
	pinned := make(map[string]bool, len(home.SelectedPhotos))
	for _, p := range home.SelectedPhotos {
		pinned[p.PhotoID] = true
	}

	sort.SliceStable(photos, func(i, j int) bool {
		return photos[i].UploadedAt.After(photos[j].UploadedAt)
	})

	out := make([]*ImageListing, 0, len(photos))
	for _, p := range photos {
		item := &ImageListing{Photo: p, Pinned: pinned[p.ID]}
		if slug, ref := set.refOf(p.ID); ref != nil {
			item.Category = slug
			item.Variant = ref.Variant
		}
		out = append(out, item)
	}
	return out, nil
}

// AddPhoto registers a freshly uploaded photo.
func (s *Service) AddPhoto(ctx context.Context, photo *Photo) error {
	if photo == nil || strings.TrimSpace(photo.ID) == "" || photo.URL == "" {
		return fmt.Errorf("%w: photo id and url are required", ErrValidation)
	}

	existing, err := s.repo.GetPhoto(ctx, photo.ID)
	if err != nil {
		return err
	}
	trashed, err := s.repo.GetDeleted(ctx, photo.ID)
	if err != nil {
		return err
	}
	if existing != nil || trashed != nil {
		return fmt.Errorf("%w: %s", ErrPhotoExists, photo.ID)
	}

	if photo.UploadedAt.IsZero() {
		photo.UploadedAt = s.now()
	}

	b := s.repo.Batch().Set(CollectionPhotos, photo.ID, photo)
	change := Change{Operation: "upload", PhotoIDs: []string{photo.ID}, Actor: photo.UploadedBy}
	return s.commit(ctx, b, change)
}

func (s *Service) findRef(ctx context.Context, slug, photoID string) (*Category, int, error) {
	slug = strings.TrimSpace(slug)
	photoID = strings.TrimSpace(photoID)
	if slug == "" || photoID == "" {
		return nil, 0, fmt.Errorf("%w: slug and photoId are required", ErrValidation)
	}

	cat, err := s.repo.GetCategory(ctx, slug)
	if err != nil {
		return nil, 0, err
	}
	if cat == nil {
		return nil, 0, fmt.Errorf("%w: %s", ErrCategoryNotFound, slug)
	}

	idx := cat.indexOf(photoID)
	if idx < 0 {
		return nil, 0, fmt.Errorf("%w: %s is not in %s", ErrPhotoNotFound, photoID, slug)
	}
	return cat, idx, nil
}

// uniqueIDs trims, drops blanks and de-duplicates, keeping first occurrence order.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func refIDs(refs []PhotoRef) []string {
	ids := make([]string, len(refs))
	for i, r := range refs {
		ids[i] = r.ID
	}
	return ids
}

func isPermutation(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	counts := make(map[string]int, len(want))
	for _, id := range want {
		counts[id]++
	}
	for _, id := range got {
		counts[id]--
		if counts[id] < 0 {
			return false
		}
	}
	return true
}
