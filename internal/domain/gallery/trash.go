package gallery

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// SoftDelete moves photos to the trash. Each found photo leaves every
// category and the pin list, gets a trash record and loses its canonical
// record, all in one commit. When none of the ids exist the result is still
// returned, together with ErrPhotoNotFound.
func (s *Service) SoftDelete(ctx context.Context, photoIDs []string, actor string) (*SoftDeleteResult, error) {
	ids := uniqueIDs(photoIDs)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: photoIds must not be empty", ErrValidation)
	}

	cats, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	home, err := s.repo.GetHomepage(ctx)
	if err != nil {
		return nil, err
	}

	photos := make(map[string]*Photo, len(ids))
	for _, id := range ids {
		p, err := s.repo.GetPhoto(ctx, id)
		if err != nil {
			return nil, err
		}
		if p != nil {
			photos[id] = p
		}
	}

	now := s.now()
	set := newCategorySet(cats, now)
	pins := home.SelectedPhotos
	pinsChanged := false

	result := &SoftDeleteResult{
		DeletedPhotos: []DeletedSummary{},
		NotFoundIDs:   []string{},
	}
	b := s.repo.Batch()

	for _, id := range ids {
		photo, ok := photos[id]
		if !ok {
			result.NotFoundIDs = append(result.NotFoundIDs, id)
			continue
		}

		variant := VariantOriginal
		if _, ref := set.refOf(id); ref != nil && ref.Variant != "" {
			variant = ref.Variant
		}
		removedFrom := set.remove(id, "")

		wasPinned := false
		kept := pins[:0:0]
		for _, pin := range pins {
			if pin.PhotoID == id {
				wasPinned = true
				continue
			}
			kept = append(kept, pin)
		}
		if wasPinned {
			pins = kept
			pinsChanged = true
		}

		b.Set(CollectionTrash, id, newDeletedPhoto(photo, variant, removedFrom, wasPinned, now, actor))
		b.Delete(CollectionPhotos, id)

		result.DeletedPhotos = append(result.DeletedPhotos, DeletedSummary{
			ID:         id,
			Categories: removedFrom,
			WasPinned:  wasPinned,
		})
	}
	result.DeletedCount = len(result.DeletedPhotos)

	if result.DeletedCount == 0 {
		return result, fmt.Errorf("%w: none of the requested photos exist", ErrPhotoNotFound)
	}

	touched := set.stage(b)
	if pinsChanged {
		b.Set(CollectionSettings, HomepageDocID, &HomepageSelection{
			SelectedPhotos: normalizePins(pins),
			UpdatedAt:      &now,
		})
	}

	change := Change{Operation: "soft_delete", PhotoIDs: deletedIDs(result.DeletedPhotos), Slugs: touched, Actor: actor}
	if err := s.commit(ctx, b, change); err != nil {
		return nil, err
	}
	return result, nil
}

// Restore moves photos back out of the trash. Categories and pin are
// restored according to opts. A restored pin goes to the end of the list.
func (s *Service) Restore(ctx context.Context, photoIDs []string, opts RestoreOptions, actor string) (*RestoreResult, error) {
	ids := uniqueIDs(photoIDs)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: photoIds must not be empty", ErrValidation)
	}

	trashed := make(map[string]*DeletedPhoto, len(ids))
	for _, id := range ids {
		d, err := s.repo.GetDeleted(ctx, id)
		if err != nil {
			return nil, err
		}
		if d != nil {
			trashed[id] = d
		}
	}

	var (
		set  *categorySet
		home *HomepageSelection
	)
	if opts.Categories {
		cats, err := s.repo.ListCategories(ctx)
		if err != nil {
			return nil, err
		}
		set = newCategorySet(cats, s.now())
	}
	if opts.Pin {
		h, err := s.repo.GetHomepage(ctx)
		if err != nil {
			return nil, err
		}
		home = h
	}

	now := s.now()
	pinsChanged := false
	result := &RestoreResult{
		RestoredPhotos: []RestoredSummary{},
		NotFoundIDs:    []string{},
	}
	b := s.repo.Batch()

	for _, id := range ids {
		d, ok := trashed[id]
		if !ok {
			result.NotFoundIDs = append(result.NotFoundIDs, id)
			continue
		}

		photo := d.Photo()
		restoredAt := now
		photo.RestoredAt = &restoredAt
		photo.RestoredBy = actor
		b.Set(CollectionPhotos, id, photo)

		summary := RestoredSummary{ID: id, RestoredToCategories: []string{}}
		if set != nil {
			ref := photo.Ref(VariantOriginal)
			for _, slug := range d.OriginalCategories {
				if set.insert(slug, ref) {
					summary.RestoredToCategories = append(summary.RestoredToCategories, slug)
				}
			}
		}
		if home != nil && d.WasPinned && home.indexOf(id) < 0 {
			pin := HomepagePin{PhotoID: id, Order: restoredPinOrder}
			if len(d.OriginalCategories) > 0 {
				pin.Slug = d.OriginalCategories[0]
			}
			home.SelectedPhotos = append(home.SelectedPhotos, pin)
			summary.RestoredToPin = true
			pinsChanged = true
		}

		b.Delete(CollectionTrash, id)
		result.RestoredPhotos = append(result.RestoredPhotos, summary)
	}
	result.RestoredCount = len(result.RestoredPhotos)

	if result.RestoredCount == 0 {
		return result, fmt.Errorf("%w: none of the requested photos are in the trash", ErrTrashEntryNotFound)
	}

	var touched []string
	if set != nil {
		touched = set.stage(b)
	}
	if pinsChanged {
		b.Set(CollectionSettings, HomepageDocID, &HomepageSelection{
			SelectedPhotos: normalizePins(home.SelectedPhotos),
			UpdatedAt:      &now,
		})
	}

	restored := make([]string, 0, result.RestoredCount)
	for _, r := range result.RestoredPhotos {
		restored = append(restored, r.ID)
	}
	change := Change{Operation: "restore", PhotoIDs: restored, Slugs: touched, Actor: actor}
	if err := s.commit(ctx, b, change); err != nil {
		return nil, err
	}
	return result, nil
}

// PermanentDelete erases trash records. Nothing else is touched.
func (s *Service) PermanentDelete(ctx context.Context, photoIDs []string, actor string) (*PermanentDeleteResult, error) {
	ids := uniqueIDs(photoIDs)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: photoIds must not be empty", ErrValidation)
	}

	result := &PermanentDeleteResult{
		DeletedIDs:  []string{},
		NotFoundIDs: []string{},
	}
	b := s.repo.Batch()
	for _, id := range ids {
		d, err := s.repo.GetDeleted(ctx, id)
		if err != nil {
			return nil, err
		}
		if d == nil {
			result.NotFoundIDs = append(result.NotFoundIDs, id)
			continue
		}
		b.Delete(CollectionTrash, id)
		result.DeletedIDs = append(result.DeletedIDs, id)
	}
	result.DeletedCount = len(result.DeletedIDs)

	if result.DeletedCount == 0 {
		return result, fmt.Errorf("%w: none of the requested photos are in the trash", ErrTrashEntryNotFound)
	}

	change := Change{Operation: "permanent_delete", PhotoIDs: result.DeletedIDs, Actor: actor}
	if err := s.commit(ctx, b, change); err != nil {
		return nil, err
	}
	return result, nil
}

// ListDeleted returns the trash, most recently deleted first.
func (s *Service) ListDeleted(ctx context.Context) (*TrashListing, error) {
	items, err := s.repo.ListDeleted(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].DeletedAt.After(items[j].DeletedAt)
	})
	return &TrashListing{Photos: items, Count: len(items)}, nil
}

// PurgeTrashOlderThan permanently deletes trash entries deleted more than
// age ago. An empty trash is not an error.
func (s *Service) PurgeTrashOlderThan(ctx context.Context, age time.Duration, actor string) (*PermanentDeleteResult, error) {
	if age <= 0 {
		return nil, fmt.Errorf("%w: age must be positive", ErrValidation)
	}

	items, err := s.repo.ListDeleted(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := s.now().Add(-age)
	var expired []string
	for _, d := range items {
		if d.DeletedAt.Before(cutoff) {
			expired = append(expired, d.ID)
		}
	}
	if len(expired) == 0 {
		return &PermanentDeleteResult{DeletedIDs: []string{}, NotFoundIDs: []string{}}, nil
	}
	return s.PermanentDelete(ctx, expired, actor)
}

func deletedIDs(items []DeletedSummary) []string {
	out := make([]string, 0, len(items))
	for _, d := range items {
		out = append(out, d.ID)
	}
	return out
}
