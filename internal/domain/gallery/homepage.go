package gallery

import (
	"context"
	"fmt"
	"strings"
)

// GetHomepage returns the pin list. It is public and cached.
func (s *Service) GetHomepage(ctx context.Context) (*HomepageSelection, error) {
	var cached HomepageSelection
	if s.cache.Get(ctx, cacheKeyHomepage, &cached) {
		if cached.SelectedPhotos == nil {
			cached.SelectedPhotos = []HomepagePin{}
		}
		return &cached, nil
	}

	home, err := s.repo.GetHomepage(ctx)
	if err != nil {
		return nil, err
	}
	home.SelectedPhotos = normalizePins(home.SelectedPhotos)

	s.cache.Set(ctx, cacheKeyHomepage, home)
	return home, nil
}

// SetHomepage replaces the whole pin list. Duplicate photo ids keep their
// first entry; order is re-indexed.
func (s *Service) SetHomepage(ctx context.Context, pins []HomepagePin, actor string) (*HomepageSelection, error) {
	seen := make(map[string]bool, len(pins))
	cleaned := make([]HomepagePin, 0, len(pins))
	for _, p := range pins {
		p.PhotoID = strings.TrimSpace(p.PhotoID)
		if p.PhotoID == "" {
			return nil, fmt.Errorf("%w: photoId is required for every pin", ErrValidation)
		}
		if seen[p.PhotoID] {
			continue
		}
		seen[p.PhotoID] = true
		cleaned = append(cleaned, p)
	}

	return s.writeHomepage(ctx, normalizePins(cleaned), "homepage_set", nil, actor)
}

// Pin appends photoID to the end of the pin list. The pin's slug is the
// category the photo currently sits in.
func (s *Service) Pin(ctx context.Context, photoID, actor string) (*HomepageSelection, error) {
	photoID = strings.TrimSpace(photoID)
	if photoID == "" {
		return nil, fmt.Errorf("%w: photoId is required", ErrValidation)
	}

	photo, err := s.repo.GetPhoto(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if photo == nil {
		return nil, fmt.Errorf("%w: %s", ErrPhotoNotFound, photoID)
	}

	home, err := s.repo.GetHomepage(ctx)
	if err != nil {
		return nil, err
	}
	if home.indexOf(photoID) >= 0 {
		home.SelectedPhotos = normalizePins(home.SelectedPhotos)
		return home, nil
	}

	cats, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	slug, _ := newCategorySet(cats, s.now()).refOf(photoID)

	pins := normalizePins(home.SelectedPhotos)
	pins = append(pins, HomepagePin{PhotoID: photoID, Slug: slug, Order: len(pins)})
	return s.writeHomepage(ctx, pins, "homepage_pin", []string{photoID}, actor)
}

// Unpin removes photoID from the pin list and closes the gap.
func (s *Service) Unpin(ctx context.Context, photoID, actor string) (*HomepageSelection, error) {
	photoID = strings.TrimSpace(photoID)
	home, err := s.repo.GetHomepage(ctx)
	if err != nil {
		return nil, err
	}
	idx := home.indexOf(photoID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrPinNotFound, photoID)
	}

	pins := append(home.SelectedPhotos[:idx:idx], home.SelectedPhotos[idx+1:]...)
	return s.writeHomepage(ctx, normalizePins(pins), "homepage_unpin", []string{photoID}, actor)
}

// ReorderPins sets the pin order. photoIDs must be a permutation of the
// pinned ids.
func (s *Service) ReorderPins(ctx context.Context, photoIDs []string, actor string) (*HomepageSelection, error) {
	home, err := s.repo.GetHomepage(ctx)
	if err != nil {
		return nil, err
	}

	current := make([]string, len(home.SelectedPhotos))
	byID := make(map[string]HomepagePin, len(home.SelectedPhotos))
	for i, p := range home.SelectedPhotos {
		current[i] = p.PhotoID
		byID[p.PhotoID] = p
	}
	if !isPermutation(photoIDs, current) {
		return nil, fmt.Errorf("%w: photoIds must list every pinned photo exactly once", ErrValidation)
	}

	pins := make([]HomepagePin, 0, len(photoIDs))
	for i, id := range photoIDs {
		p := byID[id]
		p.Order = i
		pins = append(pins, p)
	}
	return s.writeHomepage(ctx, pins, "homepage_reorder", nil, actor)
}

func (s *Service) writeHomepage(ctx context.Context, pins []HomepagePin, op string, photoIDs []string, actor string) (*HomepageSelection, error) {
	now := s.now()
	home := &HomepageSelection{SelectedPhotos: pins, UpdatedAt: &now}

	b := s.repo.Batch().Set(CollectionSettings, HomepageDocID, home)
	change := Change{Operation: op, PhotoIDs: photoIDs, Actor: actor}
	if err := s.commit(ctx, b, change); err != nil {
		return nil, err
	}
	return home, nil
}
