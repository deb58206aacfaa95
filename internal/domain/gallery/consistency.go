package gallery

import (
	"context"
	"sort"
	"time"
)

// Placement is a photo found in more than one category.
type Placement struct {
	PhotoID string   `json:"photoId"`
	Slugs   []string `json:"slugs"`
}

// RefLocation points at one ref inside a category.
type RefLocation struct {
	Slug    string `json:"slug"`
	PhotoID string `json:"photoId"`
}

// Report is the result of a full scan of the four collections.
type Report struct {
	MultiCategoryPhotos []Placement   `json:"multiCategoryPhotos"`
	EmptyCategories     []string      `json:"emptyCategories"`
	DanglingPins        []string      `json:"danglingPins"`
	UncategorizedPins   []string      `json:"uncategorizedPins"`
	PinOrderDense       bool          `json:"pinOrderDense"`
	MissingPhotos       []RefLocation `json:"missingPhotos"`
	ShadowedTrash       []string      `json:"shadowedTrash"`
	Healthy             bool          `json:"healthy"`
	CheckedAt           time.Time     `json:"checkedAt"`
}

type RepairResult struct {
	Found  *Report `json:"found"`
	Writes int     `json:"writes"`
}

type snapshot struct {
	photos map[string]bool
	cats   []*Category
	home   *HomepageSelection
	trash  []*DeletedPhoto
}

func (s *Service) loadSnapshot(ctx context.Context) (*snapshot, error) {
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
	trash, err := s.repo.ListDeleted(ctx)
	if err != nil {
		return nil, err
	}

	snap := &snapshot{photos: make(map[string]bool, len(photos)), cats: cats, home: home, trash: trash}
	for _, p := range photos {
		snap.photos[p.ID] = true
	}
	return snap, nil
}

func (snap *snapshot) report(now time.Time) *Report {
	r := &Report{
		MultiCategoryPhotos: []Placement{},
		EmptyCategories:     []string{},
		DanglingPins:        []string{},
		UncategorizedPins:   []string{},
		MissingPhotos:       []RefLocation{},
		ShadowedTrash:       []string{},
		PinOrderDense:       pinsDense(snap.home.SelectedPhotos),
		CheckedAt:           now,
	}

	placements := make(map[string][]string)
	var order []string
	for _, c := range snap.cats {
		if len(c.Images) == 0 {
			r.EmptyCategories = append(r.EmptyCategories, c.Slug)
		}
		for _, ref := range c.Images {
			if _, ok := placements[ref.ID]; !ok {
				order = append(order, ref.ID)
			}
			placements[ref.ID] = appendUnique(placements[ref.ID], c.Slug)
			if !snap.photos[ref.ID] {
				r.MissingPhotos = append(r.MissingPhotos, RefLocation{Slug: c.Slug, PhotoID: ref.ID})
			}
		}
	}
	for _, id := range order {
		if slugs := placements[id]; len(slugs) > 1 {
			sort.Strings(slugs)
			r.MultiCategoryPhotos = append(r.MultiCategoryPhotos, Placement{PhotoID: id, Slugs: slugs})
		}
	}

	for _, p := range snap.home.SelectedPhotos {
		switch {
		case !snap.photos[p.PhotoID]:
			r.DanglingPins = append(r.DanglingPins, p.PhotoID)
		case len(placements[p.PhotoID]) == 0:
			r.UncategorizedPins = append(r.UncategorizedPins, p.PhotoID)
		}
	}

	for _, d := range snap.trash {
		if snap.photos[d.ID] {
			r.ShadowedTrash = append(r.ShadowedTrash, d.ID)
		}
	}

	r.Healthy = len(r.MultiCategoryPhotos) == 0 &&
		len(r.EmptyCategories) == 0 &&
		len(r.DanglingPins) == 0 &&
		len(r.MissingPhotos) == 0 &&
		len(r.ShadowedTrash) == 0 &&
		r.PinOrderDense
	return r
}

// Check scans every collection and reports invariant violations. Pins of
// live but uncategorized photos are listed and do not make the report unhealthy.
func (s *Service) Check(ctx context.Context) (*Report, error) {
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.report(s.now()), nil
}

// Repair fixes what Check finds in one commit. A photo in several
// categories stays in the first by slug order. Refs to missing photos are
// reported only.
func (s *Service) Repair(ctx context.Context, actor string) (*RepairResult, error) {
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	found := snap.report(now)
	result := &RepairResult{Found: found}

	set := newCategorySet(snap.cats, now)
	for _, p := range found.MultiCategoryPhotos {
		set.remove(p.PhotoID, p.Slugs[0])
	}
	for _, slug := range found.EmptyCategories {
		set.touch(slug)
	}

	b := s.repo.Batch()
	touched := set.stage(b)

	if len(found.DanglingPins) > 0 || !found.PinOrderDense {
		dangling := make(map[string]bool, len(found.DanglingPins))
		for _, id := range found.DanglingPins {
			dangling[id] = true
		}
		kept := make([]HomepagePin, 0, len(snap.home.SelectedPhotos))
		for _, p := range snap.home.SelectedPhotos {
			if !dangling[p.PhotoID] {
				kept = append(kept, p)
			}
		}
		b.Set(CollectionSettings, HomepageDocID, &HomepageSelection{
			SelectedPhotos: normalizePins(kept),
			UpdatedAt:      &now,
		})
	}

	for _, id := range found.ShadowedTrash {
		b.Delete(CollectionTrash, id)
	}

	result.Writes = b.Len()
	if result.Writes == 0 {
		return result, nil
	}

	change := Change{Operation: "repair", Slugs: touched, Actor: actor}
	if err := s.commit(ctx, b, change); err != nil {
		return nil, err
	}
	return result, nil
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
