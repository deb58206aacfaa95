package gallery

import (
	"sort"
	"time"

	"github.com/rurikon/gallery-api/internal/pkg/docstore"
)

// categorySet is an in-memory working copy of every category, loaded once
// per operation. Membership is found by scanning all categories; there is
// no photo to slug index.
type categorySet struct {
	bySlug  map[string]*Category
	existed map[string]bool
	dirty   map[string]bool
	now     time.Time
}

func newCategorySet(cats []*Category, now time.Time) *categorySet {
	s := &categorySet{
		bySlug:  make(map[string]*Category, len(cats)),
		existed: make(map[string]bool, len(cats)),
		dirty:   make(map[string]bool),
		now:     now,
	}
	for _, c := range cats {
		s.bySlug[c.Slug] = c.clone()
		s.existed[c.Slug] = true
	}
	return s
}

func (s *categorySet) slugs() []string {
	out := make([]string, 0, len(s.bySlug))
	for slug := range s.bySlug {
		out = append(out, slug)
	}
	sort.Strings(out)
	return out
}

func (s *categorySet) get(slug string) *Category {
	return s.bySlug[slug]
}

// containing returns, in slug order, every category holding photoID.
func (s *categorySet) containing(photoID string) []string {
	var out []string
	for _, slug := range s.slugs() {
		if s.bySlug[slug].indexOf(photoID) >= 0 {
			out = append(out, slug)
		}
	}
	return out
}

// refOf returns the first ref of photoID, in slug order.
func (s *categorySet) refOf(photoID string) (string, *PhotoRef) {
	for _, slug := range s.slugs() {
		c := s.bySlug[slug]
		if i := c.indexOf(photoID); i >= 0 {
			return slug, &c.Images[i]
		}
	}
	return "", nil
}

// remove takes photoID out of every category except keep and returns the
// slugs it was removed from.
func (s *categorySet) remove(photoID, keep string) []string {
	removed := []string{}
	for _, slug := range s.slugs() {
		if slug == keep {
			continue
		}
		c := s.bySlug[slug]
		kept := c.Images[:0]
		for _, ref := range c.Images {
			if ref.ID != photoID {
				kept = append(kept, ref)
			}
		}
		if len(kept) == len(c.Images) {
			continue
		}
		c.Images = kept
		s.touch(slug)
		removed = append(removed, slug)
	}
	return removed
}

// assign moves ref into slug and out of every other category. A ref already
// in slug is replaced in place, keeping its position.
func (s *categorySet) assign(ref PhotoRef, slug string) (removedFrom []string, replaced bool) {
	removedFrom = s.remove(ref.ID, slug)

	c := s.bySlug[slug]
	if c != nil {
		if i := c.indexOf(ref.ID); i >= 0 {
			c.Images[i] = ref
			s.touch(slug)
			return removedFrom, true
		}
	}
	s.add(slug, ref)
	return removedFrom, false
}

// insert appends ref to slug unless the category already holds the photo.
// It reports whether anything was added.
func (s *categorySet) insert(slug string, ref PhotoRef) bool {
	if c := s.bySlug[slug]; c != nil && c.indexOf(ref.ID) >= 0 {
		return false
	}
	s.add(slug, ref)
	return true
}

func (s *categorySet) add(slug string, ref PhotoRef) {
	c := s.bySlug[slug]
	if c == nil {
		c = &Category{Slug: slug, CreatedAt: s.now}
		s.bySlug[slug] = c
	}
	c.Images = append(c.Images, ref)
	s.touch(slug)
}

func (s *categorySet) touch(slug string) {
	s.dirty[slug] = true
	if c := s.bySlug[slug]; c != nil {
		c.UpdatedAt = s.now
	}
}

// stage writes every changed category to b. Emptied categories are deleted,
// categories that existed are updated, new ones are created. It returns the
// slugs written.
func (s *categorySet) stage(b *docstore.Batch) []string {
	touched := make([]string, 0, len(s.dirty))
	for slug := range s.dirty {
		touched = append(touched, slug)
	}
	sort.Strings(touched)

	for _, slug := range touched {
		c := s.bySlug[slug]
		switch {
		case c == nil || len(c.Images) == 0:
			if s.existed[slug] {
				b.Delete(CollectionCategories, slug)
			}
			delete(s.bySlug, slug)
		case s.existed[slug]:
			b.Update(CollectionCategories, slug, c)
		default:
			b.Set(CollectionCategories, slug, c)
		}
	}
	return touched
}
