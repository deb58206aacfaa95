package gallery

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Document collections
const (
	CollectionPhotos     = "tg-as-image-storage"
	CollectionCategories = "telegram-categories"
	CollectionSettings   = "settings"
	CollectionTrash      = "deleted-photos"

	HomepageDocID = "homepage-photos"
)

// Restored pins are appended with this order and then re-indexed, so they land last.
const restoredPinOrder = 999

// Variant is how a photo is framed inside a gallery.
type Variant string

const (
	VariantOriginal Variant = "original" // contain-fit
	VariantSquare   Variant = "square"   // cropped 1:1
)

// ParseVariant maps "" to the original variant and rejects unknown values.
func ParseVariant(s string) (Variant, error) {
	switch v := Variant(strings.TrimSpace(s)); v {
	case "":
		return VariantOriginal, nil
	case VariantOriginal, VariantSquare:
		return v, nil
	default:
		return "", fmt.Errorf("%w: unknown variant %q", ErrValidation, s)
	}
}

// Photo is the canonical record of an uploaded image. Its ID is never reused.
type Photo struct {
	ID               string     `json:"id"`
	URL              string     `json:"url"`
	FileID           string     `json:"file_id,omitempty"`
	FileName         string     `json:"file_name"`
	FileSize         int64      `json:"file_size"`
	FileType         string     `json:"file_type,omitempty"`
	TelegramFilePath string     `json:"telegram_file_path,omitempty"`
	Width            int        `json:"width,omitempty"`
	Height           int        `json:"height,omitempty"`
	Alt              string     `json:"alt,omitempty"`
	UploadedBy       string     `json:"uploaded_by,omitempty"`
	UploadedAt       time.Time  `json:"uploaded_at"`
	RestoredAt       *time.Time `json:"restored_at,omitempty"`
	RestoredBy       string     `json:"restored_by,omitempty"`
}

// Ref snapshots the photo for a category list. Later edits to the photo
// do not reach existing refs.
func (p *Photo) Ref(v Variant) PhotoRef {
	return PhotoRef{
		ID:         p.ID,
		URL:        p.URL,
		FileName:   p.FileName,
		Alt:        p.Alt,
		Variant:    v,
		UploadedAt: p.UploadedAt,
	}
}

type PhotoRef struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	FileName   string    `json:"file_name,omitempty"`
	Alt        string    `json:"alt"`
	Variant    Variant   `json:"variant"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Category is a named gallery. A stored category always has at least one image.
type Category struct {
	Slug      string     `json:"slug"`
	Images    []PhotoRef `json:"images"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (c *Category) indexOf(photoID string) int {
	for i := range c.Images {
		if c.Images[i].ID == photoID {
			return i
		}
	}
	return -1
}

func (c *Category) clone() *Category {
	cp := *c
	cp.Images = append([]PhotoRef(nil), c.Images...)
	return &cp
}

type HomepagePin struct {
	PhotoID string `json:"photoId" validate:"required"`
	Slug    string `json:"slug,omitempty"`
	Order   int    `json:"order"`
}

// HomepageSelection is the single pin list document.
type HomepageSelection struct {
	SelectedPhotos []HomepagePin `json:"selectedPhotos"`
	UpdatedAt      *time.Time    `json:"updatedAt,omitempty"`
}

func (h *HomepageSelection) indexOf(photoID string) int {
	for i := range h.SelectedPhotos {
		if h.SelectedPhotos[i].PhotoID == photoID {
			return i
		}
	}
	return -1
}

// normalizePins sorts by order (ties keep list position) and rewrites
// order to 0..n-1.
func normalizePins(pins []HomepagePin) []HomepagePin {
	out := append([]HomepagePin(nil), pins...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	for i := range out {
		out[i].Order = i
	}
	if out == nil {
		out = []HomepagePin{}
	}
	return out
}

func pinsDense(pins []HomepagePin) bool {
	seen := make([]bool, len(pins))
	for _, p := range pins {
		if p.Order < 0 || p.Order >= len(pins) || seen[p.Order] {
			return false
		}
		seen[p.Order] = true
	}
	return true
}

// DeletedPhoto is a trashed photo plus what is needed to put it back.
type DeletedPhoto struct {
	ID                 string    `json:"id"`
	URL                string    `json:"url"`
	FileID             string    `json:"file_id,omitempty"`
	FileName           string    `json:"file_name"`
	FileSize           int64     `json:"file_size"`
	FileType           string    `json:"file_type,omitempty"`
	TelegramFilePath   string    `json:"telegram_file_path,omitempty"`
	Width              int       `json:"width,omitempty"`
	Height             int       `json:"height,omitempty"`
	Alt                string    `json:"alt,omitempty"`
	UploadedBy         string    `json:"uploaded_by,omitempty"`
	UploadedAt         time.Time `json:"uploaded_at"`
	Variant            Variant   `json:"variant"`
	OriginalCategories []string  `json:"original_categories"`
	WasPinned          bool      `json:"was_pinned"`
	DeletedAt          time.Time `json:"deleted_at"`
	DeletedBy          string    `json:"deleted_by"`
}

func newDeletedPhoto(p *Photo, variant Variant, categories []string, wasPinned bool, at time.Time, by string) *DeletedPhoto {
	if categories == nil {
		categories = []string{}
	}
	if variant == "" {
		variant = VariantOriginal
	}
	return &DeletedPhoto{
		ID:                 p.ID,
		URL:                p.URL,
		FileID:             p.FileID,
		FileName:           p.FileName,
		FileSize:           p.FileSize,
		FileType:           p.FileType,
		TelegramFilePath:   p.TelegramFilePath,
		Width:              p.Width,
		Height:             p.Height,
		Alt:                p.Alt,
		UploadedBy:         p.UploadedBy,
		UploadedAt:         p.UploadedAt,
		Variant:            variant,
		OriginalCategories: categories,
		WasPinned:          wasPinned,
		DeletedAt:          at,
		DeletedBy:          by,
	}
}

// Photo rebuilds the canonical record, dropping trash-only fields.
func (d *DeletedPhoto) Photo() *Photo {
	return &Photo{
		ID:               d.ID,
		URL:              d.URL,
		FileID:           d.FileID,
		FileName:         d.FileName,
		FileSize:         d.FileSize,
		FileType:         d.FileType,
		TelegramFilePath: d.TelegramFilePath,
		Width:            d.Width,
		Height:           d.Height,
		Alt:              d.Alt,
		UploadedBy:       d.UploadedBy,
		UploadedAt:       d.UploadedAt,
	}
}
