package gallery

import "time"

// CategorizeRequest for PUT /categories. A blank slug uncategorizes.
type CategorizeRequest struct {
	ID      string `json:"id" validate:"required"`
	Slug    string `json:"slug" validate:"omitempty,slug"`
	Variant string `json:"variant" validate:"omitempty,variant"`
}

// BatchCategorizeRequest for POST /categories/batch
type BatchCategorizeRequest struct {
	ImageIDs []string `json:"imageIds" validate:"required,min=1,dive,required"`
	Slug     string   `json:"slug" validate:"omitempty,slug"`
	Variant  string   `json:"variant" validate:"omitempty,variant"`
}

// RenameRequest for POST /categories/rename
type RenameRequest struct {
	OldSlug string `json:"oldSlug" validate:"required"`
	NewSlug string `json:"newSlug" validate:"required,slug"`
}

// UpdateRefRequest for PATCH /categories
type UpdateRefRequest struct {
	Slug    string  `json:"slug" validate:"required"`
	PhotoID string  `json:"photoId" validate:"required"`
	Alt     *string `json:"alt" validate:"omitempty,max=500"`
	Variant *string `json:"variant" validate:"omitempty,variant"`
}

// ReorderRequest for PUT /categories/{slug}/order and PUT /homepage/order
type ReorderRequest struct {
	PhotoIDs []string `json:"photoIds" validate:"required,dive,required"`
}

// PhotoIDsRequest for POST /photos/delete
type PhotoIDsRequest struct {
	PhotoIDs []string `json:"photoIds" validate:"required,min=1,dive,required"`
}

// RestoreRequest for POST /photos/restore. Both flags default to true.
type RestoreRequest struct {
	PhotoIDs          []string `json:"photoIds" validate:"required,min=1,dive,required"`
	RestoreCategories *bool    `json:"restoreCategories"`
	RestorePin        *bool    `json:"restorePin"`
}

// HomepageRequest for POST /homepage
type HomepageRequest struct {
	SelectedPhotos []HomepagePin `json:"selectedPhotos" validate:"required,dive"`
}

// PinRequest for POST /homepage/pins
type PinRequest struct {
	PhotoID string `json:"photoId" validate:"required"`
}

type CategorizeResult struct {
	ID          string   `json:"id"`
	Slug        string   `json:"slug"`
	Variant     Variant  `json:"variant"`
	RemovedFrom []string `json:"removedFrom"`
	Replaced    bool     `json:"replaced"`
}

type BatchCategorizeResult struct {
	Slug         string   `json:"slug"`
	Variant      Variant  `json:"variant"`
	UpdatedCount int      `json:"updatedCount"`
	UpdatedIDs   []string `json:"updatedIds"`
	NotFoundIDs  []string `json:"notFoundIds"`
}

type RenameResult struct {
	OldSlug    string `json:"oldSlug"`
	NewSlug    string `json:"newSlug"`
	ImageCount int    `json:"imageCount"`
}

type RemoveResult struct {
	Slug            string `json:"slug"`
	PhotoID         string `json:"photoId"`
	CategoryDeleted bool   `json:"categoryDeleted"`
}

// ImageListing is a photo annotated with where it currently shows.
type ImageListing struct {
	*Photo
	Category string  `json:"category,omitempty"`
	Variant  Variant `json:"variant,omitempty"`
	Pinned   bool    `json:"pinned"`
}

type DeletedSummary struct {
	ID         string   `json:"id"`
	Categories []string `json:"categories"`
	WasPinned  bool     `json:"wasPinned"`
}

type SoftDeleteResult struct {
	DeletedCount  int              `json:"deletedCount"`
	DeletedPhotos []DeletedSummary `json:"deletedPhotos"`
	NotFoundIDs   []string         `json:"notFoundIds"`
}

type RestoreOptions struct {
	Categories bool
	Pin        bool
}

type RestoredSummary struct {
	ID                   string   `json:"id"`
	RestoredToCategories []string `json:"restoredToCategories"`
	RestoredToPin        bool     `json:"restoredToPin"`
}

type RestoreResult struct {
	RestoredCount  int               `json:"restoredCount"`
	RestoredPhotos []RestoredSummary `json:"restoredPhotos"`
	NotFoundIDs    []string          `json:"notFoundIds"`
}

type PermanentDeleteResult struct {
	DeletedCount int      `json:"deletedCount"`
	DeletedIDs   []string `json:"deletedIds"`
	NotFoundIDs  []string `json:"notFoundIds"`
}

type TrashListing struct {
	Photos []*DeletedPhoto `json:"photos"`
	Count  int             `json:"count"`
}

type CategoryList struct {
	Categories []*Category `json:"categories"`
}

// Change describes one committed batch for listeners.
type Change struct {
	Operation string    `json:"operation"`
	PhotoIDs  []string  `json:"photoIds,omitempty"`
	Slugs     []string  `json:"slugs,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	At        time.Time `json:"at"`
}
