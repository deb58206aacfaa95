package gallery

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrPhotoNotFound      = fmt.Errorf("photo %w", ErrNotFound)
	ErrCategoryNotFound   = fmt.Errorf("category %w", ErrNotFound)
	ErrTrashEntryNotFound = fmt.Errorf("trash entry %w", ErrNotFound)
	ErrPinNotFound        = fmt.Errorf("pin %w", ErrNotFound)

	ErrConflict     = errors.New("conflict")
	ErrSlugConflict = fmt.Errorf("slug already exists: %w", ErrConflict)
	ErrPhotoExists  = fmt.Errorf("photo id already used: %w", ErrConflict)

	ErrValidation = errors.New("validation failed")
	ErrTransport  = errors.New("image upstream failed")
	ErrInternal   = errors.New("internal error")
)
