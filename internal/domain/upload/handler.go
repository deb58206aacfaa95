package upload

import (
	"errors"
	"net/http"

	"github.com/rurikon/gallery-api/internal/domain/gallery"
	"github.com/rurikon/gallery-api/internal/middleware"
	"github.com/rurikon/gallery-api/internal/pkg/errorhandler"
	"github.com/rurikon/gallery-api/internal/pkg/response"
	"github.com/rurikon/gallery-api/internal/pkg/storage"
)

// multipart framing allowance on top of the file itself
const formOverhead = 1 << 20

// Handler handles upload HTTP requests
type Handler struct {
	service  *Service
	maxBytes int64
}

// NewHandler creates upload handler
func NewHandler(service *Service, maxBytes int64) *Handler {
	return &Handler{service: service, maxBytes: maxBytes}
}

// Upload handles POST /images/upload
// Multipart form: file
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+formOverhead)

	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		response.BadRequest(w, "File too large or invalid form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "No file provided")
		return
	}
	defer file.Close()

	photo, err := h.service.Upload(r.Context(), header.Filename, file, middleware.GetIdentity(r.Context()))
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrFileTooLarge):
			response.BadRequest(w, "File exceeds maximum size")
		case errors.Is(err, storage.ErrInvalidMimeType):
			response.BadRequest(w, "Only image files are allowed")
		case errors.Is(err, storage.ErrEmptyFile):
			response.BadRequest(w, "File is empty")
		case errors.Is(err, ErrUploadFailed):
			errorhandler.HandleError(r.Context(), w, http.StatusBadGateway, "UPSTREAM_ERROR", "Image storage is unavailable", err)
		case errors.Is(err, gallery.ErrConflict):
			response.Conflict(w, err.Error())
		default:
			errorhandler.HandleInternal(r.Context(), w, err)
		}
		return
	}

	response.Created(w, photo)
}
