package gallery

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rurikon/gallery-api/internal/middleware"
	"github.com/rurikon/gallery-api/internal/pkg/errorhandler"
	"github.com/rurikon/gallery-api/internal/pkg/logger"
	"github.com/rurikon/gallery-api/internal/pkg/response"
	"github.com/rurikon/gallery-api/internal/pkg/validator"
)

// Cache-Control for proxied images. Photo URLs never change for a given ref.
const imageCacheControl = "public, max-age=31536000, immutable"

// Handler handles gallery HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates gallery handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Categorize handles PUT /categories
func (h *Handler) Categorize(w http.ResponseWriter, r *http.Request) {
	var req CategorizeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	variant, err := ParseVariant(req.Variant)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.service.Categorize(r.Context(), req.ID, req.Slug, variant, middleware.GetIdentity(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, result)
}

// BatchCategorize handles POST /categories/batch
func (h *Handler) BatchCategorize(w http.ResponseWriter, r *http.Request) {
	var req BatchCategorizeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	variant, err := ParseVariant(req.Variant)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.service.BatchCategorize(r.Context(), req.ImageIDs, req.Slug, variant, middleware.GetIdentity(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, result)
}

// Rename handles POST /categories/rename
func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.RenameSlug(r.Context(), req.OldSlug, req.NewSlug, middleware.GetIdentity(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, result)
}

// RemoveFromCategory handles DELETE /categories?slug=&photoId=
func (h *Handler) RemoveFromCategory(w http.ResponseWriter, r *http.Request) {
	slug := r.URL.Query().Get("slug")
	photoID := r.URL.Query().Get("photoId")
	if slug == "" || photoID == "" {
		response.BadRequest(w, "slug and photoId query parameters are required")
		return
	}

	result, err := h.service.RemoveFromCategory(r.Context(), slug, photoID, middleware.GetIdentity(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, result)
}

// UpdateRef handles PATCH /categories
func (h *Handler) UpdateRef(w http.ResponseWriter, r *http.Request) {
	var req UpdateRefRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	var variant *Variant
	if req.Variant != nil {
		v := Variant(*req.Variant)
		variant = &v
	}

	ref, err := h.service.UpdatePhotoRef(r.Context(), req.Slug, req.PhotoID, req.Alt, variant, middleware.GetIdentity(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, ref)
}

// ReorderCategory handles PUT /categories/{slug}/order
func (h *Handler) ReorderCategory(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	cat, err := h.service.ReorderCategory(r.Context(), chi.URLParam(r, "slug"), req.PhotoIDs, middleware.GetIdentity(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, cat)
}

// ListCategories handles GET /categories
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, list)
}

// GetCategory handles GET /categories/{slug}. No auth.
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	cat, err := h.service.GetCategory(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, cat)
}

// ListImages handles GET /images
func (h *Handler) ListImages(w http.ResponseWriter, r *http.Request) {
	images, err := h.service.ListImages(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, map[string]interface{}{
		"images": images,
		"count":  len(images),
	})
}

// SoftDelete handles POST /photos/delete
func (h *Handler) SoftDelete(w http.ResponseWriter, r *http.Request) {
	var req PhotoIDsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.SoftDelete(r.Context(), req.PhotoIDs, middleware.GetIdentity(r.Context()))
	if err != nil {
		h.writeBatchError(w, r, err, result)
		return
	}
	response.OK(w, result)
}

// Restore handles POST /photos/restore
func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	var req RestoreRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	opts := RestoreOptions{Categories: true, Pin: true}
	if req.RestoreCategories != nil {
		opts.Categories = *req.RestoreCategories
	}
	if req.RestorePin != nil {
		opts.Pin = *req.RestorePin
	}

	result, err := h.service.Restore(r.Context(), req.PhotoIDs, opts, middleware.GetIdentity(r.Context()))
	if err != nil {
		h.writeBatchError(w, r, err, result)
		return
	}
	response.OK(w, result)
}

// PermanentDelete handles DELETE /photos/permanent-delete?photoIds=a,b,c
func (h *Handler) PermanentDelete(w http.ResponseWriter, r *http.Request) {
	ids := splitCSV(r.URL.Query().Get("photoIds"))
	if len(ids) == 0 {
		response.BadRequest(w, "photoIds query parameter is required")
		return
	}

	result, err := h.service.PermanentDelete(r.Context(), ids, middleware.GetIdentity(r.Context()))
	if err != nil {
		h.writeBatchError(w, r, err, result)
		return
	}
	response.OK(w, result)
}

// ListDeleted handles GET /photos/deleted
func (h *Handler) ListDeleted(w http.ResponseWriter, r *http.Request) {
	listing, err := h.service.ListDeleted(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, listing)
}

// ProxyImage handles GET /photos/image/{slug}/{order}
func (h *Handler) ProxyImage(w http.ResponseWriter, r *http.Request) {
	position, err := strconv.Atoi(chi.URLParam(r, "order"))
	if err != nil || position < 0 {
		response.BadRequest(w, "Invalid image position")
		return
	}

	img, err := h.service.FetchImage(r.Context(), chi.URLParam(r, "slug"), position)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer img.Body.Close()

	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Cache-Control", imageCacheControl)
	if img.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(img.ContentLength, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, img.Body); err != nil {
		logger.LogWarn(r.Context(), "image relay interrupted", "slug", chi.URLParam(r, "slug"), "position", position, "error", err.Error())
	}
}

// GetHomepage handles GET /homepage. No auth.
func (h *Handler) GetHomepage(w http.ResponseWriter, r *http.Request) {
	home, err := h.service.GetHomepage(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, home)
}

// SetHomepage handles POST /homepage
func (h *Handler) SetHomepage(w http.ResponseWriter, r *http.Request) {
	var req HomepageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	home, err := h.service.SetHomepage(r.Context(), req.SelectedPhotos, middleware.GetIdentity(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, home)
}

// Pin handles POST /homepage/pins
func (h *Handler) Pin(w http.ResponseWriter, r *http.Request) {
	var req PinRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	home, err := h.service.Pin(r.Context(), req.PhotoID, middleware.GetIdentity(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, home)
}

// Unpin handles DELETE /homepage/pins/{photoId}
func (h *Handler) Unpin(w http.ResponseWriter, r *http.Request) {
	home, err := h.service.Unpin(r.Context(), chi.URLParam(r, "photoId"), middleware.GetIdentity(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, home)
}

// ReorderPins handles PUT /homepage/order
func (h *Handler) ReorderPins(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	home, err := h.service.ReorderPins(r.Context(), req.PhotoIDs, middleware.GetIdentity(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, home)
}

// Consistency handles GET /admin/consistency
func (h *Handler) Consistency(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Check(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, report)
}

// Repair handles POST /admin/repair
func (h *Handler) Repair(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Repair(r.Context(), middleware.GetIdentity(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, result)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrConflict):
		response.Conflict(w, err.Error())
	case errors.Is(err, ErrTransport):
		errorhandler.HandleError(r.Context(), w, http.StatusBadGateway, "UPSTREAM_ERROR", "Image upstream unavailable", err)
	default:
		errorhandler.HandleInternal(r.Context(), w, err)
	}
}

// writeBatchError keeps the per-id report when nothing in the batch matched.
func (h *Handler) writeBatchError(w http.ResponseWriter, r *http.Request, err error, result interface{}) {
	if errors.Is(err, ErrNotFound) && result != nil {
		response.ErrorWithData(w, http.StatusNotFound, "NOT_FOUND", err.Error(), result)
		return
	}
	h.writeError(w, r, err)
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := response.DecodeJSON(r.Body, dst); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return false
	}
	if errs := validator.Validate(dst); errs != nil {
		errorhandler.LogValidationError(r.Context(), errs)
		response.ValidationError(w, errs)
		return false
	}
	return true
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
