package auth

import (
	"errors"
	"net/http"

	"github.com/rurikon/gallery-api/internal/middleware"
	"github.com/rurikon/gallery-api/internal/pkg/errorhandler"
	"github.com/rurikon/gallery-api/internal/pkg/response"
	"github.com/rurikon/gallery-api/internal/pkg/validator"
)

// Handler handles auth HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates auth handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Login handles POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	result, err := h.service.Login(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrNotConfigured):
			response.Unauthorized(w, "Invalid email or password")
		default:
			errorhandler.HandleInternal(r.Context(), w, err)
		}
		return
	}

	response.OK(w, result)
}

// Me handles GET /auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	response.OK(w, MeResponse{
		Identity: middleware.GetIdentity(r.Context()),
		Role:     middleware.GetRole(r.Context()),
	})
}
