package gallery

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// CategoryRoutes returns category router. Reading one category is public.
func (h *Handler) CategoryRoutes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/{slug}", h.GetCategory)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)

		r.Get("/", h.ListCategories)
		r.Put("/", h.Categorize)
		r.Patch("/", h.UpdateRef)
		r.Delete("/", h.RemoveFromCategory)
		r.Post("/batch", h.BatchCategorize)
		r.Post("/rename", h.Rename)
		r.Put("/{slug}/order", h.ReorderCategory)
	})

	return r
}

// PhotoRoutes returns trash and image proxy router
func (h *Handler) PhotoRoutes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/image/{slug}/{order}", h.ProxyImage)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)

		r.Post("/delete", h.SoftDelete)
		r.Post("/restore", h.Restore)
		r.Delete("/permanent-delete", h.PermanentDelete)
		r.Get("/deleted", h.ListDeleted)
	})

	return r
}

// HomepageRoutes returns homepage pin router. Reading the pins is public.
func (h *Handler) HomepageRoutes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.GetHomepage)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)

		r.Post("/", h.SetHomepage)
		r.Post("/pins", h.Pin)
		r.Delete("/pins/{photoId}", h.Unpin)
		r.Put("/order", h.ReorderPins)
	})

	return r
}

// AdminRoutes returns the consistency router
func (h *Handler) AdminRoutes(authMiddleware, adminOnly func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Use(adminOnly)

	r.Get("/consistency", h.Consistency)
	r.Post("/repair", h.Repair)

	return r
}
