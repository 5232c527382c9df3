package canvas

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers canvas routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/canvas", func(r chi.Router) {
		r.Post("/", h.CreateCanvas)
		r.Get("/", h.ListCanvases)
		r.Get("/{id}", h.GetCanvas)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/message", h.SendMessage)
		r.Get("/{id}/fields", h.GetFields)
		r.Put("/{id}/fields", h.SaveManualEdit)
		r.Get("/{id}/history", h.GetHistory)
		r.Post("/{id}/archive", h.Archive)
		r.Post("/{id}/restore", h.Restore)
		r.Get("/{id}/export", h.Export)
	})
}
