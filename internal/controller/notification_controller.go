// internal/controller/notification_controller.go
package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/unclebandit/prdesk-backend/internal/errors"
	"github.com/unclebandit/prdesk-backend/internal/service"
)

type NotificationController struct {
	NotificationService *service.NotificationService
}

func (c *NotificationController) Routes(r chi.Router) {
	r.Get("/", c.List)
	r.Post("/{id}/read", c.MarkRead)
}

func (c *NotificationController) List(w http.ResponseWriter, r *http.Request) {
	unread := r.URL.Query().Get("unread") == "true"
	items, err := c.NotificationService.List(r.Context(), actor(r), unread, queryInt(r, "limit"))
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": items})
}

func (c *NotificationController) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	if err := c.NotificationService.MarkRead(r.Context(), actor(r), id); err != nil {
		appErrors.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
