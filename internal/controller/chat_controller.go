// internal/controller/chat_controller.go
package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/unclebandit/prdesk-backend/internal/errors"
	"github.com/unclebandit/prdesk-backend/internal/service"
)

type ChatController struct {
	ChatService *service.ChatService
}

func (c *ChatController) Routes(r chi.Router) {
	r.Get("/channels/{channel}/messages", c.ListMessages)
	r.Post("/channels/{channel}/messages", c.PostMessage)
	r.Route("/messages/{id}", func(r chi.Router) {
		r.Patch("/", c.EditMessage)
		r.Delete("/", c.DeleteMessage)
		r.Post("/reactions", c.React)
		r.Get("/history", c.History)
	})
}

// ListMessages pages backwards with ?before_id= and ?limit=.
func (c *ChatController) ListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := c.ChatService.List(r.Context(), actor(r), chi.URLParam(r, "channel"), queryInt(r, "before_id"), queryInt(r, "limit"))
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": msgs})
}

func (c *ChatController) PostMessage(w http.ResponseWriter, r *http.Request) {
	var body service.PostInput
	if err := decode(w, r, &body); err != nil {
		appErrors.Write(w, err)
		return
	}
	body.Channel = chi.URLParam(r, "channel")
	msg, err := c.ChatService.Post(r.Context(), actor(r), body)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (c *ChatController) EditMessage(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	var body struct {
		Content string `json:"content"`
	}
	if err := decode(w, r, &body); err != nil {
		appErrors.Write(w, err)
		return
	}
	msg, err := c.ChatService.Edit(r.Context(), actor(r), id, body.Content)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (c *ChatController) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	if err := c.ChatService.Delete(r.Context(), actor(r), id); err != nil {
		appErrors.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *ChatController) React(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	var body struct {
		Emoji string `json:"emoji"`
	}
	if err := decode(w, r, &body); err != nil {
		appErrors.Write(w, err)
		return
	}
	change, err := c.ChatService.React(r.Context(), actor(r), id, body.Emoji)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, change)
}

func (c *ChatController) History(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	edits, err := c.ChatService.History(r.Context(), actor(r), id)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": edits})
}
