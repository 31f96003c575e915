// internal/controller/boilerplate_controller.go
package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/unclebandit/prdesk-backend/internal/errors"
	"github.com/unclebandit/prdesk-backend/internal/service"
)

type BoilerplateController struct {
	BoilerplateService *service.BoilerplateService
}

func (c *BoilerplateController) Routes(r chi.Router) {
	r.Post("/", c.CreateSection)
	r.Get("/", c.ListSections)
	r.Get("/{sectionID}", c.GetSection)
	r.Put("/{sectionID}", c.UpdateSection)
	r.Delete("/{sectionID}", c.DeleteSection)
}

// CampaignRoutes is mounted under /campaigns/{id}.
func (c *BoilerplateController) CampaignRoutes(r chi.Router) {
	r.Get("/sections", c.CampaignSections)
	r.Put("/sections", c.SetCampaignSections)
}

func (c *BoilerplateController) CreateSection(w http.ResponseWriter, r *http.Request) {
	var body service.SectionInput
	if err := decode(w, r, &body); err != nil {
		appErrors.Write(w, err)
		return
	}
	sec, err := c.BoilerplateService.CreateSection(r.Context(), actor(r), body)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sec)
}

func (c *BoilerplateController) ListSections(w http.ResponseWriter, r *http.Request) {
	clientID, err := queryIntPtr(r, "client_id")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	sections, err := c.BoilerplateService.ListSections(r.Context(), actor(r), r.URL.Query().Get("category"), clientID)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": sections})
}

func (c *BoilerplateController) GetSection(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "sectionID")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	sec, err := c.BoilerplateService.GetSection(r.Context(), actor(r), id)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sec)
}

func (c *BoilerplateController) UpdateSection(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "sectionID")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	var body service.SectionInput
	if err := decode(w, r, &body); err != nil {
		appErrors.Write(w, err)
		return
	}
	sec, err := c.BoilerplateService.UpdateSection(r.Context(), actor(r), id, body)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sec)
}

func (c *BoilerplateController) DeleteSection(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "sectionID")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	if err := c.BoilerplateService.DeleteSection(r.Context(), actor(r), id); err != nil {
		appErrors.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *BoilerplateController) CampaignSections(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	items, err := c.BoilerplateService.CampaignSections(r.Context(), actor(r), id)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": items})
}

func (c *BoilerplateController) SetCampaignSections(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	var body struct {
		Sections []service.SectionPlacement `json:"sections"`
	}
	if err := decode(w, r, &body); err != nil {
		appErrors.Write(w, err)
		return
	}
	items, err := c.BoilerplateService.SetCampaignSections(r.Context(), actor(r), id, body.Sections)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": items})
}
