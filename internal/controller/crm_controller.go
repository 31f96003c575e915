// internal/controller/crm_controller.go
package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/unclebandit/prdesk-backend/internal/errors"
	"github.com/unclebandit/prdesk-backend/internal/service"
)

type CRMController struct {
	CRMService *service.CRMService
}

func (c *CRMController) ClientRoutes(r chi.Router) {
	r.Post("/", c.CreateClient)
	r.Get("/", c.ListClients)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", c.GetClient)
		r.Put("/", c.UpdateClient)
		r.Delete("/", c.DeleteClient)
		r.Get("/projects", c.ListProjects)
		r.Post("/projects", c.CreateProject)
	})
}

func (c *CRMController) ProjectRoutes(r chi.Router) {
	r.Get("/{id}", c.GetProject)
	r.Patch("/{id}", c.UpdateProject)
	r.Post("/{id}/archive", c.ArchiveProject)
}

func (c *CRMController) CreateClient(w http.ResponseWriter, r *http.Request) {
	var body service.ClientInput
	if err := decode(w, r, &body); err != nil {
		appErrors.Write(w, err)
		return
	}
	client, err := c.CRMService.CreateClient(r.Context(), actor(r), body)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, client)
}

func (c *CRMController) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := c.CRMService.ListClients(r.Context(), actor(r))
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": clients})
}

func (c *CRMController) GetClient(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	client, err := c.CRMService.GetClient(r.Context(), actor(r), id)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

func (c *CRMController) UpdateClient(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	var body service.ClientInput
	if err := decode(w, r, &body); err != nil {
		appErrors.Write(w, err)
		return
	}
	client, err := c.CRMService.UpdateClient(r.Context(), actor(r), id, body)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

func (c *CRMController) DeleteClient(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	if err := c.CRMService.DeleteClient(r.Context(), actor(r), id); err != nil {
		appErrors.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *CRMController) ListProjects(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	projects, err := c.CRMService.ListProjects(r.Context(), actor(r), id)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": projects})
}

func (c *CRMController) CreateProject(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	var body service.ProjectInput
	if err := decode(w, r, &body); err != nil {
		appErrors.Write(w, err)
		return
	}
	project, err := c.CRMService.CreateProject(r.Context(), actor(r), id, body)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (c *CRMController) GetProject(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	project, err := c.CRMService.GetProject(r.Context(), actor(r), id)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (c *CRMController) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	var body service.ProjectInput
	if err := decode(w, r, &body); err != nil {
		appErrors.Write(w, err)
		return
	}
	project, err := c.CRMService.UpdateProject(r.Context(), actor(r), id, body)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (c *CRMController) ArchiveProject(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	project, err := c.CRMService.ArchiveProject(r.Context(), actor(r), id)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}
