// internal/controller/campaign_controller.go
package controller

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/unclebandit/prdesk-backend/internal/errors"
	"github.com/unclebandit/prdesk-backend/internal/model"
	"github.com/unclebandit/prdesk-backend/internal/service"
)

type CampaignController struct {
	CampaignService *service.CampaignService
	PreviewService  *service.PreviewService
}

// Routes registers the campaign endpoints. nested adds more routes under /{id}.
func (c *CampaignController) Routes(r chi.Router, nested ...func(chi.Router)) {
	r.Post("/", c.CreateCampaign)
	r.Get("/", c.ListCampaigns)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", c.GetCampaign)
		r.Patch("/", c.UpdateCampaign)
		r.Delete("/", c.DeleteCampaign)
		r.Put("/association", c.AssociateCampaign)
		r.Get("/validation", c.ValidateCampaign)
		r.Post("/lock", c.LockCampaign)
		r.Delete("/lock", c.UnlockCampaign)
		r.Post("/schedule", c.ScheduleCampaign)
		r.Delete("/schedule", c.UnscheduleCampaign)
		r.Post("/send", c.SendCampaign)
		r.Post("/archive", c.ArchiveCampaign)
		r.Post("/restore", c.RestoreCampaign)
		r.Get("/preview", c.Preview)
		for _, f := range nested {
			f(r)
		}
	})
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body service.CampaignInput
	if err := decode(w, r, &body); err != nil {
		appErrors.Write(w, err)
		return
	}
	campaign, err := c.CampaignService.CreateCampaign(r.Context(), actor(r), body)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, campaign)
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	clientID, err := queryIntPtr(r, "client_id")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	filter := model.CampaignFilter{
		Status:   r.URL.Query().Get("status"),
		ClientID: clientID,
		Search:   strings.TrimSpace(r.URL.Query().Get("search")),
	}
	campaigns, pagination, err := c.CampaignService.ListCampaigns(r.Context(), actor(r), queryInt(r, "page"), queryInt(r, "page_size"), filter)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, paged(campaigns, pagination))
}

func (c *CampaignController) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	campaign, err := c.CampaignService.GetCampaign(r.Context(), actor(r), id)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (c *CampaignController) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	var body service.CampaignPatch
	if err := decode(w, r, &body); err != nil {
		appErrors.Write(w, err)
		return
	}
	campaign, err := c.CampaignService.UpdateCampaign(r.Context(), actor(r), id, body)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (c *CampaignController) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	if err := c.CampaignService.DeleteCampaign(r.Context(), actor(r), id); err != nil {
		appErrors.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *CampaignController) AssociateCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	var body struct {
		ClientID  *int `json:"client_id"`
		ProjectID *int `json:"project_id"`
	}
	if err := decode(w, r, &body); err != nil {
		appErrors.Write(w, err)
		return
	}
	campaign, err := c.CampaignService.AssociateCampaign(r.Context(), actor(r), id, body.ClientID, body.ProjectID)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (c *CampaignController) ValidateCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	problems, err := c.CampaignService.ValidateCampaign(r.Context(), actor(r), id)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": len(problems) == 0, "problems": problems})
}

func (c *CampaignController) LockCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := decode(w, r, &body); err != nil {
		appErrors.Write(w, err)
		return
	}
	campaign, err := c.CampaignService.LockCampaign(r.Context(), actor(r), id, body.Reason)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (c *CampaignController) UnlockCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	campaign, err := c.CampaignService.UnlockCampaign(r.Context(), actor(r), id)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (c *CampaignController) ScheduleCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	var body struct {
		ScheduledAt *time.Time `json:"scheduled_at"`
	}
	if err := decode(w, r, &body); err != nil {
		appErrors.Write(w, err)
		return
	}
	if body.ScheduledAt == nil {
		appErrors.Write(w, appErrors.ValidationFields(map[string]string{"scheduled_at": "scheduled_at is required"}))
		return
	}
	campaign, err := c.CampaignService.ScheduleCampaign(r.Context(), actor(r), id, *body.ScheduledAt)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (c *CampaignController) UnscheduleCampaign(w http.ResponseWriter, r *http.Request) {
	c.simpleAction(w, r, c.CampaignService.UnscheduleCampaign)
}

func (c *CampaignController) SendCampaign(w http.ResponseWriter, r *http.Request) {
	c.simpleAction(w, r, c.CampaignService.SendCampaign)
}

func (c *CampaignController) ArchiveCampaign(w http.ResponseWriter, r *http.Request) {
	c.simpleAction(w, r, c.CampaignService.ArchiveCampaign)
}

func (c *CampaignController) RestoreCampaign(w http.ResponseWriter, r *http.Request) {
	c.simpleAction(w, r, c.CampaignService.RestoreCampaign)
}

type campaignAction func(ctx context.Context, a model.Actor, id int) (*model.Campaign, error)

func (c *CampaignController) simpleAction(w http.ResponseWriter, r *http.Request, action campaignAction) {
	id, err := idParam(r, "id")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	campaign, err := action(r.Context(), actor(r), id)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (c *CampaignController) Preview(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	preview, err := c.PreviewService.Render(r.Context(), actor(r), id)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}
