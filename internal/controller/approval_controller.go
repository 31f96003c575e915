// internal/controller/approval_controller.go
package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/unclebandit/prdesk-backend/internal/errors"
	"github.com/unclebandit/prdesk-backend/internal/model"
	"github.com/unclebandit/prdesk-backend/internal/service"
)

type ApprovalController struct {
	ApprovalService *service.ApprovalService
	PreviewService  *service.PreviewService
}

// CampaignRoutes is mounted under /campaigns/{id}.
func (c *ApprovalController) CampaignRoutes(r chi.Router) {
	r.Post("/approval", c.RequestApproval)
	r.Post("/approval/decision", c.Decide)
	r.Post("/approval/withdraw", c.Withdraw)
	r.Get("/approvals", c.History)
	r.Get("/banner", c.Banner)
}

// ShareRoutes are public; the share token is the only credential.
func (c *ApprovalController) ShareRoutes(r chi.Router) {
	r.Get("/{token}", c.SharedPreview)
	r.Post("/{token}/decision", c.SharedDecision)
}

type decisionBody struct {
	Decision string `json:"decision"`
	Feedback string `json:"feedback"`
}

func (c *ApprovalController) RequestApproval(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	var body struct {
		ReviewerEmail string `json:"reviewer_email"`
	}
	if err := decode(w, r, &body); err != nil {
		appErrors.Write(w, err)
		return
	}
	approval, err := c.ApprovalService.RequestApproval(r.Context(), actor(r), id, body.ReviewerEmail)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, approval)
}

func (c *ApprovalController) Decide(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	var body decisionBody
	if err := decode(w, r, &body); err != nil {
		appErrors.Write(w, err)
		return
	}
	approval, err := c.ApprovalService.Decide(r.Context(), actor(r), id, body.Decision, body.Feedback)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, approval)
}

func (c *ApprovalController) Withdraw(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	campaign, err := c.ApprovalService.Withdraw(r.Context(), actor(r), id)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (c *ApprovalController) History(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	approvals, err := c.ApprovalService.History(r.Context(), actor(r), id)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": approvals})
}

func (c *ApprovalController) Banner(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	banner, err := c.ApprovalService.Banner(r.Context(), actor(r), id)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, banner)
}

// SharedPreview shows the reviewer what they are approving.
func (c *ApprovalController) SharedPreview(w http.ResponseWriter, r *http.Request) {
	campaign, approval, err := c.ApprovalService.ResolveShareToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	preview, err := c.PreviewService.Build(r.Context(), campaign)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"preview":         preview,
		"approval_status": approval.Status,
		"feedback":        approval.Feedback,
		"can_decide":      approval.Status == model.ApprovalPending,
	})
}

func (c *ApprovalController) SharedDecision(w http.ResponseWriter, r *http.Request) {
	var body decisionBody
	if err := decode(w, r, &body); err != nil {
		appErrors.Write(w, err)
		return
	}
	approval, err := c.ApprovalService.DecideByToken(r.Context(), chi.URLParam(r, "token"), body.Decision, body.Feedback)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": approval.Status, "decided_at": approval.DecidedAt})
}
