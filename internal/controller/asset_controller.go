// internal/controller/asset_controller.go
package controller

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/unclebandit/prdesk-backend/internal/errors"
	"github.com/unclebandit/prdesk-backend/internal/model"
	"github.com/unclebandit/prdesk-backend/internal/service"
)

// multipart parts beyond this stay on disk
const multipartMemory = 8 << 20

type AssetController struct {
	AssetService *service.AssetService
}

func (c *AssetController) Routes(r chi.Router) {
	r.Post("/", c.UploadAsset)
	r.Get("/", c.ListAssets)
	r.Get("/{assetID}", c.GetAsset)
	r.Delete("/{assetID}", c.DeleteAsset)
}

// CampaignRoutes is mounted under /campaigns/{id}.
func (c *AssetController) CampaignRoutes(r chi.Router) {
	r.Get("/attachments", c.ListAttachments)
	r.Post("/attachments", c.Attach)
	r.Put("/attachments/order", c.Reorder)
	r.Delete("/attachments/{attachmentID}", c.Detach)
}

func (c *AssetController) UploadAsset(w http.ResponseWriter, r *http.Request) {
	// Leave room for the multipart envelope around the file.
	r.Body = http.MaxBytesReader(w, r.Body, c.AssetService.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			appErrors.Write(w, appErrors.PayloadTooLarge("upload exceeds the size limit"))
			return
		}
		appErrors.Write(w, appErrors.Validation("invalid multipart form: "+err.Error()))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		appErrors.Write(w, appErrors.ValidationFields(map[string]string{"file": "file is required"}))
		return
	}
	defer file.Close()

	in := service.UploadInput{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	}
	if raw := r.FormValue("client_id"); raw != "" {
		id, err := parsePositive(raw)
		if err != nil {
			appErrors.Write(w, appErrors.ValidationFields(map[string]string{"client_id": "invalid client_id"}))
			return
		}
		in.ClientID = &id
	}
	for _, t := range r.MultipartForm.Value["tags"] {
		in.Tags = append(in.Tags, strings.Split(t, ",")...)
	}

	asset, err := c.AssetService.Upload(r.Context(), actor(r), in)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, asset)
}

func (c *AssetController) ListAssets(w http.ResponseWriter, r *http.Request) {
	clientID, err := queryIntPtr(r, "client_id")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	q := r.URL.Query()
	filter := model.AssetFilter{
		ContentTypePrefix: q.Get("content_type"),
		ClientID:          clientID,
		Tag:               q.Get("tag"),
		Search:            strings.TrimSpace(q.Get("search")),
	}
	assets, pagination, err := c.AssetService.ListAssets(r.Context(), actor(r), queryInt(r, "page"), queryInt(r, "page_size"), filter)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, paged(assets, pagination))
}

func (c *AssetController) GetAsset(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "assetID")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	asset, err := c.AssetService.GetAsset(r.Context(), actor(r), id)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

func (c *AssetController) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "assetID")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	if err := c.AssetService.DeleteAsset(r.Context(), actor(r), id); err != nil {
		appErrors.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *AssetController) ListAttachments(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	atts, err := c.AssetService.ListAttachments(r.Context(), actor(r), id)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": atts})
}

func (c *AssetController) Attach(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	var body struct {
		AssetID int    `json:"asset_id"`
		Caption string `json:"caption"`
	}
	if err := decode(w, r, &body); err != nil {
		appErrors.Write(w, err)
		return
	}
	att, err := c.AssetService.Attach(r.Context(), actor(r), id, body.AssetID, body.Caption)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, att)
}

func (c *AssetController) Reorder(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	var body struct {
		AttachmentIDs []int `json:"attachment_ids"`
	}
	if err := decode(w, r, &body); err != nil {
		appErrors.Write(w, err)
		return
	}
	atts, err := c.AssetService.ReorderAttachments(r.Context(), actor(r), id, body.AttachmentIDs)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": atts})
}

func (c *AssetController) Detach(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	attachmentID, err := idParam(r, "attachmentID")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	if err := c.AssetService.Detach(r.Context(), actor(r), id, attachmentID); err != nil {
		appErrors.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
