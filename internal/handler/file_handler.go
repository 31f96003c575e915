// internal/handler/file_handler.go
package handler

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/prdesk-backend/internal/errors"
	"github.com/unclebandit/prdesk-backend/internal/middleware"
	"github.com/unclebandit/prdesk-backend/internal/service"
)

// FileHandler streams binary responses: stored assets and campaign PDFs.
type FileHandler struct {
	AssetService   *service.AssetService
	PreviewService *service.PreviewService
	Log            *zap.Logger
}

func (h *FileHandler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

func pathID(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id < 1 {
		return 0, appErrors.Validation("invalid " + name)
	}
	return id, nil
}

func attachment(filename string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": filename})
}

// DownloadAsset handles GET /assets/{assetID}/content.
func (h *FileHandler) DownloadAsset(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "assetID")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	asset, rc, err := h.AssetService.OpenAsset(r.Context(), middleware.IdentityFrom(r.Context()), id)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", asset.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(asset.SizeBytes, 10))
	w.Header().Set("Content-Disposition", attachment(asset.FileName))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger().Warn("asset download interrupted", zap.Int("asset_id", id), zap.Error(err))
	}
}

// CampaignPDF handles GET /campaigns/{id}/pdf. Each call renders and stores a fresh document.
func (h *FileHandler) CampaignPDF(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	doc, err := h.PreviewService.PDF(r.Context(), middleware.IdentityFrom(r.Context()), id)
	if err != nil {
		appErrors.Write(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(doc)))
	w.Header().Set("Content-Disposition", attachment(fmt.Sprintf("campaign-%d.pdf", id)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc); err != nil {
		h.logger().Warn("pdf download interrupted", zap.Int("campaign_id", id), zap.Error(err))
	}
}

// CampaignRoutes is mounted under /campaigns/{id}.
func (h *FileHandler) CampaignRoutes(r chi.Router) {
	r.Get("/pdf", h.CampaignPDF)
}
