// internal/controller/router.go
package controller

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/unclebandit/prdesk-backend/internal/handler"
	"github.com/unclebandit/prdesk-backend/internal/middleware"
)

// Controllers groups everything NewRouter mounts. Nil members are skipped.
type Controllers struct {
	Campaigns     *CampaignController
	Approvals     *ApprovalController
	Boilerplate   *BoilerplateController
	Assets        *AssetController
	CRM           *CRMController
	Chat          *ChatController
	Notifications *NotificationController
	Files         *handler.FileHandler
	Health        *handler.HealthHandler

	// ChatSocket serves the websocket upgrade at /chat/ws.
	ChatSocket http.Handler
	Log        *zap.Logger
}

func NewRouter(c Controllers) http.Handler {
	log := c.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)

	r.Handle("/metrics", promhttp.Handler())
	if c.Health != nil {
		r.Get("/healthz", c.Health.Live)
		r.Get("/readyz", c.Health.Ready)
	}
	if c.ChatSocket != nil {
		// Long-lived; kept outside the request timeout below.
		r.Handle("/chat/ws", c.ChatSocket)
	}
	if c.Approvals != nil {
		r.Route("/share", c.Approvals.ShareRoutes)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireIdentity)
		r.Use(chimw.Timeout(60 * time.Second))

		if c.Campaigns != nil {
			var nested []func(chi.Router)
			if c.Approvals != nil {
				nested = append(nested, c.Approvals.CampaignRoutes)
			}
			if c.Boilerplate != nil {
				nested = append(nested, c.Boilerplate.CampaignRoutes)
			}
			if c.Assets != nil {
				nested = append(nested, c.Assets.CampaignRoutes)
			}
			if c.Files != nil {
				nested = append(nested, c.Files.CampaignRoutes)
			}
			r.Route("/campaigns", func(r chi.Router) {
				c.Campaigns.Routes(r, nested...)
			})
		}
		if c.Boilerplate != nil {
			r.Route("/boilerplate", c.Boilerplate.Routes)
		}
		if c.Assets != nil {
			r.Route("/assets", func(r chi.Router) {
				c.Assets.Routes(r)
				if c.Files != nil {
					r.Get("/{assetID}/content", c.Files.DownloadAsset)
				}
			})
		}
		if c.CRM != nil {
			r.Route("/clients", c.CRM.ClientRoutes)
			r.Route("/projects", c.CRM.ProjectRoutes)
		}
		if c.Chat != nil {
			r.Route("/chat", c.Chat.Routes)
		}
		if c.Notifications != nil {
			r.Route("/notifications", c.Notifications.Routes)
		}
	})
	return r
}
