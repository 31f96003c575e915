// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/unclebandit/prdesk-backend/internal/chat"
	"github.com/unclebandit/prdesk-backend/internal/config"
	"github.com/unclebandit/prdesk-backend/internal/controller"
	"github.com/unclebandit/prdesk-backend/internal/db"
	"github.com/unclebandit/prdesk-backend/internal/handler"
	"github.com/unclebandit/prdesk-backend/internal/logger"
	"github.com/unclebandit/prdesk-backend/internal/middleware"
	"github.com/unclebandit/prdesk-backend/internal/queue"
	"github.com/unclebandit/prdesk-backend/internal/repository"
	"github.com/unclebandit/prdesk-backend/internal/service"
	"github.com/unclebandit/prdesk-backend/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logg, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg, logg)
	if err != nil {
		logg.Fatal("database unavailable", zap.Error(err))
	}
	defer conn.Close()
	if err := db.MigrateUp(conn, logg); err != nil {
		logg.Fatal("migrations failed", zap.Error(err))
	}

	store, err := storage.NewLocalStore(cfg.StorageDir)
	if err != nil {
		logg.Fatal("object store unavailable", zap.Error(err))
	}

	campaignRepo := &repository.CampaignRepository{DB: conn}
	clientRepo := &repository.ClientRepository{DB: conn}
	approvalRepo := &repository.ApprovalRepository{DB: conn}
	boilerplateRepo := &repository.BoilerplateRepository{DB: conn}
	assetRepo := &repository.AssetRepository{DB: conn}
	chatRepo := &repository.ChatRepository{DB: conn}
	notificationRepo := &repository.NotificationRepository{DB: conn}

	notificationService := &service.NotificationService{Repo: notificationRepo, Log: logg}

	// Without a broker the server also runs what cmd/worker would.
	var (
		q   queue.Queue
		mem *queue.InMemoryQueue
	)
	inProcess := cfg.AMQPURL == ""
	if inProcess {
		mem = queue.NewInMemoryQueue(logg)
		if err := mem.Subscribe(queue.TopicNotifications, notificationService.Handle); err != nil {
			logg.Fatal("subscribe notifications", zap.Error(err))
		}
		q = mem
		logg.Info("using in-memory queue")
	} else {
		amqpQueue, err := queue.DialAMQP(cfg.AMQPURL, logg)
		if err != nil {
			logg.Fatal("queue unavailable", zap.Error(err))
		}
		defer amqpQueue.Close()
		q = amqpQueue
	}

	hub := chat.NewHub(logg)

	campaignService := &service.CampaignService{
		CampaignRepo: campaignRepo,
		ClientRepo:   clientRepo,
		Queue:        q,
		Log:          logg,
	}
	previewService := &service.PreviewService{
		CampaignRepo:    campaignRepo,
		ClientRepo:      clientRepo,
		BoilerplateRepo: boilerplateRepo,
		AssetRepo:       assetRepo,
		Store:           store,
		Log:             logg,
	}
	approvalService := &service.ApprovalService{
		Campaigns:    campaignService,
		CampaignRepo: campaignRepo,
		ApprovalRepo: approvalRepo,
		Queue:        q,
		Log:          logg,
	}
	boilerplateService := &service.BoilerplateService{
		Repo:         boilerplateRepo,
		CampaignRepo: campaignRepo,
		ClientRepo:   clientRepo,
		Cache:        service.NewSectionCache(cfg.CacheSize, cfg.CacheTTL),
	}
	assetService := &service.AssetService{
		Repo:           assetRepo,
		CampaignRepo:   campaignRepo,
		ClientRepo:     clientRepo,
		Store:          store,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Log:            logg,
	}
	chatService := &service.ChatService{
		Repo:         chatRepo,
		CampaignRepo: campaignRepo,
		Hub:          hub,
		Queue:        q,
		Log:          logg,
	}

	router := controller.NewRouter(controller.Controllers{
		Campaigns:     &controller.CampaignController{CampaignService: campaignService, PreviewService: previewService},
		Approvals:     &controller.ApprovalController{ApprovalService: approvalService, PreviewService: previewService},
		Boilerplate:   &controller.BoilerplateController{BoilerplateService: boilerplateService},
		Assets:        &controller.AssetController{AssetService: assetService},
		CRM:           &controller.CRMController{CRMService: &service.CRMService{ClientRepo: clientRepo, CampaignRepo: campaignRepo}},
		Chat:          &controller.ChatController{ChatService: chatService},
		Notifications: &controller.NotificationController{NotificationService: notificationService},
		Files:         &handler.FileHandler{AssetService: assetService, PreviewService: previewService, Log: logg},
		Health:        &handler.HealthHandler{Ping: func(ctx context.Context) error { return db.Ping(ctx, conn) }, Log: logg},
		ChatSocket:    hub.Handler(middleware.OrganizationFromRequest),
		Log:           logg,
	})

	schedulerDone := make(chan struct{})
	if inProcess {
		go func() {
			defer close(schedulerDone)
			service.NewWorker(campaignService, cfg.SchedulerInterval, logg.Named("scheduler")).Start(ctx)
		}()
	} else {
		close(schedulerDone)
	}

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
	go func() {
		logg.Info("server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("graceful shutdown failed", zap.Error(err))
	}
	drain(schedulerDone, mem)
	logg.Info("shutdown complete")
}
