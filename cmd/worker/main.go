// cmd/worker/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/unclebandit/prdesk-backend/internal/config"
	"github.com/unclebandit/prdesk-backend/internal/db"
	"github.com/unclebandit/prdesk-backend/internal/logger"
	"github.com/unclebandit/prdesk-backend/internal/queue"
	"github.com/unclebandit/prdesk-backend/internal/repository"
	"github.com/unclebandit/prdesk-backend/internal/service"
)

// The worker consumes notification events from RabbitMQ and sends due scheduled campaigns.
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

	if cfg.AMQPURL == "" {
		logg.Fatal("AMQP_URL is required for the worker; the server runs jobs in-process without it")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg, logg)
	if err != nil {
		logg.Fatal("database unavailable", zap.Error(err))
	}
	defer conn.Close()

	q, err := queue.DialAMQP(cfg.AMQPURL, logg)
	if err != nil {
		logg.Fatal("queue unavailable", zap.Error(err))
	}
	defer q.Close()

	notifications := &service.NotificationService{
		Repo: &repository.NotificationRepository{DB: conn},
		Log:  logg,
	}
	if err := q.Subscribe(queue.TopicNotifications, notifications.Handle); err != nil {
		logg.Fatal("subscribe notifications", zap.Error(err))
	}

	campaigns := &service.CampaignService{
		CampaignRepo: &repository.CampaignRepository{DB: conn},
		ClientRepo:   &repository.ClientRepository{DB: conn},
		Queue:        q,
		Log:          logg,
	}

	logg.Info("worker running, waiting for events")
	service.NewWorker(campaigns, cfg.SchedulerInterval, logg.Named("scheduler")).Start(ctx)
}
