// internal/service/notification_service.go
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/prdesk-backend/internal/model"
	"github.com/unclebandit/prdesk-backend/internal/repository"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 200
)

type NotificationService struct {
	Repo repository.NotificationRepositoryInterface
	Log  *zap.Logger
}

func (s *NotificationService) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

type notificationPayload struct {
	CampaignID int               `json:"campaign_id,omitempty"`
	MessageID  int               `json:"message_id,omitempty"`
	Data       map[string]string `json:"data,omitempty"`
	OccurredAt string            `json:"occurred_at"`
}

// Handle is the queue handler that persists events as notifications.
// Events without a recipient are dropped.
func (s *NotificationService) Handle(ctx context.Context, ev model.Event) error {
	if ev.UserID == "" || ev.OrganizationID == "" {
		s.logger().Debug("dropping event without recipient", zap.String("kind", ev.Kind))
		return nil
	}
	payload, err := json.Marshal(notificationPayload{
		CampaignID: ev.CampaignID,
		MessageID:  ev.MessageID,
		Data:       ev.Data,
		OccurredAt: ev.OccurredAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encode notification payload: %w", err)
	}
	n := &model.Notification{
		OrganizationID: ev.OrganizationID,
		UserID:         ev.UserID,
		Kind:           ev.Kind,
		Payload:        payload,
	}
	if err := s.Repo.Create(ctx, n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	s.logger().Info("notification stored",
		zap.String("kind", n.Kind), zap.String("org", n.OrganizationID), zap.String("user", n.UserID))
	return nil
}

func (s *NotificationService) List(ctx context.Context, actor model.Actor, unreadOnly bool, limit int) ([]*model.Notification, error) {
	if limit < 1 {
		limit = defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}
	return s.Repo.ListByUser(ctx, actor.OrganizationID, actor.UserID, unreadOnly, limit)
}

func (s *NotificationService) MarkRead(ctx context.Context, actor model.Actor, id int) error {
	return s.Repo.MarkRead(ctx, actor.OrganizationID, actor.UserID, id)
}
