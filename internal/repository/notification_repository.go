package repository

import (
	"context"
	"database/sql"
	"time"

	appErrors "github.com/unclebandit/prdesk-backend/internal/errors"
	"github.com/unclebandit/prdesk-backend/internal/model"
)

type NotificationRepositoryInterface interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByUser(ctx context.Context, orgID, userID string, unreadOnly bool, limit int) ([]*model.Notification, error)
	MarkRead(ctx context.Context, orgID, userID string, id int) error
}

type NotificationRepository struct {
	DB *sql.DB
}

// Create inserts a new notification and fills its ID.
func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	n.CreatedAt = time.Now()
	if len(n.Payload) == 0 {
		n.Payload = []byte("{}")
	}
	query := `
		INSERT INTO notifications (organization_id, user_id, kind, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query, n.OrganizationID, n.UserID, n.Kind, []byte(n.Payload), n.CreatedAt).Scan(&n.ID)
}

func (r *NotificationRepository) ListByUser(ctx context.Context, orgID, userID string, unreadOnly bool, limit int) ([]*model.Notification, error) {
	query := `
		SELECT id, organization_id, user_id, kind, payload, read_at, created_at
		FROM notifications
		WHERE organization_id=$1 AND user_id=$2
	`
	if unreadOnly {
		query += ` AND read_at IS NULL`
	}
	query += ` ORDER BY id DESC LIMIT $3`

	rows, err := r.DB.QueryContext(ctx, query, orgID, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Notification{}
	for rows.Next() {
		var n model.Notification
		var payload []byte
		if err := rows.Scan(&n.ID, &n.OrganizationID, &n.UserID, &n.Kind, &payload, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Payload = payload
		out = append(out, &n)
	}
	return out, rows.Err()
}

func (r *NotificationRepository) MarkRead(ctx context.Context, orgID, userID string, id int) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE notifications SET read_at=COALESCE(read_at, NOW())
		WHERE organization_id=$1 AND user_id=$2 AND id=$3`, orgID, userID, id)
	if err != nil {
		return err
	}
	return expectOne(res, appErrors.NewNotFound("notification", id))
}

var _ NotificationRepositoryInterface = (*NotificationRepository)(nil)
