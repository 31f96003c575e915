// internal/model/notification.go
package model

import (
	"encoding/json"
	"time"
)

// Notification kinds, also used as queue event types.
const (
	NotifyMention           = "mention"
	NotifyApprovalRequested = "approval_requested"
	NotifyApprovalDecided   = "approval_decided"
	NotifyCampaignSent      = "campaign_sent"
)

type Notification struct {
	ID             int             `db:"id" json:"id"`
	OrganizationID string          `db:"organization_id" json:"organization_id"`
	UserID         string          `db:"user_id" json:"user_id"`
	Kind           string          `db:"kind" json:"kind"`
	Payload        json.RawMessage `db:"payload" json:"payload"`
	ReadAt         *time.Time      `db:"read_at" json:"read_at,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// Event is what travels over the queue. An empty UserID means the event
// is addressed to the campaign owner.
type Event struct {
	Kind           string            `json:"kind"`
	OrganizationID string            `json:"organization_id"`
	UserID         string            `json:"user_id,omitempty"`
	CampaignID     int               `json:"campaign_id,omitempty"`
	MessageID      int               `json:"message_id,omitempty"`
	Data           map[string]string `json:"data,omitempty"`
	OccurredAt     time.Time         `json:"occurred_at"`
}
