// internal/model/campaign.go
package model

import "time"

// Campaign statuses.
const (
	StatusDraft            = "draft"
	StatusInReview         = "in_review"
	StatusChangesRequested = "changes_requested"
	StatusApproved         = "approved"
	StatusScheduled        = "scheduled"
	StatusSent             = "sent"
	StatusArchived         = "archived"
)

// LockHolderSystem holds the edit lock while a campaign is out for customer review.
const LockHolderSystem = "system"

type Campaign struct {
	ID               int        `db:"id" json:"id"`
	OrganizationID   string     `db:"organization_id" json:"organization_id"`
	Title            string     `db:"title" json:"title"`
	Summary          string     `db:"summary" json:"summary"`
	Content          string     `db:"content" json:"content"`
	Status           string     `db:"status" json:"status"`
	ClientID         *int       `db:"client_id" json:"client_id,omitempty"`
	ProjectID        *int       `db:"project_id" json:"project_id,omitempty"`
	RequiresApproval bool       `db:"requires_approval" json:"requires_approval"`
	EditLocked       bool       `db:"edit_locked" json:"edit_locked"`
	LockedBy         string     `db:"locked_by" json:"locked_by,omitempty"`
	LockedReason     string     `db:"locked_reason" json:"locked_reason,omitempty"`
	LockedAt         *time.Time `db:"locked_at" json:"locked_at,omitempty"`
	ScheduledAt      *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	SentAt           *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	PDFStorageKey    string     `db:"pdf_storage_key" json:"pdf_storage_key,omitempty"`
	CreatedBy        string     `db:"created_by" json:"created_by"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// CampaignFilter narrows a campaign listing.
type CampaignFilter struct {
	Status   string
	ClientID *int
	Search   string
}
