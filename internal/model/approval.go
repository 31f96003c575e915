// internal/model/approval.go
package model

import "time"

// Approval statuses.
const (
	ApprovalPending          = "pending"
	ApprovalApproved         = "approved"
	ApprovalChangesRequested = "changes_requested"
	ApprovalWithdrawn        = "withdrawn"
)

type ApprovalData struct {
	ID             int        `db:"id" json:"id"`
	OrganizationID string     `db:"organization_id" json:"organization_id"`
	CampaignID     int        `db:"campaign_id" json:"campaign_id"`
	Status         string     `db:"status" json:"status"`
	RequestedBy    string     `db:"requested_by" json:"requested_by"`
	ReviewerEmail  string     `db:"reviewer_email" json:"reviewer_email"`
	ShareToken     string     `db:"share_token" json:"share_token"`
	Feedback       string     `db:"feedback" json:"feedback,omitempty"`
	RequestedAt    time.Time  `db:"requested_at" json:"requested_at"`
	DecidedAt      *time.Time `db:"decided_at" json:"decided_at,omitempty"`
}

// Banner kinds shown at the top of the campaign editor.
const (
	BannerNone             = "none"
	BannerDraftNeedsReview = "draft_needs_review"
	BannerPendingReview    = "pending_review"
	BannerChangesRequested = "changes_requested"
	BannerApproved         = "approved"
	BannerLocked           = "locked"
	BannerSent             = "sent"
)

type ApprovalBanner struct {
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Feedback string `json:"feedback,omitempty"`
	// CanEdit tells the editor whether form fields should be enabled.
	CanEdit bool `json:"can_edit"`
}
