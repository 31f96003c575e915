package repository

import (
	"context"
	"database/sql"
	"errors"

	appErrors "github.com/unclebandit/prdesk-backend/internal/errors"
	"github.com/unclebandit/prdesk-backend/internal/model"
)

type ApprovalRepositoryInterface interface {
	Create(ctx context.Context, a *model.ApprovalData) error
	Latest(ctx context.Context, orgID string, campaignID int) (*model.ApprovalData, error)
	GetByShareToken(ctx context.Context, token string) (*model.ApprovalData, error)
	ListByCampaign(ctx context.Context, orgID string, campaignID int) ([]*model.ApprovalData, error)
	// Close moves a pending approval to a final status. It reports false if
	// the approval was no longer pending.
	Close(ctx context.Context, id int, status, feedback string) (bool, error)
}

type ApprovalRepository struct {
	DB *sql.DB
}

const approvalColumns = `id, organization_id, campaign_id, status, requested_by, reviewer_email,
	share_token, feedback, requested_at, decided_at`

func scanApproval(row rowScanner) (*model.ApprovalData, error) {
	var a model.ApprovalData
	err := row.Scan(&a.ID, &a.OrganizationID, &a.CampaignID, &a.Status, &a.RequestedBy, &a.ReviewerEmail,
		&a.ShareToken, &a.Feedback, &a.RequestedAt, &a.DecidedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *ApprovalRepository) Create(ctx context.Context, a *model.ApprovalData) error {
	query := `
		INSERT INTO approvals (organization_id, campaign_id, status, requested_by, reviewer_email, share_token)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, requested_at
	`
	return r.DB.QueryRowContext(ctx, query,
		a.OrganizationID, a.CampaignID, a.Status, a.RequestedBy, a.ReviewerEmail, a.ShareToken,
	).Scan(&a.ID, &a.RequestedAt)
}

// Latest returns nil, nil when the campaign was never sent for approval.
func (r *ApprovalRepository) Latest(ctx context.Context, orgID string, campaignID int) (*model.ApprovalData, error) {
	query := `SELECT ` + approvalColumns + ` FROM approvals
		WHERE organization_id=$1 AND campaign_id=$2 ORDER BY id DESC LIMIT 1`
	a, err := scanApproval(r.DB.QueryRowContext(ctx, query, orgID, campaignID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (r *ApprovalRepository) GetByShareToken(ctx context.Context, token string) (*model.ApprovalData, error) {
	query := `SELECT ` + approvalColumns + ` FROM approvals WHERE share_token=$1`
	a, err := scanApproval(r.DB.QueryRowContext(ctx, query, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.NewNotFound("approval", token)
	}
	return a, err
}

func (r *ApprovalRepository) ListByCampaign(ctx context.Context, orgID string, campaignID int) ([]*model.ApprovalData, error) {
	query := `SELECT ` + approvalColumns + ` FROM approvals
		WHERE organization_id=$1 AND campaign_id=$2 ORDER BY id DESC`
	rows, err := r.DB.QueryContext(ctx, query, orgID, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.ApprovalData{}
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *ApprovalRepository) Close(ctx context.Context, id int, status, feedback string) (bool, error) {
	query := `
		UPDATE approvals SET status=$1, feedback=$2, decided_at=NOW()
		WHERE id=$3 AND status='pending'
	`
	res, err := r.DB.ExecContext(ctx, query, status, feedback, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

var _ ApprovalRepositoryInterface = (*ApprovalRepository)(nil)
