package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	appErrors "github.com/unclebandit/prdesk-backend/internal/errors"
	"github.com/unclebandit/prdesk-backend/internal/model"
)

// ErrStale is returned by guarded writes that matched no row: the campaign
// changed status or lock holder since it was read, or no longer exists.
var ErrStale = errors.New("campaign changed since it was read")

// Guard is the state a conditional campaign write expects to find.
type Guard struct {
	Status string
	// Editor must hold the edit lock or find it free. Empty skips the lock check.
	Editor string
}

type CampaignRepositoryInterface interface {
	Create(ctx context.Context, c *model.Campaign) error
	GetByID(ctx context.Context, orgID string, id int) (*model.Campaign, error)
	List(ctx context.Context, orgID string, offset, limit int, f model.CampaignFilter) ([]*model.Campaign, int, error)
	Update(ctx context.Context, c *model.Campaign, g Guard) error
	SetStatus(ctx context.Context, orgID string, id int, g Guard, status string) error
	SetPDFKey(ctx context.Context, orgID string, id int, key string) error
	Delete(ctx context.Context, orgID string, id int) error

	// Edit lock
	TryLock(ctx context.Context, orgID string, id int, holder, reason string) (bool, error)
	Unlock(ctx context.Context, orgID string, id int, holder string) (bool, error)

	// Review moves a draft or changes_requested campaign to in_review and
	// hands the edit lock to the system holder in one statement.
	EnterReview(ctx context.Context, orgID string, id int, editor, reason string) error
	// LeaveReview moves an in_review campaign to status and releases the lock.
	LeaveReview(ctx context.Context, orgID string, id int, status string) error

	// ClaimDue marks due scheduled campaigns as sent and returns them. A
	// campaign is claimed by exactly one caller.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*model.Campaign, error)
	CountByClient(ctx context.Context, orgID string, clientID int) (int, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, organization_id, title, summary, content, status, client_id, project_id,
	requires_approval, edit_locked, locked_by, locked_reason, locked_at, scheduled_at, sent_at,
	pdf_storage_key, created_by, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (*model.Campaign, error) {
	var c model.Campaign
	var clientID, projectID sql.NullInt64
	err := row.Scan(
		&c.ID, &c.OrganizationID, &c.Title, &c.Summary, &c.Content, &c.Status, &clientID, &projectID,
		&c.RequiresApproval, &c.EditLocked, &c.LockedBy, &c.LockedReason, &c.LockedAt, &c.ScheduledAt, &c.SentAt,
		&c.PDFStorageKey, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.ClientID = intPtr(clientID)
	c.ProjectID = intPtr(projectID)
	return &c, nil
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

// ====================== Campaign CRUD ======================

func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) error {
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.StatusDraft
	}
	query := `
		INSERT INTO campaigns (organization_id, title, summary, content, status, client_id, project_id,
			requires_approval, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		c.OrganizationID, c.Title, c.Summary, c.Content, c.Status, c.ClientID, c.ProjectID,
		c.RequiresApproval, c.CreatedBy, c.CreatedAt,
	).Scan(&c.ID)
}

func (r *CampaignRepository) GetByID(ctx context.Context, orgID string, id int) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE organization_id=$1 AND id=$2`
	c, err := scanCampaign(r.DB.QueryRowContext(ctx, query, orgID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return c, nil
}

func (r *CampaignRepository) List(ctx context.Context, orgID string, offset, limit int, f model.CampaignFilter) ([]*model.Campaign, int, error) {
	where := ` WHERE organization_id=$1`
	args := []any{orgID}
	argPos := 2

	if f.Status != "" {
		where += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, f.Status)
		argPos++
	}
	if f.ClientID != nil {
		where += fmt.Sprintf(" AND client_id=$%d", argPos)
		args = append(args, *f.ClientID)
		argPos++
	}
	if f.Search != "" {
		where += fmt.Sprintf(" AND (title ILIKE $%d OR summary ILIKE $%d)", argPos, argPos)
		args = append(args, "%"+f.Search+"%")
		argPos++
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM campaigns`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + campaignColumns + ` FROM campaigns` + where +
		fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, total, rows.Err()
}

// Update writes the editable fields, status and schedule. It only applies
// when the row still has g.Status and the lock is free or held by g.Editor.
func (r *CampaignRepository) Update(ctx context.Context, c *model.Campaign, g Guard) error {
	query := `
		UPDATE campaigns
		SET title=$1, summary=$2, content=$3, status=$4, client_id=$5, project_id=$6,
			requires_approval=$7, scheduled_at=$8, sent_at=$9, updated_at=NOW()
		WHERE organization_id=$10 AND id=$11 AND status=$12
			AND ($13::text='' OR edit_locked=FALSE OR locked_by=$13)
	`
	res, err := r.DB.ExecContext(ctx, query,
		c.Title, c.Summary, c.Content, c.Status, c.ClientID, c.ProjectID,
		c.RequiresApproval, c.ScheduledAt, c.SentAt, c.OrganizationID, c.ID,
		g.Status, g.Editor,
	)
	if err != nil {
		return err
	}
	return expectOne(res, ErrStale)
}

func (r *CampaignRepository) SetStatus(ctx context.Context, orgID string, id int, g Guard, status string) error {
	query := `
		UPDATE campaigns SET status=$1, updated_at=NOW()
		WHERE organization_id=$2 AND id=$3 AND status=$4
			AND ($5::text='' OR edit_locked=FALSE OR locked_by=$5)
	`
	res, err := r.DB.ExecContext(ctx, query, status, orgID, id, g.Status, g.Editor)
	if err != nil {
		return err
	}
	return expectOne(res, ErrStale)
}

// SetPDFKey records the storage key of the latest rendered PDF.
func (r *CampaignRepository) SetPDFKey(ctx context.Context, orgID string, id int, key string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE campaigns SET pdf_storage_key=$1 WHERE organization_id=$2 AND id=$3`, key, orgID, id)
	if err != nil {
		return err
	}
	return expectOne(res, appErrors.NewCampaignNotFound(id))
}

func (r *CampaignRepository) Delete(ctx context.Context, orgID string, id int) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM campaigns WHERE organization_id=$1 AND id=$2`, orgID, id)
	if err != nil {
		return err
	}
	return expectOne(res, appErrors.NewCampaignNotFound(id))
}

// ====================== Edit lock ======================

// TryLock takes the lock when it is free or already held by holder.
func (r *CampaignRepository) TryLock(ctx context.Context, orgID string, id int, holder, reason string) (bool, error) {
	query := `
		UPDATE campaigns
		SET edit_locked=TRUE, locked_by=$1, locked_reason=$2, locked_at=NOW()
		WHERE organization_id=$3 AND id=$4 AND (edit_locked=FALSE OR locked_by=$1)
	`
	res, err := r.DB.ExecContext(ctx, query, holder, reason, orgID, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *CampaignRepository) Unlock(ctx context.Context, orgID string, id int, holder string) (bool, error) {
	query := `
		UPDATE campaigns
		SET edit_locked=FALSE, locked_by='', locked_reason='', locked_at=NULL
		WHERE organization_id=$1 AND id=$2 AND (edit_locked=FALSE OR locked_by=$3)
	`
	res, err := r.DB.ExecContext(ctx, query, orgID, id, holder)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *CampaignRepository) EnterReview(ctx context.Context, orgID string, id int, editor, reason string) error {
	query := `
		UPDATE campaigns
		SET status='in_review', edit_locked=TRUE, locked_by=$1, locked_reason=$2, locked_at=NOW(), updated_at=NOW()
		WHERE organization_id=$3 AND id=$4 AND status IN ('draft', 'changes_requested')
			AND (edit_locked=FALSE OR locked_by=$5)
	`
	res, err := r.DB.ExecContext(ctx, query, model.LockHolderSystem, reason, orgID, id, editor)
	if err != nil {
		return err
	}
	return expectOne(res, ErrStale)
}

func (r *CampaignRepository) LeaveReview(ctx context.Context, orgID string, id int, status string) error {
	query := `
		UPDATE campaigns
		SET status=$1, edit_locked=FALSE, locked_by='', locked_reason='', locked_at=NULL, updated_at=NOW()
		WHERE organization_id=$2 AND id=$3 AND status='in_review'
	`
	res, err := r.DB.ExecContext(ctx, query, status, orgID, id)
	if err != nil {
		return err
	}
	return expectOne(res, ErrStale)
}

// ====================== Scheduling ======================

// ClaimDue uses SKIP LOCKED so concurrent schedulers split the due set.
func (r *CampaignRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*model.Campaign, error) {
	query := `
		UPDATE campaigns SET status='sent', sent_at=$1, updated_at=NOW()
		WHERE id IN (
			SELECT id FROM campaigns
			WHERE status='scheduled' AND scheduled_at <= $1
			ORDER BY scheduled_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		) AND status='scheduled'
		RETURNING ` + campaignColumns
	rows, err := r.DB.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	claimed := []*model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		claimed = append(claimed, c)
	}
	return claimed, rows.Err()
}

func (r *CampaignRepository) CountByClient(ctx context.Context, orgID string, clientID int) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM campaigns WHERE organization_id=$1 AND client_id=$2`, orgID, clientID,
	).Scan(&n)
	return n, err
}

func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
