package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	appErrors "github.com/unclebandit/prdesk-backend/internal/errors"
	"github.com/unclebandit/prdesk-backend/internal/model"
)

type AssetRepositoryInterface interface {
	Create(ctx context.Context, a *model.Asset) error
	GetByID(ctx context.Context, orgID string, id int) (*model.Asset, error)
	List(ctx context.Context, orgID string, offset, limit int, f model.AssetFilter) ([]*model.Asset, int, error)
	Delete(ctx context.Context, orgID string, id int) error
	// CountActiveAttachments counts attachments on campaigns that are not archived.
	CountActiveAttachments(ctx context.Context, assetID int) (int, error)

	// Attachments
	ListAttachments(ctx context.Context, campaignID int) ([]*model.AssetAttachment, error)
	Attach(ctx context.Context, att *model.AssetAttachment) error
	Detach(ctx context.Context, campaignID, attachmentID int) error
	Reorder(ctx context.Context, campaignID int, attachmentIDs []int) error
}

type AssetRepository struct {
	DB *sql.DB
}

const assetColumns = `id, organization_id, client_id, file_name, content_type, size_bytes, storage_key, tags, created_by, created_at`

func scanAsset(row rowScanner) (*model.Asset, error) {
	var a model.Asset
	var clientID sql.NullInt64
	if err := row.Scan(&a.ID, &a.OrganizationID, &clientID, &a.FileName, &a.ContentType, &a.SizeBytes,
		&a.StorageKey, pq.Array(&a.Tags), &a.CreatedBy, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.ClientID = intPtr(clientID)
	if a.Tags == nil {
		a.Tags = []string{}
	}
	return &a, nil
}

func (r *AssetRepository) Create(ctx context.Context, a *model.Asset) error {
	if a.Tags == nil {
		a.Tags = []string{}
	}
	query := `
		INSERT INTO assets (organization_id, client_id, file_name, content_type, size_bytes, storage_key, tags, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	return r.DB.QueryRowContext(ctx, query,
		a.OrganizationID, a.ClientID, a.FileName, a.ContentType, a.SizeBytes, a.StorageKey, pq.Array(a.Tags), a.CreatedBy,
	).Scan(&a.ID, &a.CreatedAt)
}

func (r *AssetRepository) GetByID(ctx context.Context, orgID string, id int) (*model.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE organization_id=$1 AND id=$2`
	a, err := scanAsset(r.DB.QueryRowContext(ctx, query, orgID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.NewNotFound("asset", id)
	}
	return a, err
}

func (r *AssetRepository) List(ctx context.Context, orgID string, offset, limit int, f model.AssetFilter) ([]*model.Asset, int, error) {
	where := ` WHERE organization_id=$1`
	args := []any{orgID}
	argPos := 2

	if f.ContentTypePrefix != "" {
		where += fmt.Sprintf(" AND content_type LIKE $%d", argPos)
		args = append(args, f.ContentTypePrefix+"%")
		argPos++
	}
	if f.ClientID != nil {
		where += fmt.Sprintf(" AND client_id=$%d", argPos)
		args = append(args, *f.ClientID)
		argPos++
	}
	if f.Tag != "" {
		where += fmt.Sprintf(" AND $%d = ANY(tags)", argPos)
		args = append(args, f.Tag)
		argPos++
	}
	if f.Search != "" {
		where += fmt.Sprintf(" AND file_name ILIKE $%d", argPos)
		args = append(args, "%"+f.Search+"%")
		argPos++
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM assets`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + assetColumns + ` FROM assets` + where +
		fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	assets := []*model.Asset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, 0, err
		}
		assets = append(assets, a)
	}
	return assets, total, rows.Err()
}

func (r *AssetRepository) Delete(ctx context.Context, orgID string, id int) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM assets WHERE organization_id=$1 AND id=$2`, orgID, id)
	if err != nil {
		return err
	}
	return expectOne(res, appErrors.NewNotFound("asset", id))
}

func (r *AssetRepository) CountActiveAttachments(ctx context.Context, assetID int) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM asset_attachments aa
		JOIN campaigns c ON c.id = aa.campaign_id
		WHERE aa.asset_id=$1 AND c.status <> 'archived'`, assetID,
	).Scan(&n)
	return n, err
}

// ====================== Attachments ======================

func (r *AssetRepository) ListAttachments(ctx context.Context, campaignID int) ([]*model.AssetAttachment, error) {
	query := `
		SELECT aa.id, aa.campaign_id, aa.asset_id, aa.position, aa.caption, aa.created_at,
			a.id, a.organization_id, a.client_id, a.file_name, a.content_type, a.size_bytes, a.storage_key, a.tags, a.created_by, a.created_at
		FROM asset_attachments aa
		JOIN assets a ON a.id = aa.asset_id
		WHERE aa.campaign_id=$1
		ORDER BY aa.position
	`
	rows, err := r.DB.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.AssetAttachment{}
	for rows.Next() {
		var att model.AssetAttachment
		var a model.Asset
		var clientID sql.NullInt64
		if err := rows.Scan(&att.ID, &att.CampaignID, &att.AssetID, &att.Position, &att.Caption, &att.CreatedAt,
			&a.ID, &a.OrganizationID, &clientID, &a.FileName, &a.ContentType, &a.SizeBytes, &a.StorageKey,
			pq.Array(&a.Tags), &a.CreatedBy, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.ClientID = intPtr(clientID)
		att.Asset = &a
		out = append(out, &att)
	}
	return out, rows.Err()
}

// Attach appends the asset at the end of the campaign's attachment list.
func (r *AssetRepository) Attach(ctx context.Context, att *model.AssetAttachment) error {
	query := `
		INSERT INTO asset_attachments (campaign_id, asset_id, position, caption)
		VALUES ($1, $2, (SELECT COALESCE(MAX(position) + 1, 0) FROM asset_attachments WHERE campaign_id=$1), $3)
		RETURNING id, position, created_at
	`
	err := r.DB.QueryRowContext(ctx, query, att.CampaignID, att.AssetID, att.Caption).
		Scan(&att.ID, &att.Position, &att.CreatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return appErrors.Conflict("asset is already attached to this campaign")
	}
	return err
}

func (r *AssetRepository) Detach(ctx context.Context, campaignID, attachmentID int) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM asset_attachments WHERE campaign_id=$1 AND id=$2`, campaignID, attachmentID)
	if err != nil {
		return err
	}
	return expectOne(res, appErrors.NewNotFound("attachment", attachmentID))
}

// Reorder sets position i for attachmentIDs[i].
func (r *AssetRepository) Reorder(ctx context.Context, campaignID int, attachmentIDs []int) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for pos, id := range attachmentIDs {
		if _, err := tx.ExecContext(ctx,
			`UPDATE asset_attachments SET position=$1 WHERE campaign_id=$2 AND id=$3`, pos, campaignID, id,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

var _ AssetRepositoryInterface = (*AssetRepository)(nil)
