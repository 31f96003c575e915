package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	appErrors "github.com/unclebandit/prdesk-backend/internal/errors"
	"github.com/unclebandit/prdesk-backend/internal/model"
)

type BoilerplateRepositoryInterface interface {
	Create(ctx context.Context, s *model.BoilerplateSection) error
	GetByID(ctx context.Context, orgID string, id int) (*model.BoilerplateSection, error)
	List(ctx context.Context, orgID, category string, clientID *int) ([]*model.BoilerplateSection, error)
	Update(ctx context.Context, s *model.BoilerplateSection) error
	Delete(ctx context.Context, orgID string, id int) error

	ListForCampaign(ctx context.Context, campaignID int) ([]model.CampaignBoilerplate, error)
	ReplaceForCampaign(ctx context.Context, campaignID int, items []model.CampaignBoilerplate) error
}

type BoilerplateRepository struct {
	DB *sql.DB
}

const sectionColumns = `id, organization_id, name, category, content, is_global, client_id, created_at, updated_at`

func scanSection(row rowScanner) (*model.BoilerplateSection, error) {
	var s model.BoilerplateSection
	var clientID sql.NullInt64
	if err := row.Scan(&s.ID, &s.OrganizationID, &s.Name, &s.Category, &s.Content, &s.IsGlobal,
		&clientID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.ClientID = intPtr(clientID)
	return &s, nil
}

func (r *BoilerplateRepository) Create(ctx context.Context, s *model.BoilerplateSection) error {
	query := `
		INSERT INTO boilerplate_sections (organization_id, name, category, content, is_global, client_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	return r.DB.QueryRowContext(ctx, query,
		s.OrganizationID, s.Name, s.Category, s.Content, s.IsGlobal, s.ClientID,
	).Scan(&s.ID, &s.CreatedAt)
}

func (r *BoilerplateRepository) GetByID(ctx context.Context, orgID string, id int) (*model.BoilerplateSection, error) {
	query := `SELECT ` + sectionColumns + ` FROM boilerplate_sections WHERE organization_id=$1 AND id=$2`
	s, err := scanSection(r.DB.QueryRowContext(ctx, query, orgID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.NewNotFound("boilerplate section", id)
	}
	return s, err
}

// List returns global sections plus, when clientID is set, that client's sections.
func (r *BoilerplateRepository) List(ctx context.Context, orgID, category string, clientID *int) ([]*model.BoilerplateSection, error) {
	query := `SELECT ` + sectionColumns + ` FROM boilerplate_sections WHERE organization_id=$1`
	args := []any{orgID}
	argPos := 2
	if clientID != nil {
		query += fmt.Sprintf(" AND (is_global OR client_id=$%d)", argPos)
		args = append(args, *clientID)
		argPos++
	} else {
		query += " AND is_global"
	}
	if category != "" {
		query += fmt.Sprintf(" AND category=$%d", argPos)
		args = append(args, category)
	}
	query += " ORDER BY name"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.BoilerplateSection{}
	for rows.Next() {
		s, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *BoilerplateRepository) Update(ctx context.Context, s *model.BoilerplateSection) error {
	query := `
		UPDATE boilerplate_sections
		SET name=$1, category=$2, content=$3, is_global=$4, client_id=$5, updated_at=NOW()
		WHERE organization_id=$6 AND id=$7
	`
	res, err := r.DB.ExecContext(ctx, query, s.Name, s.Category, s.Content, s.IsGlobal, s.ClientID, s.OrganizationID, s.ID)
	if err != nil {
		return err
	}
	return expectOne(res, appErrors.NewNotFound("boilerplate section", s.ID))
}

func (r *BoilerplateRepository) Delete(ctx context.Context, orgID string, id int) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM boilerplate_sections WHERE organization_id=$1 AND id=$2`, orgID, id)
	if err != nil {
		return err
	}
	return expectOne(res, appErrors.NewNotFound("boilerplate section", id))
}

func (r *BoilerplateRepository) ListForCampaign(ctx context.Context, campaignID int) ([]model.CampaignBoilerplate, error) {
	query := `
		SELECT cb.campaign_id, cb.section_id, cb.position, cb.custom_content,
			s.id, s.organization_id, s.name, s.category, s.content, s.is_global, s.client_id, s.created_at, s.updated_at
		FROM campaign_boilerplates cb
		JOIN boilerplate_sections s ON s.id = cb.section_id
		WHERE cb.campaign_id=$1
		ORDER BY cb.position
	`
	rows, err := r.DB.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.CampaignBoilerplate{}
	for rows.Next() {
		var cb model.CampaignBoilerplate
		var custom sql.NullString
		var s model.BoilerplateSection
		var clientID sql.NullInt64
		if err := rows.Scan(&cb.CampaignID, &cb.SectionID, &cb.Position, &custom,
			&s.ID, &s.OrganizationID, &s.Name, &s.Category, &s.Content, &s.IsGlobal, &clientID, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		if custom.Valid {
			v := custom.String
			cb.CustomContent = &v
		}
		s.ClientID = intPtr(clientID)
		cb.Section = &s
		out = append(out, cb)
	}
	return out, rows.Err()
}

func (r *BoilerplateRepository) ReplaceForCampaign(ctx context.Context, campaignID int, items []model.CampaignBoilerplate) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM campaign_boilerplates WHERE campaign_id=$1`, campaignID); err != nil {
		return err
	}
	for _, it := range items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO campaign_boilerplates (campaign_id, section_id, position, custom_content) VALUES ($1, $2, $3, $4)`,
			campaignID, it.SectionID, it.Position, it.CustomContent,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

var _ BoilerplateRepositoryInterface = (*BoilerplateRepository)(nil)
