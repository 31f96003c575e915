package repository

import (
	"context"
	"database/sql"
	"errors"

	appErrors "github.com/unclebandit/prdesk-backend/internal/errors"
	"github.com/unclebandit/prdesk-backend/internal/model"
)

// ClientRepositoryInterface defines the CRM methods used by services.
type ClientRepositoryInterface interface {
	Create(ctx context.Context, c *model.Client) error
	GetByID(ctx context.Context, orgID string, id int) (*model.Client, error)
	ListAll(ctx context.Context, orgID string) ([]model.Client, error)
	Update(ctx context.Context, c *model.Client) error
	Delete(ctx context.Context, orgID string, id int) error

	CreateProject(ctx context.Context, p *model.Project) error
	GetProject(ctx context.Context, orgID string, id int) (*model.Project, error)
	ListProjects(ctx context.Context, orgID string, clientID int) ([]model.Project, error)
	UpdateProject(ctx context.Context, p *model.Project) error
}

// ClientRepository is the concrete implementation.
type ClientRepository struct {
	DB *sql.DB
}

func (r *ClientRepository) Create(ctx context.Context, c *model.Client) error {
	query := `
		INSERT INTO clients (organization_id, name, email, company, website)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	return r.DB.QueryRowContext(ctx, query, c.OrganizationID, c.Name, c.Email, c.Company, c.Website).
		Scan(&c.ID, &c.CreatedAt)
}

// GetByID fetches a client by ID
func (r *ClientRepository) GetByID(ctx context.Context, orgID string, id int) (*model.Client, error) {
	query := `
		SELECT id, organization_id, name, email, company, website, created_at, updated_at
		FROM clients
		WHERE organization_id = $1 AND id = $2
	`
	var c model.Client
	err := r.DB.QueryRowContext(ctx, query, orgID, id).
		Scan(&c.ID, &c.OrganizationID, &c.Name, &c.Email, &c.Company, &c.Website, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewNotFound("client", id)
		}
		return nil, err
	}
	return &c, nil
}

// ListAll fetches every client of the organization ordered by name.
func (r *ClientRepository) ListAll(ctx context.Context, orgID string) ([]model.Client, error) {
	query := `
		SELECT id, organization_id, name, email, company, website, created_at, updated_at
		FROM clients
		WHERE organization_id = $1
		ORDER BY name
	`
	rows, err := r.DB.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clients := []model.Client{}
	for rows.Next() {
		var c model.Client
		if err := rows.Scan(&c.ID, &c.OrganizationID, &c.Name, &c.Email, &c.Company, &c.Website, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (r *ClientRepository) Update(ctx context.Context, c *model.Client) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE clients SET name=$1, email=$2, company=$3, website=$4, updated_at=NOW()
		WHERE organization_id=$5 AND id=$6`,
		c.Name, c.Email, c.Company, c.Website, c.OrganizationID, c.ID,
	)
	if err != nil {
		return err
	}
	return expectOne(res, appErrors.NewNotFound("client", c.ID))
}

func (r *ClientRepository) Delete(ctx context.Context, orgID string, id int) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM clients WHERE organization_id=$1 AND id=$2`, orgID, id)
	if err != nil {
		return err
	}
	return expectOne(res, appErrors.NewNotFound("client", id))
}

// ====================== Projects ======================

func (r *ClientRepository) CreateProject(ctx context.Context, p *model.Project) error {
	if p.Status == "" {
		p.Status = model.ProjectActive
	}
	query := `
		INSERT INTO projects (organization_id, client_id, name, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	return r.DB.QueryRowContext(ctx, query, p.OrganizationID, p.ClientID, p.Name, p.Status).Scan(&p.ID, &p.CreatedAt)
}

func (r *ClientRepository) GetProject(ctx context.Context, orgID string, id int) (*model.Project, error) {
	query := `
		SELECT id, organization_id, client_id, name, status, created_at, updated_at
		FROM projects WHERE organization_id=$1 AND id=$2
	`
	var p model.Project
	err := r.DB.QueryRowContext(ctx, query, orgID, id).
		Scan(&p.ID, &p.OrganizationID, &p.ClientID, &p.Name, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewNotFound("project", id)
		}
		return nil, err
	}
	return &p, nil
}

func (r *ClientRepository) ListProjects(ctx context.Context, orgID string, clientID int) ([]model.Project, error) {
	query := `
		SELECT id, organization_id, client_id, name, status, created_at, updated_at
		FROM projects WHERE organization_id=$1 AND client_id=$2 ORDER BY name
	`
	rows, err := r.DB.QueryContext(ctx, query, orgID, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := []model.Project{}
	for rows.Next() {
		var p model.Project
		if err := rows.Scan(&p.ID, &p.OrganizationID, &p.ClientID, &p.Name, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *ClientRepository) UpdateProject(ctx context.Context, p *model.Project) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE projects SET name=$1, status=$2, updated_at=NOW()
		WHERE organization_id=$3 AND id=$4`,
		p.Name, p.Status, p.OrganizationID, p.ID,
	)
	if err != nil {
		return err
	}
	return expectOne(res, appErrors.NewNotFound("project", p.ID))
}

var _ ClientRepositoryInterface = (*ClientRepository)(nil)
