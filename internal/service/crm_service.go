// internal/service/crm_service.go
package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	appErrors "github.com/unclebandit/prdesk-backend/internal/errors"
	"github.com/unclebandit/prdesk-backend/internal/model"
	"github.com/unclebandit/prdesk-backend/internal/repository"
)

type CRMService struct {
	ClientRepo   repository.ClientRepositoryInterface
	CampaignRepo repository.CampaignRepositoryInterface
}

type ClientInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company"`
	Website string `json:"website"`
}

type ProjectInput struct {
	Name string `json:"name"`
}

func (in ClientInput) validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "name is required"
	}
	if email := strings.TrimSpace(in.Email); email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			fields["email"] = "invalid email address"
		}
	}
	if len(fields) > 0 {
		return appErrors.ValidationFields(fields)
	}
	return nil
}

func (s *CRMService) CreateClient(ctx context.Context, actor model.Actor, in ClientInput) (*model.Client, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	c := &model.Client{
		OrganizationID: actor.OrganizationID,
		Name:           strings.TrimSpace(in.Name),
		Email:          strings.TrimSpace(in.Email),
		Company:        strings.TrimSpace(in.Company),
		Website:        strings.TrimSpace(in.Website),
	}
	if err := s.ClientRepo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return c, nil
}

func (s *CRMService) ListClients(ctx context.Context, actor model.Actor) ([]model.Client, error) {
	return s.ClientRepo.ListAll(ctx, actor.OrganizationID)
}

func (s *CRMService) GetClient(ctx context.Context, actor model.Actor, id int) (*model.Client, error) {
	return s.ClientRepo.GetByID(ctx, actor.OrganizationID, id)
}

func (s *CRMService) UpdateClient(ctx context.Context, actor model.Actor, id int, in ClientInput) (*model.Client, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	c, err := s.ClientRepo.GetByID(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	c.Name = strings.TrimSpace(in.Name)
	c.Email = strings.TrimSpace(in.Email)
	c.Company = strings.TrimSpace(in.Company)
	c.Website = strings.TrimSpace(in.Website)
	if err := s.ClientRepo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("update client: %w", err)
	}
	return c, nil
}

// DeleteClient is refused while any campaign still references the client.
func (s *CRMService) DeleteClient(ctx context.Context, actor model.Actor, id int) error {
	if _, err := s.ClientRepo.GetByID(ctx, actor.OrganizationID, id); err != nil {
		return err
	}
	n, err := s.CampaignRepo.CountByClient(ctx, actor.OrganizationID, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return appErrors.Conflict(fmt.Sprintf("client is referenced by %d campaign(s)", n))
	}
	return s.ClientRepo.Delete(ctx, actor.OrganizationID, id)
}

// ====================== Projects ======================

func (s *CRMService) CreateProject(ctx context.Context, actor model.Actor, clientID int, in ProjectInput) (*model.Project, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, appErrors.ValidationFields(map[string]string{"name": "name is required"})
	}
	if _, err := s.ClientRepo.GetByID(ctx, actor.OrganizationID, clientID); err != nil {
		return nil, err
	}
	p := &model.Project{
		OrganizationID: actor.OrganizationID,
		ClientID:       clientID,
		Name:           strings.TrimSpace(in.Name),
		Status:         model.ProjectActive,
	}
	if err := s.ClientRepo.CreateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return p, nil
}

func (s *CRMService) ListProjects(ctx context.Context, actor model.Actor, clientID int) ([]model.Project, error) {
	if _, err := s.ClientRepo.GetByID(ctx, actor.OrganizationID, clientID); err != nil {
		return nil, err
	}
	return s.ClientRepo.ListProjects(ctx, actor.OrganizationID, clientID)
}

func (s *CRMService) GetProject(ctx context.Context, actor model.Actor, id int) (*model.Project, error) {
	return s.ClientRepo.GetProject(ctx, actor.OrganizationID, id)
}

func (s *CRMService) UpdateProject(ctx context.Context, actor model.Actor, id int, in ProjectInput) (*model.Project, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, appErrors.ValidationFields(map[string]string{"name": "name is required"})
	}
	p, err := s.ClientRepo.GetProject(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	p.Name = strings.TrimSpace(in.Name)
	if err := s.ClientRepo.UpdateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	return p, nil
}

func (s *CRMService) ArchiveProject(ctx context.Context, actor model.Actor, id int) (*model.Project, error) {
	p, err := s.ClientRepo.GetProject(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if p.Status == model.ProjectArchived {
		return p, nil
	}
	p.Status = model.ProjectArchived
	if err := s.ClientRepo.UpdateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("archive project: %w", err)
	}
	return p, nil
}
