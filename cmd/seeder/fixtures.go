// cmd/seeder/fixtures.go
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/unclebandit/prdesk-backend/internal/model"
	"github.com/unclebandit/prdesk-backend/internal/repository"
	"github.com/unclebandit/prdesk-backend/internal/service"
)

type fixtures struct {
	Organization string               `yaml:"organization"`
	User         string               `yaml:"user"`
	Boilerplate  []boilerplateFixture `yaml:"boilerplate"`
	Clients      []clientFixture      `yaml:"clients"`
}

type boilerplateFixture struct {
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
	Content  string `yaml:"content"`
}

type clientFixture struct {
	Name      string            `yaml:"name"`
	Email     string            `yaml:"email"`
	Company   string            `yaml:"company"`
	Website   string            `yaml:"website"`
	Projects  []string          `yaml:"projects"`
	Campaigns []campaignFixture `yaml:"campaigns"`
}

type campaignFixture struct {
	Title            string   `yaml:"title"`
	Summary          string   `yaml:"summary"`
	Content          string   `yaml:"content"`
	Project          string   `yaml:"project"`
	RequiresApproval *bool    `yaml:"requires_approval"`
	Sections         []string `yaml:"sections"`
}

func parseFixtures(raw []byte) (*fixtures, error) {
	var fx fixtures
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	if strings.TrimSpace(fx.Organization) == "" {
		return nil, errors.New("fixtures: organization is required")
	}
	if fx.User == "" {
		fx.User = "seeder"
	}
	for _, c := range fx.Clients {
		projects := map[string]bool{}
		for _, p := range c.Projects {
			projects[p] = true
		}
		for _, camp := range c.Campaigns {
			if camp.Project != "" && !projects[camp.Project] {
				return nil, fmt.Errorf("fixtures: campaign %q references unknown project %q of client %q", camp.Title, camp.Project, c.Name)
			}
		}
	}
	return &fx, nil
}

type seedStats struct {
	clients, projects, sections, campaigns int
}

// seeder writes fixtures through the services so the usual validation applies.
type seeder struct {
	crm         *service.CRMService
	boilerplate *service.BoilerplateService
	campaigns   *service.CampaignService
}

func newSeeder(conn *sql.DB) *seeder {
	campaignRepo := &repository.CampaignRepository{DB: conn}
	clientRepo := &repository.ClientRepository{DB: conn}
	return &seeder{
		crm: &service.CRMService{ClientRepo: clientRepo, CampaignRepo: campaignRepo},
		boilerplate: &service.BoilerplateService{
			Repo:         &repository.BoilerplateRepository{DB: conn},
			CampaignRepo: campaignRepo,
			ClientRepo:   clientRepo,
		},
		campaigns: &service.CampaignService{CampaignRepo: campaignRepo, ClientRepo: clientRepo},
	}
}

func (s *seeder) load(ctx context.Context, fx *fixtures) (seedStats, error) {
	var stats seedStats
	actor := model.Actor{OrganizationID: fx.Organization, UserID: fx.User}

	sections := map[string]int{}
	for _, b := range fx.Boilerplate {
		sec, err := s.boilerplate.CreateSection(ctx, actor, service.SectionInput{Name: b.Name, Category: b.Category, Content: b.Content})
		if err != nil {
			return stats, fmt.Errorf("section %q: %w", b.Name, err)
		}
		sections[b.Name] = sec.ID
		stats.sections++
	}

	for _, cf := range fx.Clients {
		client, err := s.crm.CreateClient(ctx, actor, service.ClientInput{Name: cf.Name, Email: cf.Email, Company: cf.Company, Website: cf.Website})
		if err != nil {
			return stats, fmt.Errorf("client %q: %w", cf.Name, err)
		}
		stats.clients++

		projects := map[string]int{}
		for _, name := range cf.Projects {
			p, err := s.crm.CreateProject(ctx, actor, client.ID, service.ProjectInput{Name: name})
			if err != nil {
				return stats, fmt.Errorf("project %q: %w", name, err)
			}
			projects[name] = p.ID
			stats.projects++
		}

		for _, camp := range cf.Campaigns {
			in := service.CampaignInput{
				Title:            camp.Title,
				Summary:          camp.Summary,
				Content:          camp.Content,
				ClientID:         &client.ID,
				RequiresApproval: camp.RequiresApproval,
			}
			if camp.Project != "" {
				id := projects[camp.Project]
				in.ProjectID = &id
			}
			c, err := s.campaigns.CreateCampaign(ctx, actor, in)
			if err != nil {
				return stats, fmt.Errorf("campaign %q: %w", camp.Title, err)
			}
			stats.campaigns++

			if len(camp.Sections) == 0 {
				continue
			}
			placements := make([]service.SectionPlacement, 0, len(camp.Sections))
			for _, name := range camp.Sections {
				id, ok := sections[name]
				if !ok {
					return stats, fmt.Errorf("campaign %q: unknown boilerplate section %q", camp.Title, name)
				}
				placements = append(placements, service.SectionPlacement{SectionID: id})
			}
			if _, err := s.boilerplate.SetCampaignSections(ctx, actor, c.ID, placements); err != nil {
				return stats, fmt.Errorf("campaign %q sections: %w", camp.Title, err)
			}
		}
	}
	return stats, nil
}
