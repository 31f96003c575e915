// internal/service/boilerplate_service.go
package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	appErrors "github.com/unclebandit/prdesk-backend/internal/errors"
	"github.com/unclebandit/prdesk-backend/internal/model"
	"github.com/unclebandit/prdesk-backend/internal/repository"
)

var (
	sectionCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prdesk_boilerplate_cache_hits_total",
		Help: "Boilerplate section cache hits.",
	})
	sectionCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prdesk_boilerplate_cache_misses_total",
		Help: "Boilerplate section cache misses.",
	})
)

// SectionCache is an expiring LRU of boilerplate sections keyed by organization and ID.
type SectionCache struct {
	lru *expirable.LRU[string, *model.BoilerplateSection]
}

func NewSectionCache(size int, ttl time.Duration) *SectionCache {
	return &SectionCache{lru: expirable.NewLRU[string, *model.BoilerplateSection](size, nil, ttl)}
}

func sectionKey(orgID string, id int) string {
	return orgID + "/" + strconv.Itoa(id)
}

func (c *SectionCache) get(orgID string, id int) (*model.BoilerplateSection, bool) {
	s, ok := c.lru.Get(sectionKey(orgID, id))
	if ok {
		sectionCacheHits.Inc()
		return s, true
	}
	sectionCacheMisses.Inc()
	return nil, false
}

func (c *SectionCache) set(s *model.BoilerplateSection) {
	c.lru.Add(sectionKey(s.OrganizationID, s.ID), s)
}

func (c *SectionCache) remove(orgID string, id int) {
	c.lru.Remove(sectionKey(orgID, id))
}

type BoilerplateService struct {
	Repo         repository.BoilerplateRepositoryInterface
	CampaignRepo repository.CampaignRepositoryInterface
	ClientRepo   repository.ClientRepositoryInterface
	Cache        *SectionCache
}

type SectionInput struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Content  string `json:"content"`
	ClientID *int   `json:"client_id"`
}

// SectionPlacement is one entry of a campaign's ordered boilerplate list.
type SectionPlacement struct {
	SectionID     int     `json:"section_id"`
	CustomContent *string `json:"custom_content"`
}

func (in SectionInput) validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "name is required"
	}
	if strings.TrimSpace(in.Content) == "" {
		fields["content"] = "content is required"
	}
	if len(fields) > 0 {
		return appErrors.ValidationFields(fields)
	}
	return nil
}

func (s *BoilerplateService) checkClient(ctx context.Context, orgID string, clientID *int) error {
	if clientID == nil || s.ClientRepo == nil {
		return nil
	}
	_, err := s.ClientRepo.GetByID(ctx, orgID, *clientID)
	return err
}

// CreateSection stores a section. Sections without a client are global.
func (s *BoilerplateService) CreateSection(ctx context.Context, actor model.Actor, in SectionInput) (*model.BoilerplateSection, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.checkClient(ctx, actor.OrganizationID, in.ClientID); err != nil {
		return nil, err
	}
	sec := &model.BoilerplateSection{
		OrganizationID: actor.OrganizationID,
		Name:           strings.TrimSpace(in.Name),
		Category:       strings.TrimSpace(in.Category),
		Content:        in.Content,
		IsGlobal:       in.ClientID == nil,
		ClientID:       in.ClientID,
	}
	if err := s.Repo.Create(ctx, sec); err != nil {
		return nil, fmt.Errorf("create section: %w", err)
	}
	return sec, nil
}

func (s *BoilerplateService) GetSection(ctx context.Context, actor model.Actor, id int) (*model.BoilerplateSection, error) {
	if s.Cache != nil {
		if sec, ok := s.Cache.get(actor.OrganizationID, id); ok {
			return sec, nil
		}
	}
	sec, err := s.Repo.GetByID(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if s.Cache != nil {
		s.Cache.set(sec)
	}
	return sec, nil
}

func (s *BoilerplateService) ListSections(ctx context.Context, actor model.Actor, category string, clientID *int) ([]*model.BoilerplateSection, error) {
	return s.Repo.List(ctx, actor.OrganizationID, strings.TrimSpace(category), clientID)
}

func (s *BoilerplateService) UpdateSection(ctx context.Context, actor model.Actor, id int, in SectionInput) (*model.BoilerplateSection, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.checkClient(ctx, actor.OrganizationID, in.ClientID); err != nil {
		return nil, err
	}
	sec, err := s.Repo.GetByID(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	sec.Name = strings.TrimSpace(in.Name)
	sec.Category = strings.TrimSpace(in.Category)
	sec.Content = in.Content
	sec.ClientID = in.ClientID
	sec.IsGlobal = in.ClientID == nil
	if err := s.Repo.Update(ctx, sec); err != nil {
		return nil, fmt.Errorf("update section: %w", err)
	}
	if s.Cache != nil {
		s.Cache.remove(actor.OrganizationID, id)
	}
	return sec, nil
}

func (s *BoilerplateService) DeleteSection(ctx context.Context, actor model.Actor, id int) error {
	if err := s.Repo.Delete(ctx, actor.OrganizationID, id); err != nil {
		return err
	}
	if s.Cache != nil {
		s.Cache.remove(actor.OrganizationID, id)
	}
	return nil
}

func (s *BoilerplateService) CampaignSections(ctx context.Context, actor model.Actor, campaignID int) ([]model.CampaignBoilerplate, error) {
	if _, err := s.CampaignRepo.GetByID(ctx, actor.OrganizationID, campaignID); err != nil {
		return nil, err
	}
	return s.Repo.ListForCampaign(ctx, campaignID)
}

// SetCampaignSections replaces the campaign's section list. Positions follow request order.
func (s *BoilerplateService) SetCampaignSections(ctx context.Context, actor model.Actor, campaignID int, placements []SectionPlacement) ([]model.CampaignBoilerplate, error) {
	c, err := s.CampaignRepo.GetByID(ctx, actor.OrganizationID, campaignID)
	if err != nil {
		return nil, err
	}
	if err := CheckEditable(c, actor.UserID); err != nil {
		return nil, err
	}

	seen := map[int]bool{}
	items := make([]model.CampaignBoilerplate, 0, len(placements))
	for i, p := range placements {
		if seen[p.SectionID] {
			return nil, appErrors.Validation(fmt.Sprintf("section %d is listed twice", p.SectionID))
		}
		seen[p.SectionID] = true

		sec, err := s.GetSection(ctx, actor, p.SectionID)
		if err != nil {
			return nil, err
		}
		if !sec.IsGlobal && (c.ClientID == nil || sec.ClientID == nil || *sec.ClientID != *c.ClientID) {
			return nil, appErrors.Validation(fmt.Sprintf("section %d belongs to another client", p.SectionID))
		}
		items = append(items, model.CampaignBoilerplate{
			CampaignID:    campaignID,
			SectionID:     p.SectionID,
			Position:      i,
			CustomContent: p.CustomContent,
			Section:       sec,
		})
	}

	if err := s.Repo.ReplaceForCampaign(ctx, campaignID, items); err != nil {
		return nil, fmt.Errorf("set campaign sections: %w", err)
	}
	return items, nil
}
