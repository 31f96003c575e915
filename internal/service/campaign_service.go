// internal/service/campaign_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/prdesk-backend/internal/errors"
	"github.com/unclebandit/prdesk-backend/internal/model"
	"github.com/unclebandit/prdesk-backend/internal/queue"
	"github.com/unclebandit/prdesk-backend/internal/repository"
)

const maxTitleLength = 200

type CampaignService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	ClientRepo   repository.ClientRepositoryInterface
	Queue        queue.Queue
	Log          *zap.Logger
	Now          func() time.Time
}

// CampaignInput is the create payload.
type CampaignInput struct {
	Title            string `json:"title"`
	Summary          string `json:"summary"`
	Content          string `json:"content"`
	ClientID         *int   `json:"client_id"`
	ProjectID        *int   `json:"project_id"`
	RequiresApproval *bool  `json:"requires_approval"`
}

// CampaignPatch holds the fields the editor may change. Nil means unchanged.
type CampaignPatch struct {
	Title            *string `json:"title"`
	Summary          *string `json:"summary"`
	Content          *string `json:"content"`
	RequiresApproval *bool   `json:"requires_approval"`
}

// ValidationProblem is one entry of the editor's validation list.
type ValidationProblem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (s *CampaignService) events() events { return events{Queue: s.Queue, Log: s.logger()} }

func (s *CampaignService) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *CampaignService) now() time.Time { return clock(s.Now).now() }

func validateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return appErrors.ValidationFields(map[string]string{"title": "title is required"})
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return appErrors.ValidationFields(map[string]string{"title": fmt.Sprintf("title must be at most %d characters", maxTitleLength)})
	}
	return nil
}

// CheckEditable enforces the status and edit-lock rules for userID.
func CheckEditable(c *model.Campaign, userID string) error {
	if !model.IsEditableStatus(c.Status) {
		return appErrors.NotEditable(c.Status)
	}
	if c.EditLocked && c.LockedBy != userID {
		return appErrors.Locked(c.LockedBy)
	}
	return nil
}

func (s *CampaignService) CreateCampaign(ctx context.Context, actor model.Actor, in CampaignInput) (*model.Campaign, error) {
	if err := validateTitle(in.Title); err != nil {
		return nil, err
	}
	if err := s.checkAssociation(ctx, actor.OrganizationID, in.ClientID, in.ProjectID); err != nil {
		return nil, err
	}

	c := &model.Campaign{
		OrganizationID:   actor.OrganizationID,
		Title:            strings.TrimSpace(in.Title),
		Summary:          in.Summary,
		Content:          in.Content,
		Status:           model.StatusDraft,
		ClientID:         in.ClientID,
		ProjectID:        in.ProjectID,
		RequiresApproval: true,
		CreatedBy:        actor.UserID,
	}
	if in.RequiresApproval != nil {
		c.RequiresApproval = *in.RequiresApproval
	}

	if err := s.CampaignRepo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}
	s.logger().Info("campaign created", zap.String("org", actor.OrganizationID), zap.Int("campaign_id", c.ID))
	return c, nil
}

// GetCampaign fetches a campaign by ID
func (s *CampaignService) GetCampaign(ctx context.Context, actor model.Actor, id int) (*model.Campaign, error) {
	return s.CampaignRepo.GetByID(ctx, actor.OrganizationID, id)
}

// ListCampaigns fetches campaigns with pagination
func (s *CampaignService) ListCampaigns(ctx context.Context, actor model.Actor, page, pageSize int, f model.CampaignFilter) ([]model.Campaign, Pagination, error) {
	if f.Status != "" && !model.IsValidStatus(f.Status) {
		return nil, nil, appErrors.Validation("unknown status: " + f.Status)
	}
	page, pageSize, offset := normalizePage(page, pageSize)

	ptrs, total, err := s.CampaignRepo.List(ctx, actor.OrganizationID, offset, pageSize, f)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}
	return campaigns, newPagination(page, pageSize, total), nil
}

// UpdateCampaign applies an editor save. Changing the text of an approved
// campaign moves it back to draft so it needs a fresh approval.
func (s *CampaignService) UpdateCampaign(ctx context.Context, actor model.Actor, id int, p CampaignPatch) (*model.Campaign, error) {
	c, err := s.CampaignRepo.GetByID(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if err := CheckEditable(c, actor.UserID); err != nil {
		return nil, err
	}
	g := repository.Guard{Status: c.Status, Editor: actor.UserID}

	textChanged := false
	if p.Title != nil {
		if err := validateTitle(*p.Title); err != nil {
			return nil, err
		}
		title := strings.TrimSpace(*p.Title)
		textChanged = textChanged || title != c.Title
		c.Title = title
	}
	if p.Summary != nil {
		textChanged = textChanged || *p.Summary != c.Summary
		c.Summary = *p.Summary
	}
	if p.Content != nil {
		textChanged = textChanged || *p.Content != c.Content
		c.Content = *p.Content
	}
	if p.RequiresApproval != nil {
		c.RequiresApproval = *p.RequiresApproval
	}
	if textChanged && c.Status == model.StatusApproved {
		c.Status = model.StatusDraft
	}

	if err := s.save(ctx, c, g, "update campaign"); err != nil {
		return nil, err
	}
	return c, nil
}

// AssociateCampaign links a campaign to a CRM client and project.
func (s *CampaignService) AssociateCampaign(ctx context.Context, actor model.Actor, id int, clientID, projectID *int) (*model.Campaign, error) {
	c, err := s.CampaignRepo.GetByID(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if err := CheckEditable(c, actor.UserID); err != nil {
		return nil, err
	}
	if err := s.checkAssociation(ctx, actor.OrganizationID, clientID, projectID); err != nil {
		return nil, err
	}
	g := repository.Guard{Status: c.Status, Editor: actor.UserID}
	c.ClientID = clientID
	c.ProjectID = projectID
	if err := s.save(ctx, c, g, "associate campaign"); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CampaignService) checkAssociation(ctx context.Context, orgID string, clientID, projectID *int) error {
	if projectID != nil && clientID == nil {
		return appErrors.ValidationFields(map[string]string{"client_id": "a project requires a client"})
	}
	if clientID == nil {
		return nil
	}
	if s.ClientRepo == nil {
		return errors.New("client repository not configured")
	}
	if _, err := s.ClientRepo.GetByID(ctx, orgID, *clientID); err != nil {
		return err
	}
	if projectID == nil {
		return nil
	}
	p, err := s.ClientRepo.GetProject(ctx, orgID, *projectID)
	if err != nil {
		return err
	}
	if p.ClientID != *clientID {
		return appErrors.ValidationFields(map[string]string{"project_id": "project does not belong to the selected client"})
	}
	if p.Status == model.ProjectArchived {
		return appErrors.ValidationFields(map[string]string{"project_id": "project is archived"})
	}
	return nil
}

// ValidateCampaign returns the problems that block review and sending.
func (s *CampaignService) ValidateCampaign(ctx context.Context, actor model.Actor, id int) ([]ValidationProblem, error) {
	c, err := s.CampaignRepo.GetByID(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	return s.validate(ctx, c), nil
}

func (s *CampaignService) validate(ctx context.Context, c *model.Campaign) []ValidationProblem {
	problems := []ValidationProblem{}
	if strings.TrimSpace(c.Title) == "" {
		problems = append(problems, ValidationProblem{"title", "title is required"})
	}
	if strings.TrimSpace(c.Content) == "" {
		problems = append(problems, ValidationProblem{"content", "content is required"})
	}
	if c.RequiresApproval && c.ClientID == nil {
		problems = append(problems, ValidationProblem{"client_id", "a client is required for approval"})
	}
	if c.ClientID != nil || c.ProjectID != nil {
		if err := s.checkAssociation(ctx, c.OrganizationID, c.ClientID, c.ProjectID); err != nil {
			problems = append(problems, ValidationProblem{"project_id", err.Error()})
		}
	}
	return problems
}

func problemsError(problems []ValidationProblem) error {
	if len(problems) == 0 {
		return nil
	}
	fields := make(map[string]string, len(problems))
	for _, p := range problems {
		fields[p.Field] = p.Message
	}
	return appErrors.ValidationFields(fields)
}

// ====================== Edit lock ======================

func (s *CampaignService) LockCampaign(ctx context.Context, actor model.Actor, id int, reason string) (*model.Campaign, error) {
	c, err := s.CampaignRepo.GetByID(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if !model.IsEditableStatus(c.Status) {
		return nil, appErrors.NotEditable(c.Status)
	}
	ok, err := s.CampaignRepo.TryLock(ctx, actor.OrganizationID, id, actor.UserID, strings.TrimSpace(reason))
	if err != nil {
		return nil, fmt.Errorf("lock campaign: %w", err)
	}
	if !ok {
		return nil, appErrors.Locked(c.LockedBy)
	}
	return s.CampaignRepo.GetByID(ctx, actor.OrganizationID, id)
}

// UnlockCampaign releases a lock held by the caller. The system review lock
// is only released by the approval workflow.
func (s *CampaignService) UnlockCampaign(ctx context.Context, actor model.Actor, id int) (*model.Campaign, error) {
	c, err := s.CampaignRepo.GetByID(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if c.EditLocked && c.LockedBy != actor.UserID {
		return nil, appErrors.Locked(c.LockedBy)
	}
	ok, err := s.CampaignRepo.Unlock(ctx, actor.OrganizationID, id, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("unlock campaign: %w", err)
	}
	if !ok {
		return nil, appErrors.Locked(c.LockedBy)
	}
	return s.CampaignRepo.GetByID(ctx, actor.OrganizationID, id)
}

// ====================== Status transitions ======================

func (s *CampaignService) transition(c *model.Campaign, to string) error {
	if !model.CanTransition(c.Status, to) {
		return appErrors.InvalidTransition(c.Status, to)
	}
	if c.Status == model.StatusDraft && c.RequiresApproval && (to == model.StatusSent || to == model.StatusScheduled) {
		return appErrors.InvalidTransition(c.Status, to)
	}
	return nil
}

func (s *CampaignService) ScheduleCampaign(ctx context.Context, actor model.Actor, id int, at time.Time) (*model.Campaign, error) {
	c, err := s.CampaignRepo.GetByID(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if err := s.transition(c, model.StatusScheduled); err != nil {
		return nil, err
	}
	if !at.After(s.now()) {
		return nil, appErrors.ValidationFields(map[string]string{"scheduled_at": "scheduled time must be in the future"})
	}
	if err := problemsError(s.validate(ctx, c)); err != nil {
		return nil, err
	}

	at = at.UTC()
	g := repository.Guard{Status: c.Status, Editor: actor.UserID}
	c.Status = model.StatusScheduled
	c.ScheduledAt = &at
	if err := s.save(ctx, c, g, "schedule campaign"); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CampaignService) UnscheduleCampaign(ctx context.Context, actor model.Actor, id int) (*model.Campaign, error) {
	c, err := s.CampaignRepo.GetByID(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if c.Status != model.StatusScheduled {
		return nil, appErrors.InvalidTransition(c.Status, model.StatusDraft)
	}
	g := repository.Guard{Status: c.Status, Editor: actor.UserID}
	c.Status = model.StatusDraft
	c.ScheduledAt = nil
	if err := s.save(ctx, c, g, "unschedule campaign"); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CampaignService) SendCampaign(ctx context.Context, actor model.Actor, id int) (*model.Campaign, error) {
	c, err := s.CampaignRepo.GetByID(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if err := s.transition(c, model.StatusSent); err != nil {
		return nil, err
	}
	if err := problemsError(s.validate(ctx, c)); err != nil {
		return nil, err
	}
	g := repository.Guard{Status: c.Status, Editor: actor.UserID}
	now := s.now()
	c.Status = model.StatusSent
	c.SentAt = &now
	if err := s.save(ctx, c, g, "send campaign"); err != nil {
		return nil, err
	}
	s.announceSent(ctx, c)
	return c, nil
}

func (s *CampaignService) announceSent(ctx context.Context, c *model.Campaign) {
	s.logger().Info("campaign sent", zap.String("org", c.OrganizationID), zap.Int("campaign_id", c.ID))
	s.events().publish(ctx, model.Event{
		Kind:           model.NotifyCampaignSent,
		OrganizationID: c.OrganizationID,
		UserID:         c.CreatedBy,
		CampaignID:     c.ID,
		Data:           map[string]string{"title": c.Title},
	})
}

// DispatchDue sends scheduled campaigns whose time has come, across all organizations.
func (s *CampaignService) DispatchDue(ctx context.Context) (int, error) {
	claimed, err := s.CampaignRepo.ClaimDue(ctx, s.now(), 100)
	if err != nil {
		return 0, fmt.Errorf("claim due campaigns: %w", err)
	}
	for _, c := range claimed {
		s.announceSent(ctx, c)
	}
	return len(claimed), nil
}

func (s *CampaignService) ArchiveCampaign(ctx context.Context, actor model.Actor, id int) (*model.Campaign, error) {
	return s.moveTo(ctx, actor, id, model.StatusArchived)
}

func (s *CampaignService) RestoreCampaign(ctx context.Context, actor model.Actor, id int) (*model.Campaign, error) {
	c, err := s.CampaignRepo.GetByID(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if c.Status != model.StatusArchived {
		return nil, appErrors.InvalidTransition(c.Status, model.StatusDraft)
	}
	return s.moveTo(ctx, actor, id, model.StatusDraft)
}

func (s *CampaignService) moveTo(ctx context.Context, actor model.Actor, id int, to string) (*model.Campaign, error) {
	c, err := s.CampaignRepo.GetByID(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if err := s.transition(c, to); err != nil {
		return nil, err
	}
	if c.EditLocked && c.LockedBy != actor.UserID {
		return nil, appErrors.Locked(c.LockedBy)
	}
	g := repository.Guard{Status: c.Status, Editor: actor.UserID}
	if err := s.CampaignRepo.SetStatus(ctx, actor.OrganizationID, id, g, to); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return nil, s.staleWrite(ctx, actor.OrganizationID, id, g, to)
		}
		return nil, fmt.Errorf("move campaign to %s: %w", to, err)
	}
	c.Status = to
	return c, nil
}

// save runs a guarded Update and turns a lost race into the error the
// caller would have seen had it read the current row.
func (s *CampaignService) save(ctx context.Context, c *model.Campaign, g repository.Guard, op string) error {
	err := s.CampaignRepo.Update(ctx, c, g)
	if errors.Is(err, repository.ErrStale) {
		return s.staleWrite(ctx, c.OrganizationID, c.ID, g, c.Status)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// staleWrite explains why a write guarded by g matched no row. to is the
// status the write was moving to.
func (s *CampaignService) staleWrite(ctx context.Context, orgID string, id int, g repository.Guard, to string) error {
	cur, err := s.CampaignRepo.GetByID(ctx, orgID, id)
	if err != nil {
		return err
	}
	if cur.Status != g.Status {
		// An edit that lost to a review request or a send.
		if model.IsEditableStatus(g.Status) && model.IsEditableStatus(to) && !model.IsEditableStatus(cur.Status) {
			return appErrors.NotEditable(cur.Status)
		}
		return appErrors.InvalidTransition(cur.Status, to)
	}
	if g.Editor != "" && cur.EditLocked && cur.LockedBy != g.Editor {
		return appErrors.Locked(cur.LockedBy)
	}
	return appErrors.Conflict("campaign changed while saving; reload and retry")
}

// DeleteCampaign removes a draft. Anything past draft is archived instead.
func (s *CampaignService) DeleteCampaign(ctx context.Context, actor model.Actor, id int) error {
	c, err := s.CampaignRepo.GetByID(ctx, actor.OrganizationID, id)
	if err != nil {
		return err
	}
	if c.Status != model.StatusDraft {
		return appErrors.Conflict("only draft campaigns can be deleted; archive it instead")
	}
	if c.EditLocked && c.LockedBy != actor.UserID {
		return appErrors.Locked(c.LockedBy)
	}
	return s.CampaignRepo.Delete(ctx, actor.OrganizationID, id)
}
