// internal/service/approval_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/prdesk-backend/internal/errors"
	"github.com/unclebandit/prdesk-backend/internal/model"
	"github.com/unclebandit/prdesk-backend/internal/queue"
	"github.com/unclebandit/prdesk-backend/internal/repository"
)

const lockReasonCustomerReview = "customer_review"

// ApprovalService runs the draft → in_review → approved/changes_requested workflow.
type ApprovalService struct {
	Campaigns    *CampaignService
	CampaignRepo repository.CampaignRepositoryInterface
	ApprovalRepo repository.ApprovalRepositoryInterface
	Queue        queue.Queue
	Log          *zap.Logger
	// NewToken is overridable in tests.
	NewToken func() string
}

func (s *ApprovalService) events() events { return events{Queue: s.Queue, Log: s.Log} }

func (s *ApprovalService) token() string {
	if s.NewToken != nil {
		return s.NewToken()
	}
	return uuid.NewString()
}

// RequestApproval sends a campaign to customer review and locks editing.
func (s *ApprovalService) RequestApproval(ctx context.Context, actor model.Actor, campaignID int, reviewerEmail string) (*model.ApprovalData, error) {
	c, err := s.CampaignRepo.GetByID(ctx, actor.OrganizationID, campaignID)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(c.Status, model.StatusInReview) {
		return nil, appErrors.InvalidTransition(c.Status, model.StatusInReview)
	}
	if c.EditLocked && c.LockedBy != actor.UserID {
		return nil, appErrors.Locked(c.LockedBy)
	}
	reviewerEmail = strings.TrimSpace(reviewerEmail)
	if reviewerEmail != "" {
		if _, err := mail.ParseAddress(reviewerEmail); err != nil {
			return nil, appErrors.ValidationFields(map[string]string{"reviewer_email": "invalid email address"})
		}
	}
	if err := problemsError(s.Campaigns.validate(ctx, c)); err != nil {
		return nil, err
	}

	// The caller's own lock (if any) is handed over to the review lock.
	if err := s.CampaignRepo.EnterReview(ctx, actor.OrganizationID, campaignID, actor.UserID, lockReasonCustomerReview); err != nil {
		if errors.Is(err, repository.ErrStale) {
			g := repository.Guard{Status: c.Status, Editor: actor.UserID}
			return nil, s.Campaigns.staleWrite(ctx, actor.OrganizationID, campaignID, g, model.StatusInReview)
		}
		return nil, fmt.Errorf("request approval: %w", err)
	}

	a := &model.ApprovalData{
		OrganizationID: actor.OrganizationID,
		CampaignID:     campaignID,
		Status:         model.ApprovalPending,
		RequestedBy:    actor.UserID,
		ReviewerEmail:  reviewerEmail,
		ShareToken:     s.token(),
	}
	if err := s.ApprovalRepo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create approval: %w", err)
	}

	s.events().publish(ctx, model.Event{
		Kind:           model.NotifyApprovalRequested,
		OrganizationID: actor.OrganizationID,
		UserID:         c.CreatedBy,
		CampaignID:     campaignID,
		Data:           map[string]string{"title": c.Title, "reviewer_email": reviewerEmail, "requested_by": actor.UserID},
	})
	return a, nil
}

// Decide records a decision made by a team member inside the dashboard.
func (s *ApprovalService) Decide(ctx context.Context, actor model.Actor, campaignID int, decision, feedback string) (*model.ApprovalData, error) {
	a, err := s.ApprovalRepo.Latest(ctx, actor.OrganizationID, campaignID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, appErrors.NewNotFound("approval for campaign", campaignID)
	}
	return s.decide(ctx, a, decision, feedback, actor.UserID)
}

// DecideByToken records a decision made by the external reviewer through the share link.
func (s *ApprovalService) DecideByToken(ctx context.Context, token, decision, feedback string) (*model.ApprovalData, error) {
	_, a, err := s.ResolveShareToken(ctx, token)
	if err != nil {
		return nil, err
	}
	decidedBy := a.ReviewerEmail
	if decidedBy == "" {
		decidedBy = "reviewer"
	}
	return s.decide(ctx, a, decision, feedback, decidedBy)
}

func (s *ApprovalService) decide(ctx context.Context, a *model.ApprovalData, decision, feedback, decidedBy string) (*model.ApprovalData, error) {
	feedback = strings.TrimSpace(feedback)
	var next string
	switch decision {
	case model.ApprovalApproved:
		next = model.StatusApproved
	case model.ApprovalChangesRequested:
		next = model.StatusChangesRequested
		if feedback == "" {
			return nil, appErrors.ValidationFields(map[string]string{"feedback": "feedback is required when requesting changes"})
		}
	default:
		return nil, appErrors.ValidationFields(map[string]string{"decision": "decision must be approved or changes_requested"})
	}
	if a.Status != model.ApprovalPending {
		return nil, appErrors.Conflict("approval was already " + a.Status)
	}

	c, err := s.CampaignRepo.GetByID(ctx, a.OrganizationID, a.CampaignID)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(c.Status, next) || c.Status != model.StatusInReview {
		return nil, appErrors.InvalidTransition(c.Status, next)
	}

	// Leaving review is the claim: of two concurrent decisions only one moves the campaign.
	if err := s.CampaignRepo.LeaveReview(ctx, a.OrganizationID, a.CampaignID, next); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return nil, s.Campaigns.staleWrite(ctx, a.OrganizationID, a.CampaignID, repository.Guard{Status: model.StatusInReview}, next)
		}
		return nil, fmt.Errorf("apply decision: %w", err)
	}
	closed, err := s.ApprovalRepo.Close(ctx, a.ID, decision, feedback)
	if err != nil {
		return nil, fmt.Errorf("close approval: %w", err)
	}
	if !closed {
		return nil, appErrors.Conflict("approval was already decided")
	}

	now := time.Now().UTC()
	a.Status = decision
	a.Feedback = feedback
	a.DecidedAt = &now

	s.events().publish(ctx, model.Event{
		Kind:           model.NotifyApprovalDecided,
		OrganizationID: a.OrganizationID,
		UserID:         c.CreatedBy,
		CampaignID:     c.ID,
		Data:           map[string]string{"title": c.Title, "decision": decision, "feedback": feedback, "decided_by": decidedBy},
	})
	return a, nil
}

// Withdraw pulls a campaign back from review.
func (s *ApprovalService) Withdraw(ctx context.Context, actor model.Actor, campaignID int) (*model.Campaign, error) {
	c, err := s.CampaignRepo.GetByID(ctx, actor.OrganizationID, campaignID)
	if err != nil {
		return nil, err
	}
	if c.Status != model.StatusInReview {
		return nil, appErrors.InvalidTransition(c.Status, model.StatusDraft)
	}
	if err := s.CampaignRepo.LeaveReview(ctx, actor.OrganizationID, campaignID, model.StatusDraft); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return nil, s.Campaigns.staleWrite(ctx, actor.OrganizationID, campaignID, repository.Guard{Status: model.StatusInReview}, model.StatusDraft)
		}
		return nil, fmt.Errorf("withdraw approval: %w", err)
	}
	a, err := s.ApprovalRepo.Latest(ctx, actor.OrganizationID, campaignID)
	if err != nil {
		return nil, err
	}
	if a != nil && a.Status == model.ApprovalPending {
		if _, err := s.ApprovalRepo.Close(ctx, a.ID, model.ApprovalWithdrawn, ""); err != nil {
			return nil, fmt.Errorf("withdraw approval: %w", err)
		}
	}
	return s.CampaignRepo.GetByID(ctx, actor.OrganizationID, campaignID)
}

func (s *ApprovalService) History(ctx context.Context, actor model.Actor, campaignID int) ([]*model.ApprovalData, error) {
	if _, err := s.CampaignRepo.GetByID(ctx, actor.OrganizationID, campaignID); err != nil {
		return nil, err
	}
	return s.ApprovalRepo.ListByCampaign(ctx, actor.OrganizationID, campaignID)
}

// Banner returns the banner the editor shows for this campaign and caller.
func (s *ApprovalService) Banner(ctx context.Context, actor model.Actor, campaignID int) (model.ApprovalBanner, error) {
	c, err := s.CampaignRepo.GetByID(ctx, actor.OrganizationID, campaignID)
	if err != nil {
		return model.ApprovalBanner{}, err
	}
	a, err := s.ApprovalRepo.Latest(ctx, actor.OrganizationID, campaignID)
	if err != nil {
		return model.ApprovalBanner{}, err
	}
	return BuildBanner(c, a, actor.UserID), nil
}

// ResolveShareToken returns the campaign and approval behind a reviewer link.
func (s *ApprovalService) ResolveShareToken(ctx context.Context, token string) (*model.Campaign, *model.ApprovalData, error) {
	if _, err := uuid.Parse(token); err != nil {
		return nil, nil, appErrors.NewNotFound("approval", token)
	}
	a, err := s.ApprovalRepo.GetByShareToken(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	c, err := s.CampaignRepo.GetByID(ctx, a.OrganizationID, a.CampaignID)
	if err != nil {
		return nil, nil, err
	}
	return c, a, nil
}

// BuildBanner derives the editor banner. latest may be nil.
func BuildBanner(c *model.Campaign, latest *model.ApprovalData, userID string) model.ApprovalBanner {
	lockedByOther := c.EditLocked && c.LockedBy != userID && c.LockedBy != model.LockHolderSystem

	switch c.Status {
	case model.StatusSent:
		msg := "This campaign has been sent and can no longer be edited."
		if c.SentAt != nil {
			msg = fmt.Sprintf("This campaign was sent on %s and can no longer be edited.", c.SentAt.Format("2006-01-02 15:04 MST"))
		}
		return model.ApprovalBanner{Kind: model.BannerSent, Message: msg}
	case model.StatusInReview:
		msg := "Waiting for customer review. Editing is locked until a decision is made."
		if latest != nil && latest.ReviewerEmail != "" {
			msg = fmt.Sprintf("Waiting for review by %s. Editing is locked until a decision is made.", latest.ReviewerEmail)
		}
		return model.ApprovalBanner{Kind: model.BannerPendingReview, Message: msg}
	case model.StatusArchived:
		return model.ApprovalBanner{Kind: model.BannerNone, Message: "This campaign is archived. Restore it to edit."}
	case model.StatusScheduled:
		msg := "This campaign is scheduled. Unschedule it to edit."
		if c.ScheduledAt != nil {
			msg = fmt.Sprintf("This campaign is scheduled for %s. Unschedule it to edit.", c.ScheduledAt.Format("2006-01-02 15:04 MST"))
		}
		return model.ApprovalBanner{Kind: model.BannerNone, Message: msg}
	}

	if lockedByOther {
		return model.ApprovalBanner{Kind: model.BannerLocked, Message: fmt.Sprintf("%s is currently editing this campaign.", c.LockedBy)}
	}

	switch c.Status {
	case model.StatusChangesRequested:
		b := model.ApprovalBanner{Kind: model.BannerChangesRequested, Message: "The reviewer requested changes.", CanEdit: true}
		if latest != nil {
			b.Feedback = latest.Feedback
		}
		return b
	case model.StatusApproved:
		return model.ApprovalBanner{Kind: model.BannerApproved, Message: "Approved. Changing the text will require a new approval.", CanEdit: true}
	case model.StatusDraft:
		if c.RequiresApproval {
			return model.ApprovalBanner{Kind: model.BannerDraftNeedsReview, Message: "Send this campaign for approval before it can be sent.", CanEdit: true}
		}
	}
	return model.ApprovalBanner{Kind: model.BannerNone, CanEdit: true}
}
