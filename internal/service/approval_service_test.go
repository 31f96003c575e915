package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/prdesk-backend/internal/errors"
	"github.com/unclebandit/prdesk-backend/internal/model"
	"github.com/unclebandit/prdesk-backend/internal/service"
)

type approvalFixture struct {
	svc       *service.ApprovalService
	campaigns *service.CampaignService
	repo      *MockCampaignRepo
	approvals *MockApprovalRepo
	queue     *MockQueue
}

func newApprovalFixture(t *testing.T) approvalFixture {
	t.Helper()
	campaigns, repo, clients, q := newCampaignService()
	require.NoError(t, clients.Create(context.Background(), &model.Client{OrganizationID: "org-1", Name: "Acme"}))

	c := draft("Launch")
	c.ClientID = intRef(1)
	require.NoError(t, repo.Create(context.Background(), c))

	approvals := &MockApprovalRepo{}
	n := 0
	svc := &service.ApprovalService{
		Campaigns:    campaigns,
		CampaignRepo: repo,
		ApprovalRepo: approvals,
		Queue:        q,
		NewToken: func() string {
			n++
			return fmt.Sprintf("00000000-0000-4000-8000-%012d", n)
		},
	}
	return approvalFixture{svc: svc, campaigns: campaigns, repo: repo, approvals: approvals, queue: q}
}

func TestRequestApprovalLocksCampaign(t *testing.T) {
	f := newApprovalFixture(t)
	ctx := context.Background()

	a, err := f.svc.RequestApproval(ctx, alice, 1, "reviewer@acme.test")
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalPending, a.Status)
	assert.Equal(t, "00000000-0000-4000-8000-000000000001", a.ShareToken)

	stored := f.repo.Stored(1)
	assert.Equal(t, model.StatusInReview, stored.Status)
	assert.True(t, stored.EditLocked)
	assert.Equal(t, model.LockHolderSystem, stored.LockedBy)
	assert.Equal(t, "customer_review", stored.LockedReason)

	_, err = f.campaigns.UpdateCampaign(ctx, alice, 1, service.CampaignPatch{Content: strRef("sneaky")})
	assert.Equal(t, appErrors.CodeNotEditable, appErrors.CodeOf(err))

	events := f.queue.Events(model.NotifyApprovalRequested)
	require.Len(t, events, 1)
	assert.Equal(t, "alice", events[0].UserID)
	assert.Equal(t, "reviewer@acme.test", events[0].Data["reviewer_email"])
}

func TestRequestApprovalValidates(t *testing.T) {
	f := newApprovalFixture(t)
	ctx := context.Background()

	_, err := f.svc.RequestApproval(ctx, alice, 1, "not-an-email")
	assert.Equal(t, appErrors.CodeValidation, appErrors.CodeOf(err))

	_, err = f.campaigns.UpdateCampaign(ctx, alice, 1, service.CampaignPatch{Content: strRef("")})
	require.NoError(t, err)
	_, err = f.svc.RequestApproval(ctx, alice, 1, "")
	assert.Equal(t, appErrors.CodeValidation, appErrors.CodeOf(err))
	assert.Equal(t, model.StatusDraft, f.repo.Stored(1).Status)
}

func TestRequestApprovalRespectsOtherUsersLock(t *testing.T) {
	f := newApprovalFixture(t)
	ctx := context.Background()

	_, err := f.campaigns.LockCampaign(ctx, bob, 1, "")
	require.NoError(t, err)

	_, err = f.svc.RequestApproval(ctx, alice, 1, "")
	assert.Equal(t, appErrors.CodeLocked, appErrors.CodeOf(err))
}

func TestChangesRequestedThenApproved(t *testing.T) {
	f := newApprovalFixture(t)
	ctx := context.Background()

	a, err := f.svc.RequestApproval(ctx, alice, 1, "reviewer@acme.test")
	require.NoError(t, err)

	_, err = f.svc.DecideByToken(ctx, a.ShareToken, model.ApprovalChangesRequested, "  ")
	assert.Equal(t, appErrors.CodeValidation, appErrors.CodeOf(err))

	decided, err := f.svc.DecideByToken(ctx, a.ShareToken, model.ApprovalChangesRequested, "Tone down the headline")
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalChangesRequested, decided.Status)
	require.NotNil(t, decided.DecidedAt)

	stored := f.repo.Stored(1)
	assert.Equal(t, model.StatusChangesRequested, stored.Status)
	assert.False(t, stored.EditLocked)

	banner, err := f.svc.Banner(ctx, alice, 1)
	require.NoError(t, err)
	assert.Equal(t, model.BannerChangesRequested, banner.Kind)
	assert.Equal(t, "Tone down the headline", banner.Feedback)
	assert.True(t, banner.CanEdit)

	_, err = f.svc.DecideByToken(ctx, a.ShareToken, model.ApprovalApproved, "")
	assert.Equal(t, appErrors.CodeConflict, appErrors.CodeOf(err))

	_, err = f.campaigns.UpdateCampaign(ctx, alice, 1, service.CampaignPatch{Title: strRef("Calmer launch")})
	require.NoError(t, err)

	_, err = f.svc.RequestApproval(ctx, alice, 1, "reviewer@acme.test")
	require.NoError(t, err)
	_, err = f.svc.Decide(ctx, bob, 1, model.ApprovalApproved, "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, f.repo.Stored(1).Status)

	decisions := f.queue.Events(model.NotifyApprovalDecided)
	require.Len(t, decisions, 2)
	assert.Equal(t, "reviewer@acme.test", decisions[0].Data["decided_by"])
	assert.Equal(t, "bob", decisions[1].Data["decided_by"])

	history, err := f.svc.History(ctx, alice, 1)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, model.ApprovalApproved, history[0].Status)
	assert.Equal(t, model.ApprovalChangesRequested, history[1].Status)
}

func TestDecideRejectsUnknownDecision(t *testing.T) {
	f := newApprovalFixture(t)
	ctx := context.Background()

	_, err := f.svc.RequestApproval(ctx, alice, 1, "")
	require.NoError(t, err)

	_, err = f.svc.Decide(ctx, alice, 1, "maybe", "")
	assert.Equal(t, appErrors.CodeValidation, appErrors.CodeOf(err))

	_, err = f.svc.Decide(ctx, alice, 99, model.ApprovalApproved, "")
	assert.Equal(t, appErrors.CodeNotFound, appErrors.CodeOf(err))
}

func TestWithdraw(t *testing.T) {
	f := newApprovalFixture(t)
	ctx := context.Background()

	_, err := f.svc.Withdraw(ctx, alice, 1)
	assert.Equal(t, appErrors.CodeInvalidTransition, appErrors.CodeOf(err))

	_, err = f.svc.RequestApproval(ctx, alice, 1, "")
	require.NoError(t, err)

	c, err := f.svc.Withdraw(ctx, alice, 1)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDraft, c.Status)
	assert.False(t, c.EditLocked)

	latest, err := f.approvals.Latest(ctx, "org-1", 1)
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalWithdrawn, latest.Status)
}

func TestResolveShareToken(t *testing.T) {
	f := newApprovalFixture(t)
	ctx := context.Background()

	a, err := f.svc.RequestApproval(ctx, alice, 1, "")
	require.NoError(t, err)

	c, got, err := f.svc.ResolveShareToken(ctx, a.ShareToken)
	require.NoError(t, err)
	assert.Equal(t, 1, c.ID)
	assert.Equal(t, a.ID, got.ID)

	_, _, err = f.svc.ResolveShareToken(ctx, "../../etc/passwd")
	assert.Equal(t, appErrors.CodeNotFound, appErrors.CodeOf(err))
}

func TestBuildBanner(t *testing.T) {
	sentAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		campaign model.Campaign
		user     string
		kind     string
		canEdit  bool
	}{
		{"draft needing review", model.Campaign{Status: model.StatusDraft, RequiresApproval: true}, "alice", model.BannerDraftNeedsReview, true},
		{"plain draft", model.Campaign{Status: model.StatusDraft}, "alice", model.BannerNone, true},
		{"in review", model.Campaign{Status: model.StatusInReview, EditLocked: true, LockedBy: model.LockHolderSystem}, "alice", model.BannerPendingReview, false},
		{"locked by another user", model.Campaign{Status: model.StatusDraft, EditLocked: true, LockedBy: "bob"}, "alice", model.BannerLocked, false},
		{"locked by caller", model.Campaign{Status: model.StatusApproved, EditLocked: true, LockedBy: "alice"}, "alice", model.BannerApproved, true},
		{"sent", model.Campaign{Status: model.StatusSent, SentAt: &sentAt}, "alice", model.BannerSent, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := service.BuildBanner(&tt.campaign, nil, tt.user)
			assert.Equal(t, tt.kind, b.Kind)
			assert.Equal(t, tt.canEdit, b.CanEdit)
		})
	}
}

func TestRequestApprovalLosesToLockTakenMeanwhile(t *testing.T) {
	f := newApprovalFixture(t)
	ctx := context.Background()

	f.repo.BeforeNextWrite(func() {
		_, err := f.campaigns.LockCampaign(ctx, bob, 1, "")
		assert.NoError(t, err)
	})
	_, err := f.svc.RequestApproval(ctx, alice, 1, "")
	assert.Equal(t, appErrors.CodeLocked, appErrors.CodeOf(err))

	stored := f.repo.Stored(1)
	assert.Equal(t, model.StatusDraft, stored.Status)
	assert.Equal(t, "bob", stored.LockedBy)
	history, err := f.svc.History(ctx, alice, 1)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSecondReviewRequestIsRejected(t *testing.T) {
	f := newApprovalFixture(t)
	ctx := context.Background()

	f.repo.BeforeNextWrite(func() {
		_, err := f.svc.RequestApproval(ctx, bob, 1, "")
		assert.NoError(t, err)
	})
	_, err := f.svc.RequestApproval(ctx, alice, 1, "")
	assert.Equal(t, appErrors.CodeInvalidTransition, appErrors.CodeOf(err))

	history, err := f.svc.History(ctx, alice, 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "bob", history[0].RequestedBy)
	assert.Len(t, f.queue.Events(model.NotifyApprovalRequested), 1)
}

func TestDecisionLosesToWithdraw(t *testing.T) {
	f := newApprovalFixture(t)
	ctx := context.Background()

	a, err := f.svc.RequestApproval(ctx, alice, 1, "")
	require.NoError(t, err)

	f.repo.BeforeNextWrite(func() {
		_, err := f.svc.Withdraw(ctx, alice, 1)
		assert.NoError(t, err)
	})
	_, err = f.svc.DecideByToken(ctx, a.ShareToken, model.ApprovalApproved, "")
	assert.Equal(t, appErrors.CodeInvalidTransition, appErrors.CodeOf(err))

	assert.Equal(t, model.StatusDraft, f.repo.Stored(1).Status)
	latest, err := f.approvals.Latest(ctx, "org-1", 1)
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalWithdrawn, latest.Status)
	assert.Empty(t, f.queue.Events(model.NotifyApprovalDecided))
}
