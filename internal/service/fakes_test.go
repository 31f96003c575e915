package service_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	appErrors "github.com/unclebandit/prdesk-backend/internal/errors"
	"github.com/unclebandit/prdesk-backend/internal/model"
	"github.com/unclebandit/prdesk-backend/internal/queue"
	"github.com/unclebandit/prdesk-backend/internal/repository"
)

// In-memory repositories used by the service tests.

var (
	_ repository.CampaignRepositoryInterface     = (*MockCampaignRepo)(nil)
	_ repository.ClientRepositoryInterface       = (*MockClientRepo)(nil)
	_ repository.ApprovalRepositoryInterface     = (*MockApprovalRepo)(nil)
	_ repository.BoilerplateRepositoryInterface  = (*MockBoilerplateRepo)(nil)
	_ repository.AssetRepositoryInterface        = (*MockAssetRepo)(nil)
	_ repository.ChatRepositoryInterface         = (*MockChatRepo)(nil)
	_ repository.NotificationRepositoryInterface = (*MockNotificationRepo)(nil)
	_ queue.Queue                                = (*MockQueue)(nil)
)

type MockCampaignRepo struct {
	mu        sync.Mutex
	campaigns map[int]*model.Campaign
	nextID    int

	// beforeWrite runs once, ahead of the next guarded write, to let a test
	// interleave another call between a read and the write that follows it.
	beforeWrite func()
}

// BeforeNextWrite installs a one-shot hook run before the next guarded write.
func (r *MockCampaignRepo) BeforeNextWrite(f func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beforeWrite = f
}

func (r *MockCampaignRepo) runHook() {
	r.mu.Lock()
	f := r.beforeWrite
	r.beforeWrite = nil
	r.mu.Unlock()
	if f != nil {
		f()
	}
}

// matches mirrors the WHERE clause of the guarded SQL writes.
func matches(c *model.Campaign, g repository.Guard) bool {
	if c.Status != g.Status {
		return false
	}
	return g.Editor == "" || !c.EditLocked || c.LockedBy == g.Editor
}

func NewMockCampaignRepo(cs ...*model.Campaign) *MockCampaignRepo {
	r := &MockCampaignRepo{campaigns: map[int]*model.Campaign{}}
	for _, c := range cs {
		r.put(c)
	}
	return r
}

func (r *MockCampaignRepo) put(c *model.Campaign) {
	if c.ID == 0 {
		r.nextID++
		c.ID = r.nextID
	}
	if c.ID > r.nextID {
		r.nextID = c.ID
	}
	cp := *c
	r.campaigns[c.ID] = &cp
}

func (r *MockCampaignRepo) get(orgID string, id int) (*model.Campaign, error) {
	c, ok := r.campaigns[id]
	if !ok || c.OrganizationID != orgID {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	return c, nil
}

// Stored returns a copy of the stored campaign for assertions.
func (r *MockCampaignRepo) Stored(id int) model.Campaign {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.campaigns[id]
}

func (r *MockCampaignRepo) Create(_ context.Context, c *model.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.CreatedAt = time.Now()
	r.put(c)
	return nil
}

func (r *MockCampaignRepo) GetByID(_ context.Context, orgID string, id int) (*model.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, err := r.get(orgID, id)
	if err != nil {
		return nil, err
	}
	cp := *c
	return &cp, nil
}

func (r *MockCampaignRepo) List(_ context.Context, orgID string, offset, limit int, f model.CampaignFilter) ([]*model.Campaign, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := []*model.Campaign{}
	for _, c := range r.campaigns {
		if c.OrganizationID != orgID || (f.Status != "" && c.Status != f.Status) {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(c.Title), strings.ToLower(f.Search)) {
			continue
		}
		cp := *c
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := len(all)
	if offset >= total {
		return []*model.Campaign{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r *MockCampaignRepo) Update(_ context.Context, c *model.Campaign, g repository.Guard) error {
	r.runHook()
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.campaigns[c.ID]
	if !ok || old.OrganizationID != c.OrganizationID || !matches(old, g) {
		return repository.ErrStale
	}
	cp := *c
	cp.EditLocked, cp.LockedBy, cp.LockedReason, cp.LockedAt = old.EditLocked, old.LockedBy, old.LockedReason, old.LockedAt
	cp.PDFStorageKey = old.PDFStorageKey
	r.campaigns[c.ID] = &cp
	return nil
}

func (r *MockCampaignRepo) SetStatus(_ context.Context, orgID string, id int, g repository.Guard, status string) error {
	r.runHook()
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok || c.OrganizationID != orgID || !matches(c, g) {
		return repository.ErrStale
	}
	c.Status = status
	return nil
}

func (r *MockCampaignRepo) SetPDFKey(_ context.Context, orgID string, id int, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, err := r.get(orgID, id)
	if err != nil {
		return err
	}
	c.PDFStorageKey = key
	return nil
}

func (r *MockCampaignRepo) Delete(_ context.Context, orgID string, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.get(orgID, id); err != nil {
		return err
	}
	delete(r.campaigns, id)
	return nil
}

func (r *MockCampaignRepo) TryLock(_ context.Context, orgID string, id int, holder, reason string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, err := r.get(orgID, id)
	if err != nil {
		return false, nil
	}
	if c.EditLocked && c.LockedBy != holder {
		return false, nil
	}
	now := time.Now()
	c.EditLocked, c.LockedBy, c.LockedReason, c.LockedAt = true, holder, reason, &now
	return true, nil
}

func (r *MockCampaignRepo) Unlock(_ context.Context, orgID string, id int, holder string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, err := r.get(orgID, id)
	if err != nil {
		return false, nil
	}
	if c.EditLocked && c.LockedBy != holder {
		return false, nil
	}
	c.EditLocked, c.LockedBy, c.LockedReason, c.LockedAt = false, "", "", nil
	return true, nil
}

func (r *MockCampaignRepo) EnterReview(_ context.Context, orgID string, id int, editor, reason string) error {
	r.runHook()
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok || c.OrganizationID != orgID {
		return repository.ErrStale
	}
	if c.Status != model.StatusDraft && c.Status != model.StatusChangesRequested {
		return repository.ErrStale
	}
	if c.EditLocked && c.LockedBy != editor {
		return repository.ErrStale
	}
	now := time.Now()
	c.Status = model.StatusInReview
	c.EditLocked, c.LockedBy, c.LockedReason, c.LockedAt = true, model.LockHolderSystem, reason, &now
	return nil
}

func (r *MockCampaignRepo) LeaveReview(_ context.Context, orgID string, id int, status string) error {
	r.runHook()
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok || c.OrganizationID != orgID || c.Status != model.StatusInReview {
		return repository.ErrStale
	}
	c.Status = status
	c.EditLocked, c.LockedBy, c.LockedReason, c.LockedAt = false, "", "", nil
	return nil
}

func (r *MockCampaignRepo) ClaimDue(_ context.Context, now time.Time, limit int) ([]*model.Campaign, error) {
	r.runHook()
	r.mu.Lock()
	defer r.mu.Unlock()
	due := []*model.Campaign{}
	for _, c := range r.campaigns {
		if c.Status == model.StatusScheduled && c.ScheduledAt != nil && !c.ScheduledAt.After(now) {
			due = append(due, c)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledAt.Before(*due[j].ScheduledAt) })
	if len(due) > limit {
		due = due[:limit]
	}
	claimed := make([]*model.Campaign, 0, len(due))
	for _, c := range due {
		sentAt := now
		c.Status = model.StatusSent
		c.SentAt = &sentAt
		cp := *c
		claimed = append(claimed, &cp)
	}
	return claimed, nil
}

func (r *MockCampaignRepo) CountByClient(_ context.Context, orgID string, clientID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.campaigns {
		if c.OrganizationID == orgID && c.ClientID != nil && *c.ClientID == clientID {
			n++
		}
	}
	return n, nil
}

// ====================== CRM ======================

type MockClientRepo struct {
	mu       sync.Mutex
	clients  map[int]*model.Client
	projects map[int]*model.Project
	nextID   int
}

func NewMockClientRepo() *MockClientRepo {
	return &MockClientRepo{clients: map[int]*model.Client{}, projects: map[int]*model.Project{}}
}

func (r *MockClientRepo) Create(_ context.Context, c *model.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c.ID = r.nextID
	cp := *c
	r.clients[c.ID] = &cp
	return nil
}

func (r *MockClientRepo) GetByID(_ context.Context, orgID string, id int) (*model.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok || c.OrganizationID != orgID {
		return nil, appErrors.NewNotFound("client", id)
	}
	cp := *c
	return &cp, nil
}

func (r *MockClientRepo) ListAll(_ context.Context, orgID string) ([]model.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Client{}
	for _, c := range r.clients {
		if c.OrganizationID == orgID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MockClientRepo) Update(_ context.Context, c *model.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.clients[c.ID] = &cp
	return nil
}

func (r *MockClientRepo) Delete(_ context.Context, orgID string, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[id]; !ok || c.OrganizationID != orgID {
		return appErrors.NewNotFound("client", id)
	}
	delete(r.clients, id)
	return nil
}

func (r *MockClientRepo) CreateProject(_ context.Context, p *model.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p.ID = r.nextID
	cp := *p
	r.projects[p.ID] = &cp
	return nil
}

func (r *MockClientRepo) GetProject(_ context.Context, orgID string, id int) (*model.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok || p.OrganizationID != orgID {
		return nil, appErrors.NewNotFound("project", id)
	}
	cp := *p
	return &cp, nil
}

func (r *MockClientRepo) ListProjects(_ context.Context, orgID string, clientID int) ([]model.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Project{}
	for _, p := range r.projects {
		if p.OrganizationID == orgID && p.ClientID == clientID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MockClientRepo) UpdateProject(_ context.Context, p *model.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.projects[p.ID] = &cp
	return nil
}

// ====================== Approvals ======================

type MockApprovalRepo struct {
	mu     sync.Mutex
	rows   []*model.ApprovalData
	nextID int
}

func (r *MockApprovalRepo) Create(_ context.Context, a *model.ApprovalData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	a.ID = r.nextID
	a.RequestedAt = time.Now()
	cp := *a
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *MockApprovalRepo) Latest(_ context.Context, orgID string, campaignID int) (*model.ApprovalData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.rows) - 1; i >= 0; i-- {
		a := r.rows[i]
		if a.OrganizationID == orgID && a.CampaignID == campaignID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MockApprovalRepo) GetByShareToken(_ context.Context, token string) (*model.ApprovalData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.rows {
		if a.ShareToken == token {
			cp := *a
			return &cp, nil
		}
	}
	return nil, appErrors.NewNotFound("approval", token)
}

func (r *MockApprovalRepo) ListByCampaign(_ context.Context, orgID string, campaignID int) ([]*model.ApprovalData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.ApprovalData{}
	for i := len(r.rows) - 1; i >= 0; i-- {
		a := r.rows[i]
		if a.OrganizationID == orgID && a.CampaignID == campaignID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockApprovalRepo) Close(_ context.Context, id int, status, feedback string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.rows {
		if a.ID == id {
			if a.Status != model.ApprovalPending {
				return false, nil
			}
			now := time.Now()
			a.Status, a.Feedback, a.DecidedAt = status, feedback, &now
			return true, nil
		}
	}
	return false, nil
}

// ====================== Boilerplate ======================

type MockBoilerplateRepo struct {
	mu       sync.Mutex
	sections map[int]*model.BoilerplateSection
	placed   map[int][]model.CampaignBoilerplate
	nextID   int
	gets     int
}

func NewMockBoilerplateRepo() *MockBoilerplateRepo {
	return &MockBoilerplateRepo{sections: map[int]*model.BoilerplateSection{}, placed: map[int][]model.CampaignBoilerplate{}}
}

func (r *MockBoilerplateRepo) Create(_ context.Context, s *model.BoilerplateSection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	s.ID = r.nextID
	cp := *s
	r.sections[s.ID] = &cp
	return nil
}

func (r *MockBoilerplateRepo) GetByID(_ context.Context, orgID string, id int) (*model.BoilerplateSection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	s, ok := r.sections[id]
	if !ok || s.OrganizationID != orgID {
		return nil, appErrors.NewNotFound("boilerplate section", id)
	}
	cp := *s
	return &cp, nil
}

func (r *MockBoilerplateRepo) Gets() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gets
}

func (r *MockBoilerplateRepo) List(_ context.Context, orgID, category string, clientID *int) ([]*model.BoilerplateSection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.BoilerplateSection{}
	for _, s := range r.sections {
		if s.OrganizationID != orgID || (category != "" && s.Category != category) {
			continue
		}
		if !s.IsGlobal && (clientID == nil || s.ClientID == nil || *s.ClientID != *clientID) {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MockBoilerplateRepo) Update(_ context.Context, s *model.BoilerplateSection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.sections[s.ID] = &cp
	return nil
}

func (r *MockBoilerplateRepo) Delete(_ context.Context, orgID string, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sections[id]; !ok || s.OrganizationID != orgID {
		return appErrors.NewNotFound("boilerplate section", id)
	}
	delete(r.sections, id)
	return nil
}

func (r *MockBoilerplateRepo) ListForCampaign(_ context.Context, campaignID int) ([]model.CampaignBoilerplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]model.CampaignBoilerplate{}, r.placed[campaignID]...)
	return out, nil
}

func (r *MockBoilerplateRepo) ReplaceForCampaign(_ context.Context, campaignID int, items []model.CampaignBoilerplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.placed[campaignID] = append([]model.CampaignBoilerplate{}, items...)
	return nil
}

// ====================== Assets ======================

type MockAssetRepo struct {
	mu          sync.Mutex
	assets      map[int]*model.Asset
	attachments []*model.AssetAttachment
	nextID      int
}

func NewMockAssetRepo() *MockAssetRepo {
	return &MockAssetRepo{assets: map[int]*model.Asset{}}
}

func (r *MockAssetRepo) Create(_ context.Context, a *model.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	a.ID = r.nextID
	cp := *a
	r.assets[a.ID] = &cp
	return nil
}

func (r *MockAssetRepo) GetByID(_ context.Context, orgID string, id int) (*model.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assets[id]
	if !ok || a.OrganizationID != orgID {
		return nil, appErrors.NewNotFound("asset", id)
	}
	cp := *a
	return &cp, nil
}

func (r *MockAssetRepo) List(_ context.Context, orgID string, offset, limit int, f model.AssetFilter) ([]*model.Asset, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := []*model.Asset{}
	for _, a := range r.assets {
		if a.OrganizationID != orgID || !strings.HasPrefix(a.ContentType, f.ContentTypePrefix) {
			continue
		}
		cp := *a
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := len(all)
	if offset >= total {
		return []*model.Asset{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r *MockAssetRepo) Delete(_ context.Context, orgID string, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.assets[id]; !ok || a.OrganizationID != orgID {
		return appErrors.NewNotFound("asset", id)
	}
	delete(r.assets, id)
	return nil
}

func (r *MockAssetRepo) CountActiveAttachments(_ context.Context, assetID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, att := range r.attachments {
		if att.AssetID == assetID {
			n++
		}
	}
	return n, nil
}

func (r *MockAssetRepo) ListAttachments(_ context.Context, campaignID int) ([]*model.AssetAttachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.AssetAttachment{}
	for _, att := range r.attachments {
		if att.CampaignID == campaignID {
			cp := *att
			if a, ok := r.assets[att.AssetID]; ok {
				ac := *a
				cp.Asset = &ac
			}
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r *MockAssetRepo) Attach(_ context.Context, att *model.AssetAttachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pos := 0
	for _, a := range r.attachments {
		if a.CampaignID != att.CampaignID {
			continue
		}
		if a.AssetID == att.AssetID {
			return appErrors.Conflict("asset is already attached to this campaign")
		}
		if a.Position >= pos {
			pos = a.Position + 1
		}
	}
	r.nextID++
	att.ID = r.nextID
	att.Position = pos
	cp := *att
	cp.Asset = nil
	r.attachments = append(r.attachments, &cp)
	return nil
}

func (r *MockAssetRepo) Detach(_ context.Context, campaignID, attachmentID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, a := range r.attachments {
		if a.CampaignID == campaignID && a.ID == attachmentID {
			r.attachments = append(r.attachments[:i], r.attachments[i+1:]...)
			return nil
		}
	}
	return appErrors.NewNotFound("attachment", attachmentID)
}

func (r *MockAssetRepo) Reorder(_ context.Context, campaignID int, ids []int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for pos, id := range ids {
		for _, a := range r.attachments {
			if a.CampaignID == campaignID && a.ID == id {
				a.Position = pos
			}
		}
	}
	return nil
}

// ====================== Chat ======================

type MockChatRepo struct {
	mu        sync.Mutex
	messages  map[int]*model.ChatMessage
	edits     []model.MessageEdit
	reactions []model.Reaction
	nextID    int
}

func NewMockChatRepo() *MockChatRepo {
	return &MockChatRepo{messages: map[int]*model.ChatMessage{}}
}

func (r *MockChatRepo) CreateMessage(_ context.Context, m *model.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	m.ID = r.nextID
	m.CreatedAt = time.Now()
	cp := *m
	r.messages[m.ID] = &cp
	return nil
}

func (r *MockChatRepo) GetMessage(_ context.Context, orgID string, id int) (*model.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok || m.OrganizationID != orgID {
		return nil, appErrors.NewNotFound("message", id)
	}
	cp := *m
	return &cp, nil
}

func (r *MockChatRepo) ListMessages(_ context.Context, orgID, channel string, beforeID, limit int) ([]*model.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.ChatMessage{}
	for _, m := range r.messages {
		if m.OrganizationID != orgID || m.Channel != channel || (beforeID > 0 && m.ID >= beforeID) {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MockChatRepo) UpdateContent(_ context.Context, m *model.ChatMessage, previous, editedBy string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edits = append(r.edits, model.MessageEdit{ID: len(r.edits) + 1, MessageID: m.ID, PreviousContent: previous, EditedBy: editedBy, EditedAt: time.Now()})
	m.Edited = true
	cp := *m
	r.messages[m.ID] = &cp
	return nil
}

func (r *MockChatRepo) SoftDelete(_ context.Context, orgID string, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok || m.OrganizationID != orgID {
		return appErrors.NewNotFound("message", id)
	}
	m.Content, m.Mentions, m.Deleted = "", []string{}, true
	return nil
}

func (r *MockChatRepo) ListEdits(_ context.Context, messageID int) ([]model.MessageEdit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.MessageEdit{}
	for _, e := range r.edits {
		if e.MessageID == messageID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *MockChatRepo) ToggleReaction(_ context.Context, messageID int, emoji, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, re := range r.reactions {
		if re.MessageID == messageID && re.Emoji == emoji && re.UserID == userID {
			r.reactions = append(r.reactions[:i], r.reactions[i+1:]...)
			return false, nil
		}
	}
	r.reactions = append(r.reactions, model.Reaction{MessageID: messageID, Emoji: emoji, UserID: userID, CreatedAt: time.Now()})
	return true, nil
}

func (r *MockChatRepo) ListReactions(_ context.Context, ids []int) (map[int][]model.Reaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := map[int]bool{}
	for _, id := range ids {
		want[id] = true
	}
	out := map[int][]model.Reaction{}
	for _, re := range r.reactions {
		if want[re.MessageID] {
			out[re.MessageID] = append(out[re.MessageID], re)
		}
	}
	return out, nil
}

// ====================== Notifications ======================

type MockNotificationRepo struct {
	mu    sync.Mutex
	rows  []*model.Notification
	reads []int
}

func (r *MockNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n.ID = len(r.rows) + 1
	cp := *n
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *MockNotificationRepo) ListByUser(_ context.Context, orgID, userID string, unreadOnly bool, limit int) ([]*model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Notification{}
	for _, n := range r.rows {
		if n.OrganizationID == orgID && n.UserID == userID && (!unreadOnly || n.ReadAt == nil) {
			out = append(out, n)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MockNotificationRepo) MarkRead(_ context.Context, orgID, userID string, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.rows {
		if n.ID == id && n.OrganizationID == orgID && n.UserID == userID {
			now := time.Now()
			n.ReadAt = &now
			r.reads = append(r.reads, id)
			return nil
		}
	}
	return appErrors.NewNotFound("notification", id)
}

// ====================== Queue and hub ======================

type MockQueue struct {
	mu     sync.Mutex
	events []model.Event
}

func (q *MockQueue) Publish(_ context.Context, _ string, ev model.Event) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, ev)
	return nil
}

func (q *MockQueue) Subscribe(string, queue.Handler) error { return nil }

func (q *MockQueue) Events(kind string) []model.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := []model.Event{}
	for _, ev := range q.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

type broadcastCall struct {
	Org, Channel, Type string
	Payload            any
}

type MockHub struct {
	mu    sync.Mutex
	calls []broadcastCall
}

func (h *MockHub) Broadcast(org, channel, frameType string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, broadcastCall{org, channel, frameType, payload})
}

func (h *MockHub) Types() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := []string{}
	for _, c := range h.calls {
		out = append(out, c.Type)
	}
	return out
}

// ====================== Fixtures ======================

var (
	alice = model.Actor{OrganizationID: "org-1", UserID: "alice"}
	bob   = model.Actor{OrganizationID: "org-1", UserID: "bob"}
	eve   = model.Actor{OrganizationID: "org-2", UserID: "eve"}
)

func intRef(v int) *int { return &v }

func strRef(v string) *string { return &v }

func boolRef(v bool) *bool { return &v }
