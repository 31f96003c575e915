package controller_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	appErrors "github.com/unclebandit/prdesk-backend/internal/errors"
	"github.com/unclebandit/prdesk-backend/internal/model"
	"github.com/unclebandit/prdesk-backend/internal/repository"
)

// In-memory repositories for the router tests. Each one embeds its
// interface, so a call the tests do not expect panics.

type memClients struct {
	repository.ClientRepositoryInterface
	mu       sync.Mutex
	clients  map[int]*model.Client
	projects map[int]*model.Project
	nextID   int
}

func newMemClients() *memClients {
	return &memClients{clients: map[int]*model.Client{}, projects: map[int]*model.Project{}}
}

func (m *memClients) Create(_ context.Context, c *model.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	c.ID = m.nextID
	cp := *c
	m.clients[c.ID] = &cp
	return nil
}

func (m *memClients) GetByID(_ context.Context, orgID string, id int) (*model.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok || c.OrganizationID != orgID {
		return nil, appErrors.NewNotFound("client", id)
	}
	cp := *c
	return &cp, nil
}

func (m *memClients) ListAll(_ context.Context, orgID string) ([]model.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Client{}
	for _, c := range m.clients {
		if c.OrganizationID == orgID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memClients) CreateProject(_ context.Context, p *model.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p.ID = m.nextID
	cp := *p
	m.projects[p.ID] = &cp
	return nil
}

func (m *memClients) GetProject(_ context.Context, orgID string, id int) (*model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok || p.OrganizationID != orgID {
		return nil, appErrors.NewNotFound("project", id)
	}
	cp := *p
	return &cp, nil
}

func (m *memClients) ListProjects(_ context.Context, orgID string, clientID int) ([]model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Project{}
	for _, p := range m.projects {
		if p.OrganizationID == orgID && p.ClientID == clientID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memClients) UpdateProject(_ context.Context, p *model.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.projects[p.ID] = &cp
	return nil
}

type memApprovals struct {
	mu     sync.Mutex
	rows   []*model.ApprovalData
	nextID int
}

func (m *memApprovals) Create(_ context.Context, a *model.ApprovalData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	a.ID = m.nextID
	a.RequestedAt = time.Now()
	cp := *a
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *memApprovals) Latest(_ context.Context, orgID string, campaignID int) (*model.ApprovalData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.rows) - 1; i >= 0; i-- {
		if a := m.rows[i]; a.OrganizationID == orgID && a.CampaignID == campaignID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memApprovals) GetByShareToken(_ context.Context, token string) (*model.ApprovalData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.ShareToken == token {
			cp := *a
			return &cp, nil
		}
	}
	return nil, appErrors.NewNotFound("approval", token)
}

func (m *memApprovals) ListByCampaign(_ context.Context, orgID string, campaignID int) ([]*model.ApprovalData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.ApprovalData{}
	for i := len(m.rows) - 1; i >= 0; i-- {
		if a := m.rows[i]; a.OrganizationID == orgID && a.CampaignID == campaignID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memApprovals) Close(_ context.Context, id int, status, feedback string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.rows {
		if a.ID == id && a.Status == model.ApprovalPending {
			now := time.Now()
			a.Status, a.Feedback, a.DecidedAt = status, feedback, &now
			return true, nil
		}
	}
	return false, nil
}

type memSections struct {
	repository.BoilerplateRepositoryInterface
	mu       sync.Mutex
	sections map[int]*model.BoilerplateSection
	nextID   int
}

func newMemSections() *memSections {
	return &memSections{sections: map[int]*model.BoilerplateSection{}}
}

func (m *memSections) Create(_ context.Context, s *model.BoilerplateSection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s.ID = m.nextID
	cp := *s
	m.sections[s.ID] = &cp
	return nil
}

func (m *memSections) GetByID(_ context.Context, orgID string, id int) (*model.BoilerplateSection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sections[id]
	if !ok || s.OrganizationID != orgID {
		return nil, appErrors.NewNotFound("boilerplate section", id)
	}
	cp := *s
	return &cp, nil
}

func (m *memSections) List(_ context.Context, orgID, category string, clientID *int) ([]*model.BoilerplateSection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.BoilerplateSection{}
	for id := 1; id <= m.nextID; id++ {
		s, ok := m.sections[id]
		if !ok || s.OrganizationID != orgID || (category != "" && s.Category != category) {
			continue
		}
		if clientID != nil && !s.IsGlobal && (s.ClientID == nil || *s.ClientID != *clientID) {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memSections) Update(_ context.Context, s *model.BoilerplateSection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sections[s.ID] = &cp
	return nil
}

func (m *memSections) Delete(_ context.Context, orgID string, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sections[id]
	if !ok || s.OrganizationID != orgID {
		return appErrors.NewNotFound("boilerplate section", id)
	}
	delete(m.sections, id)
	return nil
}

type memAssets struct {
	repository.AssetRepositoryInterface
	mu     sync.Mutex
	assets []*model.Asset
}

func (m *memAssets) Create(_ context.Context, a *model.Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = len(m.assets) + 1
	cp := *a
	m.assets = append(m.assets, &cp)
	return nil
}

func (m *memAssets) GetByID(_ context.Context, orgID string, id int) (*model.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id < 1 || id > len(m.assets) || m.assets[id-1].OrganizationID != orgID {
		return nil, appErrors.NewNotFound("asset", id)
	}
	cp := *m.assets[id-1]
	return &cp, nil
}

func (m *memAssets) List(_ context.Context, orgID string, offset, limit int, f model.AssetFilter) ([]*model.Asset, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.Asset{}
	for i := len(m.assets) - 1; i >= 0; i-- {
		a := m.assets[i]
		if a.OrganizationID != orgID || !strings.HasPrefix(a.ContentType, f.ContentTypePrefix) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	total := len(out)
	if offset >= total {
		return []*model.Asset{}, total, nil
	}
	if offset+limit < total {
		out = out[:offset+limit]
	}
	return out[offset:], total, nil
}

type memChat struct {
	mu        sync.Mutex
	messages  []*model.ChatMessage
	edits     []model.MessageEdit
	reactions []model.Reaction
}

func (m *memChat) CreateMessage(_ context.Context, msg *model.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = len(m.messages) + 1
	msg.CreatedAt = time.Now()
	cp := *msg
	m.messages = append(m.messages, &cp)
	return nil
}

func (m *memChat) GetMessage(_ context.Context, orgID string, id int) (*model.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id < 1 || id > len(m.messages) || m.messages[id-1].OrganizationID != orgID {
		return nil, appErrors.NewNotFound("message", id)
	}
	cp := *m.messages[id-1]
	return &cp, nil
}

func (m *memChat) ListMessages(_ context.Context, orgID, channel string, beforeID, limit int) ([]*model.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.ChatMessage{}
	for i := len(m.messages) - 1; i >= 0 && len(out) < limit; i-- {
		msg := m.messages[i]
		if msg.OrganizationID != orgID || msg.Channel != channel || (beforeID > 0 && msg.ID >= beforeID) {
			continue
		}
		cp := *msg
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memChat) UpdateContent(_ context.Context, msg *model.ChatMessage, previous, editedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.messages[msg.ID-1]
	stored.Content, stored.Mentions, stored.Edited = msg.Content, msg.Mentions, true
	msg.Edited = true
	m.edits = append(m.edits, model.MessageEdit{
		ID:              len(m.edits) + 1,
		MessageID:       msg.ID,
		PreviousContent: previous,
		EditedBy:        editedBy,
		EditedAt:        time.Now(),
	})
	return nil
}

func (m *memChat) SoftDelete(_ context.Context, orgID string, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[id-1].Deleted = true
	return nil
}

func (m *memChat) ListEdits(_ context.Context, messageID int) ([]model.MessageEdit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.MessageEdit{}
	for _, e := range m.edits {
		if e.MessageID == messageID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memChat) ToggleReaction(_ context.Context, messageID int, emoji, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.reactions {
		if r.MessageID == messageID && r.Emoji == emoji && r.UserID == userID {
			m.reactions = append(m.reactions[:i], m.reactions[i+1:]...)
			return false, nil
		}
	}
	m.reactions = append(m.reactions, model.Reaction{MessageID: messageID, Emoji: emoji, UserID: userID, CreatedAt: time.Now()})
	return true, nil
}

func (m *memChat) ListReactions(_ context.Context, messageIDs []int) (map[int][]model.Reaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := map[int]bool{}
	for _, id := range messageIDs {
		want[id] = true
	}
	out := map[int][]model.Reaction{}
	for _, r := range m.reactions {
		if want[r.MessageID] {
			out[r.MessageID] = append(out[r.MessageID], r)
		}
	}
	return out, nil
}

type memNotifications struct {
	mu    sync.Mutex
	items []*model.Notification
}

func (m *memNotifications) Create(_ context.Context, n *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = len(m.items) + 1
	n.CreatedAt = time.Now()
	cp := *n
	m.items = append(m.items, &cp)
	return nil
}

func (m *memNotifications) ListByUser(_ context.Context, orgID, userID string, unreadOnly bool, limit int) ([]*model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.Notification{}
	for i := len(m.items) - 1; i >= 0 && len(out) < limit; i-- {
		n := m.items[i]
		if n.OrganizationID != orgID || n.UserID != userID || (unreadOnly && n.ReadAt != nil) {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memNotifications) MarkRead(_ context.Context, orgID, userID string, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.items {
		if n.ID == id && n.OrganizationID == orgID && n.UserID == userID {
			now := time.Now()
			n.ReadAt = &now
			return nil
		}
	}
	return appErrors.NewNotFound("notification", id)
}
