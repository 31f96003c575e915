// internal/service/chat_service.go
package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/unclebandit/prdesk-backend/internal/chat"
	appErrors "github.com/unclebandit/prdesk-backend/internal/errors"
	"github.com/unclebandit/prdesk-backend/internal/model"
	"github.com/unclebandit/prdesk-backend/internal/queue"
	"github.com/unclebandit/prdesk-backend/internal/repository"
)

const (
	maxMessageLength    = 4000
	maxEmojiLength      = 32
	defaultMessageLimit = 50
	maxMessageLimit     = 200
)

var (
	mentionPattern = regexp.MustCompile(`(^|[^A-Za-z0-9_@.])@([A-Za-z0-9._-]+)`)

	chatMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prdesk_chat_messages_total",
		Help: "Chat operations by action.",
	}, []string{"action"})
)

// Broadcaster pushes frames to live subscribers of a room.
type Broadcaster interface {
	Broadcast(org, channel, frameType string, payload any)
}

type ChatService struct {
	Repo         repository.ChatRepositoryInterface
	CampaignRepo repository.CampaignRepositoryInterface
	Hub          Broadcaster
	Queue        queue.Queue
	Log          *zap.Logger
}

type PostInput struct {
	Channel    string `json:"channel"`
	Content    string `json:"content"`
	ReplyToID  *int   `json:"reply_to_id"`
	CampaignID *int   `json:"campaign_id"`
}

// ReactionChange is the payload of a reaction frame and the React response.
type ReactionChange struct {
	MessageID int                     `json:"message_id"`
	Emoji     string                  `json:"emoji"`
	UserID    string                  `json:"user_id"`
	Added     bool                    `json:"added"`
	Reactions []model.ReactionSummary `json:"reactions"`
}

func (s *ChatService) events() events {
	return events{Queue: s.Queue, Log: s.Log}
}

func (s *ChatService) broadcast(org, channel, frameType string, payload any) {
	if s.Hub != nil {
		s.Hub.Broadcast(org, channel, frameType, payload)
	}
}

// ParseMentions returns the lower-cased @handles in first-seen order.
func ParseMentions(content string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, m := range mentionPattern.FindAllStringSubmatch(content, -1) {
		handle := strings.ToLower(strings.TrimRight(m[2], ".-"))
		if handle == "" || seen[handle] {
			continue
		}
		seen[handle] = true
		out = append(out, handle)
	}
	return out
}

func validateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", appErrors.ValidationFields(map[string]string{"content": "content is required"})
	}
	if utf8.RuneCountInString(content) > maxMessageLength {
		return "", appErrors.ValidationFields(map[string]string{"content": fmt.Sprintf("content must be at most %d characters", maxMessageLength)})
	}
	return content, nil
}

func validateChannel(raw string) (string, error) {
	channel, ok := chat.NormalizeChannel(raw)
	if !ok {
		return "", appErrors.ValidationFields(map[string]string{"channel": "channel must be 1-64 lower-case letters, digits, '-' or '_'"})
	}
	return channel, nil
}

func (s *ChatService) Post(ctx context.Context, actor model.Actor, in PostInput) (*model.ChatMessage, error) {
	channel, err := validateChannel(in.Channel)
	if err != nil {
		return nil, err
	}
	content, err := validateContent(in.Content)
	if err != nil {
		return nil, err
	}
	if in.ReplyToID != nil {
		parent, err := s.Repo.GetMessage(ctx, actor.OrganizationID, *in.ReplyToID)
		if err != nil {
			return nil, err
		}
		if parent.Channel != channel {
			return nil, appErrors.ValidationFields(map[string]string{"reply_to_id": "reply must stay in the same channel"})
		}
	}
	if in.CampaignID != nil && s.CampaignRepo != nil {
		if _, err := s.CampaignRepo.GetByID(ctx, actor.OrganizationID, *in.CampaignID); err != nil {
			return nil, err
		}
	}

	m := &model.ChatMessage{
		OrganizationID: actor.OrganizationID,
		Channel:        channel,
		AuthorID:       actor.UserID,
		Content:        content,
		Mentions:       ParseMentions(content),
		ReplyToID:      in.ReplyToID,
		CampaignID:     in.CampaignID,
		Reactions:      []model.ReactionSummary{},
	}
	if err := s.Repo.CreateMessage(ctx, m); err != nil {
		return nil, fmt.Errorf("post message: %w", err)
	}
	chatMessages.WithLabelValues("post").Inc()

	s.broadcast(m.OrganizationID, m.Channel, chat.FrameMessageCreated, m)
	s.notifyMentions(ctx, m, m.Mentions)
	return m, nil
}

// Edit replaces the content of the caller's own message and keeps the previous text.
func (s *ChatService) Edit(ctx context.Context, actor model.Actor, id int, content string) (*model.ChatMessage, error) {
	content, err := validateContent(content)
	if err != nil {
		return nil, err
	}
	m, err := s.ownMessage(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if m.Content == content {
		return s.withReactions(ctx, m)
	}

	previous := m.Content
	before := map[string]bool{}
	for _, h := range m.Mentions {
		before[h] = true
	}
	m.Content = content
	m.Mentions = ParseMentions(content)
	if err := s.Repo.UpdateContent(ctx, m, previous, actor.UserID); err != nil {
		return nil, fmt.Errorf("edit message: %w", err)
	}
	chatMessages.WithLabelValues("edit").Inc()

	added := []string{}
	for _, h := range m.Mentions {
		if !before[h] {
			added = append(added, h)
		}
	}
	m, err = s.withReactions(ctx, m)
	if err != nil {
		return nil, err
	}
	s.broadcast(m.OrganizationID, m.Channel, chat.FrameMessageEdited, m)
	s.notifyMentions(ctx, m, added)
	return m, nil
}

func (s *ChatService) Delete(ctx context.Context, actor model.Actor, id int) error {
	m, err := s.ownMessage(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.Repo.SoftDelete(ctx, actor.OrganizationID, id); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	chatMessages.WithLabelValues("delete").Inc()
	s.broadcast(m.OrganizationID, m.Channel, chat.FrameMessageDeleted, map[string]int{"id": m.ID})
	return nil
}

// React toggles the caller's emoji on a message.
func (s *ChatService) React(ctx context.Context, actor model.Actor, id int, emoji string) (*ReactionChange, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" || len(emoji) > maxEmojiLength {
		return nil, appErrors.ValidationFields(map[string]string{"emoji": "emoji is required"})
	}
	m, err := s.Repo.GetMessage(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if m.Deleted {
		return nil, appErrors.Conflict("message was deleted")
	}
	added, err := s.Repo.ToggleReaction(ctx, id, emoji, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("toggle reaction: %w", err)
	}
	reactions, err := s.Repo.ListReactions(ctx, []int{id})
	if err != nil {
		return nil, err
	}
	chatMessages.WithLabelValues("react").Inc()

	change := &ReactionChange{
		MessageID: id,
		Emoji:     emoji,
		UserID:    actor.UserID,
		Added:     added,
		Reactions: model.SummarizeReactions(reactions[id]),
	}
	s.broadcast(m.OrganizationID, m.Channel, chat.FrameReactionChanged, change)
	return change, nil
}

// List returns a channel page newest first. beforeID 0 starts at the newest message.
func (s *ChatService) List(ctx context.Context, actor model.Actor, channel string, beforeID, limit int) ([]*model.ChatMessage, error) {
	channel, err := validateChannel(channel)
	if err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = defaultMessageLimit
	}
	if limit > maxMessageLimit {
		limit = maxMessageLimit
	}
	msgs, err := s.Repo.ListMessages(ctx, actor.OrganizationID, channel, beforeID, limit)
	if err != nil {
		return nil, err
	}
	ids := make([]int, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	reactions, err := s.Repo.ListReactions(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, m := range msgs {
		m.Reactions = model.SummarizeReactions(reactions[m.ID])
	}
	return msgs, nil
}

// History returns the previous versions of a message, oldest first.
func (s *ChatService) History(ctx context.Context, actor model.Actor, id int) ([]model.MessageEdit, error) {
	if _, err := s.Repo.GetMessage(ctx, actor.OrganizationID, id); err != nil {
		return nil, err
	}
	return s.Repo.ListEdits(ctx, id)
}

func (s *ChatService) ownMessage(ctx context.Context, actor model.Actor, id int) (*model.ChatMessage, error) {
	m, err := s.Repo.GetMessage(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if m.AuthorID != actor.UserID {
		return nil, appErrors.Forbidden("only the author can change this message")
	}
	if m.Deleted {
		return nil, appErrors.Conflict("message was deleted")
	}
	return m, nil
}

func (s *ChatService) withReactions(ctx context.Context, m *model.ChatMessage) (*model.ChatMessage, error) {
	reactions, err := s.Repo.ListReactions(ctx, []int{m.ID})
	if err != nil {
		return nil, err
	}
	m.Reactions = model.SummarizeReactions(reactions[m.ID])
	return m, nil
}

func (s *ChatService) notifyMentions(ctx context.Context, m *model.ChatMessage, handles []string) {
	for _, h := range handles {
		if h == strings.ToLower(m.AuthorID) {
			continue
		}
		ev := model.Event{
			Kind:           model.NotifyMention,
			OrganizationID: m.OrganizationID,
			UserID:         h,
			MessageID:      m.ID,
			Data:           map[string]string{"channel": m.Channel, "author": m.AuthorID, "excerpt": excerpt(m.Content, 140)},
		}
		if m.CampaignID != nil {
			ev.CampaignID = *m.CampaignID
			ev.Data["campaign_id"] = strconv.Itoa(*m.CampaignID)
		}
		s.events().publish(ctx, ev)
	}
}

func excerpt(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}
