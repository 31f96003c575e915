// internal/model/chat.go
package model

import "time"

type ChatMessage struct {
	ID             int        `db:"id" json:"id"`
	OrganizationID string     `db:"organization_id" json:"organization_id"`
	Channel        string     `db:"channel" json:"channel"`
	AuthorID       string     `db:"author_id" json:"author_id"`
	Content        string     `db:"content" json:"content"`
	Mentions       []string   `db:"mentions" json:"mentions"`
	Edited         bool       `db:"edited" json:"edited"`
	Deleted        bool       `db:"deleted" json:"deleted"`
	ReplyToID      *int       `db:"reply_to_id" json:"reply_to_id,omitempty"`
	CampaignID     *int       `db:"campaign_id" json:"campaign_id,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      *time.Time `db:"updated_at" json:"updated_at,omitempty"`

	Reactions []ReactionSummary `json:"reactions"`
}

type MessageEdit struct {
	ID              int       `db:"id" json:"id"`
	MessageID       int       `db:"message_id" json:"message_id"`
	PreviousContent string    `db:"previous_content" json:"previous_content"`
	EditedBy        string    `db:"edited_by" json:"edited_by"`
	EditedAt        time.Time `db:"edited_at" json:"edited_at"`
}

type Reaction struct {
	MessageID int       `db:"message_id" json:"message_id"`
	Emoji     string    `db:"emoji" json:"emoji"`
	UserID    string    `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ReactionSummary aggregates the reactions of one emoji on a message.
type ReactionSummary struct {
	Emoji string   `json:"emoji"`
	Count int      `json:"count"`
	Users []string `json:"users"`
}

// SummarizeReactions groups reactions by emoji in first-reacted order.
// Input must be ordered by creation time.
func SummarizeReactions(reactions []Reaction) []ReactionSummary {
	out := []ReactionSummary{}
	index := map[string]int{}
	for _, r := range reactions {
		i, ok := index[r.Emoji]
		if !ok {
			i = len(out)
			index[r.Emoji] = i
			out = append(out, ReactionSummary{Emoji: r.Emoji})
		}
		out[i].Count++
		out[i].Users = append(out[i].Users, r.UserID)
	}
	return out
}
