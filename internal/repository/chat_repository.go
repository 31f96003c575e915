package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	appErrors "github.com/unclebandit/prdesk-backend/internal/errors"
	"github.com/unclebandit/prdesk-backend/internal/model"
)

type ChatRepositoryInterface interface {
	CreateMessage(ctx context.Context, m *model.ChatMessage) error
	GetMessage(ctx context.Context, orgID string, id int) (*model.ChatMessage, error)
	ListMessages(ctx context.Context, orgID, channel string, beforeID, limit int) ([]*model.ChatMessage, error)
	// UpdateContent stores the new content and records the previous one in the edit history.
	UpdateContent(ctx context.Context, m *model.ChatMessage, previous, editedBy string) error
	SoftDelete(ctx context.Context, orgID string, id int) error
	ListEdits(ctx context.Context, messageID int) ([]model.MessageEdit, error)

	// ToggleReaction adds the reaction or removes it when present. It reports whether it was added.
	ToggleReaction(ctx context.Context, messageID int, emoji, userID string) (bool, error)
	ListReactions(ctx context.Context, messageIDs []int) (map[int][]model.Reaction, error)
}

type ChatRepository struct {
	DB *sql.DB
}

const messageColumns = `id, organization_id, channel, author_id, content, mentions, edited, deleted,
	reply_to_id, campaign_id, created_at, updated_at`

func scanMessage(row rowScanner) (*model.ChatMessage, error) {
	var m model.ChatMessage
	var replyTo, campaignID sql.NullInt64
	if err := row.Scan(&m.ID, &m.OrganizationID, &m.Channel, &m.AuthorID, &m.Content, pq.Array(&m.Mentions),
		&m.Edited, &m.Deleted, &replyTo, &campaignID, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.ReplyToID = intPtr(replyTo)
	m.CampaignID = intPtr(campaignID)
	if m.Mentions == nil {
		m.Mentions = []string{}
	}
	return &m, nil
}

func (r *ChatRepository) CreateMessage(ctx context.Context, m *model.ChatMessage) error {
	if m.Mentions == nil {
		m.Mentions = []string{}
	}
	query := `
		INSERT INTO chat_messages (organization_id, channel, author_id, content, mentions, reply_to_id, campaign_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	return r.DB.QueryRowContext(ctx, query,
		m.OrganizationID, m.Channel, m.AuthorID, m.Content, pq.Array(m.Mentions), m.ReplyToID, m.CampaignID,
	).Scan(&m.ID, &m.CreatedAt)
}

func (r *ChatRepository) GetMessage(ctx context.Context, orgID string, id int) (*model.ChatMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM chat_messages WHERE organization_id=$1 AND id=$2`
	m, err := scanMessage(r.DB.QueryRowContext(ctx, query, orgID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.NewNotFound("message", id)
	}
	return m, err
}

// ListMessages returns newest first. beforeID <= 0 starts from the latest message.
func (r *ChatRepository) ListMessages(ctx context.Context, orgID, channel string, beforeID, limit int) ([]*model.ChatMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM chat_messages WHERE organization_id=$1 AND channel=$2`
	args := []any{orgID, channel}
	argPos := 3
	if beforeID > 0 {
		query += fmt.Sprintf(" AND id < $%d", argPos)
		args = append(args, beforeID)
		argPos++
	}
	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d", argPos)
	args = append(args, limit)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.ChatMessage{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *ChatRepository) UpdateContent(ctx context.Context, m *model.ChatMessage, previous, editedBy string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO chat_message_edits (message_id, previous_content, edited_by) VALUES ($1, $2, $3)`,
		m.ID, previous, editedBy,
	); err != nil {
		return err
	}
	err = tx.QueryRowContext(ctx, `
		UPDATE chat_messages SET content=$1, mentions=$2, edited=TRUE, updated_at=NOW()
		WHERE organization_id=$3 AND id=$4
		RETURNING updated_at`,
		m.Content, pq.Array(m.Mentions), m.OrganizationID, m.ID,
	).Scan(&m.UpdatedAt)
	if err != nil {
		return err
	}
	m.Edited = true
	return tx.Commit()
}

func (r *ChatRepository) SoftDelete(ctx context.Context, orgID string, id int) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE chat_messages SET content='', mentions='{}', deleted=TRUE, updated_at=NOW()
		WHERE organization_id=$1 AND id=$2`, orgID, id)
	if err != nil {
		return err
	}
	return expectOne(res, appErrors.NewNotFound("message", id))
}

func (r *ChatRepository) ListEdits(ctx context.Context, messageID int) ([]model.MessageEdit, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, message_id, previous_content, edited_by, edited_at
		FROM chat_message_edits WHERE message_id=$1 ORDER BY id`, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	edits := []model.MessageEdit{}
	for rows.Next() {
		var e model.MessageEdit
		if err := rows.Scan(&e.ID, &e.MessageID, &e.PreviousContent, &e.EditedBy, &e.EditedAt); err != nil {
			return nil, err
		}
		edits = append(edits, e)
	}
	return edits, rows.Err()
}

// ====================== Reactions ======================

func (r *ChatRepository) ToggleReaction(ctx context.Context, messageID int, emoji, userID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM chat_reactions WHERE message_id=$1 AND emoji=$2 AND user_id=$3`, messageID, emoji, userID)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return false, nil
	}
	_, err = r.DB.ExecContext(ctx, `
		INSERT INTO chat_reactions (message_id, emoji, user_id) VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING`, messageID, emoji, userID)
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *ChatRepository) ListReactions(ctx context.Context, messageIDs []int) (map[int][]model.Reaction, error) {
	out := map[int][]model.Reaction{}
	if len(messageIDs) == 0 {
		return out, nil
	}
	ids := make([]int64, len(messageIDs))
	for i, id := range messageIDs {
		ids[i] = int64(id)
	}
	rows, err := r.DB.QueryContext(ctx, `
		SELECT message_id, emoji, user_id, created_at FROM chat_reactions
		WHERE message_id = ANY($1) ORDER BY created_at, emoji`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var re model.Reaction
		if err := rows.Scan(&re.MessageID, &re.Emoji, &re.UserID, &re.CreatedAt); err != nil {
			return nil, err
		}
		out[re.MessageID] = append(out[re.MessageID], re)
	}
	return out, rows.Err()
}

var _ ChatRepositoryInterface = (*ChatRepository)(nil)
