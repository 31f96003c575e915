// internal/model/boilerplate.go
package model

import "time"

type BoilerplateSection struct {
	ID             int        `db:"id" json:"id"`
	OrganizationID string     `db:"organization_id" json:"organization_id"`
	Name           string     `db:"name" json:"name"`
	Category       string     `db:"category" json:"category"`
	Content        string     `db:"content" json:"content"`
	IsGlobal       bool       `db:"is_global" json:"is_global"`
	ClientID       *int       `db:"client_id" json:"client_id,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// CampaignBoilerplate places a section inside a campaign.
type CampaignBoilerplate struct {
	CampaignID    int     `db:"campaign_id" json:"campaign_id"`
	SectionID     int     `db:"section_id" json:"section_id"`
	Position      int     `db:"position" json:"position"`
	CustomContent *string `db:"custom_content" json:"custom_content,omitempty"`

	Section *BoilerplateSection `json:"section,omitempty"`
}

// Text returns the override when set, otherwise the section text.
func (b CampaignBoilerplate) Text() string {
	if b.CustomContent != nil {
		return *b.CustomContent
	}
	if b.Section != nil {
		return b.Section.Content
	}
	return ""
}
