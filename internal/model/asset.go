// internal/model/asset.go
package model

import "time"

type Asset struct {
	ID             int       `db:"id" json:"id"`
	OrganizationID string    `db:"organization_id" json:"organization_id"`
	ClientID       *int      `db:"client_id" json:"client_id,omitempty"`
	FileName       string    `db:"file_name" json:"file_name"`
	ContentType    string    `db:"content_type" json:"content_type"`
	SizeBytes      int64     `db:"size_bytes" json:"size_bytes"`
	StorageKey     string    `db:"storage_key" json:"-"`
	Tags           []string  `db:"tags" json:"tags"`
	CreatedBy      string    `db:"created_by" json:"created_by"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

type AssetFilter struct {
	ContentTypePrefix string
	ClientID          *int
	Tag               string
	Search            string
}

type AssetAttachment struct {
	ID         int       `db:"id" json:"id"`
	CampaignID int       `db:"campaign_id" json:"campaign_id"`
	AssetID    int       `db:"asset_id" json:"asset_id"`
	Position   int       `db:"position" json:"position"`
	Caption    string    `db:"caption" json:"caption"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`

	Asset *Asset `json:"asset,omitempty"`
}
