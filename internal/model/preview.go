// internal/model/preview.go
package model

import "time"

// Preview section kinds.
const (
	PreviewSummary     = "summary"
	PreviewContent     = "content"
	PreviewBoilerplate = "boilerplate"
)

// Preview is the composed, read-only rendition of a campaign.
type Preview struct {
	CampaignID  int                 `json:"campaign_id"`
	Title       string              `json:"title"`
	Status      string              `json:"status"`
	ClientName  string              `json:"client_name,omitempty"`
	ProjectName string              `json:"project_name,omitempty"`
	Sections    []PreviewSection    `json:"sections"`
	Attachments []PreviewAttachment `json:"attachments"`
	Text        string              `json:"text"`
	GeneratedAt time.Time           `json:"generated_at"`
}

type PreviewSection struct {
	Kind    string `json:"kind"`
	Heading string `json:"heading,omitempty"`
	Body    string `json:"body"`
}

type PreviewAttachment struct {
	AssetID     int    `json:"asset_id"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Caption     string `json:"caption,omitempty"`
}
