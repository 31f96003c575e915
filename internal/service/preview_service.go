// internal/service/preview_service.go
package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unclebandit/prdesk-backend/internal/model"
	"github.com/unclebandit/prdesk-backend/internal/repository"
	"github.com/unclebandit/prdesk-backend/internal/storage"
)

// PreviewService composes campaigns into previews and PDFs.
type PreviewService struct {
	CampaignRepo    repository.CampaignRepositoryInterface
	ClientRepo      repository.ClientRepositoryInterface
	BoilerplateRepo repository.BoilerplateRepositoryInterface
	AssetRepo       repository.AssetRepositoryInterface
	Store           storage.ObjectStore
	Log             *zap.Logger
	Now             func() time.Time
}

func (s *PreviewService) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *PreviewService) Render(ctx context.Context, actor model.Actor, campaignID int) (*model.Preview, error) {
	c, err := s.CampaignRepo.GetByID(ctx, actor.OrganizationID, campaignID)
	if err != nil {
		return nil, err
	}
	return s.Build(ctx, c)
}

// Build composes the preview of an already loaded campaign.
func (s *PreviewService) Build(ctx context.Context, c *model.Campaign) (*model.Preview, error) {
	now := clock(s.Now).now()
	p := &model.Preview{
		CampaignID:  c.ID,
		Title:       c.Title,
		Status:      c.Status,
		Sections:    []model.PreviewSection{},
		Attachments: []model.PreviewAttachment{},
		GeneratedAt: now,
	}

	if c.ClientID != nil && s.ClientRepo != nil {
		client, err := s.ClientRepo.GetByID(ctx, c.OrganizationID, *c.ClientID)
		if err != nil {
			return nil, err
		}
		p.ClientName = client.Name
	}
	if c.ProjectID != nil && s.ClientRepo != nil {
		project, err := s.ClientRepo.GetProject(ctx, c.OrganizationID, *c.ProjectID)
		if err != nil {
			return nil, err
		}
		p.ProjectName = project.Name
	}
	data := placeholderData(c.Title, p.ClientName, p.ProjectName, now.Format("2 January 2006"))

	if strings.TrimSpace(c.Summary) != "" {
		p.Sections = append(p.Sections, model.PreviewSection{Kind: model.PreviewSummary, Body: RenderTemplate(c.Summary, data)})
	}
	p.Sections = append(p.Sections, model.PreviewSection{Kind: model.PreviewContent, Body: RenderTemplate(c.Content, data)})

	if s.BoilerplateRepo != nil {
		placed, err := s.BoilerplateRepo.ListForCampaign(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("load boilerplate: %w", err)
		}
		for _, b := range placed {
			heading := ""
			if b.Section != nil {
				heading = b.Section.Name
			}
			p.Sections = append(p.Sections, model.PreviewSection{
				Kind:    model.PreviewBoilerplate,
				Heading: heading,
				Body:    RenderTemplate(b.Text(), data),
			})
		}
	}

	if s.AssetRepo != nil {
		atts, err := s.AssetRepo.ListAttachments(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("load attachments: %w", err)
		}
		for _, a := range atts {
			pa := model.PreviewAttachment{AssetID: a.AssetID, Caption: a.Caption}
			if a.Asset != nil {
				pa.FileName = a.Asset.FileName
				pa.ContentType = a.Asset.ContentType
			}
			p.Attachments = append(p.Attachments, pa)
		}
	}

	p.Text = previewText(p)
	return p, nil
}

func previewText(p *model.Preview) string {
	var b strings.Builder
	b.WriteString(p.Title)
	b.WriteString("\n")
	for _, sec := range p.Sections {
		b.WriteString("\n")
		if sec.Heading != "" {
			b.WriteString(sec.Heading)
			b.WriteString("\n")
		}
		b.WriteString(strings.TrimSpace(sec.Body))
		b.WriteString("\n")
	}
	if len(p.Attachments) > 0 {
		b.WriteString("\nAttachments\n")
		for _, a := range p.Attachments {
			b.WriteString("- ")
			b.WriteString(a.FileName)
			if a.Caption != "" {
				b.WriteString(": ")
				b.WriteString(a.Caption)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// PDF renders the preview, stores it and replaces the previously stored PDF.
func (s *PreviewService) PDF(ctx context.Context, actor model.Actor, campaignID int) ([]byte, error) {
	c, err := s.CampaignRepo.GetByID(ctx, actor.OrganizationID, campaignID)
	if err != nil {
		return nil, err
	}
	p, err := s.Build(ctx, c)
	if err != nil {
		return nil, err
	}
	doc, err := RenderPDF(p)
	if err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}

	key := fmt.Sprintf("org/%s/campaigns/%d/preview-%s.pdf", c.OrganizationID, c.ID, uuid.NewString())
	if _, err := s.Store.Put(ctx, key, bytes.NewReader(doc)); err != nil {
		return nil, fmt.Errorf("store pdf: %w", err)
	}
	if err := s.CampaignRepo.SetPDFKey(ctx, c.OrganizationID, c.ID, key); err != nil {
		_ = s.Store.Delete(ctx, key)
		return nil, fmt.Errorf("record pdf: %w", err)
	}
	if c.PDFStorageKey != "" {
		if err := s.Store.Delete(ctx, c.PDFStorageKey); err != nil {
			s.logger().Warn("failed to delete previous pdf", zap.String("key", c.PDFStorageKey), zap.Error(err))
		}
	}
	return doc, nil
}

// RenderPDF lays the preview out on A4 pages.
func RenderPDF(p *model.Preview) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(p.Title, true)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 9, tr(p.Title), "", "L", false)
	meta := []string{}
	if p.ClientName != "" {
		meta = append(meta, p.ClientName)
	}
	if p.ProjectName != "" {
		meta = append(meta, p.ProjectName)
	}
	if len(meta) > 0 {
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 6, tr(strings.Join(meta, " / ")), "", "L", false)
	}
	pdf.Ln(4)

	for _, sec := range p.Sections {
		if sec.Heading != "" {
			pdf.SetFont("Helvetica", "B", 12)
			pdf.MultiCell(0, 7, tr(sec.Heading), "", "L", false)
		}
		style := ""
		if sec.Kind == model.PreviewSummary {
			style = "I"
		}
		pdf.SetFont("Helvetica", style, 11)
		pdf.MultiCell(0, 6, tr(strings.TrimSpace(sec.Body)), "", "L", false)
		pdf.Ln(3)
	}

	if len(p.Attachments) > 0 {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.MultiCell(0, 7, "Attachments", "", "L", false)
		pdf.SetFont("Helvetica", "", 10)
		for _, a := range p.Attachments {
			line := a.FileName
			if a.Caption != "" {
				line += ": " + a.Caption
			}
			pdf.MultiCell(0, 5, tr("- "+line), "", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
