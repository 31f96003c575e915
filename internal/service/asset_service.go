// internal/service/asset_service.go
package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/prdesk-backend/internal/errors"
	"github.com/unclebandit/prdesk-backend/internal/model"
	"github.com/unclebandit/prdesk-backend/internal/repository"
	"github.com/unclebandit/prdesk-backend/internal/storage"
)

type AssetService struct {
	Repo           repository.AssetRepositoryInterface
	CampaignRepo   repository.CampaignRepositoryInterface
	ClientRepo     repository.ClientRepositoryInterface
	Store          storage.ObjectStore
	MaxUploadBytes int64
	Log            *zap.Logger
}

type UploadInput struct {
	FileName    string
	ContentType string
	ClientID    *int
	Tags        []string
	Body        io.Reader
}

func (s *AssetService) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

// sanitizeFileName keeps the base name and replaces anything outside a safe set.
func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "file"
	}
	return out
}

func normalizeTags(tags []string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Upload streams the body into the object store and records the asset.
func (s *AssetService) Upload(ctx context.Context, actor model.Actor, in UploadInput) (*model.Asset, error) {
	if strings.TrimSpace(in.FileName) == "" {
		return nil, appErrors.ValidationFields(map[string]string{"file": "file name is required"})
	}
	if in.ClientID != nil && s.ClientRepo != nil {
		if _, err := s.ClientRepo.GetByID(ctx, actor.OrganizationID, *in.ClientID); err != nil {
			return nil, err
		}
	}
	contentType := strings.TrimSpace(in.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	fileName := sanitizeFileName(in.FileName)
	key := fmt.Sprintf("org/%s/assets/%s/%s", actor.OrganizationID, uuid.NewString(), fileName)

	// Read one byte past the limit to detect oversize uploads.
	n, err := s.Store.Put(ctx, key, io.LimitReader(in.Body, s.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("store asset: %w", err)
	}
	if n > s.MaxUploadBytes {
		_ = s.Store.Delete(ctx, key)
		return nil, appErrors.PayloadTooLarge(fmt.Sprintf("file exceeds the %d byte limit", s.MaxUploadBytes))
	}

	a := &model.Asset{
		OrganizationID: actor.OrganizationID,
		ClientID:       in.ClientID,
		FileName:       fileName,
		ContentType:    contentType,
		SizeBytes:      n,
		StorageKey:     key,
		Tags:           normalizeTags(in.Tags),
		CreatedBy:      actor.UserID,
	}
	if err := s.Repo.Create(ctx, a); err != nil {
		_ = s.Store.Delete(ctx, key)
		return nil, fmt.Errorf("record asset: %w", err)
	}
	s.logger().Info("asset uploaded", zap.String("org", actor.OrganizationID), zap.Int("asset_id", a.ID), zap.Int64("bytes", n))
	return a, nil
}

func (s *AssetService) ListAssets(ctx context.Context, actor model.Actor, page, pageSize int, f model.AssetFilter) ([]*model.Asset, Pagination, error) {
	page, pageSize, offset := normalizePage(page, pageSize)
	f.Tag = strings.ToLower(strings.TrimSpace(f.Tag))
	assets, total, err := s.Repo.List(ctx, actor.OrganizationID, offset, pageSize, f)
	if err != nil {
		return nil, nil, err
	}
	return assets, newPagination(page, pageSize, total), nil
}

func (s *AssetService) GetAsset(ctx context.Context, actor model.Actor, id int) (*model.Asset, error) {
	return s.Repo.GetByID(ctx, actor.OrganizationID, id)
}

// OpenAsset returns the asset and a reader over its bytes. The caller closes the reader.
func (s *AssetService) OpenAsset(ctx context.Context, actor model.Actor, id int) (*model.Asset, io.ReadCloser, error) {
	a, err := s.Repo.GetByID(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.Store.Get(ctx, a.StorageKey)
	if err != nil {
		return nil, nil, fmt.Errorf("open asset %d: %w", id, err)
	}
	return a, rc, nil
}

// DeleteAsset is refused while the asset is attached to a live campaign.
func (s *AssetService) DeleteAsset(ctx context.Context, actor model.Actor, id int) error {
	a, err := s.Repo.GetByID(ctx, actor.OrganizationID, id)
	if err != nil {
		return err
	}
	n, err := s.Repo.CountActiveAttachments(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return appErrors.Conflict(fmt.Sprintf("asset is attached to %d campaign(s)", n))
	}
	if err := s.Repo.Delete(ctx, actor.OrganizationID, id); err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, a.StorageKey); err != nil {
		s.logger().Warn("failed to delete asset object", zap.String("key", a.StorageKey), zap.Error(err))
	}
	return nil
}

// ====================== Attachments ======================

func (s *AssetService) editableCampaign(ctx context.Context, actor model.Actor, campaignID int) (*model.Campaign, error) {
	c, err := s.CampaignRepo.GetByID(ctx, actor.OrganizationID, campaignID)
	if err != nil {
		return nil, err
	}
	if err := CheckEditable(c, actor.UserID); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *AssetService) ListAttachments(ctx context.Context, actor model.Actor, campaignID int) ([]*model.AssetAttachment, error) {
	if _, err := s.CampaignRepo.GetByID(ctx, actor.OrganizationID, campaignID); err != nil {
		return nil, err
	}
	return s.Repo.ListAttachments(ctx, campaignID)
}

func (s *AssetService) Attach(ctx context.Context, actor model.Actor, campaignID, assetID int, caption string) (*model.AssetAttachment, error) {
	if _, err := s.editableCampaign(ctx, actor, campaignID); err != nil {
		return nil, err
	}
	a, err := s.Repo.GetByID(ctx, actor.OrganizationID, assetID)
	if err != nil {
		return nil, err
	}
	att := &model.AssetAttachment{CampaignID: campaignID, AssetID: assetID, Caption: strings.TrimSpace(caption), Asset: a}
	if err := s.Repo.Attach(ctx, att); err != nil {
		return nil, err
	}
	return att, nil
}

func (s *AssetService) Detach(ctx context.Context, actor model.Actor, campaignID, attachmentID int) error {
	if _, err := s.editableCampaign(ctx, actor, campaignID); err != nil {
		return err
	}
	return s.Repo.Detach(ctx, campaignID, attachmentID)
}

// ReorderAttachments requires ids to be a permutation of the current attachments.
func (s *AssetService) ReorderAttachments(ctx context.Context, actor model.Actor, campaignID int, ids []int) ([]*model.AssetAttachment, error) {
	if _, err := s.editableCampaign(ctx, actor, campaignID); err != nil {
		return nil, err
	}
	current, err := s.Repo.ListAttachments(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if !samePermutation(current, ids) {
		return nil, appErrors.Validation("attachment ids must list every attachment of the campaign exactly once")
	}
	if err := s.Repo.Reorder(ctx, campaignID, ids); err != nil {
		return nil, fmt.Errorf("reorder attachments: %w", err)
	}
	return s.Repo.ListAttachments(ctx, campaignID)
}

func samePermutation(current []*model.AssetAttachment, ids []int) bool {
	if len(current) != len(ids) {
		return false
	}
	have := make([]int, len(current))
	for i, a := range current {
		have[i] = a.ID
	}
	want := append([]int(nil), ids...)
	sort.Ints(have)
	sort.Ints(want)
	for i := range have {
		if have[i] != want[i] {
			return false
		}
	}
	return true
}
