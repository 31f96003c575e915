package service_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/prdesk-backend/internal/errors"
	"github.com/unclebandit/prdesk-backend/internal/model"
	"github.com/unclebandit/prdesk-backend/internal/service"
	"github.com/unclebandit/prdesk-backend/internal/storage"
)

func newAssetService(cs ...*model.Campaign) (*service.AssetService, *MockAssetRepo, *storage.MemoryStore) {
	repo := NewMockAssetRepo()
	store := storage.NewMemoryStore()
	svc := &service.AssetService{
		Repo:           repo,
		CampaignRepo:   NewMockCampaignRepo(cs...),
		ClientRepo:     NewMockClientRepo(),
		Store:          store,
		MaxUploadBytes: 16,
	}
	return svc, repo, store
}

func upload(t *testing.T, svc *service.AssetService, name, body string) *model.Asset {
	t.Helper()
	a, err := svc.Upload(context.Background(), alice, service.UploadInput{
		FileName:    name,
		ContentType: "image/png",
		Tags:        []string{"Logo", " logo ", ""},
		Body:        strings.NewReader(body),
	})
	require.NoError(t, err)
	return a
}

func TestUploadStoresObject(t *testing.T) {
	svc, _, store := newAssetService()

	a := upload(t, svc, "../../Team Photo.png", "png-bytes")
	assert.Equal(t, "Team_Photo.png", a.FileName)
	assert.Equal(t, int64(9), a.SizeBytes)
	assert.Equal(t, []string{"logo"}, a.Tags)
	assert.True(t, strings.HasPrefix(a.StorageKey, "org/org-1/assets/"))
	assert.True(t, strings.HasSuffix(a.StorageKey, "/Team_Photo.png"))
	assert.Equal(t, []string{a.StorageKey}, store.Keys())

	_, rc, err := svc.OpenAsset(context.Background(), alice, a.ID)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(body))
}

func TestUploadRejectsOversizeFile(t *testing.T) {
	svc, _, store := newAssetService()

	_, err := svc.Upload(context.Background(), alice, service.UploadInput{
		FileName: "big.bin",
		Body:     bytes.NewReader(make([]byte, 17)),
	})
	assert.Equal(t, appErrors.CodePayloadTooLarge, appErrors.CodeOf(err))
	assert.Empty(t, store.Keys())
}

func TestAttachDetachReorder(t *testing.T) {
	svc, _, _ := newAssetService(draft("Launch"))
	ctx := context.Background()
	a1 := upload(t, svc, "a.png", "a")
	a2 := upload(t, svc, "b.png", "b")

	att1, err := svc.Attach(ctx, alice, 1, a1.ID, " hero ")
	require.NoError(t, err)
	assert.Equal(t, 0, att1.Position)
	assert.Equal(t, "hero", att1.Caption)
	att2, err := svc.Attach(ctx, alice, 1, a2.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 1, att2.Position)

	_, err = svc.Attach(ctx, alice, 1, a1.ID, "")
	assert.Equal(t, appErrors.CodeConflict, appErrors.CodeOf(err))

	_, err = svc.ReorderAttachments(ctx, alice, 1, []int{att2.ID})
	assert.Equal(t, appErrors.CodeValidation, appErrors.CodeOf(err))
	_, err = svc.ReorderAttachments(ctx, alice, 1, []int{att2.ID, att2.ID})
	assert.Equal(t, appErrors.CodeValidation, appErrors.CodeOf(err))

	list, err := svc.ReorderAttachments(ctx, alice, 1, []int{att2.ID, att1.ID})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, att2.ID, list[0].ID)
	assert.Equal(t, att1.ID, list[1].ID)

	err = svc.DeleteAsset(ctx, alice, a1.ID)
	assert.Equal(t, appErrors.CodeConflict, appErrors.CodeOf(err))

	require.NoError(t, svc.Detach(ctx, alice, 1, att1.ID))
	require.NoError(t, svc.DeleteAsset(ctx, alice, a1.ID))
	_, err = svc.GetAsset(ctx, alice, a1.ID)
	assert.Equal(t, appErrors.CodeNotFound, appErrors.CodeOf(err))
}

func TestAttachFollowsEditRules(t *testing.T) {
	c := draft("Launch")
	c.Status = model.StatusSent
	svc, _, _ := newAssetService(c)
	a := upload(t, svc, "a.png", "a")

	_, err := svc.Attach(context.Background(), alice, 1, a.ID, "")
	assert.Equal(t, appErrors.CodeNotEditable, appErrors.CodeOf(err))
}
