package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"financial_model/pkg/core/valuation"
	"financial_model/pkg/models"
)

func record(ev float64) *models.RunRecord {
	return &models.RunRecord{
		Source:    "model.xlsx",
		Years:     5,
		Valuation: valuation.DCFResult{EnterpriseValue: ev, DiscountRate: 0.1, ExitMultiple: 5},
	}
}

func TestRunRepo_FileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	repo := NewRunRepo(nil, dir, nil)
	ctx := context.Background()

	rec := record(4_363_636.36)
	require.NoError(t, repo.Save(ctx, rec))
	_, err := uuid.Parse(rec.ID)
	require.NoError(t, err)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.FileExists(t, filepath.Join(dir, rec.ID+".json"))

	got, err := repo.Load(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "model.xlsx", got.Source)
	assert.Equal(t, 4_363_636.36, got.EnterpriseValue())
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
}

func TestRunRepo_SaveIsUpsert(t *testing.T) {
	repo := NewRunRepo(nil, t.TempDir(), nil)
	ctx := context.Background()

	rec := record(1)
	require.NoError(t, repo.Save(ctx, rec))
	rec.Valuation.EnterpriseValue = 2
	require.NoError(t, repo.Save(ctx, rec))

	list, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2.0, list[0].EnterpriseValue)
}

func TestRunRepo_LoadMissing(t *testing.T) {
	repo := NewRunRepo(nil, t.TempDir(), nil)

	_, err := repo.Load(context.Background(), uuid.NewString())
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = repo.Load(context.Background(), "../../etc/passwd")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRunRepo_ListNewestFirst(t *testing.T) {
	repo := NewRunRepo(nil, t.TempDir(), nil)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		rec := record(float64(i))
		rec.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, repo.Save(ctx, rec))
	}

	list, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, 2.0, list[0].EnterpriseValue)
	assert.Equal(t, 0.0, list[2].EnterpriseValue)

	limited, err := repo.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestRunRepo_ListSkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	repo := NewRunRepo(nil, dir, nil)
	require.NoError(t, repo.Save(context.Background(), record(1)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0644))

	list, err := repo.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRunRepo_RejectsBadID(t *testing.T) {
	repo := NewRunRepo(nil, t.TempDir(), nil)
	rec := record(1)
	rec.ID = "not-a-uuid"
	assert.Error(t, repo.Save(context.Background(), rec))
}

func TestEnsureSchema_NilPool(t *testing.T) {
	assert.Error(t, EnsureSchema(context.Background(), nil))
}
