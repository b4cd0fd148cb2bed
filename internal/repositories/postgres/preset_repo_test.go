package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yoockh/neurasense/internal/analysis"
	"github.com/yoockh/neurasense/internal/models"
	"github.com/yoockh/neurasense/internal/utils"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	uri := os.Getenv("POSTGRES_TEST_URI")
	if uri == "" {
		t.Skip("POSTGRES_TEST_URI not set")
	}
	db, err := gorm.Open(pgdriver.Open(uri), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func TestPresetRepo_Integration(t *testing.T) {
	db := testDB(t)
	repo := NewPresetRepo(db)
	ctx := context.Background()

	name := "test-" + uuid.NewString()
	t.Cleanup(func() { db.Where("name = ?", name).Delete(&models.ThresholdPreset{}) })

	builtin, _ := analysis.BuiltinPreset(analysis.PresetOpenBCIv03)
	p := builtin
	p.Name = name
	require.NoError(t, repo.Seed(ctx, []models.ThresholdPreset{p}))

	got, err := repo.GetByName(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, []string{"channel_1", "channel_2"}, []string(got.LeftChannels))
	assert.Equal(t, 4, got.Quorum)

	// Seed never overwrites.
	p.Quorum = 1
	require.NoError(t, repo.Seed(ctx, []models.ThresholdPreset{p}))
	got, _ = repo.GetByName(ctx, name)
	assert.Equal(t, 4, got.Quorum)

	require.NoError(t, repo.Upsert(ctx, &p))
	got, _ = repo.GetByName(ctx, name)
	assert.Equal(t, 1, got.Quorum)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, list)

	_, err = repo.GetByName(ctx, "missing-"+uuid.NewString())
	assert.ErrorIs(t, err, utils.ErrNotFound)
}
