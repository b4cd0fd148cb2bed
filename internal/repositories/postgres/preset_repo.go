package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yoockh/neurasense/internal/models"
	"github.com/yoockh/neurasense/internal/utils"
)

type PresetRepository interface {
	List(ctx context.Context) ([]models.ThresholdPreset, error)
	GetByName(ctx context.Context, name string) (*models.ThresholdPreset, error)
	Upsert(ctx context.Context, p *models.ThresholdPreset) error
	Seed(ctx context.Context, presets []models.ThresholdPreset) error
}

type presetRepo struct {
	db *gorm.DB
}

func NewPresetRepo(db *gorm.DB) PresetRepository {
	return &presetRepo{db: db}
}

// Migrate creates or updates the threshold_presets table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.ThresholdPreset{})
}

func (r *presetRepo) List(ctx context.Context) ([]models.ThresholdPreset, error) {
	var out []models.ThresholdPreset
	err := r.db.WithContext(ctx).
		Order("name ASC").
		Find(&out).Error
	return out, err
}

func (r *presetRepo) GetByName(ctx context.Context, name string) (*models.ThresholdPreset, error) {
	var p models.ThresholdPreset
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *presetRepo) Upsert(ctx context.Context, p *models.ThresholdPreset) error {
	p.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"description", "dar_threshold", "dbr_threshold", "rbp_beta_threshold", "rbp_alpha_threshold",
				"rd_alpha_threshold", "rd_beta_threshold", "hi_alpha_threshold", "hi_beta_threshold",
				"quorum", "left_channels", "right_channels", "updated_at",
			}),
		}).
		Create(p).Error
}

// Seed inserts presets that are not stored yet. Existing rows are left as
// operators edited them.
func (r *presetRepo) Seed(ctx context.Context, presets []models.ThresholdPreset) error {
	if len(presets) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]models.ThresholdPreset, len(presets))
	for i, p := range presets {
		p.UpdatedAt = now
		rows[i] = p
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&rows).Error
}
