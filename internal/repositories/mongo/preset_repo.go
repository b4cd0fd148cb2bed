package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

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
	col *mongo.Collection
}

func NewPresetRepo(db *mongo.Database, collection string) PresetRepository {
	return &presetRepo{col: db.Collection(collection)}
}

func (r *presetRepo) List(ctx context.Context) ([]models.ThresholdPreset, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.ThresholdPreset
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *presetRepo) GetByName(ctx context.Context, name string) (*models.ThresholdPreset, error) {
	var p models.ThresholdPreset
	err := r.col.FindOne(ctx, bson.M{"name": name}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *presetRepo) Upsert(ctx context.Context, p *models.ThresholdPreset) error {
	p.UpdatedAt = time.Now().UTC()
	_, err := r.col.ReplaceOne(ctx, bson.M{"name": p.Name}, p, options.Replace().SetUpsert(true))
	return err
}

// Seed inserts presets that are not stored yet; stored documents win.
func (r *presetRepo) Seed(ctx context.Context, presets []models.ThresholdPreset) error {
	if len(presets) == 0 {
		return nil
	}
	now := time.Now().UTC()
	writes := make([]mongo.WriteModel, 0, len(presets))
	for _, p := range presets {
		p.UpdatedAt = now
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"name": p.Name}).
			SetUpdate(bson.M{"$setOnInsert": p}).
			SetUpsert(true))
	}
	_, err := r.col.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	return err
}
