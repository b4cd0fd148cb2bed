// Package memory keeps threshold presets in process. It backs the preset
// service when neither postgres nor mongo is configured.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yoockh/neurasense/internal/models"
	"github.com/yoockh/neurasense/internal/utils"
)

type PresetRepo struct {
	mu      sync.RWMutex
	presets map[string]models.ThresholdPreset
}

func NewPresetRepo(seed ...models.ThresholdPreset) *PresetRepo {
	r := &PresetRepo{presets: make(map[string]models.ThresholdPreset, len(seed))}
	_ = r.Seed(context.Background(), seed)
	return r
}

func (r *PresetRepo) List(_ context.Context) ([]models.ThresholdPreset, error) {
	r.mu.RLock()
	out := make([]models.ThresholdPreset, 0, len(r.presets))
	for _, p := range r.presets {
		out = append(out, clonePreset(p))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *PresetRepo) GetByName(_ context.Context, name string) (*models.ThresholdPreset, error) {
	r.mu.RLock()
	p, ok := r.presets[name]
	r.mu.RUnlock()
	if !ok {
		return nil, utils.ErrNotFound
	}
	p = clonePreset(p)
	return &p, nil
}

func (r *PresetRepo) Upsert(_ context.Context, p *models.ThresholdPreset) error {
	p.UpdatedAt = time.Now().UTC()
	r.mu.Lock()
	r.presets[p.Name] = clonePreset(*p)
	r.mu.Unlock()
	return nil
}

func (r *PresetRepo) Seed(_ context.Context, presets []models.ThresholdPreset) error {
	now := time.Now().UTC()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range presets {
		if _, exists := r.presets[p.Name]; exists {
			continue
		}
		p.UpdatedAt = now
		r.presets[p.Name] = clonePreset(p)
	}
	return nil
}

func clonePreset(p models.ThresholdPreset) models.ThresholdPreset {
	p.LeftChannels = append([]string(nil), p.LeftChannels...)
	p.RightChannels = append([]string(nil), p.RightChannels...)
	return p
}
