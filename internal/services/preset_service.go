package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/neurasense/config"
	"github.com/yoockh/neurasense/internal/analysis"
	"github.com/yoockh/neurasense/internal/cache"
	"github.com/yoockh/neurasense/internal/models"
	"github.com/yoockh/neurasense/internal/utils"
)

// PresetStore is satisfied by the postgres, mongo and memory preset repos.
type PresetStore interface {
	List(ctx context.Context) ([]models.ThresholdPreset, error)
	GetByName(ctx context.Context, name string) (*models.ThresholdPreset, error)
}

type PresetService interface {
	List(ctx context.Context) ([]models.ThresholdPreset, error)
	Get(ctx context.Context, name string) (*models.ThresholdPreset, error)
	// Resolve returns the pipeline config for name, or for the default
	// preset when name is empty.
	Resolve(ctx context.Context, name string) (analysis.Config, error)
	Default() string
}

type presetService struct {
	store    PresetStore
	cache    cache.Cache
	ttl      time.Duration
	settings config.AnalysisSettings
	log      *logrus.Logger
}

func NewPresetService(store PresetStore, c cache.Cache, ttl time.Duration, settings config.AnalysisSettings, log *logrus.Logger) PresetService {
	if log == nil {
		log = logrus.New()
	}
	return &presetService{store: store, cache: c, ttl: ttl, settings: settings, log: log}
}

func (s *presetService) Default() string { return s.settings.Preset }

func (s *presetService) List(ctx context.Context) ([]models.ThresholdPreset, error) {
	const op = "PresetService.List"

	out, err := s.store.List(ctx)
	if err != nil {
		s.log.WithError(err).Warn("preset store unavailable, listing built-in presets")
		return analysis.BuiltinPresets(), nil
	}
	if len(out) == 0 {
		return nil, utils.E(utils.CodeNotFound, op, "no presets configured", utils.ErrNotFound)
	}
	return out, nil
}

func (s *presetService) Get(ctx context.Context, name string) (*models.ThresholdPreset, error) {
	const op = "PresetService.Get"

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "preset name is required", nil)
	}

	var cached models.ThresholdPreset
	if s.cache != nil {
		hit, err := s.cache.GetJSON(ctx, cache.PresetKey(name), &cached)
		if err != nil {
			s.log.WithError(err).WithField("preset", name).Warn("preset cache read failed")
		}
		if hit {
			return &cached, nil
		}
	}

	p, err := s.store.GetByName(ctx, name)
	switch {
	case err == nil:
	case errors.Is(err, utils.ErrNotFound):
		builtin, ok := analysis.BuiltinPreset(name)
		if !ok {
			return nil, utils.E(utils.CodeNotFound, op, "unknown preset "+name, utils.ErrUnknownPreset)
		}
		p = &builtin
	default:
		builtin, ok := analysis.BuiltinPreset(name)
		if !ok {
			return nil, utils.E(utils.CodeUnavailable, op, "preset store unavailable", err)
		}
		s.log.WithError(err).WithField("preset", name).Warn("preset store unavailable, using built-in preset")
		return &builtin, nil
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cache.PresetKey(name), p, s.ttl); err != nil {
			s.log.WithError(err).WithField("preset", name).Warn("preset cache write failed")
		}
	}
	return p, nil
}

func (s *presetService) Resolve(ctx context.Context, name string) (analysis.Config, error) {
	const op = "PresetService.Resolve"

	if strings.TrimSpace(name) == "" {
		name = s.settings.Preset
	}
	p, err := s.Get(ctx, name)
	if err != nil {
		return analysis.Config{}, err
	}

	cfg := s.settings.Apply(*p)
	if err := cfg.Validate(); err != nil {
		return analysis.Config{}, utils.E(utils.CodeInvalidArgument, op, "preset "+name+" is not usable: "+utils.SafeMessage(err), err)
	}
	return cfg, nil
}
