package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/yoockh/neurasense/internal/analysis"
	"github.com/yoockh/neurasense/internal/models"
)

// ErrNotConfigured is returned by the Init* functions when the backend's
// connection variable is unset. Callers treat that backend as disabled.
var ErrNotConfigured = errors.New("not configured")

// AppConfig is the process configuration read from the environment.
type AppConfig struct {
	Port           string
	PresetCacheTTL time.Duration
	Analysis       AnalysisSettings
	Workers        WorkerSettings
}

// AnalysisSettings are the window and spectral parameters plus optional
// per-threshold overrides applied on top of whichever preset a session uses.
type AnalysisSettings struct {
	Preset     string
	BufferSize int
	SampleRate float64
	Welch      analysis.WelchConfig
	Overrides  ThresholdOverrides
}

// ThresholdOverrides replace single preset fields. Nil means "keep the
// preset's value".
type ThresholdOverrides struct {
	DAR      *float64
	DBR      *float64
	RBPBeta  *float64
	RBPAlpha *float64
	RDAlpha  *float64
	RDBeta   *float64
	HIAlpha  *float64
	HIBeta   *float64
	Quorum   *int
	Left     []string
	Right    []string
}

type WorkerSettings struct {
	Count     int
	QueueSize int
}

// Load reads the full configuration. ANALYSIS_PRESET is required: the
// threshold set decides the clinical output, so there is no silent default.
func Load() (*AppConfig, error) {
	a, err := LoadAnalysis()
	if err != nil {
		return nil, err
	}
	w, err := LoadWorkers()
	if err != nil {
		return nil, err
	}
	ttl, err := envDuration("PRESET_CACHE_TTL", 10*time.Minute)
	if err != nil {
		return nil, err
	}
	return &AppConfig{
		Port:           getEnv("PORT", "8080"),
		PresetCacheTTL: ttl,
		Analysis:       a,
		Workers:        w,
	}, nil
}

func LoadAnalysis() (AnalysisSettings, error) {
	var s AnalysisSettings
	var err error

	s.Preset = strings.TrimSpace(os.Getenv("ANALYSIS_PRESET"))
	if s.Preset == "" {
		return s, errors.New("ANALYSIS_PRESET environment variable is not set (known presets: " +
			strings.Join(builtinNames(), ", ") + ")")
	}

	if s.BufferSize, err = envInt("ANALYSIS_BUFFER_SIZE", analysis.DefaultBufferSize); err != nil {
		return s, err
	}
	if s.SampleRate, err = envFloat("ANALYSIS_SAMPLE_RATE", analysis.DefaultSampleRate); err != nil {
		return s, err
	}
	if s.Welch.SegmentLength, err = envInt("ANALYSIS_SEGMENT_LENGTH", analysis.DefaultSegmentLength); err != nil {
		return s, err
	}
	if s.Welch.Overlap, err = envInt("ANALYSIS_SEGMENT_OVERLAP", analysis.DefaultSegmentOverlap); err != nil {
		return s, err
	}

	o := &s.Overrides
	for key, dst := range map[string]**float64{
		"ANALYSIS_DAR_THRESHOLD":  &o.DAR,
		"ANALYSIS_DBR_THRESHOLD":  &o.DBR,
		"ANALYSIS_RBPB_THRESHOLD": &o.RBPBeta,
		"ANALYSIS_RBPA_THRESHOLD": &o.RBPAlpha,
		"ANALYSIS_RDA_THRESHOLD":  &o.RDAlpha,
		"ANALYSIS_RDB_THRESHOLD":  &o.RDBeta,
		"ANALYSIS_HIA_THRESHOLD":  &o.HIAlpha,
		"ANALYSIS_HIB_THRESHOLD":  &o.HIBeta,
	} {
		if *dst, err = envFloatPtr(key); err != nil {
			return s, err
		}
	}
	if v := os.Getenv("ANALYSIS_QUORUM"); v != "" {
		q, err := strconv.Atoi(v)
		if err != nil {
			return s, fmt.Errorf("ANALYSIS_QUORUM: %w", err)
		}
		o.Quorum = &q
	}
	o.Left = envList("ANALYSIS_LEFT_CHANNELS")
	o.Right = envList("ANALYSIS_RIGHT_CHANNELS")

	probe := s
	if len(o.Left) == 0 || len(o.Right) == 0 {
		// One-sided partition overrides can only be checked against the real preset.
		probe.Overrides.Left, probe.Overrides.Right = nil, nil
	}
	return s, probe.Apply(placeholderPreset()).Validate()
}

func LoadWorkers() (WorkerSettings, error) {
	count, err := envInt("WORKER_COUNT", runtime.NumCPU())
	if err != nil {
		return WorkerSettings{}, err
	}
	if count <= 0 {
		count = 1
	}
	queue, err := envInt("WORKER_QUEUE_SIZE", count*4)
	if err != nil {
		return WorkerSettings{}, err
	}
	if queue <= 0 {
		queue = count * 4
	}
	return WorkerSettings{Count: count, QueueSize: queue}, nil
}

// Base returns the preset-independent part of the pipeline config.
func (s AnalysisSettings) Base() analysis.Config {
	return analysis.Config{
		BufferSize: s.BufferSize,
		SampleRate: s.SampleRate,
		Welch:      s.Welch,
	}
}

// Apply builds the pipeline config for preset p with the overrides applied.
func (s AnalysisSettings) Apply(p models.ThresholdPreset) analysis.Config {
	cfg := analysis.ApplyPreset(s.Base(), p)

	o := s.Overrides
	th := &cfg.Thresholds
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&th.DAR, o.DAR)
	set(&th.DBR, o.DBR)
	set(&th.RBPBeta, o.RBPBeta)
	set(&th.RBPAlpha, o.RBPAlpha)
	set(&th.RDAlpha, o.RDAlpha)
	set(&th.RDBeta, o.RDBeta)
	set(&th.HIAlpha, o.HIAlpha)
	set(&th.HIBeta, o.HIBeta)
	if o.Quorum != nil {
		th.Quorum = *o.Quorum
	}
	if len(o.Left) > 0 {
		cfg.Partition.Left = append([]string(nil), o.Left...)
	}
	if len(o.Right) > 0 {
		cfg.Partition.Right = append([]string(nil), o.Right...)
	}
	return cfg
}

// placeholderPreset lets LoadAnalysis validate the window, Welch and override
// values before the real preset has been resolved from storage.
func placeholderPreset() models.ThresholdPreset {
	p, _ := analysis.BuiltinPreset(analysis.PresetOpenBCIv03)
	return p
}

func builtinNames() []string {
	var names []string
	for _, p := range analysis.BuiltinPresets() {
		names = append(names, p.Name)
	}
	return names
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	v, err := envFloatPtr(key)
	if err != nil || v == nil {
		return def, err
	}
	return *v, nil
}

func envFloatPtr(key string) (*float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return &f, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
