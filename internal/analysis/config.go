// Package analysis turns buffered EEG packets into band-power metrics and a
// threshold-based stroke-risk assessment.
package analysis

import (
	"fmt"

	"github.com/yoockh/neurasense/internal/models"
	"github.com/yoockh/neurasense/internal/utils"
)

// Band is a named frequency interval, bounds inclusive.
type Band struct {
	Name   string  `json:"name"`
	LowHz  float64 `json:"low_hz"`
	HighHz float64 `json:"high_hz"`
}

var (
	Delta = Band{Name: "Delta", LowHz: 0.5, HighHz: 4}
	Theta = Band{Name: "Theta", LowHz: 4, HighHz: 8}
	Alpha = Band{Name: "Alpha", LowHz: 8, HighHz: 13}
	Beta  = Band{Name: "Beta", LowHz: 13, HighHz: 30}
)

// CanonicalBands is the fixed band set; relative band power is normalized
// over exactly these four.
var CanonicalBands = []Band{Delta, Theta, Alpha, Beta}

// AsymmetryBands are the bands used for left/right comparisons.
var AsymmetryBands = []Band{Alpha, Beta}

const (
	DefaultBufferSize     = 750
	DefaultSampleRate     = 200.0
	DefaultSegmentLength  = 256
	DefaultSegmentOverlap = 0

	PresetOpenBCIv03 = "openbci-v0.3"
	PresetOpenBCIAlt = "openbci-alt"
)

// Partition assigns channels to the left and right hemisphere groups. The
// assignment changes the clinical meaning of RD/HI and is never derived.
type Partition struct {
	Left  []string `json:"left"`
	Right []string `json:"right"`
}

// Swap returns the partition with the hemispheres exchanged.
func (p Partition) Swap() Partition { return Partition{Left: p.Right, Right: p.Left} }

// Thresholds holds the abnormal cut-offs and the flag quorum.
type Thresholds struct {
	DAR      float64 `json:"dar"`       // abnormal when DAR > DAR and DBR > DBR
	DBR      float64 `json:"dbr"`
	RBPBeta  float64 `json:"rbp_beta"`  // abnormal below
	RBPAlpha float64 `json:"rbp_alpha"` // abnormal below
	RDAlpha  float64 `json:"rd_alpha"`  // abnormal above
	RDBeta   float64 `json:"rd_beta"`   // abnormal above
	HIAlpha  float64 `json:"hi_alpha"`  // abnormal below
	HIBeta   float64 `json:"hi_beta"`   // abnormal below
	Quorum   int     `json:"quorum"`
}

// WelchConfig fixes the spectral estimation parameters. Results depend on
// them, so they are part of the configuration.
type WelchConfig struct {
	SegmentLength int `json:"segment_length"`
	Overlap       int `json:"overlap"`
}

// Config is everything one session's pipeline needs.
type Config struct {
	Preset     string      `json:"preset"`
	BufferSize int         `json:"buffer_size"`
	SampleRate float64     `json:"sample_rate"`
	Welch      WelchConfig `json:"welch"`
	Partition  Partition   `json:"partition"`
	Thresholds Thresholds  `json:"thresholds"`
}

// DefaultWelch matches the estimator defaults the thresholds were tuned with:
// 256-sample Hamming segments without overlap.
func DefaultWelch() WelchConfig {
	return WelchConfig{SegmentLength: DefaultSegmentLength, Overlap: DefaultSegmentOverlap}
}

// BuiltinPresets returns the two threshold sets observed in the field. Which
// one is clinically authoritative is an operator decision.
func BuiltinPresets() []models.ThresholdPreset {
	return []models.ThresholdPreset{
		{
			Name:              PresetOpenBCIv03,
			Description:       "OpenBCI script v0.3: quorum 4, left channel_1/channel_2, right channel_3/channel_4",
			DARThreshold:      9,
			DBRThreshold:      22,
			RBPBetaThreshold:  0.05,
			RBPAlphaThreshold: 0.10,
			RDAlphaThreshold:  0.076,
			RDBetaThreshold:   0.12,
			HIAlphaThreshold:  1.05,
			HIBetaThreshold:   1.00,
			Quorum:            4,
			LeftChannels:      []string{"channel_1", "channel_2"},
			RightChannels:     []string{"channel_3", "channel_4"},
		},
		{
			Name:              PresetOpenBCIAlt,
			Description:       "alternate revision: quorum 3, left channel_1/channel_3, right channel_2/channel_4",
			DARThreshold:      10,
			DBRThreshold:      25,
			RBPBetaThreshold:  0.05,
			RBPAlphaThreshold: 0.10,
			RDAlphaThreshold:  0.08,
			RDBetaThreshold:   0.125,
			HIAlphaThreshold:  1.05,
			HIBetaThreshold:   1.00,
			Quorum:            3,
			LeftChannels:      []string{"channel_1", "channel_3"},
			RightChannels:     []string{"channel_2", "channel_4"},
		},
	}
}

// BuiltinPreset looks up a built-in preset by name.
func BuiltinPreset(name string) (models.ThresholdPreset, bool) {
	for _, p := range BuiltinPresets() {
		if p.Name == name {
			return p, true
		}
	}
	return models.ThresholdPreset{}, false
}

// ApplyPreset copies the preset thresholds and partition onto base.
func ApplyPreset(base Config, p models.ThresholdPreset) Config {
	base.Preset = p.Name
	base.Thresholds = Thresholds{
		DAR:      p.DARThreshold,
		DBR:      p.DBRThreshold,
		RBPBeta:  p.RBPBetaThreshold,
		RBPAlpha: p.RBPAlphaThreshold,
		RDAlpha:  p.RDAlphaThreshold,
		RDBeta:   p.RDBetaThreshold,
		HIAlpha:  p.HIAlphaThreshold,
		HIBeta:   p.HIBetaThreshold,
		Quorum:   p.Quorum,
	}
	base.Partition = Partition{
		Left:  append([]string(nil), p.LeftChannels...),
		Right: append([]string(nil), p.RightChannels...),
	}
	return base
}

// FromPreset builds a complete config with default buffering and Welch
// parameters.
func FromPreset(p models.ThresholdPreset) Config {
	return ApplyPreset(Config{
		BufferSize: DefaultBufferSize,
		SampleRate: DefaultSampleRate,
		Welch:      DefaultWelch(),
	}, p)
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	const op = "analysis.Config.Validate"

	switch {
	case c.BufferSize <= 0:
		return utils.E(utils.CodeInvalidArgument, op, "buffer size must be > 0", nil)
	case c.SampleRate <= 0:
		return utils.E(utils.CodeInvalidArgument, op, "sample rate must be > 0", nil)
	case c.Welch.SegmentLength <= 0:
		return utils.E(utils.CodeInvalidArgument, op, "segment length must be > 0", nil)
	case c.Welch.Overlap < 0 || c.Welch.Overlap >= c.Welch.SegmentLength:
		return utils.E(utils.CodeInvalidArgument, op, "segment overlap must be in [0, segment length)", nil)
	case c.Thresholds.Quorum <= 0 || c.Thresholds.Quorum > FlagCount:
		return utils.E(utils.CodeInvalidArgument, op, fmt.Sprintf("quorum must be in [1, %d]", FlagCount), nil)
	}
	return c.Partition.validate()
}

func (p Partition) validate() error {
	const op = "analysis.Partition"

	if len(p.Left) == 0 || len(p.Right) == 0 {
		return utils.E(utils.CodeInvalidArgument, op, "left and right channel groups must be non-empty", utils.ErrInvalidPartition)
	}
	seen := make(map[string]struct{}, len(p.Left)+len(p.Right))
	for _, ch := range append(append([]string(nil), p.Left...), p.Right...) {
		if _, dup := seen[ch]; dup {
			return utils.E(utils.CodeInvalidArgument, op, "channel "+ch+" appears more than once", utils.ErrInvalidPartition)
		}
		seen[ch] = struct{}{}
	}
	return nil
}
