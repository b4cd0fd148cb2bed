package analysis

import (
	"math"

	"github.com/yoockh/neurasense/internal/models"
)

// FlagCount is the number of independent abnormality predicates.
const FlagCount = 7

// Flag identifies one predicate, in wire order.
type Flag int

const (
	FlagRatios Flag = iota
	FlagRBPBeta
	FlagRBPAlpha
	FlagRDAlpha
	FlagRDBeta
	FlagHIAlpha
	FlagHIBeta
)

var flagNames = [FlagCount]string{
	"Ratios", "RBP Beta", "RBP Alpha", "Relative Diff Alpha", "Relative Diff Beta",
	"Hemispheric Index Alpha", "Hemispheric Index Beta",
}

func (f Flag) String() string { return flagNames[f] }

// Assessment is the outcome of evaluating one bundle.
type Assessment struct {
	Abnormal [FlagCount]bool
	Count    int
	Stroke   bool
}

// Label returns "Normal" or "Abnormal" for f.
func (a Assessment) Label(f Flag) string {
	if a.Abnormal[f] {
		return models.FlagAbnormal
	}
	return models.FlagNormal
}

// Assess evaluates the seven predicates of th against b. A predicate with a
// NaN or infinite operand is Normal, so degenerate spectra never add flags.
// With active == false (baseline capture) every flag is Normal and stroke is
// never raised.
func Assess(b MetricBundle, th Thresholds, active bool) Assessment {
	var a Assessment
	if !active {
		return a
	}

	a.Abnormal[FlagRatios] = above(b.DAR, th.DAR) && above(b.DBR, th.DBR)
	a.Abnormal[FlagRBPBeta] = below(b.RBPBeta, th.RBPBeta)
	a.Abnormal[FlagRBPAlpha] = below(b.RBPAlpha, th.RBPAlpha)
	a.Abnormal[FlagRDAlpha] = above(b.RDAlpha, th.RDAlpha)
	a.Abnormal[FlagRDBeta] = above(b.RDBeta, th.RDBeta)
	a.Abnormal[FlagHIAlpha] = below(b.HIAlpha, th.HIAlpha)
	a.Abnormal[FlagHIBeta] = below(b.HIBeta, th.HIBeta)

	for _, bad := range a.Abnormal {
		if bad {
			a.Count++
		}
	}
	a.Stroke = a.Count >= th.Quorum
	return a
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func above(v, limit float64) bool { return finite(v) && v > limit }
func below(v, limit float64) bool { return finite(v) && v < limit }

// Result renders the wire record for a bundle and its assessment.
func Result(b MetricBundle, a Assessment) models.AssessmentResult {
	r := models.AssessmentResult{
		DAR:      models.Metric(models.Round2(b.DAR)),
		DBR:      models.Metric(models.Round2(b.DBR)),
		RBPAlpha: models.Metric(models.Round2(b.RBPAlpha)),
		RBPBeta:  models.Metric(models.Round2(b.RBPBeta)),
		RDAlpha:  models.Metric(models.Round2(b.RDAlpha)),
		RDBeta:   models.Metric(models.Round2(b.RDBeta)),
		HIAlpha:  models.Metric(models.Round2(b.HIAlpha)),
		HIBeta:   models.Metric(models.Round2(b.HIBeta)),

		RatioFlag: a.Label(FlagRatios),
		RBPBFlag:  a.Label(FlagRBPBeta),
		RBPAFlag:  a.Label(FlagRBPAlpha),
		RDAFlag:   a.Label(FlagRDAlpha),
		RDBFlag:   a.Label(FlagRDBeta),
		HIAFlag:   a.Label(FlagHIAlpha),
		HIBFlag:   a.Label(FlagHIBeta),
	}
	if a.Stroke {
		r.Stroke = 1
	}
	return r
}
