package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/yoockh/neurasense/internal/utils"
)

// MetricBundle holds the derived scalars of one window. Zero denominators are
// not special-cased, so fields may be NaN or Inf.
type MetricBundle struct {
	DAR      float64 `json:"dar"`
	DBR      float64 `json:"dbr"`
	RBPAlpha float64 `json:"rbp_alpha"`
	RBPBeta  float64 `json:"rbp_beta"`
	RDAlpha  float64 `json:"rd_alpha"`
	RDBeta   float64 `json:"rd_beta"`
	HIAlpha  float64 `json:"hi_alpha"`
	HIBeta   float64 `json:"hi_beta"`
}

// MetricEngine derives ratios, relative band power and hemispheric asymmetry
// from a band power table.
type MetricEngine struct {
	partition Partition
}

func NewMetricEngine(p Partition) *MetricEngine {
	return &MetricEngine{partition: p}
}

func (e *MetricEngine) Partition() Partition { return e.partition }

// Compute derives the full bundle. names is the channel order of table and
// duration the window length in seconds.
func (e *MetricEngine) Compute(table BandPowerTable, names []string, duration float64) (MetricBundle, error) {
	var b MetricBundle
	b.DAR, b.DBR = BandRatios(table)

	rbp := RelativeBandPower(table, duration)
	b.RBPAlpha = rbp[Alpha.Name]
	b.RBPBeta = rbp[Beta.Name]

	for _, band := range AsymmetryBands {
		left, right, err := e.Hemispheres(table, names, band)
		if err != nil {
			return MetricBundle{}, err
		}
		rd, hi := RelativeDifference(left, right), HemisphericIndex(left, right)
		switch band.Name {
		case Alpha.Name:
			b.RDAlpha, b.HIAlpha = rd, hi
		case Beta.Name:
			b.RDBeta, b.HIBeta = rd, hi
		}
	}
	return b, nil
}

// Hemispheres splits the per-channel powers of band into the left and right
// groups of the partition.
func (e *MetricEngine) Hemispheres(table BandPowerTable, names []string, band Band) (left, right []float64, err error) {
	m := &ChannelMatrix{Names: names}
	powers := table.Power(band)
	pick := func(group []string) ([]float64, error) {
		out := make([]float64, 0, len(group))
		for _, n := range group {
			i, ok := m.Index(n)
			if !ok {
				return nil, utils.E(utils.CodeInvalidArgument, "MetricEngine.Hemispheres",
					fmt.Sprintf("partition channel %s not present (window has %d channels)", n, len(names)), utils.ErrInvalidPartition)
			}
			out = append(out, powers[i])
		}
		return out, nil
	}
	if left, err = pick(e.partition.Left); err != nil {
		return nil, nil, err
	}
	if right, err = pick(e.partition.Right); err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

// BandRatios returns the channel means of Delta/Alpha and Delta/Beta.
func BandRatios(table BandPowerTable) (dar, dbr float64) {
	delta, alpha, beta := table.Power(Delta), table.Power(Alpha), table.Power(Beta)
	darPer := make([]float64, len(delta))
	dbrPer := make([]float64, len(delta))
	for i := range delta {
		darPer[i] = delta[i] / alpha[i]
		dbrPer[i] = delta[i] / beta[i]
	}
	return mean(darPer), mean(dbrPer)
}

// RelativeBandPowerPerChannel returns, per canonical band, each channel's
// share of its total absolute power (mean power x duration) across the
// canonical bands.
func RelativeBandPowerPerChannel(table BandPowerTable, duration float64) map[string][]float64 {
	channels := len(table.Power(Delta))
	abs := make(map[string][]float64, len(CanonicalBands))
	total := make([]float64, channels)
	for _, b := range CanonicalBands {
		row := make([]float64, channels)
		floats.ScaleTo(row, duration, table.Power(b))
		floats.Add(total, row)
		abs[b.Name] = row
	}

	rel := make(map[string][]float64, len(CanonicalBands))
	for name, row := range abs {
		out := make([]float64, channels)
		floats.DivTo(out, row, total)
		rel[name] = out
	}
	return rel
}

// RelativeBandPower averages RelativeBandPowerPerChannel across channels.
func RelativeBandPower(table BandPowerTable, duration float64) map[string]float64 {
	per := RelativeBandPowerPerChannel(table, duration)
	out := make(map[string]float64, len(per))
	for name, row := range per {
		out[name] = mean(row)
	}
	return out
}

// RelativeDifference is |avg(left) - avg(right)| / (avg(left) + avg(right)).
func RelativeDifference(left, right []float64) float64 {
	l, r := mean(left), mean(right)
	return math.Abs(l-r) / (l + r)
}

// HemisphericIndex is sum(left) / sum(right).
func HemisphericIndex(left, right []float64) float64 {
	return floats.Sum(left) / floats.Sum(right)
}

func mean(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return stat.Mean(x, nil)
}
