package analysis

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/neurasense/internal/utils"
)

var fourChannels = []string{"channel_1", "channel_2", "channel_3", "channel_4"}

func randomTable(r *rand.Rand, channels int) BandPowerTable {
	t := BandPowerTable{}
	for _, b := range CanonicalBands {
		row := make([]float64, channels)
		for i := range row {
			row[i] = 0.01 + r.Float64()*10
		}
		t[b.Name] = row
	}
	return t
}

func TestBandRatios(t *testing.T) {
	table := BandPowerTable{
		"Delta": {4, 9},
		"Theta": {1, 1},
		"Alpha": {2, 3},
		"Beta":  {1, 9},
	}

	dar, dbr := BandRatios(table)
	assert.InDelta(t, (2.0+3.0)/2, dar, 1e-12)
	assert.InDelta(t, (4.0+1.0)/2, dbr, 1e-12)
}

func TestBandRatios_ZeroDenominatorPropagates(t *testing.T) {
	table := BandPowerTable{
		"Delta": {1, 1},
		"Theta": {1, 1},
		"Alpha": {0, 1},
		"Beta":  {1, 1},
	}

	dar, dbr := BandRatios(table)
	assert.True(t, math.IsInf(dar, 1))
	assert.InDelta(t, 1.0, dbr, 1e-12)
}

func TestRelativeBandPower_SumsToOnePerChannel(t *testing.T) {
	r := rand.New(rand.NewSource(7))

	for trial := 0; trial < 20; trial++ {
		table := randomTable(r, 4)
		per := RelativeBandPowerPerChannel(table, 3.75)

		for c := 0; c < 4; c++ {
			sum := 0.0
			for _, b := range CanonicalBands {
				sum += per[b.Name][c]
			}
			assert.InDelta(t, 1.0, sum, 1e-12, "trial %d channel %d", trial, c)
		}
	}
}

func TestRelativeBandPower_DurationCancels(t *testing.T) {
	table := randomTable(rand.New(rand.NewSource(3)), 4)

	short := RelativeBandPower(table, 0.5)
	long := RelativeBandPower(table, 30)
	for _, b := range CanonicalBands {
		assert.InDelta(t, short[b.Name], long[b.Name], 1e-12)
	}
}

func TestHemisphericIndex_Reciprocal(t *testing.T) {
	r := rand.New(rand.NewSource(11))

	for trial := 0; trial < 20; trial++ {
		left := []float64{r.Float64() + 0.1, r.Float64() + 0.1}
		right := []float64{r.Float64() + 0.1, r.Float64() + 0.1}

		assert.InDelta(t, 1.0, HemisphericIndex(left, right)*HemisphericIndex(right, left), 1e-12)
	}
}

func TestRelativeDifference_SymmetricAndBounded(t *testing.T) {
	r := rand.New(rand.NewSource(5))

	for trial := 0; trial < 50; trial++ {
		left := []float64{r.Float64() * 5, r.Float64() * 5}
		right := []float64{r.Float64() * 5, r.Float64() * 5}

		rd := RelativeDifference(left, right)
		assert.InDelta(t, rd, RelativeDifference(right, left), 1e-15)
		assert.GreaterOrEqual(t, rd, 0.0)
		assert.LessOrEqual(t, rd, 1.0)
	}

	assert.InDelta(t, 1.0, RelativeDifference([]float64{2, 2}, []float64{0, 0}), 1e-12)
	assert.True(t, math.IsNaN(RelativeDifference([]float64{0}, []float64{0})))
}

func TestMetricEngine_Compute(t *testing.T) {
	table := BandPowerTable{
		"Delta": {1, 1, 1, 1},
		"Theta": {1, 1, 1, 1},
		"Alpha": {3, 1, 1, 1},
		"Beta":  {1, 1, 2, 2},
	}
	e := NewMetricEngine(Partition{Left: []string{"channel_1", "channel_2"}, Right: []string{"channel_3", "channel_4"}})

	b, err := e.Compute(table, fourChannels, 3.75)
	require.NoError(t, err)

	assert.InDelta(t, (1.0/3+1+1+1)/4, b.DAR, 1e-12)
	assert.InDelta(t, (1+1+0.5+0.5)/4.0, b.DBR, 1e-12)
	assert.InDelta(t, 1.0/3.0, b.RDAlpha, 1e-12) // |2 - 1| / (2 + 1)
	assert.InDelta(t, 2.0, b.HIAlpha, 1e-12)     // (3+1) / (1+1)
	assert.InDelta(t, 1.0/3.0, b.RDBeta, 1e-12)  // |1 - 2| / (1 + 2)
	assert.InDelta(t, 0.5, b.HIBeta, 1e-12)      // (1+1) / (2+2)

	// Channel 1: alpha 3 of total 6.
	rbp := RelativeBandPowerPerChannel(table, 3.75)
	assert.InDelta(t, 0.5, rbp["Alpha"][0], 1e-12)
}

func TestMetricEngine_SwappedPartition(t *testing.T) {
	table := randomTable(rand.New(rand.NewSource(9)), 4)
	p := Partition{Left: []string{"channel_1", "channel_3"}, Right: []string{"channel_2", "channel_4"}}

	a, err := NewMetricEngine(p).Compute(table, fourChannels, 1)
	require.NoError(t, err)
	b, err := NewMetricEngine(p.Swap()).Compute(table, fourChannels, 1)
	require.NoError(t, err)

	assert.InDelta(t, a.RDAlpha, b.RDAlpha, 1e-12)
	assert.InDelta(t, a.RDBeta, b.RDBeta, 1e-12)
	assert.InDelta(t, 1/a.HIAlpha, b.HIAlpha, 1e-12)
	assert.InDelta(t, 1/a.HIBeta, b.HIBeta, 1e-12)
}

func TestMetricEngine_UnknownPartitionChannel(t *testing.T) {
	table := randomTable(rand.New(rand.NewSource(1)), 2)
	e := NewMetricEngine(Partition{Left: []string{"channel_1"}, Right: []string{"channel_3"}})

	_, err := e.Compute(table, fourChannels[:2], 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrInvalidPartition)
}
