package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/neurasense/internal/utils"
)

func sine(freq, sampleRate float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / sampleRate)
	}
	return out
}

func integrate(freqs, psd []float64) float64 {
	df := freqs[1] - freqs[0]
	total := 0.0
	for _, v := range psd {
		total += v * df
	}
	return total
}

func TestWelchEstimator_PSDGrid(t *testing.T) {
	e := NewWelchEstimator(DefaultWelch())

	freqs, psd, err := e.PSD(sine(10, 200, 512), 200)
	require.NoError(t, err)
	require.Len(t, freqs, 129)
	require.Len(t, psd, 129)
	assert.Equal(t, 0.0, freqs[0])
	assert.InDelta(t, 0.78125, freqs[1], 1e-12)
	assert.InDelta(t, 100.0, freqs[128], 1e-12)
}

func TestWelchEstimator_OnBinSinePower(t *testing.T) {
	// 25 Hz at 200 Hz completes 32 cycles per 256-sample segment, so the
	// integrated density equals the signal variance A^2/2 exactly.
	x := sine(25, 200, 768)

	for _, overlap := range []int{0, 128} {
		e := NewWelchEstimator(WelchConfig{SegmentLength: 256, Overlap: overlap})
		freqs, psd, err := e.PSD(x, 200)
		require.NoError(t, err)

		assert.InDelta(t, 0.5, integrate(freqs, psd), 1e-9, "overlap %d", overlap)

		peak := 0
		for k := range psd {
			if psd[k] > psd[peak] {
				peak = k
			}
		}
		assert.InDelta(t, 25.0, freqs[peak], 1e-12)
	}
}

func TestWelchEstimator_InsufficientSamples(t *testing.T) {
	e := NewWelchEstimator(DefaultWelch())

	_, _, err := e.PSD(make([]float64, 255), 200)
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrInsufficientSamples)

	m := &ChannelMatrix{Names: []string{"channel_1"}, Rows: [][]float64{make([]float64, 100)}, SampleRate: 200}
	_, err = e.Estimate(m)
	assert.ErrorIs(t, err, utils.ErrInsufficientSamples)
}

func TestWelchEstimator_EstimateBands(t *testing.T) {
	e := NewWelchEstimator(DefaultWelch())
	m := &ChannelMatrix{
		Names:      []string{"channel_1", "channel_2"},
		Rows:       [][]float64{sine(10, 200, 750), sine(20, 200, 750)},
		SampleRate: 200,
	}

	table, err := e.Estimate(m)
	require.NoError(t, err)
	for _, b := range CanonicalBands {
		require.Len(t, table.Power(b), 2, b.Name)
	}

	// 10 Hz lands in Alpha, 20 Hz in Beta.
	assert.Greater(t, table.Power(Alpha)[0], 100*table.Power(Beta)[0])
	assert.Greater(t, table.Power(Beta)[1], 100*table.Power(Alpha)[1])
}

func TestWelchEstimator_EstimateSubsetMatchesFullEstimate(t *testing.T) {
	e := NewWelchEstimator(DefaultWelch())
	m := &ChannelMatrix{
		Names:      []string{"channel_1", "channel_2", "channel_3"},
		Rows:       [][]float64{sine(6, 200, 600), sine(11, 200, 600), sine(17, 200, 600)},
		SampleRate: 200,
	}

	full, err := e.Estimate(m)
	require.NoError(t, err)

	sub, err := e.EstimateSubset(m, []string{"channel_3", "channel_1"}, AsymmetryBands)
	require.NoError(t, err)
	assert.Len(t, sub, len(AsymmetryBands))
	for _, b := range AsymmetryBands {
		assert.Equal(t, full.Power(b)[2], sub.Power(b)[0])
		assert.Equal(t, full.Power(b)[0], sub.Power(b)[1])
	}

	_, err = e.EstimateSubset(m, []string{"channel_9"}, AsymmetryBands)
	assert.ErrorIs(t, err, utils.ErrInvalidPartition)
}

func TestBandMean_NoBins(t *testing.T) {
	freqs := []float64{0, 1, 2}
	_, err := BandMean(freqs, []float64{1, 1, 1}, Band{Name: "narrow", LowHz: 0.2, HighHz: 0.8})
	assert.ErrorIs(t, err, utils.ErrInsufficientSamples)

	v, err := BandMean(freqs, []float64{1, 2, 3}, Band{Name: "edges", LowHz: 1, HighHz: 2})
	require.NoError(t, err)
	assert.InDelta(t, 2.5, v, 1e-12, "band bounds are inclusive")
}

func TestHammingIsPeriodic(t *testing.T) {
	w := hamming(8)
	assert.InDelta(t, 0.08, w[0], 1e-12)
	assert.InDelta(t, 1.0, w[4], 1e-12)
	assert.InDelta(t, w[1], w[7], 1e-12)
}
