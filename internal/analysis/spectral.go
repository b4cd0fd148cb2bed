package analysis

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/yoockh/neurasense/internal/utils"
)

// BandPowerTable maps a band name to per-channel mean PSD, in the channel
// order of the matrix it was computed from.
type BandPowerTable map[string][]float64

// Power returns the per-channel values for b.
func (t BandPowerTable) Power(b Band) []float64 { return t[b.Name] }

// WelchEstimator computes averaged-periodogram PSDs: fixed-length periodic
// Hamming segments, no detrending, one-sided density scaling, mean over
// segments.
type WelchEstimator struct {
	cfg    WelchConfig
	window []float64
	wss    float64 // sum of squared window weights
}

func NewWelchEstimator(cfg WelchConfig) *WelchEstimator {
	if cfg.SegmentLength <= 0 {
		cfg = DefaultWelch()
	}
	w := hamming(cfg.SegmentLength)
	return &WelchEstimator{cfg: cfg, window: w, wss: floats.Dot(w, w)}
}

// hamming returns the periodic (DFT-even) Hamming window of length n.
func hamming(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// MinSamples is the shortest channel the estimator accepts.
func (e *WelchEstimator) MinSamples() int { return e.cfg.SegmentLength }

// PSD returns the frequency grid and power spectral density of one channel.
func (e *WelchEstimator) PSD(samples []float64, sampleRate float64) (freqs, psd []float64, err error) {
	const op = "WelchEstimator.PSD"

	n := e.cfg.SegmentLength
	if len(samples) < n {
		return nil, nil, utils.E(utils.CodeInvalidArgument, op,
			fmt.Sprintf("need at least %d samples per channel, got %d", n, len(samples)), utils.ErrInsufficientSamples)
	}
	if sampleRate <= 0 {
		return nil, nil, utils.E(utils.CodeInvalidArgument, op, "sample rate must be > 0", nil)
	}

	step := n - e.cfg.Overlap
	segments := (len(samples) - e.cfg.Overlap) / step
	bins := n/2 + 1

	fft := fourier.NewFFT(n)
	seg := make([]float64, n)
	coeffs := make([]complex128, bins)
	psd = make([]float64, bins)

	for s := 0; s < segments; s++ {
		start := s * step
		floats.MulTo(seg, samples[start:start+n], e.window)
		coeffs = fft.Coefficients(coeffs, seg)
		for k, c := range coeffs {
			a := cmplx.Abs(c)
			psd[k] += a * a
		}
	}

	scale := 1 / (sampleRate * e.wss * float64(segments))
	last := bins - 1
	if n%2 == 1 {
		last = bins // no Nyquist bin for odd lengths
	}
	freqs = make([]float64, bins)
	for k := range psd {
		psd[k] *= scale
		if k > 0 && k < last {
			psd[k] *= 2
		}
		freqs[k] = float64(k) * sampleRate / float64(n)
	}
	return freqs, psd, nil
}

// BandMean averages psd over the bins with LowHz <= f <= HighHz.
func BandMean(freqs, psd []float64, b Band) (float64, error) {
	var vals []float64
	for k, f := range freqs {
		if f >= b.LowHz && f <= b.HighHz {
			vals = append(vals, psd[k])
		}
	}
	if len(vals) == 0 {
		return 0, utils.E(utils.CodeInvalidArgument, "BandMean",
			fmt.Sprintf("no frequency bins in %s band (%.2f-%.2f Hz)", b.Name, b.LowHz, b.HighHz), utils.ErrInsufficientSamples)
	}
	return stat.Mean(vals, nil), nil
}

// Estimate computes the mean band power of every canonical band for every
// channel of m.
func (e *WelchEstimator) Estimate(m *ChannelMatrix) (BandPowerTable, error) {
	return e.estimate(m, CanonicalBands)
}

// EstimateSubset restricts the estimate to the named channels and bands.
func (e *WelchEstimator) EstimateSubset(m *ChannelMatrix, channels []string, bands []Band) (BandPowerTable, error) {
	sub, err := m.Select(channels)
	if err != nil {
		return nil, err
	}
	return e.estimate(sub, bands)
}

func (e *WelchEstimator) estimate(m *ChannelMatrix, bands []Band) (BandPowerTable, error) {
	if m.Channels() == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, "WelchEstimator.Estimate", "matrix has no channels", utils.ErrInsufficientSamples)
	}

	table := make(BandPowerTable, len(bands))
	for _, b := range bands {
		table[b.Name] = make([]float64, m.Channels())
	}

	for c, row := range m.Rows {
		freqs, psd, err := e.PSD(row, m.SampleRate)
		if err != nil {
			return nil, err
		}
		for _, b := range bands {
			v, err := BandMean(freqs, psd, b)
			if err != nil {
				return nil, err
			}
			table[b.Name][c] = v
		}
	}
	return table, nil
}
