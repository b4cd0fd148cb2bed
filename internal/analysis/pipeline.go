package analysis

import (
	"github.com/yoockh/neurasense/internal/models"
)

// Pipeline runs one window through assembly, spectral estimation, metric
// derivation and assessment. It holds no per-window state and is safe for
// concurrent use.
type Pipeline struct {
	cfg       Config
	estimator *WelchEstimator
	metrics   *MetricEngine
}

func NewPipeline(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:       cfg,
		estimator: NewWelchEstimator(cfg.Welch),
		metrics:   NewMetricEngine(cfg.Partition),
	}, nil
}

func (p *Pipeline) Config() Config { return p.cfg }

// Outcome carries the intermediate products alongside the wire record.
type Outcome struct {
	Matrix     *ChannelMatrix
	Table      BandPowerTable
	Bundle     MetricBundle
	Assessment Assessment
	Result     models.AssessmentResult
}

// Process assesses w. Any error is local to w.
func (p *Pipeline) Process(w *Window) (models.AssessmentResult, error) {
	out, err := p.Run(w)
	if err != nil {
		return models.AssessmentResult{}, err
	}
	return out.Result, nil
}

// Run is Process with the intermediate products exposed.
func (p *Pipeline) Run(w *Window) (*Outcome, error) {
	m, err := Assemble(w, p.cfg.SampleRate)
	if err != nil {
		return nil, err
	}
	table, err := p.estimator.Estimate(m)
	if err != nil {
		return nil, err
	}
	bundle, err := p.metrics.Compute(table, m.Names, m.Duration())
	if err != nil {
		return nil, err
	}
	a := Assess(bundle, p.cfg.Thresholds, w.Active)
	return &Outcome{
		Matrix:     m,
		Table:      table,
		Bundle:     bundle,
		Assessment: a,
		Result:     Result(bundle, a),
	}, nil
}
