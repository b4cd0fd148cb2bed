package workers

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/neurasense/internal/analysis"
	"github.com/yoockh/neurasense/internal/metrics"
	"github.com/yoockh/neurasense/internal/models"
	"github.com/yoockh/neurasense/internal/utils"
)

// Processor turns one completed window into a result record.
// *analysis.Pipeline implements it.
type Processor interface {
	Process(w *analysis.Window) (models.AssessmentResult, error)
}

// AnalysisWorkerPool runs window analysis on a fixed number of goroutines
// behind a bounded queue. Sessions call Submit and block until their window
// is done, so each session stays strictly sequential.
type AnalysisWorkerPool struct {
	NumWorkers int
	QueueSize  int
	Logger     *logrus.Logger

	jobs     chan *job
	quit     chan struct{}
	wg       sync.WaitGroup
	started  atomic.Bool
	stopOnce sync.Once

	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	rejected  atomic.Int64
	panics    atomic.Int64
}

type job struct {
	ctx   context.Context
	proc  Processor
	w     *analysis.Window
	reply chan jobResult
}

type jobResult struct {
	res models.AssessmentResult
	err error
}

// PoolStats is a point-in-time snapshot.
type PoolStats struct {
	Workers     int   `json:"workers"`
	QueueSize   int   `json:"queue_size"`
	QueueLength int   `json:"queue_length"`
	Submitted   int64 `json:"submitted"`
	Completed   int64 `json:"completed"`
	Failed      int64 `json:"failed"`
	Rejected    int64 `json:"rejected"`
	Panics      int64 `json:"panics"`
}

// Start launches the workers. They exit when ctx is done or Stop is called.
func (p *AnalysisWorkerPool) Start(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return fmt.Errorf("AnalysisWorkerPool already started")
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 4
	}
	if p.QueueSize <= 0 {
		p.QueueSize = p.NumWorkers * 4
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	p.jobs = make(chan *job, p.QueueSize)
	p.quit = make(chan struct{})

	for i := 0; i < p.NumWorkers; i++ {
		p.wg.Add(1)
		go p.run(i + 1)
	}
	go func() {
		select {
		case <-ctx.Done():
			p.Stop()
		case <-p.quit:
		}
	}()

	p.Logger.WithFields(logrus.Fields{
		"workers":    p.NumWorkers,
		"queue_size": p.QueueSize,
	}).Info("analysis worker pool started")
	return nil
}

// Stop signals the workers and waits for in-flight windows to finish.
// Queued windows that were not picked up fail with ErrPoolStopped.
func (p *AnalysisWorkerPool) Stop() {
	if !p.started.Load() {
		return
	}
	p.stopOnce.Do(func() {
		close(p.quit)
		p.wg.Wait()
		p.Logger.Info("analysis worker pool stopped")
	})
}

// Submit queues w and waits for its result. A full queue fails fast with
// ErrPoolSaturated instead of blocking the session.
func (p *AnalysisWorkerPool) Submit(ctx context.Context, proc Processor, w *analysis.Window) (models.AssessmentResult, error) {
	const op = "AnalysisWorkerPool.Submit"

	if !p.started.Load() {
		return models.AssessmentResult{}, utils.E(utils.CodeUnavailable, op, "analysis pool is not running", utils.ErrPoolStopped)
	}
	select {
	case <-p.quit:
		return models.AssessmentResult{}, utils.E(utils.CodeUnavailable, op, "analysis pool is stopped", utils.ErrPoolStopped)
	default:
	}

	j := &job{ctx: ctx, proc: proc, w: w, reply: make(chan jobResult, 1)}
	select {
	case p.jobs <- j:
		p.submitted.Add(1)
		metrics.SetQueueDepth(len(p.jobs))
	default:
		p.rejected.Add(1)
		metrics.RecordPoolRejected()
		return models.AssessmentResult{}, utils.E(utils.CodeUnavailable, op, "analysis queue is full, window dropped", utils.ErrPoolSaturated)
	}

	select {
	case r := <-j.reply:
		return r.res, r.err
	case <-ctx.Done():
		return models.AssessmentResult{}, utils.E(utils.CodeTimeout, op, "window abandoned", ctx.Err())
	case <-p.quit:
		// A worker may still be finishing this job; prefer its answer.
		select {
		case r := <-j.reply:
			return r.res, r.err
		default:
		}
		return models.AssessmentResult{}, utils.E(utils.CodeUnavailable, op, "analysis pool is stopped", utils.ErrPoolStopped)
	}
}

func (p *AnalysisWorkerPool) Stats() PoolStats {
	s := PoolStats{
		Workers:   p.NumWorkers,
		QueueSize: p.QueueSize,
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Rejected:  p.rejected.Load(),
		Panics:    p.panics.Load(),
	}
	if p.jobs != nil {
		s.QueueLength = len(p.jobs)
	}
	return s
}

func (p *AnalysisWorkerPool) run(id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.quit:
			return
		case j := <-p.jobs:
			metrics.SetQueueDepth(len(p.jobs))
			j.reply <- p.handle(id, j)
		}
	}
}

func (p *AnalysisWorkerPool) handle(id int, j *job) (out jobResult) {
	const op = "AnalysisWorkerPool.handle"

	defer func() {
		if r := recover(); r != nil {
			p.panics.Add(1)
			p.failed.Add(1)
			metrics.RecordPoolPanic()
			p.Logger.WithFields(logrus.Fields{
				"worker": id,
				"window": j.w.Seq,
				"panic":  fmt.Sprint(r),
				"stack":  string(debug.Stack()),
			}).Error("analysis worker recovered from panic")
			out = jobResult{err: utils.E(utils.CodeInternal, op, "analysis failed", fmt.Errorf("panic: %v", r))}
		}
	}()

	if err := j.ctx.Err(); err != nil {
		p.failed.Add(1)
		return jobResult{err: utils.E(utils.CodeTimeout, op, "window abandoned", err)}
	}

	res, err := j.proc.Process(j.w)
	if err != nil {
		p.failed.Add(1)
		return jobResult{err: err}
	}
	p.completed.Add(1)
	return jobResult{res: res}
}
