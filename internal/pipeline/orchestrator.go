package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// RunRecorder receives run lifecycle events; the ledger implements it.
type RunRecorder interface {
	Recorder
	StartRun(ctx context.Context, runID string, tickers []string, started time.Time) error
	FinishRun(ctx context.Context, snap RunSnapshot) error
}

// Options size the orchestrator.
type Options struct {
	WorkerCount  int // companies processed concurrently, and runs executed concurrently
	MaxQueueSize int
	RunTTL       time.Duration
}

// Orchestrator queues runs and executes them on a fixed pool of workers.
type Orchestrator struct {
	runs     *RunStore
	queue    chan *Run
	agg      *Aggregator
	recorder RunRecorder
	log      *slog.Logger
	opts     Options

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. recorder may be nil.
func NewOrchestrator(agg *Aggregator, recorder RunRecorder, opts Options, log *slog.Logger) *Orchestrator {
	if opts.WorkerCount < 1 {
		opts.WorkerCount = 1
	}
	if opts.MaxQueueSize < 1 {
		opts.MaxQueueSize = 1
	}
	return &Orchestrator{
		runs:     NewRunStore(opts.RunTTL),
		queue:    make(chan *Run, opts.MaxQueueSize),
		agg:      agg,
		recorder: recorder,
		log:      log,
		opts:     opts,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.opts.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case run, ok := <-o.queue:
					if !ok {
						return
					}
					o.Execute(workerCtx, run)
				}
			}
		}()
	}

	// Start run store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.runs.Cleanup()
			}
		}
	}()
}

// Stop cancels in-flight runs and waits for the workers to return.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a run for processing.
func (o *Orchestrator) Submit(run *Run) error {
	o.runs.Put(run)
	select {
	case o.queue <- run:
		return nil
	default:
		run.Fail("queue_full")
		return fmt.Errorf("run queue is full (%d)", o.opts.MaxQueueSize)
	}
}

// RunSync executes a run on the calling goroutine and returns its final
// state.
func (o *Orchestrator) RunSync(ctx context.Context, tickers []string) RunSnapshot {
	run := NewRun(tickers)
	o.runs.Put(run)
	o.Execute(ctx, run)
	return run.Snapshot()
}

// GetRun returns a run by ID.
func (o *Orchestrator) GetRun(id string) *Run {
	return o.runs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Aggregator exposes the aggregator for read-only API handlers.
func (o *Orchestrator) Aggregator() *Aggregator {
	return o.agg
}

// Execute processes every company of the run. Companies run concurrently up
// to WorkerCount; cancellation is observed between companies and between
// documents.
func (o *Orchestrator) Execute(ctx context.Context, run *Run) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if !run.begin(cancel) {
		return
	}

	log := o.log.With("run_id", run.ID)
	if o.recorder != nil {
		if err := o.recorder.StartRun(ctx, run.ID, run.Tickers, run.CreatedAt); err != nil {
			log.Warn("ledger run write failed", "error", err)
		}
	}
	defer o.finish(run, log)

	tickers := run.Tickers
	if len(tickers) == 0 {
		var err error
		tickers, err = o.agg.Companies(ctx)
		if err != nil {
			log.Error("list companies", "error", err)
			run.Fail(err.Error())
			return
		}
	}
	for _, t := range tickers {
		run.SetCompany(CompanyOutcome{Ticker: t, Status: CompanyPending})
	}
	log.Info("run started", "companies", len(tickers))

	g := new(errgroup.Group)
	g.SetLimit(o.opts.WorkerCount)
	for _, ticker := range tickers {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			run.SetCompany(CompanyOutcome{Ticker: ticker, Status: CompanyProcessing})
			out := o.agg.Aggregate(ctx, run.ID, ticker)
			run.SetCompany(out)
			if o.recorder != nil {
				if err := o.recorder.RecordCompany(context.WithoutCancel(ctx), run.ID, out); err != nil {
					log.Warn("ledger company write failed", "ticker", ticker, "error", err)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		run.SetStatus(RunCancelled)
		return
	}
	run.SetStatus(RunCompleted)
}

func (o *Orchestrator) finish(run *Run, log *slog.Logger) {
	snap := run.Snapshot()
	log.Info("run finished", "status", snap.Status, "counts", snap.Counts)
	if o.recorder != nil {
		if err := o.recorder.FinishRun(context.Background(), snap); err != nil {
			log.Warn("ledger run write failed", "error", err)
		}
	}
}
