package runner

import (
	"context"
	"sync"
	"time"

	"github.com/specialistvlad/posgridgo/internal/ctxlog"
	"github.com/specialistvlad/posgridgo/internal/node"
	"github.com/specialistvlad/posgridgo/internal/resultstore"
	"github.com/specialistvlad/posgridgo/internal/runid"
)

// invocation is one run of one prepared program.
type invocation struct {
	prep *prepared
	addr runid.Address
}

// execute invokes every prepared program Runs times on the worker pool and
// stores the outcomes. Once ctx is canceled the remaining invocations are
// skipped and ctx's error is returned.
func (r *Runner) execute(ctx context.Context, jobs []*prepared) error {
	logger := ctxlog.FromContext(ctx)

	total := 0
	for _, prep := range jobs {
		total += prep.program.Runs
	}
	if total == 0 {
		return ctx.Err()
	}

	readyChan := make(chan invocation, total)
	for _, prep := range jobs {
		for run := 0; run < prep.program.Runs; run++ {
			readyChan <- invocation{prep: prep, addr: runid.New(prep.program.Name, prep.mode, run)}
		}
	}
	close(readyChan)

	var wg sync.WaitGroup
	wg.Add(r.cfg.Workers)
	logger.Debug("Starting worker pool.", "workers", r.cfg.Workers, "invocations", total)
	for i := 0; i < r.cfg.Workers; i++ {
		go func(workerID int) {
			defer wg.Done()
			r.worker(ctx, readyChan, workerID)
		}(i)
	}
	wg.Wait()
	logger.Debug("All invocations completed.")

	return ctx.Err()
}

// worker is the processing loop of a single concurrent worker.
func (r *Runner) worker(ctx context.Context, readyChan <-chan invocation, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for inv := range readyChan {
		workerLogger := logger.With("workerID", workerID, "run", inv.addr.String())
		if ctx.Err() != nil {
			workerLogger.Debug("Context canceled, skipping invocation.")
			continue
		}

		start := time.Now()
		f := node.NewFrame(inv.prep.program.Args...)
		result, err := inv.prep.target.Root().Execute(f)
		d := time.Since(start)

		outcome := "ok"
		if err != nil {
			outcome = "error"
			workerLogger.Debug("Invocation failed.", "error", err)
		}
		r.cfg.Metrics.RunFinished(outcome, d)

		o := resultstore.Outcome{Frame: f.ID, Result: result, Err: err, Duration: d}
		if perr := r.store.Put(ctx, inv.addr, o); perr != nil {
			workerLogger.Error("Failed to store outcome.", "error", perr)
		}
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}
