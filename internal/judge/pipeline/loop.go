package pipeline

import (
	"context"
	"time"

	"coduel/pkg/utils/logger"

	"go.uber.org/zap"
)

// Loop alternates blocking pops on the compile and run queues until the
// context is cancelled. Handling one job from each queue per round keeps
// either queue from starving the other by more than one job. Multiple
// worker processes may run this loop against the same queues.
func (w *Worker) Loop(ctx context.Context) {
	logger.Info(ctx, "worker loop started",
		zap.Duration("poll_timeout", w.cfg.PollTimeout),
		zap.String("job_root", w.cfg.JobRoot))

	for {
		if ctx.Err() != nil {
			logger.Info(ctx, "worker loop stopped")
			return
		}

		compileJob, ok, err := w.store.DequeueCompile(ctx, w.cfg.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error(ctx, "dequeue compile failed", zap.Error(err))
			sleepCtx(ctx, w.cfg.PollTimeout)
		} else if ok {
			logger.Info(ctx, "compile job dequeued", zap.String("submission_id", compileJob.SubmissionID))
			w.Compile(ctx, compileJob)
		}

		if ctx.Err() != nil {
			return
		}

		runJob, ok, err := w.store.DequeueRun(ctx, w.cfg.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error(ctx, "dequeue run failed", zap.Error(err))
			sleepCtx(ctx, w.cfg.PollTimeout)
		} else if ok {
			logger.Info(ctx, "run job dequeued", zap.String("submission_id", runJob.SubmissionID))
			w.Run(ctx, runJob)
		}
	}
}

// sleepCtx pauses without outliving the context, so a store outage does
// not spin the loop.
func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
