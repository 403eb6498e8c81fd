// Package pipeline drives a submission through its two stages: compile in
// the sandbox, then run against the stored test suite, with every exit
// path landing on a terminal status and the work directory cleaned up.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"coduel/internal/judge/metrics"
	"coduel/internal/judge/model"
	"coduel/internal/judge/sandbox"
	"coduel/internal/judge/store"
	"coduel/pkg/utils/logger"

	"go.uber.org/zap"
)

const compileRunScript = "compile_run.sh"

// Config holds pipeline settings.
type Config struct {
	JobRoot          string        `yaml:"jobRoot"`          // work dir root as this worker sees it
	HostJobRoot      string        `yaml:"hostJobRoot"`      // the same root as the container runtime sees it
	ProblemsRoot     string        `yaml:"problemsRoot"`     // problems tree as this worker sees it
	HostProblemsRoot string        `yaml:"hostProblemsRoot"` // the same tree as the container runtime sees it
	CompileTimeout   time.Duration `yaml:"compileTimeout"`
	RunTimeout       time.Duration `yaml:"runTimeout"`
	PollTimeout      time.Duration `yaml:"pollTimeout"`
	RunsPerTest      int           `yaml:"runsPerTest"`
}

func (c *Config) applyDefaults() {
	if c.JobRoot == "" {
		c.JobRoot = "/worker_tmp"
	}
	if c.HostJobRoot == "" {
		c.HostJobRoot = c.JobRoot
	}
	if c.ProblemsRoot == "" {
		c.ProblemsRoot = "/problems"
	}
	if c.HostProblemsRoot == "" {
		c.HostProblemsRoot = c.ProblemsRoot
	}
	if c.CompileTimeout <= 0 {
		c.CompileTimeout = 60 * time.Second
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = 60 * time.Second
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = time.Second
	}
	if c.RunsPerTest <= 0 {
		c.RunsPerTest = 1
	}
}

// Worker owns the compile and run stages for the submissions it dequeues.
type Worker struct {
	store    *store.JobStore
	launcher sandbox.Launcher
	cfg      Config
}

// NewWorker creates a pipeline worker.
func NewWorker(jobStore *store.JobStore, launcher sandbox.Launcher, cfg Config) *Worker {
	cfg.applyDefaults()
	return &Worker{store: jobStore, launcher: launcher, cfg: cfg}
}

// Compile runs the compile stage for one submission. The work directory
// survives only when a run job was enqueued; every other path removes it.
func (w *Worker) Compile(ctx context.Context, job model.CompileJob) {
	subID := job.SubmissionID
	sub, err := w.store.GetSubmission(ctx, subID)
	if err != nil {
		logger.Error(ctx, "load submission failed", zap.String("submission_id", subID), zap.Error(err))
		w.setStatus(ctx, subID, model.StatusError)
		return
	}
	code, err := w.store.GetCode(ctx, subID)
	if err != nil || code == "" {
		logger.Error(ctx, "load source failed", zap.String("submission_id", subID), zap.Error(err))
		w.setStatus(ctx, subID, model.StatusError)
		return
	}

	guard, err := newWorkDir(w.cfg.JobRoot, subID)
	if err != nil {
		logger.Error(ctx, "create work dir failed", zap.String("submission_id", subID), zap.Error(err))
		_ = w.store.PutCompileLog(ctx, subID, err.Error())
		w.setStatus(ctx, subID, model.StatusError)
		return
	}
	defer guard.Close()

	srcName := model.SourceFileName(sub.Language)
	if err := os.WriteFile(filepath.Join(guard.Path(), srcName), []byte(code), 0644); err != nil {
		_ = w.store.PutCompileLog(ctx, subID, err.Error())
		w.setStatus(ctx, subID, model.StatusError)
		return
	}

	hostDir := sandbox.TranslateHostPath(guard.Path(), w.cfg.JobRoot, w.cfg.HostJobRoot)
	out, err := w.launcher.Launch(ctx,
		[]string{compileRunScript, "--compile-only", sub.Language, srcName, sub.Std},
		sandbox.Options{
			Mounts:       []sandbox.Mount{{Host: hostDir, Container: "/work", Mode: "rw"}},
			ReadonlyRoot: true,
			Timeout:      w.cfg.CompileTimeout,
		})
	if err != nil {
		_ = w.store.PutCompileLog(ctx, subID, err.Error())
		w.setStatus(ctx, subID, model.StatusError)
		return
	}
	if out.TimedOut {
		w.setStatus(ctx, subID, model.StatusCompileTimeout)
		return
	}

	if err := w.store.PutCompileLog(ctx, subID, out.Stdout+"\n"+out.Stderr); err != nil {
		logger.Warn(ctx, "store compile log failed", zap.String("submission_id", subID), zap.Error(err))
	}
	if out.ExitCode != 0 {
		w.setStatus(ctx, subID, model.StatusCompileError)
		return
	}

	runJob := model.RunJob{
		SubmissionID: subID,
		TmpDir:       guard.Path(),
		ProblemID:    sub.ProblemID,
		Lang:         sub.Language,
		Std:          sub.Std,
	}
	w.setStatus(ctx, subID, model.StatusCompiled)
	if err := w.store.EnqueueRun(ctx, runJob); err != nil {
		logger.Error(ctx, "enqueue run failed", zap.String("submission_id", subID), zap.Error(err))
		w.setStatus(ctx, subID, model.StatusError)
		return
	}
	// The run stage owns the directory from here on.
	guard.Release()
	logger.Info(ctx, "compiled", zap.String("submission_id", subID), zap.String("workdir", guard.Path()))
}

// Run executes the run stage for one submission. The work directory is
// removed on every path out of here.
func (w *Worker) Run(ctx context.Context, job model.RunJob) {
	subID := job.SubmissionID
	guard := adoptWorkDir(job.TmpDir)
	defer guard.Close()

	testsDir, err := filepath.Abs(filepath.Join(w.cfg.ProblemsRoot, job.ProblemID))
	if err != nil {
		w.storeRunError(ctx, subID, model.RunError{Error: err.Error()})
		w.setStatus(ctx, subID, model.StatusError)
		return
	}
	if info, statErr := os.Stat(testsDir); statErr != nil || !info.IsDir() {
		w.setStatus(ctx, subID, model.StatusProblemNotFound)
		return
	}

	hostWorkDir := sandbox.TranslateHostPath(job.TmpDir, w.cfg.JobRoot, w.cfg.HostJobRoot)
	hostTestsDir := sandbox.TranslateHostPath(testsDir, w.cfg.ProblemsRoot, w.cfg.HostProblemsRoot)

	out, err := w.launcher.Launch(ctx,
		[]string{compileRunScript, "--run-only", job.Lang, model.SourceFileName(job.Lang), job.Std},
		sandbox.Options{
			Mounts: []sandbox.Mount{
				{Host: hostWorkDir, Container: "/work", Mode: "rw"},
				{Host: hostTestsDir, Container: "/tests", Mode: "ro"},
			},
			ReadonlyRoot: true,
			Timeout:      w.cfg.RunTimeout,
		})
	if err != nil {
		w.storeRunError(ctx, subID, model.RunError{Error: err.Error()})
		w.setStatus(ctx, subID, model.StatusError)
		return
	}
	if out.TimedOut {
		w.setStatus(ctx, subID, model.StatusRunTimeout)
		return
	}
	if out.ExitCode != 0 {
		w.storeRunError(ctx, subID, model.RunError{
			Error:      "judge_container_failed",
			ExitCode:   out.ExitCode,
			StdoutTail: tail(out.Stdout, stdoutTailBytes),
			StderrTail: tail(out.Stderr, stderrTailBytes),
		})
		w.setStatus(ctx, subID, model.StatusError)
		return
	}

	verdicts, testMetrics, err := metrics.Parse(job.TmpDir)
	if err != nil {
		w.storeRunError(ctx, subID, model.RunError{Error: err.Error()})
		w.setStatus(ctx, subID, model.StatusError)
		return
	}

	result := aggregate(verdicts, testMetrics, out.Stdout, out.Stderr)
	payload, err := json.Marshal(result)
	if err != nil {
		w.storeRunError(ctx, subID, model.RunError{Error: err.Error()})
		w.setStatus(ctx, subID, model.StatusError)
		return
	}
	if err := w.store.PutRunResult(ctx, subID, string(payload)); err != nil {
		logger.Error(ctx, "store run result failed", zap.String("submission_id", subID), zap.Error(err))
		w.setStatus(ctx, subID, model.StatusError)
		return
	}

	if result.OK {
		w.setStatus(ctx, subID, model.StatusDone)
	} else {
		w.setStatus(ctx, subID, model.StatusFailed)
	}
	logger.Info(ctx, "run finished",
		zap.String("submission_id", subID),
		zap.Bool("ok", result.OK),
		zap.Int("tests", result.Performance.TotalTests),
		zap.Int("passed", result.Performance.Passed))
}

func (w *Worker) setStatus(ctx context.Context, submissionID string, status model.Status) {
	if err := w.store.SetStatus(ctx, submissionID, status); err != nil {
		logger.Error(ctx, "set status failed",
			zap.String("submission_id", submissionID),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}

func (w *Worker) storeRunError(ctx context.Context, submissionID string, runErr model.RunError) {
	payload, err := json.Marshal(runErr)
	if err != nil {
		payload = []byte(fmt.Sprintf(`{"error":%q}`, runErr.Error))
	}
	if err := w.store.PutRunResult(ctx, submissionID, string(payload)); err != nil {
		logger.Warn(ctx, "store run error failed", zap.String("submission_id", submissionID), zap.Error(err))
	}
}
