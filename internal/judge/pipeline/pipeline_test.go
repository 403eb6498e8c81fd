package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"coduel/internal/common/cache"
	"coduel/internal/judge/model"
	"coduel/internal/judge/sandbox"
	"coduel/internal/judge/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// fakeLauncher scripts the sandbox outcomes for compile and run calls and
// can plant verdict files into the mounted work directory.
type fakeLauncher struct {
	compileOut sandbox.Output
	compileErr error
	runOut     sandbox.Output
	runErr     error
	onRun      func(workdir string)
	calls      [][]string
}

func (f *fakeLauncher) Launch(ctx context.Context, command []string, opts sandbox.Options) (sandbox.Output, error) {
	f.calls = append(f.calls, command)
	if len(command) > 1 && command[1] == "--compile-only" {
		return f.compileOut, f.compileErr
	}
	if f.onRun != nil {
		f.onRun(opts.Mounts[0].Host)
	}
	return f.runOut, f.runErr
}

func newTestStore(t *testing.T) *store.JobStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	redisCache, err := cache.NewRedisCacheWithClient(client)
	if err != nil {
		t.Fatalf("create cache: %v", err)
	}
	t.Cleanup(func() { _ = redisCache.Close() })
	return store.NewJobStore(redisCache)
}

func newTestWorker(t *testing.T, jobStore *store.JobStore, launcher sandbox.Launcher) (*Worker, Config) {
	t.Helper()
	cfg := Config{
		JobRoot:      t.TempDir(),
		ProblemsRoot: t.TempDir(),
	}
	return NewWorker(jobStore, launcher, cfg), cfg
}

func seedSubmission(t *testing.T, jobStore *store.JobStore, id, problemID string) {
	t.Helper()
	err := jobStore.PutSubmission(context.Background(), model.Submission{
		SubmissionID: id,
		Status:       model.StatusQueued,
		ProblemID:    problemID,
		Language:     "cpp",
		Std:          "c++20",
		Opt:          "O2",
		CreatedAt:    1700000000,
	})
	if err != nil {
		t.Fatalf("put submission: %v", err)
	}
	if err := jobStore.PutCode(context.Background(), id, "int main(){return 0;}"); err != nil {
		t.Fatalf("put code: %v", err)
	}
}

func mustStatus(t *testing.T, jobStore *store.JobStore, id string, want model.Status) {
	t.Helper()
	sub, err := jobStore.GetSubmission(context.Background(), id)
	if err != nil {
		t.Fatalf("get submission: %v", err)
	}
	if sub.Status != want {
		t.Fatalf("expected status %s, got %s", want, sub.Status)
	}
}

func TestPipelineHappyPath(t *testing.T) {
	jobStore := newTestStore(t)
	launcher := &fakeLauncher{
		compileOut: sandbox.Output{ExitCode: 0, Stdout: "compiled main\n"},
		runOut:     sandbox.Output{ExitCode: 0, Stdout: "ran 1 tests\n"},
		onRun: func(workdir string) {
			_ = os.WriteFile(filepath.Join(workdir, "verdict_1.txt"), []byte("OK\n"), 0644)
			_ = os.WriteFile(filepath.Join(workdir, "metrics_1.json"),
				[]byte(`{"elapsed_seconds":0.002,"max_rss_kb":1024,"exit_code":0}`), 0644)
		},
	}
	worker, cfg := newTestWorker(t, jobStore, launcher)
	if err := os.MkdirAll(filepath.Join(cfg.ProblemsRoot, "001-hello"), 0755); err != nil {
		t.Fatalf("create problem dir: %v", err)
	}

	ctx := context.Background()
	seedSubmission(t, jobStore, "sub-1", "001-hello")
	worker.Compile(ctx, model.CompileJob{SubmissionID: "sub-1"})
	mustStatus(t, jobStore, "sub-1", model.StatusCompiled)

	runJob, ok, err := jobStore.DequeueRun(ctx, 100*time.Millisecond)
	if err != nil || !ok {
		t.Fatalf("expected run job enqueued, ok=%v err=%v", ok, err)
	}
	if runJob.ProblemID != "001-hello" || runJob.Lang != "cpp" || runJob.Std != "c++20" {
		t.Fatalf("unexpected run job: %+v", runJob)
	}
	if _, err := os.Stat(runJob.TmpDir); err != nil {
		t.Fatalf("work dir must survive compile: %v", err)
	}
	srcPath := filepath.Join(runJob.TmpDir, "main.cpp")
	if _, err := os.Stat(srcPath); err != nil {
		t.Fatalf("source file must be in work dir: %v", err)
	}

	worker.Run(ctx, runJob)
	mustStatus(t, jobStore, "sub-1", model.StatusDone)

	raw, err := jobStore.GetRunResult(ctx, "sub-1")
	if err != nil || raw == "" {
		t.Fatalf("expected run result, err=%v", err)
	}
	var result model.RunResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		t.Fatalf("decode run result: %v", err)
	}
	if !result.OK || result.Performance.Accuracy != 100 {
		t.Fatalf("unexpected run result: ok=%v accuracy=%v", result.OK, result.Performance.Accuracy)
	}
	if _, err := os.Stat(runJob.TmpDir); !os.IsNotExist(err) {
		t.Fatalf("work dir must be removed after run")
	}
}

func TestPipelineWrongAnswer(t *testing.T) {
	jobStore := newTestStore(t)
	launcher := &fakeLauncher{
		compileOut: sandbox.Output{ExitCode: 0},
		runOut:     sandbox.Output{ExitCode: 0},
		onRun: func(workdir string) {
			_ = os.WriteFile(filepath.Join(workdir, "verdict_1.txt"), []byte("OK"), 0644)
			_ = os.WriteFile(filepath.Join(workdir, "verdict_2.txt"), []byte("WA"), 0644)
		},
	}
	worker, cfg := newTestWorker(t, jobStore, launcher)
	if err := os.MkdirAll(filepath.Join(cfg.ProblemsRoot, "002-sum"), 0755); err != nil {
		t.Fatalf("create problem dir: %v", err)
	}

	ctx := context.Background()
	seedSubmission(t, jobStore, "sub-2", "002-sum")
	worker.Compile(ctx, model.CompileJob{SubmissionID: "sub-2"})
	runJob, ok, _ := jobStore.DequeueRun(ctx, 100*time.Millisecond)
	if !ok {
		t.Fatalf("expected run job")
	}
	worker.Run(ctx, runJob)
	mustStatus(t, jobStore, "sub-2", model.StatusFailed)

	raw, _ := jobStore.GetRunResult(ctx, "sub-2")
	var result model.RunResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		t.Fatalf("decode run result: %v", err)
	}
	perf := result.Performance
	if perf.Passed != 1 || perf.Failed != 1 || perf.Accuracy != 50 {
		t.Fatalf("unexpected performance: %+v", perf)
	}
}

func TestPipelineCompileError(t *testing.T) {
	jobStore := newTestStore(t)
	launcher := &fakeLauncher{
		compileOut: sandbox.Output{ExitCode: 1, Stderr: "main.cpp:1: error: expected ';'"},
	}
	worker, cfg := newTestWorker(t, jobStore, launcher)

	ctx := context.Background()
	seedSubmission(t, jobStore, "sub-3", "001-hello")
	worker.Compile(ctx, model.CompileJob{SubmissionID: "sub-3"})
	mustStatus(t, jobStore, "sub-3", model.StatusCompileError)

	log, err := jobStore.GetCompileLog(ctx, "sub-3")
	if err != nil || log == "" {
		t.Fatalf("expected compile log, err=%v", err)
	}
	if raw, _ := jobStore.GetRunResult(ctx, "sub-3"); raw != "" {
		t.Fatalf("compile error must not produce a run result")
	}
	if _, ok, _ := jobStore.DequeueRun(ctx, 100*time.Millisecond); ok {
		t.Fatalf("compile error must not enqueue a run job")
	}
	assertJobRootEmpty(t, cfg.JobRoot)
}

func TestPipelineCompileTimeout(t *testing.T) {
	jobStore := newTestStore(t)
	launcher := &fakeLauncher{
		compileOut: sandbox.Output{ExitCode: -1, TimedOut: true},
	}
	worker, cfg := newTestWorker(t, jobStore, launcher)

	ctx := context.Background()
	seedSubmission(t, jobStore, "sub-4", "001-hello")
	worker.Compile(ctx, model.CompileJob{SubmissionID: "sub-4"})
	mustStatus(t, jobStore, "sub-4", model.StatusCompileTimeout)
	assertJobRootEmpty(t, cfg.JobRoot)
}

func TestPipelineRunTimeout(t *testing.T) {
	jobStore := newTestStore(t)
	launcher := &fakeLauncher{
		compileOut: sandbox.Output{ExitCode: 0},
		runOut:     sandbox.Output{ExitCode: -1, TimedOut: true},
	}
	worker, cfg := newTestWorker(t, jobStore, launcher)
	if err := os.MkdirAll(filepath.Join(cfg.ProblemsRoot, "001-hello"), 0755); err != nil {
		t.Fatalf("create problem dir: %v", err)
	}

	ctx := context.Background()
	seedSubmission(t, jobStore, "sub-5", "001-hello")
	worker.Compile(ctx, model.CompileJob{SubmissionID: "sub-5"})
	runJob, ok, _ := jobStore.DequeueRun(ctx, 100*time.Millisecond)
	if !ok {
		t.Fatalf("expected run job")
	}
	worker.Run(ctx, runJob)
	mustStatus(t, jobStore, "sub-5", model.StatusRunTimeout)

	if raw, _ := jobStore.GetRunResult(ctx, "sub-5"); raw != "" {
		t.Fatalf("run timeout must not store verdicts")
	}
	if _, err := os.Stat(runJob.TmpDir); !os.IsNotExist(err) {
		t.Fatalf("work dir must be removed after run timeout")
	}
}

func TestPipelineProblemNotFound(t *testing.T) {
	jobStore := newTestStore(t)
	launcher := &fakeLauncher{compileOut: sandbox.Output{ExitCode: 0}}
	worker, _ := newTestWorker(t, jobStore, launcher)

	ctx := context.Background()
	seedSubmission(t, jobStore, "sub-6", "999-missing")
	worker.Compile(ctx, model.CompileJob{SubmissionID: "sub-6"})
	runJob, ok, _ := jobStore.DequeueRun(ctx, 100*time.Millisecond)
	if !ok {
		t.Fatalf("expected run job")
	}
	worker.Run(ctx, runJob)
	mustStatus(t, jobStore, "sub-6", model.StatusProblemNotFound)

	if _, err := os.Stat(runJob.TmpDir); !os.IsNotExist(err) {
		t.Fatalf("work dir must be removed when the problem is missing")
	}
}

func TestPipelineJudgeContainerFailed(t *testing.T) {
	jobStore := newTestStore(t)
	launcher := &fakeLauncher{
		compileOut: sandbox.Output{ExitCode: 0},
		runOut:     sandbox.Output{ExitCode: 125, Stderr: "docker: no such image"},
	}
	worker, cfg := newTestWorker(t, jobStore, launcher)
	if err := os.MkdirAll(filepath.Join(cfg.ProblemsRoot, "001-hello"), 0755); err != nil {
		t.Fatalf("create problem dir: %v", err)
	}

	ctx := context.Background()
	seedSubmission(t, jobStore, "sub-7", "001-hello")
	worker.Compile(ctx, model.CompileJob{SubmissionID: "sub-7"})
	runJob, _, _ := jobStore.DequeueRun(ctx, 100*time.Millisecond)
	worker.Run(ctx, runJob)
	mustStatus(t, jobStore, "sub-7", model.StatusError)

	raw, _ := jobStore.GetRunResult(ctx, "sub-7")
	var runErr model.RunError
	if err := json.Unmarshal([]byte(raw), &runErr); err != nil {
		t.Fatalf("decode run error: %v", err)
	}
	if runErr.Error != "judge_container_failed" || runErr.ExitCode != 125 {
		t.Fatalf("unexpected run error: %+v", runErr)
	}
}

func TestPipelineLauncherFailureIsError(t *testing.T) {
	jobStore := newTestStore(t)
	launcher := &fakeLauncher{
		compileErr: errors.New("docker daemon unreachable"),
	}
	worker, cfg := newTestWorker(t, jobStore, launcher)

	ctx := context.Background()
	seedSubmission(t, jobStore, "sub-8", "001-hello")
	worker.Compile(ctx, model.CompileJob{SubmissionID: "sub-8"})
	mustStatus(t, jobStore, "sub-8", model.StatusError)

	log, _ := jobStore.GetCompileLog(ctx, "sub-8")
	if log == "" {
		t.Fatalf("launcher failure must store its message as the compile log")
	}
	assertJobRootEmpty(t, cfg.JobRoot)
}

func TestPipelineMissingCodeIsError(t *testing.T) {
	jobStore := newTestStore(t)
	worker, _ := newTestWorker(t, jobStore, &fakeLauncher{})

	ctx := context.Background()
	if err := jobStore.PutSubmission(ctx, model.Submission{
		SubmissionID: "sub-9",
		Status:       model.StatusQueued,
		ProblemID:    "001-hello",
		Language:     "cpp",
	}); err != nil {
		t.Fatalf("put submission: %v", err)
	}
	// No code stored.
	worker.Compile(ctx, model.CompileJob{SubmissionID: "sub-9"})
	mustStatus(t, jobStore, "sub-9", model.StatusError)
}

func assertJobRootEmpty(t *testing.T, jobRoot string) {
	t.Helper()
	entries, err := os.ReadDir(jobRoot)
	if err != nil {
		t.Fatalf("read job root: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("job root must be empty, found %d entries", len(entries))
	}
}
