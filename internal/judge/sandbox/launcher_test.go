package sandbox

import (
	"context"
	"strings"
	"testing"
	"time"
)

func newTestLauncher(cfg Config) *DockerLauncher {
	if cfg.Image == "" {
		cfg.Image = "oj_judge:latest"
	}
	if cfg.CPULimit == "" {
		cfg.CPULimit = "2"
	}
	if cfg.MemLimit == "" {
		cfg.MemLimit = "1g"
	}
	return NewDockerLauncher(cfg)
}

func TestBuildArgsBasics(t *testing.T) {
	l := newTestLauncher(Config{})
	args := l.buildArgs([]string{"compile_run.sh", "--compile-only", "cpp", "main.cpp", "c++20"}, Options{
		Mounts:       []Mount{{Host: "/host/work", Container: "/work", Mode: "rw"}},
		ReadonlyRoot: true,
	})
	joined := strings.Join(args, " ")

	for _, want := range []string{
		"run --rm --network none",
		"--cpus 2",
		"--memory 1g",
		"--read-only --tmpfs /tmp",
		"-v /host/work:/work:rw",
		"oj_judge:latest compile_run.sh --compile-only cpp main.cpp c++20",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args missing %q:\n%s", want, joined)
		}
	}
	if strings.Contains(joined, "--tmpfs /work") {
		t.Fatalf("explicit /work mount must suppress the tmpfs: %s", joined)
	}
}

func TestBuildArgsTmpfsWorkWithoutMount(t *testing.T) {
	l := newTestLauncher(Config{})
	args := l.buildArgs([]string{"true"}, Options{ReadonlyRoot: true})
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--tmpfs /work") {
		t.Fatalf("readonly root without a /work mount must add a tmpfs: %s", joined)
	}
}

func TestBuildArgsNoReadonly(t *testing.T) {
	l := newTestLauncher(Config{})
	args := l.buildArgs([]string{"true"}, Options{})
	joined := strings.Join(args, " ")
	if strings.Contains(joined, "--read-only") || strings.Contains(joined, "--tmpfs") {
		t.Fatalf("non-readonly launch must not pin the root: %s", joined)
	}
}

func TestBuildArgsExtraArgsPassthrough(t *testing.T) {
	l := newTestLauncher(Config{ExtraArgs: []string{"--pids-limit", "64"}})
	args := l.buildArgs([]string{"true"}, Options{})
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--pids-limit 64") {
		t.Fatalf("extra args must pass through verbatim: %s", joined)
	}
}

func TestBuildArgsMountOrderPrecedesImage(t *testing.T) {
	l := newTestLauncher(Config{})
	args := l.buildArgs([]string{"cmd"}, Options{
		Mounts: []Mount{
			{Host: "/h/w", Container: "/work", Mode: "rw"},
			{Host: "/h/t", Container: "/tests", Mode: "ro"},
		},
	})
	imageIdx := indexOf(args, "oj_judge:latest")
	mountIdx := indexOf(args, "/h/t:/tests:ro")
	if imageIdx < 0 || mountIdx < 0 || mountIdx > imageIdx {
		t.Fatalf("mounts must precede the image: %v", args)
	}
	if args[len(args)-1] != "cmd" {
		t.Fatalf("command must come last: %v", args)
	}
}

func TestLaunchReportsExitZero(t *testing.T) {
	// "echo" accepts the assembled argv and exits zero, standing in for
	// the container runtime.
	l := NewDockerLauncher(Config{Runtime: "echo", Image: "img", CPULimit: "1", MemLimit: "256m"})
	out, err := l.Launch(context.Background(), []string{"true"}, Options{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if out.ExitCode != 0 || out.TimedOut {
		t.Fatalf("unexpected output: %+v", out)
	}
	if !strings.Contains(out.Stdout, "img") {
		t.Fatalf("expected echoed argv, got %q", out.Stdout)
	}
}

func TestLaunchMissingRuntimeIsError(t *testing.T) {
	l := NewDockerLauncher(Config{Runtime: "/nonexistent/container-runtime", Image: "img"})
	_, err := l.Launch(context.Background(), []string{"true"}, Options{Timeout: time.Second})
	if err == nil {
		t.Fatalf("expected launcher failure for missing runtime")
	}
}

func TestTranslateHostPath(t *testing.T) {
	cases := []struct {
		path, workerRoot, hostRoot, want string
	}{
		{"/worker_tmp/job_1", "/worker_tmp", "/srv/oj/tmp", "/srv/oj/tmp/job_1"},
		{"/worker_tmp/job_1", "/worker_tmp", "/worker_tmp", "/worker_tmp/job_1"},
		{"/elsewhere/job_1", "/worker_tmp", "/srv/oj/tmp", "/elsewhere/job_1"},
		{"/problems/001", "/problems", "/srv/oj/problems/", "/srv/oj/problems/001"},
		{"/worker_tmp/job_1", "", "/srv", "/worker_tmp/job_1"},
	}
	for _, tc := range cases {
		got := TranslateHostPath(tc.path, tc.workerRoot, tc.hostRoot)
		if got != tc.want {
			t.Fatalf("TranslateHostPath(%q, %q, %q) = %q, want %q",
				tc.path, tc.workerRoot, tc.hostRoot, got, tc.want)
		}
	}
}

func TestDefaultLimitsAreNonEmpty(t *testing.T) {
	if DefaultCPULimit() == "" {
		t.Fatalf("default cpu limit must not be empty")
	}
	if DefaultMemLimit() == "" {
		t.Fatalf("default mem limit must not be empty")
	}
}

func indexOf(args []string, want string) int {
	for i, arg := range args {
		if arg == want {
			return i
		}
	}
	return -1
}
