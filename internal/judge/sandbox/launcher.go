// Package sandbox launches the judge image in an isolated container: no
// network, capped CPU and memory, read-only root with an ephemeral tmp,
// and an external wall timeout. The container runtime provides the
// isolation; this package only assembles and supervises the invocation.
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"coduel/pkg/utils/logger"

	"go.uber.org/zap"
)

// Mount binds a host path into the sandbox.
type Mount struct {
	Host      string
	Container string
	Mode      string // "ro" or "rw"
}

// Options controls one launch.
type Options struct {
	Mounts       []Mount
	ReadonlyRoot bool
	Timeout      time.Duration
}

// Output is the observed outcome of one launch. A nonzero exit code is
// data, not an error; TimedOut is set when the wall timeout expired and
// the process was killed.
type Output struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
}

// Launcher runs a command inside the judge image.
type Launcher interface {
	Launch(ctx context.Context, command []string, opts Options) (Output, error)
}

// Config holds the sandbox runtime settings.
type Config struct {
	Runtime   string        `yaml:"runtime"` // container CLI, default "docker"
	Image     string        `yaml:"image"`
	CPULimit  string        `yaml:"cpuLimit"`
	MemLimit  string        `yaml:"memLimit"`
	ExtraArgs []string      `yaml:"extraArgs"`
	Timeout   time.Duration `yaml:"timeout"`
}

// DockerLauncher assembles docker run invocations.
type DockerLauncher struct {
	cfg Config
}

// NewDockerLauncher creates a launcher, filling unset limits with the
// half-host defaults.
func NewDockerLauncher(cfg Config) *DockerLauncher {
	if cfg.Runtime == "" {
		cfg.Runtime = "docker"
	}
	if cfg.Image == "" {
		cfg.Image = "oj_judge:latest"
	}
	if cfg.CPULimit == "" {
		cfg.CPULimit = DefaultCPULimit()
	}
	if cfg.MemLimit == "" {
		cfg.MemLimit = DefaultMemLimit()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &DockerLauncher{cfg: cfg}
}

// Launch runs command inside the judge image and waits for it, up to
// opts.Timeout (falling back to the configured default). The returned
// error is reserved for launcher-level failures; the sandboxed command's
// exit code travels in Output.
func (l *DockerLauncher) Launch(ctx context.Context, command []string, opts Options) (Output, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = l.cfg.Timeout
	}
	args := l.buildArgs(command, opts)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, l.cfg.Runtime, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	out := Output{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if runCtx.Err() == context.DeadlineExceeded {
		out.TimedOut = true
		out.ExitCode = -1
		logger.Warn(ctx, "sandbox wall timeout",
			zap.Duration("timeout", timeout),
			zap.Duration("elapsed", time.Since(start)))
		return out, nil
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			out.ExitCode = exitErr.ExitCode()
			return out, nil
		}
		// The runtime itself could not be started or died unexpectedly.
		return out, err
	}
	out.ExitCode = 0
	return out, nil
}

// buildArgs assembles the docker run argv. Arguments are passed as a
// vector, never interpolated through a shell.
func (l *DockerLauncher) buildArgs(command []string, opts Options) []string {
	args := []string{"run", "--rm", "--network", "none"}
	if l.cfg.CPULimit != "" {
		args = append(args, "--cpus", l.cfg.CPULimit)
	}
	if l.cfg.MemLimit != "" {
		args = append(args, "--memory", l.cfg.MemLimit)
	}
	if opts.ReadonlyRoot {
		args = append(args, "--read-only", "--tmpfs", "/tmp")
		if !hasWorkMount(opts.Mounts) {
			args = append(args, "--tmpfs", "/work")
		}
	}
	args = append(args, l.cfg.ExtraArgs...)
	for _, m := range opts.Mounts {
		args = append(args, "-v", m.Host+":"+m.Container+":"+m.Mode)
	}
	args = append(args, l.cfg.Image)
	args = append(args, command...)
	return args
}

func hasWorkMount(mounts []Mount) bool {
	for _, m := range mounts {
		if m.Container == "/work" {
			return true
		}
	}
	return false
}

// TranslateHostPath rewrites a path the worker sees under workerRoot into
// the equivalent path under hostRoot, so a worker running inside a
// container can hand the container runtime a path valid on the host.
func TranslateHostPath(path, workerRoot, hostRoot string) string {
	if workerRoot == "" || hostRoot == "" || workerRoot == hostRoot {
		return path
	}
	if !strings.HasPrefix(path, workerRoot) {
		return path
	}
	suffix := path[len(workerRoot):]
	return strings.TrimRight(hostRoot, "/") + suffix
}
