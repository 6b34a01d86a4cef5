package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/aretw0/nexus-bootstrap/pkg/domain"
	"github.com/aretw0/nexus-bootstrap/pkg/locator"
	"github.com/aretw0/nexus-bootstrap/pkg/ports"
)

// ErrTimeout is returned by Run when a command exceeds its Command.Timeout.
var ErrTimeout = errors.New("command timed out")

// defaultWaitDelay bounds how long Wait lingers on pipes still held by grandchildren.
const defaultWaitDelay = 2 * time.Second

// Runner implements ports.Executor for local subprocesses.
// The search PATH handed to children is explicit: the bootstrapper never mutates its own environment.
type Runner struct {
	baseDir     string
	pathPrepend []string
	basePath    string
	extraEnv    []string
	stdout      io.Writer
	stderr      io.Writer
	logger      *slog.Logger
	observers   []ports.OutcomeObserver
}

var _ ports.Executor = (*Runner)(nil)

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// WithPathPrepend puts dirs in front of the inherited PATH for every child.
func WithPathPrepend(dirs ...string) RunnerOption {
	return func(r *Runner) {
		r.pathPrepend = append(r.pathPrepend, dirs...)
	}
}

// WithBasePath replaces the inherited PATH (tests use it to isolate lookups).
func WithBasePath(path string) RunnerOption {
	return func(r *Runner) {
		r.basePath = path
	}
}

// WithEnv appends KEY=VALUE entries to every child environment.
func WithEnv(env ...string) RunnerOption {
	return func(r *Runner) {
		r.extraEnv = append(r.extraEnv, env...)
	}
}

// WithOutput sets where long-lived children started with Start write their output.
func WithOutput(stdout, stderr io.Writer) RunnerOption {
	return func(r *Runner) {
		r.stdout = stdout
		r.stderr = stderr
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithObserver registers observers notified after every Run.
func WithObserver(obs ...ports.OutcomeObserver) RunnerOption {
	return func(r *Runner) {
		r.observers = append(r.observers, obs...)
	}
}

// NewRunner creates a new Process Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		basePath: os.Getenv("PATH"),
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SearchPath returns the PATH value children see.
func (r *Runner) SearchPath() string {
	parts := make([]string, 0, len(r.pathPrepend)+1)
	for _, dir := range r.pathPrepend {
		if dir != "" {
			parts = append(parts, dir)
		}
	}
	if r.basePath != "" {
		parts = append(parts, r.basePath)
	}
	return strings.Join(parts, string(os.PathListSeparator))
}

// LookPath resolves name against SearchPath. It satisfies ports.PathLookup.
func (r *Runner) LookPath(name string) (string, error) {
	return locator.LookPathIn(name, r.SearchPath())
}

// Run executes cmd to completion, capturing stdout and stderr.
// Exit codes are reported in the outcome; err is set only when the child could not
// be spawned or was killed by its timeout.
func (r *Runner) Run(ctx context.Context, cmd domain.Command) (domain.CommandOutcome, error) {
	runCtx := ctx
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	c, err := r.build(runCtx, cmd)
	if err != nil {
		return r.finish(ctx, domain.CommandOutcome{Command: cmd, ExitCode: -1}, err)
	}
	// Only bounded commands get their own process group: a foreground child keeps
	// access to the terminal, a background one is stopped by SIGTTIN when it reads it.
	if cmd.Timeout > 0 {
		configureGroup(c, true)
	}
	c.WaitDelay = defaultWaitDelay

	// Capture Output
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	if cmd.Stdin != "" {
		c.Stdin = strings.NewReader(cmd.Stdin)
	}

	r.logger.Info("Running command", "stage", cmd.Stage, "cmd", cmd.Display())
	start := time.Now()
	err = c.Run()

	outcome := domain.CommandOutcome{
		Command:  cmd,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err == nil {
		return r.finish(ctx, outcome, nil)
	}

	// The timeout fired before the parent context did: report it as such.
	if cmd.Timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		outcome.TimedOut = true
		outcome.ExitCode = -1
		return r.finish(ctx, outcome, fmt.Errorf("%w after %s", ErrTimeout, cmd.Timeout))
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		outcome.ExitCode = exitErr.ExitCode()
		return r.finish(ctx, outcome, nil)
	}

	outcome.ExitCode = -1
	if ctx.Err() != nil {
		err = ctx.Err()
	}
	return r.finish(ctx, outcome, err)
}

func (r *Runner) finish(ctx context.Context, outcome domain.CommandOutcome, err error) (domain.CommandOutcome, error) {
	if (err != nil || !outcome.Success()) && outcome.Command.Tolerated {
		outcome.Tolerated = true
	}

	attrs := []any{
		"stage", outcome.Command.Stage,
		"cmd", outcome.Command.Display(),
		"exit_code", outcome.ExitCode,
		"duration", outcome.Duration.Round(time.Millisecond),
	}
	switch {
	case err != nil:
		r.logger.Warn("Command failed", append(attrs, "error", err, "stderr", tail(outcome.Stderr))...)
	case !outcome.Success():
		r.logger.Warn("Command exited non-zero", append(attrs, "tolerated", outcome.Tolerated, "stderr", tail(outcome.Stderr))...)
	default:
		r.logger.Info("Command finished", attrs...)
	}
	if out := strings.TrimSpace(outcome.Stdout); out != "" {
		r.logger.Debug("Command output", "stage", outcome.Command.Stage, "stdout", tail(out))
	}

	for _, obs := range r.observers {
		obs.ObserveOutcome(ctx, outcome)
	}
	return outcome, err
}

// Start spawns cmd, writes its Stdin payload and closes stdin. The child is not bound to ctx:
// its lifetime is controlled through Process.Terminate.
func (r *Runner) Start(ctx context.Context, cmd domain.Command) (ports.Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := r.build(context.Background(), cmd)
	if err != nil {
		return nil, err
	}
	configureGroup(c, false)
	c.Stdout = r.stdout
	c.Stderr = r.stderr

	var stdin io.WriteCloser
	if cmd.Stdin != "" {
		stdin, err = c.StdinPipe()
		if err != nil {
			return nil, fmt.Errorf("failed to open stdin: %w", err)
		}
	}

	r.logger.Info("Starting process", "stage", cmd.Stage, "cmd", cmd.Display())
	if err := c.Start(); err != nil {
		return nil, err
	}

	if stdin != nil {
		// The node prompts once; a broken pipe only means it never read the answer.
		if _, err := io.WriteString(stdin, cmd.Stdin); err != nil {
			r.logger.Warn("Failed to write confirmation", "pid", c.Process.Pid, "error", err)
		}
		_ = stdin.Close()
	}

	return newChild(c, r.logger), nil
}

func (r *Runner) build(ctx context.Context, cmd domain.Command) (*exec.Cmd, error) {
	var c *exec.Cmd
	switch {
	case cmd.Script != "":
		c = exec.CommandContext(ctx, "sh", "-c", cmd.Script)
	case cmd.Name != "":
		c = exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	default:
		return nil, errors.New("command has neither name nor script")
	}
	c.Dir = r.baseDir

	// Prepare Environment
	env := withoutKey(c.Environ(), "PATH")
	env = append(env, "PATH="+r.SearchPath())
	env = append(env, r.extraEnv...)
	env = append(env, cmd.Env...)
	c.Env = env

	// exec resolved the name against our own PATH; redo it against the children's PATH.
	if cmd.Script == "" && !strings.ContainsRune(cmd.Name, os.PathSeparator) {
		path, err := r.LookPath(cmd.Name)
		if err != nil {
			return nil, err
		}
		c.Path = path
		c.Err = nil
	}
	return c, nil
}

func withoutKey(env []string, key string) []string {
	prefix := key + "="
	out := env[:0:0]
	for _, kv := range env {
		if !strings.HasPrefix(kv, prefix) {
			out = append(out, kv)
		}
	}
	return out
}

// tail keeps the last part of noisy installer output for logs.
func tail(s string) string {
	const limit = 2048
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	return "..." + s[len(s)-limit:]
}
