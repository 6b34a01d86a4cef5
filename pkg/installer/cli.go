package installer

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/nexus-bootstrap/pkg/domain"
	"github.com/aretw0/nexus-bootstrap/pkg/ports"
)

// DefaultCLITimeout bounds the remote installer script.
const DefaultCLITimeout = 300 * time.Second

// CLI runs the Nexus CLI installer script.
type CLI struct {
	Exec    ports.Executor
	Script  string
	Stdin   string
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewCLI creates a CLI installer that answers the script's confirmation prompt with "Y".
func NewCLI(exec ports.Executor, script string, timeout time.Duration, logger *slog.Logger) *CLI {
	if timeout <= 0 {
		timeout = DefaultCLITimeout
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &CLI{Exec: exec, Script: script, Stdin: "Y\n", Timeout: timeout, Logger: logger}
}

// Install runs the installer once. A timeout kills the script and fails with ErrInstallTimeout;
// any other failure is ErrCliInstallFailed carrying the script's stderr.
func (c *CLI) Install(ctx context.Context) error {
	c.Logger.Info("Installing Nexus CLI", "timeout", c.Timeout)
	outcome, err := c.Exec.Run(ctx, domain.Command{
		Stage:   domain.StageCLIInstall,
		Script:  c.Script,
		Stdin:   c.Stdin,
		Timeout: c.Timeout,
	})
	switch {
	case outcome.TimedOut:
		return domain.Failf(domain.StageCLIInstall, domain.ErrInstallTimeout,
			"installer did not finish within %s", c.Timeout).WithStderr(outcome.Stderr)
	case ctx.Err() != nil:
		return domain.NewStageError(domain.StageCLIInstall, domain.ErrInterrupted, ctx.Err()).
			WithStderr(outcome.Stderr)
	case err != nil:
		return domain.NewStageError(domain.StageCLIInstall, domain.ErrCliInstallFailed, err).
			WithStderr(outcome.Stderr)
	case !outcome.Success():
		return domain.Failf(domain.StageCLIInstall, domain.ErrCliInstallFailed,
			"installer exited with code %d", outcome.ExitCode).WithStderr(outcome.Stderr)
	}
	c.Logger.Info("Nexus CLI installed", "duration", outcome.Duration.Round(time.Millisecond))
	return nil
}
