package installer

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/nexus-bootstrap/pkg/domain"
	"github.com/aretw0/nexus-bootstrap/pkg/ports"
)

// Sudo policies.
const (
	SudoAuto   = "auto"
	SudoAlways = "always"
	SudoNever  = "never"
)

// Dependencies installs build prerequisites and the toolchain.
type Dependencies struct {
	Exec     ports.Executor
	LookPath ports.PathLookup

	PackageManager string
	Packages       []string
	UseSudo        string
	// IsRoot reports whether the bootstrapper runs privileged. Defaults to euid == 0.
	IsRoot func() bool

	ToolchainProbe  string
	ToolchainScript string

	Logger *slog.Logger
}

// DependenciesOption configures Dependencies.
type DependenciesOption func(*Dependencies)

// WithPackages sets the package manager and the packages it installs.
// An empty manager disables the package step.
func WithPackages(manager string, packages ...string) DependenciesOption {
	return func(d *Dependencies) {
		d.PackageManager = manager
		d.Packages = packages
	}
}

// WithSudo sets the sudo policy (auto, always, never).
func WithSudo(policy string) DependenciesOption {
	return func(d *Dependencies) { d.UseSudo = policy }
}

// WithToolchain sets the probe binary and the script that installs it.
func WithToolchain(probe, script string) DependenciesOption {
	return func(d *Dependencies) {
		d.ToolchainProbe = probe
		d.ToolchainScript = script
	}
}

// WithDependenciesLogger sets the logger.
func WithDependenciesLogger(logger *slog.Logger) DependenciesOption {
	return func(d *Dependencies) { d.Logger = logger }
}

// NewDependencies creates a Dependencies installer. lookup must resolve against the same
// search path the executor hands to its children.
func NewDependencies(exec ports.Executor, lookup ports.PathLookup, opts ...DependenciesOption) *Dependencies {
	d := &Dependencies{
		Exec:           exec,
		LookPath:       lookup,
		PackageManager: "apt-get",
		UseSudo:        SudoAuto,
		IsRoot:         func() bool { return os.Geteuid() == 0 },
		ToolchainProbe: "rustc",
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Ensure installs OS packages, then makes sure the toolchain is present.
// Package failures are logged and ignored; a failed toolchain install is fatal.
func (d *Dependencies) Ensure(ctx context.Context) error {
	d.InstallPackages(ctx)
	return d.EnsureToolchain(ctx)
}

// InstallPackages runs update, install and clean through the package manager.
// It never fails: a missing manager or missing privileges skip the step.
func (d *Dependencies) InstallPackages(ctx context.Context) {
	if d.PackageManager == "" {
		return
	}
	manager, err := d.LookPath(d.PackageManager)
	if err != nil {
		d.Logger.Warn("Package manager not available, skipping system packages", "manager", d.PackageManager)
		return
	}

	sudo, ok := d.sudo()
	if !ok {
		d.Logger.Warn("Not running as root and sudo is unavailable, skipping system packages")
		return
	}

	steps := [][]string{{"update"}}
	if len(d.Packages) > 0 {
		steps = append(steps, append([]string{"install", "-y"}, d.Packages...))
	}
	steps = append(steps, []string{"clean"})

	d.Logger.Info("Installing system packages", "manager", d.PackageManager, "packages", d.Packages)
	for _, step := range steps {
		if ctx.Err() != nil {
			return
		}
		cmd := domain.Command{
			Stage:     domain.StagePackages,
			Name:      manager,
			Args:      step,
			Env:       []string{"DEBIAN_FRONTEND=noninteractive"},
			Tolerated: true,
		}
		if sudo != "" {
			cmd.Name = sudo
			// -n fails instead of prompting for a password.
			cmd.Args = append([]string{"-n", "-E", manager}, step...)
		}
		if _, err := d.Exec.Run(ctx, cmd); err != nil {
			d.Logger.Warn("Package step failed", "step", step[0], "error", err)
		}
	}
}

// sudo returns the sudo binary to prefix package commands with, or "" when none is needed.
func (d *Dependencies) sudo() (string, bool) {
	switch d.UseSudo {
	case SudoNever:
		return "", true
	case SudoAlways:
	default:
		if d.IsRoot() {
			return "", true
		}
	}
	path, err := d.LookPath("sudo")
	if err != nil {
		return "", false
	}
	return path, true
}

// EnsureToolchain probes for the toolchain and installs it when missing.
// A present toolchain spawns no subprocess at all.
func (d *Dependencies) EnsureToolchain(ctx context.Context) error {
	if path, err := d.LookPath(d.ToolchainProbe); err == nil {
		d.Logger.Info("Toolchain already installed", "probe", d.ToolchainProbe, "path", path)
		return nil
	}
	if d.ToolchainScript == "" {
		return domain.Failf(domain.StageToolchain, domain.ErrToolchainInstallFailed,
			"%s not found and no install script configured", d.ToolchainProbe)
	}

	d.Logger.Info("Installing toolchain", "probe", d.ToolchainProbe)
	outcome, err := d.Exec.Run(ctx, domain.Command{
		Stage:  domain.StageToolchain,
		Script: d.ToolchainScript,
	})
	if ctx.Err() != nil {
		return domain.NewStageError(domain.StageToolchain, domain.ErrInterrupted, ctx.Err()).
			WithStderr(outcome.Stderr)
	}
	if err != nil {
		return domain.NewStageError(domain.StageToolchain, domain.ErrToolchainInstallFailed, err).
			WithStderr(outcome.Stderr)
	}
	if !outcome.Success() {
		return domain.Failf(domain.StageToolchain, domain.ErrToolchainInstallFailed,
			"installer exited with code %d", outcome.ExitCode).WithStderr(outcome.Stderr)
	}

	if _, err := d.LookPath(d.ToolchainProbe); err != nil {
		d.Logger.Warn("Toolchain installed but probe still not on the search path", "probe", d.ToolchainProbe)
	}
	d.Logger.Info("Toolchain installed")
	return nil
}
