// Package orchestrator sequences the bootstrap stages.
//
// A run detects its environment, resolves the node identity, installs the prerequisites
// and the Nexus CLI, locates the node binary, registers, saves the node config and finally
// starts the node: waiting for it in local runs, supervising it everywhere else.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/nexus-bootstrap/pkg/domain"
	"github.com/aretw0/nexus-bootstrap/pkg/ports"
)

// Detector classifies the runtime context.
type Detector interface {
	Detect() domain.Environment
}

// IdentityResolver picks the identity variant and resolves its value.
type IdentityResolver interface {
	ChooseMode(ctx context.Context, env domain.Environment) (domain.Mode, error)
	Resolve(ctx context.Context, env domain.Environment, mode domain.Mode) (domain.Identity, error)
}

// Dependencies installs OS packages and the toolchain.
type Dependencies interface {
	InstallPackages(ctx context.Context)
	EnsureToolchain(ctx context.Context) error
}

// Installer installs the Nexus CLI.
type Installer interface {
	Install(ctx context.Context) error
}

// Locator finds the node binary.
type Locator interface {
	Locate() (domain.BinaryLocation, bool)
}

// Launcher registers, persists and runs the node.
type Launcher interface {
	Register(ctx context.Context, bin domain.BinaryLocation, id domain.Identity) error
	SaveConfig(ctx context.Context, id domain.Identity) error
	Run(ctx context.Context, env domain.Environment, bin domain.BinaryLocation, id domain.Identity) error
}

// Report is what a run has learned so far.
type Report struct {
	Environment domain.Environment
	Identity    domain.Identity
	Binary      domain.BinaryLocation
}

// Orchestrator runs the bootstrap stages in order.
type Orchestrator struct {
	Detector     Detector
	Identity     IdentityResolver
	Dependencies Dependencies
	Installer    Installer
	Locator      Locator
	Launcher     Launcher

	// SkipInstallIfPresent skips the CLI installer when the binary is already located.
	SkipInstallIfPresent bool
	BinaryName           string

	Observers []ports.StageObserver
	// OnReport is called whenever the report gains information. Optional.
	OnReport func(ctx context.Context, r Report)

	// Stderr receives the captured stderr of the command behind a fatal error.
	Stderr io.Writer
	Logger *slog.Logger
}

// Run executes every stage. Tolerated failures are logged and the run continues;
// the first fatal failure is returned as a *domain.StageError.
func (o *Orchestrator) Run(ctx context.Context) (err error) {
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	defer func() {
		if domain.IsFatal(err) {
			o.printStderr(err)
		}
	}()

	var report Report
	if err := o.stage(ctx, domain.StageDetect, func() error {
		report.Environment = o.Detector.Detect()
		o.Logger.Info("Environment detected", "environment", report.Environment)
		return nil
	}); err != nil {
		return err
	}
	o.notify(ctx, report)

	if err := o.stage(ctx, domain.StageIdentity, func() error {
		mode, err := o.Identity.ChooseMode(ctx, report.Environment)
		if err != nil {
			return err
		}
		report.Identity, err = o.Identity.Resolve(ctx, report.Environment, mode)
		return err
	}); err != nil {
		return err
	}
	o.notify(ctx, report)

	if err := o.stage(ctx, domain.StagePackages, func() error {
		o.Dependencies.InstallPackages(ctx)
		return nil
	}); err != nil {
		return err
	}

	if err := o.stage(ctx, domain.StageToolchain, func() error {
		return o.Dependencies.EnsureToolchain(ctx)
	}); err != nil {
		return err
	}

	if err := o.stage(ctx, domain.StageCLIInstall, func() error {
		if o.SkipInstallIfPresent {
			if bin, ok := o.Locator.Locate(); ok {
				o.Logger.Info("Nexus CLI already installed, skipping installer", "path", bin)
				return nil
			}
		}
		return o.Installer.Install(ctx)
	}); err != nil {
		return err
	}

	if err := o.stage(ctx, domain.StageLocate, func() error {
		bin, ok := o.Locator.Locate()
		if !ok {
			return domain.Failf(domain.StageLocate, domain.ErrBinaryNotFound,
				"%s not found in any install location or on PATH", o.binaryName())
		}
		report.Binary = bin
		return nil
	}); err != nil {
		return err
	}
	o.notify(ctx, report)

	// Registration and config persistence are tolerated; their errors stop nothing.
	_ = o.stage(ctx, domain.StageRegistration, func() error {
		return o.Launcher.Register(ctx, report.Binary, report.Identity)
	})
	_ = o.stage(ctx, domain.StageSaveConfig, func() error {
		return o.Launcher.SaveConfig(ctx, report.Identity)
	})

	runStage := domain.StageLaunch
	if report.Environment.Production() {
		runStage = domain.StageSupervise
	}
	return o.stage(ctx, runStage, func() error {
		return o.Launcher.Run(ctx, report.Environment, report.Binary, report.Identity)
	})
}

// stage runs fn with logging and observer notifications. A context cancelled before the
// stage begins short-circuits it with ErrInterrupted.
func (o *Orchestrator) stage(ctx context.Context, stage domain.Stage, fn func() error) error {
	if cause := ctx.Err(); cause != nil {
		return domain.NewStageError(stage, domain.ErrInterrupted, cause)
	}

	for _, obs := range o.Observers {
		obs.StageStarted(ctx, stage)
	}
	o.Logger.Debug("Stage started", "stage", stage)

	start := time.Now()
	err := fn()
	took := time.Since(start)

	var se *domain.StageError
	if err != nil && !errors.As(err, &se) {
		err = domain.NewStageError(stage, err, nil)
	}

	for _, obs := range o.Observers {
		obs.StageFinished(ctx, stage, took, err)
	}

	switch {
	case err == nil:
		o.Logger.Info("Stage finished", "stage", stage, "duration", took.Round(time.Millisecond))
	case domain.IsFatal(err):
		o.Logger.Error("Stage failed", "stage", stage, "error", err)
	default:
		o.Logger.Warn("Stage finished with tolerated errors", "stage", stage, "error", err)
	}
	return err
}

func (o *Orchestrator) notify(ctx context.Context, r Report) {
	if o.OnReport != nil {
		o.OnReport(ctx, r)
	}
}

func (o *Orchestrator) binaryName() string {
	if o.BinaryName == "" {
		return "node binary"
	}
	return o.BinaryName
}

func (o *Orchestrator) printStderr(err error) {
	var se *domain.StageError
	if o.Stderr == nil || !errors.As(err, &se) || strings.TrimSpace(se.Stderr) == "" {
		return
	}
	fmt.Fprintf(o.Stderr, "--- stderr of failed %s command ---\n%s\n", se.Stage, strings.TrimRight(se.Stderr, "\n"))
}
