// Package cli wires the bootstrap components together for the command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/nexus-bootstrap/internal/config"
	"github.com/aretw0/nexus-bootstrap/pkg/adapters/file"
	httpadapter "github.com/aretw0/nexus-bootstrap/pkg/adapters/http"
	"github.com/aretw0/nexus-bootstrap/pkg/adapters/process"
	"github.com/aretw0/nexus-bootstrap/pkg/adapters/redis"
	"github.com/aretw0/nexus-bootstrap/pkg/adapters/sqlite"
	"github.com/aretw0/nexus-bootstrap/pkg/detect"
	"github.com/aretw0/nexus-bootstrap/pkg/domain"
	"github.com/aretw0/nexus-bootstrap/pkg/identity"
	"github.com/aretw0/nexus-bootstrap/pkg/installer"
	"github.com/aretw0/nexus-bootstrap/pkg/launcher"
	"github.com/aretw0/nexus-bootstrap/pkg/locator"
	"github.com/aretw0/nexus-bootstrap/pkg/observability"
	"github.com/aretw0/nexus-bootstrap/pkg/orchestrator"
	"github.com/aretw0/nexus-bootstrap/pkg/ports"
)

// Options carries the process-level inputs of a bootstrap run.
type Options struct {
	ConfigPath string
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer
	LookupEnv  config.LookupFunc
	// Stat overrides the container marker probe. Defaults to os.Stat.
	Stat func(name string) (os.FileInfo, error)
	// Banner is printed on Stdout before local runs when Stdout is a terminal. Optional.
	Banner func(w io.Writer)
}

func (o *Options) defaults() {
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.LookupEnv == nil {
		o.LookupEnv = os.LookupEnv
	}
	if o.Stat == nil {
		o.Stat = os.Stat
	}
}

// App is a fully wired bootstrapper.
type App struct {
	Settings    *config.Settings
	Environment domain.Environment
	Logger      *slog.Logger

	Orchestrator *orchestrator.Orchestrator
	Runner       *process.Runner
	Locator      *locator.Locator
	Metrics      *observability.Metrics
	Status       *httpadapter.Status
	Journal      *sqlite.Journal
	Heartbeats   *redis.Store

	closers []io.Closer
}

// NewDetector builds the environment detector for cfg.
func NewDetector(cfg *config.Settings, opts Options) *detect.Detector {
	opts.defaults()
	d := detect.New(cfg.CloudVars, cfg.ContainerMarker)
	d.LookupEnv = opts.LookupEnv
	d.Stat = opts.Stat
	return d
}

// NewRunner builds the command runner with the augmented search path.
func NewRunner(cfg *config.Settings, opts Options, logger *slog.Logger, observers ...ports.OutcomeObserver) *process.Runner {
	opts.defaults()
	path, _ := opts.LookupEnv("PATH")
	return process.NewRunner(
		process.WithBasePath(path),
		process.WithPathPrepend(cfg.ToolchainBinDir, cfg.BinDir),
		process.WithOutput(opts.Stdout, opts.Stderr),
		process.WithLogger(logger),
		process.WithObserver(observers...),
	)
}

// NewLocator builds the binary locator for cfg.
func NewLocator(cfg *config.Settings, lookup ports.PathLookup, logger *slog.Logger) *locator.Locator {
	loc := locator.New(cfg.Candidates, lookup, logger)
	loc.Name = cfg.BinaryName
	return loc
}

// NewApp wires every component from cfg. Optional integrations that fail to start
// (journal, Redis) are logged and left out.
func NewApp(ctx context.Context, cfg *config.Settings, opts Options) (*App, error) {
	opts.defaults()

	env := NewDetector(cfg, opts).Detect()
	logger, err := createLogger(opts.Stderr, cfg.LogLevel, cfg.LogFormat, env)
	if err != nil {
		return nil, err
	}

	app := &App{
		Settings:    cfg,
		Environment: env,
		Logger:      logger,
		Metrics:     observability.NewMetrics(),
		Status:      httpadapter.NewStatus(""),
	}

	observers := []ports.OutcomeObserver{app.Metrics}
	stages := []ports.StageObserver{app.Metrics, app.Status}
	sinks := []ports.HeartbeatSink{app.Metrics, app.Status}

	if !cfg.JournalDisabled {
		journal, err := sqlite.Open(cfg.JournalPath, logger)
		if err != nil {
			logger.Warn("Run journal unavailable", "path", cfg.JournalPath, "error", err)
		} else {
			app.Journal = journal
			app.closers = append(app.closers, journal)
			observers = append(observers, journal)
			stages = append(stages, journal)
		}
	}

	var locker ports.DistributedLocker
	if cfg.RedisURL != "" {
		store, err := connectRedis(ctx, cfg)
		if err != nil {
			logger.Warn("Redis unavailable, heartbeats stay local", "error", err)
		} else {
			app.Heartbeats = store
			app.closers = append(app.closers, store)
			sinks = append(sinks, store)
			locker = redis.NewLocker(store.Client(), cfg.RedisPrefix)
		}
	}

	app.Runner = NewRunner(cfg, opts, logger, observers...)
	app.Locator = NewLocator(cfg, app.Runner.LookPath, logger)

	resolver := identity.NewResolver(cfg.WalletEnv, cfg.NodeIDEnv, identity.NewPrompter(opts.Stdin, opts.Stdout), logger)
	resolver.LookupEnv = opts.LookupEnv

	deps := installer.NewDependencies(app.Runner, app.Runner.LookPath,
		installer.WithPackages(cfg.PackageManager, cfg.Packages...),
		installer.WithSudo(cfg.UseSudo),
		installer.WithToolchain(cfg.ToolchainProbe, cfg.ToolchainScript),
		installer.WithDependenciesLogger(logger),
	)

	cliInstaller := installer.NewCLI(app.Runner, cfg.CLIInstallScript, cfg.CLIInstallTimeout, logger)
	cliInstaller.Stdin = cfg.Confirmation

	launchOpts := []launcher.Option{
		launcher.WithConfigStore(file.New(cfg.NodeConfigPath)),
		launcher.WithTiming(cfg.HeartbeatInterval, cfg.GracePeriod),
		launcher.WithSinks(sinks...),
		launcher.WithLogger(logger),
	}
	if locker != nil {
		launchOpts = append(launchOpts, launcher.WithLocker(locker, cfg.RegistrationLockTTL))
	}
	node := launcher.New(app.Runner, launchOpts...)
	node.Confirmation = cfg.Confirmation

	detector := NewDetector(cfg, opts)
	app.Orchestrator = &orchestrator.Orchestrator{
		Detector:             detector,
		Identity:             resolver,
		Dependencies:         deps,
		Installer:            cliInstaller,
		Locator:              app.Locator,
		Launcher:             node,
		SkipInstallIfPresent: cfg.SkipCLIInstallIfPresent,
		BinaryName:           cfg.BinaryName,
		Observers:            stages,
		OnReport:             app.report,
		Stderr:               opts.Stderr,
		Logger:               logger,
	}
	return app, nil
}

func connectRedis(ctx context.Context, cfg *config.Settings) (*redis.Store, error) {
	store, err := redis.NewFromURL(cfg.RedisURL,
		redis.WithPrefix(cfg.RedisPrefix),
		redis.WithTTL(3*cfg.HeartbeatInterval),
	)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return store, nil
}

func (a *App) report(ctx context.Context, r orchestrator.Report) {
	a.Status.SetRun(r.Environment, r.Identity, r.Binary)
	if !r.Identity.IsZero() {
		a.Metrics.SetInfo(r.Environment, r.Identity.Mode())
	}
	if a.Journal != nil && !r.Identity.IsZero() {
		a.Journal.SetIdentity(ctx, r.Identity, r.Binary)
	}
}

// Run executes the bootstrap. The status server, when configured, lives as long as the run.
func (a *App) Run(ctx context.Context) error {
	if a.Journal != nil {
		runID, err := a.Journal.Begin(ctx, a.Environment)
		if err != nil {
			a.Logger.Warn("Failed to start run journal", "error", err)
		} else {
			a.Status.SetRunID(runID)
			a.Logger = a.Logger.With("run_id", runID)
		}
	}

	serverCtx, stopServer := context.WithCancel(ctx)
	defer stopServer()
	served := make(chan struct{})
	if a.Settings.MetricsAddr != "" {
		srv, err := httpadapter.Listen(a.Settings.MetricsAddr, httpadapter.NewHandler(a.Status, a.Metrics.Handler()), a.Logger)
		if err != nil {
			a.Logger.Warn("Status server disabled", "addr", a.Settings.MetricsAddr, "error", err)
			close(served)
		} else {
			go func() {
				defer close(served)
				if err := srv.Serve(serverCtx); err != nil {
					a.Logger.Warn("Status server stopped", "error", err)
				}
			}()
		}
	} else {
		close(served)
	}

	a.Logger.Info("Bootstrap starting", "environment", a.Environment)
	err := a.Orchestrator.Run(ctx)

	if a.Journal != nil {
		a.Journal.Finish(ctx, err)
	}
	stopServer()
	<-served

	switch {
	case err == nil:
		a.Logger.Info("Bootstrap finished")
	case errors.Is(err, domain.ErrInterrupted), errors.Is(err, domain.ErrInputCancelled):
		a.Logger.Warn("Bootstrap cancelled", "error", err)
	default:
		a.Logger.Error("Bootstrap failed", "error", err)
	}
	return err
}

// Close releases the journal and Redis connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}

// Bootstrap loads the configuration and performs a full run.
func Bootstrap(ctx context.Context, opts Options) error {
	opts.defaults()
	cfg, err := config.Load(opts.ConfigPath, opts.LookupEnv)
	if err != nil {
		return err
	}
	app, err := NewApp(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer app.Close()

	if opts.Banner != nil && !app.Environment.Production() && IsTerminal(opts.Stdout) {
		opts.Banner(opts.Stdout)
	}

	err = app.Run(ctx)
	if sc, ok := ctx.(*SignalContext); ok {
		if sig := sc.Signal(); sig != nil {
			app.Logger.Info("Received signal", "signal", sig.String())
		}
	}
	return err
}
