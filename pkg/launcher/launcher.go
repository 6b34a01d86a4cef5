// Package launcher registers the node, persists its configuration and keeps it running.
package launcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/nexus-bootstrap/pkg/domain"
	"github.com/aretw0/nexus-bootstrap/pkg/ports"
)

const (
	DefaultInterval = 60 * time.Second
	DefaultGrace    = 10 * time.Second
	DefaultLockTTL  = 2 * time.Minute
)

// Launcher drives the node binary after installation.
type Launcher struct {
	Exec   ports.Executor
	Config ports.NodeConfigStore
	// Locker serialises registration across replicas sharing a wallet. Optional.
	Locker  ports.DistributedLocker
	LockTTL time.Duration
	Sinks   []ports.HeartbeatSink

	Interval     time.Duration
	Grace        time.Duration
	Confirmation string
	Host         string

	Logger *slog.Logger
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithConfigStore persists the identity before the node starts.
func WithConfigStore(store ports.NodeConfigStore) Option {
	return func(l *Launcher) { l.Config = store }
}

// WithLocker enables the registration lock.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(l *Launcher) {
		l.Locker = locker
		if ttl > 0 {
			l.LockTTL = ttl
		}
	}
}

// WithSinks adds heartbeat receivers.
func WithSinks(sinks ...ports.HeartbeatSink) Option {
	return func(l *Launcher) { l.Sinks = append(l.Sinks, sinks...) }
}

// WithTiming sets the liveness interval and the termination grace period.
func WithTiming(interval, grace time.Duration) Option {
	return func(l *Launcher) {
		if interval > 0 {
			l.Interval = interval
		}
		if grace >= 0 {
			l.Grace = grace
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Launcher) { l.Logger = logger }
}

// New creates a Launcher.
func New(exec ports.Executor, opts ...Option) *Launcher {
	host, _ := os.Hostname()
	l := &Launcher{
		Exec:         exec,
		LockTTL:      DefaultLockTTL,
		Interval:     DefaultInterval,
		Grace:        DefaultGrace,
		Confirmation: "Y\n",
		Host:         host,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Register creates the user and node records for a wallet identity. Node-ID identities
// are already registered and spawn nothing. Failures are returned as RegistrationFailed
// errors, which callers log and tolerate.
func (l *Launcher) Register(ctx context.Context, bin domain.BinaryLocation, id domain.Identity) error {
	if id.Mode() != domain.ModeWallet {
		return nil
	}

	if l.Locker != nil {
		unlock, err := l.Locker.Lock(ctx, "register:"+id.Value(), l.LockTTL)
		if err != nil {
			l.Logger.Warn("Registration lock unavailable, registering anyway", "error", err)
		} else {
			defer func() {
				if err := unlock(context.WithoutCancel(ctx)); err != nil {
					l.Logger.Warn("Failed to release registration lock", "error", err)
				}
			}()
		}
	}

	l.Logger.Info("Registering node", "wallet", id.Masked())
	steps := [][]string{
		{"register-user", "--wallet-address", id.Value()},
		{"register-node"},
	}

	var errs []error
	for _, args := range steps {
		outcome, err := l.Exec.Run(ctx, domain.Command{
			Stage:     domain.StageRegistration,
			Name:      bin.String(),
			Args:      args,
			Tolerated: true,
		})
		switch {
		case err != nil:
			errs = append(errs, domain.NewStageError(domain.StageRegistration, domain.ErrRegistrationFailed, err).
				WithStderr(outcome.Stderr))
		case !outcome.Success():
			errs = append(errs, domain.Failf(domain.StageRegistration, domain.ErrRegistrationFailed,
				"%s exited with code %d", args[0], outcome.ExitCode).WithStderr(outcome.Stderr))
		}
	}
	if err := errors.Join(errs...); err != nil {
		l.Logger.Warn("Registration incomplete, continuing", "error", err)
		return err
	}
	l.Logger.Info("Registration complete")
	return nil
}

// SaveConfig persists id when a config store is configured.
func (l *Launcher) SaveConfig(ctx context.Context, id domain.Identity) error {
	if l.Config == nil {
		return nil
	}
	if err := l.Config.Save(ctx, id); err != nil {
		err = domain.NewStageError(domain.StageSaveConfig, domain.ErrConfigSaveFailed, err)
		l.Logger.Warn("Failed to save node config, continuing", "error", err)
		return err
	}
	l.Logger.Info("Saved node config", "identity", id.Masked())
	return nil
}

// Start spawns the node and answers its confirmation prompt.
func (l *Launcher) Start(ctx context.Context, bin domain.BinaryLocation, id domain.Identity) (ports.Process, error) {
	args := []string{"start"}
	if id.Mode() == domain.ModeNodeID {
		args = append(args, "--node-id", id.Value())
	}

	proc, err := l.Exec.Start(ctx, domain.Command{
		Stage: domain.StageLaunch,
		Name:  bin.String(),
		Args:  args,
		Stdin: l.Confirmation,
	})
	if err != nil {
		return nil, domain.NewStageError(domain.StageLaunch, domain.ErrLaunchFailed, err)
	}
	l.Logger.Info("Node started", "pid", proc.Pid(), "binary", bin, "mode", id.Mode())
	return proc, nil
}

// Run starts the node and then either waits for it (local runs) or supervises it until ctx ends.
func (l *Launcher) Run(ctx context.Context, env domain.Environment, bin domain.BinaryLocation, id domain.Identity) error {
	proc, err := l.Start(ctx, bin, id)
	if err != nil {
		return err
	}
	if !env.Production() {
		return l.Wait(ctx, proc)
	}
	return l.Supervise(ctx, proc, ports.Heartbeat{
		Host:        l.Host,
		Environment: env.String(),
		Mode:        id.Mode(),
		Binary:      bin.String(),
	})
}

// Wait blocks until the node exits. A non-zero exit is logged, never retried.
// Cancelling ctx terminates the node gracefully.
func (l *Launcher) Wait(ctx context.Context, proc ports.Process) error {
	select {
	case <-proc.Done():
		l.logExit(proc)
		return nil
	case <-ctx.Done():
		l.Logger.Info("Stopping node")
		if err := proc.Terminate(l.Grace); err != nil {
			l.Logger.Warn("Failed to stop node", "pid", proc.Pid(), "error", err)
		}
		return nil
	}
}

// Supervise keeps the bootstrapper alive next to the node, logging and publishing a heartbeat
// every Interval. The node is never restarted. When ctx ends the node is terminated,
// escalating to a kill after Grace.
func (l *Launcher) Supervise(ctx context.Context, proc ports.Process, hb ports.Heartbeat) error {
	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()

	hb.ChildPid = proc.Pid()
	hb.ChildAlive = true
	exited := proc.Done()

	l.Logger.Info("Supervising node", "pid", hb.ChildPid, "interval", l.Interval)
	for {
		select {
		case <-ctx.Done():
			if hb.ChildAlive {
				l.Logger.Info("Shutdown requested, stopping node", "pid", hb.ChildPid, "grace", l.Grace)
				if err := proc.Terminate(l.Grace); err != nil {
					l.Logger.Warn("Failed to stop node", "pid", hb.ChildPid, "error", err)
				}
			}
			l.Logger.Info("Supervisor stopped", "beats", hb.Beat)
			return nil

		case <-exited:
			l.logExit(proc)
			hb.ChildAlive = false
			exited = nil

		case now := <-ticker.C:
			hb.Beat++
			hb.At = now.UTC()
			l.Logger.Info("Bootstrapper still alive", "beat", hb.Beat, "pid", hb.ChildPid, "node_alive", hb.ChildAlive)
			l.publish(ctx, hb)
		}
	}
}

func (l *Launcher) publish(ctx context.Context, hb ports.Heartbeat) {
	for _, sink := range l.Sinks {
		beatCtx, cancel := context.WithTimeout(ctx, l.Interval)
		if err := sink.Beat(beatCtx, hb); err != nil {
			l.Logger.Warn("Failed to publish heartbeat", "error", err)
		}
		cancel()
	}
}

func (l *Launcher) logExit(proc ports.Process) {
	code, err := proc.Wait()
	switch {
	case err != nil:
		l.Logger.Warn("Node process ended abnormally", "pid", proc.Pid(), "error", err)
	case code != 0:
		l.Logger.Warn("Node process exited with failure, not restarting", "pid", proc.Pid(), "exit_code", code)
	default:
		l.Logger.Info("Node process exited", "pid", proc.Pid())
	}
}
