package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/nexus-bootstrap/pkg/domain"
	"github.com/aretw0/nexus-bootstrap/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// script records every call the orchestrator makes on its collaborators.
type script struct {
	calls []string

	env        domain.Environment
	identity   domain.Identity
	identErr   error
	toolErr    error
	installErr error
	located    []bool
	registErr  error
	saveErr    error
	runErr     error
}

func (s *script) Detect() domain.Environment { s.calls = append(s.calls, "detect"); return s.env }

func (s *script) ChooseMode(ctx context.Context, env domain.Environment) (domain.Mode, error) {
	s.calls = append(s.calls, "mode")
	return s.identity.Mode(), nil
}

func (s *script) Resolve(ctx context.Context, env domain.Environment, mode domain.Mode) (domain.Identity, error) {
	s.calls = append(s.calls, "resolve")
	return s.identity, s.identErr
}

func (s *script) InstallPackages(ctx context.Context) { s.calls = append(s.calls, "packages") }

func (s *script) EnsureToolchain(ctx context.Context) error {
	s.calls = append(s.calls, "toolchain")
	return s.toolErr
}

func (s *script) Install(ctx context.Context) error {
	s.calls = append(s.calls, "install")
	return s.installErr
}

func (s *script) Locate() (domain.BinaryLocation, bool) {
	s.calls = append(s.calls, "locate")
	found := false
	if len(s.located) > 0 {
		found, s.located = s.located[0], s.located[1:]
	}
	if !found {
		return "", false
	}
	return "/bin/nexus-network", true
}

func (s *script) Register(ctx context.Context, bin domain.BinaryLocation, id domain.Identity) error {
	s.calls = append(s.calls, "register")
	return s.registErr
}

func (s *script) SaveConfig(ctx context.Context, id domain.Identity) error {
	s.calls = append(s.calls, "save")
	return s.saveErr
}

func (s *script) Run(ctx context.Context, env domain.Environment, bin domain.BinaryLocation, id domain.Identity) error {
	s.calls = append(s.calls, "run:"+env.String())
	return s.runErr
}

type stageLog struct {
	started  []domain.Stage
	finished map[domain.Stage]error
}

func (l *stageLog) StageStarted(_ context.Context, stage domain.Stage) {
	l.started = append(l.started, stage)
}

func (l *stageLog) StageFinished(_ context.Context, stage domain.Stage, _ time.Duration, err error) {
	if l.finished == nil {
		l.finished = map[domain.Stage]error{}
	}
	l.finished[stage] = err
}

func newOrchestrator(s *script, obs *stageLog) *Orchestrator {
	return &Orchestrator{
		Detector:             s,
		Identity:             s,
		Dependencies:         s,
		Installer:            s,
		Locator:              s,
		Launcher:             s,
		SkipInstallIfPresent: true,
		BinaryName:           "nexus-network",
		Observers:            []ports.StageObserver{obs},
	}
}

func walletID(t *testing.T) domain.Identity {
	t.Helper()
	id, err := domain.NewWallet("0xdb182b44AFa6Bee13f4038cfE27162D6b9414969")
	require.NoError(t, err)
	return id
}

func TestOrchestrator_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("Stages Run In Order", func(t *testing.T) {
		s := &script{env: domain.EnvManagedCloud, identity: walletID(t), located: []bool{false, true}}
		obs := &stageLog{}
		var reports []Report
		o := newOrchestrator(s, obs)
		o.OnReport = func(_ context.Context, r Report) { reports = append(reports, r) }

		require.NoError(t, o.Run(ctx))
		assert.Equal(t, []string{
			"detect", "mode", "resolve", "packages", "toolchain",
			"locate", "install", "locate", "register", "save", "run:managed-cloud",
		}, s.calls)
		assert.Equal(t, []domain.Stage{
			domain.StageDetect, domain.StageIdentity, domain.StagePackages, domain.StageToolchain,
			domain.StageCLIInstall, domain.StageLocate, domain.StageRegistration, domain.StageSaveConfig,
			domain.StageSupervise,
		}, obs.started)

		require.Len(t, reports, 3)
		assert.Equal(t, domain.BinaryLocation("/bin/nexus-network"), reports[2].Binary)
		assert.Equal(t, domain.ModeWallet, reports[2].Identity.Mode())
	})

	t.Run("Present Binary Skips Installer", func(t *testing.T) {
		s := &script{env: domain.EnvLocal, identity: walletID(t), located: []bool{true, true}}
		require.NoError(t, newOrchestrator(s, &stageLog{}).Run(ctx))
		assert.NotContains(t, s.calls, "install")
		assert.Contains(t, s.calls, "run:local")
	})

	t.Run("Installer Always Runs When Skip Disabled", func(t *testing.T) {
		s := &script{env: domain.EnvLocal, identity: walletID(t), located: []bool{true}}
		o := newOrchestrator(s, &stageLog{})
		o.SkipInstallIfPresent = false

		require.NoError(t, o.Run(ctx))
		assert.Equal(t, 1, count(s.calls, "install"))
		assert.Equal(t, 1, count(s.calls, "locate"))
	})

	t.Run("Missing Identity Stops Before Installing", func(t *testing.T) {
		s := &script{env: domain.EnvManagedCloud,
			identErr: domain.Failf(domain.StageIdentity, domain.ErrMissingIdentity, "no source")}
		err := newOrchestrator(s, &stageLog{}).Run(ctx)

		require.ErrorIs(t, err, domain.ErrMissingIdentity)
		assert.Equal(t, []string{"detect", "mode", "resolve"}, s.calls)
	})

	t.Run("Binary Not Found Is Fatal", func(t *testing.T) {
		s := &script{env: domain.EnvContainerized, identity: walletID(t)}
		obs := &stageLog{}
		err := newOrchestrator(s, obs).Run(ctx)

		require.ErrorIs(t, err, domain.ErrBinaryNotFound)
		assert.Contains(t, err.Error(), "nexus-network")
		assert.NotContains(t, s.calls, "register")
		assert.NotContains(t, s.calls, "save")
		assert.ErrorIs(t, obs.finished[domain.StageLocate], domain.ErrBinaryNotFound)
	})

	t.Run("Tolerated Failures Continue", func(t *testing.T) {
		s := &script{
			env: domain.EnvManagedCloud, identity: walletID(t), located: []bool{true, true},
			registErr: domain.NewStageError(domain.StageRegistration, domain.ErrRegistrationFailed, nil),
			saveErr:   domain.NewStageError(domain.StageSaveConfig, domain.ErrConfigSaveFailed, errors.New("read-only")),
		}
		obs := &stageLog{}
		require.NoError(t, newOrchestrator(s, obs).Run(ctx))
		assert.Contains(t, s.calls, "run:managed-cloud")
		assert.ErrorIs(t, obs.finished[domain.StageRegistration], domain.ErrRegistrationFailed)
	})

	t.Run("Fatal Error Prints Captured Stderr", func(t *testing.T) {
		s := &script{env: domain.EnvLocal, identity: walletID(t),
			installErr: domain.Failf(domain.StageCLIInstall, domain.ErrCliInstallFailed, "exit 1").
				WithStderr("curl: (6) Could not resolve host\n")}
		var stderr bytes.Buffer
		o := newOrchestrator(s, &stageLog{})
		o.Stderr = &stderr

		err := o.Run(ctx)
		require.ErrorIs(t, err, domain.ErrCliInstallFailed)
		assert.Contains(t, stderr.String(), "curl: (6) Could not resolve host")
		assert.Contains(t, stderr.String(), "cli_install")
	})

	t.Run("Plain Errors Are Classified By Stage", func(t *testing.T) {
		s := &script{env: domain.EnvLocal, identity: walletID(t), located: []bool{true, true},
			runErr: errors.New("boom")}
		err := newOrchestrator(s, &stageLog{}).Run(ctx)

		var se *domain.StageError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, domain.StageLaunch, se.Stage)
	})

	t.Run("Cancelled Context Interrupts", func(t *testing.T) {
		s := &script{env: domain.EnvLocal}
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		err := newOrchestrator(s, &stageLog{}).Run(cancelled)
		require.ErrorIs(t, err, domain.ErrInterrupted)
		assert.Empty(t, s.calls)
	})
}

func count(calls []string, name string) int {
	n := 0
	for _, c := range calls {
		if c == name {
			n++
		}
	}
	return n
}
