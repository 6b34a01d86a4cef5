package domain_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/aretw0/nexus-bootstrap/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidWallet(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"all zeros", "0x" + strings.Repeat("0", 40), true},
		{"mixed case hex", "0xdb182b44AFa6Bee13f4038cfE27162D6b9414969", true},
		{"non hex", "0xZZ" + strings.Repeat("0", 38), false},
		{"too short", "0x123", false},
		{"too long", "0x" + strings.Repeat("a", 41), false},
		{"missing prefix", "00" + strings.Repeat("a", 40), false},
		{"uppercase prefix", "0X" + strings.Repeat("a", 40), false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.IsValidWallet(tt.input))
		})
	}
}

func TestValidateWallet_Reasons(t *testing.T) {
	err := domain.ValidateWallet("0x123")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidIdentityFormat)
	assert.Contains(t, err.Error(), "got 5")

	err = domain.ValidateWallet("1x" + strings.Repeat("0", 40))
	assert.Contains(t, err.Error(), "must start with")

	err = domain.ValidateWallet("0x" + strings.Repeat("0", 39) + "g")
	assert.Contains(t, err.Error(), "position 41")
}

func TestIdentity(t *testing.T) {
	w, err := domain.NewWallet("0xdb182b44AFa6Bee13f4038cfE27162D6b9414969")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeWallet, w.Mode())
	assert.Equal(t, "0xdb182b44...414969", w.Masked())
	assert.False(t, w.IsZero())

	_, err = domain.NewWallet("0x123")
	assert.ErrorIs(t, err, domain.ErrInvalidIdentityFormat)

	n, err := domain.NewNodeID("node-42")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeNodeID, n.Mode())
	assert.Equal(t, "node-42", n.Masked())

	_, err = domain.NewNodeID("")
	assert.ErrorIs(t, err, domain.ErrInvalidIdentityFormat)

	assert.True(t, domain.Identity{}.IsZero())
}

func TestParseMode(t *testing.T) {
	m, err := domain.ParseMode(" 1 ")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeWallet, m)

	m, err = domain.ParseMode("node_id")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeNodeID, m)

	_, err = domain.ParseMode("3")
	assert.Error(t, err)
}

func TestEnvironment(t *testing.T) {
	assert.Equal(t, "managed-cloud", domain.EnvManagedCloud.String())
	assert.False(t, domain.EnvLocal.Production())
	assert.True(t, domain.EnvContainerized.Production())
	assert.True(t, domain.EnvManagedCloud.Production())
}

func TestStageError(t *testing.T) {
	cause := errors.New("exit status 1")
	err := domain.NewStageError(domain.StageCLIInstall, domain.ErrCliInstallFailed, cause).WithStderr("boom")

	assert.ErrorIs(t, err, domain.ErrCliInstallFailed)
	assert.ErrorIs(t, err, domain.ErrInstallFailed)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "cli_install: cli install failed: exit status 1", err.Error())
	assert.Equal(t, "boom", err.Stderr)

	var se *domain.StageError
	require.True(t, errors.As(error(err), &se))
	assert.Equal(t, domain.StageCLIInstall, se.Stage)

	wrapped := domain.NewStageError(domain.StageIdentity, domain.ErrInvalidIdentityFormat, domain.ValidateWallet("0x1"))
	assert.NotContains(t, wrapped.Error(), "invalid identity format: invalid identity format")

	assert.True(t, domain.IsFatal(domain.NewStageError(domain.StageLocate, domain.ErrBinaryNotFound, nil)))
	assert.False(t, domain.IsFatal(domain.NewStageError(domain.StageRegistration, domain.ErrRegistrationFailed, nil)))
	assert.False(t, domain.IsFatal(nil))
	assert.False(t, domain.IsFatal(domain.NewStageError(domain.StageSaveConfig, domain.ErrConfigSaveFailed, nil)))
}

func TestCommand_Display(t *testing.T) {
	assert.Equal(t, "nexus-network register-node", domain.Command{Name: "nexus-network", Args: []string{"register-node"}}.Display())
	assert.Equal(t, "curl x | sh", domain.Command{Name: "ignored", Script: "curl x | sh"}.Display())
	assert.True(t, domain.CommandOutcome{}.Success())
	assert.False(t, domain.CommandOutcome{TimedOut: true}.Success())
}
