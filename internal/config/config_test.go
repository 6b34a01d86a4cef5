package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/nexus-bootstrap/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(values map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestLoad_Defaults(t *testing.T) {
	home := t.TempDir()
	cfg, err := config.Load("", envMap(map[string]string{"NEXUS_BOOTSTRAP_HOME": home}))
	require.NoError(t, err)

	assert.Equal(t, home, cfg.Home)
	assert.Equal(t, filepath.Join(home, ".nexus"), cfg.StateDir)
	assert.Equal(t, filepath.Join(home, ".nexus", "config.txt"), cfg.NodeConfigPath)
	assert.Equal(t, filepath.Join(home, ".cargo", "bin"), cfg.ToolchainBinDir)
	assert.Equal(t, filepath.Join(home, ".nexus", "bin", "nexus-network"), cfg.Candidates[0])
	assert.Len(t, cfg.Candidates, 5)
	assert.Equal(t, 300*time.Second, cfg.CLIInstallTimeout)
	assert.Equal(t, 60*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, "Y\n", cfg.Confirmation)
	assert.Equal(t, []string{"RAILWAY_PROJECT_ID", "RAILWAY_SERVICE_ID", "RAILWAY_ENVIRONMENT"}, cfg.CloudVars)
	assert.True(t, cfg.SkipCLIInstallIfPresent)
}

func TestLoad_FileThenEnv(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(t.TempDir(), "bootstrap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
heartbeat_interval: 5s
packages: [git, curl]
cloud_vars: [FLY_APP_NAME]
metrics_addr: ":2112"
log_level: debug
`), 0o644))

	cfg, err := config.Load(path, envMap(map[string]string{
		"NEXUS_BOOTSTRAP_HOME":                home,
		"NEXUS_BOOTSTRAP_LOG_LEVEL":           "warn",
		"NEXUS_BOOTSTRAP_CANDIDATES":          "/opt/a,/opt/b",
		"NEXUS_BOOTSTRAP_CLI_INSTALL_TIMEOUT": "90s",
		"NEXUS_BOOTSTRAP_JOURNAL_DISABLED":    "true",
	}))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, []string{"git", "curl"}, cfg.Packages)
	assert.Equal(t, []string{"FLY_APP_NAME"}, cfg.CloudVars)
	assert.Equal(t, ":2112", cfg.MetricsAddr)
	assert.Equal(t, "warn", cfg.LogLevel, "environment wins over the file")
	assert.Equal(t, []string{"/opt/a", "/opt/b"}, cfg.Candidates)
	assert.Equal(t, 90*time.Second, cfg.CLIInstallTimeout)
	assert.True(t, cfg.JournalDisabled)
}

func TestLoad_ListsReplaceEarlierLayers(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(t.TempDir(), "bootstrap.yaml")
	require.NoError(t, os.WriteFile(path, []byte("packages: [git, curl, make]\n"), 0o644))

	t.Run("Env Shorter Than File", func(t *testing.T) {
		cfg, err := config.Load(path, envMap(map[string]string{
			"NEXUS_BOOTSTRAP_HOME":     home,
			"NEXUS_BOOTSTRAP_PACKAGES": "git",
		}))
		require.NoError(t, err)
		assert.Equal(t, []string{"git"}, cfg.Packages)
	})

	t.Run("Env Shorter Than Defaults", func(t *testing.T) {
		cfg, err := config.Load("", envMap(map[string]string{
			"NEXUS_BOOTSTRAP_HOME":       home,
			"NEXUS_BOOTSTRAP_CLOUD_VARS": "FLY_APP_NAME",
			"NEXUS_BOOTSTRAP_PACKAGES":   "git",
		}))
		require.NoError(t, err)
		assert.Equal(t, []string{"FLY_APP_NAME"}, cfg.CloudVars)
		assert.Equal(t, []string{"git"}, cfg.Packages)
	})
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("grace_period: 3s\n"), 0o644))

	cfg, err := config.Load("", envMap(map[string]string{
		"NEXUS_BOOTSTRAP_HOME":   t.TempDir(),
		"NEXUS_BOOTSTRAP_CONFIG": path,
	}))
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.GracePeriod)
}

func TestLoad_DefaultFileInStateDir(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".nexus"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".nexus", "bootstrap.yaml"), []byte("binary_name: nexus-dev\n"), 0o644))

	cfg, err := config.Load("", envMap(map[string]string{"NEXUS_BOOTSTRAP_HOME": home}))
	require.NoError(t, err)
	assert.Equal(t, "nexus-dev", cfg.BinaryName)
	assert.Equal(t, filepath.Join(home, ".nexus", "bin", "nexus-dev"), cfg.Candidates[0])
}

func TestLoad_Errors(t *testing.T) {
	home := t.TempDir()

	t.Run("Explicit Missing File", func(t *testing.T) {
		_, err := config.Load(filepath.Join(home, "nope.yaml"), envMap(map[string]string{"NEXUS_BOOTSTRAP_HOME": home}))
		assert.Error(t, err)
	})

	t.Run("Unknown Key", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("no_such_key: 1\n"), 0o644))
		_, err := config.Load(path, envMap(map[string]string{"NEXUS_BOOTSTRAP_HOME": home}))
		assert.Error(t, err)
	})

	t.Run("Invalid Value", func(t *testing.T) {
		_, err := config.Load("", envMap(map[string]string{
			"NEXUS_BOOTSTRAP_HOME":     home,
			"NEXUS_BOOTSTRAP_USE_SUDO": "sometimes",
		}))
		assert.ErrorContains(t, err, "use_sudo")
	})

	t.Run("Bad Duration", func(t *testing.T) {
		_, err := config.Load("", envMap(map[string]string{
			"NEXUS_BOOTSTRAP_HOME":               home,
			"NEXUS_BOOTSTRAP_HEARTBEAT_INTERVAL": "soon",
		}))
		assert.Error(t, err)
	})
}

func TestKeys(t *testing.T) {
	keys := config.Keys()
	assert.Contains(t, keys, "heartbeat_interval")
	assert.Contains(t, keys, "redis_url")
	assert.Equal(t, "home", keys[0])
}

func TestSettings_Map(t *testing.T) {
	m := config.Default().Map()
	assert.Equal(t, "5m0s", m["cli_install_timeout"])
	assert.Equal(t, "WALLET_ADDRESS", m["wallet_env"])
	assert.Len(t, m, len(config.Keys()))
}
