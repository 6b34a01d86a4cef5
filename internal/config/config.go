// Package config loads the bootstrapper settings.
//
// Settings come from three layers, later ones winning: built-in defaults, an optional
// YAML file, and NEXUS_BOOTSTRAP_* environment variables. Paths left empty are derived
// from Home once all layers are applied.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/aretw0/nexus-bootstrap/pkg/locator"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "NEXUS_BOOTSTRAP_"
	// EnvConfigPath names the YAML file to load.
	EnvConfigPath = EnvPrefix + "CONFIG"
)

// Settings is the full bootstrapper configuration.
type Settings struct {
	Home     string `mapstructure:"home"`
	StateDir string `mapstructure:"state_dir"`

	// Identity sources.
	WalletEnv string `mapstructure:"wallet_env"`
	NodeIDEnv string `mapstructure:"node_id_env"`

	// Environment detection signals.
	CloudVars       []string `mapstructure:"cloud_vars"`
	ContainerMarker string   `mapstructure:"container_marker"`

	// OS packages, installed best-effort.
	PackageManager string   `mapstructure:"package_manager"`
	Packages       []string `mapstructure:"packages"`
	UseSudo        string   `mapstructure:"use_sudo"` // auto, always, never

	// Toolchain.
	ToolchainProbe  string `mapstructure:"toolchain_probe"`
	ToolchainScript string `mapstructure:"toolchain_script"`
	ToolchainBinDir string `mapstructure:"toolchain_bin_dir"`

	// CLI installer.
	CLIInstallScript        string        `mapstructure:"cli_install_script"`
	CLIInstallTimeout       time.Duration `mapstructure:"cli_install_timeout"`
	SkipCLIInstallIfPresent bool          `mapstructure:"skip_cli_install_if_present"`
	Confirmation            string        `mapstructure:"confirmation"`

	// Binary location.
	BinaryName string   `mapstructure:"binary_name"`
	BinDir     string   `mapstructure:"bin_dir"`
	Candidates []string `mapstructure:"candidates"`

	// Persisted node configuration.
	NodeConfigPath string `mapstructure:"node_config_path"`

	// Supervision.
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	GracePeriod       time.Duration `mapstructure:"grace_period"`

	// Ambient.
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"` // text, json, or empty for auto

	// Optional integrations.
	MetricsAddr         string        `mapstructure:"metrics_addr"`
	RedisURL            string        `mapstructure:"redis_url"`
	RedisPrefix         string        `mapstructure:"redis_prefix"`
	RegistrationLockTTL time.Duration `mapstructure:"registration_lock_ttl"`
	JournalPath         string        `mapstructure:"journal_path"`
	JournalDisabled     bool          `mapstructure:"journal_disabled"`
}

// Default returns the built-in settings. Home-relative paths are filled in by Load.
func Default() *Settings {
	return &Settings{
		WalletEnv:       "WALLET_ADDRESS",
		NodeIDEnv:       "NODE_ID",
		CloudVars:       []string{"RAILWAY_PROJECT_ID", "RAILWAY_SERVICE_ID", "RAILWAY_ENVIRONMENT"},
		ContainerMarker: "/.dockerenv",
		PackageManager:  "apt-get",
		Packages: []string{
			"build-essential", "pkg-config", "libssl-dev", "git", "curl", "protobuf-compiler",
		},
		UseSudo:                 "auto",
		ToolchainProbe:          "rustc",
		ToolchainScript:         "curl --proto '=https' --tlsv1.2 -sSf https://sh.rustup.rs | sh -s -- -y",
		CLIInstallScript:        "curl https://cli.nexus.xyz/ | sh",
		CLIInstallTimeout:       300 * time.Second,
		SkipCLIInstallIfPresent: true,
		Confirmation:            "Y\n",
		BinaryName:              "nexus-network",
		HeartbeatInterval:       60 * time.Second,
		GracePeriod:             10 * time.Second,
		LogLevel:                "info",
		RedisPrefix:             "nexus:bootstrap:",
		RegistrationLockTTL:     2 * time.Minute,
	}
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load builds Settings from defaults, the YAML file at path and the environment.
// An empty path falls back to $NEXUS_BOOTSTRAP_CONFIG, then to <state_dir>/bootstrap.yaml.
// A missing file is not an error.
func Load(path string, lookup LookupFunc) (*Settings, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg := Default()

	if path == "" {
		path, _ = lookup(EnvConfigPath)
	}
	explicit := path != ""

	overrides := envOverrides(lookup)
	if home, ok := overrides["home"].(string); ok && home != "" {
		cfg.Home = home
	}
	if cfg.Home == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		cfg.Home = home
	}
	if !explicit {
		stateDir, _ := overrides["state_dir"].(string)
		if stateDir == "" {
			stateDir = filepath.Join(cfg.Home, ".nexus")
		}
		path = filepath.Join(stateDir, "bootstrap.yaml")
	}

	fileValues, err := readFile(path)
	if err != nil {
		if !os.IsNotExist(err) || explicit {
			return nil, err
		}
	}

	for _, layer := range []map[string]any{fileValues, overrides} {
		if len(layer) == 0 {
			continue
		}
		if err := decode(layer, cfg); err != nil {
			return nil, err
		}
	}

	cfg.finalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read bootstrap config: %w", err)
	}
	values := map[string]any{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return values, nil
}

func decode(values map[string]any, cfg *Settings) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		// Lists from a later layer replace the earlier list instead of overwriting its prefix.
		ZeroFields: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(values); err != nil {
		return fmt.Errorf("invalid bootstrap config: %w", err)
	}
	return nil
}

// envOverrides collects NEXUS_BOOTSTRAP_<KEY> for every known key.
func envOverrides(lookup LookupFunc) map[string]any {
	out := map[string]any{}
	for _, key := range Keys() {
		if v, ok := lookup(EnvPrefix + strings.ToUpper(key)); ok {
			out[key] = v
		}
	}
	return out
}

// Keys lists every configuration key in declaration order.
func Keys() []string {
	t := reflect.TypeOf(Settings{})
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if tag := t.Field(i).Tag.Get("mapstructure"); tag != "" {
			keys = append(keys, tag)
		}
	}
	return keys
}

func (s *Settings) finalize() {
	if s.StateDir == "" {
		s.StateDir = filepath.Join(s.Home, ".nexus")
	}
	if s.ToolchainBinDir == "" {
		s.ToolchainBinDir = filepath.Join(s.Home, ".cargo", "bin")
	}
	if s.BinDir == "" {
		s.BinDir = filepath.Join(s.Home, ".nexus", "bin")
	}
	if len(s.Candidates) == 0 {
		s.Candidates = locator.DefaultCandidates(s.Home, s.BinaryName)
	}
	if s.NodeConfigPath == "" {
		s.NodeConfigPath = filepath.Join(s.StateDir, "config.txt")
	}
	if s.JournalPath == "" {
		s.JournalPath = filepath.Join(s.StateDir, "bootstrap.db")
	}
}

// Validate rejects settings the bootstrapper cannot run with.
func (s *Settings) Validate() error {
	switch {
	case s.BinaryName == "":
		return fmt.Errorf("binary_name cannot be empty")
	case s.CLIInstallTimeout <= 0:
		return fmt.Errorf("cli_install_timeout must be positive, got %s", s.CLIInstallTimeout)
	case s.HeartbeatInterval <= 0:
		return fmt.Errorf("heartbeat_interval must be positive, got %s", s.HeartbeatInterval)
	case s.GracePeriod < 0:
		return fmt.Errorf("grace_period cannot be negative")
	}
	switch s.UseSudo {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("use_sudo must be auto, always or never, got %q", s.UseSudo)
	}
	switch s.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", s.LogFormat)
	}
	return nil
}

// Map returns the settings keyed by their configuration names, durations rendered as strings.
func (s *Settings) Map() map[string]any {
	out := map[string]any{}
	v := reflect.ValueOf(*s)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("mapstructure")
		if tag == "" {
			continue
		}
		val := v.Field(i).Interface()
		if d, ok := val.(time.Duration); ok {
			val = d.String()
		}
		out[tag] = val
	}
	return out
}
