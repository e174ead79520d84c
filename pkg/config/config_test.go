package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/otelfleet/pkghooks/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hooks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())

	p := cfg.Paths
	assert.Equal(t, "include_dir /etc/otelfleet/mosquitto-conf", p.OverrideDirective())
	assert.Equal(t, "include_dir /etc/mosquitto/conf.d", p.AnchorDirective())
	assert.Equal(t, "/etc/mosquitto/mosquitto.conf", p.BrokerConfigFile())
	assert.Equal(t, "/var/lib/otelfleet/state.kv", p.StateStorePath())
	assert.Equal(t, "/etc/otelfleet/otelfleet.toml", p.AgentConfigPath())
	assert.Equal(t, []string{
		"/run/lock/otelfleet-mapper-c8y.lock",
		"/run/lock/otelfleet-mapper-az.lock",
		"/run/lock/otelfleet-mapper-aws.lock",
		"/run/lock/otelfleet-mapper-collectd.lock",
	}, p.LockPaths())
}

func TestRootRelocatesDiskPathsOnly(t *testing.T) {
	p := config.Default().Paths
	p.Root = "/tmp/stage"

	assert.Equal(t, "/tmp/stage/etc/mosquitto/mosquitto.conf", p.BrokerConfigFile())
	assert.Equal(t, "/tmp/stage/etc/otelfleet/operations", p.OperationsPath())
	assert.Equal(t, "/tmp/stage/run/lock/otelfleet-mapper-az.lock", p.LockPaths()[1])

	// the broker reads the directive at runtime, it must not mention the staging root
	assert.Equal(t, "include_dir /etc/otelfleet/mosquitto-conf", p.OverrideDirective())
}

func TestDirectiveIgnoresTrailingSlash(t *testing.T) {
	p := config.Default().Paths
	p.OverrideDir = "/etc/otelfleet/mosquitto-conf/"
	assert.Equal(t, "include_dir /etc/otelfleet/mosquitto-conf", p.OverrideDirective())
}

func TestLoadMissingDefaultFile(t *testing.T) {
	t.Setenv(config.EnvConfig, "")
	t.Setenv(config.EnvRoot, "")
	t.Setenv(config.EnvLogLevel, "")

	// DefaultFile is absent on a test host, so Load falls back to defaults
	if _, err := os.Stat(config.DefaultFile); err == nil {
		t.Skip("hook config installed on this host")
	}
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default().Paths.BrokerConfig, cfg.Paths.BrokerConfig)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadOverlaysFile(t *testing.T) {
	path := writeFile(t, `
log_level: debug
paths:
  broker_config: /opt/mosquitto/mosquitto.conf
  lock_files:
    - a.lock
`)
	t.Setenv(config.EnvRoot, "")
	t.Setenv(config.EnvLogLevel, "")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/opt/mosquitto/mosquitto.conf", cfg.Paths.BrokerConfig)
	assert.Equal(t, []string{"a.lock"}, cfg.Paths.LockFiles)
	// untouched fields keep their defaults
	assert.Equal(t, "/etc/mosquitto/conf.d", cfg.Paths.BrokerDropInDir)
}

func TestLoadEnvironment(t *testing.T) {
	path := writeFile(t, "")
	root := t.TempDir()
	t.Setenv(config.EnvConfig, path)
	t.Setenv(config.EnvRoot, root)
	t.Setenv(config.EnvLogLevel, "trace")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, root, cfg.Paths.Root)
	assert.Equal(t, "trace", cfg.LogLevel)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeFile(t, "paths:\n  broker_conf: /etc/mosquitto.conf\n")
	_, err := config.Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *config.Paths)
	}{
		{name: "empty broker config", mutate: func(p *config.Paths) { p.BrokerConfig = "" }},
		{name: "relative state dir", mutate: func(p *config.Paths) { p.StateDir = "var/lib/otelfleet" }},
		{name: "relative root", mutate: func(p *config.Paths) { p.Root = "stage" }},
		{name: "operations at root", mutate: func(p *config.Paths) { p.OperationsDir = "/" }},
		{name: "no lock files", mutate: func(p *config.Paths) { p.LockFiles = nil }},
		{name: "lock file with separator", mutate: func(p *config.Paths) { p.LockFiles = []string{"../etc/passwd"} }},
		{name: "dot lock file", mutate: func(p *config.Paths) { p.LockFiles = []string{".."} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg.Paths)
			assert.Error(t, cfg.Validate())
		})
	}
}
