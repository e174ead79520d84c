package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otelfleet/pkghooks/pkg/config"
	"github.com/otelfleet/pkghooks/pkg/hookerr"
)

const brokerConf = `pid_file /run/mosquitto/mosquitto.pid
persistence true
persistence_location /var/lib/mosquitto/
log_dest file /var/log/mosquitto/mosquitto.log
include_dir /etc/mosquitto/conf.d
`

func stage(t *testing.T, conf string) config.Paths {
	t.Helper()
	root := t.TempDir()
	cfgFile := filepath.Join(t.TempDir(), "hooks.yaml")
	require.NoError(t, os.WriteFile(cfgFile, nil, 0o644))
	t.Setenv(config.EnvConfig, cfgFile)
	t.Setenv(config.EnvRoot, root)

	paths := config.Default().Paths
	paths.Root = root
	require.NoError(t, os.MkdirAll(filepath.Dir(paths.BrokerConfigFile()), 0o755))
	require.NoError(t, os.WriteFile(paths.BrokerConfigFile(), []byte(conf), 0o644))
	return paths
}

func readConf(t *testing.T, paths config.Paths) string {
	t.Helper()
	data, err := os.ReadFile(paths.BrokerConfigFile())
	require.NoError(t, err)
	return string(data)
}

func TestInstall(t *testing.T) {
	paths := stage(t, brokerConf)

	require.Equal(t, hookerr.ExitOK, run(nil, &bytes.Buffer{}))
	assert.Equal(t, `pid_file /run/mosquitto/mosquitto.pid
persistence true
persistence_location /var/lib/mosquitto/
log_dest file /var/log/mosquitto/mosquitto.log
include_dir /etc/otelfleet/mosquitto-conf
include_dir /etc/mosquitto/conf.d
`, readConf(t, paths))
	assert.FileExists(t, paths.AgentConfigPath())
	assert.DirExists(t, paths.StateStorePath())

	require.Equal(t, hookerr.ExitOK, run(nil, &bytes.Buffer{}))
	assert.Equal(t, 1, bytes.Count([]byte(readConf(t, paths)), []byte("include_dir /etc/otelfleet/mosquitto-conf")))
}

func TestInstallMissingAnchor(t *testing.T) {
	conf := "pid_file /run/mosquitto/mosquitto.pid\n"
	paths := stage(t, conf)

	assert.Equal(t, hookerr.ExitPrecondition, run(nil, &bytes.Buffer{}))
	assert.Equal(t, conf, readConf(t, paths))
	assert.NoFileExists(t, paths.AgentConfigPath())
}

func TestInstallMissingBrokerConfig(t *testing.T) {
	paths := stage(t, brokerConf)
	require.NoError(t, os.Remove(paths.BrokerConfigFile()))

	assert.Equal(t, hookerr.ExitIO, run(nil, &bytes.Buffer{}))
}

func TestDryRun(t *testing.T) {
	paths := stage(t, brokerConf)

	assert.Equal(t, hookerr.ExitOK, run([]string{"--dry-run"}, &bytes.Buffer{}))
	assert.Equal(t, brokerConf, readConf(t, paths))
	assert.NoFileExists(t, paths.AgentConfigPath())
}

func TestPackageManagerArguments(t *testing.T) {
	paths := stage(t, brokerConf)

	assert.Equal(t, hookerr.ExitOK, run([]string{"configure", "1.0.0"}, &bytes.Buffer{}))
	assert.Contains(t, readConf(t, paths), "include_dir /etc/otelfleet/mosquitto-conf\ninclude_dir /etc/mosquitto/conf.d\n")
	assert.FileExists(t, paths.AgentConfigPath())

	assert.Equal(t, hookerr.ExitOK, run([]string{"configure"}, &bytes.Buffer{}))
}

func TestUnknownFlag(t *testing.T) {
	paths := stage(t, brokerConf)

	assert.Equal(t, hookerr.ExitUsage, run([]string{"--bogus"}, &bytes.Buffer{}))
	assert.Equal(t, brokerConf, readConf(t, paths))
}

func TestHelpAndVersion(t *testing.T) {
	var out bytes.Buffer
	assert.Equal(t, hookerr.ExitOK, run([]string{"-h"}, &out))
	assert.Contains(t, out.String(), "--dry-run")

	out.Reset()
	assert.Equal(t, hookerr.ExitOK, run([]string{"--version"}, &out))
	assert.Equal(t, "otelfleet-postinst dev\n", out.String())
}
