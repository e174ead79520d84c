// Package config resolves the well-known host paths the lifecycle hooks
// operate on.
//
// Defaults match a stock Debian mosquitto layout. They can be overridden
// by an optional YAML file, and every path can be relocated under a
// staging root (OTELFLEET_HOOKS_ROOT) without changing the directives
// written into the broker configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

const (
	DefaultFile = "/etc/otelfleet/hooks.yaml"

	EnvConfig   = "OTELFLEET_HOOKS_CONFIG"
	EnvRoot     = "OTELFLEET_HOOKS_ROOT"
	EnvLogLevel = "OTELFLEET_HOOKS_LOG_LEVEL"

	includeDirKeyword = "include_dir"
	stateStoreName    = "state.kv"
	agentConfigName   = "otelfleet.toml"
)

type Config struct {
	LogLevel string `yaml:"log_level"`
	Paths    Paths  `yaml:"paths"`
}

// Paths holds host paths as they are seen by the broker and the agent.
// Filesystem access goes through the accessor methods, which apply Root.
type Paths struct {
	// Root is prepended to every path touched on disk. Empty means "/".
	Root string `yaml:"root"`

	// BrokerConfig is the mosquitto root configuration file.
	BrokerConfig string `yaml:"broker_config"`
	// BrokerDropInDir is the broker's own include_dir, used as the insertion anchor.
	BrokerDropInDir string `yaml:"broker_drop_in_dir"`
	// OverrideDir holds the agent's global mosquitto settings.
	OverrideDir string `yaml:"override_dir"`

	ConfigDir     string   `yaml:"config_dir"`
	OperationsDir string   `yaml:"operations_dir"`
	StateDir      string   `yaml:"state_dir"`
	LockDir       string   `yaml:"lock_dir"`
	LockFiles     []string `yaml:"lock_files"`
}

func Default() *Config {
	return &Config{
		LogLevel: "info",
		Paths: Paths{
			BrokerConfig:    "/etc/mosquitto/mosquitto.conf",
			BrokerDropInDir: "/etc/mosquitto/conf.d",
			OverrideDir:     "/etc/otelfleet/mosquitto-conf",
			ConfigDir:       "/etc/otelfleet",
			OperationsDir:   "/etc/otelfleet/operations",
			StateDir:        "/var/lib/otelfleet",
			LockDir:         "/run/lock",
			LockFiles: []string{
				"otelfleet-mapper-c8y.lock",
				"otelfleet-mapper-az.lock",
				"otelfleet-mapper-aws.lock",
				"otelfleet-mapper-collectd.lock",
			},
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// the environment.
//
// file is the path given on the command line; when empty the path from
// EnvConfig is used, then DefaultFile. Only an explicitly requested file
// must exist.
func Load(file string) (*Config, error) {
	cfg := Default()

	explicit := true
	if file == "" {
		file = os.Getenv(EnvConfig)
	}
	if file == "" {
		file = DefaultFile
		explicit = false
	}

	data, err := os.ReadFile(file)
	switch {
	case err == nil:
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", file, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("reading hook config: %w", err)
	}

	if root, ok := os.LookupEnv(EnvRoot); ok {
		cfg.Paths.Root = root
	}
	if lvl := os.Getenv(EnvLogLevel); lvl != "" {
		cfg.LogLevel = lvl
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) Validate() error {
	p := c.Paths
	required := []lo.Tuple2[string, string]{
		lo.T2("broker_config", p.BrokerConfig),
		lo.T2("broker_drop_in_dir", p.BrokerDropInDir),
		lo.T2("override_dir", p.OverrideDir),
		lo.T2("config_dir", p.ConfigDir),
		lo.T2("operations_dir", p.OperationsDir),
		lo.T2("state_dir", p.StateDir),
		lo.T2("lock_dir", p.LockDir),
	}
	for _, field := range required {
		name, v := field.Unpack()
		if v == "" {
			return fmt.Errorf("paths.%s must be set", name)
		}
		if !filepath.IsAbs(v) {
			return fmt.Errorf("paths.%s must be absolute, got %q", name, v)
		}
	}
	if p.Root != "" && !filepath.IsAbs(p.Root) {
		return fmt.Errorf("paths.root must be absolute, got %q", p.Root)
	}
	if filepath.Clean(p.OperationsDir) == "/" {
		return errors.New("paths.operations_dir must not be the filesystem root")
	}
	if len(p.LockFiles) == 0 {
		return errors.New("paths.lock_files must list at least one lock file")
	}
	for _, name := range p.LockFiles {
		if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
			return fmt.Errorf("paths.lock_files entry %q must be a plain file name", name)
		}
	}
	return nil
}

func (p Paths) onDisk(path string) string {
	if p.Root == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(p.Root, path)
}

// OverrideDirective is the line that makes the broker load the agent's
// override directory.
func (p Paths) OverrideDirective() string {
	return includeDir(p.OverrideDir)
}

// AnchorDirective is the broker's own drop-in include line.
func (p Paths) AnchorDirective() string {
	return includeDir(p.BrokerDropInDir)
}

func includeDir(dir string) string {
	return includeDirKeyword + " " + strings.TrimRight(dir, "/")
}

func (p Paths) BrokerConfigFile() string { return p.onDisk(p.BrokerConfig) }
func (p Paths) OverrideDirPath() string  { return p.onDisk(p.OverrideDir) }
func (p Paths) ConfigDirPath() string    { return p.onDisk(p.ConfigDir) }
func (p Paths) OperationsPath() string   { return p.onDisk(p.OperationsDir) }
func (p Paths) StateDirPath() string     { return p.onDisk(p.StateDir) }

func (p Paths) StateStorePath() string {
	return filepath.Join(p.StateDirPath(), stateStoreName)
}

func (p Paths) AgentConfigPath() string {
	return filepath.Join(p.ConfigDirPath(), agentConfigName)
}

// LockPaths lists the on-disk path of every known mapper lock file.
func (p Paths) LockPaths() []string {
	dir := p.onDisk(p.LockDir)
	return lo.Map(p.LockFiles, func(name string, _ int) string {
		return filepath.Join(dir, name)
	})
}
