// Package agentstate bootstraps the agent's on-disk identity and
// configuration.
//
// Initialization is an idempotent constructor: the identity record in the
// state store is the only source of truth for "already initialized", and
// running Init again returns the existing record without writing.
package agentstate

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/cockroachdb/pebble/v2"
	"github.com/natefinch/atomic"
	"github.com/pelletier/go-toml"

	"github.com/otelfleet/pkghooks/pkg/config"
	"github.com/otelfleet/pkghooks/pkg/hookerr"
	"github.com/otelfleet/pkghooks/pkg/ident"
	"github.com/otelfleet/pkghooks/pkg/storage"
	otelpebble "github.com/otelfleet/pkghooks/pkg/storage/pebble"
	"github.com/otelfleet/pkghooks/pkg/util"
)

const (
	agentPrefix = "agent"
	identityKey = "identity"
)

var ErrNotInitialized = errors.New("agent state not initialized")

// Record is the agent identity persisted on first install.
type Record struct {
	DeviceID   string    `json:"device_id"`
	InstanceID string    `json:"instance_id"`
	Hostname   string    `json:"hostname"`
	CreatedAt  time.Time `json:"created_at"`
}

type Initializer struct {
	Logger *slog.Logger
	Paths  config.Paths

	// Hostname, Identify and Now default to the host implementations.
	Hostname func() (string, error)
	Identify func(name string) (ident.Identity, error)
	Now      func() time.Time
}

func NewInitializer(logger *slog.Logger, paths config.Paths) *Initializer {
	return &Initializer{
		Logger: logger,
		Paths:  paths,
	}
}

func (i *Initializer) logger() *slog.Logger {
	if i.Logger == nil {
		return slog.Default()
	}
	return i.Logger
}

// Init returns the agent identity, creating it and the bootstrap
// configuration when missing. created reports whether a new identity was
// minted by this call.
func (i *Initializer) Init(ctx context.Context) (rec Record, created bool, err error) {
	l := i.logger()

	for _, dir := range []string{i.Paths.ConfigDirPath(), i.Paths.StateDirPath()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return rec, false, hookerr.IO("mkdir", dir, err)
		}
	}

	storePath := i.Paths.StateStorePath()
	db, err := otelpebble.Open(storePath, nil)
	if err != nil {
		return rec, false, hookerr.IO("open", storePath, err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = hookerr.IO("close", storePath, cerr)
		}
	}()
	kv := otelpebble.NewPebbleBroker[Record](db).KeyValue(agentPrefix)

	rec, err = kv.Get(ctx, identityKey)
	switch {
	case err == nil:
		l.With("device-id", rec.DeviceID, "instance-id", rec.InstanceID).Debug("agent state already initialized")
	case errors.Is(err, storage.ErrNotFound):
		if err := ctx.Err(); err != nil {
			return rec, false, err
		}
		rec, err = i.newRecord()
		if err != nil {
			return rec, false, err
		}
		if err := kv.Put(ctx, identityKey, rec); err != nil {
			return rec, false, hookerr.IO("write", storePath, err)
		}
		created = true
		l.With("device-id", rec.DeviceID, "instance-id", rec.InstanceID).Info("initialized agent identity")
	default:
		return rec, false, hookerr.IO("read", storePath, err)
	}

	// written independently of the identity so that a run interrupted
	// between the two steps is completed by the next one
	if err := i.ensureAgentConfig(rec); err != nil {
		return rec, created, err
	}
	return rec, created, nil
}

func (i *Initializer) newRecord() (Record, error) {
	hostname := os.Hostname
	if i.Hostname != nil {
		hostname = i.Hostname
	}
	identify := func(name string) (ident.Identity, error) {
		return ident.IdFromMac(sha256.New(), name)
	}
	if i.Identify != nil {
		identify = i.Identify
	}
	now := time.Now
	if i.Now != nil {
		now = i.Now
	}

	host, err := hostname()
	if err != nil {
		return Record{}, fmt.Errorf("resolving hostname: %w", err)
	}
	id, err := identify(host)
	if err != nil {
		return Record{}, fmt.Errorf("deriving device identity: %w", err)
	}
	return Record{
		DeviceID:   id.DeviceID(),
		InstanceID: util.NewUUID(),
		Hostname:   host,
		CreatedAt:  now().UTC(),
	}, nil
}

// agentConfig is the initial otelfleet.toml. It is only written when the
// file does not exist, so operator edits survive reinstalls.
type agentConfig struct {
	Device     deviceSection     `toml:"device"`
	MQTT       mqttSection       `toml:"mqtt"`
	Operations operationsSection `toml:"operations"`
}

type deviceSection struct {
	ID         string `toml:"id"`
	InstanceID string `toml:"instance_id"`
}

type mqttSection struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

type operationsSection struct {
	Dir string `toml:"dir"`
}

func (i *Initializer) ensureAgentConfig(rec Record) error {
	path := i.Paths.AgentConfigPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return hookerr.IO("stat", path, err)
	}

	data, err := toml.Marshal(agentConfig{
		Device: deviceSection{
			ID:         rec.DeviceID,
			InstanceID: rec.InstanceID,
		},
		MQTT: mqttSection{
			Host: "localhost",
			Port: 1883,
		},
		Operations: operationsSection{
			Dir: i.Paths.OperationsDir,
		},
	})
	if err != nil {
		return fmt.Errorf("encoding agent config: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return hookerr.IO("write", path, err)
	}
	i.logger().With("file", path).Info("wrote agent configuration")
	return nil
}

// Load reads the identity record without creating anything.
func Load(ctx context.Context, paths config.Paths) (Record, error) {
	storePath := paths.StateStorePath()
	if _, err := os.Stat(storePath); errors.Is(err, fs.ErrNotExist) {
		return Record{}, ErrNotInitialized
	} else if err != nil {
		return Record{}, hookerr.IO("stat", storePath, err)
	}

	db, err := pebble.Open(storePath, &pebble.Options{ReadOnly: true})
	if err != nil {
		return Record{}, hookerr.IO("open", storePath, err)
	}
	defer db.Close()

	rec, err := otelpebble.NewPebbleBroker[Record](db).KeyValue(agentPrefix).Get(ctx, identityKey)
	if errors.Is(err, storage.ErrNotFound) {
		return Record{}, ErrNotInitialized
	}
	if err != nil {
		return Record{}, hookerr.IO("read", storePath, err)
	}
	return rec, nil
}
