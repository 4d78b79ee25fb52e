// Package config loads and validates the node's TOML configuration file.
// Unlike most tooling configs, an unrecognized key is a hard error: a typo
// in a config file should never silently fall back to a default.
package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// Upstream configures the external block source (the network client is
// explicitly out of scope for the engine; these values are only carried
// through to whatever process wires one up).
type Upstream struct {
	PeerAddress  string `toml:"peer_address"`
	NetworkMagic uint32 `toml:"network_magic"`
}

// StorageState configures the state store.
type StorageState struct {
	MaxHistory     uint64 `toml:"max_history"`
	Backend        string `toml:"backend"` // "redb" or "fjall"
	CacheMB        int    `toml:"cache"`
	FlushOnCommit  bool   `toml:"flush_on_commit"`
}

// StorageWal configures the write-ahead log.
type StorageWal struct {
	MaxHistory uint64 `toml:"max_history"`
}

// StorageArchive configures the archive store.
type StorageArchive struct {
	MaxHistory uint64 `toml:"max_history"`
}

// Storage groups all storage.* options.
type Storage struct {
	Path    string         `toml:"path"`
	State   StorageState   `toml:"state"`
	Wal     StorageWal     `toml:"wal"`
	Archive StorageArchive `toml:"archive"`
}

// Genesis locates the era genesis files.
type Genesis struct {
	ByronPath   string `toml:"byron_path"`
	ShelleyPath string `toml:"shelley_path"`
	AlonzoPath  string `toml:"alonzo_path"`
	ConwayPath  string `toml:"conway_path"`
}

// ChainTrack controls which entity/log kinds are persisted by chain logic.
type ChainTrack struct {
	Accounts  bool `toml:"accounts"`
	Pools     bool `toml:"pools"`
	DReps     bool `toml:"dreps"`
	Proposals bool `toml:"proposals"`
	Metadata  bool `toml:"metadata"`
}

// Chain groups chain.* options.
type Chain struct {
	StopEpoch uint64     `toml:"stop_epoch"`
	Track     ChainTrack `toml:"track"`
}

// Config is the fully decoded configuration surface recognized by the
// engine.
type Config struct {
	Upstream Upstream `toml:"upstream"`
	Storage  Storage  `toml:"storage"`
	Genesis  Genesis  `toml:"genesis"`
	Chain    Chain    `toml:"chain"`
}

// Default returns the configuration used when no file is present: ephemeral
// in-memory storage, no upstream, no stop epoch.
func Default() Config {
	return Config{
		Storage: Storage{
			State: StorageState{Backend: "redb"},
		},
	}
}

// recognizedKeys enumerates every dotted key path the engine understands.
// Load rejects any key in the file that isn't a prefix of, or equal to, one
// of these.
var recognizedKeys = []string{
	"upstream.peer_address",
	"upstream.network_magic",
	"storage.path",
	"storage.wal.max_history",
	"storage.state.max_history",
	"storage.state.backend",
	"storage.state.cache",
	"storage.state.flush_on_commit",
	"storage.archive.max_history",
	"genesis.byron_path",
	"genesis.shelley_path",
	"genesis.alonzo_path",
	"genesis.conway_path",
	"chain.stop_epoch",
	"chain.track.accounts",
	"chain.track.pools",
	"chain.track.dreps",
	"chain.track.proposals",
	"chain.track.metadata",
}

// Load parses a TOML file at path into a Config, failing on any key not
// named in recognizedKeys.
func Load(path string) (Config, error) {
	tree, err := toml.LoadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config: parse %s", path)
	}
	if err := checkUnknownKeys(tree); err != nil {
		return Config{}, err
	}
	cfg := Default()
	if err := tree.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrapf(err, "config: decode %s", path)
	}
	return cfg, nil
}

func checkUnknownKeys(tree *toml.Tree) error {
	leaves := collectLeafKeys(tree, nil)
	recognized := make(map[string]bool, len(recognizedKeys))
	for _, k := range recognizedKeys {
		recognized[k] = true
	}
	var unknown []string
	for _, leaf := range leaves {
		if !recognized[leaf] {
			unknown = append(unknown, leaf)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("config: unrecognized option(s): %s", strings.Join(unknown, ", "))
	}
	return nil
}

func collectLeafKeys(tree *toml.Tree, prefix []string) []string {
	var out []string
	for _, k := range tree.Keys() {
		path := append(append([]string{}, prefix...), k)
		v := tree.Get(k)
		if sub, ok := v.(*toml.Tree); ok {
			out = append(out, collectLeafKeys(sub, path)...)
			continue
		}
		out = append(out, strings.Join(path, "."))
	}
	return out
}
