package config

import (
	"github.com/BurntSushi/toml"
	"github.com/ngaut/log"
	"github.com/pingcap/errors"
)

type Config struct {
	LogLevel string `toml:"log-level"`
	Engine   Engine `toml:"engine"` // Engine options.
}

type Engine struct {
	DBPath           string `toml:"db-path"`             // Directory to store the data in. Should exist and be writable.
	ValueThreshold   int    `toml:"value-threshold"`     // If value size >= this threshold, only store value offsets in tree.
	MaxTableSize     int64  `toml:"max-table-size"`      // Each table is at most this size.
	NumMemTables     int    `toml:"num-mem-tables"`      // Maximum number of tables to keep in memory, before stalling.
	NumL0Tables      int    `toml:"num-L0-tables"`       // Maximum number of Level 0 tables before we start compacting.
	NumL0TablesStall int    `toml:"num-L0-tables-stall"` // Maximum number of Level 0 tables before stalling.
	VlogFileSize     int64  `toml:"vlog-file-size"`      // Value log file size.
	SyncWrite        bool   `toml:"sync-write"`          // Sync all writes to disk.
	NumCompactors    int    `toml:"num-compactors"`
}

const MB = 1024 * 1024

var DefaultConf = Config{
	LogLevel: "info",
	Engine: Engine{
		DBPath:           "/tmp/cloudkv",
		ValueThreshold:   256,
		MaxTableSize:     64 * MB,
		NumMemTables:     3,
		NumL0Tables:      4,
		NumL0TablesStall: 8,
		VlogFileSize:     256 * MB,
		SyncWrite:        true,
		NumCompactors:    1,
	},
}

// Load reads the config file at path on top of the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (*Config, error) {
	conf := DefaultConf
	if path != "" {
		if _, err := toml.DecodeFile(path, &conf); err != nil {
			return nil, errors.Trace(err)
		}
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

func (c *Config) Validate() error {
	if c.Engine.DBPath == "" {
		return errors.New("engine db-path must not be empty")
	}
	if c.Engine.NumMemTables == 0 {
		log.Warnf("num-mem-tables is 0, the engine will stall on every write")
	}
	return nil
}
