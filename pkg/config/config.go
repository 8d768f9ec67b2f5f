// Package config loads the node configuration for the ledger core: node
// store location, UNL/validator list, peer limits, default fees, and the
// amendment feature set (spec.md §6). The loader follows the teacher's
// layered viper setup: a base "default" file merged with an optional
// environment-specific overlay, plus a .env file for local secrets.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"concordd/pkg/errs"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config is the unified configuration for a ledger-core node. Field names
// mirror the canonical configuration keys named in spec.md §6.
type Config struct {
	Node struct {
		DatabasePath string `mapstructure:"database_path" json:"database_path"`
		NodeDBType   string `mapstructure:"node_db_type" json:"node_db_type"`
		NodeDBPath   string `mapstructure:"node_db_path" json:"node_db_path"`
		OnlineDelete int    `mapstructure:"online_delete" json:"online_delete"`
	} `mapstructure:"node" json:"node"`

	Peers struct {
		Max      int  `mapstructure:"peers_max" json:"peers_max"`
		PeerPriv bool `mapstructure:"peer_private" json:"peer_private"`
	} `mapstructure:"peers" json:"peers"`

	Validation struct {
		ValidatorsFile string   `mapstructure:"validators" json:"validators"`
		ValidatorToken string   `mapstructure:"validator_token" json:"validator_token"`
		UNL            []string `mapstructure:"unl" json:"unl"`
	} `mapstructure:"validation" json:"validation"`

	Fee struct {
		BaseFeeDrops      uint64 `mapstructure:"fee_default" json:"fee_default"`
		ReferenceFeeUnits uint64 `mapstructure:"reference_fee_per_computation_unit" json:"reference_fee_per_computation_unit"`
	} `mapstructure:"fee" json:"fee"`

	Features struct {
		Enabled []string `mapstructure:"enabled" json:"enabled"`
	} `mapstructure:"features" json:"features"`

	RPCStartup []string `mapstructure:"rpc_startup" json:"rpc_startup"`
	IPSSeeds   []string `mapstructure:"ips" json:"ips"`

	Logging struct {
		Level  string `mapstructure:"level" json:"level"`
		Format string `mapstructure:"format" json:"format"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load. Kept as a package
// variable for parity with the teacher's pkg/config, but callers in this
// repo should prefer to thread the returned *Config explicitly rather than
// reach for this global (see SPEC_FULL.md §5 on avoiding ambient state).
var AppConfig Config

// Load reads the base configuration plus an optional environment overlay
// and stores the result in AppConfig.
func Load(configDir, env string) (*Config, error) {
	_ = godotenv.Load() // best effort; absence of .env is not an error

	viper.SetConfigName("default")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, errs.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, errs.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errs.Wrap(err, "unmarshal config")
	}
	applyDefaults(&cfg)
	AppConfig = cfg
	return &AppConfig, nil
}

// Default returns the canonical default configuration, with no file or
// environment overlay applied. Useful for tests and for the CLI's
// zero-config "single node" mode.
func Default() Config {
	var cfg Config
	applyDefaults(&cfg)
	return cfg
}

// LoadFromEnv loads configuration using the CONCORDD_ENV environment
// variable to pick the overlay file, defaulting to "config" as the search
// directory.
func LoadFromEnv() (*Config, error) {
	return Load("config", os.Getenv("CONCORDD_ENV"))
}

// applyDefaults fills in the values the spec treats as canonical defaults
// when the configuration is silent on them.
func applyDefaults(cfg *Config) {
	if cfg.Fee.BaseFeeDrops == 0 {
		cfg.Fee.BaseFeeDrops = 10
	}
	if cfg.Fee.ReferenceFeeUnits == 0 {
		cfg.Fee.ReferenceFeeUnits = 1
	}
	if cfg.Peers.Max == 0 {
		cfg.Peers.Max = 21
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}
