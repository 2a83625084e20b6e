package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Database paths
	SQLitePath string `mapstructure:"sqlite-path"`
	FSMDBPath  string `mapstructure:"fsm-db-path"`

	// Persisted grid state
	StateDir string `mapstructure:"state-dir"`

	// Backup storage
	S3Bucket   string `mapstructure:"s3-bucket"`
	S3Region   string `mapstructure:"s3-region"`
	S3Endpoint string `mapstructure:"s3-endpoint"`

	// Working directory
	WorkDir string `mapstructure:"work-dir"`

	// Security limits
	MaxBackupSize int64 `mapstructure:"max-backup-size"`

	// Tables
	SrcTable  string `mapstructure:"src-table"`
	DestTable string `mapstructure:"dest-table"`

	// Grid profiles; empty uses the built-in set
	ProfilesPath string `mapstructure:"profiles-path"`
	Grid         string `mapstructure:"grid"`

	// Migration behaviour
	NewMigrationLogic bool     `mapstructure:"new-migration-logic"`
	ReflowThreshold   int      `mapstructure:"reflow-threshold"`
	ReflowOnShrink    bool     `mapstructure:"reflow-on-shrink"`
	ReservedRows      int      `mapstructure:"reserved-rows"`
	InstalledPackages []string `mapstructure:"installed-packages"`

	// FSM configuration
	FSMMaxRetries int `mapstructure:"fsm-max-retries"`
}

// Load reads configuration from environment, config file, and defaults
func Load() (*Config, error) {
	// Set defaults
	viper.SetDefault("sqlite-path", ".artifacts/launcher.db")
	viper.SetDefault("fsm-db-path", ".artifacts/fsm")
	viper.SetDefault("state-dir", ".artifacts/state")
	viper.SetDefault("s3-bucket", "")
	viper.SetDefault("s3-region", "us-east-1")
	viper.SetDefault("s3-endpoint", "")
	viper.SetDefault("work-dir", "/tmp/gridmigrate")
	viper.SetDefault("max-backup-size", 256*1024*1024)
	viper.SetDefault("src-table", "favorites_tmp")
	viper.SetDefault("dest-table", "favorites")
	viper.SetDefault("profiles-path", "")
	viper.SetDefault("grid", "4_by_4")
	viper.SetDefault("new-migration-logic", false)
	viper.SetDefault("reflow-threshold", 2)
	viper.SetDefault("reflow-on-shrink", false)
	viper.SetDefault("reserved-rows", 0)
	viper.SetDefault("installed-packages", []string{})
	viper.SetDefault("fsm-max-retries", 5)

	// Environment variables (will be GRIDMIGRATE_SQLITE_PATH, etc.)
	viper.SetEnvPrefix("GRIDMIGRATE")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// Config file (optional)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.gridmigrate")

	// Read config file (ignore if not found)
	_ = viper.ReadInConfig()

	// Unmarshal into config struct
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandPaths resolves a leading ~ in every path setting.
func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.SQLitePath, &c.FSMDBPath, &c.StateDir, &c.WorkDir, &c.ProfilesPath} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("failed to expand %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks configuration for errors
func (c *Config) Validate() error {
	if c.SQLitePath == "" {
		return fmt.Errorf("sqlite-path cannot be empty")
	}
	if c.FSMDBPath == "" {
		return fmt.Errorf("fsm-db-path cannot be empty")
	}
	if c.StateDir == "" {
		return fmt.Errorf("state-dir cannot be empty")
	}
	if c.SrcTable == "" || c.DestTable == "" {
		return fmt.Errorf("src-table and dest-table cannot be empty")
	}
	if c.SrcTable == c.DestTable {
		return fmt.Errorf("src-table and dest-table must differ")
	}
	if c.MaxBackupSize <= 0 {
		return fmt.Errorf("max-backup-size must be positive")
	}
	if c.ReflowThreshold < 0 {
		return fmt.Errorf("reflow-threshold must be non-negative")
	}
	if c.ReservedRows < 0 {
		return fmt.Errorf("reserved-rows must be non-negative")
	}
	if c.FSMMaxRetries < 0 {
		return fmt.Errorf("fsm-max-retries must be non-negative")
	}
	return nil
}
