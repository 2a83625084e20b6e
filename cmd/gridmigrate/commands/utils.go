package commands

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fly-io/gridmigrate/internal/config"
	"github.com/fly-io/gridmigrate/pkg/errors"
	"github.com/fly-io/gridmigrate/pkg/migration"
	"github.com/fly-io/gridmigrate/pkg/profile"
	"github.com/fly-io/gridmigrate/pkg/storage"
)

// ensureDirectories creates all necessary directories for the application
func ensureDirectories(sqlitePath, fsmDBPath, workDir string) error {
	// Create database directory
	if err := os.MkdirAll(filepath.Dir(sqlitePath), 0755); err != nil {
		return errors.Wrap(err, "failed to create database directory")
	}

	// Create FSM database directory (only needed for migrate command)
	if fsmDBPath != "" {
		if err := os.MkdirAll(fsmDBPath, 0755); err != nil {
			return errors.Wrap(err, "failed to create FSM directory")
		}
	}

	// Create work directory (only needed for migrate command)
	if workDir != "" {
		if err := os.MkdirAll(workDir, 0755); err != nil {
			return errors.Wrap(err, "failed to create work directory")
		}
	}

	return nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "config load failed")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config invalid")
	}
	return cfg, nil
}

func loadProfiles(cfg *config.Config) (*profile.Set, error) {
	if cfg.ProfilesPath == "" {
		return profile.Default()
	}
	return profile.Load(cfg.ProfilesPath)
}

func migrationOptions(cfg *config.Config) []migration.Option {
	return []migration.Option{
		migration.WithReflowThreshold(cfg.ReflowThreshold),
		migration.WithReflowOnShrink(cfg.ReflowOnShrink),
		migration.WithReservedRows(cfg.ReservedRows),
	}
}

// backupClient returns nil when no bucket is configured.
func backupClient(ctx context.Context, cfg *config.Config) (*storage.Client, error) {
	if cfg.S3Bucket == "" {
		return nil, nil
	}
	client, err := storage.NewClient(ctx, storage.Options{
		Bucket:   cfg.S3Bucket,
		Region:   cfg.S3Region,
		Endpoint: cfg.S3Endpoint,
	})
	if err != nil {
		return nil, errors.Wrap(err, "S3 client failed")
	}
	return client, nil
}
