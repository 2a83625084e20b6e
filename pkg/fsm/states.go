package fsm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fly-io/gridmigrate/pkg/db"
	"github.com/fly-io/gridmigrate/pkg/errors"
	"github.com/fly-io/gridmigrate/pkg/grid"
	"github.com/fly-io/gridmigrate/pkg/gridstate"
	"github.com/fly-io/gridmigrate/pkg/migration"
	"github.com/fly-io/gridmigrate/pkg/security"
)

// destination builds the live state of the grid being migrated to.
func destination(req *MigrationRequest) (gridstate.State, error) {
	deviceType, err := gridstate.ParseDeviceType(req.DeviceType)
	if err != nil {
		return gridstate.State{}, err
	}
	if req.Columns < 1 || req.Rows < 1 || req.Hotseat < 0 {
		return gridstate.State{}, fmt.Errorf("invalid destination grid %dx%d with hotseat %d", req.Columns, req.Rows, req.Hotseat)
	}
	g := grid.Geometry{Size: grid.Size{Columns: req.Columns, Rows: req.Rows}, Hotseat: req.Hotseat}
	return gridstate.FromGeometry(g, deviceType, req.NewMigrationLogic), nil
}

// source is the persisted state recorded by checkState.
func source(resp *MigrationResponse) gridstate.State {
	return gridstate.State{
		WorkspaceSize: resp.SrcWorkspaceSize,
		Hotseat:       resp.SrcHotseat,
		DeviceType:    gridstate.DeviceType(resp.SrcDeviceType),
		Provenance:    gridstate.Persisted,
	}
}

// checkState compares the persisted grid with the destination (idempotency)
func (m *Machine) checkState(ctx context.Context, req *MigrationRequest, resp *MigrationResponse) error {
	dest, err := destination(req)
	if err != nil {
		slog.Error("destination_invalid", "run_id", req.RunID, "error", err)
		return abort(err)
	}
	for _, table := range []string{req.SrcTable, req.DestTable} {
		if err := security.ValidateIdentifier(table); err != nil {
			return abort(err)
		}
	}

	persisted, err := m.store.Load()
	switch {
	case errors.Is(err, gridstate.ErrNoState):
		slog.Info("grid_state_missing", "run_id", req.RunID)
	case err != nil:
		slog.Error("grid_state_load_failed", "run_id", req.RunID, "error", err)
		return errors.Wrap(err, "failed to load grid state")
	default:
		resp.SrcWorkspaceSize = persisted.WorkspaceSize
		resp.SrcHotseat = persisted.Hotseat
		resp.SrcDeviceType = string(persisted.DeviceType)
	}

	if err == nil && persisted.IsCompatible(dest) && !req.Force {
		slog.Info("grid_state_unchanged", "run_id", req.RunID, "state", dest.String())
		resp.Skipped = true
		resp.Status = StatusSkipped
		return nil
	}
	if errors.Is(err, gridstate.ErrNoState) && req.BackupKey == "" && !req.Force {
		// nothing was ever laid out for another grid; just record this one
		slog.Info("grid_state_first_run", "run_id", req.RunID, "state", dest.String())
		resp.Skipped = true
		resp.Status = StatusSkipped
		return nil
	}

	slog.Info("grid_state_changed",
		"run_id", req.RunID,
		"src", source(resp).String(),
		"dest", dest.String(),
		"force", req.Force)
	return nil
}

// fetchBackup downloads and validates the layout backup, if one was requested
func (m *Machine) fetchBackup(ctx context.Context, req *MigrationRequest, resp *MigrationResponse) error {
	if resp.Skipped || req.BackupKey == "" {
		return nil
	}
	if m.backups == nil {
		return abort(fmt.Errorf("backup %q requested but no backup store is configured", req.BackupKey))
	}

	if err := m.validator.ValidatePath(req.BackupKey); err != nil {
		slog.Error("backup_key_invalid", "run_id", req.RunID, "key", req.BackupKey, "error", err)
		return abort(err)
	}

	downloadDir := filepath.Join(m.workDir, "backups")
	if err := os.MkdirAll(downloadDir, 0755); err != nil {
		slog.Error("download_dir_creation_failed", "path", downloadDir, "error", err)
		return errors.Wrap(err, "failed to create download dir")
	}

	localPath := filepath.Join(downloadDir, req.RunID+"-"+filepath.Base(req.BackupKey))
	backup, err := m.backups.FetchBackup(ctx, req.BackupKey, localPath)
	if err != nil {
		return errors.Wrap(err, "failed to fetch backup")
	}

	if err := m.validator.ValidateFileSize(backup.Size); err != nil {
		slog.Error("backup_size_invalid", "run_id", req.RunID, "size", backup.Size, "error", err)
		os.Remove(localPath)
		return abort(err)
	}
	if err := m.validator.ValidateSQLiteHeader(localPath); err != nil {
		slog.Error("backup_not_sqlite", "run_id", req.RunID, "path", localPath, "error", err)
		os.Remove(localPath)
		return abort(err)
	}

	resp.BackupPath = backup.LocalPath
	resp.BackupSHA256 = backup.SHA256
	resp.BackupSize = backup.Size
	return nil
}

// migrate runs the layout migration in a single transaction
func (m *Machine) migrate(ctx context.Context, req *MigrationRequest, resp *MigrationResponse) error {
	if resp.Skipped {
		return nil
	}

	dest, err := destination(req)
	if err != nil {
		return abort(err)
	}

	opts := append([]migration.Option(nil), m.opts...)
	if resp.BackupPath != "" {
		backup, err := db.NewRepository(resp.BackupPath)
		if err != nil {
			return errors.Wrap(err, "failed to open backup")
		}
		defer backup.Close()

		ok, err := db.TableExists(ctx, backup.DB(), req.SrcTable)
		if err != nil {
			return errors.Wrap(err, "failed to inspect backup")
		}
		if !ok {
			return abort(fmt.Errorf("backup has no %s table", req.SrcTable))
		}
		opts = append(opts, migration.WithSourceDB(backup.DB()))
	}

	valid := grid.NewValiditySet(req.InstalledPackages...)
	migrator := migration.New(m.repo,
		grid.NewReader(req.SrcTable, valid),
		grid.NewReader(req.DestTable, valid),
		dest.Hotseat, dest.Size(), opts...)

	result, err := migrator.Migrate(ctx, source(resp), dest)
	if err != nil {
		slog.Error("migration_failed", "run_id", req.RunID, "error", err)
		resp.ErrorMessage = err.Error()
		return abort(err)
	}

	resp.Mode = result.Mode.String()
	resp.HotseatPlaced = result.HotseatPlaced
	resp.HotseatDropped = result.HotseatDropped
	resp.WorkspacePlaced = result.WorkspacePlaced
	resp.WorkspaceDropped = result.WorkspaceDropped
	resp.RowsInserted = result.RowsInserted
	return nil
}

// persistState records the destination grid as the one the layout now fits
func (m *Machine) persistState(ctx context.Context, req *MigrationRequest, resp *MigrationResponse) error {
	if resp.Skipped && resp.SrcWorkspaceSize != "" {
		return nil
	}

	dest, err := destination(req)
	if err != nil {
		return abort(err)
	}
	if err := m.store.Save(dest); err != nil {
		slog.Error("grid_state_save_failed", "run_id", req.RunID, "error", err)
		return errors.Wrap(err, "failed to save grid state")
	}

	slog.Info("grid_state_saved", "run_id", req.RunID, "state", dest.String())
	return nil
}

// complete marks the run as finished and removes the downloaded backup
func (m *Machine) complete(ctx context.Context, req *MigrationRequest, resp *MigrationResponse) error {
	if resp.BackupPath != "" {
		if err := os.Remove(resp.BackupPath); err != nil && !os.IsNotExist(err) {
			slog.Warn("backup_cleanup_failed", "path", resp.BackupPath, "error", err)
		}
	}
	if resp.Status == "" {
		resp.Status = StatusComplete
	}

	slog.Info("fsm_complete",
		"run_id", req.RunID,
		"status", resp.Status,
		"mode", resp.Mode,
		"rows_inserted", resp.RowsInserted)
	return nil
}
