package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/fly-io/gridmigrate/pkg/db"
	"github.com/fly-io/gridmigrate/pkg/errors"
	appfsm "github.com/fly-io/gridmigrate/pkg/fsm"
	"github.com/fly-io/gridmigrate/pkg/gridstate"
	"github.com/fly-io/gridmigrate/pkg/profile"
	"github.com/fly-io/gridmigrate/pkg/security"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/superfly/fsm"
)

var (
	migrateColumns    int
	migrateRows       int
	migrateHotseat    int
	migrateDeviceType string
	migrateBackup     string
	migrateForce      bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the layout to the configured grid",
	Long: `Migrates the source table into the destination table for the grid
selected with --grid, or given explicitly with --columns, --rows and --hotseat.
With --backup the source table is read from a layout database in S3.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().IntVar(&migrateColumns, "columns", 0, "Destination columns, overrides --grid")
	migrateCmd.Flags().IntVar(&migrateRows, "rows", 0, "Destination rows, overrides --grid")
	migrateCmd.Flags().IntVar(&migrateHotseat, "hotseat", -1, "Destination hotseat size, overrides --grid")
	migrateCmd.Flags().StringVar(&migrateDeviceType, "device-type", "", "Destination device type, overrides --grid")
	migrateCmd.Flags().StringVar(&migrateBackup, "backup", "", "S3 key of a layout backup to migrate from")
	migrateCmd.Flags().BoolVar(&migrateForce, "force", false, "Migrate even if the grid did not change")

	migrateCmd.Flags().StringSlice("installed", nil, "Installed packages; items of other packages are dropped")
	migrateCmd.Flags().Bool("new-migration-logic", false, "Use the size-aware strategy")
	migrateCmd.Flags().Int("reflow-threshold", 2, "Column difference above which the size-aware strategy reflows")
	migrateCmd.Flags().Bool("reflow-on-shrink", false, "Also reflow when the grid shrinks")
	migrateCmd.Flags().Int("reserved-rows", 0, "Rows kept free at the top of the first screen")

	viper.BindPFlag("installed-packages", migrateCmd.Flags().Lookup("installed"))
	viper.BindPFlag("new-migration-logic", migrateCmd.Flags().Lookup("new-migration-logic"))
	viper.BindPFlag("reflow-threshold", migrateCmd.Flags().Lookup("reflow-threshold"))
	viper.BindPFlag("reflow-on-shrink", migrateCmd.Flags().Lookup("reflow-on-shrink"))
	viper.BindPFlag("reserved-rows", migrateCmd.Flags().Lookup("reserved-rows"))
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	profiles, err := loadProfiles(cfg)
	if err != nil {
		return errors.Wrap(err, "profiles load failed")
	}
	dest, err := resolveDestination(profiles, cfg.Grid, migrateColumns, migrateRows, migrateHotseat, migrateDeviceType)
	if err != nil {
		return err
	}

	// Ensure all necessary directories exist
	if err := ensureDirectories(cfg.SQLitePath, cfg.FSMDBPath, cfg.WorkDir); err != nil {
		return err
	}

	repo, err := db.NewRepository(cfg.SQLitePath, cfg.DestTable, cfg.SrcTable)
	if err != nil {
		return errors.Wrap(err, "db init failed")
	}
	defer repo.Close()

	backups, err := backupClient(ctx, cfg)
	if err != nil {
		return err
	}

	store := gridstate.NewStore(cfg.StateDir)
	validator := security.NewValidator(cfg.MaxBackupSize)

	manager, err := fsm.New(fsm.Config{DBPath: cfg.FSMDBPath})
	if err != nil {
		return errors.Wrap(err, "FSM manager failed")
	}
	defer manager.Shutdown(10 * time.Second)

	machine := appfsm.NewMachine(repo, backups, validator, store, cfg.WorkDir, cfg.FSMMaxRetries, migrationOptions(cfg)...)
	start, _, err := machine.Register(ctx, manager)
	if err != nil {
		return errors.Wrap(err, "FSM register failed")
	}

	runID := uuid.NewString()
	req := &appfsm.MigrationRequest{
		RunID:             runID,
		SrcTable:          cfg.SrcTable,
		DestTable:         cfg.DestTable,
		Profile:           dest.Name,
		Columns:           dest.Geometry.Columns,
		Rows:              dest.Geometry.Rows,
		Hotseat:           dest.Geometry.Hotseat,
		DeviceType:        string(dest.DeviceType),
		NewMigrationLogic: cfg.NewMigrationLogic,
		BackupKey:         migrateBackup,
		Force:             migrateForce,
		InstalledPackages: cfg.InstalledPackages,
	}
	resp := &appfsm.MigrationResponse{}

	version, err := start(ctx, runID, fsm.NewRequest(req, resp))
	if err != nil {
		return errors.Wrap(err, "FSM start failed")
	}

	slog.Info("fsm started", "run_id", runID, "version", version, "grid", dest.Name)

	if err := manager.Wait(ctx, version); err != nil {
		return errors.Wrap(err, "FSM execution failed")
	}

	st, err := store.Load()
	if err != nil {
		return errors.Wrap(err, "grid state load failed")
	}
	slog.Info("migrate completed", "run_id", runID, "state", st.String())

	return nil
}

// resolveDestination starts from the named profile and applies the explicit
// overrides. Without a known profile, columns and rows must both be given.
func resolveDestination(profiles *profile.Set, name string, columns, rows, hotseat int, deviceType string) (profile.Profile, error) {
	dest, err := profiles.Lookup(name)
	if err != nil {
		if columns <= 0 || rows <= 0 {
			return profile.Profile{}, errors.Wrap(err, "use a known --grid or give both --columns and --rows")
		}
		dest = profile.Profile{Name: "custom", DeviceType: gridstate.DeviceTypePhone}
		dest.Geometry.Hotseat = columns
	}
	if columns > 0 {
		dest.Name = "custom"
		dest.Geometry.Columns = columns
	}
	if rows > 0 {
		dest.Name = "custom"
		dest.Geometry.Rows = rows
	}
	if hotseat >= 0 {
		dest.Geometry.Hotseat = hotseat
	}
	if deviceType != "" {
		if dest.DeviceType, err = gridstate.ParseDeviceType(deviceType); err != nil {
			return profile.Profile{}, err
		}
	}
	return dest, nil
}
