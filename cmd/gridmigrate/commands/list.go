package commands

import (
	"context"

	"github.com/fly-io/gridmigrate/pkg/db"
	"github.com/fly-io/gridmigrate/pkg/errors"
	"github.com/fly-io/gridmigrate/pkg/grid"
	"github.com/fly-io/gridmigrate/pkg/printers"
	"github.com/spf13/cobra"
)

var listMap bool

var listCmd = &cobra.Command{
	Use:   "list [table]",
	Short: "List the items of a layout table",
	Long: `Lists hotseat and desktop items of a table, dest-table by default.
With --map every screen is also drawn as a cell map; the destination table
is drawn on the configured grid.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listMap, "map", false, "Draw each screen as a cell map")
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	table := cfg.DestTable
	if len(args) == 1 {
		table = args[0]
	}

	// Ensure database directory exists
	if err := ensureDirectories(cfg.SQLitePath, "", ""); err != nil {
		return err
	}

	repo, err := db.NewRepository(cfg.SQLitePath)
	if err != nil {
		return errors.Wrap(err, "db init failed")
	}
	defer repo.Close()

	layout, err := grid.NewReader(table, grid.NewValiditySet(cfg.InstalledPackages...)).Read(ctx, repo.DB())
	if err != nil {
		return errors.Wrap(err, "list failed")
	}

	p := &printers.Printer{Out: cmd.OutOrStdout()}
	p.Items(layout)

	if listMap {
		var size grid.Size
		if table == cfg.DestTable {
			if profiles, err := loadProfiles(cfg); err == nil {
				if pr, err := profiles.Lookup(cfg.Grid); err == nil {
					size = pr.Geometry.Size
				}
			}
		}
		p.Map(layout, size)
	}

	return nil
}
