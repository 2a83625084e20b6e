package commands

import (
	"context"
	"fmt"

	"github.com/fly-io/gridmigrate/pkg/db"
	"github.com/fly-io/gridmigrate/pkg/errors"
	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Copy the destination table into the source table",
	Long: `Copies the live layout (dest-table) into src-table so the next migrate
starts from it. The destination table itself is left untouched.`,
	Args: cobra.NoArgs,
	RunE: runSnapshot,
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := ensureDirectories(cfg.SQLitePath, "", ""); err != nil {
		return err
	}

	repo, err := db.NewRepository(cfg.SQLitePath, cfg.DestTable)
	if err != nil {
		return errors.Wrap(err, "db init failed")
	}
	defer repo.Close()

	if err := repo.CopyTable(ctx, cfg.DestTable, cfg.SrcTable); err != nil {
		return errors.Wrap(err, "snapshot failed")
	}

	n, err := db.Count(ctx, repo.DB(), cfg.SrcTable)
	if err != nil {
		return errors.Wrap(err, "count failed")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "copied %d rows from %s to %s\n", n, cfg.DestTable, cfg.SrcTable)
	return nil
}
