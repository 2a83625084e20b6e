package commands

import (
	"context"
	"fmt"

	"github.com/fly-io/gridmigrate/pkg/errors"
	"github.com/fly-io/gridmigrate/pkg/printers"
	"github.com/spf13/cobra"
)

var backupsCmd = &cobra.Command{
	Use:   "backups [prefix]",
	Short: "List layout backups in S3",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBackups,
}

func init() {
	rootCmd.AddCommand(backupsCmd)
}

func runBackups(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, err := backupClient(ctx, cfg)
	if err != nil {
		return err
	}
	if client == nil {
		return fmt.Errorf("s3-bucket is not configured")
	}

	prefix := ""
	if len(args) == 1 {
		prefix = args[0]
	}

	objects, err := client.ListBackups(ctx, prefix)
	if err != nil {
		return errors.Wrap(err, "list backups failed")
	}

	(&printers.Printer{Out: cmd.OutOrStdout()}).Backups(objects)
	return nil
}
