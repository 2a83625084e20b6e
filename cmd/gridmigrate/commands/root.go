package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "gridmigrate",
	Short: "Launcher grid migration",
	Long:  `Moves home-screen layouts between grid sizes, from the local launcher database or a backup in S3.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("sqlite-path", ".artifacts/launcher.db", "Launcher SQLite database path")
	rootCmd.PersistentFlags().String("fsm-db-path", ".artifacts/fsm", "FSM database directory")
	rootCmd.PersistentFlags().String("state-dir", ".artifacts/state", "Persisted grid state directory")
	rootCmd.PersistentFlags().String("s3-bucket", "", "S3 bucket holding layout backups")
	rootCmd.PersistentFlags().String("s3-region", "us-east-1", "S3 region")
	rootCmd.PersistentFlags().String("s3-endpoint", "", "S3 compatible endpoint URL")
	rootCmd.PersistentFlags().Int64("max-backup-size", 256*1024*1024, "Max backup size in bytes")
	rootCmd.PersistentFlags().String("src-table", "favorites_tmp", "Table holding the layout to migrate")
	rootCmd.PersistentFlags().String("dest-table", "favorites", "Table receiving the migrated layout")
	rootCmd.PersistentFlags().String("profiles-path", "", "HCL file with grid profiles")
	rootCmd.PersistentFlags().String("grid", "4_by_4", "Grid profile of the device")

	for _, name := range []string{
		"sqlite-path", "fsm-db-path", "state-dir",
		"s3-bucket", "s3-region", "s3-endpoint", "max-backup-size",
		"src-table", "dest-table", "profiles-path", "grid",
	} {
		viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}
