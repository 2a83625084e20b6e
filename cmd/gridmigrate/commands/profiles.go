package commands

import (
	"github.com/fly-io/gridmigrate/pkg/errors"
	"github.com/fly-io/gridmigrate/pkg/printers"
	"github.com/spf13/cobra"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List grid profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		profiles, err := loadProfiles(cfg)
		if err != nil {
			return errors.Wrap(err, "profiles load failed")
		}

		(&printers.Printer{Out: cmd.OutOrStdout()}).Profiles(profiles.Profiles(), cfg.Grid)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}
