package commands

import (
	"fmt"

	"github.com/fly-io/gridmigrate/pkg/errors"
	"github.com/fly-io/gridmigrate/pkg/gridstate"
	"github.com/spf13/cobra"
)

var stateClear bool

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show the grid the layout was last migrated to",
	Args:  cobra.NoArgs,
	RunE:  runState,
}

func init() {
	rootCmd.AddCommand(stateCmd)
	stateCmd.Flags().BoolVar(&stateClear, "clear", false, "Forget the persisted grid state")
}

func runState(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store := gridstate.NewStore(cfg.StateDir)
	if stateClear {
		if err := store.Clear(); err != nil {
			return errors.Wrap(err, "clear state failed")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "grid state cleared")
		return nil
	}

	st, err := store.Load()
	if errors.Is(err, gridstate.ErrNoState) {
		fmt.Fprintln(cmd.OutOrStdout(), "no grid state recorded")
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "load state failed")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "workspace:           %s\n", st.WorkspaceSize)
	fmt.Fprintf(cmd.OutOrStdout(), "hotseat:             %d\n", st.Hotseat)
	fmt.Fprintf(cmd.OutOrStdout(), "device type:         %s\n", st.DeviceType)
	fmt.Fprintf(cmd.OutOrStdout(), "new migration logic: %t\n", st.NewMigrationLogic)
	return nil
}
