package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	dbPath     string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "plan",
		Short: "Plain-text planner for tasks, events, routines and notes",
		Long: `A CLI planner that reads what you type. Prefix a line with t, e, r or n to
make a task, event, routine or note; dates, times, ranges and recurrence
phrases are picked up from the text. Indented blocks become nested items.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/plan/config.toml)")
	root.PersistentFlags().StringVar(&g.dbPath, "db", "", "database file (overrides db_path in config)")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newAddCmd(g),
		newBlockCmd(g),
		newListCmd(g),
		newDatesCmd(g),
		newRoutinesCmd(g),
		newShowCmd(g),
		newDoneCmd(g),
		newCancelCmd(g),
		newRmCmd(g),
		newEditCmd(g),
		newRetypeCmd(g),
		newParseCmd(g),
		newStatsCmd(g),
		newLogCmd(g),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
