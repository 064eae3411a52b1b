package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/baiirun/planner/internal/model"
	"github.com/baiirun/planner/internal/render"
	"github.com/baiirun/planner/internal/tree"
)

func newListCmd(g *globalFlags) *cobra.Command {
	var by, on, format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List items",
		Long: `List items as a tree (default), grouped by creation date (--by created)
or grouped by scheduled date (--by scheduled). --on YYYY-MM-DD lists only the
tasks and events scheduled on that day.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(g, func(a *app) error {
				out := cmd.OutOrStdout()
				today := model.DateOf(a.now())

				var days []tree.Day
				switch {
				case on != "":
					day, err := model.ParseDate(on)
					if err != nil {
						return err
					}
					ids, err := a.db.ScheduledOn(day)
					if err != nil {
						return err
					}
					entries := make([]tree.Entry, 0, len(ids))
					for _, id := range ids {
						if it, ok := a.store.Get(id); ok {
							entries = append(entries, tree.Entry{Item: it})
						}
					}
					if len(entries) > 0 {
						days = []tree.Day{{Date: day, Entries: entries}}
					}
				case by == "" || by == "tree":
					if format != "text" {
						return writeFormatted(out, format, a.store.Items())
					}
					render.Tree(out, a.store.Items(), a.loc)
					return nil
				case by == "created":
					days = a.store.ByCreatedDate()
				case by == "scheduled":
					days = a.store.ByScheduledDate()
				default:
					return fmt.Errorf("invalid --by value %q (use tree, created or scheduled)", by)
				}

				if format != "text" {
					return writeFormatted(out, format, days)
				}
				if len(days) == 0 {
					fmt.Fprintln(out, "No items.")
					return nil
				}
				render.Days(out, days, a.loc, today)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&by, "by", "tree", "grouping: tree, created or scheduled")
	cmd.Flags().StringVar(&on, "on", "", "only items scheduled on this day (YYYY-MM-DD)")
	addFormatFlag(cmd, &format)
	return cmd
}

func newDatesCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "dates",
		Short: "List every date that has items created on it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(g, func(a *app) error {
				for _, d := range a.store.AllDatesWithItems() {
					fmt.Fprintln(cmd.OutOrStdout(), d)
				}
				return nil
			})
		},
	}
}

func newRoutinesCmd(g *globalFlags) *cobra.Command {
	var on, format string

	cmd := &cobra.Command{
		Use:   "routines",
		Short: "Show routines due on a day (default today)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(g, func(a *app) error {
				day := model.DateOf(a.now())
				if on != "" {
					d, err := model.ParseDate(on)
					if err != nil {
						return err
					}
					day = d
				}
				routines := a.store.RoutinesOn(day)
				if format != "text" {
					return writeFormatted(cmd.OutOrStdout(), format, routines)
				}
				render.Routines(cmd.OutOrStdout(), day, routines, a.loc)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&on, "on", "", "day to check (YYYY-MM-DD)")
	addFormatFlag(cmd, &format)
	return cmd
}
