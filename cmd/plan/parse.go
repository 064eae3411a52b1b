package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/baiirun/planner/internal/model"
	"github.com/baiirun/planner/internal/render"
)

func newParseCmd(g *globalFlags) *cobra.Command {
	var format, ref string
	var block bool

	cmd := &cobra.Command{
		Use:   "parse <text>",
		Short: "Show how a line (or block) would be parsed, without saving anything",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if format == "text" {
				format = "yaml"
			}

			return withApp(g, func(a *app) error {
				now := a.now()
				if ref != "" {
					t, err := time.ParseInLocation("2006-01-02T15:04", ref, a.loc)
					if err != nil {
						return fmt.Errorf("invalid --ref %q (expected YYYY-MM-DDTHH:MM): %w", ref, err)
					}
					now = t
				}

				if !block {
					return writeFormatted(cmd.OutOrStdout(), format, a.parser.Line(text, now))
				}
				res := a.parser.Block(strings.ReplaceAll(text, `\n`, "\n"), now)
				render.Errors(cmd.ErrOrStderr(), res.Errors)
				return writeFormatted(cmd.OutOrStdout(), format, res)
			})
		},
	}

	addFormatFlag(cmd, &format)
	cmd.Flags().StringVar(&ref, "ref", "", "reference instant (YYYY-MM-DDTHH:MM), default now")
	cmd.Flags().BoolVar(&block, "block", false, "parse as an indented block (\\n separates lines)")
	return cmd
}

func newStatsCmd(g *globalFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show item counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(g, func(a *app) error {
				st, err := a.db.Summary()
				if err != nil {
					return err
				}
				if format != "text" {
					return writeFormatted(cmd.OutOrStdout(), format, st)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Tasks:    %d (%d open, %d done, %d cancelled, %d scheduled)\n", st.Tasks, st.Open, st.Done, st.Cancelled, st.Scheduled)
				fmt.Fprintf(out, "Events:   %d\n", st.Events)
				fmt.Fprintf(out, "Routines: %d (%d due today)\n", st.Routines, len(a.store.RoutinesOn(model.DateOf(a.now()))))
				fmt.Fprintf(out, "Notes:    %d\n", st.Notes)
				if st.Dangling > 0 {
					fmt.Fprintf(out, "Dangling references: %d\n", st.Dangling)
				}
				return nil
			})
		},
	}

	addFormatFlag(cmd, &format)
	return cmd
}

func newLogCmd(g *globalFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(g, func(a *app) error {
				entries, err := a.db.RecentHistory(limit)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No changes recorded.")
					return nil
				}
				for _, e := range entries {
					fmt.Fprintf(cmd.OutOrStdout(), "%-7s %s %-8s %s (%s)\n", e.Op, e.ItemID, e.Kind, e.Content, humanize.Time(e.CreatedAt))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries")
	return cmd
}
