package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/baiirun/planner/internal/model"
	"github.com/baiirun/planner/internal/parse"
	"github.com/baiirun/planner/internal/render"
	"github.com/baiirun/planner/internal/tree"
)

func notFound(id string) error {
	return fmt.Errorf("item not found: %s (use 'plan list' to see available items)", id)
}

func newShowCmd(g *globalFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show item details, backlinks and history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(g, func(a *app) error {
				it, ok := a.store.Get(args[0])
				if !ok {
					return notFound(args[0])
				}
				if format != "text" {
					return writeFormatted(cmd.OutOrStdout(), format, it)
				}

				refs, err := a.db.GetRefs(args[0])
				if err != nil {
					return err
				}
				backlinks, err := a.db.Backlinks(args[0])
				if err != nil {
					return err
				}
				history, err := a.db.GetHistory(args[0])
				if err != nil {
					return err
				}
				d := render.Detail{Item: it, Refs: refs, Backlinks: backlinks}
				for _, h := range history {
					d.History = append(d.History, render.HistoryLine{Op: string(h.Op), At: h.CreatedAt})
				}
				render.Show(cmd.OutOrStdout(), d, a.loc, a.now())
				return nil
			})
		},
	}

	addFormatFlag(cmd, &format)
	return cmd
}

func newDoneCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Toggle a task done (with its direct subtasks) or complete a routine for today",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(g, func(a *app) error {
				it, ok := a.store.Get(args[0])
				if !ok {
					return notFound(args[0])
				}

				var c *tree.Commit
				switch it.(type) {
				case *model.Task:
					c = a.store.ToggleCompletion(args[0])
				case *model.Routine:
					c = a.store.CompleteRoutine(args[0])
					if c.Empty() {
						fmt.Fprintln(cmd.OutOrStdout(), "Already done today.")
						return nil
					}
				default:
					return fmt.Errorf("only tasks and routines can be completed, %s is a %s", args[0], it.Header().Kind)
				}
				reportChanges(cmd.OutOrStdout(), a, c)
				return nil
			})
		},
	}
}

func newCancelCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Toggle a task cancelled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(g, func(a *app) error {
				it, ok := a.store.Get(args[0])
				if !ok {
					return notFound(args[0])
				}
				if _, isTask := it.(*model.Task); !isTask {
					return fmt.Errorf("only tasks can be cancelled, %s is a %s", args[0], it.Header().Kind)
				}
				reportChanges(cmd.OutOrStdout(), a, a.store.ToggleCancelled(args[0]))
				return nil
			})
		},
	}
}

func newRmCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an item and everything nested under it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(g, func(a *app) error {
				c := a.store.Delete(args[0])
				if c.Empty() {
					return notFound(args[0])
				}
				deleted := c.Deleted()
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d item(s): %v\n", len(deleted), deleted)
				return nil
			})
		},
	}
}

func newEditCmd(g *globalFlags) *cobra.Command {
	var content, at, end, every, timeOfDay string
	var clearTime bool

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change an item's content or schedule",
		Long: `Change an item in place. --at and --end take the same phrases as item text
("tomorrow at 3pm", "fri 10:00"). Routines take --every and --time instead.
Changing the kind is done with 'plan retype'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(g, func(a *app) error {
				if _, ok := a.store.Get(args[0]); !ok {
					return notFound(args[0])
				}

				var p tree.Patch
				if cmd.Flags().Changed("content") {
					p.Content = &content
				}
				if at != "" {
					start, hasTime, err := phraseTime(at, a.now())
					if err != nil {
						return err
					}
					p.ScheduledTime, p.HasTime = &start, &hasTime
				}
				if end != "" {
					t, _, err := phraseTime(end, a.now())
					if err != nil {
						return err
					}
					p.EndTime = &t
				}
				if every != "" {
					rule := parse.DetectRecurrence(every)
					if rule == nil {
						return fmt.Errorf("no recurrence found in %q", every)
					}
					p.Recurrence = rule
				}
				if timeOfDay != "" {
					var c model.ClockTime
					if err := c.UnmarshalText([]byte(timeOfDay)); err != nil {
						return fmt.Errorf("invalid --time %q (expected HH:MM)", timeOfDay)
					}
					p.TimeOfDay = &c
				}
				if clearTime {
					p.ClearScheduled, p.ClearTimeOfDay = true, true
				}

				c, err := a.store.Update(args[0], p)
				if err != nil {
					return err
				}
				reportChanges(cmd.OutOrStdout(), a, c)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&content, "content", "", "replace the text")
	cmd.Flags().StringVar(&at, "at", "", "new scheduled time or event start")
	cmd.Flags().StringVar(&end, "end", "", "new event end")
	cmd.Flags().StringVar(&every, "every", "", "new routine recurrence, e.g. \"every other friday\"")
	cmd.Flags().StringVar(&timeOfDay, "time", "", "routine time of day (HH:MM)")
	cmd.Flags().BoolVar(&clearTime, "clear-time", false, "unschedule a task or drop a routine's time")
	return cmd
}

// phraseTime reads a date/time phrase relative to now.
func phraseTime(phrase string, now time.Time) (time.Time, bool, error) {
	x := parse.ExtractDateTime(phrase, now)
	if x.Start == nil {
		return time.Time{}, false, fmt.Errorf("no date or time found in %q", phrase)
	}
	return *x.Start, x.HasTime, nil
}

func newRetypeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "retype <id> <kind>",
		Short: "Turn an item into another kind (task, event, routine, note)",
		Long: `Replace an item with one of another kind built from the same text. The
replacement gets a new id but keeps its creation time, its place under its
parent and its children.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := model.ParseKind(args[1])
			if err != nil {
				return err
			}
			return withApp(g, func(a *app) error {
				if _, ok := a.store.Get(args[0]); !ok {
					return notFound(args[0])
				}
				c, err := a.store.Retype(args[0], kind)
				if err != nil {
					return err
				}
				if c.Empty() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s is already a %s\n", args[0], kind)
					return nil
				}
				it, _ := a.store.Get(c.ID())
				fmt.Fprintf(cmd.OutOrStdout(), "Retyped %s -> %s\n", args[0], render.Line(it, a.loc))
				return nil
			})
		},
	}
}

// reportChanges prints the items a commit touched.
func reportChanges(w io.Writer, a *app, c *tree.Commit) {
	for _, ch := range c.Changes {
		if ch.After == nil {
			continue
		}
		fmt.Fprintf(w, "Updated %s\n", render.Line(ch.After, a.loc))
	}
}
