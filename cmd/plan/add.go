package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/baiirun/planner/internal/render"
	"github.com/baiirun/planner/internal/tree"
)

func newAddCmd(g *globalFlags) *cobra.Command {
	var parent string
	var depth int

	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Create an item from a line of text",
		Long: `Create one item. The first two characters pick the kind:
  t  task      e  event      r  routine      n or *  note
Anything else is a note. Examples:
  plan add "t Call mom tomorrow at 3pm"
  plan add "e Standup from 9:30 to 10am"
  plan add "r Gym every monday at 7am"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []tree.CreateOption
			if parent != "" {
				opts = append(opts, tree.UnderParent(parent))
			}
			if cmd.Flags().Changed("depth") {
				opts = append(opts, tree.AtDepth(depth))
			}

			return withApp(g, func(a *app) error {
				c, err := a.store.Create(strings.Join(args, " "), opts...)
				if err != nil {
					return err
				}
				reportCreated(cmd.OutOrStdout(), a, c)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&parent, "parent", "p", "", "attach the new item under this item")
	cmd.Flags().IntVar(&depth, "depth", 0, "override the computed depth")
	return cmd
}

func newBlockCmd(g *globalFlags) *cobra.Command {
	var parent string
	var offset int

	cmd := &cobra.Command{
		Use:   "block [file|-]",
		Short: "Create nested items from an indented block",
		Long: `Read an indented block from a file or stdin and create one item per line.
Each indentation level nests a line under the nearest shallower line above it.
Nothing is created if any line is malformed or breaks a nesting rule.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open block file: %w", err)
				}
				defer func() { _ = f.Close() }()
				r = f
			}
			data, err := io.ReadAll(r)
			if err != nil {
				return fmt.Errorf("failed to read block: %w", err)
			}

			var opts []tree.CreateOption
			if parent != "" {
				opts = append(opts, tree.UnderParent(parent))
			}
			if cmd.Flags().Changed("depth-offset") {
				opts = append(opts, tree.AtDepth(offset))
			}

			return withApp(g, func(a *app) error {
				c, err := a.store.CreateBlock(string(data), opts...)
				var berr *tree.BlockError
				if errors.As(err, &berr) {
					render.Errors(cmd.ErrOrStderr(), berr.Errors)
					return fmt.Errorf("block rejected: %d malformed line(s)", len(berr.Errors))
				}
				if err != nil {
					return err
				}
				reportCreated(cmd.OutOrStdout(), a, c)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&parent, "parent", "p", "", "attach top-level lines under this item")
	cmd.Flags().IntVar(&offset, "depth-offset", 0, "added to every line's indentation level")
	return cmd
}

func reportCreated(w io.Writer, a *app, c *tree.Commit) {
	prompt := make(map[string]bool, len(c.NeedsTimePrompt))
	for _, id := range c.NeedsTimePrompt {
		prompt[id] = true
	}
	for _, id := range c.Created {
		it, ok := a.store.Get(id)
		if !ok {
			continue
		}
		fmt.Fprintf(w, "Created %s\n", render.Line(it, a.loc))
		if prompt[id] {
			fmt.Fprintf(w, "  no time given; set one with: plan edit %s --at \"<time>\"\n", id)
		}
	}
}
