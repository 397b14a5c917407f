package main

import (
	"fmt"

	"github.com/odvcencio/grit/pkg/object"
	"github.com/odvcencio/grit/pkg/repo"
	"github.com/spf13/cobra"
)

func newLsTreeCmd() *cobra.Command {
	var nameOnly bool

	cmd := &cobra.Command{
		Use:   "ls-tree [--name-only] <tree>",
		Short: "List the entries of a tree object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h := object.Hash(args[0])
			if !h.Valid() {
				return fmt.Errorf("invalid tree name %q", args[0])
			}

			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			tree, err := r.Store.ReadTree(h)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, entry := range tree.Entries {
				if nameOnly {
					fmt.Fprintln(out, entry.Name)
					continue
				}
				fmt.Fprintf(out, "%s %s %s\t%s\n",
					object.DisplayMode(entry.Mode), entry.Kind(), entry.Hash, entry.Name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&nameOnly, "name-only", false, "list only entry names")
	return cmd
}
