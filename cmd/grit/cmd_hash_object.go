package main

import (
	"fmt"
	"os"

	"github.com/odvcencio/grit/pkg/object"
	"github.com/odvcencio/grit/pkg/repo"
	"github.com/spf13/cobra"
)

func newHashObjectCmd() *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "hash-object -w <file>",
		Short: "Compute a blob's digest and store it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %q: %w", args[0], err)
			}

			if !write {
				fmt.Fprintln(cmd.OutOrStdout(), object.HashObject(object.TypeBlob, data))
				return nil
			}

			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			h, err := r.Store.Write(object.TypeBlob, data)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "write the object into the object store")
	return cmd
}
