package main

import (
	"fmt"

	"github.com/odvcencio/grit/pkg/object"
	"github.com/odvcencio/grit/pkg/repo"
	"github.com/spf13/cobra"
)

func newCatFileCmd() *cobra.Command {
	var prettyPrint bool

	cmd := &cobra.Command{
		Use:   "cat-file -p <object>",
		Short: "Print the payload of a stored object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !prettyPrint {
				return fmt.Errorf("cat-file requires -p")
			}
			h := object.Hash(args[0])
			if !h.Valid() {
				return fmt.Errorf("invalid object name %q", args[0])
			}

			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			_, data, err := r.Store.Read(h)
			if err != nil {
				return err
			}

			// Payload bytes verbatim; no added newline.
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().BoolVarP(&prettyPrint, "pretty-print", "p", false, "pretty-print the object's content")
	return cmd
}
