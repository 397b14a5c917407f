package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/odvcencio/grit/pkg/config"
	"github.com/odvcencio/grit/pkg/remote"
	"github.com/spf13/cobra"
)

func newCloneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clone <repo-url> <directory>",
		Short: "Clone a remote repository over Smart HTTP",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repoURL := strings.TrimSpace(args[0])
			dest, err := filepath.Abs(args[1])
			if err != nil {
				return fmt.Errorf("resolve destination: %w", err)
			}

			cfg, err := config.Load("")
			if err != nil {
				return err
			}
			client, err := remote.NewClientWithOptions(repoURL, remote.ClientOptions{
				Timeout:     cfg.HTTP.Timeout(),
				MaxAttempts: cfg.HTTP.MaxAttempts,
			})
			if err != nil {
				return err
			}

			result, err := remote.Clone(cmd.Context(), client, dest, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "cloned %s into %s (%d objects)\n", repoURL, dest, result.Objects)
			return nil
		},
	}
}
