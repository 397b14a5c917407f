package main

import (
	"fmt"
	"strings"

	"github.com/odvcencio/grit/pkg/config"
	"github.com/odvcencio/grit/pkg/object"
	"github.com/odvcencio/grit/pkg/repo"
	"github.com/spf13/cobra"
)

func newCommitTreeCmd() *cobra.Command {
	var parent string
	var message string
	var signKey string

	cmd := &cobra.Command{
		Use:   "commit-tree <tree> -p <parent> -m <message>",
		Short: "Create a commit object for a tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			treeHash := object.Hash(args[0])
			if !treeHash.Valid() {
				return fmt.Errorf("invalid tree name %q", args[0])
			}
			if message == "" {
				return fmt.Errorf("commit-tree requires -m <message>")
			}

			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			cfg, err := config.Load(r.GitDir)
			if err != nil {
				return err
			}

			when, tz := config.CommitClock()
			identity := object.Signature{
				Name:  cfg.User.Name,
				Email: cfg.User.Email,
				When:  when,
				TZ:    tz,
			}

			commit := &object.Commit{
				Tree:      treeHash,
				Author:    identity,
				Committer: identity,
				Message:   ensureTrailingNewline(message),
			}
			if parent != "" {
				parentHash := object.Hash(parent)
				if !parentHash.Valid() {
					return fmt.Errorf("invalid parent %q", parent)
				}
				commit.Parents = append(commit.Parents, parentHash)
			}

			if signKey != "" {
				signer, keyPath, err := newSSHCommitSigner(signKey)
				if err != nil {
					return err
				}
				sig, err := signer(object.MarshalCommit(commit))
				if err != nil {
					return fmt.Errorf("sign commit with %q: %w", keyPath, err)
				}
				commit.Signature = sig
			}

			h, err := r.Store.Write(object.TypeCommit, object.MarshalCommit(commit))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}

	cmd.Flags().StringVarP(&parent, "parent", "p", "", "hash of the parent commit")
	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	cmd.Flags().StringVar(&signKey, "sign", "", "sign the commit with the SSH private key at this path")
	return cmd
}

func ensureTrailingNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
