package main

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/jwalker/kiwi/pkg/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newSyncCmd() *cobra.Command {
	var (
		push        bool
		pull        bool
		preferLocal bool
		force       bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push or pull environment state against the sync server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if push == pull {
				return fmt.Errorf("specify exactly one of --push or --pull")
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			if a.syncer == nil {
				return errors.New(errors.ErrConfigInvalid,
					"sync not configured: set sync_url and sync_token first")
			}

			if push {
				if !force {
					var confirmed bool
					err := huh.NewConfirm().
						Title("Push local state to the sync server?").
						Value(&confirmed).
						Run()
					if err != nil {
						return err
					}
					if !confirmed {
						fmt.Println(styleWarn("Push cancelled"))
						return nil
					}
				}

				spinner, _ := pterm.DefaultSpinner.Start("Pushing to remote...")
				if err := a.syncer.Push(cmd.Context()); err != nil {
					spinner.Fail(err.Error())
					return err
				}
				spinner.Success("Push complete")
				return nil
			}

			label := "Pulling from remote..."
			if preferLocal {
				label = "Pulling from remote (preferring local files)..."
			}
			spinner, _ := pterm.DefaultSpinner.Start(label)
			if err := a.syncer.Pull(cmd.Context(), preferLocal); err != nil {
				spinner.Fail(err.Error())
				return err
			}
			spinner.Success("Pull complete")
			return nil
		},
	}

	cmd.Flags().BoolVar(&push, "push", false, "Push local state to the remote")
	cmd.Flags().BoolVar(&pull, "pull", false, "Pull state from the remote")
	cmd.Flags().BoolVarP(&preferLocal, "prefer-local", "l", false, "Prefer local files on conflict")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip the confirmation prompt")
	cmd.MarkFlagsMutuallyExclusive("push", "pull")
	return cmd
}
