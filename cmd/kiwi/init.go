package main

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	var (
		env          string
		syncHomebrew bool
		restore      bool
		yes          bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize or reconfigure the environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			if err := a.fs.MkdirAll(a.paths.DotfilesDir(), 0755); err != nil {
				return err
			}

			if env != "" {
				if err := a.config.Set("environment", env); err != nil {
					return err
				}
				fmt.Printf("%s environment = %s\n", styleSuccess("Set"), env)
			}

			if syncHomebrew {
				spinner, _ := pterm.DefaultSpinner.Start("Scanning Homebrew packages...")
				packages, err := a.manager.ListInstalled(cmd.Context())
				if err != nil {
					spinner.Fail(err.Error())
					return err
				}
				spinner.Stop()

				if len(packages) == 0 {
					fmt.Println(styleWarn("No Homebrew packages found to snapshot"))
				} else {
					confirmed := yes
					if !yes {
						err := huh.NewConfirm().
							Title(fmt.Sprintf("Snapshot %d Homebrew package(s) into the cache?", len(packages))).
							Value(&confirmed).
							Run()
						if err != nil {
							return err
						}
					}
					// Declining the snapshot must not skip a restore
					// requested on the same invocation.
					if !confirmed {
						fmt.Println(styleWarn("Skipping package snapshot"))
					} else {
						if err := a.manager.SetAll(packages); err != nil {
							return err
						}
						fmt.Printf("%s %d package(s) snapshotted\n", styleSuccess("Done:"), len(packages))
					}
				}
			}

			if restore {
				if a.syncer == nil {
					fmt.Println(styleWarn("Sync not configured, skipping restore"))
				} else {
					spinner, _ := pterm.DefaultSpinner.Start("Restoring from remote...")
					if err := a.syncer.Pull(cmd.Context(), true); err != nil {
						spinner.Fail(err.Error())
						return err
					}
					spinner.Success("Restore complete")
				}
			}

			if !quiet {
				fmt.Println(styleSuccess("Environment ready"))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&env, "env", "e", "", "Environment name (dev, prod, design or custom)")
	cmd.Flags().BoolVarP(&syncHomebrew, "sync-homebrew", "b", false, "Snapshot installed Homebrew packages into the cache")
	cmd.Flags().BoolVarP(&restore, "restore", "r", false, "Restore state from the sync server")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip interactive prompts")
	return cmd
}
