package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/jwalker/kiwi/pkg/registry"
	"github.com/spf13/cobra"
)

func newAddCmd() *cobra.Command {
	var (
		alias    string
		noBackup bool
	)

	cmd := &cobra.Command{
		Use:   "add <path>",
		Short: "Track a dotfile for synchronization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			item, err := a.registry.Track(args[0], registry.TrackOptions{
				Alias:    alias,
				NoBackup: noBackup,
			})
			if err != nil {
				return err
			}

			if !quiet {
				fmt.Printf("%s %s\n", styleSuccess("Tracking"), item.Path)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&alias, "alias", "a", "", "Store the file under a different name")
	cmd.Flags().BoolVarP(&noBackup, "no-backup", "B", false, "Skip backup of any existing file at the target")
	return cmd
}

func newRemoveCmd() *cobra.Command {
	var (
		deleteOriginal bool
		force          bool
	)

	cmd := &cobra.Command{
		Use:   "remove <path>",
		Short: "Stop tracking a dotfile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			if deleteOriginal && !force {
				var confirmed bool
				err := huh.NewConfirm().
					Title(fmt.Sprintf("Delete the original file %s as well?", args[0])).
					Value(&confirmed).
					Run()
				if err != nil {
					return err
				}
				if !confirmed {
					fmt.Println(styleWarn("Removal cancelled"))
					return nil
				}
			}

			if err := a.registry.Untrack(args[0], deleteOriginal); err != nil {
				return err
			}

			if !quiet {
				fmt.Printf("%s %s\n", styleSuccess("Untracked"), args[0])
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&deleteOriginal, "delete", "d", false, "Also delete the original file")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip the confirmation prompt")
	return cmd
}

func newListCmd() *cobra.Command {
	var (
		listType string
		detailed bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked dotfiles and cached packages",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			if listType == "dotfiles" || listType == "all" {
				items, err := a.registry.List()
				if err != nil {
					return err
				}
				fmt.Println(styleSuccess("Tracked dotfiles:"))
				if len(items) == 0 {
					fmt.Println(styleDim("  (none)"))
				}
				for _, item := range items {
					if detailed {
						fmt.Printf("  %s -> %s  synced=%t\n", item.Name(), item.Path, item.Synced)
					} else {
						fmt.Printf("  %s\n", item.Path)
					}
				}
			}

			if listType == "packages" || listType == "all" {
				packages := a.manager.Cached()
				fmt.Println(styleSuccess("Cached packages:"))
				if len(packages) == 0 {
					fmt.Println(styleDim("  (none)"))
				}
				for _, pkg := range packages {
					version := pkg.Version
					if version == "" {
						version = "latest"
					}
					if detailed {
						installed := formatTimestamp(pkg.InstallTime)
						fmt.Printf("  %s (%s)  cask=%t deps=%d installed=%s\n",
							pkg.Name, version, pkg.IsCask, len(pkg.Dependencies), installed)
					} else {
						fmt.Printf("  %s (%s)\n", pkg.Name, version)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&listType, "type", "t", "all", "What to list: dotfiles, packages or all")
	cmd.Flags().BoolVarP(&detailed, "detailed", "d", false, "Show detailed information")
	return cmd
}

func formatTimestamp(ts int64) string {
	if ts == 0 {
		return "unknown"
	}
	return time.Unix(ts, 0).Format("2006-01-02")
}
