package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install <package>...",
		Short: "Install packages via Homebrew",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			spinner, _ := pterm.DefaultSpinner.Start(fmt.Sprintf("Installing %d package(s)...", len(args)))

			if len(args) == 1 {
				pkg, err := a.manager.Install(cmd.Context(), args[0])
				if err != nil {
					spinner.Fail(err.Error())
					return err
				}
				spinner.Success(fmt.Sprintf("Installed %s (%s)", pkg.Name, orLatest(pkg.Version)))
				return nil
			}

			installed, err := a.manager.InstallAll(cmd.Context(), args)
			if err != nil {
				spinner.Fail(err.Error())
				return err
			}
			spinner.Success(fmt.Sprintf("Installed %d package(s)", len(installed)))
			return nil
		},
	}
	return cmd
}

func newUpdateCmd() *cobra.Command {
	var (
		all     bool
		pkgName string
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update packages via Homebrew",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && pkgName == "" {
				return fmt.Errorf("specify --all or --package <name>")
			}

			a, err := newApp()
			if err != nil {
				return err
			}

			label := pkgName
			if all {
				label = "all packages"
			}
			spinner, _ := pterm.DefaultSpinner.Start(fmt.Sprintf("Updating %s...", label))

			target := pkgName
			if all {
				target = ""
			}
			if err := a.manager.Update(cmd.Context(), target); err != nil {
				spinner.Fail(err.Error())
				return err
			}
			spinner.Success(fmt.Sprintf("Updated %s", label))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Update every installed package")
	cmd.Flags().StringVarP(&pkgName, "package", "p", "", "Update a specific package")
	return cmd
}

func orLatest(version string) string {
	if version == "" {
		return "latest"
	}
	return version
}
