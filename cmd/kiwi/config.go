package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	var (
		reset      bool
		export     string
		importFile string
	)

	cmd := &cobra.Command{
		Use:   "config [key] [value]",
		Short: "Inspect and change kiwi configuration",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			switch {
			case reset:
				if err := a.config.Reset(); err != nil {
					return err
				}
				fmt.Println(styleSuccess("Configuration reset to defaults"))
				return nil

			case export != "":
				data, err := a.config.Export(export)
				if err != nil {
					return err
				}
				fmt.Print(string(data))
				return nil

			case importFile != "":
				data, err := os.ReadFile(importFile)
				if err != nil {
					return err
				}
				if err := a.config.Import(data); err != nil {
					return err
				}
				fmt.Println(styleSuccess("Configuration imported"))
				return nil

			case len(args) == 2:
				if err := a.config.Set(args[0], args[1]); err != nil {
					return err
				}
				fmt.Printf("%s %s = %s\n", styleSuccess("Set"), args[0], args[1])
				return nil

			case len(args) == 1:
				value, err := a.config.Get(args[0])
				if err != nil {
					return err
				}
				fmt.Println(value)
				return nil

			default:
				for _, key := range a.config.Keys() {
					value, err := a.config.Get(key)
					if err != nil {
						continue
					}
					if key == "sync_token" && value != "" {
						value = "(set)"
					}
					fmt.Printf("%s = %s\n", key, value)
				}
				return nil
			}
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "Reset configuration to defaults")
	cmd.Flags().StringVar(&export, "export", "", "Export configuration (json or yaml)")
	cmd.Flags().StringVar(&importFile, "import", "", "Import configuration from a file")
	return cmd
}
