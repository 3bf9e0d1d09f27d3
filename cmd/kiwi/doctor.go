package main

import (
	"fmt"

	"github.com/jwalker/kiwi/pkg/doctor"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check environment health and report drift",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			report, err := a.doctor().Run(cmd.Context())
			if err != nil {
				return err
			}

			if report.Healthy() {
				fmt.Println(styleSuccess("Everything looks good"))
				return nil
			}

			for _, issue := range report.Issues {
				switch issue.Severity {
				case doctor.SeverityError:
					fmt.Printf("%s %s\n", styleError("error:"), issue.Message)
				default:
					fmt.Printf("%s %s\n", styleWarn("warning:"), issue.Message)
				}
			}
			return nil
		},
	}
	return cmd
}
