package main

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/jwalker/kiwi/internal/version"
	"github.com/jwalker/kiwi/pkg/errors"
	"github.com/jwalker/kiwi/pkg/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	verbosity int
	quiet     bool

	rootCmd = &cobra.Command{
		Use:   "kiwi",
		Short: "Manage your environment: dotfiles, Homebrew packages and cloud sync",
		Long: `kiwi manages your local environment state: it tracks configuration
files through a managed symlink directory, mirrors your Homebrew
package state, and reconciles both with a remote sync server.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version.Version, version.Commit, version.Date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command, printing the failure (and its
// remediation hint when one exists) before returning.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, styleError(err.Error()))
		var kerr *errors.Error
		if stderrors.As(err, &kerr) && kerr.Remediation() != "" {
			fmt.Fprintln(os.Stderr, styleHint("hint: "+kerr.Remediation()))
		}
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-error output")

	rootCmd.AddCommand(
		newInitCmd(),
		newAddCmd(),
		newRemoveCmd(),
		newListCmd(),
		newInstallCmd(),
		newUpdateCmd(),
		newSyncCmd(),
		newConfigCmd(),
		newDoctorCmd(),
	)
}
