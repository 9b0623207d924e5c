// SPDX-License-Identifier: AGPL-3.0-or-later

/*
civerify - local continuous-integration verification for the bot repository.
It bootstraps the checking tools, runs every quality gate in a fixed order and
reports a single pass/fail decision through its exit code.

This program is free software licensed under the terms of the GNU AGPL v3 or later.

See https://www.gnu.org/licenses/ for license details.

*/

package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd constructs the civerify root Cobra command. Invoked with no
// arguments it runs the full verification.
func NewRootCmd() *cobra.Command {
	version := os.Getenv("CIVERIFY_VERSION")
	if version == "" {
		version = "0.0.0-dev"
	}

	cmd := &cobra.Command{
		Use:   "civerify",
		Short: "Run every quality gate for this repository",
		Long: `Bootstraps the checking tools and registers git hooks, then runs, in order:
hook checks, lint, type check, security scan (all fail the run) and the
dependency scan (advisory only). Exits non-zero if any failing check failed.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			return runVerify(cmd.Context(), cmd.OutOrStdout(), wd)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number of civerify",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "civerify version %s\n", version)
		},
	})
	cmd.AddCommand(newBackupCmd())

	return cmd
}
