// SPDX-License-Identifier: AGPL-3.0-or-later
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bartekus/civerify/cmd/civerify/internal/clierr"
	"github.com/bartekus/civerify/internal/backup"
	"github.com/bartekus/civerify/internal/config"
)

func newBackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Back up the bot's SQLite database",
		Long: `Copies DB_PATH into BACKUP_DIR/<YYYY-MM-DD>.db with VACUUM INTO, checks the
integrity of both files and deletes copies older than BACKUP_DAYS days.
Settings are read from the environment, a .env file in the current directory,
or the backup section of .civerify.yaml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			cfg, err := config.LoadWithDotEnv(wd)
			if err != nil {
				return clierr.Wrap(clierr.ExitUsage, "loading config", err)
			}

			res, err := backup.Run(cmd.Context(), backup.Options{
				Source:   cfg.Backup.DBPath,
				Dir:      cfg.Backup.Dir,
				KeepDays: cfg.Backup.KeepDays,
			})
			if err != nil {
				return clierr.Wrap(clierr.ExitFailure, "backup failed", err)
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Backup created: %s\n", res.Path)
			for _, r := range res.Removed {
				_, _ = fmt.Fprintf(out, "Removed old backup: %s\n", r)
			}
			return nil
		},
	}
}
