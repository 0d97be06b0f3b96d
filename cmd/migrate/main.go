package main

import (
	"fmt"
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"sand/api/internal/config"
	"sand/api/internal/database"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dsn string

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the sand database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dsn, "dsn", "", "postgres connection string (defaults to SAND_POSTGRES_DSN)")

	open := func() (*database.Migrator, error) {
		url := dsn
		if url == "" {
			cfg, err := config.Load()
			if err != nil {
				return nil, oops.In("migrate").With("operation", "load config").Wrap(err)
			}
			url = cfg.Postgres.DSN
		}
		migrator, err := database.NewMigrator(url)
		if err != nil {
			return nil, oops.In("migrate").With("operation", "open migrator").Wrap(err)
		}
		return migrator, nil
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				migrator, err := open()
				if err != nil {
					return err
				}
				defer migrator.Close()

				if err := migrator.Up(); err != nil {
					return err
				}
				cmd.Println("Migrations applied")
				return nil
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back every migration",
			RunE: func(cmd *cobra.Command, _ []string) error {
				migrator, err := open()
				if err != nil {
					return err
				}
				defer migrator.Close()

				if err := migrator.Down(); err != nil {
					return err
				}
				cmd.Println("Migrations rolled back")
				return nil
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: func(cmd *cobra.Command, _ []string) error {
				migrator, err := open()
				if err != nil {
					return err
				}
				defer migrator.Close()

				version, dirty, err := migrator.Version()
				if err != nil {
					return err
				}
				cmd.Printf("version %d (dirty: %t)\n", version, dirty)
				return nil
			},
		},
	)

	return root
}
