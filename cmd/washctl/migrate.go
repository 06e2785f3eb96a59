package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/carwash-app/carwash/internal/database"
	advisormigrations "github.com/carwash-app/carwash/services/advisor/migrations"
	usermigrations "github.com/carwash-app/carwash/services/user/migrations"
	weathermigrations "github.com/carwash-app/carwash/services/weather/migrations"
)

type schema struct {
	fsys  fs.FS
	table string
}

var schemas = map[string]schema{
	"user":    {usermigrations.FS, usermigrations.Table},
	"weather": {weathermigrations.FS, weathermigrations.Table},
	"advisor": {advisormigrations.FS, advisormigrations.Table},
}

func schemaFor(service string) (schema, error) {
	s, ok := schemas[service]
	if !ok {
		names := make([]string, 0, len(schemas))
		for n := range schemas {
			names = append(names, n)
		}
		sort.Strings(names)
		return schema{}, fmt.Errorf("unknown service %q (want one of %s)", service, strings.Join(names, ", "))
	}
	return s, nil
}

func newMigrateCmd() *cobra.Command {
	var service, dbURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect a service's schema migrations",
	}
	cmd.PersistentFlags().StringVar(&service, "service", "", "user, weather or advisor")
	cmd.PersistentFlags().StringVar(&dbURL, "database-url", "", "PostgreSQL connection URL")
	_ = cmd.MarkPersistentFlagRequired("service")
	_ = cmd.MarkPersistentFlagRequired("database-url")

	withMigrator := func(fn func(cmd *cobra.Command, m *migrate.Migrate) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			s, err := schemaFor(service)
			if err != nil {
				return err
			}
			db, err := sql.Open("postgres", dbURL)
			if err != nil {
				return err
			}
			m, err := database.NewMigrator(db, s.fsys, s.table)
			if err != nil {
				db.Close()
				return err
			}
			defer m.Close()
			return fn(cmd, m)
		}
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m *migrate.Migrate) error {
			if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("migrate up: %w", err)
			}
			cmd.Printf("%s schema is up to date\n", service)
			return nil
		}),
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m *migrate.Migrate) error {
			if steps < 1 {
				return fmt.Errorf("--steps must be at least 1")
			}
			if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("migrate down: %w", err)
			}
			cmd.Printf("%s schema rolled back %d step(s)\n", service, steps)
			return nil
		}),
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m *migrate.Migrate) error {
			v, dirty, err := m.Version()
			if errors.Is(err, migrate.ErrNilVersion) {
				cmd.Printf("%s: no migrations applied\n", service)
				return nil
			}
			if err != nil {
				return err
			}
			out := strconv.FormatUint(uint64(v), 10)
			if dirty {
				out += " (dirty)"
			}
			cmd.Printf("%s: %s\n", service, out)
			return nil
		}),
	}

	cmd.AddCommand(up, down, version)
	return cmd
}
