package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"taskassign/taskboard/internal/app"
	"taskassign/taskboard/internal/auth"
	"taskassign/taskboard/internal/config"
	"taskassign/taskboard/internal/migrations"
	"taskassign/taskboard/internal/observability"
	"taskassign/taskboard/internal/sqlstore"
)

func openDB(ctx context.Context) (*sqlstore.DB, config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("load config: %w", err)
	}
	db, err := app.OpenDatabase(ctx, cfg.Database)
	if err != nil {
		return nil, config.Config{}, err
	}
	return db, cfg, nil
}

func newLogger(cfg config.Config, w io.Writer) *slog.Logger {
	return observability.NewLogger(observability.LoggerOptions{Level: cfg.Log.Level, JSON: cfg.Log.JSON, Output: w})
}

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect schema migrations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, cfg, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			return app.Migrate(cmd.Context(), db, newLogger(cfg, cmd.ErrOrStderr()))
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, _, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			m, err := migrations.New(db.SQL(), db.Dialect())
			if err != nil {
				return err
			}
			status, err := m.Status(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VERSION\tNAME\tAPPLIED\tAPPLIED AT")
			for _, st := range status {
				at := st.AppliedAt
				if at == "" {
					at = "-"
				}
				fmt.Fprintf(tw, "%d\t%s\t%t\t%s\n", st.Version, st.Name, st.Applied, at)
			}
			return tw.Flush()
		},
	})
	return cmd
}

func newUserCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	var username, password string
	createAdmin := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if username == "" || password == "" {
				return fmt.Errorf("--username and --password are required")
			}
			db, cfg, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			users, err := sqlstore.NewUserStore(db)
			if err != nil {
				return err
			}
			// Sessions are never issued here, so the in-memory store is enough.
			svc, err := auth.NewService(users, auth.NewInMemorySessionStore(), auth.ServiceConfig{SessionTTL: time.Minute})
			if err != nil {
				return err
			}
			u, err := svc.CreateUser(cmd.Context(), username, password, auth.RoleAdmin)
			if err != nil {
				return err
			}
			newLogger(cfg, cmd.ErrOrStderr()).Info("admin created", "username", u.Username, "id", u.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (id %d)\n", u.Username, u.ID)
			return nil
		},
	}
	createAdmin.Flags().StringVar(&username, "username", "", "admin username")
	createAdmin.Flags().StringVar(&password, "password", "", "admin password")
	cmd.AddCommand(createAdmin)
	return cmd
}
