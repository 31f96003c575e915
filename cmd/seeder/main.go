// cmd/seeder/main.go
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unclebandit/prdesk-backend/internal/config"
	"github.com/unclebandit/prdesk-backend/internal/db"
	"github.com/unclebandit/prdesk-backend/internal/logger"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "seeder",
		Short:        "Database migrations and fixture loading",
		SilenceUsage: true,
	}

	migrateCmd := &cobra.Command{Use: "migrate", Short: "Apply or roll back schema migrations"}
	migrateCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(cmd.Context(), func(conn *sql.DB, logg *zap.Logger) error {
					return db.MigrateUp(conn, logg)
				})
			},
		},
		&cobra.Command{
			Use:   "down [steps]",
			Short: "Roll back migrations (default 1)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				steps := 1
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil || n < 1 {
						return fmt.Errorf("steps must be a positive integer, got %q", args[0])
					}
					steps = n
				}
				return withDB(cmd.Context(), func(conn *sql.DB, logg *zap.Logger) error {
					return db.MigrateDown(conn, steps, logg)
				})
			},
		},
	)

	seedCmd := &cobra.Command{
		Use:   "seed <fixtures.yaml>",
		Short: "Load clients, projects, boilerplate and campaigns from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			fx, err := parseFixtures(raw)
			if err != nil {
				return err
			}
			return withDB(cmd.Context(), func(conn *sql.DB, logg *zap.Logger) error {
				if err := db.MigrateUp(conn, logg); err != nil {
					return err
				}
				stats, err := newSeeder(conn).load(cmd.Context(), fx)
				if err != nil {
					return err
				}
				logg.Info("database seeding completed",
					zap.String("file", args[0]),
					zap.Int("clients", stats.clients),
					zap.Int("projects", stats.projects),
					zap.Int("sections", stats.sections),
					zap.Int("campaigns", stats.campaigns),
				)
				return nil
			})
		},
	}

	root.AddCommand(migrateCmd, seedCmd)
	return root
}

func withDB(ctx context.Context, fn func(conn *sql.DB, logg *zap.Logger) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logg, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Printf("init logger: %v", err)
		logg = zap.NewNop()
	}
	defer logg.Sync()

	conn, err := db.Open(ctx, cfg, logg)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(conn, logg)
}
