package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lexflow/lexflow-api/internal/config"
	dbpkg "github.com/lexflow/lexflow-api/internal/infra/db"
	"github.com/lexflow/lexflow-api/internal/infra/logger"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log, err := logger.New(cfg.Log.Level)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			d, err := dbpkg.New(cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			if err := dbpkg.Migrate(d); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			log.Info("database migrated", zap.String("dsn_kind", dsnKind(cfg.Database.DSN)))
			return nil
		},
	}
}

func dsnKind(dsn string) string {
	if strings.HasPrefix(dsn, "sqlite:") {
		return "sqlite"
	}
	return "postgres"
}
