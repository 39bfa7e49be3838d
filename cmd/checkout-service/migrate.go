package main

import (
	"fmt"

	"github.com/dmehra2102/checkout-service/internal/config"
	storage "github.com/dmehra2102/checkout-service/internal/storage/postgres"
	"github.com/dmehra2102/checkout-service/pkg/logging"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logging.New(cfg.LogLevel)

			pool, err := pgxpool.New(cmd.Context(), cfg.PGURL)
			if err != nil {
				return fmt.Errorf("pg connect: %w", err)
			}
			defer pool.Close()

			return storage.Migrate(cmd.Context(), log, pool)
		},
	}
}
