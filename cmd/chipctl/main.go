package main

import (
	"context"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	config "github.com/avvvet/tapchip-services/configs"
	"github.com/avvvet/tapchip-services/internal/chipsvc/db"
)

const SERVICE_NAME = "chipctl"

type storeEnv struct {
	Driver     string `env:"STORE_DRIVER" envDefault:"postgres"`
	DBUrl      string `env:"POSTGRES_URL"`
	SQLitePath string `env:"SQLITE_PATH"  envDefault:"tapchip.db"`
}

var (
	storeCfg storeEnv
	stores   *db.Stores
)

var rootCmd = &cobra.Command{
	Use:   "chipctl",
	Short: "Operator tooling for tap chips",
	Long: `chipctl manages the chip inventory directly against the store: schema
migration, bulk import of unassigned chips from a UID list, and administrative
release or reassignment of claimed chips.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		target := storeCfg.DBUrl
		if storeCfg.Driver == db.DriverSQLite {
			target = storeCfg.SQLitePath
		}
		s, err := db.Open(cmd.Context(), storeCfg.Driver, target)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		stores = s
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if stores != nil {
			stores.Close()
		}
	},
}

func init() {
	config.LoadEnv(SERVICE_NAME)
	if err := env.Parse(&storeCfg); err != nil {
		log.Fatalf("parse env: %v", err)
	}

	rootCmd.PersistentFlags().StringVar(&storeCfg.Driver, "driver", storeCfg.Driver, "store driver (postgres|sqlite)")
	rootCmd.PersistentFlags().StringVar(&storeCfg.DBUrl, "dsn", storeCfg.DBUrl, "postgres connection string")
	rootCmd.PersistentFlags().StringVar(&storeCfg.SQLitePath, "sqlite-path", storeCfg.SQLitePath, "sqlite database file")

	rootCmd.AddCommand(migrateCmd, importCmd, releaseCmd, assignCmd, userCmd, companyCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
