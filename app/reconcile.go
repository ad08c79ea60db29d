package app

import (
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/botforge-app/botforge/internal/config"
	"github.com/botforge-app/botforge/internal/db/dsn"
	"github.com/botforge-app/botforge/internal/logger"
	"github.com/botforge-app/botforge/internal/quota"
)

func init() { //nolint: gochecknoinits
	reconcileCmd.Flags().StringVar(&configPath, "config", "", "Path to the configuration directory")

	rootCmd.AddCommand(reconcileCmd)
}

// reconcileCmd runs a single usage ledger reconciliation sweep and exits.
// The same sweep runs periodically inside the daemon; this command exists for
// operators who want to heal counter drift immediately.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recompute subscription usage counters from actual resource counts",
	PreRun: func(_ *cobra.Command, _ []string) {
		if cfg, err = config.ReadConfig(configPath); err != nil {
			panic(err)
		}

		if err = logger.Init(cfg.Log); err != nil {
			panic(err)
		}
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		db, err := gorm.Open(dsn.Dialector(&cfg), &gorm.Config{})
		if err != nil {
			return err
		}

		return quota.NewReconciler(db, quota.NewGuard(db)).Run()
	},
}
