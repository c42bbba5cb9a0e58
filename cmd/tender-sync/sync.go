package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kirillslovesnov/tender-sync/internal/config"
	"github.com/kirillslovesnov/tender-sync/internal/store"
	"github.com/kirillslovesnov/tender-sync/pkg/log"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a single batch and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}

		logger := log.InitLog(log.Level(cfg.Service.LogLevel))
		defer func() { _ = logger.Sync() }()

		db, err := store.InitDB(cfg)
		if err != nil {
			zap.S().Fatalw("initializing data store", "error", err)
		}

		st := store.NewStore(db)
		defer st.Close()

		if err := st.InitialMigration(); err != nil {
			zap.S().Fatalw("running initial migration", "error", err)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		p, err := newPipeline(ctx, cfg, st)
		if err != nil {
			zap.S().Fatalw("building sync pipeline", "error", err)
		}

		report, err := p.driver.Run(ctx)
		if err != nil {
			zap.S().Errorw("batch run failed", "error", err)
			return err
		}

		zap.S().Infow("batch finished",
			"total", report.Total,
			"written", report.Written,
			"filtered", report.Filtered,
			"duplicates", report.Duplicates,
			"failed", report.Failed,
		)
		return nil
	},
}
