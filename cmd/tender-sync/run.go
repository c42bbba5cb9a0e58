package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lthibault/jitterbug/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	apiserver "github.com/kirillslovesnov/tender-sync/internal/api_server"
	"github.com/kirillslovesnov/tender-sync/internal/config"
	"github.com/kirillslovesnov/tender-sync/internal/sbis"
	"github.com/kirillslovesnov/tender-sync/internal/sheets"
	"github.com/kirillslovesnov/tender-sync/internal/store"
	tendersync "github.com/kirillslovesnov/tender-sync/internal/sync"
	"github.com/kirillslovesnov/tender-sync/pkg/log"
)

// refreshTickInterval is how often the refresher walks the summary sheet.
// The age threshold itself comes from configuration.
const refreshTickInterval = 24 * time.Hour

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the tender-sync service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}

		logger := log.InitLog(log.Level(cfg.Service.LogLevel))
		defer func() { _ = logger.Sync() }()

		zap.S().Info("Starting tender-sync service")
		defer zap.S().Info("Tender-sync service stopped")

		zap.S().Info("Initializing data store")
		db, err := store.InitDB(cfg)
		if err != nil {
			zap.S().Fatalw("initializing data store", "error", err)
		}

		st := store.NewStore(db)
		defer st.Close()

		if err := st.InitialMigration(); err != nil {
			zap.S().Fatalw("running initial migration", "error", err)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		p, err := newPipeline(ctx, cfg, st)
		if err != nil {
			zap.S().Fatalw("building sync pipeline", "error", err)
		}

		go func() {
			defer cancel()
			listener, err := net.Listen("tcp", cfg.Service.Address)
			if err != nil {
				zap.S().Fatalw("creating listener", "error", err)
			}

			server := apiserver.New(cfg, st, p.client, p.driver, listener)
			if err := server.Run(ctx); err != nil {
				zap.S().Fatalw("running api server", "error", err)
			}
		}()

		go runSyncLoop(ctx, cfg, p.driver)

		if cfg.Service.RefreshAfter > 0 {
			refresher := tendersync.NewRefresher(p.values, p.client, cfg.Sheets.SummarySheet, cfg.Service.RefreshAfter)
			go runRefreshLoop(ctx, refresher)
		}

		<-ctx.Done()
		return nil
	},
}

func runSyncLoop(ctx context.Context, cfg *config.Config, driver *tendersync.Driver) {
	ticker := jitterbug.New(cfg.Service.SyncInterval, &jitterbug.Norm{Stdev: 30 * time.Second})
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := driver.Run(ctx)
			if err != nil {
				zap.S().Named("sync").Errorw("scheduled batch failed", "error", err)
				continue
			}
			zap.S().Named("sync").Infow("scheduled batch finished",
				"total", report.Total,
				"written", report.Written,
				"filtered", report.Filtered,
				"duplicates", report.Duplicates,
				"failed", report.Failed,
			)
		}
	}
}

func runRefreshLoop(ctx context.Context, refresher *tendersync.Refresher) {
	ticker := jitterbug.New(refreshTickInterval, &jitterbug.Norm{Stdev: 5 * time.Minute})
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := refresher.Run(ctx); err != nil {
				zap.S().Named("refresh").Errorw("refresh pass failed", "error", err)
			}
		}
	}
}

// pipeline bundles the components every command needs: the session-backed
// vendor client, the spreadsheet accessor and the batch driver.
type pipeline struct {
	values sheets.Values
	client *sbis.Client
	driver *tendersync.Driver
}

func newPipeline(ctx context.Context, cfg *config.Config, st store.Store) (*pipeline, error) {
	session := sbis.NewSessionCache(sbis.SessionConfig{
		Login:      cfg.Sbis.Login,
		Password:   cfg.Sbis.Password,
		AuthURL:    cfg.Sbis.AuthURL,
		SessionTTL: cfg.Sbis.SessionTTL,
		Timeout:    cfg.Sbis.RequestTimeout,
	})
	client := sbis.NewClient(sbis.ClientConfig{
		SearchURL: cfg.Sbis.SearchURL,
		Timeout:   cfg.Sbis.RequestTimeout,
	}, session)

	values, err := sheets.NewValues(ctx, cfg.Sheets.CredentialsFile, cfg.Sheets.SpreadsheetID)
	if err != nil {
		return nil, err
	}

	queue := sheets.NewQueue(values, cfg.Sheets.WorklistSheet)
	writer := sheets.NewWriter(values, sheets.WriterConfig{
		SummarySheet:    cfg.Sheets.SummarySheet,
		NoProductsSheet: cfg.Sheets.NoProductsSheet,
		WorklistSheet:   cfg.Sheets.WorklistSheet,
		WriteDelay:      cfg.Service.WriteDelay,
	})

	driver := tendersync.NewDriver(session, queue, client, writer, st.SyncRun(), cfg.Service.BatchLimit)

	return &pipeline{values: values, client: client, driver: driver}, nil
}
