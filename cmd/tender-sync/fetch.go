package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kirillslovesnov/tender-sync/internal/config"
	"github.com/kirillslovesnov/tender-sync/internal/sbis"
	"github.com/kirillslovesnov/tender-sync/pkg/log"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch TENDER_ID",
	Short: "Fetch one tender and print the raw vendor payload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}

		logger := log.InitLog(log.Level(cfg.Service.LogLevel))
		defer func() { _ = logger.Sync() }()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

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

		record, err := client.Fetch(ctx, args[0])
		if err != nil {
			return err
		}

		fmt.Fprintln(os.Stdout, string(record.Raw))
		return nil
	},
}
