package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vegasq/ncfstore/api"
	"github.com/vegasq/ncfstore/store"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the event store over HTTP",
		Long: `Load the data directory, accept events and queries over HTTP and save
periodically. Data is saved once more on shutdown (SIGINT or SIGTERM).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	return cmd
}

func serve(ctx context.Context, a *app, addr string) error {
	profiles := store.NewProfileStore()
	events := store.NewEventStore(profiles)

	pm, err := store.NewPersistenceManager(profiles, events, store.PersistenceOptions{
		DataDir:       a.cfg.DataDir,
		Compression:   a.cfg.Compression,
		SaveInterval:  a.cfg.SaveInterval,
		RetentionDays: a.cfg.RetentionDays,
		Logger:        a.log.Named("persistence"),
	})
	if err != nil {
		return err
	}
	if err := pm.LoadAll(); err != nil {
		return err
	}
	pm.Start(ctx)

	server := api.NewServer(store.NewEngine(profiles, events), profiles, events, a.log.Named("api"), api.WithPersistence(pm))
	serveErr := server.ListenAndServe(ctx, addr)

	if err := pm.Stop(); err != nil {
		a.log.Error("Final save failed", zap.Error(err))
		return errors.Join(serveErr, err)
	}
	return serveErr
}
