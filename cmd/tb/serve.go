package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/zulandar/taskboard/internal/dashboard"
	"github.com/zulandar/taskboard/internal/db"
	"github.com/zulandar/taskboard/internal/logging"
	"github.com/zulandar/taskboard/internal/session"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the board web server",
		Long: `Migrates the database, opens the configured session backend and serves
boards at /projects/<project>/rdb/<kind>. The user is taken from the
X-Remote-User header set by the fronting proxy.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Taskboard config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides server.port)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	if err := logging.Setup(cfg.Log, cmd.ErrOrStderr()); err != nil {
		return err
	}

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	if err := db.SeedStatuses(gormDB); err != nil {
		return err
	}

	store, err := session.Open(cfg.Session, gormDB)
	if err != nil {
		return err
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	if dbStore, ok := store.(*session.DBStore); ok {
		if err := session.NewSweeper(dbStore, cfg.Session.SweepSchedule).Start(ctx); err != nil {
			return err
		}
		log.WithField("schedule", cfg.Session.SweepSchedule).Info("session sweeper started")
	}

	return dashboard.Start(ctx, dashboard.StartOpts{
		DB:       gormDB,
		Config:   cfg,
		Sessions: store,
		Port:     port,
		Out:      cmd.OutOrStdout(),
	})
}
