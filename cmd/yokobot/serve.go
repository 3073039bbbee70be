package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	yokopoke "github.com/YOKOPOKE/yokopoke-sub000"
	"github.com/YOKOPOKE/yokopoke-sub000/internal/cli"
	"github.com/YOKOPOKE/yokopoke-sub000/internal/jobs"
	httpAdapter "github.com/YOKOPOKE/yokopoke-sub000/pkg/adapters/http"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the WhatsApp webhook server",
	Long: `Starts the bot behind the WhatsApp Cloud API webhook. Inbound messages are
acknowledged immediately and processed in the background; /health and
/metrics are exposed for the platform.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}
		if cfg.WhatsApp.AccessToken == "" || cfg.WhatsApp.PhoneNumberID == "" {
			return errors.New("WHATSAPP_ACCESS_TOKEN and WHATSAPP_PHONE_ID are required")
		}
		logger := cli.NewLogger(cfg.Log)

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		app, err := cli.Build(sigCtx, cfg, nil, logger)
		if err != nil {
			return err
		}
		defer app.Close()

		var sweeper *jobs.Sweeper
		if cfg.Sweeper.Enabled {
			sweeper = jobs.NewSweeper(app.Bot.Sessions(), cfg.Sweeper.Schedule, logger.With("component", "sweeper"))
			if err := sweeper.Start(); err != nil {
				return err
			}
		}

		handler := httpAdapter.NewHandler(app.Bot, cfg.WhatsApp.VerifyToken,
			httpAdapter.WithAppSecret(cfg.WhatsApp.AppSecret),
			httpAdapter.WithMetrics(app.Metrics.Handler()),
			httpAdapter.WithHealthCheck(app.Health),
			httpAdapter.WithVersion(yokopoke.Version),
			httpAdapter.WithLogger(logger.With("component", "http")),
		)
		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("Starting Yoko Poke server", "addr", srv.Addr, "version", yokopoke.Version)
			serverErrors <- srv.ListenAndServe()
		}()

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			if sweeper != nil {
				sweeper.Stop()
			}
			return fmt.Errorf("server error: %w", err)
		case <-sigCtx.Done():
			logger.Info("Start shutdown", "signal", fmt.Sprint(sigCtx.Signal()))
		}

		// Give outstanding requests and in-flight turns a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Graceful shutdown did not complete", "timeout", cfg.Server.ShutdownTimeout, "err", err)
			if err := srv.Close(); err != nil {
				logger.Error("Error killing server", "err", err)
			}
		}
		if err := app.Bot.Wait(ctx); err != nil {
			logger.Warn("Abandoning in-flight messages", "err", err)
		}
		if sweeper != nil {
			sweeper.Stop()
		}
		logger.Info("Yoko Poke server stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Address to listen on (overrides server.addr)")
}
