package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	router "github.com/dkeye/Cast/internal/adapters/http"
	signalws "github.com/dkeye/Cast/internal/adapters/signal"
	"github.com/dkeye/Cast/internal/app"
	"github.com/dkeye/Cast/internal/app/heartbeat"
	"github.com/dkeye/Cast/internal/app/orch"
	"github.com/dkeye/Cast/internal/config"
)

func main() {
	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("cast server failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:          "cast-server",
		Short:        "WebRTC signaling relay for one-to-many screen sharing",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			setupLogger(cfg)

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return run(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&cfgFile, "config", "", "config file (default config/config.<CONFIG_ENV>.yaml)")
	cmd.Flags().Int("port", 9000, "listen port ("+config.EnvPrefix+"_PORT)")
	cmd.Flags().String("mode", "release", "debug, release or test ("+config.EnvPrefix+"_MODE)")
	cmd.Flags().String("log-level", "info", "zerolog level ("+config.EnvPrefix+"_LOG_LEVEL)")
	return cmd
}

func setupLogger(cfg *config.Config) {
	if cfg.Mode == "debug" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	zerolog.SetGlobalLevel(cfg.Level())
}

func run(ctx context.Context, cfg *config.Config) error {
	o := orch.New(app.NewRegistry(), app.NewSessionTable(), app.SimplePolicy{})
	ctl := signalws.NewSignalWSController(o, cfg)

	r, err := router.SetupRouter(ctx, cfg, o, ctl)
	if err != nil {
		return err
	}

	monitor := heartbeat.New(o.Registry, cfg.HeartbeatInterval, cfg.HeartbeatTimeout)
	go monitor.Run(ctx)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("module", "main").Str("addr", addr).Msg("Cast server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	log.Info().Str("module", "main").Msg("Shutting down")
	o.CloseAll("server shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Str("module", "main").Msg("Server forced to shutdown")
	}
	log.Info().Str("module", "main").Msg("Server exited gracefully")
	return nil
}
