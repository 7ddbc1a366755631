package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"tripcopilot/config"
	"tripcopilot/handlers"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and dashboard",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), config.FromViper(v))
		},
	}
	cmd.Flags().Int("port", 8000, "listen port")
	_ = v.BindPFlag("app_port", cmd.Flags().Lookup("port"))
	return cmd
}

func serve(ctx context.Context, cfg *config.Settings) error {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	} else if cfg.AppEnv == "prod" || cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	a := newApp(ctx, cfg, true)
	defer a.Close()

	var store handlers.TripStore
	if a.store != nil {
		store = a.store
	}
	h := handlers.New(cfg, a.planner, a.critic, store)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.AppPort),
		Handler:           handlers.NewRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.KV(xlog.INFO, "status", "listening", "addr", srv.Addr, "env", cfg.AppEnv, "version", config.AppVersion)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "server failed")
	case <-ctx.Done():
	}

	logger.KV(xlog.INFO, "status", "shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return errors.WithStack(srv.Shutdown(shutdownCtx))
}
