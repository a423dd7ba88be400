package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/use-agent/pagecrawl/api"
	"github.com/use-agent/pagecrawl/cache"
	"github.com/use-agent/pagecrawl/crawler"
	"github.com/use-agent/pagecrawl/robots"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the HTTP API.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		slog.Info("pagecrawl starting",
			"host", cfg.Server.Host,
			"port", cfg.Server.Port,
			"mode", cfg.Server.Mode,
			"auth", cfg.Auth.Enabled,
		)
		if cfg.Auth.Enabled && len(cfg.Auth.APIKeys) == 0 {
			slog.Warn("auth enabled but PAGECRAWL_API_KEYS is empty, API is open")
		}

		f := newFetcher()

		policies := cache.New[*robots.Policy](cfg.Robots.CacheMaxEntries, cfg.Robots.CacheTTL)
		defer policies.Close()

		gopts, err := robots.GateOptionsFromConfig(cfg.Robots)
		if err != nil {
			return err
		}
		gopts.Cache = policies
		gate := robots.NewGate(f, gopts)

		opts := crawler.Options{
			Timeout:      cfg.Fetch.Timeout,
			RecheckPages: cfg.Robots.RecheckPages,
			Reporter:     crawler.NewLogReporter(nil),
		}
		if cfg.Robots.Enabled {
			opts.Gate = gate
		}
		cr := crawler.New(f, opts)

		router := api.NewRouter(cr, f, gate, policies, cfg, time.Now())

		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := &http.Server{
			Addr:    addr,
			Handler: router,
		}

		errCh := make(chan error, 1)
		go func() {
			slog.Info("HTTP server listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()

		select {
		case err := <-errCh:
			return fmt.Errorf("HTTP server error: %w", err)
		case <-cmd.Context().Done():
			slog.Info("shutdown signal received")
		}

		// Give in-flight crawls 5 seconds to complete.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("HTTP server forced shutdown", "error", err)
		} else {
			slog.Info("HTTP server drained gracefully")
		}
		slog.Info("pagecrawl stopped")
		return nil
	},
}
