package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/veil-labs/veil/internal/config"
	"github.com/veil-labs/veil/internal/detector"
	"github.com/veil-labs/veil/internal/llm"
	"github.com/veil-labs/veil/internal/server"
	"github.com/veil-labs/veil/internal/storage"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the veil HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "HTTP server port")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var detOpts []detector.Option
	if cfg.PatternFile != "" {
		detOpts = append(detOpts, detector.WithPatternFile(cfg.PatternFile))
	}
	det, err := detector.New(detOpts...)
	if err != nil {
		return err
	}

	opts := []server.Option{}

	if cfg.Provider != "" {
		provider, err := llm.NewProvider(cfg.Provider, cfg.APIKey, cfg.Model)
		if err != nil {
			return fmt.Errorf("configuring external source: %w", err)
		}
		opts = append(opts, server.WithExternalSource(llm.NewSource(provider)))
		log.Info().Str("provider", provider.Name()).Msg("external_source_enabled")
	}

	var sweeper *storage.Sweeper
	if err := cfg.EnsureDataDir(); err != nil {
		log.Warn().Err(err).Msg("storage_unavailable")
	} else if kv, err := storage.NewStore(cfg.StoreDBPath()); err != nil {
		log.Warn().Err(err).Msg("storage_unavailable")
	} else {
		defer kv.Close()
		opts = append(opts, server.WithStorage(kv))
		sweeper = storage.NewSweeper(kv, cfg.RetentionDays)
		if err := sweeper.Start(); err != nil {
			return fmt.Errorf("starting retention sweep: %w", err)
		}
		defer sweeper.Stop()
	}

	srv := server.New(det, opts...)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", servePort),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", servePort).Msg("veil_server_started")
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting_down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(ctx)
	}
}
