package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/RyanBlaney/trackiq/features"
	"github.com/RyanBlaney/trackiq/logging"
	"github.com/RyanBlaney/trackiq/server"
	"github.com/RyanBlaney/trackiq/storage"
	"github.com/RyanBlaney/trackiq/transcode"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if bind != "" {
				cfg.Server.Bind = bind
			}

			lock := flock.New(cfg.LockPath())
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock %s: %w", cfg.LockPath(), err)
			}
			if !locked {
				return fmt.Errorf("another trackiq server is using %s", cfg.Paths.DatabasePath)
			}
			defer func() { _ = lock.Unlock() }()

			store, err := storage.Open(cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer store.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger := logging.GetGlobalLogger()
			if z, ok := logger.(*logging.ZapLogger); ok {
				defer func() { _ = z.Sync() }()
			}

			extractorCfg := cfg.ExtractorConfig()
			if err := transcode.NewDecoder(extractorCfg.Decoder).CheckFFmpeg(runCtx); err != nil {
				logger.Warn("ffmpeg unavailable, only WAV uploads will decode", logging.Fields{"error": err.Error()})
			}
			extractor := features.NewExtractor(extractorCfg)
			srv := server.New(cfg, extractor, store, logger)
			if err := srv.Start(runCtx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", srv.Addr())

			<-runCtx.Done()
			srv.Stop()
			logger.Info("server stopped", logging.Fields{"component": "cli"})
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Override server.bind")
	return cmd
}
