package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nijaru/yt-digest/handlers/api"
	"github.com/nijaru/yt-digest/logger"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			log, err := logger.New(logger.Options{
				Dir:        cfg.LogDir,
				Debug:      cfg.Debug,
				JSONFormat: cfg.IsProduction(),
			})
			if err != nil {
				return errors.Wrap(err, "failed to initialize logger")
			}

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := buildApplication(sigCtx, cfg, log)
			if err != nil {
				return err
			}
			defer func() {
				if err := app.Close(); err != nil {
					log.WithError(err).Error("Database shutdown error")
				}
			}()

			server := api.NewServer(cfg,
				api.WithLogger(log),
				api.WithServices(app.services),
			)

			serverErr := make(chan error, 1)
			go func() {
				if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
				close(serverErr)
			}()

			select {
			case err := <-serverErr:
				if err != nil {
					return errors.Wrap(err, "server error")
				}
				return nil
			case <-sigCtx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return errors.Wrap(err, "server shutdown error")
			}
			log.Info("Server stopped")
			return nil
		},
	}
}
