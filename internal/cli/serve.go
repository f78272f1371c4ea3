package cli

import (
	"context"
	"errors"
	"net/http"

	apphttp "tracker/internal/http"

	"github.com/spf13/cobra"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var writesPerMinute int
	cmd := publishing(&cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := opts.app
			logger := app.Logger
			srv := apphttp.NewServer(":"+app.Config.Port, app.Tracker, apphttp.Options{
				WritesPerMinute: writesPerMinute,
				Logger:          logger,
			})

			ctx, cancel := GracefulShutdown(cmd.Context(), logger)
			defer cancel()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Starting tracker server",
					"port", app.Config.Port,
					"backend", app.Backend.Type)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), app.Config.ShutdownTimeout)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Server shutdown error", "error", err)
				return err
			}
			logger.Info("Server stopped gracefully")
			return nil
		},
	})
	cmd.Flags().IntVar(&writesPerMinute, "writes-per-minute", 60, "POST requests allowed per client per minute")
	return cmd
}
