package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	httpapi "github.com/i474232898/wxarchive/internal/api/http"
	"github.com/i474232898/wxarchive/internal/scheduler"
)

func newServeCmd(global *globalFlags) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the archive API and run scheduled imports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := setup(global)
			if err != nil {
				return err
			}
			defer e.service.Close()
			if port != "" {
				e.app.Port = port
			}

			// Scheduler that periodically imports new observations.
			sched := scheduler.New(e.service, e.app.ScheduleSource, e.app.ScheduleInterval, e.app.ScheduleCron)
			if err := sched.Start(); err != nil {
				return err
			}
			defer sched.Stop()

			app := httpapi.NewApp(appName, e.service, e.location)

			go func() {
				if err := app.Listen(":" + e.app.Port); err != nil {
					logrus.WithError(err).Error("fiber server stopped")
				}
			}()
			logrus.WithField("port", e.app.Port).Info("archive API listening")

			// Wait for termination signal
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := app.ShutdownWithContext(shutdownCtx); err != nil {
				logrus.WithError(err).Error("error during shutdown")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (default $PORT or 8080)")
	return cmd
}
