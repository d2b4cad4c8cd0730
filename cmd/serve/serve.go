// Package serve runs the diagnosis HTTP API.
package serve

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cardoc/cardoc-go/internal/api"
	"github.com/cardoc/cardoc-go/internal/conf"
	"github.com/cardoc/cardoc-go/internal/logger"
	"github.com/cardoc/cardoc-go/internal/observability"
	"github.com/cardoc/cardoc-go/internal/service"
	"github.com/cardoc/cardoc-go/internal/telemetry"
)

// telemetryFlushTimeout bounds the final Sentry flush on exit.
const telemetryFlushTimeout = 2 * time.Second

// Command creates the serve command.
func Command(ctx *conf.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the diagnosis HTTP API",
		Long: `Serve the engine-sound and dashboard diagnosis endpoints with the
storage, cache, archive, notification, MQTT, narration and tutorial
collaborators enabled in the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return Run(sigCtx, ctx)
		},
	}

	setupFlags(cmd)
	return cmd
}

func setupFlags(cmd *cobra.Command) {
	cmd.Flags().String("listen", "", "host:port for the HTTP API")
	cmd.Flags().Bool("metrics", false, "Expose Prometheus metrics on /metrics")

	_ = viper.BindPFlag("webserver.listen", cmd.Flags().Lookup("listen"))
	_ = viper.BindPFlag("metrics.enabled", cmd.Flags().Lookup("metrics"))
}

// Run serves the API until ctx is cancelled, then shuts the server and the
// service collaborators down.
func Run(ctx context.Context, app *conf.Context) error {
	log := logger.Global().Module("serve")
	settings := app.Settings
	defer telemetry.Shutdown(telemetryFlushTimeout)

	var metrics *observability.Metrics
	if settings.Metrics.Enabled {
		m, err := observability.NewMetrics()
		if err != nil {
			return err
		}
		metrics = m
	}

	svc, err := service.NewFromSettings(ctx, settings, metrics)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Warn("service shutdown reported errors", logger.Error(err))
		}
	}()

	opts := []api.ServerOption{api.WithBuildInfo(app.Build)}
	if metrics != nil {
		opts = append(opts, api.WithMetrics(metrics))
	}
	server, err := api.New(settings, svc, opts...)
	if err != nil {
		return err
	}

	server.Start()
	log.Info("cardoc serving",
		logger.String("version", app.Build.GetVersion()),
		logger.String("listen", settings.WebServer.Listen))

	waitErr := server.Wait(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), api.DefaultShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return waitErr
}
