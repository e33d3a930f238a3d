package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sravani167/speech-service/internal/config"
	"github.com/sravani167/speech-service/internal/metrics"
	"github.com/sravani167/speech-service/internal/recognizer"
	"github.com/sravani167/speech-service/internal/server"
	"github.com/sravani167/speech-service/internal/transcribe"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(app *appState) *cobra.Command {
	var (
		bind string
		port int
	)

	defaults := config.Default().Server

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP transcription service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := app.cfg
			if cmd.Flags().Changed("bind") {
				cfg.Server.Bind = bind
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			serveFn := app.serveFn
			if serveFn == nil {
				serveFn = app.serve
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serveFn(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&bind, "bind", defaults.Bind, "Address to bind the HTTP server to")
	cmd.Flags().IntVar(&port, "port", defaults.Port, "Port to listen on")

	return cmd
}

func (a *appState) serve(ctx context.Context, cfg config.Config) error {
	capability, err := recognizer.New(cfg.Recognizer, a.log())
	if err != nil {
		return err
	}
	defer func() {
		if err := capability.Close(); err != nil {
			a.log().Warn("failed to release recognizer", zap.Error(err))
		}
	}()

	m := metrics.New()
	engine := transcribe.New(capability, transcribe.WithLogger(a.log()), transcribe.WithMetrics(m))

	a.log().Info("recognizer ready", zap.String("engine", capability.Name()), zap.String("addr", cfg.Addr()))

	srv := server.New(engine, server.Options{
		Addr:            cfg.Addr(),
		MaxUploadBytes:  int64(cfg.Server.MaxUploadMB) << 20,
		MaxConcurrent:   cfg.Server.MaxConcurrent,
		UploadDir:       cfg.Server.UploadDir,
		ReadTimeout:     seconds(cfg.Server.ReadTimeoutSec),
		WriteTimeout:    seconds(cfg.Server.WriteTimeoutSec),
		ShutdownTimeout: seconds(cfg.Server.ShutdownTimeoutSec),
		Metrics:         m,
		Logger:          a.log(),
	})
	return srv.Run(ctx)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
