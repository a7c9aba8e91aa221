package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/TomMcIver/Stock-Port/internal/app"
	appctx "github.com/TomMcIver/Stock-Port/pkg/context"
	"github.com/TomMcIver/Stock-Port/pkg/routes"
	"github.com/TomMcIver/Stock-Port/pkg/tracing"
	"github.com/TomMcIver/Stock-Port/pkg/tracing/exporters"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand(root *rootOptions) *cobra.Command {
	var start app.Options

	command := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, and the Kafka consumer when enabled",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("consume") {
				start.Consume = root.cfg.KafkaConsumerEnabled
			}
			return serve(cmd.Context(), root, start)
		},
	}
	command.Flags().BoolVar(&start.Migrate, "migrate", false, "apply Postgres migrations before starting")
	command.Flags().BoolVar(&start.Consume, "consume", false, "run the Kafka article consumer (default KAFKA_CONSUMER_ENABLED)")
	command.Flags().BoolVar(&start.Offline, "offline", false, "use an in-memory reference store")
	command.Flags().StringVar(&start.SeedPath, "seed", "", "securities YAML for the in-memory store")
	return command
}

func serve(ctx context.Context, root *rootOptions, opts app.Options) error {
	ctx, stop := signalContext(ctx)
	defer stop()
	ctx = appctx.SetOrigin(ctx, appctx.OriginHTTP)

	shutdownTracing, err := setupTracing(ctx, root)
	if err != nil {
		return err
	}
	defer shutdownTracing()

	a, err := app.New(root.cfg, root.logger)
	if err != nil {
		return err
	}
	if err := a.Start(ctx, opts); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := a.Stop(stopCtx); err != nil {
			root.logger.WithError(err).Error("Failed to stop services")
		}
	}()

	serviceName := ""
	if root.cfg.TracingEnabled {
		serviceName = root.cfg.AppName
	}
	if _, err := a.RegisterServices(); err != nil {
		return err
	}
	e := routes.New(routes.Dependencies{
		ServiceName:  serviceName,
		Logger:       root.logger,
		Health:       a.Health,
		AllowOrigins: root.cfg.AllowOrigins,
	})

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", root.cfg.Port),
		Handler:        e,
		ReadTimeout:    time.Duration(root.cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:   time.Duration(root.cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:    time.Duration(root.cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		MaxHeaderBytes: root.cfg.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		root.logger.WithFields(map[string]any{"port": root.cfg.Port}).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	root.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func setupTracing(ctx context.Context, root *rootOptions) (func(), error) {
	if !root.cfg.TracingEnabled {
		return func() {}, nil
	}
	shutdown, err := tracing.Setup(ctx, root.cfg.AppName, exporters.ConfigFor(root.cfg.OTLPEndpoint, root.cfg.OTLPProtocol))
	if err != nil {
		return nil, err
	}
	return func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			root.logger.WithError(err).Warn("Failed to flush traces")
		}
	}, nil
}
