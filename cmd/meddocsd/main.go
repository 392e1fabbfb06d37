package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/joseph-ayodele/meddocs/internal/app"
	"github.com/joseph-ayodele/meddocs/internal/common"
	coreasync "github.com/joseph-ayodele/meddocs/internal/core/async"
	"github.com/joseph-ayodele/meddocs/internal/export"
	"github.com/joseph-ayodele/meddocs/internal/ingest"
	"github.com/joseph-ayodele/meddocs/internal/metrics"
	"github.com/joseph-ayodele/meddocs/internal/server"
	"github.com/joseph-ayodele/meddocs/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := common.LoadConfigFile(os.Getenv("MEDDOCS_CONFIG"))
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}
	logger := common.NewLogger(cfg.Logging.Level, cfg.Logging.Format, os.Stdout)
	slog.SetDefault(logger)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("meddocsd stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}

func run(ctx context.Context, cfg *common.Config, logger *slog.Logger) error {
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(prometheus.DefaultRegisterer)
	}

	st, err := server.ConnectStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Ping(ctx, 3*time.Second); err != nil {
		return err
	}
	logger.Info("DB health OK", "driver", cfg.Database.Driver)

	pipe, err := app.BuildPipeline(ctx, cfg, m, logger)
	if err != nil {
		return err
	}
	defer pipe.Close()

	pub := app.NewPublisher(cfg.Events, m, logger)
	if pub != nil {
		defer func() {
			if err := pub.Close(); err != nil {
				logger.Warn("closing event producer", "error", err)
			}
		}()
	}
	proc := app.NewProcessor(cfg, pipe.Assembler, st.Documents, pub, m, logger)

	queue := coreasync.NewProcessorQueue(proc, logger,
		coreasync.WithWorkers(cfg.Server.Workers),
		coreasync.WithQueueSize(cfg.Server.QueueSize),
		coreasync.WithProcessTimeout(3*time.Minute),
		coreasync.WithMetrics(m),
	)

	uploads, err := storage.NewLocalArchive(cfg.Server.UploadDir)
	if err != nil {
		return err
	}

	checker := server.NewHealthChecker(5*time.Second, logger)
	checker.Register("database", true, func(ctx context.Context) error {
		return st.Ping(ctx, 2*time.Second)
	})
	if pipe.Cache != nil {
		checker.Register("redis", false, pipe.Cache.Ping)
	}

	opts := []server.Option{
		server.WithQueue(queue),
		server.WithExporter(export.NewService(st.Documents, logger)),
		server.WithHealth(checker),
		server.WithMetrics(m),
		server.WithMaxUploadBytes(cfg.Server.MaxUploadBytes),
	}
	if cfg.Storage.GCSBucket != "" {
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return err
		}
		defer client.Close()
		opts = append(opts, server.WithMirror(storage.NewGCSArchive(client, cfg.Storage.GCSBucket, cfg.Storage.GCSPrefix, logger)))
		logger.Info("mirroring uploads to GCS", "bucket", cfg.Storage.GCSBucket, "prefix", cfg.Storage.GCSPrefix)
	}

	srv := server.NewServer(proc, st.Documents, uploads, logger, opts...)
	httpServer := server.NewHTTPServer(cfg.Server, srv.Handler())

	errCh := make(chan error, 2)
	go func() {
		logger.Info("HTTP serving", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var grpcHealth *server.GRPCHealth
	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			return err
		}
		grpcHealth = server.NewGRPCHealth(checker, logger)
		go func() {
			logger.Info("gRPC health serving", "addr", cfg.Server.GRPCAddr)
			if err := grpcHealth.Serve(lis); err != nil {
				errCh <- err
			}
		}()
		go grpcHealth.Watch(ctx, 15*time.Second)
	}

	if cfg.Server.InboxDir != "" {
		go func() {
			err := ingest.RunInbox(ctx, ingest.InboxConfig{
				Watch: ingest.WatchConfig{
					Roots:       []string{cfg.Server.InboxDir},
					InitialScan: true,
					SkipHidden:  true,
				},
				DefaultPatientID: cfg.Server.InboxPatientID,
			}, queue, logger)
			if err != nil {
				logger.Error("inbox watcher stopped", "dir", cfg.Server.InboxDir, "error", err)
			}
		}()
		logger.Info("watching inbox", "dir", cfg.Server.InboxDir, "default_patient_id", cfg.Server.InboxPatientID)
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down...")
	case runErr = <-errCh:
		logger.Error("server failed", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	queue.Shutdown(shutdownCtx)
	if grpcHealth != nil {
		grpcHealth.Stop()
	}
	return runErr
}
