package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/shyim/lighthouse-bench/internal/cleanup"
	"github.com/shyim/lighthouse-bench/internal/config"
	"github.com/shyim/lighthouse-bench/internal/handler"
	"github.com/shyim/lighthouse-bench/internal/lighthouse"
	"github.com/shyim/lighthouse-bench/internal/measure"
	"github.com/shyim/lighthouse-bench/internal/preset"
	"github.com/shyim/lighthouse-bench/internal/storage"
	"github.com/shyim/lighthouse-bench/internal/telemetry"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	if err := telemetry.ConfigureLogging(cfg.LogLevel); err != nil {
		logrus.Fatalf("Failed to configure logging: %v", err)
	}

	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName:  "lighthouse-bench-api",
		SentryDSN:    cfg.SentryDSN,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTLPEndpoint,
	})
	if err != nil {
		logrus.Fatalf("Failed to initialize telemetry: %v", err)
	}

	launcher, err := newLauncher(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize launcher: %v", err)
	}

	opts := []measure.Option{measure.WithMaxWaitForLoad(cfg.MaxWaitForLoadMs)}

	var reports handler.ReportStore
	if cfg.ReportArchive {
		storageService, err := storage.NewService(ctx, storage.Options{
			ServiceURL: cfg.S3ServiceURL,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			Bucket:     cfg.S3Bucket,
			Region:     cfg.S3Region,
		})
		if err != nil {
			logrus.Fatalf("Failed to initialize storage service: %v", err)
		}
		if err := storageService.EnsureBucket(ctx); err != nil {
			logrus.Fatalf("Failed to prepare bucket %s: %v", cfg.S3Bucket, err)
		}
		opts = append(opts, measure.WithArchive(storageService))
		reports = storageService
		logrus.Infof("Report archive enabled, bucket %s", cfg.S3Bucket)
	}

	executor := measure.NewExecutor(launcher, preset.NewCatalog(), opts...)
	h := handler.NewHandler(executor, reports, cfg.AuthToken)

	cleanup.Start(ctx, cfg.CleanupInterval, cfg.CleanupMaxAge)

	// Logger -> Recoverer -> Sentry -> Tracing -> Auth -> Mux
	var finalHandler http.Handler = h.Routes()
	finalHandler = otelhttp.NewHandler(finalHandler, "lighthouse-bench-api")
	finalHandler = sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle(finalHandler)
	finalHandler = recoverMiddleware(finalHandler)
	finalHandler = loggingMiddleware(finalHandler)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           finalHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.Infof("Server starting on port %s (launcher: %s)", cfg.Port, cfg.Launcher)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down")

	// an in-flight audit may run up to MAX_WAIT_FOR_LOAD_MS
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.MaxWaitForLoadMs)*time.Millisecond+15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Graceful shutdown failed: %v", err)
	}
	if closer, ok := launcher.(io.Closer); ok {
		closer.Close()
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logrus.Warnf("Failed to flush telemetry: %v", err)
	}
}

func newLauncher(cfg *config.Config) (lighthouse.Launcher, error) {
	if cfg.Launcher == config.LauncherDocker {
		return lighthouse.NewDockerLauncher(cfg.DockerImage)
	}
	return lighthouse.NewLocalLauncher(cfg.LighthouseBin, cfg.ChromePath), nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logrus.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start),
		}).Info("Request completed")
	})
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logrus.Errorf("Panic: %v", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
