package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	eduAuth "github.com/MrEthical07/eduAuth"
	"github.com/MrEthical07/eduAuth/internal/config"
	"github.com/MrEthical07/eduAuth/internal/httpapi"
	"github.com/MrEthical07/eduAuth/internal/logging"
	"github.com/MrEthical07/eduAuth/internal/uploads"
	otelexport "github.com/MrEthical07/eduAuth/metrics/export/otel"
	"github.com/MrEthical07/eduAuth/metrics/export/prometheus"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "eduauth-server: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Env, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	directory, closeDirectory, err := openDirectory(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDirectory()

	files, err := uploads.NewLocal(cfg.Uploads.Dir, cfg.Uploads.Prefix)
	if err != nil {
		return err
	}

	engineCfg, err := cfg.Engine()
	if err != nil {
		return fmt.Errorf("engine config: %w", err)
	}

	builder := eduAuth.New().
		WithConfig(engineCfg).
		WithDirectory(directory).
		WithFileStore(files).
		WithLogger(logger)

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		builder = builder.WithRedis(rdb)
	}
	if cfg.Audit {
		builder = builder.WithAuditSink(eduAuth.NewZapSink(logger))
	}

	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	if seed, ok := cfg.Seed(); ok {
		p, created, err := engine.SeedAdmin(ctx, seed)
		if err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		logger.Info("seed admin ready", zap.String("email", p.Email), zap.Bool("created", created))
	}

	opts := httpapi.Options{
		Engine:         engine,
		Logger:         logger,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		UploadDir:      cfg.Uploads.Dir,
		UploadPrefix:   cfg.Uploads.Prefix,
	}
	if cfg.Metrics {
		reader := sdkmetric.NewManualReader()
		provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		defer func() { _ = provider.Shutdown(context.Background()) }()

		exp, err := otelexport.NewExporter(provider.Meter("github.com/MrEthical07/eduAuth"), engine)
		if err != nil {
			return fmt.Errorf("otel exporter: %w", err)
		}
		defer func() { _ = exp.Close() }()

		opts.Prometheus = prometheus.NewExporter(engine)
		opts.OTelReader = reader
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpapi.NewRouter(opts),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting HTTP server",
			zap.String("addr", server.Addr),
			zap.String("environment", cfg.Env),
			zap.String("store", cfg.Store.Driver),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
