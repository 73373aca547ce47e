package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/xela07ax/servicemap-console/internal/archive"
	"github.com/xela07ax/servicemap-console/internal/console/handler"
	"github.com/xela07ax/servicemap-console/internal/console/server"
	"github.com/xela07ax/servicemap-console/internal/console/service"
	"github.com/xela07ax/servicemap-console/internal/domain"
	"github.com/xela07ax/servicemap-console/internal/infra"
	"github.com/xela07ax/servicemap-console/internal/infra/auth"
	"github.com/xela07ax/servicemap-console/internal/repository/postgres"
	"github.com/xela07ax/servicemap-console/internal/snapshot"
	"github.com/xela07ax/servicemap-console/internal/topology"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("console stopped with error", zap.Error(err))
	}
}

func run(cfg *infra.Config, logger *zap.Logger) error {
	// Контекст фоновых горутин (listener, warm-up). Отменяется по SIGTERM.
	appCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Метрики
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := topology.NewMetrics(reg)

	// 2. Redis (опционально): общий снапшот между инстансами
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
	}
	store := snapshot.NewStore(rdb, cfg.Redis.SnapshotTTL, logger)

	// 3. Postgres (опционально): архив загрузок, сотрудники, пользователи
	var (
		archiveRepo service.DatasetArchive
		archiver    service.RecordArchiver
		employeeH   *handler.EmployeeHandler
		authH       *handler.AuthHandler
		validator   auth.TokenValidator
		userRepo    *postgres.UserRepo
	)
	if cfg.Database.URL != "" {
		ctx, cancel := context.WithTimeout(appCtx, 5*time.Second)
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err == nil {
			err = postgres.Migrate(ctx, pool)
		}
		cancel()
		if err != nil {
			return fmt.Errorf("database unreachable: %w", err)
		}
		defer pool.Close()

		rel := infra.NewReliabilityWrapper(infra.DefaultReliabilitySettings("postgres"), logger)
		traceRepo := postgres.NewTraceRepo(pool, rel)

		a := archive.NewArchiver(traceRepo, archive.Options{
			BufferSize:    cfg.Archive.BufferSize,
			BatchSize:     cfg.Archive.BatchSize,
			FlushInterval: cfg.Archive.FlushInterval,
			BufferFill:    metrics.ArchiveBufferFill,
		}, logger)
		a.Start()
		defer a.Stop()

		archiveRepo, archiver = traceRepo, a
		employeeH = handler.NewEmployeeHandler(service.NewEmployeeService(postgres.NewEmployeeRepo(pool), logger), logger)
		userRepo = postgres.NewUserRepo(pool)
	} else {
		logger.Warn("database.url is empty: dataset archive and employee report are disabled")
	}

	// 4. Авторизация
	if cfg.Auth.Enabled {
		pub, err := auth.ParseRSAPublicKey(cfg.Auth.PublicKey)
		if err != nil {
			return fmt.Errorf("auth public key: %w", err)
		}
		validator = auth.NewBaseValidator(pub)

		// Выдача токенов возможна только при наличии таблицы пользователей
		if userRepo != nil && len(cfg.Auth.PrivateKey) > 0 {
			priv, err := auth.ParseRSAPrivateKey(cfg.Auth.PrivateKey)
			if err != nil {
				return fmt.Errorf("auth private key: %w", err)
			}
			authH = handler.NewAuthHandler(service.NewAuthService(userRepo, priv, cfg.Auth.TokenTTL))
		}
	}

	// 5. Сервисный слой
	defaults := domain.Thresholds{
		MinQPS:       cfg.Topology.DefaultMinQPS,
		MaxErrorRate: cfg.Topology.DefaultMaxErrorRate,
	}
	topologySvc := service.NewTopologyService(store, archiveRepo, archiver, metrics, defaults, logger)

	// Прогрев после рестарта: последний датасет из Redis или архива
	if err := store.Warmup(appCtx, topologySvc.LoadLatest); err != nil {
		logger.Warn("snapshot warm-up failed", zap.Error(err))
	}
	go store.Listen(appCtx)

	// 6. HTTP API
	api := server.NewConsoleServer(cfg, logger, validator, authH,
		handler.NewTopologyHandler(topologySvc, cfg.Topology.MaxUploadBytes, logger),
		employeeH,
	)
	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, fmt.Sprint(cfg.Server.Port)),
		Handler:      api,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	metricsSrv := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, fmt.Sprint(cfg.Server.MetricsPort)),
		Handler: metricsMux,
	}

	// 7. gRPC health для оркестратора
	grpcSrv := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	errCh := make(chan error, 3)
	go func() {
		logger.Info("console API started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics: %w", err)
		}
	}()
	go func() {
		lis, err := net.Listen("tcp", net.JoinHostPort(cfg.Server.Host, fmt.Sprint(cfg.Server.GRPCPort)))
		if err != nil {
			errCh <- fmt.Errorf("grpc listen: %w", err)
			return
		}
		logger.Info("gRPC health server started", zap.String("addr", lis.Addr().String()))
		if err := grpcSrv.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc: %w", err)
		}
	}()

	// 8. Graceful Shutdown
	var runErr error
	select {
	case <-appCtx.Done():
		logger.Info("console stopping...")
	case runErr = <-errCh:
	}

	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	// Даем 5 секунд на завершение запросов
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics shutdown failed", zap.Error(err))
	}
	grpcSrv.GracefulStop()

	logger.Info("console exited properly")
	return runErr
}
