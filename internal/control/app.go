package control

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/pressly/goose/v3"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/vietddude/swapmatch/internal/api"
	"github.com/vietddude/swapmatch/internal/core/domain"
	"github.com/vietddude/swapmatch/internal/core/trade"
	redisclient "github.com/vietddude/swapmatch/internal/infra/redis"
	"github.com/vietddude/swapmatch/internal/infra/remote"
	"github.com/vietddude/swapmatch/internal/infra/storage"
	"github.com/vietddude/swapmatch/internal/infra/storage/memory"
	"github.com/vietddude/swapmatch/internal/infra/storage/postgres"
	"github.com/vietddude/swapmatch/internal/metrics"
)

// Config holds the application configuration.
type Config struct {
	Port          int
	GRPCPort      int
	MigrationsDir string
	Remote        remote.Config
	Redis         redisclient.Config
	Database      postgres.Config
}

// App wires the trade offer service together and manages its lifecycle.
type App struct {
	cfg          Config
	repo         storage.OfferRepository
	db           *postgres.DB
	redisClient  *redisclient.Client
	orchestrator *remote.Orchestrator
	service      *trade.Service
	apiServer    *api.Server
	grpcServer   *grpc.Server
	grpcHealth   *health.Server
	log          *slog.Logger
}

// NewApp creates an App with all dependencies initialized.
func NewApp(cfg Config) (*App, error) {
	// 1. Initialize Storage
	var repo storage.OfferRepository
	var db *postgres.DB

	if cfg.Database.URL != "" {
		var err error
		db, err = postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}

		// Run migrations
		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		dir := cfg.MigrationsDir
		if dir == "" {
			dir = "migrations"
		}
		if err := goose.Up(db.SQLDB(), dir); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}

		repo = postgres.NewOfferRepo(db)
		slog.Info("Using PostgreSQL storage")
	} else {
		repo = memory.NewOfferRepo(memory.NewMemoryStorage())
		slog.Info("Using Memory storage")
	}

	// 2. Initialize Redis (idempotency guard, optional)
	var redisClient *redisclient.Client
	var guard trade.Guard
	if cfg.Redis.URL != "" {
		var err error
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("Failed to connect to Redis, idempotency guard disabled", "error", err)
		} else {
			guard = redisClient
			slog.Info("Idempotency guard enabled")
		}
	}

	// 3. Initialize Dependency Orchestrator
	orchestrator := remote.NewOrchestrator(cfg.Remote)

	// 4. Initialize Trade Service and Servers
	service := trade.NewService(repo, orchestrator, guard)
	apiServer := api.NewServer(cfg.Port, service, orchestrator)

	grpcServer := grpc.NewServer()
	grpcHealth := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, grpcHealth)

	return &App{
		cfg:          cfg,
		repo:         repo,
		db:           db,
		redisClient:  redisClient,
		orchestrator: orchestrator,
		service:      service,
		apiServer:    apiServer,
		grpcServer:   grpcServer,
		grpcHealth:   grpcHealth,
		log:          slog.Default(),
	}, nil
}

// Service returns the trade service, for callers embedding the App.
func (a *App) Service() *trade.Service {
	return a.service
}

// Start starts the app and all its components.
func (a *App) Start(ctx context.Context) error {
	// Start HTTP API
	go func() {
		a.log.Info("API server listening", "port", a.cfg.Port)
		if err := a.apiServer.Start(); err != nil && err != http.ErrServerClosed {
			a.log.Error("API server failed", "error", err)
		}
	}()

	// Start gRPC health endpoint
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", a.cfg.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen on grpc port: %w", err)
	}
	a.grpcHealth.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	go func() {
		a.log.Info("gRPC health server listening", "port", a.cfg.GRPCPort)
		if err := a.grpcServer.Serve(lis); err != nil {
			a.log.Error("gRPC health server failed", "error", err)
		}
	}()

	// Start DB Metrics Collector
	if a.db != nil {
		a.db.StartMetricsCollector(ctx)
	}

	// Start Offer Stats Collector
	go a.runStatsCollector(ctx)

	return nil
}

// Stop stops the app.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping swapmatch...")

	a.grpcHealth.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	a.grpcServer.GracefulStop()

	if err := a.apiServer.Stop(ctx); err != nil {
		a.log.Warn("Failed to stop API server", "error", err)
	}

	a.orchestrator.Close()

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			return fmt.Errorf("failed to close db: %w", err)
		}
	}
	return nil
}

// runStatsCollector refreshes the offer gauges from storage.
func (a *App) runStatsCollector(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.collectStats(ctx)
		}
	}
}

func (a *App) collectStats(ctx context.Context) {
	counts, err := a.repo.CountByStatus(ctx)
	if err != nil {
		slog.Debug("Failed to collect offer counts", "error", err)
		return
	}
	for _, status := range []domain.OfferStatus{
		domain.OfferStatusPending,
		domain.OfferStatusAccepted,
		domain.OfferStatusRejected,
		domain.OfferStatusCancelled,
		domain.OfferStatusCompleted,
	} {
		metrics.OffersByStatus.WithLabelValues(string(status)).Set(float64(counts[status]))
	}

	active, err := a.repo.CountActiveProposers(ctx)
	if err != nil {
		slog.Debug("Failed to collect active proposer count", "error", err)
		return
	}
	metrics.ActiveUsers.Set(float64(active))
}
