// Command taskdex-server starts the Taskdex gRPC server.
package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/and161185/taskdex/internal/api"
	"github.com/and161185/taskdex/internal/catalog"
	"github.com/and161185/taskdex/internal/config"
	"github.com/and161185/taskdex/internal/limiter"
	"github.com/and161185/taskdex/internal/migrate"
	"github.com/and161185/taskdex/internal/model"
	"github.com/and161185/taskdex/internal/progression"
	"github.com/and161185/taskdex/internal/rarity"
	"github.com/and161185/taskdex/internal/repository/postgres"
	"github.com/and161185/taskdex/internal/retry"
	grpcserver "github.com/and161185/taskdex/internal/server/grpc"
	"github.com/and161185/taskdex/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, runs migrations, and starts the gRPC server.
func main() {
	cfgPath := flag.String("config", "", "YAML config file")
	addr := flag.String("addr", "", "listen address (overrides config)")
	dsn := flag.String("dsn", "", "PostgreSQL DSN (overrides config)")
	dev := flag.Bool("dev", false, "enable server reflection and development logging")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fatal(err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dsn != "" {
		cfg.Database.DSN = *dsn
	}
	if *dev {
		cfg.Server.Reflection = true
		cfg.Log.Development = true
	}
	if err := cfg.Validate(); err != nil {
		fatal(err)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		fatal(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Server.Addr),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ver, err := migrate.Up(ctx, cfg.Database.DSN, logger)
	if err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}
	logger.Info("schema ready", zap.Int64("version", ver))

	db, err := postgres.New(ctx, cfg.Database.DSN, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal("pgxpool.New", zap.Error(err))
	}
	defer db.Close()

	// Repositories
	userRepo := postgres.NewUserRepo(db)
	taskRepo := postgres.NewTaskRepo(db)
	statsRepo := postgres.NewStatsRepo(db)
	collRepo := postgres.NewCollectionRepo(db)

	loc, _ := cfg.Location() // checked by Validate
	ledger := progression.New(statsRepo, progression.Config{
		XPPerLevel: cfg.Progression.XPPerLevel,
		Location:   loc,
		Retry: retry.Policy{
			Attempts: cfg.Progression.RetryAttempts,
			Backoff:  retry.Linear(cfg.Progression.RetryBackoff),
		},
	}, logger.Named("ledger"))
	go ledger.RunEviction(ctx, cfg.Progression.HandleIdle)

	rewards, err := service.RewardTableByName(cfg.Progression.RewardTable)
	if err != nil {
		logger.Fatal("reward table", zap.Error(err))
	}

	resolver := catalog.New(catalogConfig(cfg.Catalog), logger.Named("catalog"))

	// Services
	svc := grpcserver.Services{
		Auth: service.NewAuthService(userRepo, service.AuthOptions{
			SignKey:   []byte(cfg.Auth.JWTKey),
			AccessTTL: cfg.Auth.AccessTTL,
		}, newLimiter(cfg.Auth.Throttle, db)),
		Tasks:    service.NewTaskService(taskRepo, ledger, rewards, logger.Named("tasks")),
		Progress: service.NewProgressService(ledger),
		Rewards: service.NewRewardService(ledger, collRepo,
			rarity.NewSampler(rarity.DefaultSource()), resolver,
			cfg.Rewards.OpeningDelay, logger.Named("rewards")),
		Collection: service.NewCollectionService(collRepo),
	}

	app := grpcserver.New(svc, []byte(cfg.Auth.JWTKey))

	// gRPC server with interceptors
	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			grpcserver.RecoverUnary(logger),
			grpcserver.LoggingUnary(logger),
			app.AuthUnary(),
		),
	}
	if cfg.Server.TLSCert != "" {
		creds, err := credentials.NewServerTLSFromFile(cfg.Server.TLSCert, cfg.Server.TLSKey)
		if err != nil {
			logger.Fatal("failed to load TLS cert/key", zap.Error(err))
		}
		opts = append(opts, grpc.Creds(creds))
	} else {
		logger.Warn("TLS disabled, serving plaintext")
	}

	s := grpc.NewServer(opts...)
	api.Register(s, app)

	// Health & reflection (dev)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus(api.ServiceName, healthpb.HealthCheckResponse_SERVING)
	if cfg.Server.Reflection {
		reflection.Register(s)
	}

	lis, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Server.Addr), zap.Bool("tls", cfg.Server.TLSCert != ""))
		errCh <- s.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		hs.Shutdown()
		done := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			s.Stop()
		}
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

func newLogger(c config.Log) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if c.Level != "" {
		lvl, err := zapcore.ParseLevel(strings.ToLower(c.Level))
		if err != nil {
			return nil, err
		}
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zc.Build()
}

func newLimiter(c config.Throttle, db *postgres.DB) limiter.Limiter {
	p := limiter.Policy{MaxFailures: c.MaxFailures, Window: c.Window, BlockFor: c.BlockFor}
	switch c.Backend {
	case "postgres":
		return limiter.NewPG(db.Pool, p, time.Now)
	case "off":
		return limiter.Nop{}
	default:
		return limiter.NewMemory(p, time.Now)
	}
}

func catalogConfig(c config.Catalog) catalog.Config {
	cc := catalog.DefaultConfig()
	cc.BaseURL = c.BaseURL
	cc.APIKey = c.APIKey
	if c.PageSize > 0 {
		cc.PageSize = c.PageSize
	}
	if c.Timeout > 0 {
		cc.Timeout = c.Timeout
	}
	cc.CacheSize = c.CacheSize
	if c.CacheTTL > 0 {
		cc.CacheTTL = c.CacheTTL
	}
	for r, q := range c.Tags {
		cc.Tags[model.Rarity(r)] = q
	}
	return cc
}

func fatal(err error) {
	_, _ = os.Stderr.WriteString("taskdex-server: " + err.Error() + "\n")
	os.Exit(1)
}
