package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	riskapp "risk-scoring-engine/internal/application/risk"
	riskdomain "risk-scoring-engine/internal/domain/risk"
	"risk-scoring-engine/internal/domain/transaction"
	"risk-scoring-engine/internal/infrastructure/cache/redis"
	memorydb "risk-scoring-engine/internal/infrastructure/database/memory"
	"risk-scoring-engine/internal/infrastructure/database/postgres"
	"risk-scoring-engine/internal/infrastructure/http/router"
	"risk-scoring-engine/internal/infrastructure/kv"
	"risk-scoring-engine/internal/infrastructure/ml"
	"risk-scoring-engine/internal/infrastructure/rules"
	"risk-scoring-engine/internal/infrastructure/state"
	"risk-scoring-engine/internal/interfaces/http/handler"
	"risk-scoring-engine/internal/pkg/config"
	"risk-scoring-engine/internal/pkg/logger"
	"risk-scoring-engine/internal/pkg/metrics"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting risk scoring engine",
		zap.String("version", version),
		zap.String("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)))

	ctx := context.Background()
	m := metrics.New(prometheus.DefaultRegisterer)

	// KV store: Redis in production, in-memory in standalone mode
	var store kv.Store
	redisClient, err := redis.NewClient(redis.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		log.Warn("Redis connection failed, running on in-memory state", zap.Error(err))
		redisClient = nil
		store = kv.NewMemoryStore()
	} else {
		log.Info("connected to Redis", zap.String("host", cfg.Redis.Host), zap.Int("port", cfg.Redis.Port))
		store = redisClient
	}

	// Transaction record sink: PostgreSQL in production, in-memory otherwise
	var txRepo transaction.Repository
	pgClient, err := postgres.NewClient(postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Name,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		log.Warn("database connection failed, running on in-memory records", zap.Error(err))
		pgClient = nil
		txRepo = memorydb.NewTransactionRepository()
	} else {
		log.Info("connected to PostgreSQL", zap.String("host", cfg.Database.Host), zap.Int("port", cfg.Database.Port))
		txRepo = postgres.NewTransactionRepository(pgClient)
	}

	windows := state.NewWindows(store, log)

	ruleEngine := rules.NewEngine(rules.Config{
		MaxVelocityPerMinute: cfg.Risk.MaxVelocityPerMinute,
		MaxVelocityPerHour:   cfg.Risk.MaxVelocityPerHour,
		MaxTransactionAmount: cfg.Risk.MaxTransactionAmount,
		NightTimeStart:       cfg.Risk.NightTimeStart,
		NightTimeEnd:         cfg.Risk.NightTimeEnd,
	}, log)

	// The normalization table ships with the model artifact; defaults are
	// used until the first artifact exists.
	stats := ml.DefaultFeatureStats()
	if artifact, err := ml.LoadArtifact(cfg.ML.ModelPath); err == nil {
		stats = artifact.FeatureStats
	}
	extractor := ml.NewFeatureExtractor(stats)

	scorer := ml.NewScorer(cfg.ML.ModelPath, store, log)
	scorer.SetFallbackHook(m.ModelFallbacks.Inc)
	if cfg.ML.Enabled {
		if err := scorer.LoadOrInit(ctx); err != nil {
			log.Warn("learned scorer unavailable, predictions use fallback", zap.Error(err))
		}
	}

	riskService := riskdomain.NewService(
		windows,
		ruleEngine,
		extractor,
		scorer,
		txRepo,
		riskdomain.Config{
			RuleWeight:    cfg.Risk.RuleWeight,
			ModelWeight:   cfg.Risk.ModelWeight,
			FlagThreshold: cfg.Risk.FraudThreshold,
			EnableMLModel: cfg.ML.Enabled,
		},
		log,
		m,
	)

	scoreUseCase := riskapp.NewScoreTransactionUseCase(riskService, cfg.Risk.ScoringTimeout)
	reportUseCase := riskapp.NewReportFraudUseCase(riskService)
	statisticsUseCase := riskapp.NewStatisticsUseCase(riskService)

	riskHandler := handler.NewRiskHandler(scoreUseCase, reportUseCase, statisticsUseCase)

	var dbHealthChecker handler.HealthChecker
	var redisHealthChecker handler.HealthChecker
	if pgClient != nil {
		dbHealthChecker = pgClient
	}
	if redisClient != nil {
		redisHealthChecker = redisClient
	}
	healthHandler := handler.NewHealthHandler(dbHealthChecker, redisHealthChecker, version)

	r := router.NewRouter(riskHandler, healthHandler)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	}

	if pgClient != nil {
		pgClient.Close()
	}
	if redisClient != nil {
		redisClient.Close()
	}

	log.Info("server stopped")
}
