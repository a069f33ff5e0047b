package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/expenseflow/expenseflow/internal/application/service"
	"github.com/expenseflow/expenseflow/internal/config"
	"github.com/expenseflow/expenseflow/internal/domain/approval"
	"github.com/expenseflow/expenseflow/internal/infrastructure/external/exchange"
	"github.com/expenseflow/expenseflow/internal/infrastructure/notify"
	"github.com/expenseflow/expenseflow/internal/infrastructure/persistence/repository"
	"github.com/expenseflow/expenseflow/internal/infrastructure/persistence/sqlite"
	httpadapter "github.com/expenseflow/expenseflow/internal/interfaces/http"
	"github.com/expenseflow/expenseflow/internal/worker"
	"github.com/expenseflow/expenseflow/pkg/database"
	"github.com/expenseflow/expenseflow/pkg/utils"
)

func main() {
	_ = gotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting expense claim approval engine",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	db, err := database.Open(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	txManager := sqlite.NewDB(db, logger)

	// Repositories
	claimRepo := repository.NewClaimRepository(db, logger)
	actionRepo := repository.NewActionRepository(db, logger)
	companyRepo := repository.NewCompanyRepository(db, logger)
	ruleRepo := repository.NewRuleRepository(db, logger)
	userRepo := repository.NewUserRepository(db, logger)

	// Currency normalizer with optional shared cache
	exchangeOpts := []exchange.Option{exchange.WithTTL(cfg.Exchange.CacheTTL)}
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		exchangeOpts = append(exchangeOpts, exchange.WithCache(exchange.NewRedisCache(redisClient)))
		logger.Info("Using redis rate cache", zap.String("addr", cfg.Redis.Addr))
	}
	rates := exchange.NewClient(cfg.Exchange.BaseURL, logger, exchangeOpts...)

	// Notification pipeline
	sender := notify.NewWebhookSender(cfg.Notify.WebhookURL, logger)
	dispatcher := worker.NewDispatcher(sender, cfg.Notify.QueueSize, logger)

	workers := worker.NewManager(logger)
	workers.Register(dispatcher)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := workers.StartAll(rootCtx); err != nil {
		logger.Fatal("Failed to start background workers", zap.Error(err))
	}
	defer workers.StopAll()

	// Application services
	kvLogger := utils.NewKVLogger(logger)
	chains := approval.NewChainBuilder(userRepo, approval.DropUnassignableStep)

	claimService := service.NewClaimService(
		claimRepo, actionRepo, companyRepo, ruleRepo, userRepo,
		rates, chains, txManager, dispatcher, kvLogger,
	)
	ruleService := service.NewRuleService(companyRepo, ruleRepo, kvLogger)
	reportService := service.NewReportService(claimRepo, kvLogger)

	// HTTP adapter
	server := httpadapter.NewServer(httpadapter.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, claimService, ruleService, reportService, rates, kvLogger)

	if err := server.Start(rootCtx); err != nil {
		logger.Error("HTTP server exited with error", zap.Error(err))
	}

	logger.Info("Server exited")
}
