package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/textbookhub/pkg/auth"
	"github.com/example/textbookhub/pkg/config"
	"github.com/example/textbookhub/pkg/discovery"
	"github.com/example/textbookhub/pkg/models"
	"github.com/example/textbookhub/pkg/repository"
	"github.com/example/textbookhub/pkg/service"
	"github.com/example/textbookhub/server"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	// Load config
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting textbook ordering service",
		zap.String("name", cfg.Server.Name),
		zap.Int("port", cfg.Server.Port))

	// Connect to MySQL
	db, err := gorm.Open(mysql.Open(cfg.MySQL.DSN()), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to MySQL", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err == nil {
		sqlDB.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
		sqlDB.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	}

	// Auto migrate
	err = db.AutoMigrate(
		&models.School{},
		&models.SchoolAuth{},
		&models.User{},
		&models.Category{},
		&models.Textbook{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	)
	if err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	// Redis: token blacklist and hot-order cache
	redisRepo := repository.NewRedisRepository(&cfg.Redis)
	defer redisRepo.Close()

	ctx := context.Background()
	if err := redisRepo.Ping(ctx); err != nil {
		logger.Warn("Redis connection failed", zap.Error(err))
	} else {
		logger.Info("Redis connected successfully")
	}

	// MongoDB: audit log
	mongoRepo, err := repository.NewMongoRepository(&cfg.MongoDB)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		mongoRepo.Close(closeCtx)
	}()

	// Services
	tokens := auth.NewManager(&cfg.JWT, redisRepo)
	catalog := service.NewCatalogService(db, logger)
	services := server.Services{
		Users:    service.NewUserService(db, logger),
		Schools:  service.NewSchoolService(db, logger),
		Catalog:  catalog,
		Carts:    service.NewCartService(db, logger),
		Checkout: service.NewCheckoutService(db, logger, mongoRepo, redisRepo),
		Orders:   service.NewOrderService(db, logger, mongoRepo, redisRepo),
		Reports:  service.NewReportService(db, logger, catalog),
	}

	srv := server.New(cfg, logger, tokens, services)
	srv.SetupRoutes()

	// Register this instance in etcd when endpoints are configured
	var sd *discovery.ServiceDiscovery
	if len(cfg.Etcd.Endpoints) > 0 {
		sd, err = discovery.NewServiceDiscovery(&cfg.Etcd)
		if err != nil {
			logger.Warn("Failed to connect to etcd, continuing without service discovery", zap.Error(err))
		} else {
			instance := &discovery.ServiceInstance{
				Name: cfg.Server.Name,
				Host: cfg.Server.Host,
				Port: cfg.Server.Port,
			}
			if err := sd.Register(ctx, instance); err != nil {
				logger.Warn("Failed to register service", zap.Error(err))
			} else {
				logger.Info("Service registered in etcd",
					zap.String("name", cfg.Server.Name),
					zap.String("address", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)))
			}
			defer sd.Close()
		}
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("Received shutdown signal")
	case err := <-serverErr:
		logger.Fatal("Server error", zap.Error(err))
	}

	if sd != nil {
		sd.Deregister(ctx, &discovery.ServiceInstance{
			Name: cfg.Server.Name,
			Host: cfg.Server.Host,
			Port: cfg.Server.Port,
		})
	}

	logger.Info("Service stopped")
}
