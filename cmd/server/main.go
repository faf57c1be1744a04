package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"inventory-keeper/internal/auth"
	"inventory-keeper/internal/config"
	apphttp "inventory-keeper/internal/http"
	"inventory-keeper/internal/repository"
	"inventory-keeper/internal/repository/sqldb"
	"inventory-keeper/internal/repository/sqlite"
	"inventory-keeper/internal/service"
	"inventory-keeper/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := configureLogger(logger, cfg); err != nil {
		logger.Fatalf("configure logger: %v", err)
	}

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		logger.Fatalf("auth jwt secret is required")
	}
	if strings.TrimSpace(cfg.Auth.RegisterPassword) == "" {
		logger.Fatalf("auth registration password is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer stores.Close()

	if err := stores.items.Init(ctx); err != nil {
		logger.Fatalf("init item repository: %v", err)
	}
	if err := stores.users.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}

	itemService := service.NewItemService(stores.items)
	userService := service.NewUserService(stores.users, cfg.Auth.RegisterPassword)

	revoker, redisClient, err := buildRevoker(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup session revocation: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	tokens, err := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute,
		revoker,
	)
	if err != nil {
		logger.Fatalf("setup tokens: %v", err)
	}

	var exportService service.ExportService
	if cfg.Storage.Bucket != "" {
		storageSvc, err := buildStorage(ctx, cfg, logger)
		if err != nil {
			logger.Fatalf("setup storage: %v", err)
		}
		exportService = service.NewExportService(itemService, storageSvc, service.ExportConfig{
			Bucket:    cfg.Storage.Bucket,
			KeyPrefix: cfg.Storage.KeyPrefix,
			LinkTTL:   time.Duration(cfg.Storage.LinkTTLMinutes) * time.Minute,
		})
	} else {
		logger.Info("no storage bucket configured, snapshot exports disabled")
	}

	ready := func(ctx context.Context) error {
		if err := stores.ping(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
		if redisClient != nil {
			if err := redisClient.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(apphttp.Config{
		Items:        itemService,
		Users:        userService,
		Exports:      exportService,
		Tokens:       tokens,
		Logger:       logger,
		CookieName:   cfg.Auth.CookieName,
		SecureCookie: cfg.Auth.SecureCookie,
		Ready:        ready,
	})
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

func configureLogger(logger *logrus.Logger, cfg config.Config) error {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	if strings.EqualFold(cfg.Log.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	}
	return nil
}

type storeSet struct {
	items repository.ItemRepository
	users repository.UserRepository
	ping  func(ctx context.Context) error
	io.Closer
}

func openStores(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*storeSet, error) {
	if strings.EqualFold(cfg.Database.Driver, "sqlite") || cfg.Database.Driver == "" {
		db, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		logger.Infof("using sqlite database %s", cfg.Database.Path)
		return &storeSet{
			items:  sqlite.NewItemRepository(db),
			users:  sqlite.NewUserRepository(db),
			ping:   db.PingContext,
			Closer: db,
		}, nil
	}

	dialect, err := sqldb.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}
	db, err := sqldb.Open(ctx, sqldb.Config{
		Dialect:         dialect,
		DSN:             cfg.Database.DSN,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Name:            cfg.Database.Name,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("using %s database %s", dialect, cfg.Database.Name)
	return &storeSet{
		items:  sqldb.NewItemRepository(db, dialect),
		users:  sqldb.NewUserRepository(db, dialect),
		ping:   db.PingContext,
		Closer: db,
	}, nil
}

// buildRevoker shares logouts across instances through redis when an
// address is configured and keeps them in process otherwise.
func buildRevoker(ctx context.Context, cfg config.Config, logger *logrus.Logger) (auth.Revoker, *redis.Client, error) {
	if cfg.Redis.Addr == "" {
		logger.Info("no redis configured, session revocation is process local")
		return auth.NewMemoryRevoker(), nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("ping redis %s: %w", cfg.Redis.Addr, err)
	}
	logger.Infof("using redis %s for session revocation", cfg.Redis.Addr)
	return auth.NewRedisRevoker(client), client, nil
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client), nil
}
