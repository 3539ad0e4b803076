package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mindfulpath/internal/config"
	"github.com/mindfulpath/internal/db"
	"github.com/mindfulpath/internal/handler"
	"github.com/mindfulpath/internal/logging"
	"github.com/mindfulpath/internal/mail"
	"github.com/mindfulpath/internal/otp"
	"github.com/mindfulpath/internal/router"
	"github.com/mindfulpath/internal/security"
	"github.com/mindfulpath/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func newLogger(cfg config.AppConfig) (*zap.Logger, error) {
	logger, err := logging.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

func zapDriver(cfg config.AppConfig) zap.Field {
	return zap.String("driver", cfg.DatabaseDriver)
}

func openDatabase(cfg config.AppConfig) (*gorm.DB, error) {
	dsn := cfg.DatabasePath
	if cfg.DatabaseDriver == "postgres" || cfg.DatabaseDriver == "postgresql" {
		dsn = cfg.DatabaseURL
	}
	if err := db.Init(cfg.DatabaseDriver, dsn, gormlogger.Default.LogMode(gormlogger.Warn)); err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	return db.DB, nil
}

func closeDatabase(gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func ensureAdmin(gdb *gorm.DB, username, email, password string) error {
	if err := db.EnsureAdmin(gdb, username, email, password); err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}
	return nil
}

// newOTPStore 配置了 REDIS_URL 时使用 Redis，否则退回进程内存储。
func newOTPStore(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (otp.Store, func(), error) {
	if cfg.RedisURL == "" {
		logger.Warn("REDIS_URL not set, OTP codes are kept in process memory")
		return otp.NewMemoryStore(), func() {}, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	return otp.NewRedisStore(client, "mindfulpath:otp"), func() { client.Close() }, nil
}

func newMailer(cfg config.AppConfig, logger *zap.Logger) mail.Mailer {
	if !cfg.SMTP.Enabled() {
		logger.Warn("SMTP_HOST not set, emails are logged instead of delivered")
		return mail.NewLogMailer(logger)
	}
	return mail.NewSMTPMailer(cfg.SMTP, logger)
}

func newImageStore(ctx context.Context, cfg config.AppConfig) (storage.ImageStore, error) {
	switch cfg.StorageDriver {
	case "", "local":
		return storage.NewLocalStore(cfg.UploadDir, cfg.UploadURLPath), nil
	case "s3":
		store, err := storage.NewS3Store(ctx, cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("init s3 storage: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	gin.SetMode(cfg.GinMode)

	gdb, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(gdb) //nolint:errcheck

	if err := ensureAdmin(gdb, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return err
	}

	otpStore, closeStore, err := newOTPStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	images, err := newImageStore(ctx, cfg)
	if err != nil {
		return err
	}

	api := handler.NewAPI(handler.Dependencies{
		DB:       gdb,
		Issuer:   otp.NewIssuer(otpStore, cfg.OTPTTL),
		Mailer:   newMailer(cfg, logger),
		Tokens:   security.NewJWTManager(cfg.JWTIssuer, cfg.JWTSecret, cfg.JWTTTL),
		Uploader: storage.NewUploader(images),
		Logger:   logger,
	})

	opts := router.Options{
		CORSOrigins:       cfg.CORSOrigins,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
		Logger:            logger,
	}
	if local, ok := images.(*storage.LocalStore); ok {
		opts.UploadDir = local.Dir()
		opts.UploadURLPath = local.URLPath()
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router.SetupRouter(api, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.ListenAddr), zapDriver(cfg))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("run server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
