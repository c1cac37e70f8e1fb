package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/sup-parking/internal/auth"
	"github.com/iliyamo/sup-parking/internal/blob"
	"github.com/iliyamo/sup-parking/internal/bookings"
	"github.com/iliyamo/sup-parking/internal/config"
	"github.com/iliyamo/sup-parking/internal/database"
	"github.com/iliyamo/sup-parking/internal/docstore"
	"github.com/iliyamo/sup-parking/internal/handler"
	"github.com/iliyamo/sup-parking/internal/logging"
	"github.com/iliyamo/sup-parking/internal/middleware"
	"github.com/iliyamo/sup-parking/internal/profile"
	"github.com/iliyamo/sup-parking/internal/queue"
	"github.com/iliyamo/sup-parking/internal/repository"
	"github.com/iliyamo/sup-parking/internal/reservation"
	"github.com/iliyamo/sup-parking/internal/router"
	"github.com/iliyamo/sup-parking/internal/spots"
	"github.com/iliyamo/sup-parking/internal/sweeper"
)

func main() {
	cfg := config.Load()

	logger, closeLog, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	store, closeStore, err := openStore(cfg, changeFeed(rdb))
	if err != nil {
		logger.Error("failed to open store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	blobs, local, err := openBlobs(ctx, cfg)
	if err != nil {
		logger.Error("failed to open blob store", "backend", cfg.BlobBackend, "error", err)
		os.Exit(1)
	}

	var resOpts []reservation.Option
	if cfg.RabbitURL != "" {
		resOpts = append(resOpts, reservation.WithPublisher(queue.NewPublisher(cfg.RabbitURL)))
	}

	users := repository.NewUserRepo(store)
	users.Images = blobs
	tokens := repository.NewTokenRepo(store)
	directory := spots.NewDirectory(store, nil)
	ledger := bookings.NewLedger(store, nil)
	reservations := reservation.NewService(store, resOpts...)
	authSvc := auth.NewService(auth.Settings{
		JWTSecret:      cfg.JWTSecret,
		AccessTTLMin:   cfg.AccessTTLMin,
		RefreshTTLDays: cfg.RefreshTTLDays,
		BcryptCost:     cfg.BcryptCost,
		AdminEmails:    cfg.AdminEmails,
	}, users, tokens)
	profiles := profile.NewService(users, blobs)

	go func() {
		if err := directory.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("spot directory stopped", "error", err)
		}
	}()
	go logSessions(ctx, logger, authSvc)

	if cfg.ConsumerEnabled && cfg.RabbitURL != "" {
		consumer := &queue.Consumer{URL: cfg.RabbitURL, LogDir: cfg.AuditLogDir}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("booking consumer stopped", "error", err)
			}
		}()
	}

	if cfg.SweeperEnabled {
		sw := sweeper.New(store, cfg.SweeperSchedule, nil)
		if err := sw.Start(); err != nil {
			logger.Error("failed to start sweeper", "error", err)
			os.Exit(1)
		}
		defer sw.Stop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(logger))
	e.Use(middleware.Identify(cfg.JWTSecret))
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(authSvc), cfg.JWTSecret)
	router.RegisterPublic(e, handler.NewSpotHandler(directory), middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	router.RegisterCustomer(e,
		handler.NewBookingHandler(reservations, ledger),
		handler.NewProfileHandler(profiles),
		handler.NewStreamHandler(directory, ledger),
		cfg.JWTSecret,
	)
	router.RegisterAdmin(e, handler.NewAdminHandler(directory), cfg.JWTSecret)
	if local != nil {
		router.RegisterBlobs(e, handler.NewBlobHandler(local))
	}

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", "addr", addr, "env", cfg.Env, "store", cfg.StoreBackend, "redis", rdb != nil)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

// changeFeed shares change notifications through Redis when it is
// reachable so that several server processes see each other's writes.
func changeFeed(rdb *redis.Client) docstore.Feed {
	if rdb == nil {
		return docstore.NewLocalFeed()
	}
	return docstore.NewRedisFeed(rdb, "parking")
}

func openStore(cfg config.Config, feed docstore.Feed) (docstore.Store, func(), error) {
	if cfg.StoreBackend == "memory" {
		slog.Warn("using in-memory store, data is lost on restart")
		return docstore.NewMemory(feed), func() {}, nil
	}
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, nil, err
	}
	return docstore.NewMySQL(db, feed), func() { _ = db.Close() }, nil
}

// openBlobs returns the configured blob store and, for the local backend,
// the store itself so its objects can be served over HTTP.
func openBlobs(ctx context.Context, cfg config.Config) (blob.Store, *blob.Local, error) {
	if cfg.BlobBackend == "s3" {
		s, err := blob.NewS3(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Endpoint, cfg.PresignTTL)
		return s, nil, err
	}
	l, err := blob.NewLocal(cfg.BlobLocalPath, cfg.PublicBaseURL+"/v1/blobs")
	return l, l, err
}

// logSessions records sign-ins and sign-outs until ctx ends.
func logSessions(ctx context.Context, logger *slog.Logger, a *auth.Service) {
	changes, cancel := a.Watch(ctx)
	defer cancel()
	for {
		select {
		case ch, ok := <-changes:
			if !ok {
				return
			}
			logger.Info("session state changed", "user_id", ch.UserID, "signed_in", ch.SignedIn)
		case <-ctx.Done():
			return
		}
	}
}
