package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/storyshare/backend/internal/handlers"
	"github.com/anonto42/storyshare/backend/internal/middleware"
	"github.com/anonto42/storyshare/backend/internal/realtime"
	"github.com/anonto42/storyshare/backend/internal/remote"
	"github.com/anonto42/storyshare/backend/internal/remote/memstore"
	"github.com/anonto42/storyshare/backend/internal/repositories"
	"github.com/anonto42/storyshare/backend/internal/router"
	"github.com/anonto42/storyshare/backend/internal/session"
	"github.com/anonto42/storyshare/backend/internal/validators"
	"github.com/anonto42/storyshare/backend/pkg/config"
	"github.com/anonto42/storyshare/backend/pkg/firebase"
	"github.com/anonto42/storyshare/backend/pkg/logger"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = 5 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	zap.ReplaceGlobals(zl)
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zl); err != nil {
		zl.Fatal("Server stopped with error", zap.Error(err))
	}
	zl.Info("Server stopped")
}

func run(ctx context.Context, cfg *config.Config, zl *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	store, err := openStore(gctx, g, cfg, zl)
	if err != nil {
		return abort(g, cancel, err)
	}

	verifier, err := newVerifier(ctx, cfg, zl)
	if err != nil {
		return abort(g, cancel, err)
	}

	flags, err := newFlags(ctx, cfg, zl)
	if err != nil {
		return abort(g, cancel, err)
	}
	if rf, ok := flags.(*session.RedisFlags); ok {
		g.Go(func() error {
			<-gctx.Done()
			return rf.Close()
		})
	}

	registry := session.NewRegistry(store, session.Options{
		FeedLimit:        cfg.FeedLimit,
		ProfileCacheSize: cfg.ProfileCacheSize,
	}, zl)

	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()
	config.SetupMiddleware(e, zl)
	router.SetupRoutes(e, handlers.NewSessions(registry, flags, zl), verifier, zl)

	g.Go(func() error {
		zl.Info("HTTP server listening", zap.String("port", cfg.Port))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := registry.Sweep(cfg.SessionIdle); n > 0 {
					zl.Info("idle sessions closed", zap.Int("count", n), zap.Int("open", registry.Len()))
				}
			}
		}
	})

	return g.Wait()
}

// abort stops whatever was already started on g, so queued closers run,
// and then reports err.
func abort(g *errgroup.Group, cancel context.CancelFunc, err error) error {
	cancel()
	if werr := g.Wait(); werr != nil {
		return errors.Join(err, werr)
	}
	return err
}

// openStore connects the configured remote store. The Postgres store gets
// its realtime subscriber started in g.
func openStore(ctx context.Context, g *errgroup.Group, cfg *config.Config, zl *zap.Logger) (remote.Store, error) {
	if cfg.Store == config.StoreMemory {
		zl.Warn("Using in-memory store; data is lost on exit")
		return memstore.New(), nil
	}

	db, err := config.InitDB(cfg.PostgresConnStr, zl)
	if err != nil {
		return nil, err
	}
	g.Go(func() error {
		<-ctx.Done()
		db.CloseDB()
		return nil
	})

	if cfg.AutoMigrate {
		if err := repositories.Migrate(db.Postgres); err != nil {
			return nil, err
		}
		zl.Info("PostgreSQL auto-migrations completed")
	}

	var sub repositories.Subscriber
	if cfg.RealtimeURL != "" {
		rt := realtime.NewClient(cfg.RealtimeURL, zl)
		g.Go(func() error {
			if err := rt.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
		sub = rt
	} else {
		zl.Warn("REALTIME_URL not set; notification streams are disabled")
	}

	return repositories.NewPostgresStore(db.Postgres, sub, zl), nil
}

func newVerifier(ctx context.Context, cfg *config.Config, zl *zap.Logger) (middleware.Verifier, error) {
	if cfg.AuthMode == config.AuthFirebase {
		app, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath, zl)
		if err != nil {
			return nil, err
		}
		return middleware.NewFirebaseVerifier(app.AuthClient), nil
	}
	return middleware.NewJWTVerifier(cfg.JWTSecret), nil
}

func newFlags(ctx context.Context, cfg *config.Config, zl *zap.Logger) (session.FlagStore, error) {
	if cfg.RedisAddr == "" {
		zl.Info("REDIS_ADDR not set; session flags are kept in memory")
		return session.NewMemoryFlags(), nil
	}

	flags, err := session.NewRedisFlags(ctx, &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, cfg.SessionTTL)
	if err != nil {
		return nil, err
	}
	zl.Info("Session flags stored in Redis", zap.String("addr", cfg.RedisAddr))
	return flags, nil
}
