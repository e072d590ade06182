// Command msglogger records messages from allow-listed Telegram groups into
// an append-only store and answers admin export requests, both through the
// bot's /export_messages command and, when HTTP_ENABLED is set, through a
// read-only admin HTTP API.
//
// Configuration comes from the environment (optionally seeded from a .env
// file); see internal/config.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/tbourn/tg-message-logger/internal/config"
	httpapi "github.com/tbourn/tg-message-logger/internal/http"
	"github.com/tbourn/tg-message-logger/internal/observability"
	"github.com/tbourn/tg-message-logger/internal/repo"
	"github.com/tbourn/tg-message-logger/internal/services"
	"github.com/tbourn/tg-message-logger/internal/sysutil"
	"github.com/tbourn/tg-message-logger/internal/telegram"
	"github.com/tbourn/tg-message-logger/internal/throttle"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

// @title                      Telegram Message Logger Admin API
// @version                    1.0
// @description                Read-only export of messages logged from allow-listed Telegram groups.
// @BasePath                   /api/v1
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("msglogger stopped")
	}
	log.Info().Msg("msglogger stopped")
}

func run(ctx context.Context, cfg config.Config) error {
	if !cfg.Bot.Enabled && !cfg.HTTPEnabled {
		return errors.New("nothing to run: set BOT_ENABLED and/or HTTP_ENABLED")
	}

	shutdownTracing, err := observability.Setup(ctx, cfg.OTEL, version)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer withTimeout(cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := shutdownTracing(ctx); err != nil {
			log.Warn().Err(err).Msg("tracer flush failed")
		}
	})

	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Close(db); err != nil {
			log.Warn().Err(err).Msg("closing message store")
		}
	}()

	ingest := &services.IngestService{DB: db, AllowedChats: cfg.AllowedChats}
	export := &services.ExportService{
		DB:           db,
		AllowedChats: cfg.AllowedChats,
		DefaultLimit: cfg.DefaultLimit,
	}

	lim, err := throttle.New(ctx, cfg.RedisURL, cfg.RateRPS, cfg.RateBurst)
	if err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	if c, ok := lim.(io.Closer); ok {
		defer c.Close()
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Bot.Enabled {
		if err := telegram.InstallLogger(); err != nil {
			return fmt.Errorf("telegram logger: %w", err)
		}
		bot, err := telegram.NewClient(cfg.Bot)
		if err != nil {
			return err
		}
		updates, err := telegram.StartPolling(bot, cfg.Bot)
		if err != nil {
			return err
		}
		svc := telegram.NewBotService(bot, ingest, export, lim, cfg, bot.Self.UserName)

		g.Go(func() error { return svc.Run(gctx, updates) })
		g.Go(func() error {
			<-gctx.Done()
			bot.StopReceivingUpdates()
			return nil
		})
		log.Info().
			Int("allowed_chats", cfg.AllowedChats.Len()).
			Int("admins", cfg.AdminIDs.Len()).
			Int("workers", cfg.Bot.Workers).
			Msg("telegram bot polling")
	}

	if cfg.HTTPEnabled {
		gin.SetMode(cfg.GinMode)
		r := gin.New()
		httpapi.RegisterRoutes(r, httpapi.Deps{
			Config:  cfg,
			Export:  export,
			Ping:    func(ctx context.Context) error { return repo.Ping(ctx, db) },
			Limiter: lim,
		})
		srv := httpapi.NewServer(cfg, r)

		g.Go(func() error {
			log.Info().Str("addr", srv.Addr).Str("base_path", cfg.APIBasePath).Msg("admin api listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			var err error
			withTimeout(cfg.ShutdownTimeout, func(ctx context.Context) { err = srv.Shutdown(ctx) })
			return err
		})
	}

	log.Info().Str("version", version).Str("db_driver", cfg.DB.Driver).Msg("msglogger started")
	<-gctx.Done()
	log.Info().Msg("shutting down")
	return g.Wait()
}

// openStore connects to the configured database and ensures the schema.
// Failures wrap repo.ErrStorageInit.
func openStore(ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	db, err := repo.Open(cfg.DB.Driver, cfg.DB.DSN())
	if err != nil {
		return nil, err
	}
	if err := repo.Initialize(ctx, db); err != nil {
		_ = repo.Close(db)
		return nil, err
	}
	if cfg.OTEL.Enabled {
		if err := repo.EnableTracing(db); err != nil {
			_ = repo.Close(db)
			return nil, fmt.Errorf("%w: gorm tracing: %w", repo.ErrStorageInit, err)
		}
	}
	return db, nil
}

func withTimeout(d time.Duration, fn func(context.Context)) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	fn(ctx)
}
