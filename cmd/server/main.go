package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/lol-draft-room/internal/catalog"
	"github.com/DoyleJ11/lol-draft-room/internal/config"
	"github.com/DoyleJ11/lol-draft-room/internal/httpapi"
	"github.com/DoyleJ11/lol-draft-room/internal/hub"
	"github.com/DoyleJ11/lol-draft-room/internal/lobby"
	"github.com/DoyleJ11/lol-draft-room/internal/session"
	"github.com/DoyleJ11/lol-draft-room/internal/store"
)

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatal(err)
	}
	logger, err := config.NewLogger(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	drafts, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("closing store", zap.Error(err))
		}
	}()

	if sw, ok := drafts.(store.Sweeper); ok {
		go store.RunJanitor(ctx, sw, cfg.SweepInterval, logger)
	}

	champions := catalog.NewCached(
		catalog.NewDataDragon(cfg.DDragonBaseURL, &http.Client{Timeout: 10 * time.Second}),
		cfg.CatalogTTL,
		logger,
	)

	// Lobbies keep serving in-flight requests while the HTTP server drains.
	h := hub.NewHub(context.WithoutCancel(ctx), lobby.Config{
		Store:       drafts,
		TTL:         cfg.DraftTTL,
		IdleTimeout: cfg.LobbyIdle,
		Logger:      logger,
	})
	defer h.Shutdown()

	gw := session.NewGateway(session.Config{
		Store:          drafts,
		Hub:            h,
		Catalog:        champions,
		CatalogVersion: cfg.DDragonVersion,
		TTL:            cfg.DraftTTL,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              net.JoinHostPort("", strconv.Itoa(cfg.Port)),
		Handler:           httpapi.SetupRoutes(httpapi.NewServer(gw, champions, cfg.DDragonVersion, logger)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.String("store", string(cfg.Store)))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if n, err := h.Count(shutdownCtx); err == nil {
		logger.Info("stopping lobbies", zap.Int("active", n))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store {
	case config.StoreRedis:
		r, err := store.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, noop, err
		}
		return r, r.Close, nil

	case config.StorePostgres:
		p, err := store.OpenPostgres(ctx, cfg.DatabaseURL, cfg.LogDev)
		if err != nil {
			return nil, noop, err
		}
		return p, p.Close, nil

	case config.StoreTiered:
		r, err := store.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, noop, err
		}
		p, err := store.OpenPostgres(ctx, cfg.DatabaseURL, cfg.LogDev)
		if err != nil {
			return nil, noop, multierr.Append(err, r.Close())
		}
		closeAll := func() error { return multierr.Combine(r.Close(), p.Close()) }
		return store.NewTiered(logger, cfg.DraftTTL, r, p), closeAll, nil

	default:
		return store.NewMemory(), noop, nil
	}
}
