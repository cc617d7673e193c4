package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/geocheapest/marketplace/internal/app"
	"github.com/geocheapest/marketplace/internal/config"
	"github.com/geocheapest/marketplace/internal/domain"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to connect to database")
	}

	application, err := app.New(db, cfg)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to wire app")
	}
	if err := application.Migrate(); err != nil {
		zlog.Fatal().Err(err).Msg("failed to migrate database")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		application.Sync.RunMarketplaceSync(gctx, cfg.SyncInterval)
		return nil
	})
	g.Go(func() error {
		runStorefrontSyncs(gctx, application, cfg.SyncInterval)
		return nil
	})

	zlog.Info().Dur("interval", cfg.SyncInterval).Msg("sync loops started")
	if err := g.Wait(); err != nil {
		zlog.Error().Err(err).Msg("sync worker stopped")
	}
	zlog.Info().Msg("shutdown complete")
}

// runStorefrontSyncs walks every active store on the sync interval. One
// store failing never blocks the others.
func runStorefrontSyncs(ctx context.Context, application *app.App, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	syncAll := func() {
		stores, err := application.Stores.ListActive(ctx)
		if err != nil {
			zlog.Error().Err(err).Msg("could not list stores for sync")
			return
		}
		for _, store := range stores {
			if _, err := application.Sync.SyncStorefront(ctx, store.ID); err != nil {
				if ctx.Err() != nil {
					return
				}
				if !errors.Is(err, domain.ErrSyncInProgress) {
					zlog.Error().Err(err).Str("store", store.ID).Msg("storefront sync failed")
				}
			}
		}
	}

	syncAll()
	for {
		select {
		case <-ctx.Done():
			zlog.Info().Msg("storefront sync loop stopped")
			return
		case <-ticker.C:
			syncAll()
		}
	}
}
