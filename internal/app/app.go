package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/phenrril/quickcart/internal/adapters/api"
	"github.com/phenrril/quickcart/internal/adapters/httpserver"
	"github.com/phenrril/quickcart/internal/adapters/payments/razorpay"
	"github.com/phenrril/quickcart/internal/adapters/storage/memory"
	pgstore "github.com/phenrril/quickcart/internal/adapters/storage/postgres"
	redisstore "github.com/phenrril/quickcart/internal/adapters/storage/redis"
	"github.com/phenrril/quickcart/internal/config"
	"github.com/phenrril/quickcart/internal/domain"
	"github.com/phenrril/quickcart/internal/events"
)

type App struct {
	Config  *config.Config
	Server  *httpserver.Server
	Durable domain.KVStore

	kvRepo  *pgstore.KVRepo
	closers []io.Closer
	unsub   func()
}

// NewApp wires the stores, the API client and the HTTP server from cfg.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	durable, err := a.openDurable(ctx)
	if err != nil {
		return nil, err
	}
	a.Durable = durable

	keyBus := events.NewBus[domain.KeyChanged]()
	a.unsub = keyBus.Subscribe(func(e domain.KeyChanged) {
		log.Debug().Str("scope", e.Scope).Str("key", e.Key).Msg("stored key changed")
	})

	client := api.New(cfg.APIBaseURL,
		api.WithTimeout(cfg.APITimeout),
		api.WithGatewayPrefix(cfg.GatewayAPIPrefix),
	)

	a.Server = httpserver.New(httpserver.Deps{
		Durable:  durable,
		Sessions: memory.New(),
		KeyBus:   keyBus,
		BagBus:   events.NewBus[domain.BagChanged](),
		Backend: func(ts oauth2.TokenSource) httpserver.Backend {
			if ts == nil {
				return client
			}
			return client.WithTokenSource(ts)
		},
		Script:            razorpay.NewCheckout(cfg.GatewayScriptURL, nil),
		PlatformFee:       cfg.PlatformFee,
		ClearBagOnSuccess: cfg.CheckoutClearBag,
		ToastTTL:          events.ToastTTL,
		IdleTTL:           cfg.SessionIdleTTL,
		RateRPS:           cfg.RateLimitRPS,
		RateBurst:         cfg.RateLimitBurst,
		CookieSecure:      cfg.CookieSecure,
		FetchTimeout:      cfg.APITimeout + 5*time.Second,
	})
	return a, nil
}

func (a *App) openDurable(ctx context.Context) (domain.KVStore, error) {
	cfg := a.Config
	switch cfg.StoreDriver {
	case config.StoreRedis:
		s, err := redisstore.Open(ctx, cfg.RedisURL, cfg.StoreTTL)
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		a.closers = append(a.closers, s)
		log.Info().Str("driver", cfg.StoreDriver).Msg("durable store ready")
		return s, nil
	case config.StorePostgres:
		db, err := gorm.Open(postgres.Open(cfg.DBDSN), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		repo := pgstore.NewKVRepo(db)
		if err := repo.Migrate(); err != nil {
			return nil, fmt.Errorf("migrate kv store: %w", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			a.closers = append(a.closers, sqlDB)
		}
		a.kvRepo = repo
		log.Info().Str("driver", cfg.StoreDriver).Msg("durable store ready")
		return repo, nil
	}
	log.Warn().Msg("durable store is in memory; bags and sessions are lost on restart")
	return memory.New(), nil
}

func (a *App) HTTPHandler() http.Handler { return a.Server }

// Run drives the server's background loops, and the retention purge when
// the durable store is Postgres, until ctx ends.
func (a *App) Run(ctx context.Context) {
	if a.kvRepo != nil && a.Config.StoreRetention > 0 {
		go a.purgeLoop(ctx)
	}
	a.Server.Run(ctx)
}

func (a *App) purgeLoop(ctx context.Context) {
	every := min(a.Config.StoreRetention, time.Hour)
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := a.kvRepo.PurgeOlderThan(ctx, now.Add(-a.Config.StoreRetention))
			if err != nil {
				log.Error().Err(err).Msg("kv purge failed")
				continue
			}
			if n > 0 {
				log.Info().Int64("rows", n).Msg("stale kv entries purged")
			}
		}
	}
}

func (a *App) Close() error {
	if a.unsub != nil {
		a.unsub()
	}
	var first error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
