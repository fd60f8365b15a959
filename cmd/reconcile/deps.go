package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"photobooth-reconcile/internal/config"
	"photobooth-reconcile/internal/domain/ports/adapter"
	"photobooth-reconcile/internal/domain/ports/repository"
	gwadapter "photobooth-reconcile/internal/infra/adapters/gateway"
	idadapter "photobooth-reconcile/internal/infra/adapters/identity"
	pg "photobooth-reconcile/internal/infra/db/postgres"
	"photobooth-reconcile/internal/infra/logging"
	red "photobooth-reconcile/internal/infra/redis"
	"photobooth-reconcile/internal/usecase"
)

// deps holds everything a run needs, built once at startup. Construction
// errors here are the only fatal errors a run can produce.
type deps struct {
	cfg    *config.Config
	log    *zerolog.Logger
	pool   *pgxpool.Pool
	redis  *red.Client // nil when redis is not configured
	locker red.Locker  // nil when redis is not configured
	engine *usecase.ReconcileUseCase
}

func setup(ctx context.Context, opts usecase.Options) (*deps, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	logger := logging.New(cfg.Log, devMode)

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		return nil, err
	}

	d := &deps{cfg: cfg, log: logger, pool: pool}

	if cfg.Redis.Addr != "" {
		client, rerr := red.NewClient(ctx, &cfg.Redis)
		if rerr != nil {
			// Degrade: caching and run locks are conveniences, not
			// prerequisites for a correct (idempotent) run.
			logger.Warn().Err(rerr).Msg("redis unavailable; continuing without cache and run lock")
		} else {
			d.redis = client
			d.locker = red.NewLocker(client)
		}
	}

	users := pg.NewPostgresUserRepo(pool)
	var userRepo repository.UserRepository = users
	if d.redis != nil {
		userRepo = pg.NewUserRepoCacheDecorator(users, d.redis, cfg.Redis.TTL)
	}

	var provider adapter.IdentityProvider
	if cfg.Identity.APIKey != "" {
		provider, err = idadapter.NewFirebaseProvider(cfg.Identity.BaseURL, cfg.Identity.APIKey)
		if err != nil {
			d.Close()
			return nil, err
		}
	}
	resolver := usecase.NewIdentityResolver(userRepo, provider, logger)

	var gw adapter.PaymentGateway
	if cfg.Gateway.ServerKey != "" {
		gw, err = gwadapter.NewMidtransGateway(cfg.Gateway.BaseURL, cfg.Gateway.ServerKey, cfg.Gateway.Timeout)
		if err != nil {
			d.Close()
			return nil, err
		}
	}
	if opts.CheckGateway && gw == nil {
		d.Close()
		return nil, fmt.Errorf("gateway confirmation requested but gateway.server_key (MIDTRANS_SERVER_KEY) is not configured")
	}

	if opts.DurationDays <= 0 {
		opts.DurationDays = cfg.Reconcile.DurationDays
	}
	if len(opts.PackageIDs) == 0 {
		opts.PackageIDs = cfg.Reconcile.PackageIDs
	}
	if opts.GatewayTimeout <= 0 {
		opts.GatewayTimeout = cfg.Gateway.Timeout
	}

	d.engine = usecase.NewReconcileUseCase(
		pg.NewPostgresTransactionRepo(pool),
		pg.NewPostgresGrantRepo(pool),
		resolver,
		gw,
		opts,
		logger,
	)
	return d, nil
}

func (d *deps) Close() {
	if d.redis != nil {
		_ = d.redis.Close()
	}
	if d.pool != nil {
		d.pool.Close()
	}
}
