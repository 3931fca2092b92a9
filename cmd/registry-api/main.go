package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hackgods/medical-appointment-scheduling/internal/api"
	"github.com/hackgods/medical-appointment-scheduling/internal/availability"
	"github.com/hackgods/medical-appointment-scheduling/internal/config"
	"github.com/hackgods/medical-appointment-scheduling/internal/db"
	"github.com/hackgods/medical-appointment-scheduling/internal/logging"
	"github.com/hackgods/medical-appointment-scheduling/internal/metrics"
	redisclient "github.com/hackgods/medical-appointment-scheduling/internal/redis"
	"github.com/hackgods/medical-appointment-scheduling/internal/registry"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("dev", "info", "registry-api").WithError(err).Fatal("config load error")
	}
	log := logging.New(cfg.Env, cfg.LogLevel, "registry-api")

	if err := cfg.RequirePostgres(); err != nil {
		log.WithError(err).Fatal("invalid config")
	}
	log.WithField("http_port", cfg.HTTPPort).Info("registry-api starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 20}, db.SchemaRegistry)
	cancelPg()
	if err != nil {
		log.WithError(err).Fatal("postgres connection error")
	}
	defer pgPool.Close()
	log.Info("connected to Postgres")

	deps := []api.Dependency{{Name: "postgres", Check: pgPool, Critical: true}}

	// Redis only guards schedule generation; without it the Postgres
	// transaction is the only guard.
	var locker redisclient.Locker
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.WithError(err).Warn("redis unavailable, schedule locking disabled")
	} else {
		defer func() {
			if err := rdb.Close(); err != nil {
				log.WithError(err).Warn("error closing redis")
			}
		}()
		locker = redisclient.NewRedisLocker(rdb, cfg.LockTTL)
		deps = append(deps, api.Dependency{Name: "redis", Check: api.RedisPinger(rdb)})
		log.Info("connected to Redis")
	}

	registryRepo := registry.NewPgRepository(pgPool)
	registrySvc := registry.NewService(registryRepo, registryRepo, log)
	availabilitySvc := availability.NewService(availability.NewPgRepository(pgPool), registrySvc, locker, metrics.New(), log)

	router := api.NewRegistryRouter(api.RouterConfig{
		Log:          log,
		Env:          cfg.Env,
		Version:      version,
		Dependencies: deps,
	}, registrySvc, availabilitySvc)

	if err := api.Serve(rootCtx, net.JoinHostPort("", cfg.HTTPPort), router, cfg.ShutdownTimeout, log); err != nil {
		log.WithError(err).Error("http server error")
		os.Exit(1)
	}

	log.Info("registry-api stopped")
}
