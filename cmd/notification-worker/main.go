package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/hackgods/medical-appointment-scheduling/internal/api"
	"github.com/hackgods/medical-appointment-scheduling/internal/config"
	"github.com/hackgods/medical-appointment-scheduling/internal/db"
	"github.com/hackgods/medical-appointment-scheduling/internal/eventbus"
	"github.com/hackgods/medical-appointment-scheduling/internal/logging"
	"github.com/hackgods/medical-appointment-scheduling/internal/metrics"
	"github.com/hackgods/medical-appointment-scheduling/internal/notification"
	redisclient "github.com/hackgods/medical-appointment-scheduling/internal/redis"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("dev", "info", "notification-worker").WithError(err).Fatal("config load error")
	}
	log := logging.New(cfg.Env, cfg.LogLevel, "notification-worker")

	if err := cfg.RequirePostgres(); err != nil {
		log.WithError(err).Fatal("invalid config")
	}
	log.WithFields(logrus.Fields{
		"stream":   cfg.NotificationStream,
		"group":    cfg.NotificationGroup,
		"consumer": cfg.ConsumerName,
	}).Info("notification-worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{}, db.SchemaNotification)
	cancelPg()
	if err != nil {
		log.WithError(err).Fatal("postgres connection error")
	}
	defer pgPool.Close()
	log.Info("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.WithError(err).Fatal("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.WithError(err).Warn("error closing redis")
		}
	}()
	log.Info("connected to Redis")

	dispatcher := notification.NewDispatcher(
		notification.NewPgRepository(pgPool),
		notification.DefaultSenders(log),
		metrics.New(),
		log,
	)

	consumer := eventbus.NewStreamConsumer(rdb, eventbus.ConsumerConfig{
		Stream:   cfg.NotificationStream,
		Group:    cfg.NotificationGroup,
		Consumer: cfg.ConsumerName,
		MinIdle:  cfg.RedeliveryIdle,
		Count:    1,
	}, log)
	if err := consumer.EnsureGroup(rootCtx); err != nil {
		log.WithError(err).Fatal("consumer group setup error")
	}

	router := api.NewNotificationRouter(api.RouterConfig{
		Log:     log,
		Env:     cfg.Env,
		Version: version,
		Dependencies: []api.Dependency{
			{Name: "postgres", Check: pgPool, Critical: true},
			{Name: "redis", Check: api.RedisPinger(rdb), Critical: true},
		},
	}, dispatcher)

	g, ctx := errgroup.WithContext(rootCtx)
	g.Go(func() error {
		return consumer.Run(ctx, dispatcher.HandleEvent)
	})
	g.Go(func() error {
		return api.Serve(ctx, net.JoinHostPort("", cfg.HTTPPort), router, cfg.ShutdownTimeout, log)
	})

	if err := g.Wait(); err != nil && rootCtx.Err() == nil {
		log.WithError(err).Error("notification-worker failed")
		os.Exit(1)
	}

	log.Info("notification-worker stopped")
}
