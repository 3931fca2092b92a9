package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hackgods/medical-appointment-scheduling/internal/api"
	"github.com/hackgods/medical-appointment-scheduling/internal/appointment"
	"github.com/hackgods/medical-appointment-scheduling/internal/clients"
	"github.com/hackgods/medical-appointment-scheduling/internal/config"
	"github.com/hackgods/medical-appointment-scheduling/internal/db"
	"github.com/hackgods/medical-appointment-scheduling/internal/eventbus"
	"github.com/hackgods/medical-appointment-scheduling/internal/logging"
	"github.com/hackgods/medical-appointment-scheduling/internal/metrics"
	redisclient "github.com/hackgods/medical-appointment-scheduling/internal/redis"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("dev", "info", "scheduling-api").WithError(err).Fatal("config load error")
	}
	log := logging.New(cfg.Env, cfg.LogLevel, "scheduling-api")

	if err := cfg.RequirePostgres(); err != nil {
		log.WithError(err).Fatal("invalid config")
	}

	log.WithFields(logrus.Fields{
		"env":              cfg.Env,
		"http_port":        cfg.HTTPPort,
		"patient_registry": cfg.PatientRegistryURL,
		"doctor_registry":  cfg.DoctorRegistryURL,
	}).Info("scheduling-api starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 20}, db.SchemaScheduling)
	cancelPg()
	if err != nil {
		log.WithError(err).Fatal("postgres connection error")
	}
	defer pgPool.Close()
	log.Info("connected to Postgres")

	// Redis only carries notification events: bookings go on without it
	rdb := redisclient.NewClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	defer func() {
		if err := rdb.Close(); err != nil {
			log.WithError(err).Warn("error closing redis")
		}
	}()
	redisCtx, cancelRedis := context.WithTimeout(rootCtx, 5*time.Second)
	if err := rdb.Ping(redisCtx).Err(); err != nil {
		log.WithError(err).Warn("redis unavailable, notification events will not be published until it is reachable")
	} else {
		log.Info("connected to Redis")
	}
	cancelRedis()

	patients := clients.NewRegistryClient(cfg.PatientRegistryURL, cfg.UpstreamTimeout)
	doctors := clients.NewRegistryClient(cfg.DoctorRegistryURL, cfg.UpstreamTimeout)

	svc := appointment.NewService(appointment.Deps{
		Repo:      appointment.NewPgRepository(pgPool),
		Patients:  patients,
		Doctors:   doctors,
		Ledger:    doctors,
		Publisher: eventbus.NewStreamPublisher(rdb, cfg.NotificationStream, 100_000),
		Metrics:   metrics.New(),
		Log:       log,
	}, cfg)

	router := api.NewSchedulingRouter(api.RouterConfig{
		Log:     log,
		Env:     cfg.Env,
		Version: version,
		Dependencies: []api.Dependency{
			{Name: "postgres", Check: pgPool, Critical: true},
			{Name: "redis", Check: api.RedisPinger(rdb)},
		},
	}, svc)

	if err := api.Serve(rootCtx, net.JoinHostPort("", cfg.HTTPPort), router, cfg.ShutdownTimeout, log); err != nil {
		log.WithError(err).Error("http server error")
		os.Exit(1)
	}

	log.Info("scheduling-api stopped")
}
