package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hackgods/medical-appointment-scheduling/internal/appointment"
	"github.com/hackgods/medical-appointment-scheduling/internal/clients"
	"github.com/hackgods/medical-appointment-scheduling/internal/config"
	"github.com/hackgods/medical-appointment-scheduling/internal/db"
	"github.com/hackgods/medical-appointment-scheduling/internal/logging"
	"github.com/hackgods/medical-appointment-scheduling/internal/metrics"
)

const batchSize = 100

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("dev", "info", "release-worker").WithError(err).Fatal("config load error")
	}
	log := logging.New(cfg.Env, cfg.LogLevel, "release-worker")

	if err := cfg.RequirePostgres(); err != nil {
		log.WithError(err).Fatal("invalid config")
	}
	log.WithField("interval", cfg.ReconcileInterval).Info("release-worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 2}, db.SchemaScheduling)
	cancelPg()
	if err != nil {
		log.WithError(err).Fatal("postgres connection error")
	}
	defer pgPool.Close()
	log.Info("connected to Postgres")

	// only the repository and the ledger are used by reconciliation
	svc := appointment.NewService(appointment.Deps{
		Repo:    appointment.NewPgRepository(pgPool),
		Ledger:  clients.NewRegistryClient(cfg.DoctorRegistryURL, cfg.UpstreamTimeout),
		Metrics: metrics.New(),
		Log:     log,
	}, cfg)

	// Run once at startup
	runOnce(rootCtx, svc, log)

	ticker := time.NewTicker(cfg.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info("shutdown signal received, stopping release worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, log)
		}
	}
}

func runOnce(ctx context.Context, svc *appointment.Service, log logrus.FieldLogger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	resolved, err := svc.ReconcilePendingReleases(runCtx, batchSize)
	if err != nil {
		log.WithError(err).Error("reconcile run error")
		return
	}
	log.WithFields(logrus.Fields{
		"resolved": resolved,
		"duration": time.Since(start).String(),
	}).Debug("reconcile run complete")
}
