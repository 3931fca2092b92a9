package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/hackgods/medical-appointment-scheduling/internal/api"
	"github.com/hackgods/medical-appointment-scheduling/internal/config"
	"github.com/hackgods/medical-appointment-scheduling/internal/logging"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("dev", "info", "gateway").WithError(err).Fatal("config load error")
	}
	log := logging.New(cfg.Env, cfg.LogLevel, "gateway")

	gw, err := api.NewGateway(cfg.GatewayRoutes, log)
	if err != nil {
		log.WithError(err).Fatal("invalid gateway routes")
	}
	for name, target := range cfg.GatewayRoutes {
		log.WithField("service", name).WithField("upstream", target).Info("route registered")
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	router := api.NewGatewayRouter(api.RouterConfig{
		Log:     log,
		Env:     cfg.Env,
		Version: version,
	}, gw)

	if err := api.Serve(rootCtx, net.JoinHostPort("", cfg.HTTPPort), router, cfg.ShutdownTimeout, log); err != nil {
		log.WithError(err).Error("http server error")
		os.Exit(1)
	}

	log.Info("gateway stopped")
}
