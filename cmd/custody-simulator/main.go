package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	chttp "github.com/radieske/roulette-settlement-poc/internal/custody-sim/http"
	"github.com/radieske/roulette-settlement-poc/internal/custody-sim/repo"
	"github.com/radieske/roulette-settlement-poc/internal/shared/config"
	"github.com/radieske/roulette-settlement-poc/internal/shared/db"
	"github.com/radieske/roulette-settlement-poc/internal/shared/logger"
	"github.com/radieske/roulette-settlement-poc/internal/shared/metrics"
)

var transfersDone = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "custody_transfers_total",
	Help: "Transferências liquidadas pelo simulador",
})

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	repository := repo.NewPostgres(pg)
	if err := repository.EnsureSchema(ctx); err != nil {
		log.Fatal("schema", zap.Error(err))
	}

	// Garante as contas internas na subida
	if _, err := repository.GetOrCreateAccount(ctx, cfg.HouseAccount); err != nil {
		log.Fatal("house account", zap.Error(err))
	}
	if _, err := repository.GetOrCreateAccount(ctx, cfg.TreasuryAccount); err != nil {
		log.Fatal("treasury account", zap.Error(err))
	}

	prometheus.MustRegister(transfersDone)

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})

	api := chttp.NewServer(log, repository)
	api.OnTransfer = func() { transfersDone.Inc() }

	addr := fmt.Sprintf(":%s", cfg.HTTPPort)
	log.Info("custody simulator running", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, api.Router()); err != nil {
		log.Fatal("public server error", zap.Error(err))
	}
}
