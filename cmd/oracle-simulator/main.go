package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/radieske/roulette-settlement-poc/internal/shared/config"
	"github.com/radieske/roulette-settlement-poc/internal/shared/logger"
)

var (
	// Métricas Prometheus do simulador de aleatoriedade
	readingsServed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "oracle_readings_served_total",
		Help: "Leituras entregues pelo simulador",
	})
	badRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "oracle_bad_requests_total",
		Help: "Requisições rejeitadas por parâmetros inválidos",
	})
)

// reading é o payload servido em /oracle/latest
type reading struct {
	RoundID     uint64 `json:"round_id"`
	Value       uint64 `json:"value"`
	TimestampMs int64  `json:"timestamp_ms"`
}

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	prometheus.MustRegister(readingsServed, badRequests)

	// Sequência monotônica de rodadas; semeada pelo relógio para que um
	// restart do simulador não volte atrás nos ids já entregues
	var roundSeq atomic.Uint64
	roundSeq.Store(uint64(time.Now().UnixMilli()))

	appMux := http.NewServeMux()
	appMux.HandleFunc("/oracle/latest", func(w http.ResponseWriter, r *http.Request) {
		modulus := uint64(37)
		if q := r.URL.Query().Get("modulus"); q != "" {
			n, err := strconv.ParseUint(q, 10, 64)
			if err != nil || n == 0 {
				badRequests.Inc()
				http.Error(w, "invalid modulus", http.StatusBadRequest)
				return
			}
			modulus = n
		}

		out := reading{
			RoundID:     roundSeq.Add(1),
			Value:       rand.Uint64() % modulus,
			TimestampMs: time.Now().UnixMilli(),
		}
		readingsServed.Inc()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	})

	// ==== MUX DE MÉTRICAS (/healthz, /metrics)
	metricsMux := http.NewServeMux()
	metricsMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	metricsMux.Handle("/metrics", promhttp.Handler())

	go func() {
		metricsAddr := fmt.Sprintf(":%s", cfg.MetricsPort)
		log.Info("oracle simulator (metrics) running",
			zap.String("addr", metricsAddr),
			zap.String("paths", "/healthz,/metrics"),
		)
		if err := http.ListenAndServe(metricsAddr, metricsMux); err != nil {
			log.Fatal("metrics server error", zap.Error(err))
		}
	}()

	publicAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	log.Info("oracle simulator (public) running",
		zap.String("addr", publicAddr),
		zap.String("paths", "/oracle/latest"),
	)
	if err := http.ListenAndServe(publicAddr, appMux); err != nil {
		log.Fatal("public server error", zap.Error(err))
	}
}
