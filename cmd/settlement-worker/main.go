package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/roulette-settlement-poc/internal/settlement-audit/cache"
	"github.com/radieske/roulette-settlement-poc/internal/settlement-audit/consumer"
	"github.com/radieske/roulette-settlement-poc/internal/settlement-audit/pubsub"
	"github.com/radieske/roulette-settlement-poc/internal/settlement-audit/repository"
	scache "github.com/radieske/roulette-settlement-poc/internal/shared/cache"
	"github.com/radieske/roulette-settlement-poc/internal/shared/config"
	"github.com/radieske/roulette-settlement-poc/internal/shared/db"
	skafka "github.com/radieske/roulette-settlement-poc/internal/shared/kafka"
	"github.com/radieske/roulette-settlement-poc/internal/shared/logger"
	"github.com/radieske/roulette-settlement-poc/internal/shared/metrics"
)

var (
	consumed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_events_consumed_total",
		Help: "Eventos round_settled consumidos",
	})
	cached = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_cache_updates_total",
		Help: "Atualizações do cache de último resultado",
	})
	persisted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_history_rows_total",
		Help: "Liquidações gravadas no histórico",
	})
	failures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_failures_total",
		Help: "Falhas do worker, por fase",
	}, []string{"phase"})
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()

	// Postgres para a trilha de auditoria das liquidações
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	auditRepo := repository.NewPostgresRepo(pg)
	if err := auditRepo.EnsureSchema(ctx); err != nil {
		log.Fatal("schema", zap.Error(err))
	}

	// Redis: cache de último resultado + canal de broadcast do feed WS
	rdb, err := scache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}

	// Kafka consumer: consome round_settled para auditar e retransmitir
	reader := skafka.NewReader(cfg.KafkaBrokers, cfg.TopicRoundSettled, "settlement-audit")
	defer reader.Close()

	var dlqWriter *skafka.Writer
	if cfg.TopicRoundSettledDLQ != "" {
		dlqWriter = skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRoundSettledDLQ)
		defer dlqWriter.Close()
	}

	prometheus.MustRegister(consumed, cached, persisted, failures)

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})

	log.Info("settlement-worker started",
		zap.String("consume", cfg.TopicRoundSettled),
		zap.String("broadcast", cfg.RedisPubSubChannel),
	)

	proc := &consumer.Processor{
		Log:         log,
		Reader:      reader,
		Repo:        auditRepo,
		Cache:       cache.NewRedisCache(rdb, 0), // último resultado não expira
		Broadcaster: pubsub.NewRedisBroadcaster(rdb),
		Channel:     cfg.RedisPubSubChannel,
		DLQ:         dlqWriter,

		OnConsumed: func() { consumed.Inc() },
		OnCached:   func() { cached.Inc() },
		OnPersist:  func() { persisted.Inc() },
		OnError:    func(phase string) { failures.WithLabelValues(phase).Inc() },
	}

	if err := proc.Run(ctx); err != nil {
		log.Fatal("processor", zap.Error(err))
	}
}
