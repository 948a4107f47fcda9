package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	pcache "github.com/radieske/roulette-settlement-poc/internal/play-service/cache"
	"github.com/radieske/roulette-settlement-poc/internal/play-service/catalog"
	"github.com/radieske/roulette-settlement-poc/internal/play-service/custody"
	"github.com/radieske/roulette-settlement-poc/internal/play-service/engine"
	phttp "github.com/radieske/roulette-settlement-poc/internal/play-service/http"
	"github.com/radieske/roulette-settlement-poc/internal/play-service/oracle"
	kpub "github.com/radieske/roulette-settlement-poc/internal/play-service/producer"
	"github.com/radieske/roulette-settlement-poc/internal/play-service/repo"
	"github.com/radieske/roulette-settlement-poc/internal/play-service/ws"
	scache "github.com/radieske/roulette-settlement-poc/internal/shared/cache"
	"github.com/radieske/roulette-settlement-poc/internal/shared/config"
	"github.com/radieske/roulette-settlement-poc/internal/shared/db"
	skafka "github.com/radieske/roulette-settlement-poc/internal/shared/kafka"
	"github.com/radieske/roulette-settlement-poc/internal/shared/logger"
	"github.com/radieske/roulette-settlement-poc/internal/shared/metrics"
)

var (
	roundsPlayed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "play_rounds_total",
		Help: "Rodadas liquidadas com sucesso",
	})
	playFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "play_failures_total",
		Help: "Jogadas rejeitadas, por motivo",
	}, []string{"reason"})
	stakeCents = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "play_stake_cents_total",
		Help: "Volume apostado acumulado (cents)",
	})
	rewardCents = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "play_reward_cents_total",
		Help: "Prêmios calculados acumulados (cents)",
	})
	marginCents = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "play_treasury_margin_cents_total",
		Help: "Margem da casa acumulada (cents)",
	})
	claimsPaidCents = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "play_claims_paid_cents_total",
		Help: "Prêmios e reembolsos pagos (cents)",
	})
)

func main() {
	cfg := config.Load()
	log, _ := logger.New(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	ctx := context.Background()

	// Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg", zap.Error(err))
	}
	defer pg.Close()

	repository := repo.NewPostgres(pg)
	if err := repository.EnsureSchema(ctx); err != nil {
		log.Fatal("schema", zap.Error(err))
	}

	// Catálogo: defaults no primeiro boot, parâmetros persistidos depois
	cat := catalog.Default()
	params, err := repository.LoadCategoryParams(ctx, pg)
	if err != nil {
		log.Fatal("load category params", zap.Error(err))
	}
	if len(params) == 0 {
		if err := repository.SaveCategoryParams(ctx, pg, cat.Params()); err != nil {
			log.Fatal("seed category params", zap.Error(err))
		}
	} else if err := cat.ApplyParams(params); err != nil {
		log.Fatal("apply category params", zap.Error(err))
	}

	// Redis
	rdb, err := scache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}

	// Kafka writers (round_settled, round_claimed)
	settledWriter := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRoundSettled)
	defer settledWriter.Close()
	claimedWriter := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRoundClaimed)
	defer claimedWriter.Close()
	publ := kpub.NewKafkaPublisher(settledWriter, claimedWriter)

	// Oráculo: janela de frescor persistida vence a config
	stalenessMs, err := repository.StalenessMs(ctx, pg)
	if err != nil {
		stalenessMs = cfg.OracleStalenessMs
	}
	ora := oracle.NewAdapter(oracle.NewHTTPSource(cfg.OracleURL), time.Duration(stalenessMs)*time.Millisecond)

	cust := custody.New(cfg.CustodyURL, cfg.HouseAccount)
	eng := engine.New(cat)
	roundCache := pcache.NewRoundCache(rdb, 60*time.Second)

	// Feed WebSocket de rodadas liquidadas (alimentado pelo worker via pub/sub)
	hub := ws.NewHub(func(r *http.Request) bool { return true })
	ws.StartRedisSubscriber(ctx, rdb, cfg.RedisPubSubChannel, hub)

	api := phttp.NewServer(log, repository, cat, eng, ora, cust, publ, roundCache, hub, cfg.AdminToken, cfg.TreasuryAccount)
	api.OnPlayed = func(stake, reward, margin uint64) {
		roundsPlayed.Inc()
		stakeCents.Add(float64(stake))
		rewardCents.Add(float64(reward))
		marginCents.Add(float64(margin))
	}
	api.OnPlayFailed = func(reason string) { playFailures.WithLabelValues(reason).Inc() }
	api.OnClaimPaid = func(amount uint64) { claimsPaidCents.Add(float64(amount)) }

	prometheus.MustRegister(roundsPlayed, playFailures, stakeCents, rewardCents, marginCents, claimsPaidCents)

	// metrics/health
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	})

	apiSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: api.Router(),
	}

	log.Info("play-service listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}
