package consumer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/roulette-settlement-poc/internal/settlement-audit/cache"
	"github.com/radieske/roulette-settlement-poc/internal/settlement-audit/pubsub"
	"github.com/radieske/roulette-settlement-poc/internal/settlement-audit/repository"
	"github.com/radieske/roulette-settlement-poc/pkg/contracts/events"
)

// Processor consome eventos round_settled do Kafka, atualiza o cache do
// último resultado, grava a trilha de auditoria e retransmite para o canal
// de broadcast do feed WebSocket.
// Callbacks de métricas podem ser usadas para monitoramento de cada etapa
type Processor struct {
	Log         *zap.Logger
	Reader      *kafka.Reader
	Repo        *repository.PostgresRepo
	Cache       *cache.RedisCache
	Broadcaster *pubsub.RedisBroadcaster
	Channel     string
	DLQ         *kafka.Writer

	OnConsumed func()       // métricas (counter++)
	OnCached   func()       // métricas
	OnPersist  func()       // métricas
	OnError    func(string) // métricas por fase
}

// Run inicia o loop principal de consumo e processamento das mensagens Kafka
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err() // encerra se o contexto for cancelado
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			if p.OnError != nil {
				p.OnError("read")
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		if p.OnConsumed != nil {
			p.OnConsumed() // callback de métrica: mensagem consumida
		}

		var ev events.RoundSettled
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			p.Log.Warn("invalid message", zap.Error(err))
			if p.OnError != nil {
				p.OnError("decode")
			}
			p.toDLQ(ctx, m)
			continue
		}

		// Atualiza cache Redis com o último resultado do usuário
		if err := p.Cache.SetLast(ctx, ev); err != nil {
			p.Log.Warn("redis set failed", zap.Error(err))
			if p.OnError != nil {
				p.OnError("cache")
			}
			// não bloqueia a auditoria se falhar o cache
		} else if p.OnCached != nil {
			p.OnCached() // callback de métrica: cache atualizado
		}

		// Persiste a liquidação na trilha de auditoria
		if err := p.Repo.InsertHistory(ctx, ev); err != nil {
			p.Log.Warn("db insert history failed", zap.Error(err))
			if p.OnError != nil {
				p.OnError("db_history")
			}
			p.toDLQ(ctx, m)
			continue
		}
		if p.OnPersist != nil {
			p.OnPersist() // callback de métrica: persistência concluída
		}

		// Retransmite para o feed WebSocket via Redis Pub/Sub
		if p.Broadcaster != nil {
			if err := p.Broadcaster.Publish(ctx, p.Channel, m.Value); err != nil {
				p.Log.Warn("redis publish failed", zap.Error(err))
				if p.OnError != nil {
					p.OnError("broadcast")
				}
			}
		}
	}
}

// toDLQ encaminha a mensagem problemática para a fila morta, se configurada
func (p *Processor) toDLQ(ctx context.Context, m kafka.Message) {
	if p.DLQ == nil {
		return
	}
	if err := p.DLQ.WriteMessages(ctx, kafka.Message{Key: m.Key, Value: m.Value, Time: time.Now()}); err != nil {
		p.Log.Error("dlq write failed", zap.Error(err))
	}
}
