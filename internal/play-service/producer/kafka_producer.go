package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/radieske/roulette-settlement-poc/pkg/contracts/events"
)

type KafkaPublisher struct {
	Settled *kafka.Writer
	Claimed *kafka.Writer
}

func NewKafkaPublisher(settled, claimed *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{Settled: settled, Claimed: claimed}
}

func (p *KafkaPublisher) PublishRoundSettled(ctx context.Context, e events.RoundSettled) error {
	e.TsUnixMs = time.Now().UnixMilli()
	b, _ := json.Marshal(e)
	return p.Settled.WriteMessages(ctx, kafka.Message{Key: []byte(e.UserID), Value: b})
}

func (p *KafkaPublisher) PublishRoundClaimed(ctx context.Context, e events.RoundClaimed) error {
	e.TsUnixMs = time.Now().UnixMilli()
	b, _ := json.Marshal(e)
	return p.Claimed.WriteMessages(ctx, kafka.Message{Key: []byte(e.UserID), Value: b})
}
