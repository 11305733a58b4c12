// Package messaging 撮合事件的 Kafka 发布。
package messaging

import (
	"context"
	"encoding/json"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/wyfcoding/pkg/config"
	datetime "github.com/wyfcoding/pkg/utils"
)

// MatchingCompletedEvent 撮合完成事件，下游头寸与风控系统消费。
type MatchingCompletedEvent struct {
	MatchCount int    `json:"match_count"`
	MatchDate  string `json:"match_date"`
	OccurredAt string `json:"occurred_at"`
}

// KafkaPublisher 撮合事件生产者
type KafkaPublisher struct {
	writer *kafkago.Writer
}

func NewKafkaPublisher(cfg config.KafkaConfig, topic string) *KafkaPublisher {
	writer := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.LeastBytes{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafkago.RequireAll,
		WriteTimeout:           cfg.WriteTimeout,
	}
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) PublishMatchingCompleted(ctx context.Context, matchCount int, matchDate time.Time) error {
	event := MatchingCompletedEvent{
		MatchCount: matchCount,
		MatchDate:  datetime.FormatDate(matchDate),
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(datetime.FormatDate(matchDate)),
		Value: value,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
