// Package messaging 盯市估值事件的 Kafka 发布。
package messaging

import (
	"context"
	"encoding/json"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/config"
	datetime "github.com/wyfcoding/pkg/utils"
)

// ValuationCompletedEvent 组合盯市完成事件。
type ValuationCompletedEvent struct {
	ValuationDate string `json:"valuation_date"`
	RecordCount   int    `json:"record_count"`
	TotalMtm      string `json:"total_mtm"`
	OccurredAt    string `json:"occurred_at"`
}

// KafkaPublisher 估值事件生产者
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

func (p *KafkaPublisher) PublishValuationCompleted(ctx context.Context, valuationDate time.Time, recordCount int, totalMtm decimal.Decimal) error {
	event := ValuationCompletedEvent{
		ValuationDate: datetime.FormatDate(valuationDate),
		RecordCount:   recordCount,
		TotalMtm:      totalMtm.String(),
		OccurredAt:    time.Now().UTC().Format(time.RFC3339),
	}
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(datetime.FormatDate(valuationDate)),
		Value: value,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
