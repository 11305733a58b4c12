// Package messaging 行情数据的 Kafka 接入：消费指数发布消息，
// 以追加快照行的方式写入曲线数据。
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/commoditytrading/internal/marketdata/application"
	"github.com/wyfcoding/pkg/config"
	datetime "github.com/wyfcoding/pkg/utils"
)

// PricePointEvent 指数发布消息体。
// snapshot_date 缺省时按发布日（price_date）处理。
type PricePointEvent struct {
	CurveCode    string `json:"curve_code"`
	PriceDate    string `json:"price_date"`
	SnapshotDate string `json:"snapshot_date"`
	Price        string `json:"price"`
}

// PricePointConsumer 曲线数据点消费者
type PricePointConsumer struct {
	reader *kafkago.Reader
	curves *application.CurveService
}

func NewPricePointConsumer(cfg config.KafkaConfig, topic string, curves *application.CurveService) *PricePointConsumer {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          topic,
		GroupID:        cfg.GroupID,
		MinBytes:       cfg.MinBytes,
		MaxBytes:       cfg.MaxBytes,
		MaxWait:        cfg.MaxWait,
		CommitInterval: time.Second,
		StartOffset:    kafkago.LastOffset,
	})
	return &PricePointConsumer{reader: reader, curves: curves}
}

// Run 消费循环，ctx 取消后返回
func (c *PricePointConsumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := c.handle(ctx, msg); err != nil {
			// 单条坏消息不终止消费，记录后继续
			slog.ErrorContext(ctx, "failed to ingest curve point",
				"topic", msg.Topic, "offset", msg.Offset, "error", err)
		}
	}
}

func (c *PricePointConsumer) handle(ctx context.Context, msg kafkago.Message) error {
	var event PricePointEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return err
	}
	priceDate, err := datetime.ParseDate(event.PriceDate)
	if err != nil {
		return err
	}
	snapshotDate := priceDate
	if event.SnapshotDate != "" {
		snapshotDate, err = datetime.ParseDate(event.SnapshotDate)
		if err != nil {
			return err
		}
	}
	price, err := decimal.NewFromString(event.Price)
	if err != nil {
		return err
	}

	curve, err := c.curves.GetByCode(ctx, event.CurveCode)
	if err != nil {
		return err
	}
	_, err = c.curves.UploadData(ctx, curve.ID, []application.PointInput{{
		PriceDate:    priceDate,
		SnapshotDate: snapshotDate,
		Price:        price,
	}})
	return err
}

func (c *PricePointConsumer) Close() error {
	return c.reader.Close()
}
