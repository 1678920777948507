// README: Publishes committed order events to Kafka for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/xtinaharwell/wild-wash-api/internal/modules/order"
)

// Writer is the part of *kafka.Writer the publisher uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Envelope is the JSON value of one Kafka message.
type Envelope struct {
	OrderID   int64          `json:"order_id"`
	OrderCode string         `json:"order_code"`
	Status    string         `json:"status"`
	Type      string         `json:"event_type"`
	ActorID   *int64         `json:"actor_id"`
	Payload   map[string]any `json:"payload"`
	CreatedAt string         `json:"created_at"`
}

type KafkaPublisher struct {
	w   Writer
	log *zap.Logger
}

func NewKafkaPublisher(w Writer, log *zap.Logger) *KafkaPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &KafkaPublisher{w: w, log: log}
}

// Publish writes evs keyed by order id so one order's events stay on one partition.
func (p *KafkaPublisher) Publish(ctx context.Context, o *order.Order, evs []order.Event) error {
	if len(evs) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(evs))
	for _, e := range evs {
		env := Envelope{
			OrderID:   int64(o.ID),
			OrderCode: o.Code,
			Status:    string(o.Status),
			Type:      string(e.Type),
			Payload:   e.Payload,
			CreatedAt: e.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		}
		if e.ActorID != nil {
			actor := int64(*e.ActorID)
			env.ActorID = &actor
		}
		value, err := json.Marshal(env)
		if err != nil {
			return fmt.Errorf("encode %s event: %w", e.Type, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(strconv.FormatInt(int64(o.ID), 10)),
			Value: value,
			Time:  e.CreatedAt,
		})
	}
	if err := p.w.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write order events: %w", err)
	}
	p.log.Debug("order events published", zap.Int64("order_id", int64(o.ID)), zap.Int("count", len(msgs)))
	return nil
}
