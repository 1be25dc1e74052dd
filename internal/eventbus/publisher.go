// Package eventbus publishes paid-order events for the external sales
// analytics subsystem. Delivery is best-effort: the payment path logs failures
// and moves on.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/liuchongliu35-ctrl/hadoop-mall/internal/domain"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

// PaidOrderEvent is the wire shape consumed by the sales-analytics service.
type PaidOrderEvent struct {
	OrderID          int64     `json:"order_id"`
	OrderNo          string    `json:"order_no"`
	UserID           int64     `json:"user_id"`
	ActivityID       int64     `json:"activity_id"`
	ProductID        int64     `json:"product_id"`
	ProductName      string    `json:"product_name"`
	Quantity         int       `json:"quantity"`
	TotalAmountCents int64     `json:"total_amount_cents"`
	PaidAt           time.Time `json:"paid_at"`
}

// Publisher sends paid-order events to a durable topic exchange.
type Publisher struct {
	exchange   string
	routingKey string
	logger     zerolog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(url, exchange, routingKey string, logger zerolog.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	logger.Info().Str("exchange", exchange).Str("routing_key", routingKey).
		Msg("sales event publisher connected")
	return &Publisher{
		exchange:   exchange,
		routingKey: routingKey,
		logger:     logger,
		conn:       conn,
		ch:         ch,
	}, nil
}

// RecordPaidOrder publishes one event. Callers treat an error as log-and-move-on.
func (p *Publisher) RecordPaidOrder(_ context.Context, o domain.Order) error {
	paidAt := o.UpdatedAt
	if o.PayTime != nil {
		paidAt = *o.PayTime
	}
	body, err := json.Marshal(PaidOrderEvent{
		OrderID:          o.ID,
		OrderNo:          o.OrderNo,
		UserID:           o.UserID,
		ActivityID:       o.ActivityID,
		ProductID:        o.ProductID,
		ProductName:      o.ProductName,
		Quantity:         o.Quantity,
		TotalAmountCents: o.TotalAmountCents,
		PaidAt:           paidAt,
	})
	if err != nil {
		return fmt.Errorf("marshal paid order event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.Publish(p.exchange, p.routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish paid order %d: %w", o.ID, err)
	}
	return nil
}

func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// LogRecorder is the fallback when no broker is configured; it only logs the
// event so the payment path behaves identically in development.
type LogRecorder struct {
	Logger zerolog.Logger
}

func (r LogRecorder) RecordPaidOrder(_ context.Context, o domain.Order) error {
	r.Logger.Info().Int64("order_id", o.ID).Str("order_no", o.OrderNo).
		Int64("total_amount_cents", o.TotalAmountCents).Msg("paid order recorded (log only)")
	return nil
}
