// Package events publishes committed lifecycle changes to RabbitMQ so
// admin feeds and notification consumers can follow along without
// polling the database.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"qr-dine/internal/connections/rabbitmq"
	"qr-dine/internal/domain"
)

type PublisherInterface interface {
	OrderCreated(ctx context.Context, ev domain.OrderCreatedEvent) error
	OrderStatusChanged(ctx context.Context, ev domain.OrderStatusChangedEvent) error
	OrderPaid(ctx context.Context, ev domain.OrderPaidEvent) error
	DeskReleased(ctx context.Context, ev domain.DeskReleasedEvent) error
}

type Publisher struct {
	mq *rabbitmq.Client
}

func NewPublisher(mq *rabbitmq.Client) PublisherInterface {
	return &Publisher{mq: mq}
}

func (p *Publisher) OrderCreated(ctx context.Context, ev domain.OrderCreatedEvent) error {
	return p.publish(ctx, rabbitmq.OrdersExchange, "order.created."+ev.ShopID, ev)
}

func (p *Publisher) OrderStatusChanged(ctx context.Context, ev domain.OrderStatusChangedEvent) error {
	if err := p.publish(ctx, rabbitmq.OrdersExchange, "order.status_changed."+ev.ShopID, ev); err != nil {
		return err
	}
	// Status changes also fan out to notification consumers.
	return p.publish(ctx, rabbitmq.NotificationsExchange, "", ev)
}

func (p *Publisher) OrderPaid(ctx context.Context, ev domain.OrderPaidEvent) error {
	return p.publish(ctx, rabbitmq.OrdersExchange, "order.paid."+ev.ShopID, ev)
}

func (p *Publisher) DeskReleased(ctx context.Context, ev domain.DeskReleasedEvent) error {
	return p.publish(ctx, rabbitmq.OrdersExchange, "desk.released."+ev.ShopID, ev)
}

func (p *Publisher) publish(ctx context.Context, exchange, key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.mq.PublishPersistent(ctx, exchange, key, body); err != nil {
		return fmt.Errorf("publish %s %s: %w", exchange, key, err)
	}
	return nil
}
