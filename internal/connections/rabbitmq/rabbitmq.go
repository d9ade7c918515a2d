package rabbitmq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	OrdersExchange        = "orders_topic"
	NotificationsExchange = "notifications_fanout"
)

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	VHost    string
}

type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func Dial(cfg Config) (*Client, error) {
	vhost := cfg.VHost
	if vhost == "" {
		vhost = "/"
	}
	url := fmt.Sprintf("amqp://%s:%s@%s:%d%s", cfg.User, cfg.Password, cfg.Host, cfg.Port, vhost)
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return &Client{conn: conn, ch: ch}, nil
}

func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// DeclareTopology sets up the exchanges and queues the service
// publishes to. Order lifecycle events go to a topic exchange keyed
// "order.<event>.<shop_id>" / "desk.<event>.<shop_id>"; status changes
// additionally fan out to the notifications exchange. Declarations are
// idempotent.
func (c *Client) DeclareTopology() error {
	if c == nil || c.ch == nil {
		return fmt.Errorf("nil channel")
	}
	if err := c.ch.ExchangeDeclare(OrdersExchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	if err := c.ch.ExchangeDeclare(NotificationsExchange, "fanout", true, false, false, false, nil); err != nil {
		return err
	}
	if err := c.ch.ExchangeDeclare("dlx", "direct", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := c.ch.QueueDeclare("admin_feed.q", true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "dlx",
		"x-dead-letter-routing-key": "dlq",
	}); err != nil {
		return err
	}
	if _, err := c.ch.QueueDeclare("notifications.q", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := c.ch.QueueDeclare("dlq", true, false, false, false, nil); err != nil {
		return err
	}
	if err := c.ch.QueueBind("admin_feed.q", "order.#", OrdersExchange, false, nil); err != nil {
		return err
	}
	if err := c.ch.QueueBind("admin_feed.q", "desk.#", OrdersExchange, false, nil); err != nil {
		return err
	}
	return c.ch.QueueBind("notifications.q", "", NotificationsExchange, false, nil)
}

func (c *Client) PublishPersistent(ctx context.Context, exchange, key string, body []byte) error {
	return c.ch.PublishWithContext(ctx, exchange, key, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}
