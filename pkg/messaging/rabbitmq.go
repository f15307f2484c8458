package messaging

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitConfig holds connection and resilience settings for the broker the
// booking service publishes lifecycle events on.
type RabbitConfig struct {
	URL               string
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	MaxRetries        int // -1 for unlimited
	HeartbeatTimeout  time.Duration
}

func DefaultRabbitConfig(url string) RabbitConfig {
	return RabbitConfig{
		URL:               url,
		ReconnectDelay:    time.Second,
		MaxReconnectDelay: 60 * time.Second,
		MaxRetries:        -1,
		HeartbeatTimeout:  10 * time.Second,
	}
}

// RabbitClient is a RabbitMQ connection that re-dials with exponential
// backoff when the broker drops it. Publish and Consume fail fast while a
// reconnect is in flight; callers treat the broker as best-effort.
type RabbitClient struct {
	cfg RabbitConfig

	mu   sync.RWMutex
	conn *amqp.Connection
	ch   *amqp.Channel

	notifyClose chan *amqp.Error
	closed      bool
}

func NewRabbitClient(cfg RabbitConfig) (*RabbitClient, error) {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = time.Second
	}
	if cfg.MaxReconnectDelay <= 0 {
		cfg.MaxReconnectDelay = 60 * time.Second
	}
	if cfg.HeartbeatTimeout <= 0 {
		cfg.HeartbeatTimeout = 10 * time.Second
	}

	c := &RabbitClient{cfg: cfg}
	if err := c.connect(); err != nil {
		return nil, err
	}
	go c.watchConnection()
	return c, nil
}

func (c *RabbitClient) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := amqp.DialConfig(c.cfg.URL, amqp.Config{Heartbeat: c.cfg.HeartbeatTimeout})
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	c.conn = conn
	c.ch = ch
	c.notifyClose = make(chan *amqp.Error, 1)
	c.conn.NotifyClose(c.notifyClose)
	return nil
}

func (c *RabbitClient) watchConnection() {
	for {
		c.mu.RLock()
		closed := c.closed
		notify := c.notifyClose
		c.mu.RUnlock()
		if closed {
			return
		}

		err, ok := <-notify
		if !ok || c.isClosed() {
			return
		}
		log.Printf("rabbitmq connection lost: %v, reconnecting", err)
		if !c.reconnect() {
			return
		}
	}
}

func (c *RabbitClient) reconnect() bool {
	backoff := c.cfg.ReconnectDelay
	retries := 0
	for {
		if c.isClosed() {
			return false
		}
		if c.cfg.MaxRetries != -1 && retries >= c.cfg.MaxRetries {
			log.Printf("rabbitmq reconnect gave up after %d attempts", retries)
			return false
		}
		if err := c.connect(); err == nil {
			log.Println("rabbitmq reconnected")
			return true
		}
		log.Printf("rabbitmq reconnect failed, retrying in %v", backoff)
		time.Sleep(backoff)
		backoff *= 2
		if backoff > c.cfg.MaxReconnectDelay {
			backoff = c.cfg.MaxReconnectDelay
		}
		retries++
	}
}

func (c *RabbitClient) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// DeclareQueue declares a durable queue.
func (c *RabbitClient) DeclareQueue(name string) (amqp.Queue, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.ch == nil {
		return amqp.Queue{}, fmt.Errorf("channel is not initialized")
	}
	return c.ch.QueueDeclare(name, true, false, false, false, nil)
}

// Publish sends a JSON body to the named queue.
func (c *RabbitClient) Publish(ctx context.Context, queue string, body []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.ch == nil {
		return fmt.Errorf("channel is not initialized")
	}
	return c.ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

// Consume delivers each message body on the queue to handler. A handler
// error nacks without requeue; the payload was malformed and retrying it
// cannot help.
func (c *RabbitClient) Consume(ctx context.Context, queue string, handler func(body []byte) error) error {
	c.mu.RLock()
	ch := c.ch
	c.mu.RUnlock()
	if ch == nil {
		return fmt.Errorf("channel is not initialized")
	}

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			if err := handler(d.Body); err != nil {
				log.Printf("message handler failed: %v", err)
				d.Nack(false, false)
				continue
			}
			d.Ack(false)
		}
	}
}

// Close shuts the connection down for good; no reconnect follows.
func (c *RabbitClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.ch != nil {
		c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
