package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ConsumerConfig holds configuration for the feed consumer.
type ConsumerConfig struct {
	Client ClientConfig

	// ReconnectBaseWait is the first backoff after a drop; doubles up
	// to ReconnectMaxWait.
	ReconnectBaseWait time.Duration
	ReconnectMaxWait  time.Duration

	// MessageBuffer is the capacity of the outbound channel to the
	// dispatcher.
	MessageBuffer int
}

// DefaultConsumerConfig returns sensible defaults.
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Client:            DefaultClientConfig(),
		ReconnectBaseWait: time.Second,
		ReconnectMaxWait:  time.Minute,
		MessageBuffer:     4096,
	}
}

// newClientFunc builds a fresh connection attempt. Swapped in tests.
type newClientFunc func(cfg ClientConfig, logger *slog.Logger) Client

// Consumer keeps one feed connection alive for the life of the process,
// forwarding frames to the dispatcher and publishing up/down events.
type Consumer struct {
	cfg    ConsumerConfig
	logger *slog.Logger

	newClient newClientFunc

	messages chan RawMessage
	events   chan ConnEvent

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewConsumer creates a feed consumer.
func NewConsumer(cfg ConsumerConfig, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ReconnectBaseWait <= 0 {
		cfg.ReconnectBaseWait = DefaultConsumerConfig().ReconnectBaseWait
	}
	if cfg.ReconnectMaxWait <= 0 {
		cfg.ReconnectMaxWait = DefaultConsumerConfig().ReconnectMaxWait
	}
	if cfg.MessageBuffer <= 0 {
		cfg.MessageBuffer = DefaultConsumerConfig().MessageBuffer
	}

	return &Consumer{
		cfg:       cfg,
		logger:    logger,
		newClient: NewClient,
		messages:  make(chan RawMessage, cfg.MessageBuffer),
		events:    make(chan ConnEvent, 8),
	}
}

// Start connects and begins the supervision loop. The first connection
// attempt is blocking so startup failures surface immediately.
func (c *Consumer) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)

	client := c.newClient(c.cfg.Client, c.logger)
	if err := client.Connect(c.ctx); err != nil {
		c.cancel()
		return err
	}
	c.publishEvent(ConnEvent{Type: ConnUp, At: time.Now()})

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.superviseLoop(client)
	}()

	c.logger.Info("feed consumer started", "url", c.cfg.Client.URL)
	return nil
}

// Stop gracefully shuts down.
func (c *Consumer) Stop(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("feed consumer stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Messages returns the channel of raw feed frames.
func (c *Consumer) Messages() <-chan RawMessage {
	return c.messages
}

// Events returns the connection up/down event channel.
func (c *Consumer) Events() <-chan ConnEvent {
	return c.events
}

// superviseLoop forwards frames from the active client and rebuilds the
// connection after every drop.
func (c *Consumer) superviseLoop(client Client) {
	defer client.Close()

	for {
		err := c.forward(client)
		if c.ctx.Err() != nil {
			return
		}

		c.logger.Warn("feed connection lost", "error", err)
		c.publishEvent(ConnEvent{Type: ConnDown, At: time.Now(), Err: err})
		client.Close()

		client = c.reconnect()
		if client == nil {
			return
		}
		c.publishEvent(ConnEvent{Type: ConnUp, At: time.Now()})
	}
}

// forward pumps frames from one client to the dispatcher until the
// connection errors or the consumer is stopped.
func (c *Consumer) forward(client Client) error {
	for {
		select {
		case <-c.ctx.Done():
			return c.ctx.Err()
		case err := <-client.Errors():
			return err
		case msg, ok := <-client.Messages():
			if !ok {
				return ErrNotConnected
			}
			select {
			case c.messages <- msg:
			case <-c.ctx.Done():
				return c.ctx.Err()
			}
		}
	}
}

// reconnect retries with exponential backoff until connected or the
// consumer is stopped.
func (c *Consumer) reconnect() Client {
	wait := c.cfg.ReconnectBaseWait

	for {
		select {
		case <-c.ctx.Done():
			return nil
		case <-time.After(wait):
		}

		c.logger.Info("attempting feed reconnection", "wait", wait)

		client := c.newClient(c.cfg.Client, c.logger)
		if err := client.Connect(c.ctx); err != nil {
			c.logger.Warn("feed reconnection failed", "error", err)
			wait *= 2
			if wait > c.cfg.ReconnectMaxWait {
				wait = c.cfg.ReconnectMaxWait
			}
			continue
		}

		c.logger.Info("feed reconnected")
		return client
	}
}

// publishEvent never blocks; the recovery layer reads events promptly
// but a slow consumer must not stall the feed.
func (c *Consumer) publishEvent(ev ConnEvent) {
	select {
	case c.events <- ev:
	default:
		select {
		case <-c.events:
			c.events <- ev
		default:
		}
	}
}
