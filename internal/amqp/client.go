package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	applog "rbudget/internal/log"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
	maxReconnects  = 10
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

// Options configures a Client.
type Options struct {
	URL          string
	Exchange     string
	RequestQueue string
	ResultQueue  string
	// ContentType selects the body encoding of published messages.
	ContentType string
}

// Client publishes and consumes projection messages on a direct exchange.
// Requests are routed by the request queue name and results by the result
// queue name, unless a request names its own reply queue.
type Client struct {
	url          string
	exchangeName string
	requestQueue string
	resultQueue  string
	contentType  string
	logger       *applog.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	failMu       sync.Mutex
	lastFailure  time.Time
}

func NewClient(opts Options, logger *applog.Logger) (*Client, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	if opts.ContentType == "" {
		opts.ContentType = ContentTypeJSON
	}
	c := &Client{
		url:          opts.URL,
		exchangeName: opts.Exchange,
		requestQueue: opts.RequestQueue,
		resultQueue:  opts.ResultQueue,
		contentType:  opts.ContentType,
		logger:       logger.WithComponent(applog.ComponentAMQP),
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := setup(channel, c.exchangeName, c.requestQueue, c.resultQueue); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queues: %w", err)
	}

	c.mu.Lock()
	c.conn, c.channel = conn, channel
	c.mu.Unlock()
	return nil
}

func setup(ch *amqp091.Channel, exchange string, queues ...string) error {
	if err := ch.ExchangeDeclare(
		exchange, // name
		"direct", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, q := range queues {
		if q == "" {
			continue
		}
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
		// Routing key equals the queue name on a direct exchange.
		if err := ch.QueueBind(q, q, exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", q, err)
		}
	}
	return nil
}

// reconnect replaces a dead connection, backing off between attempts.
func (c *Client) reconnect(ctx context.Context) error {
	c.closeConn()
	var err error
	for attempt := range maxReconnects {
		if err = c.connect(); err == nil {
			c.logger.InfoContext(ctx, "Reconnected to AMQP", "attempt", attempt+1)
			return nil
		}
		wait := exponentialBackoff(attempt)
		c.logger.WarnContext(ctx, "AMQP reconnect failed", "attempt", attempt+1, "retry_in", wait, applog.FieldError, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("reconnect after %d attempts: %w", maxReconnects, err)
}

func (c *Client) currentChannel() *amqp091.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

// PublishRequest sends a projection request to the request queue.
func (c *Client) PublishRequest(ctx context.Context, req *ProjectionRequest) error {
	return c.publish(ctx, c.exchangeName, c.requestQueue, req.ID, "", req)
}

// PublishResult sends a result to replyTo through the default exchange, or
// to the result queue when replyTo is empty.
func (c *Client) PublishResult(ctx context.Context, replyTo string, res *ProjectionResult) error {
	if replyTo != "" {
		return c.publish(ctx, "", replyTo, res.RequestID, "", res)
	}
	return c.publish(ctx, c.exchangeName, c.resultQueue, res.RequestID, "", res)
}

func (c *Client) publish(ctx context.Context, exchange, key, correlationID, replyTo string, v any) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("publish to %s: %w", key, ErrCircuitOpen)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := Marshal(c.contentType, v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ch := c.currentChannel()
	if ch == nil || ch.IsClosed() {
		if err := c.reconnect(ctx); err != nil {
			c.recordFailure()
			return fmt.Errorf("publish message: %w", err)
		}
		ch = c.currentChannel()
	}

	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(pctx, exchange, key,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:   c.contentType,
			DeliveryMode:  amqp091.Persistent,
			Timestamp:     time.Now(),
			CorrelationId: correlationID,
			ReplyTo:       replyTo,
			Body:          body,
		},
	)
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.closeConn()
		}
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()

	c.logger.DebugContext(ctx, "Published message",
		"exchange", exchange,
		applog.FieldQueue, key,
		"correlation_id", correlationID)
	return nil
}

// RequestHandler processes one projection request. A returned error
// requeues the delivery.
type RequestHandler func(ctx context.Context, req *ProjectionRequest) error

// ConsumeRequests handles requests until ctx is done. A lost connection is
// re-established with exponential backoff.
func (c *Client) ConsumeRequests(ctx context.Context, handler RequestHandler) error {
	for {
		err := c.consumeOnce(ctx, handler)
		if ctx.Err() != nil {
			c.logger.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		}
		c.logger.WarnContext(ctx, "Consumer interrupted", applog.FieldError, err)
		if err := c.reconnect(ctx); err != nil {
			return err
		}
	}
}

func (c *Client) consumeOnce(ctx context.Context, handler RequestHandler) error {
	ch := c.currentChannel()
	if ch == nil {
		return errors.New("channel not open")
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	msgs, err := ch.Consume(
		c.requestQueue, // queue
		"",             // consumer
		false,          // auto-ack
		false,          // exclusive
		false,          // no-local
		false,          // no-wait
		nil,            // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	c.logger.InfoContext(ctx, "Started consuming projection requests", applog.FieldQueue, c.requestQueue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}
			c.handleDelivery(ctx, delivery, handler)
		}
	}
}

func (c *Client) handleDelivery(ctx context.Context, d amqp091.Delivery, handler RequestHandler) {
	var req ProjectionRequest
	if err := Unmarshal(d.ContentType, d.Body, &req); err != nil {
		c.logger.ErrorContext(ctx, "Failed to unmarshal request", applog.FieldError, err)
		d.Nack(false, false) // malformed, drop
		return
	}
	req.ReplyTo = d.ReplyTo

	if err := handler(ctx, &req); err != nil {
		c.logger.ErrorContext(ctx, "Failed to handle request",
			applog.FieldRequestID, req.ID,
			applog.FieldScenario, req.Scenario,
			applog.FieldError, err)
		d.Nack(false, true)
		return
	}
	d.Ack(false)
}

// replyConsumerPrefix tags the consumer of a request's private reply queue.
const replyConsumerPrefix = "rbudget-reply-"

// replyChannel is the part of *amqp091.Channel a request uses for its reply
// queue.
type replyChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp091.Table) (<-chan amqp091.Delivery, error)
	Cancel(consumer string, noWait bool) error
}

// Request publishes req and waits for its result on a private reply queue.
func (c *Client) Request(ctx context.Context, req *ProjectionRequest) (*ProjectionResult, error) {
	ch := c.currentChannel()
	if ch == nil {
		return nil, errors.New("channel not open")
	}
	return c.awaitReply(ctx, ch, req, func(replyTo string) error {
		return c.publish(ctx, c.exchangeName, c.requestQueue, req.ID, replyTo, req)
	})
}

// awaitReply consumes a fresh reply queue, sends the request through send
// and returns the first reply correlated with it. The consumer is cancelled
// on every return.
func (c *Client) awaitReply(ctx context.Context, ch replyChannel, req *ProjectionRequest, send func(replyTo string) error) (*ProjectionResult, error) {
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, fmt.Errorf("declare reply queue: %w", err)
	}
	tag := replyConsumerPrefix + req.ID
	replies, err := ch.Consume(q.Name, tag, true, true, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume reply queue: %w", err)
	}
	defer func() {
		if err := ch.Cancel(tag, false); err != nil {
			c.logger.Debug("Cancelling reply consumer failed", "consumer", tag, applog.FieldError, err)
		}
	}()

	if err := send(q.Name); err != nil {
		return nil, err
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case d, ok := <-replies:
			if !ok {
				return nil, errors.New("reply channel closed")
			}
			if d.CorrelationId != req.ID {
				continue
			}
			var res ProjectionResult
			if err := Unmarshal(d.ContentType, d.Body, &res); err != nil {
				return nil, fmt.Errorf("unmarshal result: %w", err)
			}
			return &res, nil
		}
	}
}

func (c *Client) closeConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.failMu.Lock()
	last := c.lastFailure
	c.failMu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	c.failMu.Lock()
	c.lastFailure = time.Now()
	c.failMu.Unlock()
	n := atomic.AddInt64(&c.failureCount, 1)
	if n >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

// exponentialBackoff returns 1s doubled per attempt, capped at 30s.
func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection refused", "connection closed", "eof", "broken pipe", "use of closed network connection", "channel/connection is not open"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
