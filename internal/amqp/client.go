package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	maxBackoff     = 30 * time.Second
	publishTimeout = 5 * time.Second
)

// ErrPermanent marks a handler failure caused by the job itself rather than
// the environment, such as an expired session. Every failed job is dropped;
// the marker only changes how the failure is logged.
var ErrPermanent = errors.New("permanent failure")

var errCircuitOpen = errors.New("circuit breaker is open")

type Client struct {
	// id tags the events this client publishes so its own consumer can
	// skip them.
	id           string
	url          string
	exchangeName string
	queueName    string

	mu          sync.Mutex
	conn        *amqp091.Connection
	channel     *amqp091.Channel
	lastFailure time.Time

	failureCount int64
	state        int32
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	c := &Client{id: uuid.NewString(), url: url, exchangeName: exchangeName, queueName: queueName}
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
	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.mu.Lock()
	c.conn, c.channel = conn, channel
	c.mu.Unlock()
	return nil
}

// setup declares a durable direct exchange and the import queue bound to it
// under its own name.
func setup(ch *amqp091.Channel, exchange, queue string) error {
	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(queue, queue, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// exponentialBackoff returns the reconnect delay for attempt, doubling from
// one second up to maxBackoff.
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
	for _, s := range []string{"connection", "eof", "broken pipe", "closed network"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// isCircuitOpen reports whether publishing is suspended. An open circuit
// moves to half-open once openTimeout has passed since the last failure.
func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.mu.Lock()
	last := c.lastFailure
	c.mu.Unlock()
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
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if atomic.AddInt64(&c.failureCount, 1) >= maxFailures {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

func (c *Client) publish(ctx context.Context, routingKey string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return fmt.Errorf("publish to %s: %w", routingKey, errCircuitOpen)
	}

	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil || ch.IsClosed() {
		if err := c.connect(); err != nil {
			c.recordFailure()
			return fmt.Errorf("reconnect: %w", err)
		}
		c.mu.Lock()
		ch = c.channel
		c.mu.Unlock()
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err := ch.PublishWithContext(ctx, c.exchangeName, routingKey, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()
	return nil
}

// PublishImportJob queues a CSV import for the worker.
func (c *Client) PublishImportJob(ctx context.Context, msg *ImportJobMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, c.queueName, body); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published import job",
		"component", "amqp",
		"job_id", msg.JobID,
		"bytes", len(msg.CSV),
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

// PublishEvent announces a change to the transaction collection.
func (c *Client) PublishEvent(ctx context.Context, msg *TransactionEventMessage) error {
	if msg.Source == "" {
		msg.Source = c.id
	}
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, msg.RoutingKey(), body); err != nil {
		return err
	}
	slog.DebugContext(ctx, "Published transaction event",
		"component", "amqp",
		"action", msg.Action,
		"transaction_id", msg.TransactionID,
		"count", msg.Count)
	return nil
}

// ImportJobHandler processes one import job.
type ImportJobHandler func(ctx context.Context, msg *ImportJobMessage) error

// ConsumeImportJobs delivers queued import jobs to handler until ctx ends.
func (c *Client) ConsumeImportJobs(ctx context.Context, handler ImportJobHandler) error {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		return fmt.Errorf("start consuming: %w", amqp091.ErrClosed)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	msgs, err := ch.Consume(c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming import jobs", "component", "amqp", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "component", "amqp", "reason", ctx.Err())
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed: %w", amqp091.ErrClosed)
			}
			handleDelivery(ctx, d, handler)
		}
	}
}

// Outcome is what happened to a delivery.
type Outcome int

const (
	Acked Outcome = iota
	Dropped
)

// handleDelivery acks successful jobs and drops every other delivery. Jobs
// are never requeued.
func handleDelivery(ctx context.Context, d amqp091.Delivery, handler ImportJobHandler) Outcome {
	msg, err := ImportJobMessageFromJSON(d.Body)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to unmarshal message", "component", "amqp", "error", err)
		_ = d.Nack(false, false)
		return Dropped
	}

	slog.InfoContext(ctx, "Processing import job", "component", "amqp", "job_id", msg.JobID, "redelivered", d.Redelivered)

	if err := handler(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to handle import job",
			"component", "amqp",
			"job_id", msg.JobID,
			"permanent", errors.Is(err, ErrPermanent),
			"error", err)
		_ = d.Nack(false, false)
		return Dropped
	}

	_ = d.Ack(false)
	slog.InfoContext(ctx, "Successfully processed import job", "component", "amqp", "job_id", msg.JobID)
	return Acked
}

// Reconnect replaces the connection, retrying with exponential backoff until
// it succeeds or ctx ends.
func (c *Client) Reconnect(ctx context.Context) error {
	c.Close()
	for attempt := 0; ; attempt++ {
		err := c.connect()
		if err == nil {
			c.recordSuccess()
			slog.InfoContext(ctx, "Reconnected to AMQP", "component", "amqp", "attempt", attempt+1)
			return nil
		}
		delay := exponentialBackoff(attempt)
		slog.WarnContext(ctx, "AMQP reconnect failed", "component", "amqp", "attempt", attempt+1, "retry_in", delay, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// EventHandler reacts to a transaction event published by another process.
type EventHandler func(ctx context.Context, msg *TransactionEventMessage)

// eventActions are the routing keys an event consumer binds.
var eventActions = []EventAction{EventCreated, EventUpdated, EventDeleted, EventImported}

// ConsumeEvents delivers transaction events to handler until ctx ends. Each
// consumer declares its own exclusive queue, so every process sees every
// event. Events this client published are skipped.
func (c *Client) ConsumeEvents(ctx context.Context, handler EventHandler) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil || conn.IsClosed() {
		return fmt.Errorf("start consuming events: %w", amqp091.ErrClosed)
	}
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open event channel: %w", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("declare event queue: %w", err)
	}
	for _, action := range eventActions {
		key := (&TransactionEventMessage{Action: action}).RoutingKey()
		if err := ch.QueueBind(q.Name, key, c.exchangeName, false, nil); err != nil {
			return fmt.Errorf("bind event queue to %s: %w", key, err)
		}
	}
	msgs, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming events: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming transaction events", "component", "amqp", "queue", q.Name)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("event channel closed: %w", amqp091.ErrClosed)
			}
			c.dispatchEvent(ctx, d.Body, handler)
		}
	}
}

// dispatchEvent decodes one event body and hands it to handler unless it is
// malformed or was published by c. It reports whether handler ran.
func (c *Client) dispatchEvent(ctx context.Context, body []byte, handler EventHandler) bool {
	msg, err := TransactionEventFromJSON(body)
	if err != nil {
		slog.WarnContext(ctx, "Skipping malformed transaction event", "component", "amqp", "error", err)
		return false
	}
	if msg.Source == c.id {
		return false
	}
	slog.DebugContext(ctx, "Received transaction event",
		"component", "amqp",
		"action", msg.Action,
		"source", msg.Source,
		"count", msg.Count)
	handler(ctx, msg)
	return true
}

// RunImportConsumer consumes import jobs until ctx ends, reconnecting after
// connection failures.
func (c *Client) RunImportConsumer(ctx context.Context, handler ImportJobHandler) error {
	return c.runConsumer(ctx, func(ctx context.Context) error {
		return c.ConsumeImportJobs(ctx, handler)
	})
}

// RunEventConsumer consumes transaction events until ctx ends, reconnecting
// after connection failures.
func (c *Client) RunEventConsumer(ctx context.Context, handler EventHandler) error {
	return c.runConsumer(ctx, func(ctx context.Context) error {
		return c.ConsumeEvents(ctx, handler)
	})
}

func (c *Client) runConsumer(ctx context.Context, consume func(context.Context) error) error {
	for {
		err := consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isConnectionError(err) {
			return err
		}
		slog.WarnContext(ctx, "AMQP consumer lost connection", "component", "amqp", "error", err)
		if err := c.Reconnect(ctx); err != nil {
			return err
		}
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
