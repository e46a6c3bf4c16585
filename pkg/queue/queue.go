package queue

import (
	"coding_steps_backend/pkg/logger"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	SubmittedQueueName = "codesteps.grading.submitted"
	ResolvedQueueName  = "codesteps.grading.resolved"
)

type EventType string

const (
	EventSubmitted EventType = "submitted"
	EventResolved  EventType = "resolved"
)

// GradingEvent 评分流程事件，提交进入队列和管理员给出结论时各发一次
type GradingEvent struct {
	ID              uuid.UUID `json:"id"`
	Type            EventType `json:"type"`
	UserTaskID      string    `json:"user_task_id"`
	LearnerID       uint      `json:"learner_id"`
	TaskID          string    `json:"task_id"`
	SubmissionIndex int       `json:"submission_index"`
	Passed          *bool     `json:"passed,omitempty"`
	GradedBy        uint      `json:"graded_by,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// QueueFor 事件对应的队列
func QueueFor(t EventType) string {
	if t == EventResolved {
		return ResolvedQueueName
	}
	return SubmittedQueueName
}

// Connection RabbitMQ 连接，断开后自动重连
type Connection struct {
	url        string
	conn       *amqp.Connection
	channel    *amqp.Channel
	mu         sync.RWMutex
	closed     bool
	reconnects int
}

func NewConnection(url string) (*Connection, error) {
	c := &Connection{url: url}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Connection) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	c.conn, err = amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	c.channel, err = c.conn.Channel()
	if err != nil {
		c.conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	for _, name := range []string{SubmittedQueueName, ResolvedQueueName} {
		_, err := c.channel.QueueDeclare(
			name,
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,
		)
		if err != nil {
			c.channel.Close()
			c.conn.Close()
			return fmt.Errorf("failed to declare queue %s: %w", name, err)
		}
	}

	go c.handleReconnect(c.conn)

	logger.Log.Info("connected to RabbitMQ", zap.String("url", sanitizeURL(c.url)))
	return nil
}

func (c *Connection) handleReconnect(conn *amqp.Connection) {
	err := <-conn.NotifyClose(make(chan *amqp.Error, 1))
	if err == nil {
		return
	}

	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return
	}

	logger.Log.Warn("RabbitMQ connection closed, reconnecting", zap.Error(err))
	for i := 0; i < 10; i++ {
		c.reconnects++
		backoff := time.Duration(1<<i) * time.Second
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
		time.Sleep(backoff)

		if err := c.connect(); err != nil {
			logger.Log.Error("RabbitMQ reconnection failed", zap.Int("attempt", i+1), zap.Error(err))
			continue
		}
		return
	}
	logger.Log.Error("giving up on RabbitMQ after 10 attempts")
}

func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && !c.conn.IsClosed()
}

// PublishJSON 以持久化消息发布到默认交换机
func (c *Connection) PublishJSON(ctx context.Context, queue string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	c.mu.RLock()
	ch := c.channel
	c.mu.RUnlock()

	return ch.PublishWithContext(
		ctx,
		"",    // exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID(data),
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

func messageID(data any) string {
	if ev, ok := data.(GradingEvent); ok {
		return ev.ID.String()
	}
	return uuid.NewString()
}

// Publisher 把评分事件写入对应队列
type Publisher struct {
	conn *Connection
}

func NewPublisher(conn *Connection) *Publisher {
	return &Publisher{conn: conn}
}

func (p *Publisher) Publish(ctx context.Context, ev GradingEvent) error {
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	return p.conn.PublishJSON(ctx, QueueFor(ev.Type), ev)
}

func (p *Publisher) Close() error {
	return p.conn.Close()
}

func sanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "amqp://***"
	}
	return u.Redacted()
}
